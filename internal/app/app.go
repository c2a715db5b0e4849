package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/bridge"
	"github.com/allyhumai/bridge/internal/common"
	"github.com/allyhumai/bridge/internal/handlers"
	"github.com/allyhumai/bridge/internal/httpclient"
	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/services/delivery"
	"github.com/allyhumai/bridge/internal/services/events"
	"github.com/allyhumai/bridge/internal/services/extractor"
	"github.com/allyhumai/bridge/internal/services/pending"
	"github.com/allyhumai/bridge/internal/services/scheduler"
	"github.com/allyhumai/bridge/internal/services/session"
	"github.com/allyhumai/bridge/internal/services/status"
	"github.com/allyhumai/bridge/internal/services/tenant"
	storage "github.com/allyhumai/bridge/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SessionService   *session.Service
	TenantService    *tenant.Service
	PendingService   *pending.Service
	StatusService    *status.Service
	ExtractorService *extractor.Service
	SchedulerService *scheduler.Service
	DeliveryClient   interfaces.DeliveryClient

	// The control loop
	Coordinator *bridge.Coordinator

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	BridgeHandler *handlers.BridgeHandler
	StatusHandler *handlers.StatusHandler
	WSHandler     *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := storage.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	logger.Debug().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	app.EventService = events.NewService(logger)

	app.SessionService = session.NewService(storageManager.SessionStorage(), app.EventService, logger)
	app.PendingService = pending.NewService(storageManager.QueueStorage(), app.EventService, cfg.Queue.MaxItems, cfg.Queue.MaxRetries, logger)
	app.StatusService = status.NewService(app.EventService, logger)
	app.ExtractorService = extractor.NewService(logger)

	httpClient := httpclient.NewDefaultHTTPClient(cfg.API.RequestTimeout)
	app.TenantService = tenant.NewService(cfg.ConfigURL(), httpClient, app.SessionService, logger)
	app.DeliveryClient = delivery.NewClient(cfg.SubmitURL(), httpClient, cfg.API.SendInterval, logger)

	app.Coordinator = bridge.NewCoordinator(
		app.SessionService,
		app.TenantService,
		app.DeliveryClient,
		app.PendingService,
		app.StatusService,
		app.EventService,
		cfg.Session.InactivityTimeout,
		logger,
	)

	app.SchedulerService = scheduler.NewService(app.Coordinator, cfg.DrainInterval(), logger)

	// Handlers: the WebSocket broadcaster subscribes to the event bus so
	// every lifecycle transition reaches the open tabs.
	app.APIHandler = handlers.NewAPIHandler()
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, app.StatusService, logger)
	app.BridgeHandler = handlers.NewBridgeHandler(app.Coordinator, app.ExtractorService, logger)
	app.StatusHandler = handlers.NewStatusHandler(app.StatusService, logger)

	if err := app.SchedulerService.Start(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("api_base", cfg.API.BaseURL).
		Int("queue_max_items", cfg.Queue.MaxItems).
		Int("queue_max_retries", cfg.Queue.MaxRetries).
		Msg("Application initialization complete")

	return app, nil
}

// Close shuts components down in reverse dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	if a.WSHandler != nil {
		a.WSHandler.Close()
	}
	if a.EventService != nil {
		a.EventService.Close()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
