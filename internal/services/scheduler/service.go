package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Coordinator is the subset of the bridge coordinator the scheduler
// drives on a timer.
type Coordinator interface {
	RedrivePending(ctx context.Context) error
	SweepSession(ctx context.Context) error
}

// Service runs the periodic background work: redriving the pending
// queue and sweeping expired or idle sessions.
type Service struct {
	coordinator Coordinator
	cron        *cron.Cron
	logger      arbor.ILogger

	drainInterval time.Duration
	sweepInterval time.Duration

	mu      sync.Mutex
	running bool
}

// NewService creates a scheduler service
func NewService(coordinator Coordinator, drainInterval time.Duration, logger arbor.ILogger) *Service {
	if drainInterval <= 0 {
		drainInterval = time.Minute
	}
	return &Service{
		coordinator:   coordinator,
		cron:          cron.New(),
		logger:        logger,
		drainInterval: drainInterval,
		sweepInterval: 30 * time.Second,
	}
}

// Start registers the periodic tasks and starts the cron runner.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.drainInterval), s.runRedrive); err != nil {
		return fmt.Errorf("failed to schedule queue redrive: %w", err)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweepInterval), s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("drain_interval", s.drainInterval.String()).
		Str("sweep_interval", s.sweepInterval.String()).
		Msg("Scheduler started")

	return nil
}

// Stop halts the cron runner and waits for in-flight tasks to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) runRedrive() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.coordinator.RedrivePending(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled queue redrive failed")
	}
}

func (s *Service) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.coordinator.SweepSession(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled session sweep failed")
	}
}
