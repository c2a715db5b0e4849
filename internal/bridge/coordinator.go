package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/common"
	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/models"
	"github.com/allyhumai/bridge/internal/services/pending"
)

// SessionManager is the session lifecycle surface the coordinator drives.
type SessionManager interface {
	Current() *models.Session
	Load(ctx context.Context) (*models.Session, error)
	Adopt(ctx context.Context, session *models.Session) error
	Clear(ctx context.Context, reason string) error
	MarkActivity()
	IdleFor() time.Duration
}

// TenantSource resolves the tenant configuration for the active session.
type TenantSource interface {
	Get(ctx context.Context) (*models.TenantConfig, error)
	Invalidate()
}

// PendingQueue is the durable queue of submissions awaiting delivery.
type PendingQueue interface {
	Enqueue(ctx context.Context, candidate *models.CandidateRecord) error
	Size(ctx context.Context) (int, error)
	Drain(ctx context.Context, deliver pending.DeliverFunc) (pending.DrainResult, error)
}

// StatusReporter receives the recomputed indicator state after every
// state-changing operation.
type StatusReporter interface {
	Recompute(sessionValid bool, queueSize int)
}

// Coordinator is the control loop tying session, queue, tenant config
// and delivery together. Every inbound event is handled here and every
// remote-call failure is translated into a response; nothing propagates
// to the transport layer as a panic or an unanswered event.
type Coordinator struct {
	sessions SessionManager
	tenants  TenantSource
	delivery interfaces.DeliveryClient
	queue    PendingQueue
	status   StatusReporter
	events   interfaces.EventService
	validate *validator.Validate
	logger   arbor.ILogger

	inactivityTimeout time.Duration

	mu            sync.Mutex
	lastSubmitted string // Normalized profile URL of the last successful send, process-local
}

// NewCoordinator creates the bridge coordinator
func NewCoordinator(
	sessions SessionManager,
	tenants TenantSource,
	delivery interfaces.DeliveryClient,
	queue PendingQueue,
	status StatusReporter,
	events interfaces.EventService,
	inactivityTimeout time.Duration,
	logger arbor.ILogger,
) *Coordinator {
	return &Coordinator{
		sessions:          sessions,
		tenants:           tenants,
		delivery:          delivery,
		queue:             queue,
		status:            status,
		events:            events,
		validate:          validator.New(),
		logger:            logger,
		inactivityTimeout: inactivityTimeout,
	}
}

// Ping reports the authoritative session state. It always re-reads the
// durable store so the answer stays correct across process restarts.
func (c *Coordinator) Ping(ctx context.Context) models.PingResponse {
	session, err := c.sessions.Load(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrSessionNotFound) {
			c.logger.Warn().Err(err).Msg("Ping failed to read session store")
		}
		return models.PingResponse{OK: true, Active: false}
	}
	return models.PingResponse{OK: true, Active: true, UserID: session.UserID}
}

// SessionUpdate validates and adopts an incoming session. A payload with
// missing fields or an expiry already in the past is rejected without
// touching state. Re-adopting the identical session is acknowledged as
// unchanged without re-persisting or re-draining.
func (c *Coordinator) SessionUpdate(ctx context.Context, req *models.SessionUpdateRequest) models.SessionUpdateResponse {
	if err := c.validate.Struct(req); err != nil {
		c.logger.Warn().Err(err).Msg("Session update rejected, invalid payload")
		return models.SessionUpdateResponse{OK: false, Detail: "access_token and user_id are required"}
	}

	incoming := &models.Session{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		UserID:       req.UserID,
		AgencyID:     req.AgencyID,
		ExpiresAt:    req.ExpiresAt,
	}

	if incoming.IsExpired() {
		c.logger.Warn().
			Str("user_id", req.UserID).
			Int64("expires_at", req.ExpiresAt).
			Msg("Session update rejected, already expired")
		return models.SessionUpdateResponse{OK: false, Detail: "session already expired"}
	}

	if current := c.sessions.Current(); current.IsValid() && current.Same(incoming) {
		c.sessions.MarkActivity()
		return models.SessionUpdateResponse{OK: true, Unchanged: true}
	}

	if err := c.sessions.Adopt(ctx, incoming); err != nil {
		c.logger.Error().Err(err).Msg("Failed to adopt session")
		return models.SessionUpdateResponse{OK: false, Detail: "failed to persist session"}
	}

	c.tenants.Invalidate()
	c.refreshStatus(ctx)

	// A session just became available; push whatever queued up while
	// logged out.
	if err := c.RedrivePending(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Queue redrive after session update failed")
	}

	return models.SessionUpdateResponse{OK: true}
}

// Logout clears the session and tenant config.
func (c *Coordinator) Logout(ctx context.Context) {
	c.teardown(ctx, "logout")
}

// CandidateSubmitted handles one submission. The outcome is always one
// of sent, queued, or skipped-as-duplicate; a failed immediate send of
// any kind falls through to the queue so the record is never dropped.
func (c *Coordinator) CandidateSubmitted(ctx context.Context, candidate *models.CandidateRecord) models.SubmitResponse {
	if err := c.validate.Struct(candidate); err != nil {
		c.logger.Warn().Err(err).Msg("Candidate rejected, invalid record")
		return models.SubmitResponse{OK: false, Error: "candidate name is required"}
	}

	key := common.NormalizeProfileURL(candidate.ProfileURL)

	c.mu.Lock()
	duplicate := key != "" && key == c.lastSubmitted
	c.mu.Unlock()
	if duplicate {
		c.logger.Debug().Str("profile_url", key).Msg("Duplicate submission skipped")
		return models.SubmitResponse{OK: true, Skipped: true}
	}

	session, err := c.sessions.Load(ctx)
	if err != nil {
		// No usable session; queue for the next one.
		return c.enqueue(ctx, candidate)
	}

	data, err := c.deliverNow(ctx, candidate, session)
	if err != nil {
		if errors.Is(err, models.ErrAuthRejected) {
			c.handleAuthFailure(ctx, err)
		}
		c.logger.Warn().
			Err(err).
			Str("name", candidate.Name).
			Msg("Immediate delivery failed, queueing")
		return c.enqueue(ctx, candidate)
	}

	c.mu.Lock()
	c.lastSubmitted = key
	c.mu.Unlock()

	c.sessions.MarkActivity()
	c.refreshStatus(ctx)

	if len(data) > 0 {
		c.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventSuccessNotification,
			Payload: data,
		})
	}

	return models.SubmitResponse{OK: true, Sent: true, Data: data}
}

// RedrivePending attempts delivery for every queued item. Without a
// valid session it is a no-op; the queue waits for the next one.
func (c *Coordinator) RedrivePending(ctx context.Context) error {
	session, err := c.sessions.Load(ctx)
	if err != nil {
		return nil
	}

	var authErr error
	result, err := c.queue.Drain(ctx, func(ctx context.Context, candidate *models.CandidateRecord) error {
		_, sendErr := c.deliverNow(ctx, candidate, session)
		if sendErr == nil {
			c.sessions.MarkActivity()
		} else if errors.Is(sendErr, models.ErrAuthRejected) {
			authErr = sendErr
		}
		return sendErr
	})
	if err != nil {
		return err
	}
	if result.Skipped {
		return nil
	}

	if authErr != nil {
		c.handleAuthFailure(ctx, authErr)
	}
	c.refreshStatus(ctx)

	return nil
}

// SweepSession lazily clears expired sessions and applies the
// inactivity timeout. Run on a timer by the scheduler.
func (c *Coordinator) SweepSession(ctx context.Context) error {
	session, err := c.sessions.Load(ctx)
	if err != nil {
		// Load already ran the cleanup path for an expired session.
		c.refreshStatus(ctx)
		return nil
	}

	if c.inactivityTimeout > 0 && c.sessions.IdleFor() >= c.inactivityTimeout {
		c.logger.Info().
			Str("user_id", session.UserID).
			Str("idle", c.sessions.IdleFor().String()).
			Msg("Session idle past timeout, logging out")
		c.teardown(ctx, "inactivity")
	}

	return nil
}

// QueueSize exposes the pending queue length for status reporting.
func (c *Coordinator) QueueSize(ctx context.Context) int {
	size, err := c.queue.Size(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read queue size")
		return 0
	}
	return size
}

// deliverNow resolves tenant config and sends one candidate. Errors come
// back classified; an auth rejection from either call surfaces as
// ErrAuthRejected for the caller to run the teardown cascade.
func (c *Coordinator) deliverNow(ctx context.Context, candidate *models.CandidateRecord, session *models.Session) (map[string]any, error) {
	tenant, err := c.tenants.Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.delivery.Send(ctx, candidate, session, tenant)
}

func (c *Coordinator) enqueue(ctx context.Context, candidate *models.CandidateRecord) models.SubmitResponse {
	if err := c.queue.Enqueue(ctx, candidate); err != nil {
		c.logger.Error().Err(err).Msg("Failed to enqueue candidate")
		return models.SubmitResponse{OK: false, Error: "failed to queue submission"}
	}
	c.refreshStatus(ctx)
	return models.SubmitResponse{OK: true, Queued: true}
}

// handleAuthFailure runs the full teardown cascade for a rejected
// credential and broadcasts the failure to tabs exactly once.
func (c *Coordinator) handleAuthFailure(ctx context.Context, cause error) {
	c.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventBridgeError,
		Payload: map[string]interface{}{"detail": cause.Error()},
	})
	c.teardown(ctx, "auth_failure")
}

// teardown is the single session-clearing path: memory, store, tenant
// cache, and the visible status indicator.
func (c *Coordinator) teardown(ctx context.Context, reason string) {
	if err := c.sessions.Clear(ctx, reason); err != nil {
		c.logger.Warn().Err(err).Str("reason", reason).Msg("Session clear reported an error")
	}
	c.tenants.Invalidate()
	c.refreshStatus(ctx)
}

func (c *Coordinator) refreshStatus(ctx context.Context) {
	size, err := c.queue.Size(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read queue size for status")
	}
	c.status.Recompute(c.sessions.Current().IsValid(), size)
}
