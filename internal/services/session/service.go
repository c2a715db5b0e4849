package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/models"
)

// Service owns the session lifecycle: the durable store is the source of
// truth, the in-memory copy is a disposable cache reconstructed from it.
// Expiry is discovered lazily on Load, never by a timer.
type Service struct {
	storage      interfaces.SessionStorage
	eventService interfaces.EventService
	logger       arbor.ILogger

	mu           sync.RWMutex
	current      *models.Session
	lastActivity time.Time
}

// NewService creates a session service and warms the in-memory cache from
// storage. A missing or expired stored session leaves the service in the
// logged-out state.
func NewService(storage interfaces.SessionStorage, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	s := &Service{
		storage:      storage,
		eventService: eventService,
		logger:       logger,
		lastActivity: time.Now(),
	}

	if sess, err := s.Load(context.Background()); err == nil {
		logger.Info().Str("user_id", sess.UserID).Msg("Session restored from storage")
	} else if !errors.Is(err, models.ErrSessionNotFound) {
		logger.Warn().Err(err).Msg("Failed to restore session from storage")
	}

	return s
}

// Current returns the in-memory session, which may be nil. Decision
// points that must survive process restarts use Load instead.
func (s *Service) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Load re-reads the session from the durable store. A stored session that
// has expired triggers the same cleanup path as an explicit Clear and
// reads as not found.
func (s *Service) Load(ctx context.Context) (*models.Session, error) {
	stored, err := s.storage.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
		}
		return nil, err
	}

	if stored.IsExpired() {
		s.logger.Info().Str("user_id", stored.UserID).Msg("Stored session expired, clearing")
		if clearErr := s.Clear(ctx, "expired_on_load"); clearErr != nil {
			s.logger.Warn().Err(clearErr).Msg("Failed to clear expired session")
		}
		return nil, models.ErrSessionNotFound
	}

	s.mu.Lock()
	s.current = stored
	s.mu.Unlock()

	return stored, nil
}

// Adopt persists the session as the new source of truth and makes it the
// in-memory current session.
func (s *Service) Adopt(ctx context.Context, session *models.Session) error {
	if err := s.storage.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.current = session
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.eventService.Publish(ctx, interfaces.Event{
		Type: interfaces.EventSessionUpdated,
		Payload: map[string]interface{}{
			"user_id":   session.UserID,
			"agency_id": session.AgencyID,
		},
	})

	return nil
}

// Clear tears the session down in memory and storage and broadcasts
// session_cleared. This is the single teardown path for logout, auth
// failure, expiry, and inactivity.
func (s *Service) Clear(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	err := s.storage.Clear(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("reason", reason).Msg("Failed to clear stored session")
	}

	s.logger.Info().Str("reason", reason).Msg("Session cleared")

	s.eventService.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventSessionCleared,
		Payload: map[string]interface{}{"reason": reason},
	})

	return err
}

// MarkActivity records submission activity for the inactivity sweep.
func (s *Service) MarkActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleFor returns how long the bridge has been without activity.
func (s *Service) IdleFor() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastActivity)
}
