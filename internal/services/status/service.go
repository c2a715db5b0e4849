package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/interfaces"
)

// IndicatorState is the visible status of the bridge, the abstraction of
// the extension badge.
type IndicatorState string

const (
	// StateInactive - no valid session; submissions go straight to the queue.
	StateInactive IndicatorState = "inactive"
	// StateActive - valid session and an empty pending queue.
	StateActive IndicatorState = "active"
	// StatePending - items are waiting for delivery. Takes priority over
	// active/inactive regardless of session state.
	StatePending IndicatorState = "pending"
)

// Service tracks the visible status indicator
type Service struct {
	state        IndicatorState
	pendingCount int
	mu           sync.RWMutex
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates a new status service
func NewService(eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		state:        StateInactive,
		eventService: eventService,
		logger:       logger,
	}
}

// GetState returns the current indicator state and pending count (thread-safe)
func (s *Service) GetState() (IndicatorState, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.pendingCount
}

// Recompute derives the indicator from session validity and queue size,
// in priority order: pending items first, then session state. Broadcasts
// only when the result actually changed.
func (s *Service) Recompute(sessionValid bool, queueSize int) {
	newState := StateInactive
	switch {
	case queueSize > 0:
		newState = StatePending
	case sessionValid:
		newState = StateActive
	}

	s.mu.Lock()
	changed := s.state != newState || s.pendingCount != queueSize
	oldState := s.state
	s.state = newState
	s.pendingCount = queueSize
	s.mu.Unlock()

	if !changed {
		return
	}

	s.logger.Info().
		Str("old_state", string(oldState)).
		Str("new_state", string(newState)).
		Int("pending", queueSize).
		Msg("Status indicator changed")

	s.eventService.Publish(context.Background(), interfaces.Event{
		Type: interfaces.EventStatusChanged,
		Payload: map[string]interface{}{
			"state":     string(newState),
			"pending":   queueSize,
			"timestamp": time.Now(),
		},
	})
}

// GetStatus returns the full status for the status endpoint
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"state":     string(s.state),
		"pending":   s.pendingCount,
		"timestamp": time.Now(),
	}
}
