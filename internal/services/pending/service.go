package pending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/models"
)

// DeliverFunc attempts delivery of one queued candidate and returns the
// classified error on failure.
type DeliverFunc func(ctx context.Context, candidate *models.CandidateRecord) error

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Delivered int
	Dropped   int
	Remaining int
	Skipped   bool // True when another drain was already in flight
}

// Service is the durable bounded FIFO of submissions awaiting delivery.
// All read-modify-write cycles on the persisted record are serialized
// behind a mutex; a drain pass only holds it while touching storage, not
// while deliveries are in flight.
type Service struct {
	storage      interfaces.QueueStorage
	eventService interfaces.EventService
	logger       arbor.ILogger
	maxItems     int
	maxRetries   int

	mu       sync.Mutex // Serializes queue read-modify-write
	draining bool
	drainMu  sync.Mutex // Guards the draining flag only
}

// NewService creates a pending queue service
func NewService(storage interfaces.QueueStorage, eventService interfaces.EventService, maxItems, maxRetries int, logger arbor.ILogger) *Service {
	if maxItems <= 0 {
		maxItems = 50
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{
		storage:      storage,
		eventService: eventService,
		logger:       logger,
		maxItems:     maxItems,
		maxRetries:   maxRetries,
	}
}

// Enqueue appends a candidate to the durable queue. When the queue
// exceeds its bound the oldest items are evicted first.
func (s *Service) Enqueue(ctx context.Context, candidate *models.CandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.storage.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue for enqueue: %w", err)
	}

	items = append(items, models.QueueItem{
		ID:         uuid.New().String(),
		Candidate:  *candidate,
		EnqueuedAt: time.Now(),
		Retries:    0,
	})

	if evicted := len(items) - s.maxItems; evicted > 0 {
		s.logger.Warn().
			Int("evicted", evicted).
			Int("max_items", s.maxItems).
			Msg("Pending queue full, evicting oldest items")
		items = items[evicted:]
	}

	if err := s.storage.Replace(ctx, items); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}

	s.publishQueueChanged(ctx, len(items))

	s.logger.Info().
		Str("name", candidate.Name).
		Int("queue_size", len(items)).
		Msg("Candidate queued for later delivery")

	return nil
}

// Size returns the current queue length.
func (s *Service) Size(ctx context.Context) (int, error) {
	return s.storage.Size(ctx)
}

// Drain attempts delivery for every queued item in FIFO order. Items are
// removed on success, or dropped permanently once their retry count
// reaches the bound. An auth failure aborts the pass and leaves the
// failing item and everything behind it untouched. A drain requested
// while one is in flight is a no-op. The mutex is released while
// deliveries run so enqueues from handlers are never stuck behind a
// slow pass; items enqueued mid-pass are merged back in at the end.
func (s *Service) Drain(ctx context.Context, deliver DeliverFunc) (DrainResult, error) {
	s.drainMu.Lock()
	if s.draining {
		s.drainMu.Unlock()
		return DrainResult{Skipped: true}, nil
	}
	s.draining = true
	s.drainMu.Unlock()

	defer func() {
		s.drainMu.Lock()
		s.draining = false
		s.drainMu.Unlock()
	}()

	s.mu.Lock()
	items, err := s.storage.Snapshot(ctx)
	s.mu.Unlock()
	if err != nil {
		return DrainResult{}, fmt.Errorf("failed to read queue for drain: %w", err)
	}
	if len(items) == 0 {
		return DrainResult{}, nil
	}

	snapshot := make(map[string]bool, len(items))
	for _, item := range items {
		snapshot[item.ID] = true
	}

	var result DrainResult
	remaining := make([]models.QueueItem, 0, len(items))

	for i := range items {
		item := items[i]

		err := deliver(ctx, &item.Candidate)
		if err == nil {
			result.Delivered++
			continue
		}

		if !models.IsRetryable(err) {
			// Auth rejection or no usable session; keep this item and
			// the rest untouched for the next valid session.
			remaining = append(remaining, items[i:]...)
			s.logger.Warn().
				Err(err).
				Int("kept", len(items)-i).
				Msg("Drain aborted, failure is not retryable")
			break
		}

		item.Retries++
		if item.Retries >= s.maxRetries {
			result.Dropped++
			s.logger.Error().
				Str("id", item.ID).
				Str("name", item.Candidate.Name).
				Int("retries", item.Retries).
				Msg("Retries exhausted, dropping queued candidate")
			continue
		}

		s.logger.Debug().
			Str("id", item.ID).
			Int("retries", item.Retries).
			Err(err).
			Msg("Queued delivery failed, will retry")
		remaining = append(remaining, item)
	}

	s.mu.Lock()
	current, err := s.storage.Snapshot(ctx)
	if err != nil {
		s.mu.Unlock()
		return result, fmt.Errorf("failed to re-read queue after drain: %w", err)
	}
	// Anything not in the snapshot arrived while deliveries ran
	for _, item := range current {
		if !snapshot[item.ID] {
			remaining = append(remaining, item)
		}
	}
	if evicted := len(remaining) - s.maxItems; evicted > 0 {
		remaining = remaining[evicted:]
	}
	if err := s.storage.Replace(ctx, remaining); err != nil {
		s.mu.Unlock()
		return result, fmt.Errorf("failed to persist drained queue: %w", err)
	}
	s.mu.Unlock()

	result.Remaining = len(remaining)
	s.publishQueueChanged(ctx, len(remaining))

	if result.Delivered > 0 || result.Dropped > 0 {
		s.logger.Info().
			Int("delivered", result.Delivered).
			Int("dropped", result.Dropped).
			Int("remaining", result.Remaining).
			Msg("Pending queue drained")
	}

	return result, nil
}

func (s *Service) publishQueueChanged(ctx context.Context, size int) {
	if s.eventService == nil {
		return
	}
	s.eventService.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventQueueChanged,
		Payload: map[string]interface{}{"size": size},
	})
}
