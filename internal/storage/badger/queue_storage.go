package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/models"
)

// QueueKey is the fixed storage key for the pending-queue record.
const QueueKey = "ally:pending-queue"

// QueueStorage implements the QueueStorage interface for Badger.
// The entire item array lives in one record; callers serialize their
// read-modify-write cycles (see services/pending).
type QueueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQueueStorage creates a new QueueStorage instance
func NewQueueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{
		db:     db,
		logger: logger,
	}
}

// Snapshot returns the stored items in FIFO order.
func (s *QueueStorage) Snapshot(ctx context.Context) ([]models.QueueItem, error) {
	var record models.QueueRecord
	err := s.db.Store().Get(QueueKey, &record)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending queue: %w", err)
	}
	return record.Items, nil
}

// Replace atomically overwrites the stored queue.
func (s *QueueStorage) Replace(ctx context.Context, items []models.QueueItem) error {
	record := models.QueueRecord{
		Key:       QueueKey,
		Items:     items,
		UpdatedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(QueueKey, &record); err != nil {
		return fmt.Errorf("failed to persist pending queue: %w", err)
	}
	return nil
}

// Size returns the number of stored items.
func (s *QueueStorage) Size(ctx context.Context) (int, error) {
	items, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
