package interfaces

import (
	"context"

	"github.com/allyhumai/bridge/internal/models"
)

// SessionStorage - durable persistence of the single session record
type SessionStorage interface {
	// Load returns the stored session, or models.ErrSessionNotFound.
	// Expiry is NOT evaluated here; the session service owns that.
	Load(ctx context.Context) (*models.Session, error)

	// Save persists the session as the sole source of truth.
	Save(ctx context.Context, session *models.Session) error

	// Clear removes the session record. Clearing an absent record is not
	// an error.
	Clear(ctx context.Context) error
}

// QueueStorage - durable persistence of the pending queue record
type QueueStorage interface {
	// Snapshot returns the queue items in FIFO order. An absent record
	// reads as an empty queue.
	Snapshot(ctx context.Context) ([]models.QueueItem, error)

	// Replace atomically overwrites the stored queue with items.
	Replace(ctx context.Context, items []models.QueueItem) error

	// Size returns the number of stored items.
	Size(ctx context.Context) (int, error)
}

// StorageManager provides access to all storage concerns
type StorageManager interface {
	SessionStorage() SessionStorage
	QueueStorage() QueueStorage
	Close() error
}
