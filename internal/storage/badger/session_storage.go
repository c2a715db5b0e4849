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

// SessionKey is the fixed storage key for the single session record.
const SessionKey = "ally:session"

// sessionRecord wraps the session for storage with bookkeeping fields.
type sessionRecord struct {
	Key       string         `badgerhold:"key"`
	Session   models.Session `json:"session"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// Load retrieves the stored session record.
func (s *SessionStorage) Load(ctx context.Context) (*models.Session, error) {
	var record sessionRecord
	err := s.db.Store().Get(SessionKey, &record)
	if err == badgerhold.ErrNotFound {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session := record.Session
	return &session, nil
}

// Save persists the session as the single durable record.
func (s *SessionStorage) Save(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("cannot save nil session")
	}

	record := sessionRecord{
		Key:       SessionKey,
		Session:   *session,
		UpdatedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(SessionKey, &record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug().Str("user_id", session.UserID).Msg("Session persisted")
	return nil
}

// Clear removes the session record. Absent records are not an error.
func (s *SessionStorage) Clear(ctx context.Context) error {
	err := s.db.Store().Delete(SessionKey, &sessionRecord{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
