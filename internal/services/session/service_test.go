package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/models"
	"github.com/allyhumai/bridge/internal/services/events"
)

// memSessionStorage is an in-memory SessionStorage for tests.
type memSessionStorage struct {
	mu      sync.Mutex
	session *models.Session
}

func (m *memSessionStorage) Load(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, models.ErrSessionNotFound
	}
	copy := *m.session
	return &copy, nil
}

func (m *memSessionStorage) Save(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *session
	m.session = &copy
	return nil
}

func (m *memSessionStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func newTestService(t *testing.T, storage interfaces.SessionStorage) (*Service, func() int) {
	t.Helper()

	eventService := events.NewService(arbor.NewLogger())
	var mu sync.Mutex
	cleared := 0
	require.NoError(t, eventService.Subscribe(interfaces.EventSessionCleared, func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		cleared++
		mu.Unlock()
		return nil
	}))

	svc := NewService(storage, eventService, arbor.NewLogger())
	return svc, func() int {
		mu.Lock()
		defer mu.Unlock()
		return cleared
	}
}

func TestAdoptAndLoad(t *testing.T) {
	storage := &memSessionStorage{}
	svc, _ := newTestService(t, storage)
	ctx := context.Background()

	session := &models.Session{
		AccessToken: "A",
		UserID:      "U1",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, svc.Adopt(ctx, session))

	loaded, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "U1", loaded.UserID)
	assert.True(t, loaded.IsValid())
	assert.Equal(t, "U1", svc.Current().UserID)
}

func TestLoad_ExpiredSessionClearedLazily(t *testing.T) {
	storage := &memSessionStorage{
		session: &models.Session{
			AccessToken: "A",
			UserID:      "U1",
			ExpiresAt:   time.Now().Add(-time.Minute).Unix(),
		},
	}
	eventService := events.NewService(arbor.NewLogger())
	var mu sync.Mutex
	cleared := 0
	require.NoError(t, eventService.Subscribe(interfaces.EventSessionCleared, func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		cleared++
		mu.Unlock()
		return nil
	}))

	svc := &Service{storage: storage, eventService: eventService, logger: arbor.NewLogger(), lastActivity: time.Now()}

	_, err := svc.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	// Cleanup ran: the record is gone and dependents were notified
	_, err = storage.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Nil(t, svc.Current())

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, cleared)
	mu.Unlock()
}

func TestClear_BroadcastsSessionCleared(t *testing.T) {
	storage := &memSessionStorage{session: &models.Session{AccessToken: "A", UserID: "U1"}}
	svc, clearedCount := newTestService(t, storage)
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx, "user_logout"))
	assert.Nil(t, svc.Current())

	_, err := storage.Load(ctx)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, clearedCount())
}

func TestIdleFor(t *testing.T) {
	storage := &memSessionStorage{}
	svc, _ := newTestService(t, storage)

	svc.MarkActivity()
	assert.Less(t, svc.IdleFor(), time.Second)
}
