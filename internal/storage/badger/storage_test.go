package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/allyhumai/bridge/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func TestSessionStorage_SaveLoadClear(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	// Empty store
	_, err := storage.Load(ctx)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	session := &models.Session{
		AccessToken: "tok-A",
		UserID:      "U1",
		AgencyID:    "agency-1",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, storage.Save(ctx, session))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-A", loaded.AccessToken)
	assert.Equal(t, "U1", loaded.UserID)
	assert.Equal(t, "agency-1", loaded.AgencyID)

	require.NoError(t, storage.Clear(ctx))
	_, err = storage.Load(ctx)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	// Clearing an absent record is not an error
	require.NoError(t, storage.Clear(ctx))
}

func TestSessionStorage_SaveOverwrites(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &models.Session{AccessToken: "tok-A", UserID: "U1"}))
	require.NoError(t, storage.Save(ctx, &models.Session{AccessToken: "tok-B", UserID: "U2"}))

	loaded, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-B", loaded.AccessToken)
	assert.Equal(t, "U2", loaded.UserID)
}

func TestQueueStorage_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewQueueStorage(db, arbor.NewLogger())
	ctx := context.Background()

	// Absent record reads as empty
	items, err := storage.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	size, err := storage.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	stored := []models.QueueItem{
		{ID: "1", Candidate: models.CandidateRecord{Name: "Alice"}, EnqueuedAt: time.Now()},
		{ID: "2", Candidate: models.CandidateRecord{Name: "Bob"}, EnqueuedAt: time.Now(), Retries: 2},
	}
	require.NoError(t, storage.Replace(ctx, stored))

	items, err = storage.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Alice", items[0].Candidate.Name)
	assert.Equal(t, 2, items[1].Retries)

	// Replace with empty list empties the queue
	require.NoError(t, storage.Replace(ctx, nil))
	size, err = storage.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestQueueStorage_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)

	db := &BadgerDB{store: store, logger: arbor.NewLogger()}
	storage := NewQueueStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Replace(ctx, []models.QueueItem{
		{ID: "survivor", Candidate: models.CandidateRecord{Name: "Carol"}, EnqueuedAt: time.Now()},
	}))
	require.NoError(t, store.Close())

	store, err = badgerhold.Open(options)
	require.NoError(t, err)
	defer store.Close()

	db = &BadgerDB{store: store, logger: arbor.NewLogger()}
	storage = NewQueueStorage(db, arbor.NewLogger())

	items, err := storage.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "survivor", items[0].ID)
}
