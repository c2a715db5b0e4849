package pending

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/models"
)

// memQueueStorage is an in-memory QueueStorage for tests.
type memQueueStorage struct {
	mu    sync.Mutex
	items []models.QueueItem
}

func (m *memQueueStorage) Snapshot(ctx context.Context) ([]models.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.QueueItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memQueueStorage) Replace(ctx context.Context, items []models.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make([]models.QueueItem, len(items))
	copy(m.items, items)
	return nil
}

func (m *memQueueStorage) Size(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func newTestQueue(maxItems, maxRetries int) (*Service, *memQueueStorage) {
	storage := &memQueueStorage{}
	return NewService(storage, nil, maxItems, maxRetries, arbor.NewLogger()), storage
}

func candidate(name string) *models.CandidateRecord {
	return &models.CandidateRecord{Name: name}
}

func TestEnqueue_BoundedEvictsOldest(t *testing.T) {
	queue, _ := newTestQueue(5, 3)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, queue.Enqueue(ctx, candidate(fmt.Sprintf("cand-%d", i))))
	}

	size, err := queue.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, size)

	// The 5 most recently enqueued survive, oldest first
	storage := &memQueueStorage{}
	queue2 := NewService(storage, nil, 5, 3, arbor.NewLogger())
	for i := 0; i < 8; i++ {
		require.NoError(t, queue2.Enqueue(ctx, candidate(fmt.Sprintf("cand-%d", i))))
	}
	items, err := storage.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("cand-%d", i+3), item.Candidate.Name)
	}
}

func TestDrain_EmptyQueueIsNoOp(t *testing.T) {
	queue, _ := newTestQueue(50, 3)

	result, err := queue.Drain(context.Background(), func(ctx context.Context, c *models.CandidateRecord) error {
		t.Fatal("deliver should not be called on an empty queue")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, result.Delivered)
	assert.Zero(t, result.Remaining)
}

func TestDrain_DeliversInOrder(t *testing.T) {
	queue, _ := newTestQueue(50, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Enqueue(ctx, candidate(fmt.Sprintf("cand-%d", i))))
	}

	var delivered []string
	result, err := queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
		delivered = append(delivered, c.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Delivered)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, []string{"cand-0", "cand-1", "cand-2"}, delivered)

	size, _ := queue.Size(ctx)
	assert.Equal(t, 0, size)
}

func TestDrain_RetryThenSucceed(t *testing.T) {
	// Fails bound-1 times, succeeds on the final allowed attempt, and is
	// gone from subsequent passes.
	queue, _ := newTestQueue(50, 3)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, candidate("flaky")))

	attempts := 0
	deliver := func(ctx context.Context, c *models.CandidateRecord) error {
		attempts++
		if attempts < 3 {
			return models.ErrServer
		}
		return nil
	}

	for pass := 0; pass < 3; pass++ {
		_, err := queue.Drain(ctx, deliver)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, attempts)
	size, _ := queue.Size(ctx)
	assert.Equal(t, 0, size)

	// Further passes never see it again
	result, err := queue.Drain(ctx, deliver)
	require.NoError(t, err)
	assert.Zero(t, result.Delivered)
	assert.Equal(t, 3, attempts)
}

func TestDrain_RetryExhaustionDrops(t *testing.T) {
	queue, _ := newTestQueue(50, 3)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, candidate("doomed")))

	attempts := 0
	deliver := func(ctx context.Context, c *models.CandidateRecord) error {
		attempts++
		return models.ErrNetwork
	}

	var dropped int
	for pass := 0; pass < 5; pass++ {
		result, err := queue.Drain(ctx, deliver)
		require.NoError(t, err)
		dropped += result.Dropped
	}

	// Exactly maxRetries attempts, then permanently dropped
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, dropped)
	size, _ := queue.Size(ctx)
	assert.Equal(t, 0, size)
}

func TestDrain_AuthFailureKeepsRemainingUntouched(t *testing.T) {
	queue, storage := newTestQueue(50, 3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, queue.Enqueue(ctx, candidate(fmt.Sprintf("cand-%d", i))))
	}

	calls := 0
	result, err := queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
		calls++
		if calls == 2 {
			return models.ErrAuthRejected
		}
		return nil
	})
	require.NoError(t, err)

	// First delivered, auth failure on the second aborts the pass
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 3, result.Remaining)
	assert.Equal(t, 2, calls)

	items, err := storage.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// The item that hit the auth failure keeps its retry count untouched
	assert.Equal(t, "cand-1", items[0].Candidate.Name)
	assert.Equal(t, 0, items[0].Retries)
}

func TestDrain_ConcurrentDrainIsNoOp(t *testing.T) {
	queue, _ := newTestQueue(50, 3)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, candidate("slow")))

	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	result, err := queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
		t.Error("second drain must not deliver")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	close(release)
	wg.Wait()
}

func TestEnqueueDuringDrainIsNotLost(t *testing.T) {
	queue, _ := newTestQueue(50, 3)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, candidate("first")))

	entered := make(chan struct{})
	done := make(chan struct{})

	go func() {
		queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
			close(entered)
			return nil
		})
		close(done)
	}()

	<-entered
	// Enqueue races the drain; the drain's final persist merges anything
	// that arrived mid-pass back in, so nothing is lost either way.
	require.NoError(t, queue.Enqueue(ctx, candidate("second")))
	<-done

	size, err := queue.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestEnqueueDoesNotBlockBehindSlowDelivery(t *testing.T) {
	queue, storage := newTestQueue(50, 3)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, candidate("slow")))

	entered := make(chan struct{})
	release := make(chan struct{})
	drained := make(chan struct{})

	go func() {
		queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
			close(entered)
			<-release
			return nil
		})
		close(drained)
	}()

	<-entered
	enqueued := make(chan struct{})
	go func() {
		queue.Enqueue(ctx, candidate("mid-pass"))
		close(enqueued)
	}()

	select {
	case <-enqueued:
	case <-time.After(time.Second):
		t.Fatal("enqueue stuck behind in-flight delivery")
	}

	close(release)
	<-drained

	items, err := storage.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "mid-pass", items[0].Candidate.Name)
}

func TestDrain_UnclassifiedErrorKeepsQueue(t *testing.T) {
	queue, storage := newTestQueue(50, 3)
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, candidate("cand-1")))
	require.NoError(t, queue.Enqueue(ctx, candidate("cand-2")))

	result, err := queue.Drain(ctx, func(ctx context.Context, c *models.CandidateRecord) error {
		return fmt.Errorf("unexpected wiring failure")
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Delivered)
	assert.Equal(t, 0, result.Dropped)
	assert.Equal(t, 2, result.Remaining)

	items, err := storage.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Retries)
}
