package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))
	require.NoError(t, q.Enqueue(ctx, "c"))

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.ClaimBlocking(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMemoryQueueBound(t *testing.T) {
	q := NewMemoryQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))
	assert.ErrorIs(t, q.Enqueue(ctx, "c"), ErrOverloaded)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, depth)

	// Claiming frees capacity.
	_, err = q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	assert.NoError(t, q.Enqueue(ctx, "c"))
}

func TestMemoryQueueClaimTimeout(t *testing.T) {
	q := NewMemoryQueue(10)

	start := time.Now()
	_, err := q.ClaimBlocking(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMemoryQueueClaimCancelled(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.ClaimBlocking(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryQueueClaimWakesOnEnqueue(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	done := make(chan string, 1)
	go func() {
		id, err := q.ClaimBlocking(ctx, 5*time.Second)
		if err == nil {
			done <- id
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, "late"))

	select {
	case id := <-done:
		assert.Equal(t, "late", id)
	case <-time.After(time.Second):
		t.Fatal("claim did not wake on enqueue")
	}
}

func TestMemoryQueueAckRemovesFromProcessing(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a"))
	id, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, id))

	moved, err := q.RequeueStale(ctx, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, moved, "acked id must not be requeued")

	// Acking an unknown id is a no-op.
	assert.NoError(t, q.Ack(ctx, "ghost"))
}

func TestMemoryQueueRequeueStale(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))
	_, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	_, err = q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)

	moved, err := q.RequeueStale(ctx, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)

	// Requeued ids are claimable again.
	id, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a", id)
}
