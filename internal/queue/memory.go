package queue

import (
	"context"
	"sync"
	"time"
)

// memoryQueue mirrors the Redis queue semantics in-process for dev mode and
// tests: bounded FIFO plus a processing set for requeue-on-crash parity.
type memoryQueue struct {
	mu         sync.Mutex
	queued     []string
	processing []string
	maxDepth   int
	signal     chan struct{}
}

func NewMemoryQueue(maxDepth int) Queue {
	return &memoryQueue{
		maxDepth: maxDepth,
		signal:   make(chan struct{}, 1),
	}
}

func (q *memoryQueue) Enqueue(_ context.Context, jobID string) error {
	q.mu.Lock()
	if q.maxDepth > 0 && len(q.queued) >= q.maxDepth {
		q.mu.Unlock()
		return ErrOverloaded
	}
	q.queued = append(q.queued, jobID)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *memoryQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if id, ok := q.tryClaim(); ok {
			return id, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrEmpty
		case <-q.signal:
		}
	}
}

func (q *memoryQueue) tryClaim() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queued) == 0 {
		return "", false
	}
	id := q.queued[0]
	q.queued = q.queued[1:]
	q.processing = append(q.processing, id)
	return id, true
}

func (q *memoryQueue) Ack(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.processing {
		if id == jobID {
			q.processing = append(q.processing[:i], q.processing[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *memoryQueue) RequeueStale(_ context.Context, max int64) (int64, error) {
	q.mu.Lock()
	var moved int64
	for moved < max && len(q.processing) > 0 {
		id := q.processing[0]
		q.processing = q.processing[1:]
		q.queued = append(q.queued, id)
		moved++
	}
	q.mu.Unlock()

	if moved > 0 {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return moved, nil
}

func (q *memoryQueue) Depth(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queued)), nil
}
