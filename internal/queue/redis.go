package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisQueue is a reliable FIFO queue on Redis lists.
// Enqueue: LPUSH queueKey (after a bound check)
// Claim:   BRPOPLPUSH queueKey -> processingKey
// Ack:     LREM from processingKey
// A reaper periodically moves processing entries back to the queue so jobs
// claimed by a crashed worker are picked up again.
type redisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
	maxDepth      int64
}

func NewRedisQueue(rdb *redis.Client, queueKey, processingKey string, maxDepth int64) Queue {
	return &redisQueue{
		rdb:           rdb,
		queueKey:      queueKey,
		processingKey: processingKey,
		maxDepth:      maxDepth,
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	if q.maxDepth > 0 {
		depth, err := q.rdb.LLen(ctx, q.queueKey).Result()
		if err != nil {
			return fmt.Errorf("queue depth: %w", err)
		}
		if depth >= q.maxDepth {
			return ErrOverloaded
		}
	}
	if err := q.rdb.LPush(ctx, q.queueKey, jobID).Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	id, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}
		return "", err
	}
	return id, nil
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	return q.rdb.LRem(ctx, q.processingKey, 1, jobID).Err()
}

func (q *redisQueue) RequeueStale(ctx context.Context, max int64) (int64, error) {
	var moved int64
	for i := int64(0); i < max; i++ {
		id, err := q.rdb.RPopLPush(ctx, q.processingKey, q.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return moved, err
		}
		if id != "" {
			moved++
		}
	}
	return moved, nil
}

func (q *redisQueue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueKey).Result()
}
