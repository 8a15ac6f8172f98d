// Package queue provides the scheduler's admission queue: FIFO, bounded, with
// claim/ack semantics so a claimed job that is never acked (crashed worker)
// can be requeued and resumed.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrOverloaded means the admission queue hit its configured bound.
	// Submissions are rejected rather than queued indefinitely.
	ErrOverloaded = errors.New("admission queue overloaded")

	// ErrEmpty means no job became claimable within the wait window.
	ErrEmpty = errors.New("queue empty")
)

type Queue interface {
	// Enqueue appends a job id in submission order. Never blocks; returns
	// ErrOverloaded when the queue is at its bound.
	Enqueue(ctx context.Context, jobID string) error

	// ClaimBlocking atomically moves the oldest queued id to the processing
	// set and returns it, waiting up to timeout. Returns ErrEmpty on
	// timeout.
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)

	// Ack removes a claimed id from the processing set once its executor
	// reached a terminal decision.
	Ack(ctx context.Context, jobID string) error

	// RequeueStale moves claimed-but-unacked ids back to the queue so a
	// replacement worker resumes them. Returns how many were moved.
	RequeueStale(ctx context.Context, max int64) (int64, error)

	// Depth reports the number of queued (unclaimed) ids.
	Depth(ctx context.Context) (int64, error)
}
