// Package scheduler admits queued jobs under a fixed concurrency limit. A
// single claim loop is the only place admission bookkeeping happens; admitted
// jobs run on independent worker goroutines, so at most C jobs are ever
// between Queued and a terminal state.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"deckgen/internal/metrics"
	"deckgen/internal/pipeline"
	"deckgen/internal/queue"
)

type Pool struct {
	queue      queue.Queue
	executor   *pipeline.Executor
	limit      int
	claimDelay time.Duration
	logger     *slog.Logger
	metrics    metrics.Sink
}

func NewPool(q queue.Queue, executor *pipeline.Executor, limit int, claimTimeout time.Duration, logger *slog.Logger, sink metrics.Sink) *Pool {
	if limit <= 0 {
		limit = 4
	}
	if claimTimeout <= 0 {
		claimTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Pool{
		queue:      q,
		executor:   executor,
		limit:      limit,
		claimDelay: claimTimeout,
		logger:     logger,
		metrics:    sink,
	}
}

// Run blocks until ctx is cancelled, claiming jobs and dispatching them to
// the worker goroutines.
func (p *Pool) Run(ctx context.Context) {
	p.logger.InfoContext(ctx, "scheduler started", "admission_limit", p.limit)

	jobCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.limit; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for jobID := range jobCh {
				p.runOne(ctx, n, jobID)
			}
		}(i + 1)
	}

	// Claim loop: the single coordinator moving ids from queued to running.
	for {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			p.logger.Info("scheduler stopped")
			return
		default:
			jobID, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
			if err != nil {
				// queue empty or ctx cancelled
				continue
			}
			select {
			case jobCh <- jobID:
			case <-ctx.Done():
				close(jobCh)
				wg.Wait()
				return
			}
		}
	}
}

func (p *Pool) runOne(ctx context.Context, worker int, jobID string) {
	p.metrics.RunningIncr()
	defer p.metrics.RunningDecr()

	id, err := uuid.Parse(jobID)
	if err != nil {
		// Poison entry: requeueing it can never succeed, drop it.
		p.logger.ErrorContext(ctx, "invalid job id claimed", "worker", worker, "job_id", jobID, "error", err)
	} else if err := p.executor.Run(ctx, id); err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.ErrorContext(ctx, "executor error", "worker", worker, "job_id", jobID, "error", err)
		}
		// The job is still non-terminal. Leave the id in the processing set
		// so the next startup Recover re-admits it; acking here would strand
		// the job with no worker ever touching it again.
		return
	}

	if err := p.queue.Ack(ctx, jobID); err != nil {
		p.logger.ErrorContext(ctx, "ack failed", "worker", worker, "job_id", jobID, "error", err)
	}
}

// Recover re-admits ids a previous process claimed but never acked. Called
// once at startup, before workers begin claiming: an unacked id at that point
// belongs to a crashed run, and its job resumes from its last persisted
// state. Requeueing during normal operation would hand a running job to a
// second executor, so recovery never runs on a timer.
func (p *Pool) Recover(ctx context.Context) error {
	n, err := p.queue.RequeueStale(ctx, 1000)
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "re-admitted jobs from crashed run", "count", n)
	}
	return nil
}

// RunDepthGauge refreshes the admission queue depth gauge until ctx is
// cancelled.
func (p *Pool) RunDepthGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if depth, err := p.queue.Depth(ctx); err == nil {
				p.metrics.QueueDepthUpdate(depth)
			}
		}
	}
}
