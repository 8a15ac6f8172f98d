// Package pipeline drives a single job through the fixed four-stage pipeline:
// scrape, brand analysis, content generation, render. Progress is committed
// to the job store before the executor advances, so a crashed run can be
// re-admitted and resumed at its last persisted state.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deckgen/internal/entity"
	"deckgen/internal/metrics"
	"deckgen/internal/store"
)

// RetryConfig is the per-stage retry policy: exponential backoff starting at
// BaseBackoff, doubling per attempt, capped at MaxBackoff.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

func (c *RetryConfig) sanitize() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = c.BaseBackoff
	}
}

// Executor runs exactly one job from its current state to a terminal state.
type Executor struct {
	store    store.Store
	adapters Adapters
	retry    RetryConfig
	logger   *slog.Logger
	metrics  metrics.Sink
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewExecutor(st store.Store, adapters Adapters, retry RetryConfig, logger *slog.Logger, sink metrics.Sink) *Executor {
	retry.sanitize()
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Executor{
		store:    st,
		adapters: adapters,
		retry:    retry,
		logger:   logger,
		metrics:  sink,
		sleep:    sleepCtx,
	}
}

// Run advances the job until Completed or Failed. A job already in a terminal
// state is left untouched, which makes re-admission after a crash idempotent.
func (e *Executor) Run(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	for {
		job, err := e.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if job.State.Terminal() {
			return nil
		}

		// Cancellation is honored at stage boundaries only; an in-flight
		// adapter call is never aborted.
		if job.CancelRequested {
			jobErr := entity.JobError{
				Stage:   job.State,
				Code:    entity.ErrCodeCancelled,
				Message: "generation cancelled by request",
			}
			if err := store.SetError(ctx, e.store, id, job.State, nil, jobErr); err != nil {
				return e.handleTransitionErr(ctx, id, err)
			}
			e.metrics.JobFailed(string(job.State))
			e.logger.InfoContext(ctx, "job cancelled", "job_id", id, "stage", job.State)
			return nil
		}

		if job.State == entity.StateQueued {
			if err := e.store.Transition(ctx, id, entity.StateQueued, entity.StateScraping, store.Patch{}); err != nil {
				return e.handleTransitionErr(ctx, id, err)
			}
			continue
		}

		done, err := e.runStage(ctx, job)
		if err != nil {
			return err
		}
		if done {
			if current, err := e.store.Get(ctx, id); err == nil && current.State == entity.StateCompleted {
				e.metrics.JobCompleted(time.Since(start))
				e.logger.InfoContext(ctx, "job completed", "job_id", id,
					"duration_ms", time.Since(start).Milliseconds())
			}
			return nil
		}
	}
}

// runStage executes the adapter for the job's current state under the retry
// policy and commits the outcome. It returns done=true when the job reached a
// terminal state.
func (e *Executor) runStage(ctx context.Context, job *entity.Job) (bool, error) {
	stage := job.State
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= e.retry.MaxAttempts; attempt++ {
		attempts = attempt
		stageStart := time.Now()
		output, artifact, err := e.invoke(ctx, job)
		e.metrics.StageCompleted(string(stage), time.Since(stageStart), err)

		if err == nil {
			result := store.NewStageResult(stage, entity.OutcomeSuccess, attempt)
			result.Output = output
			next := stage.Next()

			if next == entity.StateCompleted {
				err = store.SetArtifact(ctx, e.store, job.ID, stage, result, artifact)
			} else {
				err = e.store.Transition(ctx, job.ID, stage, next, store.Patch{AppendResult: &result})
			}
			if err != nil {
				return true, e.handleTransitionErr(ctx, job.ID, err)
			}
			e.logger.InfoContext(ctx, "stage completed", "job_id", job.ID,
				"stage", stage, "attempts", attempt,
				"duration_ms", time.Since(stageStart).Milliseconds())
			return next == entity.StateCompleted, nil
		}

		lastErr = err
		if IsFatal(err) {
			e.logger.WarnContext(ctx, "stage failed permanently", "job_id", job.ID,
				"stage", stage, "attempt", attempt, "error", err)
			break
		}
		if attempt < e.retry.MaxAttempts {
			delay := e.backoff(attempt)
			e.metrics.RetryAttempt(string(stage))
			e.logger.WarnContext(ctx, "stage failed, retrying", "job_id", job.ID,
				"stage", stage, "attempt", attempt, "backoff", delay, "error", err)
			if err := e.sleep(ctx, delay); err != nil {
				return true, err
			}
		}
	}

	result := store.NewStageResult(stage, entity.OutcomeFailure, attempts)
	result.Error = lastErr.Error()
	jobErr := entity.JobError{
		Stage:   stage,
		Code:    entity.ErrCodeStageFailed,
		Message: lastErr.Error(),
	}
	if err := store.SetError(ctx, e.store, job.ID, stage, &result, jobErr); err != nil {
		return true, e.handleTransitionErr(ctx, job.ID, err)
	}
	e.metrics.JobFailed(string(stage))
	e.logger.WarnContext(ctx, "job failed", "job_id", job.ID, "stage", stage,
		"attempts", attempts, "error", lastErr)
	return true, nil
}

// invoke maps the job's state to its stage adapter, feeding it the prior
// stage's persisted output.
func (e *Executor) invoke(ctx context.Context, job *entity.Job) (json.RawMessage, []byte, error) {
	switch job.State {
	case entity.StateScraping:
		assets, err := e.adapters.Scraper.Scrape(ctx, job.Input.CompanyURL)
		if err != nil {
			return nil, nil, err
		}
		out, err := json.Marshal(assets)
		if err != nil {
			return nil, nil, FatalErr(fmt.Errorf("encode brand assets: %w", err))
		}
		return out, nil, nil

	case entity.StateAnalyzingBrand:
		var assets entity.BrandAssets
		if err := decodeStage(job, entity.StateScraping, &assets); err != nil {
			return nil, nil, err
		}
		profile, err := e.adapters.Analyzer.Analyze(ctx, &assets)
		if err != nil {
			return nil, nil, err
		}
		out, err := json.Marshal(profile)
		if err != nil {
			return nil, nil, FatalErr(fmt.Errorf("encode brand profile: %w", err))
		}
		return out, nil, nil

	case entity.StateGeneratingContent:
		var profile entity.BrandProfile
		if err := decodeStage(job, entity.StateAnalyzingBrand, &profile); err != nil {
			return nil, nil, err
		}
		pres, err := e.adapters.Generator.Generate(ctx, ContentRequest{
			Topic:             job.Input.Topic,
			SlideCount:        job.Input.SlideCount,
			AdditionalContext: job.Input.AdditionalContext,
			Brand:             &profile,
		})
		if err != nil {
			return nil, nil, err
		}
		out, err := json.Marshal(pres)
		if err != nil {
			return nil, nil, FatalErr(fmt.Errorf("encode presentation: %w", err))
		}
		return out, nil, nil

	case entity.StateRendering:
		var profile entity.BrandProfile
		if err := decodeStage(job, entity.StateAnalyzingBrand, &profile); err != nil {
			return nil, nil, err
		}
		var pres entity.Presentation
		if err := decodeStage(job, entity.StateGeneratingContent, &pres); err != nil {
			return nil, nil, err
		}
		artifact, err := e.adapters.Renderer.Render(ctx, &pres, &profile)
		if err != nil {
			return nil, nil, err
		}
		if len(artifact) == 0 {
			return nil, nil, FatalErr(errors.New("renderer produced empty artifact"))
		}
		return nil, artifact, nil

	default:
		return nil, nil, FatalErr(fmt.Errorf("no adapter for state %s", job.State))
	}
}

func (e *Executor) backoff(attempt int) time.Duration {
	d := e.retry.BaseBackoff << (attempt - 1)
	if d > e.retry.MaxBackoff || d <= 0 {
		d = e.retry.MaxBackoff
	}
	return d
}

// handleTransitionErr resolves a failed store transition. A stale-state miss
// means another writer touched the job, which should be impossible under the
// scheduler's single-runner guarantee; the job is failed with an internal
// error and the executor gives up.
func (e *Executor) handleTransitionErr(ctx context.Context, id uuid.UUID, err error) error {
	if !errors.Is(err, store.ErrStaleState) {
		return err
	}
	e.logger.ErrorContext(ctx, "stale state on transition, duplicate runner suspected", "job_id", id)

	job, getErr := e.store.Get(ctx, id)
	if getErr != nil || job.State.Terminal() {
		return nil
	}
	jobErr := entity.JobError{
		Stage:   job.State,
		Code:    entity.ErrCodeInternal,
		Message: "internal scheduling error",
	}
	if setErr := store.SetError(ctx, e.store, id, job.State, nil, jobErr); setErr != nil {
		e.logger.ErrorContext(ctx, "failed to mark job as internally failed", "job_id", id, "error", setErr)
	} else {
		e.metrics.JobFailed(string(job.State))
	}
	return nil
}

// decodeStage unmarshals a committed stage output. Failure here is a data
// corruption, never retryable.
func decodeStage(job *entity.Job, stage entity.JobState, v any) error {
	raw := job.StageOutput(stage)
	if raw == nil {
		return FatalErr(fmt.Errorf("missing output for stage %s", stage))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return FatalErr(fmt.Errorf("decode output of stage %s: %w", stage, err))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
