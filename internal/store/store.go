// Package store defines the job store contract: the single shared-state
// surface of the system. All mutation after creation goes through Transition,
// an atomic compare-and-swap on the job state.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"deckgen/internal/entity"
)

var (
	ErrNotFound = errors.New("job not found")

	// ErrStaleState means a Transition lost a compare-and-swap race: the
	// stored state no longer matched the caller's expectation. Two writers
	// raced on the same job, which is a scheduler bug.
	ErrStaleState = errors.New("stale job state")
)

// Patch is applied atomically together with a state transition.
type Patch struct {
	AppendResult *entity.StageResult
	Artifact     []byte
	Error        *entity.JobError
}

type Store interface {
	// Create persists a fresh Queued job and returns its identifier.
	Create(ctx context.Context, input entity.GenerationInput) (uuid.UUID, error)

	// Get returns the most recently committed snapshot of the job.
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)

	// Transition applies patch and moves state from expected to next, only
	// if the stored state still equals expected. Returns ErrStaleState
	// otherwise.
	Transition(ctx context.Context, id uuid.UUID, expected, next entity.JobState, patch Patch) error

	// RequestCancel flags a non-terminal job for cancellation. The executor
	// observes the flag at the next stage boundary. No-op on terminal jobs.
	RequestCancel(ctx context.Context, id uuid.UUID) error
}

// SetArtifact commits the final artifact and completes the job. Convenience
// wrapper over Transition targeting the Completed terminal state.
func SetArtifact(ctx context.Context, s Store, id uuid.UUID, expected entity.JobState, result entity.StageResult, artifact []byte) error {
	return s.Transition(ctx, id, expected, entity.StateCompleted, Patch{
		AppendResult: &result,
		Artifact:     artifact,
	})
}

// SetError fails the job from the given state. Convenience wrapper over
// Transition targeting the Failed terminal state.
func SetError(ctx context.Context, s Store, id uuid.UUID, expected entity.JobState, result *entity.StageResult, jobErr entity.JobError) error {
	return s.Transition(ctx, id, expected, entity.StateFailed, Patch{
		AppendResult: result,
		Error:        &jobErr,
	})
}

// NewStageResult stamps a stage history entry with the current time.
func NewStageResult(stage entity.JobState, outcome entity.StageOutcome, attempts int) entity.StageResult {
	return entity.StageResult{
		Stage:    stage,
		Outcome:  outcome,
		Attempts: attempts,
		At:       time.Now().UTC(),
	}
}
