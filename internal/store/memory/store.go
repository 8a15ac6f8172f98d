// Package memory is an in-process job store used in dev mode and tests. It
// honors the same compare-and-swap contract as the Postgres store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"deckgen/internal/entity"
	"deckgen/internal/store"
)

type JobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]*entity.Job)}
}

var _ store.Store = (*JobStore)(nil)

func (s *JobStore) Create(_ context.Context, input entity.GenerationInput) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	id := uuid.New()
	s.jobs[id] = &entity.Job{
		ID:        id,
		Input:     input,
		State:     entity.StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *JobStore) Get(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneJob(j), nil
}

func (s *JobStore) Transition(_ context.Context, id uuid.UUID, expected, next entity.JobState, patch store.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.State != expected {
		return store.ErrStaleState
	}

	j.State = next
	if patch.AppendResult != nil {
		j.StageResults = append(j.StageResults, *patch.AppendResult)
	}
	if patch.Artifact != nil {
		j.Artifact = append([]byte(nil), patch.Artifact...)
	}
	if patch.Error != nil {
		e := *patch.Error
		j.Error = &e
	}
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *JobStore) RequestCancel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	if j.State.Terminal() {
		return nil
	}
	j.CancelRequested = true
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// cloneJob returns a snapshot so readers never observe a torn write.
func cloneJob(j *entity.Job) *entity.Job {
	out := *j
	out.StageResults = append([]entity.StageResult(nil), j.StageResults...)
	out.Artifact = append([]byte(nil), j.Artifact...)
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	if len(out.Artifact) == 0 {
		out.Artifact = nil
	}
	return &out
}
