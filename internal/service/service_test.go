package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckgen/internal/entity"
	"deckgen/internal/queue"
	"deckgen/internal/store"
	"deckgen/internal/store/memory"
)

func newService(bound int) (*JobService, *memory.JobStore, queue.Queue) {
	st := memory.NewJobStore()
	q := queue.NewMemoryQueue(bound)
	return NewJobService(st, q, bound, nil, nil), st, q
}

func validInput() entity.GenerationInput {
	return entity.GenerationInput{
		CompanyURL: "https://example.com",
		Topic:      "Product launch",
	}
}

func TestSubmitCreatesAndEnqueues(t *testing.T) {
	svc, st, q := newService(10)
	ctx := context.Background()

	id, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	job, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StateQueued, job.State)
	assert.Equal(t, DefaultSlideCount, job.Input.SlideCount, "slide_count defaults when omitted")

	claimed, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claimed)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newService(10)
	ctx := context.Background()

	cases := []struct {
		name  string
		input entity.GenerationInput
	}{
		{"missing url", entity.GenerationInput{Topic: "x y z topic"}},
		{"bad scheme", entity.GenerationInput{CompanyURL: "ftp://example.com", Topic: "topic"}},
		{"no host", entity.GenerationInput{CompanyURL: "https://", Topic: "topic"}},
		{"not a url", entity.GenerationInput{CompanyURL: "example com", Topic: "topic"}},
		{"missing topic", entity.GenerationInput{CompanyURL: "https://example.com"}},
		{"blank topic", entity.GenerationInput{CompanyURL: "https://example.com", Topic: "   "}},
		{"slide count too low", entity.GenerationInput{CompanyURL: "https://example.com", Topic: "topic", SlideCount: 2}},
		{"slide count too high", entity.GenerationInput{CompanyURL: "https://example.com", Topic: "topic", SlideCount: 31}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSubmitSlideCountBounds(t *testing.T) {
	svc, st, _ := newService(10)
	ctx := context.Background()

	input := validInput()
	input.SlideCount = MinSlideCount
	id, err := svc.Submit(ctx, input)
	require.NoError(t, err)
	job, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, MinSlideCount, job.Input.SlideCount)

	input.SlideCount = MaxSlideCount
	_, err = svc.Submit(ctx, input)
	assert.NoError(t, err)
}

func TestSubmitOverloadedLeavesNoJob(t *testing.T) {
	svc, _, q := newService(1)
	ctx := context.Background()

	_, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, validInput())
	assert.ErrorIs(t, err, queue.ErrOverloaded)

	// Only the admitted job is claimable.
	_, err = q.ClaimBlocking(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	_, err = q.ClaimBlocking(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestStatusNotFound(t *testing.T) {
	svc, _, _ := newService(10)
	_, err := svc.Status(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestArtifactNotReady(t *testing.T) {
	svc, st, _ := newService(10)
	ctx := context.Background()

	id, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Artifact(ctx, id)
	assert.ErrorIs(t, err, ErrNotReady)

	// A failed job never becomes ready.
	jobErr := entity.JobError{Code: entity.ErrCodeStageFailed, Message: "boom"}
	require.NoError(t, store.SetError(ctx, st, id, entity.StateQueued, nil, jobErr))
	_, err = svc.Artifact(ctx, id)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestArtifactCompleted(t *testing.T) {
	svc, st, _ := newService(10)
	ctx := context.Background()

	id, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, st.Transition(ctx, id, entity.StateQueued, entity.StateRendering, store.Patch{}))
	result := store.NewStageResult(entity.StateRendering, entity.OutcomeSuccess, 1)
	require.NoError(t, store.SetArtifact(ctx, st, id, entity.StateRendering, result, []byte("PK-deck")))

	job, err := svc.Artifact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK-deck"), job.Artifact)
}

func TestCancel(t *testing.T) {
	svc, st, _ := newService(10)
	ctx := context.Background()

	id, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, id))
	job, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, job.CancelRequested)

	assert.ErrorIs(t, svc.Cancel(ctx, uuid.New()), store.ErrNotFound)
}
