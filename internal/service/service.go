// Package service holds the job use-cases behind the HTTP handlers:
// admission-checked submission, status reads, artifact retrieval, and
// cancellation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"deckgen/internal/entity"
	"deckgen/internal/metrics"
	"deckgen/internal/queue"
	"deckgen/internal/store"
)

const (
	MinSlideCount     = 3
	MaxSlideCount     = 30
	DefaultSlideCount = 10
)

var (
	// ErrValidation wraps all submission payload problems.
	ErrValidation = errors.New("invalid request")

	// ErrNotReady means the artifact was requested before the job reached
	// the completed state.
	ErrNotReady = errors.New("job not completed")
)

type JobService struct {
	store      store.Store
	queue      queue.Queue
	queueBound int64
	metrics    metrics.Sink
	logger     *slog.Logger
}

func NewJobService(st store.Store, q queue.Queue, queueBound int, sink metrics.Sink, logger *slog.Logger) *JobService {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		store:      st,
		queue:      q,
		queueBound: int64(queueBound),
		metrics:    sink,
		logger:     logger,
	}
}

// Submit validates the payload, checks admission capacity, and only then
// creates the job. A rejected submission therefore leaves no job behind.
func (s *JobService) Submit(ctx context.Context, input entity.GenerationInput) (uuid.UUID, error) {
	normalized, err := validateInput(input)
	if err != nil {
		s.metrics.JobRejected(metrics.RejectValidation)
		return uuid.Nil, err
	}

	// The queue also enforces its bound on Enqueue; checking first keeps
	// overload rejections from creating orphaned job rows.
	depth, err := s.queue.Depth(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check queue depth: %w", err)
	}
	if depth >= s.queueBound {
		s.metrics.JobRejected(metrics.RejectOverloaded)
		return uuid.Nil, queue.ErrOverloaded
	}

	id, err := s.store.Create(ctx, normalized)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, id.String()); err != nil {
		if errors.Is(err, queue.ErrOverloaded) {
			s.metrics.JobRejected(metrics.RejectOverloaded)
		}
		// The row exists but will never be claimed; fail it so polling
		// clients are not left with a forever-queued job.
		jobErr := entity.JobError{Code: entity.ErrCodeInternal, Message: "admission failed"}
		if ferr := store.SetError(ctx, s.store, id, entity.StateQueued, nil, jobErr); ferr != nil {
			s.logger.ErrorContext(ctx, "failed to mark unadmitted job", "job_id", id, "error", ferr)
		}
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.metrics.JobSubmitted()
	s.logger.InfoContext(ctx, "job submitted",
		"job_id", id,
		"url", normalized.CompanyURL,
		"topic", normalized.Topic,
		"slides", normalized.SlideCount)
	return id, nil
}

// Status returns the current job snapshot.
func (s *JobService) Status(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.store.Get(ctx, id)
}

// Artifact returns the rendered deck of a completed job. ErrNotReady until
// the job reaches completed; a failed job never becomes ready.
func (s *JobService) Artifact(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State != entity.StateCompleted {
		return nil, fmt.Errorf("%w: state is %s", ErrNotReady, job.State)
	}
	return job, nil
}

// Cancel flags a job for cooperative cancellation. Terminal jobs are left
// untouched.
func (s *JobService) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.store.RequestCancel(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "cancellation requested", "job_id", id)
	return nil
}

func validateInput(input entity.GenerationInput) (entity.GenerationInput, error) {
	input.CompanyURL = strings.TrimSpace(input.CompanyURL)
	input.Topic = strings.TrimSpace(input.Topic)

	if input.CompanyURL == "" {
		return input, fmt.Errorf("%w: company_url is required", ErrValidation)
	}
	u, err := url.Parse(input.CompanyURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return input, fmt.Errorf("%w: company_url must be a valid http(s) URL", ErrValidation)
	}
	if input.Topic == "" {
		return input, fmt.Errorf("%w: topic is required", ErrValidation)
	}
	if input.SlideCount == 0 {
		input.SlideCount = DefaultSlideCount
	}
	if input.SlideCount < MinSlideCount || input.SlideCount > MaxSlideCount {
		return input, fmt.Errorf("%w: slide_count must be between %d and %d", ErrValidation, MinSlideCount, MaxSlideCount)
	}
	return input, nil
}
