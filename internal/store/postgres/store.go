package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deckgen/internal/entity"
	"deckgen/internal/store"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               uuid PRIMARY KEY,
	input            jsonb NOT NULL,
	state            text NOT NULL,
	stage_results    jsonb NOT NULL DEFAULT '[]'::jsonb,
	artifact         bytea,
	error            jsonb,
	cancel_requested boolean NOT NULL DEFAULT false,
	created_at       timestamptz NOT NULL DEFAULT now(),
	updated_at       timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS jobs_state_idx ON jobs (state);
`

// EnsureSchema creates the jobs table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// JobStore is the durable job store. State changes go through a single
// compare-and-swap UPDATE, which is what makes concurrent executors safe.
type JobStore struct {
	pool *pgxpool.Pool
}

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

var _ store.Store = (*JobStore)(nil)

func (s *JobStore) Create(ctx context.Context, input entity.GenerationInput) (uuid.UUID, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal input: %w", err)
	}

	const q = `
INSERT INTO jobs (id, input, state)
VALUES ($1, $2, $3)
RETURNING id;
`
	id := uuid.New()
	if err := s.pool.QueryRow(ctx, q, id, raw, string(entity.StateQueued)).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `
SELECT id, input, state, stage_results, artifact, error, cancel_requested, created_at, updated_at
FROM jobs
WHERE id = $1;
`

	var (
		job          entity.Job
		stateText    string
		inputBytes   []byte
		resultsBytes []byte
		errorBytes   []byte
		createdAt    time.Time
		updatedAt    time.Time
	)

	if err := s.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&inputBytes,
		&stateText,
		&resultsBytes,
		&job.Artifact, // NULL => nil
		&errorBytes,   // NULL => nil
		&job.CancelRequested,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	job.State = entity.JobState(stateText)
	if err := json.Unmarshal(inputBytes, &job.Input); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if len(resultsBytes) > 0 {
		if err := json.Unmarshal(resultsBytes, &job.StageResults); err != nil {
			return nil, fmt.Errorf("decode stage results: %w", err)
		}
	}
	if errorBytes != nil {
		var je entity.JobError
		if err := json.Unmarshal(errorBytes, &je); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		job.Error = &je
	}
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt

	return &job, nil
}

func (s *JobStore) Transition(ctx context.Context, id uuid.UUID, expected, next entity.JobState, patch store.Patch) error {
	var resultJSON []byte
	if patch.AppendResult != nil {
		b, err := json.Marshal([]entity.StageResult{*patch.AppendResult})
		if err != nil {
			return fmt.Errorf("marshal stage result: %w", err)
		}
		resultJSON = b
	}
	var errorJSON []byte
	if patch.Error != nil {
		b, err := json.Marshal(patch.Error)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		errorJSON = b
	}

	// The WHERE clause on state is the compare-and-swap: a concurrent
	// writer that already moved the job leaves RowsAffected at zero.
	const q = `
UPDATE jobs
SET state = $3,
    stage_results = COALESCE(stage_results, '[]'::jsonb) || COALESCE($4::jsonb, '[]'::jsonb),
    artifact = COALESCE($5, artifact),
    error = COALESCE($6::jsonb, error),
    updated_at = now()
WHERE id = $1 AND state = $2;
`
	tag, err := s.pool.Exec(ctx, q, id, string(expected), string(next), resultJSON, patch.Artifact, errorJSON)
	if err != nil {
		return fmt.Errorf("transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMiss(ctx, id)
	}
	return nil
}

func (s *JobStore) RequestCancel(ctx context.Context, id uuid.UUID) error {
	const q = `
UPDATE jobs
SET cancel_requested = true, updated_at = now()
WHERE id = $1 AND state NOT IN ($2, $3);
`
	tag, err := s.pool.Exec(ctx, q, id, string(entity.StateCompleted), string(entity.StateFailed))
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown, or already terminal (cancel is then a no-op).
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// classifyMiss distinguishes a missing row from a lost CAS race.
func (s *JobStore) classifyMiss(ctx context.Context, id uuid.UUID) error {
	const q = `SELECT 1 FROM jobs WHERE id = $1;`
	var one int
	if err := s.pool.QueryRow(ctx, q, id).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return store.ErrStaleState
}
