package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckgen/internal/entity"
	"deckgen/internal/pipeline"
	"deckgen/internal/queue"
	"deckgen/internal/store"
	"deckgen/internal/store/memory"
)

// trackingScraper records how many scrapes run at once.
type trackingScraper struct {
	running int32
	peak    int32
	total   int32
	delay   time.Duration
}

func (s *trackingScraper) Scrape(ctx context.Context, companyURL string) (*entity.BrandAssets, error) {
	now := atomic.AddInt32(&s.running, 1)
	defer atomic.AddInt32(&s.running, -1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if now <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, now) {
			break
		}
	}
	atomic.AddInt32(&s.total, 1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
	}
	return &entity.BrandAssets{CompanyURL: companyURL, PagesVisited: 1}, nil
}

type staticAnalyzer struct{}

func (staticAnalyzer) Analyze(context.Context, *entity.BrandAssets) (*entity.BrandProfile, error) {
	return &entity.BrandProfile{CompanyName: "Example", Colors: entity.DefaultBrandColors(), Fonts: entity.DefaultBrandFonts()}, nil
}

type staticGenerator struct{}

func (staticGenerator) Generate(_ context.Context, req pipeline.ContentRequest) (*entity.Presentation, error) {
	return &entity.Presentation{Title: req.Topic, Slides: []entity.SlideContent{{Layout: entity.LayoutTitle, Title: req.Topic}}}, nil
}

type staticRenderer struct{}

func (staticRenderer) Render(context.Context, *entity.Presentation, *entity.BrandProfile) ([]byte, error) {
	return []byte("PK-deck"), nil
}

func TestPoolHonorsAdmissionLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := memory.NewJobStore()
	q := queue.NewMemoryQueue(100)
	scraper := &trackingScraper{delay: 30 * time.Millisecond}

	executor := pipeline.NewExecutor(st, pipeline.Adapters{
		Scraper:   scraper,
		Analyzer:  staticAnalyzer{},
		Generator: staticGenerator{},
		Renderer:  staticRenderer{},
	}, pipeline.DefaultRetryConfig(), nil, nil)

	const limit = 2
	pool := NewPool(q, executor, limit, 20*time.Millisecond, nil, nil)

	const jobs = 6
	ids := make([]uuid.UUID, 0, jobs)
	for i := 0; i < jobs; i++ {
		id, err := st.Create(ctx, entity.GenerationInput{
			CompanyURL: "https://example.com",
			Topic:      "Overview",
			SlideCount: 5,
		})
		require.NoError(t, err)
		require.NoError(t, q.Enqueue(ctx, id.String()))
		ids = append(ids, id)
	}

	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		for _, id := range ids {
			job, err := st.Get(ctx, id)
			if err != nil || !job.State.Terminal() {
				return false
			}
		}
		return true
	}, 10*time.Second, 10*time.Millisecond, "all jobs should reach a terminal state")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}

	assert.EqualValues(t, jobs, scraper.total)
	assert.LessOrEqual(t, scraper.peak, int32(limit), "admission limit exceeded")

	for _, id := range ids {
		job, err := st.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, entity.StateCompleted, job.State)
	}

	// Every claimed id was acked, so nothing is left to recover.
	moved, err := q.RequeueStale(context.Background(), 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, moved)
}

// flakyStore fails the first Get to mimic a transient store outage.
type flakyStore struct {
	store.Store
	failed bool
}

func (s *flakyStore) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	if !s.failed {
		s.failed = true
		return nil, errors.New("connection refused")
	}
	return s.Store.Get(ctx, id)
}

func TestPoolKeepsClaimOnExecutorError(t *testing.T) {
	ctx := context.Background()
	st := memory.NewJobStore()
	q := queue.NewMemoryQueue(100)

	executor := pipeline.NewExecutor(&flakyStore{Store: st}, pipeline.Adapters{
		Scraper:   &trackingScraper{},
		Analyzer:  staticAnalyzer{},
		Generator: staticGenerator{},
		Renderer:  staticRenderer{},
	}, pipeline.DefaultRetryConfig(), nil, nil)
	pool := NewPool(q, executor, 1, time.Second, nil, nil)

	id, err := st.Create(ctx, entity.GenerationInput{
		CompanyURL: "https://example.com",
		Topic:      "Overview",
		SlideCount: 5,
	})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, id.String()))

	jobID, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	pool.runOne(ctx, 1, jobID)

	// The run failed before reaching a terminal state, so the claim must
	// stay in the processing set for startup recovery.
	job, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, job.State.Terminal())

	require.NoError(t, pool.Recover(ctx))
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth, "errored claim should be re-admitted")

	jobID, err = q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)
	pool.runOne(ctx, 1, jobID)

	job, err = st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, job.State)

	moved, err := q.RequeueStale(ctx, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, moved, "completed run acks its claim")
}

func TestPoolRecoverRequeuesUnacked(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(100)

	require.NoError(t, q.Enqueue(ctx, uuid.NewString()))
	_, err := q.ClaimBlocking(ctx, time.Second)
	require.NoError(t, err)

	pool := NewPool(q, nil, 1, time.Second, nil, nil)
	require.NoError(t, pool.Recover(ctx))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, depth, "unacked claim should be claimable again")
}
