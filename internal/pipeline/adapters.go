package pipeline

import (
	"context"

	"deckgen/internal/entity"
)

// Stage adapters are the pipeline's external collaborators. Each is a pure
// transform from the prior stage's output to its own; failures marked with
// FatalErr skip the retry budget.

type Scraper interface {
	Scrape(ctx context.Context, companyURL string) (*entity.BrandAssets, error)
}

type BrandAnalyzer interface {
	Analyze(ctx context.Context, assets *entity.BrandAssets) (*entity.BrandProfile, error)
}

// ContentRequest carries everything content generation needs beyond the
// brand profile.
type ContentRequest struct {
	Topic             string
	SlideCount        int
	AdditionalContext string
	Brand             *entity.BrandProfile
}

type ContentGenerator interface {
	Generate(ctx context.Context, req ContentRequest) (*entity.Presentation, error)
}

type Renderer interface {
	Render(ctx context.Context, pres *entity.Presentation, brand *entity.BrandProfile) ([]byte, error)
}

// Adapters bundles the four stage collaborators handed to an Executor.
type Adapters struct {
	Scraper   Scraper
	Analyzer  BrandAnalyzer
	Generator ContentGenerator
	Renderer  Renderer
}
