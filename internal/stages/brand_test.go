package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckgen/internal/entity"
	"deckgen/internal/llm"
)

// fakeLLM satisfies llm.Client with a canned JSON response.
type fakeLLM struct {
	response string
	err      error
	calls    int
	lastReq  llm.Request
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request, result any) error {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), result)
}

func (f *fakeLLM) Model() string { return "fake" }

func sampleAssets() *entity.BrandAssets {
	return &entity.BrandAssets{
		CompanyURL:  "https://www.acme.example",
		Colors:      []string{"#ffffff", "#112233", "#ff6600"},
		Fonts:       []string{"Inter", "Playfair Display"},
		TextSamples: []string{"We ship freight faster than anyone else in the business."},
	}
}

const analysisJSON = `{
	"company_name": "Acme Freight",
	"tagline": "Faster than anyone",
	"language": "en",
	"colors": {
		"primary": "#112233",
		"secondary": "#445566",
		"accent": "#FF6600",
		"background": "#ffffff",
		"text": "#101010"
	},
	"voice": {
		"formality": 0.6,
		"technicality": 0.3,
		"enthusiasm": 1.4,
		"key_phrases": ["ship faster", "on time"],
		"terminology": ["freight", "LTL"],
		"tone": "Confident and direct."
	}
}`

func TestAnalyzeUsesModelJudgement(t *testing.T) {
	client := &fakeLLM{response: analysisJSON}
	analyzer := NewLLMBrandAnalyzer(client, nil)

	profile, err := analyzer.Analyze(context.Background(), sampleAssets())
	require.NoError(t, err)
	require.Equal(t, 1, client.calls)

	assert.Equal(t, "Acme Freight", profile.CompanyName)
	assert.Equal(t, "Faster than anyone", profile.Tagline)
	assert.Equal(t, "en", profile.Language)
	assert.Equal(t, "#112233", profile.Colors.Primary)
	assert.Equal(t, "#ff6600", profile.Colors.Accent, "hex codes normalized to lowercase")
	assert.Equal(t, 0.6, profile.Voice.Formality)
	assert.Equal(t, 1.0, profile.Voice.Enthusiasm, "scalars clamped to 0..1")
	assert.Equal(t, []string{"ship faster", "on time"}, profile.Voice.KeyPhrases)

	// Fonts are mapped deterministically, not by the model.
	assert.Equal(t, entity.BrandFonts{Heading: "Calibri", Body: "Georgia"}, profile.Fonts)

	// White and black are filtered out of the prompt palette.
	assert.NotContains(t, client.lastReq.UserPrompt, `"#ffffff"`)
	assert.Contains(t, client.lastReq.UserPrompt, "#112233")
}

func TestAnalyzeInvalidModelColorsFallBack(t *testing.T) {
	client := &fakeLLM{response: `{"company_name":"Acme","language":"en","colors":{"primary":"blue","secondary":"","accent":"#FF6600","background":"","text":""},"voice":{}}`}
	analyzer := NewLLMBrandAnalyzer(client, nil)

	profile, err := analyzer.Analyze(context.Background(), sampleAssets())
	require.NoError(t, err)

	defaults := entity.DefaultBrandColors()
	assert.Equal(t, defaults.Primary, profile.Colors.Primary, "non-hex value rejected per field")
	assert.Equal(t, "#ff6600", profile.Colors.Accent, "valid values kept")
}

func TestAnalyzeNoMaterialSkipsModel(t *testing.T) {
	client := &fakeLLM{response: analysisJSON}
	analyzer := NewLLMBrandAnalyzer(client, nil)

	profile, err := analyzer.Analyze(context.Background(), &entity.BrandAssets{CompanyURL: "https://www.acme.example"})
	require.NoError(t, err)
	assert.Equal(t, 0, client.calls)

	assert.Equal(t, "Acme", profile.CompanyName, "name derived from domain")
	assert.Equal(t, entity.DefaultBrandColors(), profile.Colors)
	assert.Equal(t, entity.DefaultBrandFonts(), profile.Fonts)
}

func TestAnalyzePermanentModelFailureDegrades(t *testing.T) {
	// Context errors are never retryable, so the analyzer degrades to the
	// default profile instead of failing the stage.
	client := &fakeLLM{err: fmt.Errorf("chat: %w", context.Canceled)}
	analyzer := NewLLMBrandAnalyzer(client, nil)

	profile, err := analyzer.Analyze(context.Background(), sampleAssets())
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultBrandColors(), profile.Colors)
	assert.Equal(t, "Acme", profile.CompanyName)
}

func TestAnalyzeTransientModelFailurePropagates(t *testing.T) {
	client := &fakeLLM{err: fmt.Errorf("connection refused")}
	analyzer := NewLLMBrandAnalyzer(client, nil)

	_, err := analyzer.Analyze(context.Background(), sampleAssets())
	require.Error(t, err, "retryable failures bubble up so the stage retry policy applies")
}

func TestMapFonts(t *testing.T) {
	assert.Equal(t, entity.BrandFonts{Heading: "Calibri", Body: "Georgia"},
		mapFonts([]string{"Inter", "Playfair Display"}))

	assert.Equal(t, entity.BrandFonts{Heading: "Futura", Body: "Futura"},
		mapFonts([]string{"Futura"}), "unknown fonts pass through")

	assert.Equal(t, entity.DefaultBrandFonts(), mapFonts(nil))

	assert.Equal(t, entity.BrandFonts{Heading: "Arial", Body: "Times New Roman"},
		mapFonts([]string{"sans-serif", "serif"}))
}

func TestCompanyNameFromURL(t *testing.T) {
	assert.Equal(t, "Acme", companyNameFromURL("https://www.acme.example"))
	assert.Equal(t, "Acme", companyNameFromURL("https://acme.io/about"))
	assert.Equal(t, "", companyNameFromURL("not a url"))
}
