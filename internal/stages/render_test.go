package stages

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckgen/internal/entity"
)

func testBrand() *entity.BrandProfile {
	return &entity.BrandProfile{
		CompanyName: "Acme",
		Language:    "en",
		Colors: entity.BrandColors{
			Primary:    "#1a365d",
			Secondary:  "#2d3748",
			Accent:     "#3182ce",
			Background: "#ffffff",
			Text:       "#1a202c",
		},
		Fonts: entity.BrandFonts{Heading: "Georgia", Body: "Calibri"},
	}
}

func testPresentation() *entity.Presentation {
	return &entity.Presentation{
		Title:    "Acme Overview",
		Subtitle: "Logistics that scales",
		Slides: []entity.SlideContent{
			{Layout: entity.LayoutTitle, Title: "Acme Overview", Subtitle: "Logistics that scales"},
			{Layout: entity.LayoutBullets, Title: "What We Do", Bullets: []string{"Same-day freight", "Live tracking", "Flat pricing"}},
			{Layout: entity.LayoutTwoColumn, Title: "Before & After",
				LeftContent:  "**Before**\n• Manual dispatch\n• Paper trails",
				RightContent: "**After**\n• Automated routing\n• Digital manifests"},
			{Layout: entity.LayoutStats, Title: "By the Numbers", Stats: []entity.Stat{
				{Value: "73%", Label: "Faster delivery"},
				{Value: "$2.5M", Label: "Saved annually"},
			}},
			{Layout: entity.LayoutQuote, Quote: "They changed how we ship", QuoteAuthor: "A Customer"},
			{Layout: entity.LayoutThankYou, Title: "Thank You", BodyText: "hello@acme.example"},
		},
	}
}

func readPart(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("part %s not found in package", name)
	return ""
}

func TestRenderProducesValidPackage(t *testing.T) {
	r := NewPPTXRenderer()
	data, err := r.Render(context.Background(), testPresentation(), testBrand())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/theme/theme1.xml",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide6.xml",
		"ppt/slides/_rels/slide1.xml.rels",
	} {
		assert.True(t, names[want], "missing part %s", want)
	}
	assert.False(t, names["ppt/slides/slide7.xml"], "no extra slides")

	contentTypes := readPart(t, zr, "[Content_Types].xml")
	assert.Equal(t, 6, strings.Count(contentTypes, "presentationml.slide+xml"))
}

func TestRenderAppliesBrandTheme(t *testing.T) {
	r := NewPPTXRenderer()
	data, err := r.Render(context.Background(), testPresentation(), testBrand())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	theme := readPart(t, zr, "ppt/theme/theme1.xml")
	assert.Contains(t, theme, `val="1A365D"`, "primary color in theme")
	assert.Contains(t, theme, `val="3182CE"`, "accent color in theme")
	assert.Contains(t, theme, `typeface="Georgia"`, "heading font")
	assert.Contains(t, theme, `typeface="Calibri"`, "body font")
}

func TestRenderSlideContent(t *testing.T) {
	r := NewPPTXRenderer()
	data, err := r.Render(context.Background(), testPresentation(), testBrand())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	title := readPart(t, zr, "ppt/slides/slide1.xml")
	assert.Contains(t, title, "Acme Overview")
	assert.Contains(t, title, "Logistics that scales")

	bullets := readPart(t, zr, "ppt/slides/slide2.xml")
	assert.Contains(t, bullets, "Same-day freight")
	assert.Contains(t, bullets, "buChar")

	columns := readPart(t, zr, "ppt/slides/slide3.xml")
	assert.Contains(t, columns, "Before")
	assert.Contains(t, columns, "Automated routing")
	assert.NotContains(t, columns, "**", "markdown markers must not leak into slides")

	stats := readPart(t, zr, "ppt/slides/slide4.xml")
	assert.Contains(t, stats, "73%")
	assert.Contains(t, stats, "Faster delivery")

	quote := readPart(t, zr, "ppt/slides/slide5.xml")
	assert.Contains(t, quote, "They changed how we ship")
	assert.Contains(t, quote, "A Customer")
}

func TestRenderEscapesMarkup(t *testing.T) {
	pres := &entity.Presentation{
		Title: "Q&A <Session>",
		Slides: []entity.SlideContent{
			{Layout: entity.LayoutTitle, Title: "Q&A <Session>"},
		},
	}
	r := NewPPTXRenderer()
	data, err := r.Render(context.Background(), pres, testBrand())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	slide := readPart(t, zr, "ppt/slides/slide1.xml")
	assert.Contains(t, slide, "Q&amp;A &lt;Session&gt;")
}

func TestRenderStatsFallbackFromBullets(t *testing.T) {
	pres := &entity.Presentation{
		Title: "Metrics",
		Slides: []entity.SlideContent{
			{Layout: entity.LayoutStats, Title: "Metrics", Bullets: []string{"98% - Satisfaction", "10x - Throughput"}},
		},
	}
	r := NewPPTXRenderer()
	data, err := r.Render(context.Background(), pres, testBrand())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	slide := readPart(t, zr, "ppt/slides/slide1.xml")
	assert.Contains(t, slide, "98%")
	assert.Contains(t, slide, "Satisfaction")
}

func TestRenderRejectsEmptyInput(t *testing.T) {
	r := NewPPTXRenderer()

	_, err := r.Render(context.Background(), &entity.Presentation{Title: "x"}, testBrand())
	assert.Error(t, err)

	_, err = r.Render(context.Background(), nil, testBrand())
	assert.Error(t, err)

	_, err = r.Render(context.Background(), testPresentation(), nil)
	assert.Error(t, err)
}

func TestHexArg(t *testing.T) {
	assert.Equal(t, "1A365D", hexArg("#1a365d", "FFFFFF"))
	assert.Equal(t, "FFFFFF", hexArg("", "FFFFFF"))
	assert.Equal(t, "FFFFFF", hexArg("#abc", "FFFFFF"))
}
