package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"deckgen/internal/entity"
	"deckgen/internal/llm"
)

// Web fonts mapped to PowerPoint-safe equivalents.
var fontMapping = map[string]string{
	"Open Sans":        "Calibri",
	"Roboto":           "Calibri",
	"Lato":             "Calibri",
	"Montserrat":       "Arial",
	"Source Sans Pro":  "Calibri",
	"Raleway":          "Century Gothic",
	"Poppins":          "Arial",
	"Nunito":           "Calibri",
	"Inter":            "Calibri",
	"Work Sans":        "Calibri",
	"DM Sans":          "Arial",
	"Playfair Display": "Georgia",
	"Merriweather":     "Georgia",
	"Lora":             "Palatino Linotype",
	"PT Serif":         "Times New Roman",
	"Source Serif Pro": "Georgia",
	"sans-serif":       "Arial",
	"serif":            "Times New Roman",
	"monospace":        "Courier New",
}

// brandAnalysis is the structured response requested from the model.
type brandAnalysis struct {
	CompanyName string `json:"company_name" jsonschema_description:"The company or organization name, just the brand"`
	Tagline     string `json:"tagline" jsonschema_description:"Main tagline or value proposition, empty if not found"`
	Language    string `json:"language" jsonschema_description:"ISO 639-1 code of the site's primary language"`
	Colors      struct {
		Primary    string `json:"primary" jsonschema_description:"Main brand color as #hexcode"`
		Secondary  string `json:"secondary" jsonschema_description:"Complementary color as #hexcode"`
		Accent     string `json:"accent" jsonschema_description:"Call-to-action or highlight color as #hexcode"`
		Background string `json:"background" jsonschema_description:"Background color as #hexcode"`
		Text       string `json:"text" jsonschema_description:"Main body text color as #hexcode"`
	} `json:"colors"`
	Voice struct {
		Formality    float64  `json:"formality" jsonschema_description:"0 very casual to 1 very formal"`
		Technicality float64  `json:"technicality" jsonschema_description:"0 simple language to 1 technical jargon"`
		Enthusiasm   float64  `json:"enthusiasm" jsonschema_description:"0 reserved to 1 energetic"`
		KeyPhrases   []string `json:"key_phrases" jsonschema_description:"3-5 distinctive phrases the brand uses"`
		Terminology  []string `json:"terminology" jsonschema_description:"3-5 industry or company-specific terms"`
		Tone         string   `json:"tone" jsonschema_description:"2-3 sentence description of the brand's tone"`
	} `json:"voice"`
}

const brandSystemPrompt = `You are a brand analyst. Given raw material scraped from a company website (color codes, text samples, domain), identify the brand's identity: name, tagline, language, color palette, and writing voice. Prefer colors actually present in the supplied list. Base every judgement only on the provided material.`

// LLMBrandAnalyzer turns scraped assets into a brand profile. Color and
// font normalization is deterministic; the model supplies the judgement
// calls (palette roles, voice, name). When the model is unavailable or the
// site yielded nothing to analyze, it degrades to a neutral default
// profile rather than failing the job.
type LLMBrandAnalyzer struct {
	client llm.Client
	logger *slog.Logger
}

func NewLLMBrandAnalyzer(client llm.Client, logger *slog.Logger) *LLMBrandAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMBrandAnalyzer{client: client, logger: logger}
}

func (a *LLMBrandAnalyzer) Analyze(ctx context.Context, assets *entity.BrandAssets) (*entity.BrandProfile, error) {
	profile := a.defaultProfile(assets)
	profile.Fonts = mapFonts(assets.Fonts)

	if len(assets.TextSamples) == 0 && len(assets.Colors) == 0 {
		a.logger.WarnContext(ctx, "no brand material scraped, using defaults", "url", assets.CompanyURL)
		return profile, nil
	}

	var analysis brandAnalysis
	err := a.client.Chat(ctx, llm.Request{
		SystemPrompt: brandSystemPrompt,
		UserPrompt:   brandPrompt(assets),
		SchemaName:   "brand_analysis",
		Schema:       llm.GenerateSchema[brandAnalysis](),
		MaxTokens:    1500,
		Temperature:  llm.Temp(0.2),
	}, &analysis)
	if err != nil {
		if llm.Retryable(err) {
			return nil, fmt.Errorf("brand analysis: %w", err)
		}
		// Permanent model failure still leaves a usable deck.
		a.logger.WarnContext(ctx, "brand analysis degraded to defaults", "error", err)
		return profile, nil
	}

	if analysis.CompanyName != "" {
		profile.CompanyName = analysis.CompanyName
	}
	profile.Tagline = analysis.Tagline
	if analysis.Language != "" {
		profile.Language = analysis.Language
	}
	profile.Colors = normalizeColors(analysis, assets.Colors)
	profile.Voice = entity.BrandVoice{
		Formality:    clamp01(analysis.Voice.Formality),
		Technicality: clamp01(analysis.Voice.Technicality),
		Enthusiasm:   clamp01(analysis.Voice.Enthusiasm),
		KeyPhrases:   capList(analysis.Voice.KeyPhrases, 5),
		Terminology:  capList(analysis.Voice.Terminology, 5),
		Tone:         analysis.Voice.Tone,
	}
	return profile, nil
}

func (a *LLMBrandAnalyzer) defaultProfile(assets *entity.BrandAssets) *entity.BrandProfile {
	samples := assets.TextSamples
	if len(samples) > 10 {
		samples = samples[:10]
	}
	return &entity.BrandProfile{
		CompanyName: companyNameFromURL(assets.CompanyURL),
		Language:    "en",
		Colors:      entity.DefaultBrandColors(),
		Fonts:       entity.DefaultBrandFonts(),
		Voice:       entity.BrandVoice{Formality: 0.5, Technicality: 0.5, Enthusiasm: 0.5},
		TextSamples: samples,
	}
}

func brandPrompt(assets *entity.BrandAssets) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company website: %s\n\n", assets.CompanyURL)

	colors := topColors(assets.Colors, 20)
	if len(colors) > 0 {
		data, _ := json.Marshal(colors)
		fmt.Fprintf(&b, "Colors found on the site (most prominent first):\n%s\n\n", data)
	}
	if len(assets.TextSamples) > 0 {
		b.WriteString("Text samples from the site:\n\"\"\"\n")
		total := 0
		for _, sample := range assets.TextSamples {
			if total+len(sample) > 4000 {
				break
			}
			b.WriteString(sample)
			b.WriteString("\n\n")
			total += len(sample)
		}
		b.WriteString("\"\"\"\n")
	}
	return b.String()
}

// topColors drops pure white and black, which every site has, and caps the
// list for the prompt.
func topColors(colors []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, c := range colors {
		if c == "#ffffff" || c == "#000000" {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// normalizeColors accepts the model's palette only where it returned valid
// hex codes, falling back per-field to the defaults.
func normalizeColors(analysis brandAnalysis, scraped []string) entity.BrandColors {
	defaults := entity.DefaultBrandColors()
	pick := func(v, fallback string) string {
		v = strings.ToLower(strings.TrimSpace(v))
		if validHex(v) {
			return v
		}
		return fallback
	}
	if len(scraped) == 0 {
		return defaults
	}
	return entity.BrandColors{
		Primary:    pick(analysis.Colors.Primary, defaults.Primary),
		Secondary:  pick(analysis.Colors.Secondary, defaults.Secondary),
		Accent:     pick(analysis.Colors.Accent, defaults.Accent),
		Background: pick(analysis.Colors.Background, defaults.Background),
		Text:       pick(analysis.Colors.Text, defaults.Text),
	}
}

func validHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// mapFonts picks heading and body fonts from the scraped stacks, mapped to
// PowerPoint-safe equivalents.
func mapFonts(fonts []string) entity.BrandFonts {
	var heading, body string
	for _, font := range fonts {
		name := strings.TrimSpace(font)
		mapped, known := fontMapping[name]
		if !known {
			mapped = name
		}
		if heading == "" {
			heading = mapped
		} else if body == "" && mapped != heading {
			body = mapped
		}
	}
	if heading == "" {
		return entity.DefaultBrandFonts()
	}
	if body == "" {
		body = heading
	}
	return entity.BrandFonts{Heading: heading, Body: body}
}

func companyNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return ""
	}
	return strings.ToUpper(host[:1]) + host[1:]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func capList(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
