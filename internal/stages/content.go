package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deckgen/internal/entity"
	"deckgen/internal/llm"
	"deckgen/internal/pipeline"
)

// slidePlan mirrors entity.Presentation for schema reflection, with
// per-field guidance for the model.
type slidePlan struct {
	Title    string      `json:"title" jsonschema_description:"Main presentation title"`
	Subtitle string      `json:"subtitle" jsonschema_description:"Supporting tagline or description"`
	Slides   []planSlide `json:"slides"`
}

type planSlide struct {
	Layout       string   `json:"layout" jsonschema:"enum=title_slide,enum=bullet_points,enum=two_column,enum=section_divider,enum=quote,enum=stats,enum=thank_you"`
	Title        string   `json:"title" jsonschema_description:"Impactful statement, not a topic label"`
	Subtitle     string   `json:"subtitle" jsonschema_description:"Supporting subtitle, mainly for title and divider slides"`
	Bullets      []string `json:"bullets" jsonschema_description:"Up to 5 bullets, each under 12 words"`
	BodyText     string   `json:"body_text" jsonschema_description:"Free-form body, for thank_you and text-heavy slides"`
	LeftContent  string   `json:"left_content" jsonschema_description:"Left column for two_column, **Header** then bullet lines"`
	RightContent string   `json:"right_content" jsonschema_description:"Right column for two_column, **Header** then bullet lines"`
	Quote        string   `json:"quote" jsonschema_description:"Quote text for quote layout"`
	QuoteAuthor  string   `json:"quote_author" jsonschema_description:"Attribution for quote layout"`
	Stats        []struct {
		Value       string `json:"value" jsonschema_description:"The number itself, e.g. 73% or $2.5M"`
		Label       string `json:"label" jsonschema_description:"Short label, e.g. Revenue Growth"`
		Description string `json:"description" jsonschema_description:"Optional one-line context"`
	} `json:"stats" jsonschema_description:"3-4 metrics for stats layout"`
	SpeakerNotes string `json:"speaker_notes" jsonschema_description:"2-3 sentences of talking points"`
}

// LLMContentGenerator produces the slide plan for a deck, steered by the
// brand profile from the analysis stage.
type LLMContentGenerator struct {
	client llm.Client
	logger *slog.Logger
}

func NewLLMContentGenerator(client llm.Client, logger *slog.Logger) *LLMContentGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMContentGenerator{client: client, logger: logger}
}

func (g *LLMContentGenerator) Generate(ctx context.Context, req pipeline.ContentRequest) (*entity.Presentation, error) {
	if req.Brand == nil {
		return nil, pipeline.FatalErr(fmt.Errorf("content generation requires a brand profile"))
	}

	var plan slidePlan
	err := g.client.Chat(ctx, llm.Request{
		SystemPrompt: contentSystemPrompt(req.Brand),
		UserPrompt:   contentUserPrompt(req),
		SchemaName:   "slide_plan",
		Schema:       llm.GenerateSchema[slidePlan](),
		MaxTokens:    4000,
		Temperature:  llm.Temp(0.7),
	}, &plan)
	if err != nil {
		if llm.Retryable(err) {
			return nil, fmt.Errorf("content generation: %w", err)
		}
		return nil, pipeline.FatalErr(fmt.Errorf("content generation: %w", err))
	}

	pres := plan.toPresentation(req.SlideCount)
	if len(pres.Slides) == 0 {
		return nil, fmt.Errorf("model returned no slides")
	}

	g.logger.InfoContext(ctx, "slide plan generated",
		"topic", req.Topic,
		"requested", req.SlideCount,
		"slides", len(pres.Slides))
	return pres, nil
}

func contentSystemPrompt(brand *entity.BrandProfile) string {
	voice := brand.Voice

	formality := "balanced professional yet approachable"
	if voice.Formality > 0.7 {
		formality = "formal, professional, authoritative"
	} else if voice.Formality < 0.3 {
		formality = "casual, friendly, conversational"
	}

	technical := "Balance technical accuracy with accessibility."
	if voice.Technicality > 0.7 {
		technical = "Use technical terminology appropriate for industry experts."
	} else if voice.Technicality < 0.3 {
		technical = "Use simple, accessible language that anyone can understand."
	}

	energy := "Be confident and engaging without being over-the-top."
	if voice.Enthusiasm > 0.7 {
		energy = "Be enthusiastic, dynamic, and inspiring."
	} else if voice.Enthusiasm < 0.3 {
		energy = "Be measured, thoughtful, and understated."
	}

	company := brand.CompanyName
	if company == "" {
		company = "a company"
	}
	keyPhrases := orNone(strings.Join(voice.KeyPhrases, ", "))
	terminology := orNone(strings.Join(voice.Terminology, ", "))
	language := brand.Language
	if language == "" {
		language = "en"
	}

	return fmt.Sprintf(`You are an expert presentation designer creating slides for %s.

## BRAND VOICE
- Tone: %s
- %s
- %s
- Key phrases to incorporate naturally: %s
- Industry terminology: %s
- Additional voice notes: %s

## LANGUAGE
Write ALL content in %s. This is critical.

## SLIDE DESIGN PRINCIPLES
1. Each slide must have ONE clear, memorable message.
2. Titles should be impactful statements, not topic labels (GOOD: "Solutions That Scale With You", BAD: "Our Services").
3. Bullet points: maximum 5 per slide, each under 12 words.
4. Use concrete numbers and specifics, not vague claims.
5. title_slide only for the opening slide, thank_you only for the closing slide.
6. Use section_divider slides to introduce major sections, sparingly.
7. Use the stats layout for metrics and numeric achievements, 3-4 stats per slide.
8. Never use the same layout twice in a row.
9. End with a strong call-to-action on the thank_you slide.`,
		company, formality, technical, energy, keyPhrases, terminology, voice.Tone, strings.ToUpper(language))
}

func contentUserPrompt(req pipeline.ContentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %d-slide presentation.\n\nTOPIC: %s\n", req.SlideCount, req.Topic)

	company := req.Brand.CompanyName
	if company == "" {
		company = "The company"
	}
	fmt.Fprintf(&b, "COMPANY: %s\n", company)
	if req.Brand.Tagline != "" {
		fmt.Fprintf(&b, "TAGLINE: %s\n", req.Brand.Tagline)
	}
	if req.AdditionalContext != "" {
		fmt.Fprintf(&b, "\nADDITIONAL CONTEXT: %s\n", req.AdditionalContext)
	}

	fmt.Fprintf(&b, `
REQUIREMENTS:
1. Slide 1: title_slide with a compelling headline.
2. Slides 2-%d: mix of bullet_points, two_column, stats, quote, and section_divider layouts.
3. Include at least ONE stats slide with impactful metrics.
4. Slide %d: thank_you with a call to action.
5. Include speaker_notes for every slide.
6. Exactly %d slides in total.
`, req.SlideCount-1, req.SlideCount, req.SlideCount)
	return b.String()
}

// toPresentation converts the model's plan, repairing structural slips the
// model sometimes makes: unknown layouts fall back to bullet_points, the
// first slide is forced to title_slide and the last to thank_you, and the
// deck is truncated to the requested count.
func (p slidePlan) toPresentation(slideCount int) *entity.Presentation {
	pres := &entity.Presentation{Title: p.Title, Subtitle: p.Subtitle}
	if pres.Title == "" {
		pres.Title = "Presentation"
	}

	slides := p.Slides
	if slideCount > 0 && len(slides) > slideCount {
		slides = slides[:slideCount]
	}
	for _, s := range slides {
		slide := entity.SlideContent{
			Layout:       normalizeLayout(s.Layout),
			Title:        s.Title,
			Subtitle:     s.Subtitle,
			Bullets:      s.Bullets,
			BodyText:     s.BodyText,
			LeftContent:  s.LeftContent,
			RightContent: s.RightContent,
			Quote:        s.Quote,
			QuoteAuthor:  s.QuoteAuthor,
			SpeakerNotes: s.SpeakerNotes,
		}
		for _, st := range s.Stats {
			slide.Stats = append(slide.Stats, entity.Stat{
				Value:       st.Value,
				Label:       st.Label,
				Description: st.Description,
			})
		}
		pres.Slides = append(pres.Slides, slide)
	}

	if len(pres.Slides) > 0 {
		pres.Slides[0].Layout = entity.LayoutTitle
		if last := len(pres.Slides) - 1; last > 0 {
			pres.Slides[last].Layout = entity.LayoutThankYou
		}
	}
	return pres
}

func normalizeLayout(s string) entity.SlideLayout {
	switch layout := entity.SlideLayout(s); layout {
	case entity.LayoutTitle, entity.LayoutBullets, entity.LayoutTwoColumn,
		entity.LayoutSectionDivider, entity.LayoutQuote, entity.LayoutStats,
		entity.LayoutThankYou:
		return layout
	default:
		return entity.LayoutBullets
	}
}

func orNone(s string) string {
	if s == "" {
		return "none specified"
	}
	return s
}
