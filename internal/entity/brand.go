package entity

// BrandAssets is the raw material collected by the scrape stage: colors and
// font families seen in markup, text blocks for voice analysis, and image
// candidates. It is the input to brand analysis.
type BrandAssets struct {
	CompanyURL   string       `json:"company_url"`
	Colors       []string     `json:"colors,omitempty"`
	Fonts        []string     `json:"fonts,omitempty"`
	TextSamples  []string     `json:"text_samples,omitempty"`
	Images       []BrandImage `json:"images,omitempty"`
	PagesVisited int          `json:"pages_visited"`
}

type BrandImage struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
	IsLogo  bool   `json:"is_logo,omitempty"`
}

// BrandColors is the normalized palette applied to every slide.
type BrandColors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// DefaultBrandColors is the fallback palette when scraping yields nothing
// usable.
func DefaultBrandColors() BrandColors {
	return BrandColors{
		Primary:    "#1a365d",
		Secondary:  "#2d3748",
		Accent:     "#3182ce",
		Background: "#ffffff",
		Text:       "#1a202c",
	}
}

type BrandFonts struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

func DefaultBrandFonts() BrandFonts {
	return BrandFonts{Heading: "Arial", Body: "Arial"}
}

// BrandVoice captures writing-style signals used to steer content generation.
// The scalar fields range 0..1.
type BrandVoice struct {
	Formality    float64  `json:"formality"`
	Technicality float64  `json:"technicality"`
	Enthusiasm   float64  `json:"enthusiasm"`
	KeyPhrases   []string `json:"key_phrases,omitempty"`
	Terminology  []string `json:"terminology,omitempty"`
	Tone         string   `json:"tone,omitempty"`
}

// BrandProfile is the output of brand analysis and the styling input to both
// content generation and rendering.
type BrandProfile struct {
	CompanyName string      `json:"company_name"`
	Tagline     string      `json:"tagline,omitempty"`
	Language    string      `json:"language"`
	Colors      BrandColors `json:"colors"`
	Fonts       BrandFonts  `json:"fonts"`
	Voice       BrandVoice  `json:"voice"`
	TextSamples []string    `json:"text_samples,omitempty"`
}
