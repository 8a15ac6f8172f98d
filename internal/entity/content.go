package entity

type SlideLayout string

const (
	LayoutTitle          SlideLayout = "title_slide"
	LayoutBullets        SlideLayout = "bullet_points"
	LayoutTwoColumn      SlideLayout = "two_column"
	LayoutSectionDivider SlideLayout = "section_divider"
	LayoutQuote          SlideLayout = "quote"
	LayoutStats          SlideLayout = "stats"
	LayoutThankYou       SlideLayout = "thank_you"
)

// Stat is a single metric on a stats slide, e.g. value "73%" with label
// "Revenue Growth".
type Stat struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type SlideContent struct {
	Layout       SlideLayout `json:"layout"`
	Title        string      `json:"title,omitempty"`
	Subtitle     string      `json:"subtitle,omitempty"`
	Bullets      []string    `json:"bullets,omitempty"`
	BodyText     string      `json:"body_text,omitempty"`
	LeftContent  string      `json:"left_content,omitempty"`
	RightContent string      `json:"right_content,omitempty"`
	Quote        string      `json:"quote,omitempty"`
	QuoteAuthor  string      `json:"quote_author,omitempty"`
	Stats        []Stat      `json:"stats,omitempty"`
	SpeakerNotes string      `json:"speaker_notes,omitempty"`
}

// Presentation is the full slide plan produced by content generation and
// consumed by the renderer.
type Presentation struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Slides   []SlideContent `json:"slides"`
}
