// Package stages provides the concrete adapters behind the four pipeline
// stages: an HTTP website scraper, LLM-backed brand analysis and content
// generation, and a PPTX renderer.
package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"deckgen/internal/entity"
)

// Pages commonly holding brand-relevant copy, tried after the landing page.
var wellKnownPaths = []string{"/about", "/about-us", "/team", "/products", "/services", "/contact"}

const (
	maxTextSamples = 50
	minSampleLen   = 20
	maxSampleLen   = 1000
	maxImages      = 30
)

type ScraperConfig struct {
	MaxPages  int
	Timeout   time.Duration
	UserAgent string
}

// HTTPScraper fetches a company website over plain HTTP and extracts brand
// assets from the markup: colors and font stacks from style attributes and
// style blocks, text samples from headings and paragraphs, and image
// candidates with logo detection.
type HTTPScraper struct {
	client    *http.Client
	maxPages  int
	userAgent string
	logger    *slog.Logger
}

func NewHTTPScraper(cfg ScraperConfig, logger *slog.Logger) *HTTPScraper {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPScraper{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxPages:  cfg.MaxPages,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, companyURL string) (*entity.BrandAssets, error) {
	base, err := url.Parse(strings.TrimRight(companyURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse company url: %w", err)
	}

	collector := newAssetCollector(base)

	// The landing page is mandatory. Subpage failures only cost coverage.
	if err := s.fetchPage(ctx, base.String(), collector); err != nil {
		return nil, fmt.Errorf("fetch landing page %s: %w", base, err)
	}

	for _, path := range wellKnownPaths {
		if collector.pages >= s.maxPages {
			break
		}
		pageURL := base.String() + path
		if err := s.fetchPage(ctx, pageURL, collector); err != nil {
			s.logger.DebugContext(ctx, "subpage skipped", "url", pageURL, "error", err)
		}
	}

	assets := collector.assets(companyURL)
	s.logger.InfoContext(ctx, "website scraped",
		"url", companyURL,
		"pages", assets.PagesVisited,
		"colors", len(assets.Colors),
		"fonts", len(assets.Fonts),
		"text_samples", len(assets.TextSamples),
		"images", len(assets.Images))
	return assets, nil
}

// httpStatusError marks a non-200 response. 4xx means the page is missing
// or the site blocks us; retrying will not change that.
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// fetchPage retrieves one page with a single retry for transient failures
// and feeds the parsed document to the collector.
func (s *HTTPScraper) fetchPage(ctx context.Context, pageURL string, c *assetCollector) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
		lastErr = s.fetchOnce(ctx, pageURL, c)
		if lastErr == nil {
			return nil
		}
		var statusErr *httpStatusError
		if errors.As(lastErr, &statusErr) && statusErr.code < 500 {
			return lastErr
		}
	}
	return lastErr
}

func (s *HTTPScraper) fetchOnce(ctx context.Context, pageURL string, c *assetCollector) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &httpStatusError{code: resp.StatusCode}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	c.pages++
	c.walk(doc, pageURL)
	return nil
}

var (
	hexColorRe   = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	rgbColorRe   = regexp.MustCompile(`rgba?\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)`)
	fontFamilyRe = regexp.MustCompile(`font-family\s*:\s*([^;}]+)`)
)

// assetCollector accumulates brand signals across pages, deduplicating as
// it goes.
type assetCollector struct {
	base       *url.URL
	pages      int
	colorSeen  map[string]bool
	colors     []string
	fontSeen   map[string]bool
	fonts      []string
	textSeen   map[string]bool
	texts      []string
	imageSeen  map[string]bool
	images     []entity.BrandImage
}

func newAssetCollector(base *url.URL) *assetCollector {
	return &assetCollector{
		base:      base,
		colorSeen: make(map[string]bool),
		fontSeen:  make(map[string]bool),
		textSeen:  make(map[string]bool),
		imageSeen: make(map[string]bool),
	}
}

func (c *assetCollector) assets(companyURL string) *entity.BrandAssets {
	return &entity.BrandAssets{
		CompanyURL:   companyURL,
		Colors:       c.colors,
		Fonts:        c.fonts,
		TextSamples:  c.texts,
		Images:       c.images,
		PagesVisited: c.pages,
	}
}

func (c *assetCollector) walk(n *html.Node, pageURL string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "style":
			c.addStyleText(textOf(n))
		case "img":
			c.addImage(n, pageURL)
		case "h1", "h2", "h3", "p", "li", "blockquote":
			c.addTextSample(textOf(n))
		case "script", "noscript":
			return
		}
		if style := attr(n, "style"); style != "" {
			c.addStyleText(style)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, pageURL)
	}
}

// addStyleText pulls colors and font families out of raw CSS text.
func (c *assetCollector) addStyleText(css string) {
	for _, hex := range hexColorRe.FindAllString(css, -1) {
		c.addColor(normalizeHex(hex))
	}
	for _, m := range rgbColorRe.FindAllStringSubmatch(css, -1) {
		c.addColor(fmt.Sprintf("#%02x%02x%02x", atoiByte(m[1]), atoiByte(m[2]), atoiByte(m[3])))
	}
	for _, m := range fontFamilyRe.FindAllStringSubmatch(css, -1) {
		// First font in the stack is the one the brand chose.
		first := strings.TrimSpace(strings.Split(m[1], ",")[0])
		first = strings.Trim(first, `'" `)
		if first != "" && !strings.HasPrefix(first, "var(") {
			c.addFont(first)
		}
	}
}

func (c *assetCollector) addColor(hex string) {
	if hex == "" || c.colorSeen[hex] {
		return
	}
	c.colorSeen[hex] = true
	c.colors = append(c.colors, hex)
}

func (c *assetCollector) addFont(name string) {
	key := strings.ToLower(name)
	if c.fontSeen[key] {
		return
	}
	c.fontSeen[key] = true
	c.fonts = append(c.fonts, name)
}

func (c *assetCollector) addTextSample(text string) {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) < minSampleLen || len(text) > maxSampleLen {
		return
	}
	if len(c.texts) >= maxTextSamples || c.textSeen[text] {
		return
	}
	c.textSeen[text] = true
	c.texts = append(c.texts, text)
}

func (c *assetCollector) addImage(n *html.Node, pageURL string) {
	src := attr(n, "src")
	if src == "" || strings.HasPrefix(src, "data:") {
		return
	}
	full := resolveURL(pageURL, src)
	if full == "" || c.imageSeen[full] || len(c.images) >= maxImages {
		return
	}
	c.imageSeen[full] = true

	alt := attr(n, "alt")
	isLogo := strings.Contains(strings.ToLower(alt), "logo") ||
		strings.Contains(strings.ToLower(src), "logo") ||
		strings.Contains(strings.ToLower(attr(n, "class")), "logo")

	c.images = append(c.images, entity.BrandImage{URL: full, AltText: alt, IsLogo: isLogo})
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return b.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// normalizeHex lowercases and expands shorthand #abc to #aabbcc.
func normalizeHex(hex string) string {
	hex = strings.ToLower(hex)
	if len(hex) == 4 {
		return "#" + strings.Repeat(string(hex[1]), 2) +
			strings.Repeat(string(hex[2]), 2) +
			strings.Repeat(string(hex[3]), 2)
	}
	return hex
}

func atoiByte(s string) int {
	v := 0
	for _, r := range s {
		v = v*10 + int(r-'0')
	}
	if v > 255 {
		v = 255
	}
	return v
}
