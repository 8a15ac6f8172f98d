package stages

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"deckgen/internal/entity"
)

// Slide geometry in EMU, 16:9.
const (
	slideWidth  = 12192000
	slideHeight = 6858000
	marginX     = 838200 // ~0.9in
)

// PPTXRenderer writes a presentation as an Office Open XML package: one
// theme part carrying the brand palette and fonts, one slide part per
// planned slide. It is a pure function of its inputs and never touches the
// network or disk.
type PPTXRenderer struct{}

func NewPPTXRenderer() *PPTXRenderer { return &PPTXRenderer{} }

func (r *PPTXRenderer) Render(ctx context.Context, pres *entity.Presentation, brand *entity.BrandProfile) ([]byte, error) {
	if pres == nil || len(pres.Slides) == 0 {
		return nil, fmt.Errorf("presentation has no slides")
	}
	if brand == nil {
		return nil, fmt.Errorf("renderer requires a brand profile")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML(len(pres.Slides))},
		{"_rels/.rels", rootRelsXML},
		{"docProps/core.xml", corePropsXML(pres.Title)},
		{"docProps/app.xml", appPropsXML(len(pres.Slides))},
		{"ppt/presentation.xml", presentationXML(len(pres.Slides))},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(len(pres.Slides))},
		{"ppt/theme/theme1.xml", themeXML(brand)},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
	}
	for i, slide := range pres.Slides {
		n := i + 1
		parts = append(parts,
			struct{ name, body string }{fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(slide, brand)},
			struct{ name, body string }{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), slideRelsXML},
		)
	}

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return buf.Bytes(), nil
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

func contentTypesXML(slideCount int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := 1; i <= slideCount; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return b.String()
}

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>` +
	`</Relationships>`

func corePropsXML(title string) string {
	now := time.Now().UTC().Format(time.RFC3339)
	return xmlHeader +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + esc(title) + `</dc:title>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + now + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + now + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

func appPropsXML(slideCount int) string {
	return xmlHeader +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		fmt.Sprintf(`<Slides>%d</Slides>`, slideCount) +
		`<Application>deckgen</Application>` +
		`</Properties>`
}

func presentationXML(slideCount int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := 0; i < slideCount; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, 2+i)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="%d" cy="%d"/>`, slideWidth, slideHeight, slideHeight, slideWidth)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func presentationRelsXML(slideCount int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 0; i < slideCount; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, 2+i, i+1)
	}
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>`, 2+slideCount)
	b.WriteString(`</Relationships>`)
	return b.String()
}

// themeXML maps the brand palette onto the OOXML color scheme: text and
// background to dk1/lt1, primary/secondary/accent to the accent slots.
func themeXML(brand *entity.BrandProfile) string {
	colors := brand.Colors
	heading := brand.Fonts.Heading
	body := brand.Fonts.Body
	if heading == "" {
		heading = "Arial"
	}
	if body == "" {
		body = heading
	}

	fill := func(hex string) string {
		return `<a:solidFill><a:srgbClr val="` + hex + `"/></a:solidFill>`
	}
	primary := hexArg(colors.Primary, "1A365D")

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Brand">`)
	b.WriteString(`<a:themeElements>`)
	b.WriteString(`<a:clrScheme name="Brand">`)
	fmt.Fprintf(&b, `<a:dk1><a:srgbClr val="%s"/></a:dk1>`, hexArg(colors.Text, "1A202C"))
	fmt.Fprintf(&b, `<a:lt1><a:srgbClr val="%s"/></a:lt1>`, hexArg(colors.Background, "FFFFFF"))
	fmt.Fprintf(&b, `<a:dk2><a:srgbClr val="%s"/></a:dk2>`, hexArg(colors.Secondary, "2D3748"))
	b.WriteString(`<a:lt2><a:srgbClr val="F7FAFC"/></a:lt2>`)
	fmt.Fprintf(&b, `<a:accent1><a:srgbClr val="%s"/></a:accent1>`, primary)
	fmt.Fprintf(&b, `<a:accent2><a:srgbClr val="%s"/></a:accent2>`, hexArg(colors.Secondary, "2D3748"))
	fmt.Fprintf(&b, `<a:accent3><a:srgbClr val="%s"/></a:accent3>`, hexArg(colors.Accent, "3182CE"))
	b.WriteString(`<a:accent4><a:srgbClr val="718096"/></a:accent4>`)
	b.WriteString(`<a:accent5><a:srgbClr val="A0AEC0"/></a:accent5>`)
	b.WriteString(`<a:accent6><a:srgbClr val="CBD5E0"/></a:accent6>`)
	fmt.Fprintf(&b, `<a:hlink><a:srgbClr val="%s"/></a:hlink>`, hexArg(colors.Accent, "3182CE"))
	b.WriteString(`<a:folHlink><a:srgbClr val="718096"/></a:folHlink>`)
	b.WriteString(`</a:clrScheme>`)
	b.WriteString(`<a:fontScheme name="Brand">`)
	fmt.Fprintf(&b, `<a:majorFont><a:latin typeface="%s"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>`, esc(heading))
	fmt.Fprintf(&b, `<a:minorFont><a:latin typeface="%s"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>`, esc(body))
	b.WriteString(`</a:fontScheme>`)
	b.WriteString(`<a:fmtScheme name="Brand">`)
	b.WriteString(`<a:fillStyleLst>` + fill(primary) + fill(primary) + fill(primary) + `</a:fillStyleLst>`)
	b.WriteString(`<a:lnStyleLst>`)
	for i := 0; i < 3; i++ {
		b.WriteString(`<a:ln w="9525" cap="flat"><a:solidFill><a:srgbClr val="` + primary + `"/></a:solidFill></a:ln>`)
	}
	b.WriteString(`</a:lnStyleLst>`)
	b.WriteString(`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>`)
	b.WriteString(`<a:bgFillStyleLst>` + fill(primary) + fill(primary) + fill(primary) + `</a:bgFillStyleLst>`)
	b.WriteString(`</a:fmtScheme>`)
	b.WriteString(`</a:themeElements>`)
	b.WriteString(`</a:theme>`)
	return b.String()
}

const emptySpTree = `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const slideMasterXML = xmlHeader +
	`<p:sldMaster xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
	`<p:cSld>` + emptySpTree + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideMasterRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader +
	`<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
	`<p:cSld>` + emptySpTree + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>`

const slideLayoutRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

const slideRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`</Relationships>`

// textStyle controls one paragraph run.
type textStyle struct {
	size   int // hundredths of a point
	bold   bool
	italic bool
	color  string // RRGGBB
	align  string // ctr, l, r
	bullet bool
}

func slideXML(slide entity.SlideContent, brand *entity.BrandProfile) string {
	colors := brand.Colors
	primary := hexArg(colors.Primary, "1A365D")
	text := hexArg(colors.Text, "1A202C")
	accent := hexArg(colors.Accent, "3182CE")
	secondary := hexArg(colors.Secondary, "2D3748")

	contentWidth := int64(slideWidth - 2*marginX)
	var shapes strings.Builder
	shapeID := 2

	addShape := func(x, y, w, h int64, paras string) {
		shapes.WriteString(textShape(shapeID, x, y, w, h, paras))
		shapeID++
	}

	switch slide.Layout {
	case entity.LayoutTitle, entity.LayoutSectionDivider:
		titleSize := 4400
		if slide.Layout == entity.LayoutSectionDivider {
			titleSize = 3600
		}
		addShape(marginX, 2200000, contentWidth, 1400000,
			para(slide.Title, textStyle{size: titleSize, bold: true, color: primary, align: "ctr"}))
		if slide.Subtitle != "" {
			addShape(marginX, 3700000, contentWidth, 900000,
				para(slide.Subtitle, textStyle{size: 2000, color: secondary, align: "ctr"}))
		}

	case entity.LayoutTwoColumn:
		addShape(marginX, 500000, contentWidth, 900000,
			para(slide.Title, textStyle{size: 3200, bold: true, color: primary}))
		colWidth := (contentWidth - 400000) / 2
		addShape(marginX, 1600000, colWidth, 4400000, columnParas(slide.LeftContent, text, secondary))
		addShape(marginX+colWidth+400000, 1600000, colWidth, 4400000, columnParas(slide.RightContent, text, secondary))

	case entity.LayoutQuote:
		quote := slide.Quote
		if quote == "" {
			quote = slide.BodyText
		}
		addShape(marginX, 2000000, contentWidth, 1800000,
			para("“"+quote+"”", textStyle{size: 2800, italic: true, color: primary, align: "ctr"}))
		if slide.QuoteAuthor != "" {
			addShape(marginX, 4000000, contentWidth, 700000,
				para("— "+slide.QuoteAuthor, textStyle{size: 1800, color: secondary, align: "ctr"}))
		}

	case entity.LayoutStats:
		addShape(marginX, 500000, contentWidth, 900000,
			para(slide.Title, textStyle{size: 3200, bold: true, color: primary}))
		stats := slide.Stats
		if len(stats) == 0 {
			stats = statsFromBullets(slide.Bullets)
		}
		if n := len(stats); n > 0 {
			cellWidth := contentWidth / int64(n)
			for i, stat := range stats {
				x := marginX + int64(i)*cellWidth
				body := para(stat.Value, textStyle{size: 4000, bold: true, color: accent, align: "ctr"}) +
					para(stat.Label, textStyle{size: 1600, color: text, align: "ctr"})
				if stat.Description != "" {
					body += para(stat.Description, textStyle{size: 1200, color: secondary, align: "ctr"})
				}
				addShape(x, 2300000, cellWidth-200000, 2600000, body)
			}
		}

	case entity.LayoutThankYou:
		title := slide.Title
		if title == "" {
			title = "Thank You"
		}
		addShape(marginX, 2400000, contentWidth, 1200000,
			para(title, textStyle{size: 4400, bold: true, color: primary, align: "ctr"}))
		if slide.BodyText != "" {
			addShape(marginX, 3800000, contentWidth, 900000,
				para(slide.BodyText, textStyle{size: 1800, color: text, align: "ctr"}))
		}

	default: // bullet_points
		addShape(marginX, 500000, contentWidth, 900000,
			para(slide.Title, textStyle{size: 3200, bold: true, color: primary}))
		var body strings.Builder
		for _, bullet := range slide.Bullets {
			body.WriteString(para(bullet, textStyle{size: 1800, color: text, bullet: true}))
		}
		if slide.BodyText != "" {
			body.WriteString(para(slide.BodyText, textStyle{size: 1800, color: text}))
		}
		addShape(marginX, 1600000, contentWidth, 4400000, body.String())
	}

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`)
	b.WriteString(`<p:cSld>`)
	fmt.Fprintf(&b, `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`, hexArg(colors.Background, "FFFFFF"))
	b.WriteString(emptySpTree)
	b.WriteString(shapes.String())
	b.WriteString(`</p:spTree></p:cSld>`)
	b.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	b.WriteString(`</p:sld>`)
	return b.String()
}

func textShape(id int, x, y, w, h int64, paras string) string {
	if paras == "" {
		paras = `<a:p/>`
	}
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`<p:txBody><a:bodyPr wrap="square" anchor="t"><a:normAutofit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, id, x, y, w, h, paras)
}

func para(text string, style textStyle) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<a:p><a:pPr`)
	if style.align != "" {
		fmt.Fprintf(&b, ` algn="%s"`, style.align)
	}
	b.WriteString(`>`)
	if style.bullet {
		b.WriteString(`<a:buChar char="•"/>`)
	} else {
		b.WriteString(`<a:buNone/>`)
	}
	b.WriteString(`</a:pPr>`)
	b.WriteString(`<a:r><a:rPr lang="en-US"`)
	if style.size > 0 {
		fmt.Fprintf(&b, ` sz="%d"`, style.size)
	}
	if style.bold {
		b.WriteString(` b="1"`)
	}
	if style.italic {
		b.WriteString(` i="1"`)
	}
	b.WriteString(` dirty="0">`)
	if style.color != "" {
		fmt.Fprintf(&b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, style.color)
	}
	b.WriteString(`</a:rPr><a:t>`)
	b.WriteString(esc(text))
	b.WriteString(`</a:t></a:r></a:p>`)
	return b.String()
}

// columnParas renders two_column content: a "**Header**" first line in
// bold, remaining lines as bullets.
func columnParas(content, textColor, headerColor string) string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") && len(line) > 4 {
			b.WriteString(para(strings.Trim(line, "*"), textStyle{size: 2000, bold: true, color: headerColor}))
			continue
		}
		line = strings.TrimPrefix(line, "•")
		line = strings.TrimPrefix(line, "-")
		b.WriteString(para(strings.TrimSpace(line), textStyle{size: 1600, color: textColor, bullet: true}))
	}
	return b.String()
}

// statsFromBullets recovers "VALUE - Label" bullets when the model put
// metrics in the bullets array instead of the stats field.
func statsFromBullets(bullets []string) []entity.Stat {
	var stats []entity.Stat
	for _, bullet := range bullets {
		value, label, found := strings.Cut(bullet, " - ")
		if !found {
			value, label, found = strings.Cut(bullet, ": ")
		}
		if !found {
			continue
		}
		stats = append(stats, entity.Stat{Value: strings.TrimSpace(value), Label: strings.TrimSpace(label)})
	}
	return stats
}

// hexArg converts "#rrggbb" to the uppercase "RRGGBB" form OOXML expects.
func hexArg(hex, fallback string) string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return fallback
	}
	return strings.ToUpper(hex)
}

func esc(s string) string {
	var b bytes.Buffer
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}
