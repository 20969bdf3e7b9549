package stub

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/wudi/docview/backend"
)

// Synthetic document geometry: US Letter pages, one text block per page,
// fixed-pitch line layout. Everything in points.
const (
	pageWidth    = 612.0
	pageHeight   = 792.0
	pageMargin   = 72.0
	lineHeight   = 14.0
	fontSize     = 12.0
	linesPerPage = 40
)

// SyntheticDecode fabricates a document from a plain UTF-8 text buffer:
// forty lines per page, proportional character boxes, links for http(s)
// tokens, and a one-entry-per-page outline. It exists so the
// orchestration layer has realistic structured data to chew on without a
// real engine behind it.
func SyntheticDecode(data []byte, formatHint string) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("empty buffer")
	}
	if !utf8.Valid(data) {
		return nil, errors.New("buffer is not valid text")
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	doc := &Document{}
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		doc.Pages = append(doc.Pages, buildPage(lines[start:end]))
	}
	for i := range doc.Pages {
		title := firstNonEmpty(lines[i*linesPerPage:])
		if title == "" {
			continue
		}
		doc.Outline = append(doc.Outline, backend.OutlineItem{Title: truncate(title, 60), Page: i})
	}
	doc.Title = truncate(firstNonEmpty(lines), 60)
	return doc, nil
}

func buildPage(lines []string) Page {
	page := Page{Size: backend.Size{Width: pageWidth, Height: pageHeight}}
	block := backend.TextBlock{}
	y := pageMargin
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			runs := utf8.RuneCountInString(line)
			width := float64(runs) * charWidth()
			if width > pageWidth-2*pageMargin {
				width = pageWidth - 2*pageMargin
			}
			bbox := backend.Rect{X: pageMargin, Y: y, W: width, H: lineHeight}
			block.Lines = append(block.Lines, backend.TextLine{
				BBox:     bbox,
				Font:     backend.Font{Family: "Helvetica", Size: fontSize, Weight: "normal", Style: "normal"},
				Text:     line,
				Baseline: y + fontSize*0.9,
			})
			if link, ok := lineLink(line, bbox); ok {
				page.Links = append(page.Links, link)
			}
		}
		y += lineHeight
	}
	page.Text = backend.TextContent{Blocks: []backend.TextBlock{block}}
	return page
}

func charWidth() float64 { return fontSize * 0.55 }

// lineLink turns the first http(s) token of a line into a link region
// covering just that token.
func lineLink(line string, bbox backend.Rect) (backend.Link, bool) {
	idx := strings.Index(line, "http://")
	if idx < 0 {
		idx = strings.Index(line, "https://")
	}
	if idx < 0 {
		return backend.Link{}, false
	}
	rest := line[idx:]
	end := strings.IndexAny(rest, " \t")
	if end < 0 {
		end = len(rest)
	}
	uri := rest[:end]
	prefix := utf8.RuneCountInString(line[:idx])
	return backend.Link{
		URI: uri,
		Rect: backend.Rect{
			X: bbox.X + float64(prefix)*charWidth(),
			Y: bbox.Y,
			W: float64(utf8.RuneCountInString(uri)) * charWidth(),
			H: bbox.H,
		},
	}, true
}

// renderBitmap fabricates an RGBA buffer of the scaled page size with a
// flat page-dependent tint, enough for paint paths and size assertions.
func renderBitmap(pageIndex int, size backend.Size, scale float64) *backend.Bitmap {
	w := int(size.Width * scale)
	h := int(size.Height * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	pix := make([]byte, w*h*4)
	tint := byte(200 + pageIndex*7%40)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = tint
		pix[i+1] = tint
		pix[i+2] = 255
		pix[i+3] = 255
	}
	return &backend.Bitmap{Width: w, Height: h, Pix: pix}
}

// searchPage scans the page's lines for case-insensitive occurrences of
// needle and returns a proportional hit box per occurrence.
func searchPage(page *Page, needle string) []backend.Rect {
	if needle == "" {
		return nil
	}
	lower := strings.ToLower(needle)
	var hits []backend.Rect
	for _, block := range page.Text.Blocks {
		for _, line := range block.Lines {
			text := strings.ToLower(line.Text)
			from := 0
			for {
				i := strings.Index(text[from:], lower)
				if i < 0 {
					break
				}
				at := from + i
				prefix := utf8.RuneCountInString(line.Text[:at])
				length := utf8.RuneCountInString(needle)
				hits = append(hits, backend.Rect{
					X: line.BBox.X + float64(prefix)*charWidth(),
					Y: line.BBox.Y,
					W: float64(length) * charWidth(),
					H: line.BBox.H,
				})
				from = at + len(lower)
			}
		}
	}
	return hits
}

func firstNonEmpty(lines []string) string {
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
