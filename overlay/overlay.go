// Package overlay projects backend-reported page data (structured text,
// link regions, search hits) into absolutely positioned boxes in display
// pixels. The backend's native unit is points at 72 per inch; a zoom
// value is display pixels per inch, so every coordinate scales by
// zoom/72.
package overlay

import (
	"unicode/utf8"

	"github.com/wudi/docview/backend"
)

// PointsPerInch is the backend's native resolution.
const PointsPerInch = 72.0

// Scale converts a zoom level to the point→pixel factor.
func Scale(zoom float64) float64 { return zoom / PointsPerInch }

// TextBox is one positioned text run of the text layer.
type TextBox struct {
	X, Y, W, H float64
	Baseline   float64
	Text       string
	FontFamily string
	FontSizePx float64
	FontWeight string
	FontStyle  string
	// LetterSpacing is the per-gap correction, in pixels, that makes
	// the run's rendered width match the backend-reported box width.
	LetterSpacing float64
}

// LinkBox is one positioned clickable region of the link layer.
type LinkBox struct {
	X, Y, W, H float64
	URI        string
}

// HitBox is one positioned search hit of the search layer.
type HitBox struct {
	X, Y, W, H float64
}

// TextLayer lays out the structured text of a page at the given zoom.
//
// The second pass of the layout is the letter-spacing correction: each
// run is measured at its natural size and the gap between the measured
// width and the backend-reported width is spread across the run's
// inter-character gaps. Runs shorter than two characters have no gaps
// and are left untouched. A nil measurer skips the correction.
func TextLayer(content backend.TextContent, zoom float64, m Measurer) []TextBox {
	s := Scale(zoom)
	var boxes []TextBox
	for _, block := range content.Blocks {
		for _, line := range block.Lines {
			box := TextBox{
				X:          line.BBox.X * s,
				Y:          line.BBox.Y * s,
				W:          line.BBox.W * s,
				H:          line.BBox.H * s,
				Baseline:   line.Baseline * s,
				Text:       line.Text,
				FontFamily: line.Font.Family,
				FontSizePx: line.Font.Size * s,
				FontWeight: line.Font.Weight,
				FontStyle:  line.Font.Style,
			}
			if m != nil {
				if n := utf8.RuneCountInString(line.Text); n >= 2 {
					natural := m.Width(line.Text, line.Font, box.FontSizePx)
					if natural > 0 {
						box.LetterSpacing = (box.W - natural) / float64(n-1)
					}
				}
			}
			boxes = append(boxes, box)
		}
	}
	return boxes
}

// LinkLayer positions a page's link regions at the given zoom.
func LinkLayer(links []backend.Link, zoom float64) []LinkBox {
	s := Scale(zoom)
	boxes := make([]LinkBox, 0, len(links))
	for _, l := range links {
		boxes = append(boxes, LinkBox{
			X:   l.Rect.X * s,
			Y:   l.Rect.Y * s,
			W:   l.Rect.W * s,
			H:   l.Rect.H * s,
			URI: l.URI,
		})
	}
	return boxes
}

// SearchLayer positions a page's search hits at the given zoom.
func SearchLayer(hits []backend.Rect, zoom float64) []HitBox {
	s := Scale(zoom)
	boxes := make([]HitBox, 0, len(hits))
	for _, r := range hits {
		boxes = append(boxes, HitBox{X: r.X * s, Y: r.Y * s, W: r.W * s, H: r.H * s})
	}
	return boxes
}
