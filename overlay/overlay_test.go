package overlay

import (
	"math"
	"strings"
	"testing"

	"github.com/wudi/docview/backend"
)

// fixedMeasurer reports a constant width per rune.
type fixedMeasurer struct{ perRune float64 }

func (m fixedMeasurer) Width(text string, _ backend.Font, _ float64) float64 {
	return float64(len([]rune(text))) * m.perRune
}

func sampleContent() backend.TextContent {
	return backend.TextContent{Blocks: []backend.TextBlock{{Lines: []backend.TextLine{
		{
			BBox:     backend.Rect{X: 72, Y: 72, W: 144, H: 14},
			Font:     backend.Font{Family: "Helvetica", Size: 12, Weight: "normal", Style: "normal"},
			Text:     "hello",
			Baseline: 82.8,
		},
		{
			BBox: backend.Rect{X: 72, Y: 86, W: 10, H: 14},
			Font: backend.Font{Family: "Helvetica", Size: 12},
			Text: "x",
		},
	}}}}
}

func TestTextLayer_Scaling(t *testing.T) {
	boxes := TextLayer(sampleContent(), 144, nil) // 2x of 72
	if len(boxes) != 2 {
		t.Fatalf("box count: %d", len(boxes))
	}
	b := boxes[0]
	if b.X != 144 || b.Y != 144 || b.W != 288 || b.H != 28 {
		t.Fatalf("scaled box: %+v", b)
	}
	if b.FontSizePx != 24 {
		t.Fatalf("font size px: %f", b.FontSizePx)
	}
	if math.Abs(b.Baseline-165.6) > 1e-9 {
		t.Fatalf("baseline: %f", b.Baseline)
	}
}

func TestTextLayer_LetterSpacing(t *testing.T) {
	// "hello" has 5 runes; target width at zoom 72 is 144px, measured
	// width is 5*20=100px, so 44px spread over 4 gaps.
	boxes := TextLayer(sampleContent(), 72, fixedMeasurer{perRune: 20})
	if got := boxes[0].LetterSpacing; math.Abs(got-11) > 1e-9 {
		t.Fatalf("letter spacing: %f", got)
	}
	// Single-character runs have no gaps and must not be adjusted.
	if got := boxes[1].LetterSpacing; got != 0 {
		t.Fatalf("single-char spacing: %f", got)
	}
}

func TestTextLayer_NilMeasurer(t *testing.T) {
	boxes := TextLayer(sampleContent(), 96, nil)
	for _, b := range boxes {
		if b.LetterSpacing != 0 {
			t.Fatalf("spacing without measurer: %+v", b)
		}
	}
}

func TestLinkAndSearchLayers(t *testing.T) {
	links := LinkLayer([]backend.Link{{
		URI:  "https://example.com",
		Rect: backend.Rect{X: 10, Y: 20, W: 30, H: 40},
	}}, 144)
	if len(links) != 1 || links[0].X != 20 || links[0].H != 80 || links[0].URI != "https://example.com" {
		t.Fatalf("link layer: %+v", links)
	}
	hits := SearchLayer([]backend.Rect{{X: 1, Y: 2, W: 3, H: 4}}, 144)
	if len(hits) != 1 || hits[0].W != 6 {
		t.Fatalf("search layer: %+v", hits)
	}
}

func TestMeasurers(t *testing.T) {
	shaped, err := NewShapedMeasurer()
	if err != nil {
		t.Fatalf("shaped measurer: %v", err)
	}
	f := backend.Font{Family: "Helvetica", Size: 12}
	wide := shaped.Width("wwwww", f, 16)
	narrow := shaped.Width("iiiii", f, 16)
	if wide <= 0 || narrow <= 0 {
		t.Fatalf("non-positive widths: %f %f", wide, narrow)
	}
	if wide <= narrow {
		t.Fatalf("proportional face should measure w wider than i: %f <= %f", wide, narrow)
	}
	double := shaped.Width("wwwww", f, 32)
	if double <= wide {
		t.Fatalf("width should grow with size: %f <= %f", double, wide)
	}

	basic := BasicMeasurer{}
	if got := basic.Width("abc", f, 13); math.Abs(got-21) > 1e-9 {
		t.Fatalf("basic width: %f", got)
	}
}

func TestSnapshot_WriteHTML(t *testing.T) {
	snap := Snapshot{
		PageNumber: 2,
		WidthPx:    612,
		HeightPx:   792,
		Text:       TextLayer(sampleContent(), 72, nil),
		Links:      LinkLayer([]backend.Link{{URI: "https://example.com", Rect: backend.Rect{X: 1, Y: 2, W: 3, H: 4}}}, 72),
		Hits:       SearchLayer([]backend.Rect{{X: 5, Y: 6, W: 7, H: 8}}, 72),
	}
	var sb strings.Builder
	if err := snap.WriteHTML(&sb); err != nil {
		t.Fatalf("write html: %v", err)
	}
	out := sb.String()
	for _, want := range []string{
		`data-page="2"`,
		"hello",
		`href="https://example.com"`,
		"search-hit",
		"letter-spacing",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("html missing %q:\n%s", want, out)
		}
	}
}
