package overlay

import (
	"bytes"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/docview/backend"
)

// Measurer reports the rendered width, in display pixels, of a text run
// drawn at the given pixel size. The gap between this width and the
// backend's box width drives the letter-spacing correction.
type Measurer interface {
	Width(text string, f backend.Font, sizePx float64) float64
}

// ShapedMeasurer measures through go-text/typesetting shaping with a
// bundled fallback face, so the correction reflects real glyph advances
// rather than a fixed pitch.
type ShapedMeasurer struct {
	face   *gofont.Face
	shaper shaping.HarfbuzzShaper
}

// NewShapedMeasurer parses the bundled face.
func NewShapedMeasurer() (*ShapedMeasurer, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, err
	}
	return &ShapedMeasurer{face: face}, nil
}

func (m *ShapedMeasurer) Width(text string, _ backend.Font, sizePx float64) float64 {
	runes := []rune(text)
	if len(runes) == 0 || sizePx <= 0 {
		return 0
	}
	script := detectScript(runes)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      m.face,
		Size:      fixed.Int26_6(sizePx * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	}
	output := m.shaper.Shape(input)
	var width fixed.Int26_6
	for _, g := range output.Glyphs {
		width += g.XAdvance
	}
	return float64(width) / 64.0
}

// BasicMeasurer approximates widths with the fixed 7x13 bitmap face,
// scaled to the requested size. It exists so layout still degrades
// gracefully when the bundled face cannot be parsed.
type BasicMeasurer struct{}

func (BasicMeasurer) Width(text string, _ backend.Font, sizePx float64) float64 {
	adv := xfont.MeasureString(basicfont.Face7x13, text)
	return float64(adv) / 64.0 * sizePx / 13.0
}

// DefaultMeasurer returns the shaped measurer, or the basic one if the
// bundled face is unusable.
func DefaultMeasurer() Measurer {
	m, err := NewShapedMeasurer()
	if err != nil {
		return BasicMeasurer{}
	}
	return m
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// detectScript picks the dominant script of the run, defaulting to
// Latin.
func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			best = script
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	case unicode.Is(unicode.Thai, r):
		return language.Thai
	case unicode.Is(unicode.Devanagari, r):
		return language.Devanagari
	}
	return language.Unknown
}
