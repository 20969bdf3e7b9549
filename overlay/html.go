package overlay

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Snapshot is a renderable view of one page's overlay layers, used for
// debugging and for exporting what the viewer would draw.
type Snapshot struct {
	PageNumber int
	WidthPx    float64
	HeightPx   float64
	Text       []TextBox
	Links      []LinkBox
	Hits       []HitBox
}

// WriteHTML renders the snapshot as a standalone absolutely-positioned
// HTML fragment.
func (s Snapshot) WriteHTML(w io.Writer) error {
	return html.Render(w, s.node())
}

func (s Snapshot) node() *html.Node {
	root := elem("div",
		attr("class", "page"),
		attr("data-page", fmt.Sprintf("%d", s.PageNumber)),
		attr("style", fmt.Sprintf("position:relative;width:%.2fpx;height:%.2fpx", s.WidthPx, s.HeightPx)),
	)
	for _, box := range s.Text {
		style := fmt.Sprintf(
			"position:absolute;left:%.2fpx;top:%.2fpx;width:%.2fpx;height:%.2fpx;font-family:%s;font-size:%.2fpx;font-weight:%s;font-style:%s;letter-spacing:%.3fpx;white-space:pre",
			box.X, box.Y, box.W, box.H,
			box.FontFamily, box.FontSizePx, box.FontWeight, box.FontStyle, box.LetterSpacing,
		)
		span := elem("span", attr("class", "text-run"), attr("style", style))
		span.AppendChild(&html.Node{Type: html.TextNode, Data: box.Text})
		root.AppendChild(span)
	}
	for _, box := range s.Links {
		a := elem("a",
			attr("class", "link-region"),
			attr("href", box.URI),
			attr("style", boxStyle(box.X, box.Y, box.W, box.H)),
		)
		root.AppendChild(a)
	}
	for _, box := range s.Hits {
		root.AppendChild(elem("mark",
			attr("class", "search-hit"),
			attr("style", boxStyle(box.X, box.Y, box.W, box.H)),
		))
	}
	return root
}

func boxStyle(x, y, w, h float64) string {
	return fmt.Sprintf("position:absolute;left:%.2fpx;top:%.2fpx;width:%.2fpx;height:%.2fpx", x, y, w, h)
}

func elem(name string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
		Attr:     attrs,
	}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
