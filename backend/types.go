package backend

// Handle is an opaque document identifier assigned by the service at
// open time and required by every per-document operation.
type Handle string

// Size is a page extent in points (72 per inch).
type Size struct {
	Width  float64
	Height float64
}

// Rect is an axis-aligned box in points, origin at the page's top-left.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Font describes the face a text line was laid out with.
type Font struct {
	Family string
	Size   float64
	Weight string
	Style  string
}

// TextLine is one extracted line: its box, face, content, and the
// y-coordinate of its baseline in points.
type TextLine struct {
	BBox     Rect
	Font     Font
	Text     string
	Baseline float64
}

// TextBlock groups lines that belong to one layout block.
type TextBlock struct {
	Lines []TextLine
}

// TextContent is the structured text of a page: blocks of lines.
type TextContent struct {
	Blocks []TextBlock
}

// Link is a clickable region on a page.
type Link struct {
	URI  string
	Rect Rect
}

// Bitmap is a rendered page: tightly packed RGBA pixels. The pixel
// buffer is shared, not copied, as it crosses the channel.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// OutlineItem is one node of the document outline tree.
type OutlineItem struct {
	Title    string
	Page     int // target page, 0-based; -1 when the entry has no target
	Children []OutlineItem
}
