package viewer

import "github.com/wudi/docview/backend"

// TOCEntry is a flattened outline entry with its nesting depth, ready
// for a list widget.
type TOCEntry struct {
	Title string
	Page  int
	Depth int
}

// TOC flattens the document outline tree depth-first.
func (s *Session) TOC() []TOCEntry {
	return FlattenOutline(s.Outline())
}

// FlattenOutline walks an outline tree and returns entries in reading
// order with depths attached.
func FlattenOutline(items []backend.OutlineItem) []TOCEntry {
	var entries []TOCEntry
	var walk func(items []backend.OutlineItem, depth int)
	walk = func(items []backend.OutlineItem, depth int) {
		for _, item := range items {
			entries = append(entries, TOCEntry{
				Title: item.Title,
				Page:  item.Page,
				Depth: depth,
			})
			if len(item.Children) > 0 {
				walk(item.Children, depth+1)
			}
		}
	}
	walk(items, 0)
	return entries
}
