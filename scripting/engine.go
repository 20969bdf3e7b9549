// Package scripting runs automation scripts against the viewer: zoom,
// navigation, and search driven from JavaScript. Scripts see a narrow,
// controlled API rather than the viewer internals.
package scripting

import (
	"context"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute executes a script. Canceling the context interrupts a
	// running script.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterViewer exposes the viewer surface to scripts.
	RegisterViewer(api ViewerAPI) error
}

// ViewerAPI is what scripts may do to the viewer. Implementations adapt
// a live document session.
type ViewerAPI interface {
	// Title returns the document title.
	Title() string

	// PageCount returns the number of pages.
	PageCount() int

	// Zoom returns the current zoom level.
	Zoom() float64

	// SetZoom moves the zoom; out-of-range values are clamped.
	SetZoom(zoom float64)

	// GotoPage brings a page (0-based) into view.
	GotoPage(pageNumber int)

	// Find sets the needle and walks one search step in the given
	// direction. ok is false when no page in that direction has hits.
	Find(needle string, direction int) (page int, hits int, ok bool)

	// ClearSearch empties the needle.
	ClearSearch()

	// Alert shows a message (if the embedder supports dialogs).
	Alert(message string)
}
