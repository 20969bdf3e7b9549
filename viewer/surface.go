package viewer

import (
	"image"

	"github.com/wudi/docview/overlay"
)

// PageSurface is where a page's pixels and overlay layers land. The
// orchestration core never touches a real widget tree; embedders supply
// a surface per page and mutate whatever display technology they use.
type PageSurface interface {
	// SetSize announces the page's display extent in pixels. Called on
	// first load and again whenever the zoom changes.
	SetSize(widthPx, heightPx float64)
	// PaintBitmap delivers a bitmap rendered at the current zoom.
	PaintBitmap(img *image.RGBA)
	// PaintPreview delivers a rescaled older bitmap to bridge the gap
	// while a render at the current zoom is still in flight.
	PaintPreview(img *image.RGBA)
	SetTextLayer(boxes []overlay.TextBox)
	SetLinkLayer(boxes []overlay.LinkBox)
	SetSearchLayer(boxes []overlay.HitBox)
}

// SurfaceFactory builds the surface for one page at open time.
type SurfaceFactory func(pageNumber int) PageSurface

type nopSurface struct{}

func (nopSurface) SetSize(float64, float64)             {}
func (nopSurface) PaintBitmap(*image.RGBA)              {}
func (nopSurface) PaintPreview(*image.RGBA)             {}
func (nopSurface) SetTextLayer([]overlay.TextBox)       {}
func (nopSurface) SetLinkLayer([]overlay.LinkBox)       {}
func (nopSurface) SetSearchLayer([]overlay.HitBox)      {}
