package main

import (
	"image"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wudi/docview/overlay"
	"github.com/wudi/docview/viewer"
)

// termSurface is the terminal stand-in for a page widget. It records
// what the orchestration core pushes at it and pings the UI so the
// page re-renders as text.
type termSurface struct {
	page int
	send func(tea.Msg)

	mu       sync.Mutex
	widthPx  float64
	heightPx float64
	bitmapW  int
	bitmapH  int
	preview  bool
	text     []overlay.TextBox
	links    []overlay.LinkBox
	hits     []overlay.HitBox
}

// pageView is an immutable copy of a surface's state for rendering.
type pageView struct {
	widthPx  float64
	heightPx float64
	bitmapW  int
	bitmapH  int
	preview  bool
	text     []overlay.TextBox
	links    []overlay.LinkBox
	hits     []overlay.HitBox
}

func (s *termSurface) SetSize(widthPx, heightPx float64) {
	s.mu.Lock()
	s.widthPx, s.heightPx = widthPx, heightPx
	s.mu.Unlock()
	s.send(pageDirtyMsg{page: s.page})
}

func (s *termSurface) PaintBitmap(img *image.RGBA) {
	s.mu.Lock()
	b := img.Bounds()
	s.bitmapW, s.bitmapH = b.Dx(), b.Dy()
	s.preview = false
	s.mu.Unlock()
	s.send(pageDirtyMsg{page: s.page})
}

func (s *termSurface) PaintPreview(img *image.RGBA) {
	s.mu.Lock()
	b := img.Bounds()
	s.bitmapW, s.bitmapH = b.Dx(), b.Dy()
	s.preview = true
	s.mu.Unlock()
	s.send(pageDirtyMsg{page: s.page})
}

func (s *termSurface) SetTextLayer(boxes []overlay.TextBox) {
	s.mu.Lock()
	s.text = boxes
	s.mu.Unlock()
	s.send(pageDirtyMsg{page: s.page})
}

func (s *termSurface) SetLinkLayer(boxes []overlay.LinkBox) {
	s.mu.Lock()
	s.links = boxes
	s.mu.Unlock()
	s.send(pageDirtyMsg{page: s.page})
}

func (s *termSurface) SetSearchLayer(boxes []overlay.HitBox) {
	s.mu.Lock()
	s.hits = boxes
	s.mu.Unlock()
	s.send(pageDirtyMsg{page: s.page})
}

func (s *termSurface) view() pageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageView{
		widthPx:  s.widthPx,
		heightPx: s.heightPx,
		bitmapW:  s.bitmapW,
		bitmapH:  s.bitmapH,
		preview:  s.preview,
		text:     s.text,
		links:    s.links,
		hits:     s.hits,
	}
}

// surfaceSet hands out one termSurface per page.
type surfaceSet struct {
	send func(tea.Msg)

	mu       sync.Mutex
	surfaces map[int]*termSurface
}

func newSurfaceSet(send func(tea.Msg)) *surfaceSet {
	return &surfaceSet{send: send, surfaces: make(map[int]*termSurface)}
}

func (set *surfaceSet) factory(pageNumber int) viewer.PageSurface {
	set.mu.Lock()
	defer set.mu.Unlock()
	s := &termSurface{page: pageNumber, send: set.send}
	set.surfaces[pageNumber] = s
	return s
}

func (set *surfaceSet) view(pageNumber int) pageView {
	set.mu.Lock()
	s := set.surfaces[pageNumber]
	set.mu.Unlock()
	if s == nil {
		return pageView{}
	}
	return s.view()
}
