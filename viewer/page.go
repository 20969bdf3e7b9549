package viewer

import (
	"context"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/wudi/docview/backend"
	"github.com/wudi/docview/observability"
	"github.com/wudi/docview/overlay"
)

// renderTimeout bounds a detached render request. Renders issued by a
// refresh outlive the refresh pass that requested them.
const renderTimeout = 30 * time.Second

// renderToken marks an outstanding render request and remembers the
// zoom it was issued for. At most one exists per page.
type renderToken struct {
	zoom float64
}

// Page owns one page's load/render/overlay/search lifecycle. Every
// derived artifact carries an applied-zoom (or applied-needle) marker;
// a refresh recomputes only the categories whose marker disagrees with
// live session state.
//
// All mutable fields are guarded by the session mutex. Backend calls
// happen outside the lock, and every completion re-reads live state
// before trusting its result.
type Page struct {
	session *Session
	number  int
	surface PageSurface

	size    backend.Size
	loaded  bool
	loading chan struct{} // non-nil while a load is in flight
	loadErr error

	text  backend.TextContent
	links []backend.Link

	hits         []backend.Rect
	searchLoaded bool
	loadNeedle   string

	inflight     *renderToken
	renderedZoom float64
	lastBitmap   *image.RGBA
	lastZoom     float64

	textZoom   float64
	linkZoom   float64
	searchZoom float64
}

// Number returns the 0-based page index.
func (p *Page) Number() int { return p.number }

// Size returns the page extent in points: the shared placeholder before
// the first load, the backend-reported size after.
func (p *Page) Size() backend.Size {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.size
}

// Loaded reports whether the page's structure has been fetched.
func (p *Page) Loaded() bool {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.loaded
}

// load fetches size, text structure, and links, transitioning the page
// to loaded. Concurrent callers share a single in-flight operation.
func (p *Page) load(ctx context.Context) error {
	s := p.session
	s.mu.Lock()
	if p.loaded {
		s.mu.Unlock()
		return nil
	}
	if p.loading != nil {
		ch := p.loading
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return p.loadErr
	}
	ch := make(chan struct{})
	p.loading = ch
	handle := s.handle
	s.mu.Unlock()

	ctx, span := s.cfg.Tracer.StartSpan(ctx, observability.MetricPageLoadTime)
	span.SetTag("page", p.number)
	size, err := s.proxy.PageSize(ctx, handle, p.number)
	var text backend.TextContent
	var links []backend.Link
	if err == nil {
		text, err = s.proxy.PageText(ctx, handle, p.number)
	}
	if err == nil {
		links, err = s.proxy.PageLinks(ctx, handle, p.number)
	}
	if err != nil {
		span.SetError(err)
	}
	span.Finish()

	s.mu.Lock()
	p.loading = nil
	p.loadErr = err
	if err == nil {
		p.size = size
		p.text = text
		p.links = links
		p.loaded = true
	}
	s.mu.Unlock()
	close(ch)
	if err != nil {
		s.log.Warn("page load failed",
			observability.Int("page", p.number),
			observability.Error("err", err))
	}
	return err
}

// refresh brings every derived category in line with live zoom and
// needle. Categories are independent: the bitmap is requested first
// because it is the most expensive and the most visible, but it is
// requested asynchronously so a slow render never delays the cheaper
// overlay projections (or the next page in the pass).
func (p *Page) refresh(ctx context.Context) error {
	if err := p.load(ctx); err != nil {
		return err
	}

	s := p.session
	s.mu.Lock()
	zoom := s.zoom
	needle := s.needle
	scale := overlay.Scale(zoom)
	widthPx := p.size.Width * scale
	heightPx := p.size.Height * scale
	needRender := p.renderedZoom != zoom
	needText := p.textZoom != zoom
	needLinks := p.linkZoom != zoom
	needSearchData := !p.searchLoaded || p.loadNeedle != needle
	s.mu.Unlock()

	p.surface.SetSize(widthPx, heightPx)

	if needRender {
		// Detached from the caller's context: the pass moves on while
		// the render is in flight, and the token keeps it single.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), renderTimeout)
		go func() {
			defer cancel()
			p.render(rctx, zoom)
		}()
	}
	if needText {
		p.showText()
	}
	if needLinks {
		p.showLinks()
	}
	if needSearchData {
		if err := p.loadSearch(ctx); err != nil {
			s.log.Warn("page search failed",
				observability.Int("page", p.number),
				observability.Error("err", err))
		}
	}
	s.mu.Lock()
	needSearchLayer := p.searchZoom != zoom || needSearchData
	s.mu.Unlock()
	if needSearchLayer {
		p.showSearch()
	}
	return nil
}

// render issues a backend render guarded by the in-flight token. If a
// request is already outstanding this is a no-op: the outstanding
// completion self-corrects. A completion whose issued zoom no longer
// matches the live zoom is discarded and, if the page is still visible,
// re-issued at the live zoom.
func (p *Page) render(ctx context.Context, zoom float64) {
	s := p.session
	s.mu.Lock()
	if p.inflight != nil {
		s.mu.Unlock()
		return
	}
	p.inflight = &renderToken{zoom: zoom}
	handle := s.handle
	dpr := s.cfg.DevicePixelRatio
	preview := p.stalePreviewLocked(zoom)
	s.mu.Unlock()

	if preview != nil {
		p.surface.PaintPreview(preview)
	}

	ctx, span := s.cfg.Tracer.StartSpan(ctx, observability.MetricRenderTime)
	span.SetTag("page", p.number)
	defer span.Finish()

	for {
		bm, err := s.proxy.RenderPage(ctx, handle, p.number, overlay.Scale(zoom)*dpr)

		s.mu.Lock()
		live := s.zoom
		if err != nil {
			p.inflight = nil
			s.mu.Unlock()
			span.SetError(err)
			s.log.Warn("page render failed",
				observability.Int("page", p.number),
				observability.Error("err", err))
			return
		}
		if live == zoom {
			p.inflight = nil
			if bm == nil {
				// Superseded by the service; the next pass retries.
				s.mu.Unlock()
				return
			}
			img := bitmapImage(bm)
			p.renderedZoom = zoom
			p.lastBitmap = img
			p.lastZoom = zoom
			s.mu.Unlock()
			p.surface.PaintBitmap(img)
			return
		}
		// Stale: zoom moved while the request was in flight.
		stillVisible := s.visible.Contains(p.number)
		if !stillVisible {
			p.inflight = nil
			s.mu.Unlock()
			return
		}
		zoom = live
		p.inflight = &renderToken{zoom: zoom}
		s.mu.Unlock()
		span.SetTag("stale", true)
		s.log.Debug("stale render retried",
			observability.Int("page", p.number),
			observability.Float64("zoom", zoom))
	}
}

// stalePreviewLocked rescales the last painted bitmap to the target
// zoom, bridging the gap until the in-flight render lands.
func (p *Page) stalePreviewLocked(zoom float64) *image.RGBA {
	if p.lastBitmap == nil || p.lastZoom == zoom || p.lastZoom == 0 {
		return nil
	}
	factor := zoom / p.lastZoom
	src := p.lastBitmap
	w := int(float64(src.Rect.Dx()) * factor)
	h := int(float64(src.Rect.Dy()) * factor)
	if w < 1 || h < 1 {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Rect, src, src.Rect, draw.Over, nil)
	return dst
}

// loadSearch refreshes the cached hit list for the live needle. An
// empty needle clears hits locally without a backend round trip.
func (p *Page) loadSearch(ctx context.Context) error {
	s := p.session
	s.mu.Lock()
	needle := s.needle
	if p.searchLoaded && p.loadNeedle == needle {
		s.mu.Unlock()
		return nil
	}
	if needle == "" {
		p.hits = nil
		p.searchLoaded = true
		p.loadNeedle = ""
		s.mu.Unlock()
		return nil
	}
	handle := s.handle
	s.mu.Unlock()

	hits, err := s.proxy.SearchPage(ctx, handle, p.number, needle)
	if err != nil {
		return err
	}

	s.mu.Lock()
	// The needle may have moved during the call; only record the hits
	// for the needle they were computed for.
	p.hits = hits
	p.searchLoaded = true
	p.loadNeedle = needle
	s.mu.Unlock()
	return nil
}

// showText projects already-loaded text into the surface's text layer.
func (p *Page) showText() {
	s := p.session
	s.mu.Lock()
	zoom := s.zoom
	content := p.text
	p.textZoom = zoom
	s.mu.Unlock()
	p.surface.SetTextLayer(overlay.TextLayer(content, zoom, s.measurer))
}

// showLinks projects already-loaded link regions.
func (p *Page) showLinks() {
	s := p.session
	s.mu.Lock()
	zoom := s.zoom
	links := p.links
	p.linkZoom = zoom
	s.mu.Unlock()
	p.surface.SetLinkLayer(overlay.LinkLayer(links, zoom))
}

// showSearch projects the cached hit list.
func (p *Page) showSearch() {
	s := p.session
	s.mu.Lock()
	zoom := s.zoom
	hits := p.hits
	p.searchZoom = zoom
	s.mu.Unlock()
	p.surface.SetSearchLayer(overlay.SearchLayer(hits, zoom))
}

// ensureSearch makes the page's hit list fresh for the live needle,
// loading the page first if needed. Used by the search controller.
func (p *Page) ensureSearch(ctx context.Context) ([]backend.Rect, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	if err := p.loadSearch(ctx); err != nil {
		return nil, err
	}
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.hits, nil
}

// SearchHits returns the cached hit rectangles in points.
func (p *Page) SearchHits() []backend.Rect {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.hits
}

// Text returns the cached structured text. Zero value before load.
func (p *Page) Text() backend.TextContent {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.text
}

// Links returns the cached link list. Nil before load.
func (p *Page) Links() []backend.Link {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.links
}

func bitmapImage(bm *backend.Bitmap) *image.RGBA {
	return &image.RGBA{
		Pix:    bm.Pix,
		Stride: bm.Width * 4,
		Rect:   image.Rect(0, 0, bm.Width, bm.Height),
	}
}
