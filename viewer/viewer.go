// Package viewer is the client-side orchestration core of the document
// viewer: it owns the per-document session, decides which pages are
// visible, coalesces visibility and zoom churn into debounced refresh
// passes, keeps per-page derived data fresh via staleness markers, and
// drives directional search. The heavy lifting (decoding, rasterizing,
// extraction) lives behind the backend proxy.
package viewer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/wudi/docview/backend"
	"github.com/wudi/docview/indexset"
	"github.com/wudi/docview/observability"
	"github.com/wudi/docview/overlay"
)

// Zoom bounds in display pixels per inch. 96 is the 100% baseline.
const (
	MinZoom  = 48.0
	MaxZoom  = 384.0
	BaseZoom = 96.0
)

// zoomStep is the multiplicative step used by ZoomIn/ZoomOut.
const zoomStep = 1.25

// Config carries the knobs of a document session. The zero value is
// usable; every field has a default.
type Config struct {
	Logger observability.Logger
	Tracer observability.Tracer

	// Surfaces builds the per-page display surface. Defaults to a
	// surface that discards everything.
	Surfaces SurfaceFactory

	// DevicePixelRatio multiplies the render scale sent to the backend.
	DevicePixelRatio float64

	// DebounceDelay is how long the scheduler waits for visibility and
	// zoom churn to settle before running a pass.
	DebounceDelay time.Duration

	// LookaheadAbove and LookaheadBelow expand the viewport when
	// deciding visibility, expressed as fractions of the viewport
	// height. The defaults give a multi-viewport head start for
	// downward scrolling.
	LookaheadAbove float64
	LookaheadBelow float64

	// PageGapPx is the vertical gap between pages in the layout.
	PageGapPx float64

	// InitialZoom is the zoom the session starts at.
	InitialZoom float64

	// PlaceholderSize sizes pages before their first load.
	PlaceholderSize backend.Size

	// OnScrollToPage is invoked when the core wants a page brought into
	// view (search hits). topPx is the page's layout offset.
	OnScrollToPage func(pageNumber int, topPx float64)

	// Measurer drives the text layer's letter-spacing correction.
	// Defaults to the overlay package's shaped measurer.
	Measurer overlay.Measurer
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = observability.NopLogger{}
	}
	if c.Tracer == nil {
		c.Tracer = observability.NopTracer()
	}
	if c.Surfaces == nil {
		c.Surfaces = func(int) PageSurface { return nopSurface{} }
	}
	if c.DevicePixelRatio <= 0 {
		c.DevicePixelRatio = 1
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = 50 * time.Millisecond
	}
	if c.LookaheadAbove <= 0 {
		c.LookaheadAbove = 0.25
	}
	if c.LookaheadBelow <= 0 {
		c.LookaheadBelow = 3.0
	}
	if c.PageGapPx <= 0 {
		c.PageGapPx = 8
	}
	if c.InitialZoom <= 0 {
		c.InitialZoom = BaseZoom
	}
	if c.PlaceholderSize.Width <= 0 || c.PlaceholderSize.Height <= 0 {
		c.PlaceholderSize = backend.Size{Width: 612, Height: 792}
	}
	if c.Measurer == nil {
		c.Measurer = overlay.DefaultMeasurer()
	}
	return c
}

// Session is one open document: the backend handle, the page units, and
// the shared zoom/needle state every component reads. Zoom is written
// only through the zoom surface, the needle only through the search
// surface; everything else re-reads them after any suspension point.
type Session struct {
	proxy    *backend.Proxy
	cfg      Config
	log      observability.Logger
	measurer overlay.Measurer

	mu      sync.Mutex
	closed  bool
	handle  backend.Handle
	title   string
	outline []backend.OutlineItem
	pages   []*Page
	zoom    float64
	needle  string
	visible *indexset.Set

	scrollTop  float64
	viewportH  float64
	anchorPage int
	searchGen  uint64

	sched *scheduler
}

// Open submits a buffer to the backend and builds the session. On any
// failure no partial session is left behind: the handle, if one was
// assigned, is released.
func Open(ctx context.Context, proxy *backend.Proxy, data []byte, formatHint string, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	start := time.Now()
	ctx, span := cfg.Tracer.StartSpan(ctx, observability.MetricOpenTime)
	defer span.Finish()

	handle, err := proxy.OpenDocument(ctx, data, formatHint)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("open document: %w", err)
	}
	abort := func(err error) (*Session, error) {
		span.SetError(err)
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		proxy.CloseDocument(closeCtx, handle)
		return nil, err
	}

	count, err := proxy.CountPages(ctx, handle)
	if err != nil {
		return abort(fmt.Errorf("count pages: %w", err))
	}
	title, err := proxy.Title(ctx, handle)
	if err != nil {
		return abort(fmt.Errorf("document title: %w", err))
	}
	outline, err := proxy.Outline(ctx, handle)
	if err != nil {
		return abort(fmt.Errorf("document outline: %w", err))
	}

	s := &Session{
		proxy:      proxy,
		cfg:        cfg,
		log:        cfg.Logger,
		measurer:   cfg.Measurer,
		handle:     handle,
		title:      title,
		outline:    outline,
		zoom:       clampZoom(cfg.InitialZoom),
		visible:    indexset.New(),
		anchorPage: -1,
	}
	s.sched = newScheduler(cfg.DebounceDelay, s.pass)
	for i := 0; i < count; i++ {
		s.pages = append(s.pages, &Page{
			session: s,
			number:  i,
			surface: cfg.Surfaces(i),
			size:    cfg.PlaceholderSize,
		})
	}

	span.SetTag("pages", count)
	s.log.Info("session opened",
		observability.String("title", title),
		observability.Int("pages", count),
		observability.Int64("ms", time.Since(start).Milliseconds()))
	return s, nil
}

// OpenFile reads a local file and opens it, guessing the format hint
// from the extension.
func OpenFile(ctx context.Context, proxy *backend.Proxy, path string, cfg Config) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Open(ctx, proxy, data, hintFromName(path), cfg)
}

// OpenURL fetches a document over HTTP(S) and opens it. A non-success
// status is a fetch failure, reported without creating a session.
func OpenURL(ctx context.Context, proxy *backend.Proxy, url string, cfg Config) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return Open(ctx, proxy, data, hintFromName(url), cfg)
}

func hintFromName(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/' && name[i] != '\\'; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return ""
}

// Close tears the session down: timers stop, the visible set empties,
// and the backend handle is released. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	handle := s.handle
	s.visible.Clear()
	s.pages = nil
	s.mu.Unlock()

	s.sched.stop()
	if err := s.proxy.CloseDocument(ctx, handle); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	s.log.Info("session closed")
	return nil
}

// Title returns the backend-reported document title, possibly empty.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// PageCount returns the number of pages.
func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Page returns the page unit at the given 0-based index, or nil when
// out of range (or after close).
func (s *Session) Page(i int) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pages) {
		return nil
	}
	return s.pages[i]
}

// Zoom returns the live zoom level.
func (s *Session) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// SetZoom moves the zoom to the clamped value and requests a pass. The
// pass re-renders visible pages; anything rendered mid-change
// self-corrects through the staleness markers.
func (s *Session) SetZoom(zoom float64) {
	zoom = clampZoom(zoom)
	s.mu.Lock()
	if s.closed || s.zoom == zoom {
		s.mu.Unlock()
		return
	}
	s.zoom = zoom
	s.mu.Unlock()
	s.log.Debug("zoom changed", observability.Float64("zoom", zoom))
	s.sched.request()
}

// ZoomIn steps the zoom up.
func (s *Session) ZoomIn() { s.SetZoom(s.Zoom() * zoomStep) }

// ZoomOut steps the zoom down.
func (s *Session) ZoomOut() { s.SetZoom(s.Zoom() / zoomStep) }

// ZoomReset returns to the baseline.
func (s *Session) ZoomReset() { s.SetZoom(BaseZoom) }

// Needle returns the live search needle.
func (s *Session) Needle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needle
}

// VisiblePages returns the visible set in ascending order.
func (s *Session) VisiblePages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible.Values()
}

// Outline returns the backend outline tree, or nil.
func (s *Session) Outline() []backend.OutlineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outline
}

// ScrollToPage asks the embedder to bring a page into view and moves
// the search anchor there. Out-of-range pages are ignored.
func (s *Session) ScrollToPage(pageNumber int) {
	s.mu.Lock()
	if s.closed || pageNumber < 0 || pageNumber >= len(s.pages) {
		s.mu.Unlock()
		return
	}
	s.anchorPage = pageNumber
	top := s.pageTopLocked(pageNumber)
	scroll := s.cfg.OnScrollToPage
	s.mu.Unlock()

	if scroll != nil {
		scroll(pageNumber, top)
	}
}

// Refresh forces an immediate scheduling request, as after external
// layout changes.
func (s *Session) Refresh() { s.sched.request() }

// pass is the debounced scheduling pass: refresh every visible page in
// ascending order.
func (s *Session) pass() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	visible := s.visible.Values()
	pages := make([]*Page, 0, len(visible))
	for _, n := range visible {
		if n >= 0 && n < len(s.pages) {
			pages = append(pages, s.pages[n])
		}
	}
	s.mu.Unlock()

	s.log.Debug("scheduling pass", observability.Int("visible", len(pages)))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx, span := s.cfg.Tracer.StartSpan(ctx, observability.MetricSchedulePasses)
	span.SetTag("visible", len(pages))
	defer span.Finish()
	for _, p := range pages {
		if err := p.refresh(ctx); err != nil {
			s.log.Warn("page refresh failed",
				observability.Int("page", p.Number()),
				observability.Error("err", err))
		}
	}
}

func clampZoom(zoom float64) float64 {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}
