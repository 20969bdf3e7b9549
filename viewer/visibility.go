package viewer

import (
	"github.com/wudi/docview/observability"
	"github.com/wudi/docview/overlay"
)

// Signal is one viewport-intersection observation for a page.
type Signal struct {
	Page         int
	Intersecting bool
}

// ApplyVisibility folds one batch of intersection signals into the
// visible set and requests a single scheduling pass for the whole
// batch.
func (s *Session) ApplyVisibility(signals []Signal) {
	if len(signals) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for _, sig := range signals {
		if sig.Page < 0 || sig.Page >= len(s.pages) {
			continue
		}
		if sig.Intersecting {
			s.visible.Add(sig.Page)
		} else {
			s.visible.Delete(sig.Page)
		}
	}
	count := s.visible.Len()
	s.mu.Unlock()

	s.log.Debug("visibility batch",
		observability.Int("signals", len(signals)),
		observability.Int("visible", count))
	s.sched.request()
}

// SetViewport records the scroll position and computes intersection
// signals against the page layout, expanded by the lookahead margins so
// pages are scheduled before they come on screen.
func (s *Session) SetViewport(scrollTop, height float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.scrollTop = scrollTop
	s.viewportH = height

	top := scrollTop - height*s.cfg.LookaheadAbove
	bottom := scrollTop + height + height*s.cfg.LookaheadBelow

	signals := make([]Signal, 0, len(s.pages))
	y := 0.0
	scale := overlay.Scale(s.zoom)
	for i, p := range s.pages {
		h := p.size.Height * scale
		signals = append(signals, Signal{
			Page:         i,
			Intersecting: y < bottom && y+h > top,
		})
		y += h + s.cfg.PageGapPx
	}
	s.mu.Unlock()

	s.ApplyVisibility(signals)
}

// PageTop returns the layout offset of a page's top edge in display
// pixels at the live zoom.
func (s *Session) PageTop(pageNumber int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageTopLocked(pageNumber)
}

func (s *Session) pageTopLocked(pageNumber int) float64 {
	y := 0.0
	scale := overlay.Scale(s.zoom)
	for i := 0; i < pageNumber && i < len(s.pages); i++ {
		y += s.pages[i].size.Height*scale + s.cfg.PageGapPx
	}
	return y
}

// midpointPageLocked finds the page straddling the viewport's vertical
// midpoint, or -1.
func (s *Session) midpointPageLocked() int {
	mid := s.scrollTop + s.viewportH/2
	y := 0.0
	scale := overlay.Scale(s.zoom)
	for i, p := range s.pages {
		h := p.size.Height * scale
		if mid >= y && mid < y+h {
			return i
		}
		y += h + s.cfg.PageGapPx
	}
	return -1
}
