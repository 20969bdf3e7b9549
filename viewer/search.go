package viewer

import (
	"context"
	"time"

	"github.com/wudi/docview/observability"
)

// Search directions.
const (
	Forward  = 1
	Backward = -1
)

// SearchStatus classifies a search outcome. None of these are errors:
// exhaustion and abort are ordinary states the UI turns into status
// text.
type SearchStatus int

const (
	// SearchFound means a page with hits was located and scrolled to.
	SearchFound SearchStatus = iota
	// SearchNoSearch means the needle was empty or was cleared while
	// the search was walking pages.
	SearchNoSearch
	// SearchExhausted means no page in the travel direction had hits.
	SearchExhausted
	// SearchSuperseded means a newer Search call took over mid-walk.
	SearchSuperseded
)

// SearchResult reports where a search landed.
type SearchResult struct {
	Status SearchStatus
	Page   int // valid when Status == SearchFound
	Hits   int // hit count on Page
}

// SetNeedle updates the shared needle and requests a pass so visible
// pages refresh their search overlays. Setting the needle to the empty
// string clears search state everywhere.
func (s *Session) SetNeedle(needle string) {
	s.mu.Lock()
	if s.closed || s.needle == needle {
		s.mu.Unlock()
		return
	}
	s.needle = needle
	s.mu.Unlock()
	s.sched.request()
}

// ClearSearch empties the needle; a search walk in progress observes
// this at its next step and aborts.
func (s *Session) ClearSearch() { s.SetNeedle("") }

// Search walks pages in the given direction looking for the live
// needle, starting step pages away from the anchor. The anchor is the
// page straddling the viewport midpoint, falling back to the first
// visible page, then to the previous anchor.
//
// The walk suspends once per candidate page (waiting for its search
// data) and re-validates the shared needle after every suspension, so
// clearing the needle aborts cooperatively. A newer Search call
// supersedes an older one: the older walk stops at its next step.
func (s *Session) Search(ctx context.Context, direction, step int) (SearchResult, error) {
	if direction >= 0 {
		direction = Forward
	} else {
		direction = Backward
	}
	start := time.Now()
	ctx, span := s.cfg.Tracer.StartSpan(ctx, observability.MetricSearchTime)
	span.SetTag("direction", direction)
	defer span.Finish()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SearchResult{Status: SearchNoSearch}, nil
	}
	needle := s.needle
	if needle == "" {
		s.mu.Unlock()
		return SearchResult{Status: SearchNoSearch}, nil
	}
	s.searchGen++
	gen := s.searchGen
	anchor := s.midpointPageLocked()
	if anchor < 0 {
		anchor = s.visible.Min()
	}
	if anchor < 0 {
		anchor = s.anchorPage
	}
	if anchor < 0 {
		anchor = 0
	}
	pageCount := len(s.pages)
	s.mu.Unlock()

	cursor := anchor + step*direction
	for cursor >= 0 && cursor < pageCount {
		s.mu.Lock()
		if s.closed || s.needle == "" {
			s.mu.Unlock()
			return SearchResult{Status: SearchNoSearch}, nil
		}
		if s.searchGen != gen {
			s.mu.Unlock()
			return SearchResult{Status: SearchSuperseded}, nil
		}
		page := s.pages[cursor]
		s.mu.Unlock()

		// The one suspension point per iteration.
		hits, err := page.ensureSearch(ctx)
		if err != nil {
			span.SetError(err)
			return SearchResult{}, err
		}

		s.mu.Lock()
		if s.closed || s.needle == "" {
			s.mu.Unlock()
			return SearchResult{Status: SearchNoSearch}, nil
		}
		if s.searchGen != gen {
			s.mu.Unlock()
			return SearchResult{Status: SearchSuperseded}, nil
		}
		if len(hits) > 0 {
			s.anchorPage = cursor
			top := s.pageTopLocked(cursor)
			scroll := s.cfg.OnScrollToPage
			s.mu.Unlock()

			if scroll != nil {
				scroll(cursor, top)
			}
			s.sched.request()
			span.SetTag("page", cursor)
			s.log.Info("search hit",
				observability.Int("page", cursor),
				observability.Int("hits", len(hits)),
				observability.Int64("ms", time.Since(start).Milliseconds()))
			return SearchResult{Status: SearchFound, Page: cursor, Hits: len(hits)}, nil
		}
		s.mu.Unlock()
		cursor += direction
	}

	s.log.Info("search exhausted", observability.String("needle", needle))
	return SearchResult{Status: SearchExhausted}, nil
}
