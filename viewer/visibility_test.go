package viewer

import "testing"

func TestApplyVisibility_SetMutations(t *testing.T) {
	_, s := openFixture(t, 5, nil)
	s.ApplyVisibility([]Signal{
		{Page: 2, Intersecting: true},
		{Page: 0, Intersecting: true},
		{Page: 4, Intersecting: true},
		{Page: 2, Intersecting: true}, // duplicate in the same batch
	})
	if got := s.VisiblePages(); len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 4 {
		t.Fatalf("visible set: %v", got)
	}
	s.ApplyVisibility([]Signal{
		{Page: 0, Intersecting: false},
		{Page: 9, Intersecting: true}, // out of range, ignored
	})
	if got := s.VisiblePages(); len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("visible set after removal: %v", got)
	}
}

func TestSetViewport_LookaheadMargins(t *testing.T) {
	_, s := openFixture(t, 20, nil)

	// At zoom 96 a page occupies 1056 px plus the 8 px gap. With a
	// 1000 px viewport at the top, the lookahead extends 250 px above
	// (nothing there) and 3000 px below: pages 0..3 intersect
	// [0, 4000), page 4 starts at 4256 and does not.
	s.SetViewport(0, 1000)
	got := s.VisiblePages()
	if len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Fatalf("visible at top: %v", got)
	}

	// Scrolling down moves the window and drops the pages above the
	// lookahead margin.
	s.SetViewport(6*1064, 1000)
	got = s.VisiblePages()
	for _, page := range got {
		if page < 5 || page > 10 {
			t.Fatalf("page %d outside the expected window: %v", page, got)
		}
	}
	if len(got) == 0 {
		t.Fatalf("nothing visible after scroll")
	}
}

func TestPageTop_Layout(t *testing.T) {
	_, s := openFixture(t, 3, nil)
	if got := s.PageTop(0); got != 0 {
		t.Fatalf("page 0 top: %f", got)
	}
	// 792 pt at zoom 96 is 1056 px, plus the 8 px gap.
	if got := s.PageTop(2); got != 2*1064 {
		t.Fatalf("page 2 top: %f", got)
	}
}
