package viewer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_CoalescesBursts(t *testing.T) {
	var runs atomic.Int64
	d := newScheduler(30*time.Millisecond, func() { runs.Add(1) })
	defer d.stop()

	// A burst of requests inside the debounce window yields one pass.
	for i := 0; i < 10; i++ {
		d.request()
		time.Sleep(2 * time.Millisecond)
	}
	waitFor(t, "debounced pass", func() bool { return runs.Load() == 1 })
	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("burst produced %d passes", got)
	}

	// A request after quiescence runs again.
	d.request()
	waitFor(t, "second pass", func() bool { return runs.Load() == 2 })
}

func TestScheduler_RequestResetsTimer(t *testing.T) {
	var runs atomic.Int64
	d := newScheduler(40*time.Millisecond, func() { runs.Add(1) })
	defer d.stop()

	d.request()
	time.Sleep(25 * time.Millisecond)
	// Still inside the window: this must replace the pending timer, not
	// add a second one.
	d.request()
	time.Sleep(25 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("pass ran before the window closed")
	}
	waitFor(t, "single pass", func() bool { return runs.Load() == 1 })
}

func TestScheduler_StopCancelsPending(t *testing.T) {
	var runs atomic.Int64
	d := newScheduler(10*time.Millisecond, func() { runs.Add(1) })
	d.request()
	d.stop()
	time.Sleep(40 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("stopped scheduler still ran")
	}
	d.request() // no-op after stop
	time.Sleep(40 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("request after stop ran")
	}
}

func TestSession_VisibilityBurstsOnePass(t *testing.T) {
	f, s := openFixture(t, 6, nil)
	before := s.sched.passCount()

	// N visibility batches within the window produce exactly one pass.
	for i := 0; i < 6; i++ {
		s.ApplyVisibility([]Signal{{Page: i, Intersecting: true}})
	}
	waitFor(t, "pass", func() bool { return s.sched.passCount() == before+1 })
	time.Sleep(30 * time.Millisecond)
	if got := s.sched.passCount(); got != before+1 {
		t.Fatalf("burst produced %d passes", got-before)
	}

	// The single pass refreshed all six pages top to bottom.
	f.mu.Lock()
	texts := append([]int(nil), f.textCalls...)
	f.mu.Unlock()
	if len(texts) != 6 {
		t.Fatalf("pages refreshed: %v", texts)
	}
	for i, page := range texts {
		if page != i {
			t.Fatalf("pages not refreshed in ascending order: %v", texts)
		}
	}
}
