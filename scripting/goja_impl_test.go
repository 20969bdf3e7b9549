package scripting

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := engine.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := engine.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

// fakeViewer records every script-initiated call.
type fakeViewer struct {
	zoom    float64
	gotos   []int
	alerts  []string
	needle  string
	cleared bool
}

func (f *fakeViewer) Title() string        { return "Scripted" }
func (f *fakeViewer) PageCount() int       { return 7 }
func (f *fakeViewer) Zoom() float64        { return f.zoom }
func (f *fakeViewer) SetZoom(zoom float64) { f.zoom = zoom }
func (f *fakeViewer) GotoPage(n int)       { f.gotos = append(f.gotos, n) }
func (f *fakeViewer) Alert(msg string)     { f.alerts = append(f.alerts, msg) }
func (f *fakeViewer) ClearSearch()         { f.cleared = true }

func (f *fakeViewer) Find(needle string, direction int) (int, int, bool) {
	f.needle = needle
	if needle == "missing" {
		return 0, 0, false
	}
	return 3 * direction, 2, true
}

func TestGojaEngine_ViewerAPI(t *testing.T) {
	engine := NewEngine()
	fake := &fakeViewer{zoom: 96}
	if err := engine.RegisterViewer(fake); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()

	val, err := engine.Execute(ctx, "viewer.title() + ':' + viewer.pageCount()")
	if err != nil || val != "Scripted:7" {
		t.Fatalf("title/pageCount: %v %v", val, err)
	}

	if _, err := engine.Execute(ctx, "viewer.zoom = viewer.zoom * 2"); err != nil {
		t.Fatalf("zoom script: %v", err)
	}
	if fake.zoom != 192 {
		t.Fatalf("zoom not applied: %f", fake.zoom)
	}

	if _, err := engine.Execute(ctx, "viewer.gotoPage(4); app.alert('done')"); err != nil {
		t.Fatalf("goto script: %v", err)
	}
	if len(fake.gotos) != 1 || fake.gotos[0] != 4 {
		t.Fatalf("gotoPage: %v", fake.gotos)
	}
	if len(fake.alerts) != 1 || fake.alerts[0] != "done" {
		t.Fatalf("alert: %v", fake.alerts)
	}

	val, err = engine.Execute(ctx, "var r = viewer.find('term'); r.page + '/' + r.hits")
	if err != nil || val != "3/2" {
		t.Fatalf("find: %v %v", val, err)
	}
	if fake.needle != "term" {
		t.Fatalf("needle: %q", fake.needle)
	}

	val, err = engine.Execute(ctx, "viewer.find('missing')")
	if err != nil || val != nil {
		t.Fatalf("missing find should be null: %v %v", val, err)
	}

	if _, err := engine.Execute(ctx, "viewer.clearSearch()"); err != nil {
		t.Fatalf("clearSearch: %v", err)
	}
	if !fake.cleared {
		t.Fatalf("clearSearch not applied")
	}
}
