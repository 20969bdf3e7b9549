package viewer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wudi/docview/backend"
	"github.com/wudi/docview/scripting"
)

func TestScriptAPI_DrivesSession(t *testing.T) {
	f, proxy := newFakeService(t, 6)
	f.mu.Lock()
	f.hits[3] = []backend.Rect{{X: 10, Y: 10, W: 40, H: 12}}
	f.hitNeedle = "needle"
	f.mu.Unlock()

	var scrollMu sync.Mutex
	var scrolled []int
	cfg := testConfig(nil)
	cfg.OnScrollToPage = func(n int, topPx float64) {
		scrollMu.Lock()
		scrolled = append(scrolled, n)
		scrollMu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := Open(ctx, proxy, []byte("fixture"), "pdf", cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		s.Close(closeCtx)
	}()

	var alerts []string
	api := NewScriptAPI(s, func(msg string) { alerts = append(alerts, msg) })

	if api.Title() != "Fixture Document" || api.PageCount() != 6 {
		t.Fatalf("identity: %q %d", api.Title(), api.PageCount())
	}

	api.SetZoom(120)
	if got := s.Zoom(); got != 120 {
		t.Fatalf("zoom: %f", got)
	}

	api.GotoPage(2)
	scrollMu.Lock()
	got := append([]int(nil), scrolled...)
	scrollMu.Unlock()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("gotoPage scroll: %v", got)
	}

	page, hits, ok := api.Find("needle", Forward)
	if !ok || page != 3 || hits != 1 {
		t.Fatalf("find: page=%d hits=%d ok=%v", page, hits, ok)
	}
	if s.Needle() != "needle" {
		t.Fatalf("needle: %q", s.Needle())
	}

	if _, _, ok := api.Find("absent", Forward); ok {
		t.Fatalf("find should exhaust for a needle with no hits")
	}

	api.ClearSearch()
	if s.Needle() != "" {
		t.Fatalf("needle after clear: %q", s.Needle())
	}

	api.Alert("hello")
	if len(alerts) != 1 || alerts[0] != "hello" {
		t.Fatalf("alerts: %v", alerts)
	}
}

func TestScriptAPI_ThroughEngine(t *testing.T) {
	f, proxy := newFakeService(t, 4)
	f.mu.Lock()
	f.hits[1] = []backend.Rect{{X: 5, Y: 5, W: 30, H: 12}}
	f.hitNeedle = "x"
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := Open(ctx, proxy, []byte("fixture"), "pdf", testConfig(nil))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		s.Close(closeCtx)
	}()

	engine := scripting.NewEngine()
	if err := engine.RegisterViewer(NewScriptAPI(s, nil)); err != nil {
		t.Fatalf("register: %v", err)
	}

	val, err := engine.Execute(ctx, "var r = viewer.find('x'); r.page")
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	if n, ok := val.(int64); !ok || n != 1 {
		t.Fatalf("script find result: %v (%T)", val, val)
	}
}
