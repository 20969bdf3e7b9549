package viewer

import (
	"sync"
	"sync/atomic"
	"time"
)

// scheduler debounces refresh requests: every request resets the timer,
// and the pass runs only once no request has arrived for a full delay.
// Scrolling and zooming produce bursts of requests; without this, each
// one would turn into redundant backend traffic.
type scheduler struct {
	delay time.Duration
	run   func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	passes atomic.Int64
}

func newScheduler(delay time.Duration, run func()) *scheduler {
	return &scheduler{delay: delay, run: run}
}

// request arms the debounce timer, replacing any pending one. The old
// timer is stopped before rescheduling so a burst can never produce two
// passes.
func (d *scheduler) request() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *scheduler) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.passes.Add(1)
	d.run()
}

// passCount reports how many passes have executed.
func (d *scheduler) passCount() int64 { return d.passes.Load() }

func (d *scheduler) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
