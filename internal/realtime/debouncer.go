package realtime

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of Schedule calls into a single fn invocation.
// The first call in a quiet period arms a timer for the window; calls that arrive
// before it fires are absorbed.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer returns a debouncer calling fn at most once per window.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Schedule arms the timer unless it is already pending. It reports whether a new
// invocation was scheduled.
func (d *Debouncer) Schedule() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.timer != nil {
		return false
	}
	d.timer = time.AfterFunc(d.window, d.fire)
	return true
}

// Pending reports whether an invocation is waiting on the timer.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending invocation; later Schedule calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return
	}
	d.fn()
}
