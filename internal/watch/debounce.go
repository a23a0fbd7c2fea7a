package watch

import (
	"sync"
	"time"
)

// Debouncer collects paths and hands them to flush once no new path has
// arrived for the configured delay. Each distinct path is flushed once.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending []string
	seen    map[string]struct{}
	flush   func([]string)
	stopped bool
}

// NewDebouncer returns a debouncer calling flush from its own goroutine.
func NewDebouncer(delay time.Duration, flush func([]string)) *Debouncer {
	return &Debouncer{delay: delay, flush: flush, seen: map[string]struct{}{}}
}

// Add records path and restarts the quiet period.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if _, ok := d.seen[path]; !ok {
		d.seen[path] = struct{}{}
		d.pending = append(d.pending, path)
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := d.pending
	d.pending = nil
	d.seen = map[string]struct{}{}
	d.mu.Unlock()

	d.flush(paths)
}

// Stop cancels any pending flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
}
