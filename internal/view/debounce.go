package view

import (
	"sync"
	"time"
)

// Debouncer delays a callback until a quiet period has elapsed. Arming
// again within the window supersedes the earlier callback; Cancel
// discards a pending one.
//
// Thread-safety: all methods are safe for concurrent use. The callback
// runs on the timer goroutine; callers that need executor affinity hop
// executors inside the callback.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	seq   uint64 // detects stale timer callbacks
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Arm schedules fn to run after the quiet period, superseding any
// earlier pending callback.
func (d *Debouncer) Arm(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// Only run if no Arm or Cancel superseded this timer.
		stale := d.seq != currentSeq
		if !stale {
			d.timer = nil
		}
		d.mu.Unlock()
		if !stale {
			fn()
		}
	})
}

// Cancel discards any pending callback. A callback that already passed
// its staleness check may still be running.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
