// Package debounce coalesces bursts of calls into one delayed call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once the triggers have been quiet for delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	pending bool
	stopped bool
}

// New returns a debouncer for fn.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn, restarting the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a scheduled call now. It does nothing when none is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	run := d.pending
	d.pending = false
	d.mu.Unlock()
	if run {
		d.fn()
	}
}

// Cancel drops a scheduled call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}

// Stop flushes the pending call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.Flush()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	run := d.pending
	d.pending = false
	d.mu.Unlock()
	if run {
		d.fn()
	}
}
