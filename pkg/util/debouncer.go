package util

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Reset calls into one tick on C, delivered
// once no Reset happened for the configured duration. A new Debouncer is
// idle until the first Reset.
//
// It relies on the timer semantics of Go 1.23 and later: Stop and Reset
// discard any tick that was not yet received.
//
// Example usage:
//
//	d := NewDebouncer(500 * time.Millisecond)
//	defer d.Stop()
//
//	for {
//	    select {
//	    case <-events:
//	        d.Reset()
//	    case <-d.C():
//	        reload()
//	    }
//	}
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	stopped  bool
}

// NewDebouncer creates an idle debouncer with the specified duration.
func NewDebouncer(duration time.Duration) *Debouncer {
	t := time.NewTimer(duration)
	t.Stop()

	return &Debouncer{duration: duration, timer: t}
}

// Reset arms the timer, or pushes back a pending tick.
// If the debouncer has been stopped, this is a no-op.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.timer.Reset(d.duration)
}

// C returns the channel ticks are delivered on.
func (d *Debouncer) C() <-chan time.Time {
	return d.timer.C
}

// Stop stops the debouncer and prevents further resets.
// It's safe to call Stop multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.stopped {
		d.timer.Stop()
		d.stopped = true
	}
}
