package prefs

import (
	"sync"
	"time"
)

const DefaultFilterDelay = 300 * time.Millisecond

// Debouncer runs the latest submitted function after Delay of quiet. Every
// submission gets a sequence number; only the newest may apply its result.
type Debouncer struct {
	Delay time.Duration

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultFilterDelay
	}
	return &Debouncer{Delay: delay}
}

// Submit replaces any pending call. fn gets the sequence number it was submitted under.
func (d *Debouncer) Submit(fn func(seq uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.Delay, func() { fn(seq) })
	return seq
}

// Current reports whether seq is still the newest submission.
func (d *Debouncer) Current(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq == d.seq
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
