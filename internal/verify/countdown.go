package verify

import (
	"sync"
	"time"
)

// Countdown drives one recurring ticker at a time. Starting a new countdown stops the previous one.
type Countdown struct {
	Interval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time

	mu   sync.Mutex
	gen  int
	stop chan struct{}
}

// Start calls tick with the remaining time on every interval until until passes,
// then once more with zero. tick runs on the countdown's goroutine.
func (c *Countdown) Start(until time.Time, tick func(remaining time.Duration)) {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	interval := c.Interval
	if interval <= 0 {
		interval = time.Second
	}
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				rem := until.Sub(c.now())
				if rem < 0 {
					rem = 0
				}
				if !c.current(gen) {
					return
				}
				tick(rem)
				if rem == 0 {
					c.mu.Lock()
					if c.gen == gen {
						c.stopLocked()
					}
					c.mu.Unlock()
					return
				}
			}
		}
	}()
}

func (c *Countdown) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Countdown) current(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.stop != nil
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}
