package app

import (
	"sync"
	"time"
)

// Countdown ticks once per step until the duration runs out. Stop cancels it
// and waits for the timer goroutine, so no callback fires after Stop returns.
type Countdown struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu        sync.RWMutex
	remaining time.Duration
}

// StartCountdown runs onTick after every step with the remaining time and
// onExpire once when it reaches zero. Either callback may be nil.
func StartCountdown(total, step time.Duration, onTick func(time.Duration), onExpire func()) *Countdown {
	if step <= 0 {
		step = time.Second
	}
	c := &Countdown{
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		remaining: total,
	}
	go c.run(step, onTick, onExpire)
	return c
}

func (c *Countdown) run(step time.Duration, onTick func(time.Duration), onExpire func()) {
	defer close(c.done)
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.remaining -= step
			if c.remaining < 0 {
				c.remaining = 0
			}
			left := c.remaining
			c.mu.Unlock()

			if onTick != nil {
				onTick(left)
			}
			if left == 0 {
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

// Remaining returns the time left.
func (c *Countdown) Remaining() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remaining
}

// Done reports whether the countdown ran out or was stopped.
func (c *Countdown) Done() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Stop cancels the countdown and waits for it to exit. Safe to call twice.
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}
