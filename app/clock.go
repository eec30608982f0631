package app

import (
	"sync"
	"time"
)

// SampleClock is a trip.Clock driven by recorded sample times,
// so replayed trips measure elapsed time as it was recorded.
// Until a timed sample is observed it reads the wall clock.
type SampleClock struct {
	mu sync.Mutex
	t  time.Time
}

// Observe advances the clock to t. Earlier times are ignored.
func (c *SampleClock) Observe(t time.Time) {
	if t.IsZero() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.t) {
		c.t = t
	}
}

func (c *SampleClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t.IsZero() {
		return time.Now()
	}
	return c.t
}
