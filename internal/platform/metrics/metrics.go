package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps coarse in-process counters. Snapshot is what the
// /metrics endpoint serves; there is no external metrics backend.
type Collector struct {
	started time.Time

	requests    atomic.Uint64
	clientErrs  atomic.Uint64
	serverErrs  atomic.Uint64
	throttled   atomic.Uint64
	slow        atomic.Uint64
	durationSum atomic.Uint64
}

const slowThreshold = 500 * time.Millisecond

func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	switch {
	case status == 429:
		c.throttled.Add(1)
	case status >= 500:
		c.serverErrs.Add(1)
	case status >= 400:
		c.clientErrs.Add(1)
	}
	if duration >= slowThreshold {
		c.slow.Add(1)
	}
	c.durationSum.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := c.requests.Load()
	sumMs := c.durationSum.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(sumMs) / float64(total)
	}
	return map[string]any{
		"uptimeSeconds":    int64(time.Since(c.started).Seconds()),
		"requestsTotal":    total,
		"clientErrsTotal":  c.clientErrs.Load(),
		"serverErrsTotal":  c.serverErrs.Load(),
		"rateLimitedTotal": c.throttled.Load(),
		"slowTotal":        c.slow.Load(),
		"avgDurationMs":    avg,
	}
}
