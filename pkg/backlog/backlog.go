package backlog

import "sync/atomic"

// Counter is a threadsafe count of items generated but not yet processed.
type Counter struct {
	n    atomic.Int64
	peak atomic.Int64
}

// Inc records a newly generated item.
func (c *Counter) Inc() {
	n := c.n.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Dec records a finished item.
func (c *Counter) Dec() {
	c.n.Add(-1)
}

// Load returns the current backlog.
func (c *Counter) Load() int64 {
	return c.n.Load()
}

// Peak returns the highest backlog observed.
func (c *Counter) Peak() int64 {
	return c.peak.Load()
}
