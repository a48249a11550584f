package collector

import (
	"maps"
	"sync"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Counts tallies the events seen so far.
type Counts struct {
	Generated int
	Routed    int
	Processed int
	Failed    int // Processed events carrying an error
	Complete  bool
	PerKind   map[types.Kind]int // Processed per kind
}

// Collector forwards every event to the sink and keeps Counts.
type Collector struct {
	sink types.Sink

	mu     sync.Mutex
	counts Counts
}

// Start drains events until the channel is closed, handing each one to sink
// (which may be nil) in arrival order. It signals wg when the channel is
// closed and drained; it never stops early so senders cannot get stuck.
func Start(events <-chan types.Event, sink types.Sink, wg *sync.WaitGroup) *Collector {
	c := &Collector{
		sink:   sink,
		counts: Counts{PerKind: make(map[types.Kind]int)},
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			c.record(ev)
			if c.sink != nil {
				c.sink(ev)
			}
		}
	}()
	return c
}

func (c *Collector) record(ev types.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case types.Generated:
		c.counts.Generated++
	case types.Routed:
		c.counts.Routed++
	case types.Processed:
		c.counts.Processed++
		c.counts.PerKind[ev.Kind]++
		if ev.Err != nil {
			c.counts.Failed++
		}
	case types.Complete:
		c.counts.Complete = true
	}
}

// Counts returns a snapshot.
func (c *Collector) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.counts
	out.PerKind = maps.Clone(c.counts.PerKind)
	return out
}
