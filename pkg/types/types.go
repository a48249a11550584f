package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrItemFailed is returned by a processing handler to indicate
// that the simulated processing of an item failed.
var ErrItemFailed = errors.New("simulated processing failure")

// Kind tags a WorkItem and selects the queue and worker that handle it.
type Kind string

// WorkItem represents a single unit of work produced by the Generator,
// routed by the Dispatcher and consumed by exactly one Worker.
type WorkItem struct {
	ID   int  // 1..N, assigned by the Generator
	Kind Kind // selects the per-kind queue
	Cost int  // proportional to simulated processing time
}

func (w WorkItem) String() string {
	return fmt.Sprintf("id=%d %s cost=%d", w.ID, w.Kind, w.Cost)
}

// ─── queue messages ────────────────────────────────────────────────────────

type scope uint8

const (
	scopeItem scope = iota
	scopeBatch
	scopeKind
)

// Message is what travels through every queue: either a real WorkItem or a
// completion sentinel saying nothing else will follow on that queue.
type Message struct {
	scope scope
	item  WorkItem
	kind  Kind
}

// ItemMessage wraps a WorkItem.
func ItemMessage(w WorkItem) Message { return Message{scope: scopeItem, item: w, kind: w.Kind} }

// BatchComplete is the sentinel the Generator pushes after its last item.
func BatchComplete() Message { return Message{scope: scopeBatch} }

// KindComplete is the sentinel the Dispatcher pushes into the queue of k.
func KindComplete(k Kind) Message { return Message{scope: scopeKind, kind: k} }

// Item returns the wrapped WorkItem; ok is false for sentinels.
func (m Message) Item() (w WorkItem, ok bool) {
	if m.scope != scopeItem {
		return WorkItem{}, false
	}
	return m.item, true
}

// IsCompletion reports whether m is a sentinel of either scope.
func (m Message) IsCompletion() bool { return m.scope != scopeItem }

// IsBatchComplete reports whether m is the intake sentinel.
func (m Message) IsBatchComplete() bool { return m.scope == scopeBatch }

// Kind is the item's kind, or the kind a KindComplete sentinel closes.
// Empty for BatchComplete.
func (m Message) Kind() Kind { return m.kind }

func (m Message) String() string {
	switch m.scope {
	case scopeBatch:
		return "<batch complete>"
	case scopeKind:
		return fmt.Sprintf("<%s complete>", m.kind)
	default:
		return m.item.String()
	}
}

// ─── observable events ─────────────────────────────────────────────────────

// EventType identifies the stage that emitted an Event.
type EventType uint8

const (
	Generated EventType = iota + 1
	Routed
	Processed
	Complete
)

func (t EventType) String() string {
	switch t {
	case Generated:
		return "generated"
	case Routed:
		return "routed"
	case Processed:
		return "processed"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is emitted by the pipeline stages and delivered to the host's sink.
// Fields not relevant to Type are zero.
type Event struct {
	Type   EventType
	ItemID int
	Kind   Kind

	// Cost is set on Generated only.
	Cost int

	// Elapsed is set on Processed only. It is the item's simulated
	// processing time, DurationFunc(cost), even when a custom Processor
	// replaces the simulation; wall-clock time goes to the metrics
	// middleware.
	Elapsed time.Duration

	// Err is set on Processed only; nil on success.
	Err error

	At time.Time
}

// Sink receives every Event of a run, in emission order, from one goroutine.
type Sink func(Event)

// ─── injectable timing ─────────────────────────────────────────────────────

// Sleeper pauses for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// DurationFunc maps an item's cost to its simulated processing time.
type DurationFunc func(cost int) time.Duration

// Sleep is the real-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Linear returns a DurationFunc of cost*unit.
func Linear(unit time.Duration) DurationFunc {
	return func(cost int) time.Duration { return time.Duration(cost) * unit }
}

// Source draws the randomized parts of each generated item.
// It is only ever called from the Generator's goroutine.
type Source interface {
	Interval() time.Duration // pause before the next item
	Kind() Kind
	Cost() int
}

// Processor performs the work for one item.
type Processor func(ctx context.Context, w WorkItem) error
