package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SinaHkz/typed-pipeline/internal/logging"
	"github.com/SinaHkz/typed-pipeline/pkg/queue"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

var (
	// ErrUnknownKind is returned when an item's kind has no queue.
	ErrUnknownKind = errors.New("dispatcher: unknown kind")
	// ErrStraySentinel is returned when a KindComplete arrives on intake.
	ErrStraySentinel = errors.New("dispatcher: kind sentinel on intake")
)

// Dispatcher moves items from the intake queue to the queue of their kind.
type Dispatcher struct {
	intake *queue.Queue
	kinds  []types.Kind // broadcast order for the completion sentinels
	routes map[types.Kind]*queue.Queue
	events chan<- types.Event
	logger *slog.Logger
}

// New returns a Dispatcher over routes. kinds fixes the order in which the
// completion sentinels are sent and must name every key of routes.
func New(intake *queue.Queue, kinds []types.Kind, routes map[types.Kind]*queue.Queue, events chan<- types.Event, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		intake: intake,
		kinds:  kinds,
		routes: routes,
		events: events,
		logger: logger,
	}
}

// Run routes items until the BatchComplete sentinel arrives, then pushes one
// KindComplete sentinel into every kind queue and returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "dispatcher starting", slog.Int("kinds", len(d.kinds)))
	routed := 0

	for {
		m, err := d.intake.Pop(ctx)
		if err != nil {
			d.logger.InfoContext(ctx, "dispatcher interrupted", slog.Int("routed", routed), slog.String("error", err.Error()))
			return err
		}

		if m.IsCompletion() {
			if !m.IsBatchComplete() {
				return fmt.Errorf("%w: %s", ErrStraySentinel, m)
			}
			if err := d.broadcast(ctx); err != nil {
				return err
			}
			d.logger.InfoContext(ctx, "dispatcher finished", slog.Int("routed", routed))
			return nil
		}

		item, _ := m.Item()
		q, ok := d.routes[item.Kind]
		if !ok {
			d.logger.ErrorContext(ctx, "item has no route",
				slog.Int("item_id", item.ID),
				slog.String("kind", string(item.Kind)),
			)
			return fmt.Errorf("%w %q (item %d)", ErrUnknownKind, item.Kind, item.ID)
		}

		if err := q.Push(ctx, m); err != nil {
			d.logger.InfoContext(ctx, "dispatcher interrupted", slog.Int("routed", routed), slog.String("error", err.Error()))
			return err
		}
		routed++
		d.events <- types.Event{Type: types.Routed, ItemID: item.ID, Kind: item.Kind, At: time.Now()}
		d.logger.DebugContext(ctx, "item routed", slog.Int("item_id", item.ID), slog.String("kind", string(item.Kind)))
	}
}

// broadcast closes every kind queue, including ones that received nothing.
func (d *Dispatcher) broadcast(ctx context.Context) error {
	for _, k := range d.kinds {
		if err := d.routes[k].Push(ctx, types.KindComplete(k)); err != nil {
			return fmt.Errorf("dispatcher: close %s queue: %w", k, err)
		}
	}
	return nil
}
