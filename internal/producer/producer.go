package producer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/SinaHkz/typed-pipeline/internal/logging"
	"github.com/SinaHkz/typed-pipeline/pkg/backlog"
	"github.com/SinaHkz/typed-pipeline/pkg/queue"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Generator produces a fixed-size batch of items into the intake queue and
// closes the batch with a single BatchComplete sentinel.
type Generator struct {
	batchSize int
	source    types.Source
	sleep     types.Sleeper
	limiter   *rate.Limiter
	intake    *queue.Queue
	events    chan<- types.Event
	backlog   *backlog.Counter
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSleeper replaces the real-clock pause between items.
func WithSleeper(s types.Sleeper) Option {
	return func(g *Generator) { g.sleep = s }
}

// WithMaxRate caps generation at perSecond items per second. Zero disables it.
func WithMaxRate(perSecond float64) Option {
	return func(g *Generator) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithBacklog counts every generated item on c.
func WithBacklog(c *backlog.Counter) Option {
	return func(g *Generator) { g.backlog = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New returns a Generator for batchSize items drawn from source.
func New(batchSize int, source types.Source, intake *queue.Queue, events chan<- types.Event, opts ...Option) *Generator {
	g := &Generator{
		batchSize: batchSize,
		source:    source,
		sleep:     types.Sleep,
		intake:    intake,
		events:    events,
		backlog:   new(backlog.Counter),
		logger:    logging.Discard(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run generates items 1..batchSize, then pushes BatchComplete.
// If ctx is cancelled first it returns ctx.Err() and the sentinel is never sent.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.InfoContext(ctx, "producer starting", slog.Int("batch_size", g.batchSize))

	for id := 1; id <= g.batchSize; id++ {
		if err := g.sleep(ctx, g.source.Interval()); err != nil {
			return g.stopped(ctx, id-1, err)
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return g.stopped(ctx, id-1, err)
			}
		}

		item := types.WorkItem{ID: id, Kind: g.source.Kind(), Cost: g.source.Cost()}
		g.events <- types.Event{Type: types.Generated, ItemID: id, Kind: item.Kind, Cost: item.Cost, At: time.Now()}
		g.backlog.Inc()
		g.logger.DebugContext(ctx, "item generated", slog.Int("item_id", id), slog.String("kind", string(item.Kind)))

		// blocks while intake is full
		if err := g.intake.Push(ctx, types.ItemMessage(item)); err != nil {
			return g.stopped(ctx, id, err)
		}
	}

	if err := g.intake.Push(ctx, types.BatchComplete()); err != nil {
		return g.stopped(ctx, g.batchSize, err)
	}
	g.logger.InfoContext(ctx, "producer finished", slog.Int("generated", g.batchSize))
	return nil
}

func (g *Generator) stopped(ctx context.Context, generated int, err error) error {
	g.logger.InfoContext(ctx, "producer interrupted",
		slog.Int("generated", generated),
		slog.String("error", err.Error()),
	)
	return err
}
