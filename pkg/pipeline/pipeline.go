// Package pipeline runs one batch through the generator -> dispatcher ->
// per-kind worker pipeline and reports every step as an Event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/SinaHkz/typed-pipeline/internal/collector"
	"github.com/SinaHkz/typed-pipeline/internal/logging"
	"github.com/SinaHkz/typed-pipeline/internal/producer"
	"github.com/SinaHkz/typed-pipeline/internal/supervisor"
	"github.com/SinaHkz/typed-pipeline/pkg/backlog"
	"github.com/SinaHkz/typed-pipeline/pkg/config"
	"github.com/SinaHkz/typed-pipeline/pkg/middleware"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// ErrCancelled is returned by Run.Wait when the run was stopped before the
// batch completed.
var ErrCancelled = errors.New("pipeline: cancelled before completion")

type options struct {
	sink       types.Sink
	logger     *slog.Logger
	source     types.Source
	sleeper    types.Sleeper
	duration   types.DurationFunc
	processor  types.Processor
	middleware []middleware.Middleware
}

// Option configures a run.
type Option func(*options)

// WithSink receives every event of the run from a single goroutine.
func WithSink(s types.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSource replaces the random draw of interval, kind and cost.
func WithSource(s types.Source) Option {
	return func(o *options) { o.source = s }
}

// WithSleeper replaces the real clock for generator pauses and simulated
// processing.
func WithSleeper(s types.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithDuration replaces the cost to processing-time mapping
// (default cost * cost_unit).
func WithDuration(d types.DurationFunc) Option {
	return func(o *options) { o.duration = d }
}

// WithProcessor replaces the simulated processing of each item.
func WithProcessor(p types.Processor) Option {
	return func(o *options) { o.processor = p }
}

// WithMiddleware adds processing middleware after the built-in
// recover and logging layers.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// Stats is a point-in-time view of a run.
type Stats struct {
	collector.Counts
	Backlog     int64 // generated but not yet processed
	PeakBacklog int64
	IntakeDepth int
	QueueDepths map[types.Kind]int
}

// Run is the handle of a started pipeline.
type Run struct {
	id      string
	sup     *supervisor.Supervisor
	col     *collector.Collector
	backlog *backlog.Counter
	logger  *slog.Logger

	done chan struct{}
	err  error
}

// Start validates cfg and starts the pipeline. Invalid configuration is
// rejected with an error wrapping config.ErrInvalidConfig before anything
// runs. Cancelling ctx stops the run.
func Start(ctx context.Context, cfg config.Pipeline, opts ...Option) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:   logging.Discard(),
		sleeper:  types.Sleep,
		duration: types.Linear(cfg.CostUnit),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = producer.NewRandomSource(producer.Ranges{
			Kinds:       cfg.Kinds,
			IntervalMin: cfg.IntervalMin,
			IntervalMax: cfg.IntervalMax,
			CostMin:     cfg.CostMin,
			CostMax:     cfg.CostMax,
		}, nil)
	}

	r := &Run{
		id:      uuid.NewString(),
		backlog: new(backlog.Counter),
		done:    make(chan struct{}),
	}
	r.logger = o.logger.With(slog.String("run_id", r.id))

	mws := append([]middleware.Middleware{
		middleware.Recover(r.logger),
		middleware.Logging(r.logger),
	}, o.middleware...)

	events := make(chan types.Event, cfg.EventBuffer)
	var wg sync.WaitGroup

	r.col = collector.Start(events, o.sink, &wg)
	r.sup = supervisor.New(supervisor.Config{
		BatchSize:      cfg.BatchSize,
		Kinds:          cfg.Kinds,
		IntakeCapacity: cfg.IntakeCapacity,
		KindCapacity:   cfg.KindCapacity,
		MaxRate:        cfg.MaxRate,
		Source:         o.source,
		Sleeper:        o.sleeper,
		Duration:       o.duration,
		Processor:      o.processor,
		Middleware:     mws,
	}, ctx, events, r.backlog, &wg, r.logger)

	r.logger.Info("pipeline starting",
		slog.Int("batch_size", cfg.BatchSize),
		slog.Any("kinds", cfg.Kinds),
		slog.Int("intake_capacity", cfg.IntakeCapacity),
	)
	r.sup.Start()

	go func() {
		wg.Wait()
		if err := r.sup.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.err = fmt.Errorf("%w: %w", ErrCancelled, err)
			} else {
				r.err = fmt.Errorf("pipeline: run failed: %w", err)
			}
		}
		close(r.done)
	}()

	return r, nil
}

// ID identifies the run in logs.
func (r *Run) ID() string { return r.id }

// Done is closed once every stage has stopped and every event has been
// delivered to the sink.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until Done and returns nil if the batch completed. Every call
// after that returns the same result immediately.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Stop cancels the run without waiting for it; follow with Wait.
func (r *Run) Stop() { r.sup.Stop() }

// Backlog is the number of items generated but not yet processed.
func (r *Run) Backlog() int64 { return r.backlog.Load() }

// Stats returns a snapshot of the run's counters and queue depths.
func (r *Run) Stats() Stats {
	intake, perKind := r.sup.Depths()
	return Stats{
		Counts:      r.col.Counts(),
		Backlog:     r.backlog.Load(),
		PeakBacklog: r.backlog.Peak(),
		IntakeDepth: intake,
		QueueDepths: perKind,
	}
}
