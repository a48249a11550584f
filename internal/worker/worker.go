package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SinaHkz/typed-pipeline/internal/logging"
	"github.com/SinaHkz/typed-pipeline/pkg/backlog"
	"github.com/SinaHkz/typed-pipeline/pkg/middleware"
	"github.com/SinaHkz/typed-pipeline/pkg/queue"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Simulate returns a Processor that sleeps for duration(cost).
func Simulate(duration types.DurationFunc, sleep types.Sleeper) types.Processor {
	return func(ctx context.Context, w types.WorkItem) error {
		return sleep(ctx, duration(w.Cost))
	}
}

// Worker drains the queue of a single kind.
type Worker struct {
	kind     types.Kind
	queue    *queue.Queue
	events   chan<- types.Event
	duration types.DurationFunc
	sleep    types.Sleeper
	process  types.Processor // nil means Simulate(duration, sleep)
	mws      []middleware.Middleware
	backlog  *backlog.Counter
	logger   *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithDuration sets the cost to processing-time mapping.
func WithDuration(d types.DurationFunc) Option {
	return func(w *Worker) { w.duration = d }
}

// WithSleeper replaces the real-clock sleep used by the default processor.
func WithSleeper(s types.Sleeper) Option {
	return func(w *Worker) { w.sleep = s }
}

// WithProcessor replaces the simulated processing.
func WithProcessor(p types.Processor) Option {
	return func(w *Worker) { w.process = p }
}

// WithMiddleware wraps every item's processing, first one outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(w *Worker) { w.mws = append(w.mws, mws...) }
}

// WithBacklog decrements c for every processed item.
func WithBacklog(c *backlog.Counter) Option {
	return func(w *Worker) { w.backlog = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// New returns the Worker for kind reading from q.
func New(kind types.Kind, q *queue.Queue, events chan<- types.Event, opts ...Option) *Worker {
	w := &Worker{
		kind:     kind,
		queue:    q,
		events:   events,
		duration: types.Linear(time.Millisecond),
		sleep:    types.Sleep,
		backlog:  new(backlog.Counter),
		logger:   logging.Discard(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.process == nil {
		w.process = Simulate(w.duration, w.sleep)
	}
	w.process = middleware.Wrap(w.process, w.mws...)
	w.logger = w.logger.With(slog.String("kind", string(kind)))
	return w
}

// Kind returns the kind this worker serves.
func (w *Worker) Kind() types.Kind { return w.kind }

// Run processes items until its KindComplete sentinel arrives and returns nil.
// A failing item is reported on its Processed event and does not stop the
// worker. If ctx is cancelled Run returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker starting")
	processed, failed := 0, 0

	for {
		m, err := w.queue.Pop(ctx)
		if err != nil {
			return w.stopped(ctx, processed, err)
		}
		if m.IsCompletion() {
			w.logger.InfoContext(ctx, "worker finished", slog.Int("processed", processed), slog.Int("failed", failed))
			return nil
		}

		item, _ := m.Item()
		err = w.process(ctx, item)
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// interrupted mid-item, not a processing fault
			return w.stopped(ctx, processed, ctx.Err())
		}

		processed++
		if err != nil {
			failed++
		}
		w.events <- types.Event{
			Type:    types.Processed,
			ItemID:  item.ID,
			Kind:    item.Kind,
			Elapsed: w.duration(item.Cost),
			Err:     err,
			At:      time.Now(),
		}
		w.backlog.Dec()
	}
}

func (w *Worker) stopped(ctx context.Context, processed int, err error) error {
	w.logger.InfoContext(ctx, "worker interrupted", slog.Int("processed", processed), slog.String("error", err.Error()))
	return err
}
