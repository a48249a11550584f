package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SinaHkz/typed-pipeline/internal/dispatcher"
	"github.com/SinaHkz/typed-pipeline/internal/producer"
	"github.com/SinaHkz/typed-pipeline/internal/worker"
	"github.com/SinaHkz/typed-pipeline/pkg/backlog"
	"github.com/SinaHkz/typed-pipeline/pkg/middleware"
	"github.com/SinaHkz/typed-pipeline/pkg/queue"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

type Config struct {
	BatchSize      int
	Kinds          []types.Kind
	IntakeCapacity int
	KindCapacity   int     // 0 = unbounded
	MaxRate        float64 // items/s, 0 = off

	Source     types.Source
	Sleeper    types.Sleeper
	Duration   types.DurationFunc
	Processor  types.Processor // nil = simulated
	Middleware []middleware.Middleware
}

// Supervisor owns the queues and the K+2 stage goroutines of one run.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan types.Event
	wg     *sync.WaitGroup
	logger *slog.Logger

	intake *queue.Queue
	kinds  []types.Kind
	queues map[types.Kind]*queue.Queue

	generator  *producer.Generator
	dispatcher *dispatcher.Dispatcher
	workers    []*worker.Worker

	mu  sync.Mutex
	err error
}

// New builds the queues and stages. Nothing runs until Start.
// The supervisor closes events once every stage has returned.
func New(cfg Config, parent context.Context, events chan types.Event, bl *backlog.Counter, wg *sync.WaitGroup, logger *slog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		events: events,
		wg:     wg,
		logger: logger,
		intake: queue.New("intake", cfg.IntakeCapacity),
		kinds:  cfg.Kinds,
		queues: make(map[types.Kind]*queue.Queue, len(cfg.Kinds)),
	}
	s.logQueue(s.intake)

	s.generator = producer.New(cfg.BatchSize, cfg.Source, s.intake, events,
		producer.WithSleeper(cfg.Sleeper),
		producer.WithMaxRate(cfg.MaxRate),
		producer.WithBacklog(bl),
		producer.WithLogger(logger),
	)

	for _, k := range cfg.Kinds {
		q := queue.New(string(k), cfg.KindCapacity)
		s.queues[k] = q
		s.logQueue(q)

		opts := []worker.Option{
			worker.WithDuration(cfg.Duration),
			worker.WithSleeper(cfg.Sleeper),
			worker.WithMiddleware(cfg.Middleware...),
			worker.WithBacklog(bl),
			worker.WithLogger(logger),
		}
		if cfg.Processor != nil {
			opts = append(opts, worker.WithProcessor(cfg.Processor))
		}
		s.workers = append(s.workers, worker.New(k, q, events, opts...))
	}

	s.dispatcher = dispatcher.New(s.intake, cfg.Kinds, s.queues, events, logger)
	return s
}

// Start launches the generator, the dispatcher and one worker per kind.
// When all of them have returned it emits Complete (only if every stage
// finished through its sentinel) and closes the events channel.
func (s *Supervisor) Start() {
	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.generator.Run(ctx) })
	g.Go(func() error { return s.dispatcher.Run(ctx) })
	for _, w := range s.workers {
		s.logger.Debug("worker launched", slog.String("kind", string(w.Kind())))
		g.Go(func() error { return w.Run(ctx) })
	}
	s.logger.Info("pipeline started", slog.Int("stages", len(s.workers)+2))

	s.wg.Add(1)
	go func() {
		defer func() {
			s.cancel()
			close(s.events)
			s.wg.Done()
		}()

		err := g.Wait()
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("pipeline stopped before completion", slog.String("error", err.Error()))
			return
		}
		s.events <- types.Event{Type: types.Complete, At: time.Now()}
		s.logger.Info("pipeline complete")
	}()
}

func (s *Supervisor) logQueue(q *queue.Queue) {
	s.logger.Debug("queue created", slog.String("queue", q.Name()), slog.Int("capacity", q.Cap()))
}

// Stop cancels every stage; it does not wait.
func (s *Supervisor) Stop() { s.cancel() }

// Err is the first stage error, or nil after a clean completion.
// Only meaningful once the events channel has been closed.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Depths reports the buffered length of the intake and every kind queue.
func (s *Supervisor) Depths() (intake int, perKind map[types.Kind]int) {
	perKind = make(map[types.Kind]int, len(s.queues))
	for _, k := range s.kinds {
		perKind[k] = s.queues[k].Len()
	}
	return s.intake.Len(), perKind
}
