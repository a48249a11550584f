package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/SinaHkz/typed-pipeline/internal/logging"
	"github.com/SinaHkz/typed-pipeline/internal/shutdown"
	"github.com/SinaHkz/typed-pipeline/internal/worker"
	"github.com/SinaHkz/typed-pipeline/pkg/config"
	"github.com/SinaHkz/typed-pipeline/pkg/middleware"
	"github.com/SinaHkz/typed-pipeline/pkg/pipeline"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "YAML file overriding the embedded defaults")
	flag.Parse()

	// ── load YAML ───────────────────────────────────────────────────────
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 2
	}
	logger := logging.New(os.Stderr, cfg.Level())

	// ── normal pipeline bootstrapping ───────────────────────────────────
	ctx, cancel := shutdown.WithSignal(context.Background(), logger)
	defer cancel()

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithSink(printEvent),
		pipeline.WithMiddleware(middleware.Metrics(), middleware.Tracing()),
	}
	if cfg.FaultRate > 0 {
		opts = append(opts, pipeline.WithProcessor(flaky(cfg.FaultRate, cfg.Pipeline)))
	}

	r, err := pipeline.Start(ctx, cfg.Pipeline, opts...)
	if err != nil {
		logger.Error("pipeline rejected", slog.String("error", err.Error()))
		return 2
	}

	logger.Info("🚀 pipeline running — press Ctrl+C to stop", slog.String("run_id", r.ID()))
	err = r.Wait()

	st := r.Stats()
	logger.Info("run summary",
		slog.Int("generated", st.Generated),
		slog.Int("processed", st.Processed),
		slog.Int("failed", st.Failed),
		slog.Int64("peak_backlog", st.PeakBacklog),
	)

	switch {
	case err == nil:
		logger.Info("✅ graceful exit complete")
		return 0
	case errors.Is(err, pipeline.ErrCancelled):
		logger.Warn("🛑 stopped before the batch completed", slog.Int64("backlog", st.Backlog))
		return 130
	default:
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		return 1
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func printEvent(ev types.Event) {
	switch ev.Type {
	case types.Generated:
		fmt.Printf("+ generated  id=%d %s cost=%d\n", ev.ItemID, ev.Kind, ev.Cost)
	case types.Routed:
		fmt.Printf("→ routed     id=%d %s\n", ev.ItemID, ev.Kind)
	case types.Processed:
		if ev.Err != nil {
			fmt.Printf("✗ processed  id=%d %s after %s, ERROR: %v\n", ev.ItemID, ev.Kind, ev.Elapsed, ev.Err)
		} else {
			fmt.Printf("✓ processed  id=%d %s in %s\n", ev.ItemID, ev.Kind, ev.Elapsed)
		}
	case types.Complete:
		fmt.Println("done")
	}
}

// flaky simulates processing and fails one out of every rate items.
func flaky(rate int, p config.Pipeline) types.Processor {
	sim := worker.Simulate(types.Linear(p.CostUnit), types.Sleep)
	return func(ctx context.Context, w types.WorkItem) error {
		if err := sim(ctx, w); err != nil {
			return err
		}
		if rand.IntN(rate) == 0 {
			return fmt.Errorf("item %d: %w", w.ID, types.ErrItemFailed)
		}
		return nil
	}
}
