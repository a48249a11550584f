package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WithSignal returns a child context that is cancelled when the process gets
// SIGINT/SIGTERM or the parent is done. Call cancel to release the signal
// handler once the context is no longer needed.
func WithSignal(parent context.Context, logger *slog.Logger) (ctx context.Context, cancel context.CancelFunc) {
	return withSignals(parent, logger, os.Interrupt, syscall.SIGTERM)
}

func withSignals(parent context.Context, logger *slog.Logger, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		select {
		case <-ctx.Done():
		case sig := <-ch:
			logger.Info("shutdown signal received", slog.String("signal", sig.String()))
			cancel()
		}
	}()

	return ctx, cancel
}
