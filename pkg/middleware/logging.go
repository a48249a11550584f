package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Logging logs the start and outcome of each item.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, w types.WorkItem, next Handler) error {
		logger.DebugContext(ctx, "item started",
			slog.Int("item_id", w.ID),
			slog.String("kind", string(w.Kind)),
			slog.Int("cost", w.Cost),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		switch {
		case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
			logger.InfoContext(ctx, "item interrupted",
				slog.Int("item_id", w.ID),
				slog.String("kind", string(w.Kind)),
				slog.Duration("elapsed", elapsed),
			)
		case err != nil:
			logger.ErrorContext(ctx, "item failed",
				slog.Int("item_id", w.ID),
				slog.String("kind", string(w.Kind)),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		default:
			logger.DebugContext(ctx, "item completed",
				slog.Int("item_id", w.ID),
				slog.String("kind", string(w.Kind)),
				slog.Duration("elapsed", elapsed),
			)
		}
		return err
	}
}
