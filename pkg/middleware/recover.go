package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Recover converts a panic in the rest of the chain into an error, so one
// bad item cannot take its worker down.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, w types.WorkItem, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "item processing panicked",
					slog.Int("item_id", w.ID),
					slog.String("kind", string(w.Kind)),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic processing item %d: %v", w.ID, r)
			}
		}()
		return next(ctx)
	}
}
