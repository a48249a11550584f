// Package logging holds the slog plumbing shared by the pipeline stages.
package logging

import (
	"context"
	"io"
	"log/slog"
)

type disabledHandler struct{}

func (disabledHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (disabledHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (d disabledHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return d }
func (d disabledHandler) WithGroup(_ string) slog.Handler             { return d }

// Discard returns a logger that drops everything. Stages use it until the
// host supplies a real one.
func Discard() *slog.Logger {
	return slog.New(disabledHandler{})
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
