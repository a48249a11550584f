// Package middleware provides composable wrappers around the processing of
// a single work item. Workers run every item through a chain built here
// (recover from panics, log, record metrics, trace).
package middleware

import (
	"context"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

// Handler is the terminal function that processes the item.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler. It must call next to continue the chain
// unless it short-circuits with an error.
type Middleware func(ctx context.Context, w types.WorkItem, next Handler) error

// Chain composes middleware so that the first one is the outermost:
//
//	Chain(logging, recover)  =>  logging -> recover -> handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, w types.WorkItem, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, w, prev)
			}
		}
		return h(ctx)
	}
}

// Wrap binds a Processor to the chain, producing a Processor again.
func Wrap(p types.Processor, mws ...Middleware) types.Processor {
	if len(mws) == 0 {
		return p
	}
	chain := Chain(mws...)
	return func(ctx context.Context, w types.WorkItem) error {
		return chain(ctx, w, func(ctx context.Context) error { return p(ctx, w) })
	}
}
