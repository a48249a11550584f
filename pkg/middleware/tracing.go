package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

const tracerName = "github.com/SinaHkz/typed-pipeline"

// Tracing wraps each item in a span from the global TracerProvider.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer is Tracing with an explicit tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, w types.WorkItem, next Handler) error {
		ctx, span := tracer.Start(ctx, "pipeline.item.process",
			trace.WithAttributes(
				attribute.Int("pipeline.item.id", w.ID),
				attribute.String("pipeline.item.kind", string(w.Kind)),
				attribute.Int("pipeline.item.cost", w.Cost),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
