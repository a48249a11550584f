package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/SinaHkz/typed-pipeline/pkg/middleware"
	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func TestTracing_CreatesSpan(t *testing.T) {
	sr, tracer := setupTestTracer()

	err := middleware.TracingWithTracer(tracer)(context.Background(), testItem, func(_ context.Context) error {
		return nil
	})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.item.process", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, a := range spans[0].Attributes() {
		attrs[a.Key] = a.Value
	}
	assert.EqualValues(t, 4, attrs["pipeline.item.id"].AsInt64())
	assert.Equal(t, "JSON", attrs["pipeline.item.kind"].AsString())
	assert.EqualValues(t, 30, attrs["pipeline.item.cost"].AsInt64())
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()

	err := middleware.TracingWithTracer(tracer)(context.Background(), testItem, func(_ context.Context) error {
		return types.ErrItemFailed
	})
	require.ErrorIs(t, err, types.ErrItemFailed)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, types.ErrItemFailed.Error(), spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events(), "error should be recorded as a span event")
}

func TestTracing_PropagatesSpanContext(t *testing.T) {
	_, tracer := setupTestTracer()

	err := middleware.TracingWithTracer(tracer)(context.Background(), testItem, func(ctx context.Context) error {
		assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
		return nil
	})
	require.NoError(t, err)
}
