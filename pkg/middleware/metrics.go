package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/SinaHkz/typed-pipeline/pkg/types"
)

const meterName = "github.com/SinaHkz/typed-pipeline"

// Metrics records per-item instruments on the global MeterProvider; without
// one configured the instruments are noops.
//
// Instruments:
//   - pipeline.item.duration (Float64Histogram, seconds) by kind and status
//   - pipeline.item.processed (Int64Counter) by kind and status
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter is Metrics with an explicit meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// the API hands back noop instruments on error
	duration, _ := meter.Float64Histogram(
		"pipeline.item.duration",
		metric.WithDescription("Duration of item processing in seconds"),
		metric.WithUnit("s"),
	)
	processed, _ := meter.Int64Counter(
		"pipeline.item.processed",
		metric.WithDescription("Total number of processed items"),
		metric.WithUnit("{item}"),
	)

	return func(ctx context.Context, w types.WorkItem, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("kind", string(w.Kind)),
			attribute.String("status", status),
		)
		duration.Record(ctx, elapsed, attrs)
		processed.Add(ctx, 1, attrs)
		return err
	}
}
