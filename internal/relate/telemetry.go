package relate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/brplusa/spacelink/internal/relate"

const (
	// operationAttr is the attribute key naming the engine operation a record
	// belongs to, e.g. "CreateGroup".
	operationAttr = "relate.operation"
	// codeAttr is the attribute key carrying the ErrorCode of a failed operation.
	codeAttr = "relate.code"
)

// telemetry holds the tracer and instruments of one engine.
type telemetry struct {
	tracer trace.Tracer
	// duration measures the duration of successful engine operations.
	duration metric.Float64Histogram
	// failures counts failed engine operations, by operation and code.
	failures metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*telemetry, error) {
	meter := mp.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"relate.operation.duration",
		metric.WithDescription("The duration of a successful relationship engine operation."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("init 'relate.operation.duration' instrument: %w", err)
	}

	failures, err := meter.Int64Counter(
		"relate.operation.failures",
		metric.WithDescription("The number of relationship engine operations that have failed."),
	)
	if err != nil {
		return nil, fmt.Errorf("init 'relate.operation.failures' instrument: %w", err)
	}

	return &telemetry{
		tracer:   tp.Tracer(instrumentationName),
		duration: duration,
		failures: failures,
	}, nil
}

// noopTelemetry records nothing.
func noopTelemetry() *telemetry {
	t, _ := newTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	return t
}

// startOperation starts a span for op.
func (t *telemetry) startOperation(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(operationAttr, op))
	return t.tracer.Start(ctx, "relate."+op, trace.WithAttributes(attrs...))
}

// endOperation records the outcome of op on its span and in the metrics, then
// ends the span.
func (t *telemetry) endOperation(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	defer span.End()

	if err == nil {
		attrs := attribute.NewSet(attribute.String(operationAttr, op))
		// Floating-point division keeps sub-millisecond precision
		duration := float64(time.Since(start)) / float64(time.Millisecond)
		t.duration.Record(ctx, duration, metric.WithAttributeSet(attrs))
		return
	}

	code := CodeOf(err)
	var be *BatchError
	if errors.As(err, &be) {
		code = be.Code()
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(codeAttr, string(code)))

	attrs := attribute.NewSet(
		attribute.String(operationAttr, op),
		attribute.String(codeAttr, string(code)),
	)
	t.failures.Add(ctx, 1, metric.WithAttributeSet(attrs))
}
