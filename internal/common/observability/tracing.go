// internal/common/observability/tracing.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wires the Jaeger exporter for per-stage workflow spans. When no
// collector endpoint is configured callers get a no-op tracer.
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

func NewTracing(serviceName, collectorEndpoint string) (*Tracing, error) {
	if collectorEndpoint == "" {
		return &Tracing{tracer: otel.Tracer(serviceName)}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(collectorEndpoint),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return &Tracing{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}, nil
}

// StartStage opens a span for one workflow stage.
func (t *Tracing) StartStage(ctx context.Context, stage string, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, stage, trace.WithAttributes(
		attribute.String("triage.run_id", runID),
	))
}

func (t *Tracing) Shutdown() {
	if t.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.provider.Shutdown(ctx)
	}
}
