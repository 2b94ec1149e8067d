// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the otel meter for the triage workflow. Metrics are
// exported through the Prometheus registry served by cmd/triage-manager.
type Observability struct {
	meterProvider     *metric.MeterProvider
	meter             otelmetric.Meter
	runCounter        otelmetric.Int64Counter
	stageDuration     otelmetric.Float64Histogram
	revisionHistogram otelmetric.Int64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"triage.runs",
		otelmetric.WithDescription("Workflow runs by terminal state"),
	)

	stageDuration, _ := meter.Float64Histogram(
		"triage.stage.duration",
		otelmetric.WithDescription("Per-stage duration"),
		otelmetric.WithUnit("ms"),
	)

	revisionHistogram, _ := meter.Int64Histogram(
		"triage.revisions",
		otelmetric.WithDescription("Revision count at run termination"),
	)

	return &Observability{
		meterProvider:     provider,
		meter:             meter,
		runCounter:        runCounter,
		stageDuration:     stageDuration,
		revisionHistogram: revisionHistogram,
	}
}

// RecordRun counts one terminal workflow outcome.
func (o *Observability) RecordRun(ctx context.Context, state string, category string, revisions int) {
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("state", state),
			attribute.String("category", category),
		))
	}
	if o.revisionHistogram != nil {
		o.revisionHistogram.Record(ctx, int64(revisions), otelmetric.WithAttributes(
			attribute.String("state", state),
		))
	}
}

// RecordStageDuration records the elapsed time of one workflow stage.
func (o *Observability) RecordStageDuration(ctx context.Context, stage string, duration time.Duration) {
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("stage", stage),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
