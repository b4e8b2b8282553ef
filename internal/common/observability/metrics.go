package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records operation counts and durations through an OpenTelemetry
// meter exported in Prometheus format.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	opCounter     otelmetric.Int64Counter
	opDuration    otelmetric.Float64Histogram
}

// New registers the exporter with the default Prometheus registry.
func New(serviceName string) (*Observability, error) {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
}

func NewWithRegisterer(serviceName string, reg promclient.Registerer) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	opCounter, err := meter.Int64Counter(
		"operations_processed",
		otelmetric.WithDescription("Number of operations processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	opDuration, err := meter.Float64Histogram(
		"operations_duration",
		otelmetric.WithDescription("Operation processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		opCounter:     opCounter,
		opDuration:    opDuration,
	}, nil
}

// Record counts one finished operation and its duration.
func (o *Observability) Record(ctx context.Context, operation, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	o.opCounter.Add(ctx, 1, attrs)
	o.opDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown() error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
