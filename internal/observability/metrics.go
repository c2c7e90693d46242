// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// RegisterTaskCount exposes the number of stored tasks as an observable
// gauge, read from the store on every scrape. A count failure skips the
// observation instead of failing the scrape.
func RegisterTaskCount(count func(context.Context) (int64, error)) error {
	meter := otel.Meter("taskrunner")
	_, err := meter.Int64ObservableGauge(
		"taskrunner.tasks.count",
		api.WithDescription("Number of task definitions currently stored."),
		api.WithInt64Callback(func(ctx context.Context, o api.Int64Observer) error {
			n, err := count(ctx)
			if err != nil {
				return nil
			}
			o.Observe(n)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register task count gauge: %w", err)
	}
	return nil
}
