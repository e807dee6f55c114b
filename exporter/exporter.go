// Package exporter defines the interfaces to plug exporters for the
// SDK's own health telemetry, and builds the configured instances.
// These exporters never see captured LLM exchange data: that goes
// through the delivery queue. They only carry the SDK's self
// reported metrics and traces.
package exporter

import (
	"context"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/coolhand-ai/coolhand-go/config"
	"github.com/coolhand-ai/coolhand-go/exporter/otelcollector"
	"github.com/coolhand-ai/coolhand-go/exporter/prometheus"
)

// MetricReader is what a metrics exporter must provide.
type MetricReader interface {
	MetricReader(reportingPeriod time.Duration) sdkmetric.Reader
	MetricDefaultReporting() bool
}

// SpanExporter is what a traces exporter must provide.
type SpanExporter interface {
	SpanExporter() sdktrace.SpanExporter
	TraceDefaultReporting() bool
}

// Instances builds every exporter named by the telemetry
// configuration. A nil configuration yields empty maps: the SDK then
// reports nothing about itself.
func Instances(ctx context.Context, cfg *config.TelemetryOpts) (map[string]MetricReader, map[string]SpanExporter, error) {
	m := make(map[string]MetricReader)
	s := make(map[string]SpanExporter)
	if cfg == nil {
		return m, s, nil
	}

	for idx, ecfg := range cfg.OTLP {
		c, err := otelcollector.Exporter(ctx, ecfg)
		if err != nil {
			return nil, nil, fmt.Errorf("OTLP exporter %s (at idx %d) failed: %s", ecfg.Name, idx, err.Error())
		}
		m[ecfg.Name] = c
		s[ecfg.Name] = c
	}

	for idx, ecfg := range cfg.Prometheus {
		c, err := prometheus.Exporter(ctx, ecfg)
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus exporter %s (at idx %d) failed: %s", ecfg.Name, idx, err.Error())
		}
		m[ecfg.Name] = c
	}
	return m, s, nil
}
