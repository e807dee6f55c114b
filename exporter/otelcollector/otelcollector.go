// Package otelcollector exports the SDK health telemetry to an OTLP
// collector, over grpc or http.
package otelcollector

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/coolhand-ai/coolhand-go/config"
)

// OtelCollector bundles the OTLP trace and metric exporters for one
// configured endpoint.
type OtelCollector struct {
	exporter                 sdktrace.SpanExporter
	metricExporter           sdkmetric.Exporter
	metricsDisabledByDefault bool
	tracesDisabledByDefault  bool
}

// SpanExporter implements the interface to export traces.
func (c *OtelCollector) SpanExporter() sdktrace.SpanExporter {
	return c.exporter
}

func (c *OtelCollector) MetricReader(reportingPeriod time.Duration) sdkmetric.Reader {
	return sdkmetric.NewPeriodicReader(c.metricExporter,
		sdkmetric.WithInterval(reportingPeriod))
}

func (c *OtelCollector) MetricDefaultReporting() bool {
	return !c.metricsDisabledByDefault
}

func (c *OtelCollector) TraceDefaultReporting() bool {
	return !c.tracesDisabledByDefault
}

// Exporter creates the OTLP exporter for one endpoint. grpc is the
// default transport; grpc connections are created insecure because
// the health telemetry usually targets a local agent.
func Exporter(ctx context.Context, cfg config.OTLPExporter) (*OtelCollector, error) {
	if cfg.Port == 0 {
		cfg.Port = 4317
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var (
		spanExporter   sdktrace.SpanExporter
		metricExporter sdkmetric.Exporter
		err            error
	)
	if cfg.UseHTTP {
		spanExporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
		if err != nil {
			return nil, fmt.Errorf("cannot create http trace exporter: %s", err.Error())
		}
		metricExporter, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint))
		if err != nil {
			return nil, fmt.Errorf("cannot create http metric exporter: %s", err.Error())
		}
	} else {
		spanExporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("cannot create grpc trace exporter: %s", err.Error())
		}
		metricExporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("cannot create grpc metric exporter: %s", err.Error())
		}
	}

	return &OtelCollector{
		exporter:                 spanExporter,
		metricExporter:           metricExporter,
		metricsDisabledByDefault: cfg.DisableMetrics,
		tracesDisabledByDefault:  cfg.DisableTraces,
	}, nil
}
