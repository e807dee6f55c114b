// Package state packs into a single structure everything the SDK
// components share for the process lifetime: the configuration
// snapshot, the session identity, the internal logger and the
// telemetry instruments.
package state

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/luraproject/lura/v2/logging"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/coolhand-ai/coolhand-go/config"
	"github.com/coolhand-ai/coolhand-go/exporter"
)

const providerName string = "ai.coolhand.coolhand-go"

// Coolhand is the narrow view the other components need from the
// process state.
type Coolhand interface {
	Config() *config.ConfigData
	SessionID() string
	Logger() logging.Logger
	Meter() metric.Meter
	Tracer() trace.Tracer
	Shutdown(ctx context.Context)
}

// State is the basic implementation of a [Coolhand] instance. The
// configuration is written once at construction and only read after
// that.
type State struct {
	cfg       *config.ConfigData
	sessionID string
	logger    logging.Logger

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	// the sdk implementations are kept to be able to shut down and
	// flush pending telemetry:
	sdkMeterProvider  *sdkmetric.MeterProvider
	sdkTracerProvider *sdktrace.TracerProvider

	meter  metric.Meter
	tracer trace.Tracer
}

var _ Coolhand = (*State)(nil)

// New builds the process state for a validated configuration, wiring
// the provided telemetry exporters. With no exporters the telemetry
// side is noop and costs nothing on the capture path.
//
// A silent configuration forces [logging.NoOp] whatever logger is
// passed. A verbose one without an injected logger gets a stderr
// logger at INFO, or DEBUG when the config asks for it.
func New(cfg *config.ConfigData, l logging.Logger, version string,
	me map[string]exporter.MetricReader, te map[string]exporter.SpanExporter,
) (*State, error) {
	switch {
	case !cfg.Verbose():
		l = logging.NoOp
	case l == nil:
		level := "INFO"
		if cfg.Debug {
			level = "DEBUG"
		}
		logger, err := logging.NewLogger(level, os.Stderr, "[COOLHAND]")
		if err != nil {
			return nil, err
		}
		l = logger
	}

	res := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("coolhand-go"),
		semconv.ServiceVersion(version))

	reportingPeriod := 30 * time.Second
	if cfg.Telemetry != nil && cfg.Telemetry.MetricReportingPeriod != nil {
		reportingPeriod = time.Duration(*cfg.Telemetry.MetricReportingPeriod) * time.Second
	}

	metricOpts := make([]sdkmetric.Option, 0, len(me)+1)
	for _, m := range me {
		if !m.MetricDefaultReporting() {
			continue
		}
		metricOpts = append(metricOpts, sdkmetric.WithReader(m.MetricReader(reportingPeriod)))
	}

	var meterProvider metric.MeterProvider = noopmetric.NewMeterProvider()
	var sdkMeterProvider *sdkmetric.MeterProvider
	if len(metricOpts) > 0 {
		metricOpts = append(metricOpts, sdkmetric.WithResource(res))
		sdkMeterProvider = sdkmetric.NewMeterProvider(metricOpts...)
		meterProvider = sdkMeterProvider
	}

	traceOpts := make([]sdktrace.TracerProviderOption, 0, len(te)+1)
	for _, t := range te {
		if !t.TraceDefaultReporting() {
			continue
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(t.SpanExporter()))
	}

	var tracerProvider trace.TracerProvider = nooptrace.NewTracerProvider()
	var sdkTracerProvider *sdktrace.TracerProvider
	if len(traceOpts) > 0 {
		traceOpts = append(traceOpts, sdktrace.WithResource(res))
		sdkTracerProvider = sdktrace.NewTracerProvider(traceOpts...)
		tracerProvider = sdkTracerProvider
	}

	return &State{
		cfg:               cfg,
		sessionID:         uuid.NewString(),
		logger:            l,
		meterProvider:     meterProvider,
		tracerProvider:    tracerProvider,
		sdkMeterProvider:  sdkMeterProvider,
		sdkTracerProvider: sdkTracerProvider,
		meter:             meterProvider.Meter(providerName),
		tracer:            tracerProvider.Tracer(providerName),
	}, nil
}

// Config returns the configuration snapshot. Callers must treat it
// as read only.
func (s *State) Config() *config.ConfigData {
	return s.cfg
}

// SessionID identifies this process run in every delivered record.
func (s *State) SessionID() string {
	return s.sessionID
}

// Logger returns the internal verbose logging channel. It is
// [logging.NoOp] when the configuration is silent.
func (s *State) Logger() logging.Logger {
	return s.logger
}

// Meter returns a meter to create the SDK health instruments.
func (s *State) Meter() metric.Meter {
	return s.meter
}

// Tracer returns a tracer to start SDK health spans.
func (s *State) Tracer() trace.Tracer {
	return s.tracer
}

// Shutdown flushes pending telemetry.
func (s *State) Shutdown(ctx context.Context) {
	if s.sdkTracerProvider != nil {
		s.sdkTracerProvider.Shutdown(ctx)
	}
	if s.sdkMeterProvider != nil {
		s.sdkMeterProvider.Shutdown(ctx)
	}
}
