// Package chio instruments the io.Reader and io.Writer boundaries of
// the SDK: the monitored response bodies being read by the caller and
// the demo sink being written. It accounts transferred bytes, transfer
// time and errors on the SDK's own telemetry.
package chio

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	chconfig "github.com/coolhand-ai/coolhand-go/config"
)

// instruments groups what is reported per transfer: size in bytes,
// time in seconds and an error counter.
type instruments struct {
	fixedAttrs []attribute.KeyValue

	sizeCount     metric.Int64Counter
	sizeHistogram metric.Int64Histogram
	timeHistogram metric.Float64Histogram
	errorsCount   metric.Int64Counter

	tracer    trace.Tracer
	traceName string

	// precomputed option sets, kept off the read path
	attrsOpt        metric.MeasurementOption
	attrsWithErrOpt metric.MeasurementOption
}

func newInstruments(prefix string, attrs []attribute.KeyValue,
	tracer trace.Tracer, meter metric.Meter,
) *instruments {
	if prefix == "" {
		prefix = "coolhand.io."
	}
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter(prefix + "nop")
	}
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(prefix + "nop")
	}

	sizeCount, _ := meter.Int64Counter(prefix+"size", metric.WithUnit("b"))
	sizeHistogram, _ := meter.Int64Histogram(prefix+"size-hist", chconfig.SizeBucketsOpt, metric.WithUnit("b"))
	timeHistogram, _ := meter.Float64Histogram(prefix+"time-hist", chconfig.TimeBucketsOpt, metric.WithUnit("s"))
	errorsCount, _ := meter.Int64Counter(prefix + "errors")

	fixedAttrs := make([]attribute.KeyValue, len(attrs))
	copy(fixedAttrs, attrs)
	withErr := make([]attribute.KeyValue, len(fixedAttrs)+1)
	copy(withErr, fixedAttrs)
	withErr[len(fixedAttrs)] = attribute.Bool("error", true)

	return &instruments{
		fixedAttrs:      fixedAttrs,
		sizeCount:       sizeCount,
		sizeHistogram:   sizeHistogram,
		timeHistogram:   timeHistogram,
		errorsCount:     errorsCount,
		tracer:          tracer,
		traceName:       prefix + "transfer",
		attrsOpt:        metric.WithAttributeSet(attribute.NewSet(fixedAttrs...)),
		attrsWithErrOpt: metric.WithAttributeSet(attribute.NewSet(withErr...)),
	}
}
