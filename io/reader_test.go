package chio

import (
	"context"
	"io"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	sdktracetest "go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testTelemetry struct {
	metricReader *sdkmetric.ManualReader
	spanRecorder *sdktracetest.SpanRecorder

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

func newTestTelemetry() *testTelemetry {
	metricReader := sdkmetric.NewManualReader()
	spanRecorder := sdktracetest.NewSpanRecorder()
	return &testTelemetry{
		metricReader:   metricReader,
		spanRecorder:   spanRecorder,
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)),
		tracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder)),
	}
}

func (tt *testTelemetry) sum(t *testing.T, name string) int64 {
	t.Helper()
	mdata := metricdata.ResourceMetrics{}
	if err := tt.metricReader.Collect(context.Background(), &mdata); err != nil {
		t.Fatalf("cannot collect the recorded metrics: %v", err)
	}
	for _, sm := range mdata.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is not an int64 sum: %#v", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return 0
}

func TestTrackedReader(t *testing.T) {
	tt := newTestTelemetry()
	wrap := NewReaderFactory("test.read.",
		[]attribute.KeyValue{attribute.String("test-attr", "a")},
		tt.tracerProvider.Tracer("test"), tt.meterProvider.Meter("test"))

	payload := "foo bar"
	r := wrap(strings.NewReader(payload), context.Background())
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	r.Close()

	if string(b) != payload {
		t.Errorf("payload altered, want: %q, got: %q", payload, string(b))
	}
	if got := tt.sum(t, "test.read.size"); got != int64(len(payload)) {
		t.Errorf("accounted size, want: %d, got: %d", len(payload), got)
	}
	if spans := tt.spanRecorder.Ended(); len(spans) != 1 {
		t.Errorf("spans, want: 1, got: %d", len(spans))
	}
}

func TestTrackedReaderReportsOnce(t *testing.T) {
	tt := newTestTelemetry()
	wrap := NewReaderFactory("test.read.", nil,
		tt.tracerProvider.Tracer("test"), tt.meterProvider.Meter("test"))

	r := wrap(strings.NewReader("xy"), context.Background())
	io.ReadAll(r) // hits EOF, closes the accounting
	r.Close()     // must not report again

	if got := tt.sum(t, "test.read.size"); got != 2 {
		t.Errorf("accounted size, want: 2, got: %d", got)
	}
	if spans := tt.spanRecorder.Ended(); len(spans) != 1 {
		t.Errorf("spans, want: 1, got: %d", len(spans))
	}
}

func TestTrackedReaderUntouchedIsFree(t *testing.T) {
	tt := newTestTelemetry()
	wrap := NewReaderFactory("test.read.", nil,
		tt.tracerProvider.Tracer("test"), tt.meterProvider.Meter("test"))

	r := wrap(strings.NewReader("xy"), context.Background())
	r.Close()

	if spans := tt.spanRecorder.Ended(); len(spans) != 0 {
		t.Errorf("a reader never read from must not open a span, got: %d", len(spans))
	}
}
