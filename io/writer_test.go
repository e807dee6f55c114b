package chio

import (
	"bytes"
	"context"
	"testing"
)

func TestTrackedWriter(t *testing.T) {
	tt := newTestTelemetry()
	wrap := NewWriterFactory("test.write.", nil,
		tt.tracerProvider.Tracer("test"), tt.meterProvider.Meter("test"))

	var buf bytes.Buffer
	w := wrap(&buf, context.Background())
	payload := []byte("hello sink")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if buf.String() != string(payload) {
		t.Errorf("payload altered, want: %q, got: %q", payload, buf.String())
	}
	if got := tt.sum(t, "test.write.size"); got != int64(len(payload)) {
		t.Errorf("accounted size, want: %d, got: %d", len(payload), got)
	}
	if spans := tt.spanRecorder.Ended(); len(spans) != 1 {
		t.Errorf("spans, want: 1, got: %d", len(spans))
	}
}
