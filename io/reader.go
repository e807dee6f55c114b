package chio

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var _ io.ReadCloser = (*trackedReader)(nil)

// trackedReader accounts the bytes a caller actually reads from a
// monitored response body. Accounting closes on io.EOF or on Close,
// whichever the caller reaches first.
type trackedReader struct {
	reader io.ReadCloser
	track  transferTracking
}

// NewReaderFactory returns a wrapper function for readers sharing the
// same instruments, so the instruments are built once and not per
// response.
func NewReaderFactory(prefix string, attrs []attribute.KeyValue,
	tracer trace.Tracer, meter metric.Meter,
) func(io.Reader, context.Context) io.ReadCloser {
	if prefix == "" {
		prefix = "coolhand.read."
	}
	instr := newInstruments(prefix, attrs, tracer, meter)

	return func(r io.Reader, ctx context.Context) io.ReadCloser {
		rc, ok := r.(io.ReadCloser)
		if !ok {
			rc = io.NopCloser(r)
		}
		return &trackedReader{
			reader: rc,
			track:  transferTracking{instr: instr, ctx: ctx},
		}
	}
}

func (t *trackedReader) Read(b []byte) (int, error) {
	t.track.start()
	n, err := t.reader.Read(b)
	t.track.add(int64(n), err)
	return n, err
}

func (t *trackedReader) Close() error {
	err := t.reader.Close()
	t.track.end(err)
	return err
}
