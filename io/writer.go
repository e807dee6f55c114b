package chio

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var _ io.WriteCloser = (*trackedWriter)(nil)

// trackedWriter accounts the bytes written to a sink (the demo mode
// local file).
type trackedWriter struct {
	writer io.Writer
	track  transferTracking
}

// NewWriterFactory returns a wrapper function for writers sharing the
// same instruments.
func NewWriterFactory(prefix string, attrs []attribute.KeyValue,
	tracer trace.Tracer, meter metric.Meter,
) func(io.Writer, context.Context) io.WriteCloser {
	if prefix == "" {
		prefix = "coolhand.write."
	}
	instr := newInstruments(prefix, attrs, tracer, meter)

	return func(w io.Writer, ctx context.Context) io.WriteCloser {
		return &trackedWriter{
			writer: w,
			track:  transferTracking{instr: instr, ctx: ctx},
		}
	}
}

func (t *trackedWriter) Write(b []byte) (int, error) {
	t.track.start()
	n, err := t.writer.Write(b)
	t.track.add(int64(n), err)
	return n, err
}

func (t *trackedWriter) Close() error {
	var err error
	if cl, ok := t.writer.(io.Closer); ok {
		err = cl.Close()
	}
	t.track.end(err)
	return err
}
