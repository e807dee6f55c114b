package chio

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// transferTracking accumulates what one reader or writer moved. The
// span opens on the first byte, not on wrapper creation, and the
// metrics are reported once: either at EOF or at Close, whichever
// comes first.
type transferTracking struct {
	instr    *instruments
	ctx      context.Context
	span     trace.Span
	started  time.Time
	finished bool
	gotError error
	size     int64
}

func (t *transferTracking) start() {
	if t.started.IsZero() {
		t.started = time.Now()
		t.ctx, t.span = t.instr.tracer.Start(t.ctx, t.instr.traceName)
		if len(t.instr.fixedAttrs) > 0 {
			t.span.SetAttributes(t.instr.fixedAttrs...)
		}
	}
}

func (t *transferTracking) add(size int64, err error) {
	t.size += size
	if err != nil {
		t.end(err)
	}
}

func (t *transferTracking) end(err error) {
	if t.finished {
		return
	}
	if t.started.IsZero() {
		// nothing was ever transferred: no span, no metrics
		t.finished = true
		return
	}
	t.finished = true

	if err != nil && err != io.EOF {
		t.gotError = err
	}

	var attrsOpt metric.MeasurementOption
	if t.gotError != nil {
		attrsOpt = t.instr.attrsWithErrOpt
		t.instr.errorsCount.Add(t.ctx, 1, attrsOpt)
		t.span.RecordError(t.gotError)
		t.span.SetStatus(codes.Error, t.gotError.Error())
	} else {
		attrsOpt = t.instr.attrsOpt
		t.span.SetStatus(codes.Ok, "")
	}

	secs := float64(time.Since(t.started)) / float64(time.Second)
	t.instr.sizeCount.Add(t.ctx, t.size, attrsOpt)
	t.instr.sizeHistogram.Record(t.ctx, t.size, attrsOpt)
	t.instr.timeHistogram.Record(t.ctx, secs, attrsOpt)

	t.span.SetAttributes(
		attribute.Int64("transfer.size", t.size),
		attribute.Float64("transfer.time", secs))
	t.span.End()
}
