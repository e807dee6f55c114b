package client

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	chhttp "github.com/coolhand-ai/coolhand-go/http"
)

// TransportTracesOptions defines what information is enabled, and
// extra fixed attributes to add to the trace.
type TransportTracesOptions struct {
	RoundTrip       bool                 // use a span for the whole exchange
	ReadPayload     bool                 // use a span for reading the response body
	FixedAttributes []attribute.KeyValue // "static" attributes set at config time.
}

// Enabled returns if the transport should create a trace.
func (o *TransportTracesOptions) Enabled() bool {
	return o.RoundTrip || o.ReadPayload
}

type transportTraces struct {
	tracer     trace.Tracer
	spanName   string
	fixedAttrs []attribute.KeyValue
}

func newTransportTraces(tracesOpts *TransportTracesOptions, tracer trace.Tracer) *transportTraces {
	if tracer == nil || !tracesOpts.RoundTrip {
		return nil
	}

	return &transportTraces{
		tracer:     tracer,
		spanName:   "coolhand-exchange",
		fixedAttrs: tracesOpts.FixedAttributes,
	}
}

// start opens the exchange span. The monitored request itself is
// never mutated: only its context changes, through the shallow copy
// WithContext makes. In particular no propagation headers are
// injected towards the provider.
func (t *transportTraces) start(ext *exchangeTracking) {
	if t == nil || ext.req == nil {
		return
	}

	ctx, span := t.tracer.Start(ext.req.Context(), t.spanName, trace.WithSpanKind(trace.SpanKindClient))
	if span == nil || !span.IsRecording() {
		// we might not be recording because of sampling
		return
	}
	ext.span = span
	ext.req = ext.req.WithContext(ctx)

	ext.span.SetAttributes(t.fixedAttrs...)
	ext.span.SetAttributes(chhttp.TraceRequestAttrs(ext.req)...)
	ext.span.SetAttributes(attribute.Key("provider").String(ext.pattern.Name))
}

func (t *transportTraces) end(ext *exchangeTracking) {
	if t == nil || ext.span == nil || !ext.span.IsRecording() {
		return
	}

	if ext.err != nil {
		ext.span.RecordError(ext.err)
		ext.span.SetStatus(codes.Error, ext.err.Error())
	} else {
		ext.span.SetAttributes(chhttp.TraceResponseAttrs(ext.resp)...)
		ext.span.SetAttributes(
			attribute.Float64("response-duration", ext.latencyInSecs),
			attribute.Bool("streaming", ext.streaming),
		)
		if ext.record != nil && ext.record.Model != "" {
			ext.span.SetAttributes(attribute.Key("model").String(ext.record.Model))
		}
		ext.span.SetStatus(codes.Ok, "")
	}

	ext.span.End()
}
