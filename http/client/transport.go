package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/luraproject/lura/v2/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/coolhand-ai/coolhand-go/capture"
	"github.com/coolhand-ai/coolhand-go/delivery"
	chio "github.com/coolhand-ai/coolhand-go/io"
	"github.com/coolhand-ai/coolhand-go/provider"
	"github.com/coolhand-ai/coolhand-go/sanitize"
	"github.com/coolhand-ai/coolhand-go/state"
)

// TransportOptions gathers everything the transport needs: the
// provider registry deciding which hosts are monitored, the sanitizer
// and queue on the dispatch side, the shared process state, and the
// detail wanted for the SDK's own metrics and traces.
// See [TransportMetricsOptions] and [TransportTracesOptions].
type TransportOptions struct {
	Registry  *provider.Registry
	Sanitizer *sanitize.Sanitizer
	Queue     *delivery.Queue

	MetricsOpts TransportMetricsOptions
	TracesOpts  TransportTracesOptions

	Instance state.Coolhand
}

// readerWrapperFn defines a function to wrap a response body reader
type readerWrapperFn func(r io.Reader, ctx context.Context) io.ReadCloser

// Transport is an http.RoundTripper that records every exchange with
// a recognized LLM provider and hands the finished record to the
// delivery queue. Requests for any other host pass through untouched.
//
// The transport never alters what the caller sends or receives: the
// request body bytes reaching the wire and the response bytes handed
// back are identical to an uninstrumented round trip, and any capture
// failure is swallowed so the underlying call is never affected.
type Transport struct {
	// base does the actual round trips. http.DefaultTransport is the
	// usual candidate.
	base http.RoundTripper

	registry  *provider.Registry
	sanitizer *sanitize.Sanitizer
	queue     *delivery.Queue

	sessionID string
	maxBody   int
	logger    logging.Logger

	metrics *transportMetrics
	traces  *transportTraces

	readerWrapper readerWrapperFn
}

func readWrapperBuilder(metricsOpts *TransportMetricsOptions, tracesOpts *TransportTracesOptions,
	meter metric.Meter, tracer trace.Tracer,
) readerWrapperFn {
	if !metricsOpts.ReadPayload && !tracesOpts.ReadPayload {
		// no metrics or traces for the payload reading
		return func(r io.Reader, ctx context.Context) io.ReadCloser {
			rc, ok := r.(io.ReadCloser)
			if !ok {
				rc = io.NopCloser(r)
			}
			return rc
		}
	}

	var attrs []attribute.KeyValue
	var t trace.Tracer
	var m metric.Meter

	if metricsOpts.ReadPayload {
		attrs = metricsOpts.FixedAttributes
		m = meter
	}
	if tracesOpts.ReadPayload {
		t = tracer
	}

	return chio.NewReaderFactory("coolhand.client.response.read.", attrs, t, m)
}

// NewRoundTripper creates the monitoring round tripper. When the
// options are incomplete it returns base unchanged, so the caller
// always gets a working transport.
func NewRoundTripper(base http.RoundTripper, opts *TransportOptions) http.RoundTripper {
	rt := newTransport(base, opts)
	if rt == nil {
		return base
	}
	return rt
}

func newTransport(base http.RoundTripper, opts *TransportOptions) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if opts == nil || opts.Registry == nil || opts.Sanitizer == nil ||
		opts.Queue == nil || opts.Instance == nil {
		return nil
	}

	meter := opts.Instance.Meter()
	tracer := opts.Instance.Tracer()

	maxBody := 0
	if cfg := opts.Instance.Config(); cfg != nil && cfg.Capture != nil {
		maxBody = cfg.Capture.MaxBodyBytes
	}

	return &Transport{
		base:          base,
		registry:      opts.Registry,
		sanitizer:     opts.Sanitizer,
		queue:         opts.Queue,
		sessionID:     opts.Instance.SessionID(),
		maxBody:       maxBody,
		logger:        opts.Instance.Logger(),
		metrics:       newTransportMetrics(&opts.MetricsOpts, meter),
		traces:        newTransportTraces(&opts.TracesOpts, tracer),
		readerWrapper: readWrapperBuilder(&opts.MetricsOpts, &opts.TracesOpts, meter, tracer),
	}
}

// RoundTrip implements http.RoundTripper, delegating to base and
// recording the exchange when the destination is a monitored provider.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	pat, ok := t.registry.Match(req.URL.Host)
	if !ok {
		return t.base.RoundTrip(req)
	}

	ext := &exchangeTracking{
		req:      req,
		pattern:  pat,
		exchange: capture.Begin(req, pat, t.sessionID, t.maxBody),
	}
	t.traces.start(ext)

	requestSentAt := time.Now()
	ext.resp, ext.err = t.base.RoundTrip(ext.req)
	ext.latencyInSecs = float64(time.Since(requestSentAt)) / float64(time.Second)

	if ext.err != nil {
		ext.exchange.Fail(ext.err)
		t.finish(ext)
		return ext.resp, ext.err
	}

	if ext.resp == nil || ext.resp.Body == nil {
		ext.exchange.Fail(nil)
		t.finish(ext)
		return ext.resp, nil
	}

	if provider.IsStreamingContentType(ext.resp.Header.Get("Content-Type")) {
		t.wrapStream(ext)
		return ext.resp, nil
	}

	t.completeUnary(ext)
	return ext.resp, nil
}

// wrapStream leaves the response body untouched for the caller while
// teeing every read slice into the stream decoder. The record is
// finalized when the caller exhausts or closes the body.
func (t *Transport) wrapStream(ext *exchangeTracking) {
	ext.streaming = true
	ext.exchange.SetResponse(ext.resp.StatusCode, capture.FlattenHeaders(ext.resp.Header))

	ext.resp.Body = &streamBody{
		body:      t.readerWrapper(ext.resp.Body, ext.req.Context()),
		decoder:   ext.pattern.NewStreamDecoder(ext.resp.Header.Get("Content-Type")),
		ext:       ext,
		transport: t,
	}
}

// completeUnary buffers the whole response body so the record can be
// finalized before the call returns, and replaces the body with an
// equivalent reader for the caller.
func (t *Transport) completeUnary(ext *exchangeTracking) {
	src := t.readerWrapper(ext.resp.Body, ext.req.Context())
	b, err := io.ReadAll(src)
	src.Close()

	if err != nil {
		// replay the bytes read so far and then surface the same
		// error the caller would have hit
		ext.resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), &errorReader{err: err}))
	} else {
		ext.resp.Body = io.NopCloser(bytes.NewReader(b))
	}

	ext.exchange.CompleteUnary(ext.resp, b)
	t.finish(ext)
}

// finish dispatches the finalized record and closes the exchange
// telemetry. A panic anywhere in the capture side is swallowed here:
// the caller's response is already safe in its hands.
func (t *Transport) finish(ext *exchangeTracking) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Debug("[COOLHAND] capture dispatch recovered:", r)
		}
	}()

	rec := ext.exchange.Record()
	if rec != nil {
		ext.record = rec
		t.queue.Enqueue(rec.Sanitized(t.sanitizer))
	}
	t.metrics.report(ext)
	t.traces.end(ext)
}

type errorReader struct{ err error }

func (r *errorReader) Read([]byte) (int, error) { return 0, r.err }
