package client

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/coolhand-ai/coolhand-go/capture"
	"github.com/coolhand-ai/coolhand-go/provider"
)

// exchangeTracking carries the working data of one monitored round
// trip from the moment the provider is matched until the record is
// dispatched. For a unary response that happens before RoundTrip
// returns; for a streamed one, when the caller finishes the body.
type exchangeTracking struct {
	req  *http.Request
	resp *http.Response
	err  error

	pattern  *provider.Pattern
	exchange *capture.Exchange
	record   *capture.Record

	span          trace.Span
	latencyInSecs float64
	streaming     bool
}
