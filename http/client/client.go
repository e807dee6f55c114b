// Package client provides the monitoring for an http client talking
// to LLM providers.
//
// The transport built here wraps any http.RoundTripper. Each request
// whose destination host matches a registered provider pattern is
// recorded: the request as sent, the response (buffered for a unary
// reply, reconstructed chunk by chunk for a streamed one), timing and
// the outcome. Finished records are sanitized and handed to the
// delivery queue without ever blocking the caller.
//
// Requests to any other host, localhost included, pass through
// bit for bit identical to an uninstrumented transport.
package client

import (
	"net/http"
)

// InstrumentedHTTPClient returns a copy of c whose transport monitors
// the LLM provider traffic. When the options are nil or incomplete
// the client is returned as is.
func InstrumentedHTTPClient(c *http.Client, t *TransportOptions) *http.Client {
	if c == nil {
		c = http.DefaultClient
	}
	if t == nil {
		return c
	}

	transport := c.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	rt := newTransport(transport, t)
	if rt == nil {
		return c
	}
	return &http.Client{
		Transport:     rt,
		CheckRedirect: c.CheckRedirect,
		Jar:           c.Jar,
		Timeout:       c.Timeout,
	}
}
