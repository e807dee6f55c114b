// Package delivery buffers finished exchange records and ships them
// to the collector from the background, so the monitored application
// never waits on the network twice.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/luraproject/lura/v2/logging"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/coolhand-ai/coolhand-go/capture"
	chio "github.com/coolhand-ai/coolhand-go/io"
)

// Sink is where the queue pushes each serialized record.
type Sink interface {
	Send(ctx context.Context, rec *capture.Record) error
}

// HTTPSink posts the wire envelope to the collector endpoint. It
// runs on its own plain transport: delivery traffic must never go
// through the instrumented one.
type HTTPSink struct {
	client    *http.Client
	url       string
	apiKey    string
	userAgent string
}

// NewHTTPSink creates the live collector sink.
func NewHTTPSink(collectorURL, apiKey, version string) *HTTPSink {
	return &HTTPSink{
		client: &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		url:       collectorURL,
		apiKey:    apiKey,
		userAgent: "coolhand-go/" + version,
	}
}

// Send submits one record. A 4xx reply (except 429) marks the error
// permanent: retrying a rejected envelope cannot succeed.
func (s *HTTPSink) Send(ctx context.Context, rec *capture.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("cannot serialize record %s: %s", rec.ID, err.Error()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("collector replied %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

// LocalSink is the demo mode destination: envelopes are appended to
// a local file (when a path is configured) and echoed on the verbose
// logging channel. Useful for test environments without live
// credentials.
type LocalSink struct {
	mu     sync.Mutex
	w      io.WriteCloser
	logger logging.Logger
}

// NewLocalSink creates the demo sink. An empty path keeps the
// envelopes on the logging channel only.
func NewLocalSink(path string, l logging.Logger, tracer trace.Tracer, meter metric.Meter) (*LocalSink, error) {
	if l == nil {
		l = logging.NoOp
	}
	s := &LocalSink{logger: l}
	if path == "" {
		return s, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open demo sink %s: %s", path, err.Error())
	}
	wrap := chio.NewWriterFactory("coolhand.demo.write.", nil, tracer, meter)
	s.w = wrap(f, context.Background())
	return s, nil
}

func (s *LocalSink) Send(_ context.Context, rec *capture.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return backoff.Permanent(err)
	}
	s.logger.Debug("[COOLHAND] demo record", rec.ID, rec.Method, rec.URL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	if _, err := s.w.Write(append(body, '\n')); err != nil {
		return err
	}
	return nil
}

// Close flushes and closes the underlying file, when there is one.
func (s *LocalSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

var (
	_ Sink = (*HTTPSink)(nil)
	_ Sink = (*LocalSink)(nil)
)
