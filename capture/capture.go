// Package capture assembles the structured record of one exchange
// between the monitored application and an LLM provider: the request
// as it left the process, the response (unary or reconstructed from a
// stream), timing, and the provider metadata that could be extracted.
package capture

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coolhand-ai/coolhand-go/provider"
	"github.com/coolhand-ai/coolhand-go/sanitize"
)

// Record is the wire envelope sent to the collector. It is immutable
// once the owning [Exchange] finalizes it.
type Record struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`

	Method         string            `json:"method"`
	URL            string            `json:"url"`
	RequestHeaders map[string]string `json:"request_headers"`
	RequestBody    any               `json:"request_body"`

	ResponseStatus  int               `json:"response_status"`
	ResponseHeaders map[string]string `json:"response_headers"`
	ResponseBody    any               `json:"response_body"`

	Model     string          `json:"model,omitempty"`
	Usage     *provider.Usage `json:"usage"`
	Streaming bool            `json:"streaming"`

	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
	Error      *string   `json:"error"`
}

// Sanitized returns a copy of the record with the sensitive request
// and response data replaced by the redaction marker. The receiver is
// left untouched.
func (r *Record) Sanitized(s *sanitize.Sanitizer) *Record {
	out := *r
	out.RequestHeaders = s.Headers(r.RequestHeaders)
	out.RequestBody = s.Body(r.RequestBody)
	out.ResponseHeaders = s.Headers(r.ResponseHeaders)
	out.ResponseBody = s.Body(r.ResponseBody)
	return &out
}

// Exchange is the mutable handle used while an exchange is in flight.
// It is finalized exactly once: by CompleteUnary, CompleteStream or
// Fail, whichever happens first. Later calls are no ops, so a stream
// that hits EOF and is then closed does not produce two records.
type Exchange struct {
	mu        sync.Mutex
	rec       Record
	chunks    strings.Builder
	pattern   *provider.Pattern
	maxBody   int
	finalized bool
}

// Begin starts recording an exchange. It captures the normalized
// request data, reading and transparently restoring the request body
// so the bytes that reach the wire are identical.
func Begin(req *http.Request, pat *provider.Pattern, sessionID string, maxBodyBytes int) *Exchange {
	e := &Exchange{
		pattern: pat,
		maxBody: maxBodyBytes,
		rec: Record{
			ID:             uuid.NewString(),
			SessionID:      sessionID,
			Method:         req.Method,
			URL:            req.URL.String(),
			RequestHeaders: FlattenHeaders(req.Header),
			StartedAt:      time.Now().UTC(),
		},
	}
	e.rec.RequestBody = ParseBody(peekRequestBody(req), maxBodyBytes)
	return e
}

// CompleteUnary finalizes the record for a non streaming response
// whose body has been fully buffered.
func (e *Exchange) CompleteUnary(resp *http.Response, body []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return
	}
	e.rec.ResponseStatus = resp.StatusCode
	e.rec.ResponseHeaders = FlattenHeaders(resp.Header)
	e.rec.ResponseBody = ParseBody(body, e.maxBody)
	e.rec.Model, e.rec.Usage = e.pattern.ExtractUnary(e.rec.ResponseBody)
	e.finalize()
}

// SetResponse records the status and headers of a streamed response
// as soon as they are available, before any chunk arrives.
func (e *Exchange) SetResponse(status int, headers map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return
	}
	e.rec.ResponseStatus = status
	e.rec.ResponseHeaders = headers
	e.rec.Streaming = true
}

// OnChunk appends one streamed content unit, in delivery order. The
// finalized response body is exactly the concatenation of every
// chunk passed here.
func (e *Exchange) OnChunk(chunk string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized || len(chunk) == 0 {
		return
	}
	if e.maxBody <= 0 || e.chunks.Len()+len(chunk) <= e.maxBody {
		e.chunks.WriteString(chunk)
	}
}

// CompleteStream finalizes a streamed exchange once the stream is
// exhausted, closed early or broken. A nil err with a partial stream
// is fine: the record keeps whatever was reconstructed so far.
func (e *Exchange) CompleteStream(model string, usage *provider.Usage, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return
	}
	e.rec.ResponseBody = e.chunks.String()
	e.rec.Model = model
	e.rec.Usage = usage
	if err != nil {
		msg := err.Error()
		e.rec.Error = &msg
	}
	e.finalize()
}

// Fail finalizes the record for an exchange whose underlying call
// errored before producing a usable response.
func (e *Exchange) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return
	}
	if err != nil {
		msg := err.Error()
		e.rec.Error = &msg
	}
	e.finalize()
}

func (e *Exchange) finalize() {
	e.rec.EndedAt = time.Now().UTC()
	e.rec.DurationMS = e.rec.EndedAt.Sub(e.rec.StartedAt).Milliseconds()
	e.finalized = true
}

// Record returns the frozen record, or nil while the exchange is
// still in flight.
func (e *Exchange) Record() *Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.finalized {
		return nil
	}
	rec := e.rec
	return &rec
}

// FlattenHeaders maps a header to its captured form: canonical keys,
// first value only.
func FlattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[http.CanonicalHeaderKey(k)] = v[0]
		}
	}
	return out
}

// ParseBody converts captured body bytes into the envelope
// representation: parsed JSON when the payload is a JSON document,
// the raw string otherwise, nil when empty. The captured copy is
// capped at maxBytes.
func ParseBody(b []byte, maxBytes int) any {
	if len(b) == 0 {
		return nil
	}
	if maxBytes > 0 && len(b) > maxBytes {
		b = b[:maxBytes]
	}
	var parsed any
	if err := json.Unmarshal(b, &parsed); err == nil {
		return parsed
	}
	return string(b)
}

// peekRequestBody obtains the request payload without disturbing the
// request. GetBody gives a fresh copy when available; otherwise the
// body is drained and replaced by an equivalent reader.
func peekRequestBody(req *http.Request) []byte {
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		// replay what was read and then surface the same error the
		// transport would have hit
		req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), &errorReader{err: err}))
		return nil
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	return b
}

type errorReader struct{ err error }

func (r *errorReader) Read([]byte) (int, error) { return 0, r.err }
