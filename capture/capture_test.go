package capture

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coolhand-ai/coolhand-go/provider"
	"github.com/coolhand-ai/coolhand-go/sanitize"
)

func testPattern() *provider.Pattern {
	return &provider.Pattern{Name: provider.OpenAI, Hosts: []string{"api.openai.com"}}
}

func TestBeginCapturesAndRestoresBody(t *testing.T) {
	payload := `{"model":"gpt-4o","messages":[]}`
	req, err := http.NewRequest(http.MethodPost,
		"https://api.openai.com/v1/chat/completions", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	e := Begin(req, testPattern(), "session-1", 1<<20)

	// the transport must still be able to read the full body
	b, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("request body unreadable after capture: %v", err)
	}
	if string(b) != payload {
		t.Errorf("request body altered, want: %q, got: %q", payload, string(b))
	}

	e.Fail(nil)
	rec := e.Record()
	if rec == nil {
		t.Fatal("no record after finalization")
	}
	if rec.ID == "" || rec.SessionID != "session-1" {
		t.Errorf("unexpected identity: %#v", rec)
	}
	if rec.Method != http.MethodPost || rec.URL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("unexpected request data: %#v", rec)
	}
	body, ok := rec.RequestBody.(map[string]any)
	if !ok || body["model"] != "gpt-4o" {
		t.Errorf("unexpected captured request body: %#v", rec.RequestBody)
	}
	if rec.RequestHeaders["Content-Type"] != "application/json" {
		t.Errorf("unexpected captured headers: %#v", rec.RequestHeaders)
	}
}

func TestBeginWithoutGetBody(t *testing.T) {
	payload := "opaque payload"
	req, err := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/x", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Body = io.NopCloser(strings.NewReader(payload))
	req.GetBody = nil

	e := Begin(req, testPattern(), "", 1<<20)

	b, _ := io.ReadAll(req.Body)
	if string(b) != payload {
		t.Errorf("request body altered, want: %q, got: %q", payload, string(b))
	}

	e.Fail(nil)
	if got := e.Record().RequestBody; got != payload {
		t.Errorf("captured body, want: %q, got: %#v", payload, got)
	}
}

func TestCompleteUnary(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	e := Begin(req, testPattern(), "", 1<<20)

	body := []byte(`{"model":"gpt-4o","usage":{"prompt_tokens":1,"completion_tokens":2}}`)
	rr := httptest.NewRecorder()
	rr.Header().Set("Content-Type", "application/json")
	rr.WriteHeader(http.StatusOK)
	resp := rr.Result()

	e.CompleteUnary(resp, body)
	rec := e.Record()
	if rec == nil {
		t.Fatal("no record after CompleteUnary")
	}
	if rec.ResponseStatus != http.StatusOK || rec.Streaming {
		t.Errorf("unexpected response data: %#v", rec)
	}
	if rec.Model != "gpt-4o" {
		t.Errorf("model, want: gpt-4o, got: %s", rec.Model)
	}
	if rec.Usage == nil || rec.Usage.TotalTokens != 3 {
		t.Errorf("unexpected usage: %#v", rec.Usage)
	}
	if rec.EndedAt.Before(rec.StartedAt) || rec.DurationMS < 0 {
		t.Errorf("unexpected timing: %#v", rec)
	}
}

func TestStreamChunksConcatenate(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	e := Begin(req, testPattern(), "", 1<<20)

	if e.Record() != nil {
		t.Error("record must be nil while the exchange is in flight")
	}

	e.SetResponse(http.StatusOK, map[string]string{"Content-Type": "text/event-stream"})
	e.OnChunk("Hel")
	e.OnChunk("lo")
	e.CompleteStream("gpt-4o", &provider.Usage{TotalTokens: 5}, nil)

	rec := e.Record()
	if rec == nil {
		t.Fatal("no record after CompleteStream")
	}
	if !rec.Streaming {
		t.Error("streamed record must be flagged")
	}
	if rec.ResponseBody != "Hello" {
		t.Errorf("reconstruction, want: Hello, got: %#v", rec.ResponseBody)
	}

	// finalization happens exactly once
	e.Fail(io.ErrUnexpectedEOF)
	if rec2 := e.Record(); rec2.Error != nil {
		t.Error("a finalized record must not change")
	}
}

func TestFailRecordsError(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/models", nil)
	e := Begin(req, testPattern(), "", 1<<20)
	e.Fail(io.ErrUnexpectedEOF)

	rec := e.Record()
	if rec.Error == nil || *rec.Error != io.ErrUnexpectedEOF.Error() {
		t.Errorf("unexpected error field: %#v", rec.Error)
	}
	if rec.ResponseStatus != 0 {
		t.Errorf("status must stay unset, got: %d", rec.ResponseStatus)
	}
}

func TestOnChunkRespectsCap(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/x", nil)
	e := Begin(req, testPattern(), "", 4)
	e.OnChunk("abcd")
	e.OnChunk("e")
	e.CompleteStream("", nil, nil)
	if got := e.Record().ResponseBody; got != "abcd" {
		t.Errorf("capped reconstruction, want: abcd, got: %#v", got)
	}
}

func TestParseBody(t *testing.T) {
	if got := ParseBody(nil, 10); got != nil {
		t.Errorf("empty body, want: nil, got: %#v", got)
	}
	if got := ParseBody([]byte(`{"a":1}`), 0); got.(map[string]any)["a"] != float64(1) {
		t.Errorf("json body not parsed: %#v", got)
	}
	if got := ParseBody([]byte("plain"), 0); got != "plain" {
		t.Errorf("text body, want: plain, got: %#v", got)
	}
	if got := ParseBody([]byte("0123456789"), 4); got != "0123" {
		t.Errorf("capped body, want: 0123, got: %#v", got)
	}
}

func TestRecordSanitized(t *testing.T) {
	s := sanitize.New(nil, nil)
	rec := &Record{
		RequestHeaders: map[string]string{"Authorization": "Bearer sk-123", "Accept": "application/json"},
		RequestBody:    map[string]any{"api_key": "sk-123", "prompt": "hi"},
	}
	out := rec.Sanitized(s)

	if out.RequestHeaders["Authorization"] != sanitize.Marker {
		t.Errorf("authorization not redacted: %#v", out.RequestHeaders)
	}
	if out.RequestHeaders["Accept"] != "application/json" {
		t.Errorf("benign header altered: %#v", out.RequestHeaders)
	}
	if out.RequestBody.(map[string]any)["api_key"] != sanitize.Marker {
		t.Errorf("body key not redacted: %#v", out.RequestBody)
	}
	if rec.RequestHeaders["Authorization"] != "Bearer sk-123" {
		t.Error("sanitizing must not mutate the original record")
	}
}
