package sanitize

import (
	"reflect"
	"testing"
)

func TestHeaders(t *testing.T) {
	s := New([]string{"X-Internal-Secret"}, nil)
	in := map[string]string{
		"Authorization":     "Bearer sk-live-123",
		"X-Api-Key":         "sk-live-123",
		"COOKIE":            "session=abc",
		"X-Internal-Secret": "hunter2",
		"X-Request-Id":      "req-1",
		"Content-Type":      "application/json",
	}
	out := s.Headers(in)

	for _, k := range []string{"Authorization", "X-Api-Key", "COOKIE", "X-Internal-Secret"} {
		if out[k] != Marker {
			t.Errorf("%s not redacted: %q", k, out[k])
		}
	}
	if out["X-Request-Id"] != "req-1" || out["Content-Type"] != "application/json" {
		t.Errorf("benign headers altered: %#v", out)
	}
	if in["Authorization"] != "Bearer sk-live-123" {
		t.Error("input mutated")
	}
}

func TestHeadersCredentialShapedValues(t *testing.T) {
	s := New(nil, nil)
	out := s.Headers(map[string]string{
		"X-Custom-Auth": "Bearer something",
		"X-Key":         "sk-abcdef",
		"X-Plain":       "value",
	})
	if out["X-Custom-Auth"] != Marker || out["X-Key"] != Marker {
		t.Errorf("credential shaped values not redacted: %#v", out)
	}
	if out["X-Plain"] != "value" {
		t.Errorf("benign value altered: %#v", out)
	}
}

func TestBody(t *testing.T) {
	s := New(nil, []string{"Internal_Token"})
	in := map[string]any{
		"model":  "gpt-4o",
		"angle":  42.0,
		"api_key": "sk-123",
		"nested": map[string]any{
			"password":       "hunter2",
			"internal_token": "t",
			"messages": []any{
				map[string]any{"role": "user", "content": "hello"},
				"sk-inline-credential",
			},
		},
	}
	out, ok := s.Body(in).(map[string]any)
	if !ok {
		t.Fatalf("unexpected shape: %#v", out)
	}

	if out["api_key"] != Marker {
		t.Errorf("api_key not redacted: %#v", out)
	}
	nested := out["nested"].(map[string]any)
	if nested["password"] != Marker || nested["internal_token"] != Marker {
		t.Errorf("nested keys not redacted: %#v", nested)
	}
	msgs := nested["messages"].([]any)
	if !reflect.DeepEqual(msgs[0], map[string]any{"role": "user", "content": "hello"}) {
		t.Errorf("benign nested content altered: %#v", msgs[0])
	}
	if msgs[1] != Marker {
		t.Errorf("credential shaped string in slice not redacted: %#v", msgs[1])
	}
	if out["model"] != "gpt-4o" || out["angle"] != 42.0 {
		t.Errorf("benign values altered: %#v", out)
	}

	if in["api_key"] != "sk-123" {
		t.Error("input mutated")
	}
}

func TestBodyPassthroughShapes(t *testing.T) {
	s := New(nil, nil)
	if got := s.Body(nil); got != nil {
		t.Errorf("nil body, want: nil, got: %#v", got)
	}
	if got := s.Body(7.0); got != 7.0 {
		t.Errorf("scalar body altered: %#v", got)
	}
	if got := s.Body("plain text body"); got != "plain text body" {
		t.Errorf("text body altered: %#v", got)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	s := New(nil, nil)
	h := s.Headers(map[string]string{"Authorization": "Bearer x"})
	if !reflect.DeepEqual(s.Headers(h), h) {
		t.Error("sanitizing twice must be a fixed point")
	}
	b := s.Body(map[string]any{"token": "abc", "x": "y"})
	if !reflect.DeepEqual(s.Body(b), b) {
		t.Error("sanitizing twice must be a fixed point")
	}
}
