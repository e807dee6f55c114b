// Package sanitize strips credentials and other sensitive values from
// captured exchange data before it can leave the process. The rules
// are deny lists over header names and body keys, plus a conservative
// value check: anything that looks like a bearer credential is
// redacted even when its key is unknown.
package sanitize

import "strings"

// Marker is the fixed placeholder substituted for every redacted value.
const Marker = "[REDACTED]"

var defaultHeaderNames = []string{
	"authorization",
	"proxy-authorization",
	"x-api-key",
	"api-key",
	"x-auth-token",
	"x-goog-api-key",
	"cookie",
	"set-cookie",
}

var defaultBodyKeys = []string{
	"api_key",
	"apikey",
	"api-key",
	"access_token",
	"refresh_token",
	"session_token",
	"client_secret",
	"secret",
	"token",
	"password",
	"authorization",
}

// Sanitizer applies the redaction rules. It never mutates its input:
// every method returns a fresh copy so in flight data is unaffected.
// The zero value is not usable, create one with [New].
type Sanitizer struct {
	headerNames map[string]bool
	bodyKeys    map[string]bool
}

// New creates a sanitizer with the default deny lists plus any extra
// header names and body keys (matched case insensitively).
func New(extraHeaders, extraBodyKeys []string) *Sanitizer {
	s := &Sanitizer{
		headerNames: make(map[string]bool, len(defaultHeaderNames)+len(extraHeaders)),
		bodyKeys:    make(map[string]bool, len(defaultBodyKeys)+len(extraBodyKeys)),
	}
	for _, n := range defaultHeaderNames {
		s.headerNames[n] = true
	}
	for _, n := range extraHeaders {
		s.headerNames[strings.ToLower(n)] = true
	}
	for _, k := range defaultBodyKeys {
		s.bodyKeys[k] = true
	}
	for _, k := range extraBodyKeys {
		s.bodyKeys[strings.ToLower(k)] = true
	}
	return s
}

// Headers returns a redacted copy of a header mapping. Keys are
// matched case insensitively; values that carry a credential shape
// are redacted whatever their key is.
func (s *Sanitizer) Headers(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if s.headerNames[strings.ToLower(k)] || looksLikeCredential(v) {
			out[k] = Marker
			continue
		}
		out[k] = v
	}
	return out
}

// Body returns a redacted deep copy of a parsed body. Maps and slices
// are walked recursively; scalar values under a denied key are
// replaced by the marker. Unknown shapes are passed through
// untouched.
func (s *Sanitizer) Body(v any) any {
	switch body := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(body))
		for k, val := range body {
			if s.bodyKeys[strings.ToLower(k)] {
				out[k] = Marker
				continue
			}
			out[k] = s.Body(val)
		}
		return out
	case []any:
		out := make([]any, len(body))
		for i, val := range body {
			out[i] = s.Body(val)
		}
		return out
	case string:
		if looksLikeCredential(body) {
			return Marker
		}
		return body
	default:
		return v
	}
}

// looksLikeCredential is the conservative fallback for values whose
// origin is ambiguous: better a redacted false positive than a leaked
// key.
func looksLikeCredential(v string) bool {
	return strings.HasPrefix(v, "Bearer ") ||
		strings.HasPrefix(v, "sk-") ||
		strings.HasPrefix(v, "sk-ant-")
}
