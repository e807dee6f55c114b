package provider

import (
	"bytes"
	"encoding/json"
	"strings"
)

const doneSentinel = "[DONE]"

// IsStreamingContentType tells if a response content type belongs to
// a streamed completion (server sent events or newline delimited
// JSON, the two shapes LLM providers actually use).
func IsStreamingContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/event-stream") ||
		strings.HasPrefix(ct, "application/x-ndjson")
}

type decodeMode int

const (
	// modeRaw forwards every fed slice as one chunk, untouched.
	modeRaw decodeMode = iota
	// modeLines splits the feed into lines and decodes each one as
	// an SSE data event or a bare JSON object.
	modeLines
)

// StreamDecoder incrementally rebuilds the logical content of a
// streamed response. It is fed the same bytes the caller reads, in
// the same order, and emits the decoded content chunks plus the
// trailing model and usage metadata when the provider sends them.
//
// A decoder is single use and not safe for concurrent use: it lives
// on the read path of one response body.
type StreamDecoder struct {
	mode    decodeMode
	name    string
	pending bytes.Buffer

	model string
	usage *Usage
}

// NewStreamDecoder creates the decoder for a streamed response of
// this provider. Content types without a known line structure fall
// back to raw forwarding, so reconstruction still concatenates every
// chunk the caller saw.
func (p *Pattern) NewStreamDecoder(contentType string) *StreamDecoder {
	d := &StreamDecoder{mode: modeRaw}
	if p != nil {
		d.name = p.Name
	}
	if IsStreamingContentType(contentType) {
		d.mode = modeLines
	}
	return d
}

// Feed consumes the next slice read from the wire and returns the
// content chunks completed by it, in delivery order.
func (d *StreamDecoder) Feed(p []byte) []string {
	if len(p) == 0 {
		return nil
	}
	if d.mode == modeRaw {
		return []string{string(p)}
	}

	d.pending.Write(p)
	var chunks []string
	for {
		raw := d.pending.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := string(raw[:idx])
		d.pending.Next(idx + 1)
		if c, ok := d.decodeLine(line); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// Flush decodes whatever partial line is still pending. Called when
// the stream ends, is closed early, or errors.
func (d *StreamDecoder) Flush() []string {
	if d.mode == modeRaw || d.pending.Len() == 0 {
		return nil
	}
	line := d.pending.String()
	d.pending.Reset()
	if c, ok := d.decodeLine(line); ok {
		return []string{c}
	}
	return nil
}

// Model reports the model name seen in the stream, if any.
func (d *StreamDecoder) Model() string { return d.model }

// Usage reports the token usage seen in the stream, if any.
func (d *StreamDecoder) Usage() *Usage { return d.usage }

func (d *StreamDecoder) decodeLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	payload := line
	if strings.HasPrefix(line, "data:") {
		payload = strings.TrimSpace(line[len("data:"):])
	} else if strings.Contains(line, ":") && !strings.HasPrefix(line, "{") {
		// other SSE fields (event, id, retry) and comments carry
		// no content
		return "", false
	}
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == doneSentinel {
		return "", false
	}

	var event map[string]any
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		// not an event we understand: keep it verbatim so the
		// reconstruction never loses data
		return payload, true
	}

	switch d.name {
	case Anthropic:
		return d.anthropicEvent(event)
	default:
		return d.openAIEvent(event)
	}
}

func (d *StreamDecoder) openAIEvent(event map[string]any) (string, bool) {
	if m, ok := event["model"].(string); ok && m != "" {
		d.model = m
	}
	if u := openAIUsage(event["usage"]); u != nil {
		d.usage = u
	}

	choices, _ := event["choices"].([]any)
	if len(choices) == 0 {
		return "", false
	}
	choice, _ := choices[0].(map[string]any)
	if delta, ok := choice["delta"].(map[string]any); ok {
		if c, ok := delta["content"].(string); ok && c != "" {
			return c, true
		}
		return "", false
	}
	// legacy completions place the fragment at choices[].text
	if c, ok := choice["text"].(string); ok && c != "" {
		return c, true
	}
	return "", false
}

func (d *StreamDecoder) anthropicEvent(event map[string]any) (string, bool) {
	switch event["type"] {
	case "message_start":
		msg, _ := event["message"].(map[string]any)
		if m, ok := msg["model"].(string); ok && m != "" {
			d.model = m
		}
		if u, ok := msg["usage"].(map[string]any); ok {
			d.mergeAnthropicUsage(u)
		}
	case "content_block_delta":
		delta, _ := event["delta"].(map[string]any)
		if c, ok := delta["text"].(string); ok && c != "" {
			return c, true
		}
	case "message_delta":
		if u, ok := event["usage"].(map[string]any); ok {
			d.mergeAnthropicUsage(u)
		}
	}
	return "", false
}

// mergeAnthropicUsage accumulates the split accounting: input tokens
// arrive on message_start, output tokens on the trailing
// message_delta.
func (d *StreamDecoder) mergeAnthropicUsage(m map[string]any) {
	if d.usage == nil {
		d.usage = &Usage{}
	}
	if v := intField(m, "input_tokens"); v > 0 {
		d.usage.PromptTokens = v
	}
	if v := intField(m, "output_tokens"); v > 0 {
		d.usage.CompletionTokens = v
	}
	d.usage.TotalTokens = d.usage.PromptTokens + d.usage.CompletionTokens
}
