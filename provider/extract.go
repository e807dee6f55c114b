package provider

// Usage holds the token accounting a provider reports for one
// exchange. A nil *Usage means the provider did not report it.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ExtractUnary pulls the model name and the token usage from a parsed
// non streaming response body. Missing or unexpected fields never
// fail: the corresponding value is just left empty.
func (p *Pattern) ExtractUnary(body any) (string, *Usage) {
	m, ok := body.(map[string]any)
	if !ok {
		return "", nil
	}

	model, _ := m["model"].(string)
	switch p.Name {
	case Anthropic:
		return model, anthropicUsage(m["usage"])
	default:
		// the OpenAI shape doubles as the generic one: most
		// compatible providers mimic its usage block
		return model, openAIUsage(m["usage"])
	}
}

func openAIUsage(v any) *Usage {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	u := &Usage{
		PromptTokens:     intField(m, "prompt_tokens"),
		CompletionTokens: intField(m, "completion_tokens"),
		TotalTokens:      intField(m, "total_tokens"),
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func anthropicUsage(v any) *Usage {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	u := &Usage{
		PromptTokens:     intField(m, "input_tokens"),
		CompletionTokens: intField(m, "output_tokens"),
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
