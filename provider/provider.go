// Package provider holds the registry of monitored LLM providers: the
// host matching rules that decide if an outgoing request must be
// captured, and the per provider rules to extract the model name and
// the token usage from a response.
package provider

import (
	"net"
	"strings"
	"sync"
)

// Provider identities with built in extraction rules.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// Pattern is a static registry entry: a provider identity and the
// hosts that belong to it. Matching is by exact host or by host
// suffix (a pattern host "openai.com" matches "api.openai.com").
type Pattern struct {
	Name  string
	Hosts []string
}

func (p *Pattern) matches(host string) bool {
	for _, h := range p.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Registry answers if a host belongs to a monitored provider. The
// default entries cover the OpenAI and Anthropic API hosts; more can
// be added with [Registry.Register] before the interceptor is
// installed.
type Registry struct {
	mu       sync.RWMutex
	patterns []Pattern
}

// NewRegistry creates a registry with the default provider patterns.
func NewRegistry() *Registry {
	return &Registry{
		patterns: []Pattern{
			{Name: OpenAI, Hosts: []string{"api.openai.com"}},
			{Name: Anthropic, Hosts: []string{"api.anthropic.com"}},
		},
	}
}

// Register adds a pattern to the registry.
func (r *Registry) Register(p Pattern) {
	r.mu.Lock()
	r.patterns = append(r.patterns, p)
	r.mu.Unlock()
}

// Match reports the provider pattern a host belongs to. Local
// destinations never match, whatever the registered patterns say.
func (r *Registry) Match(host string) (*Pattern, bool) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if isLocal(host) {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.patterns {
		if r.patterns[i].matches(host) {
			return &r.patterns[i], true
		}
	}
	return nil, false
}

func isLocal(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "0.0.0.0", "::1":
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
