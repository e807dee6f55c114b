// Package coolhand monitors the LLM API traffic of a Go process. It
// wraps the http transport so every call to a recognized provider is
// recorded (request, response, timing, model and token usage),
// sanitized and shipped to the Coolhand collector in the background.
//
// The monitored application keeps full control of its requests: the
// bytes on the wire, the responses and the errors it sees are the
// same with or without the monitor. Capture problems are swallowed,
// delivery never blocks the caller.
//
// Typical use:
//
//	m, err := coolhand.Start(ctx, nil, nil) // config from COOLHAND_* env
//	if err != nil { ... }
//	defer m.Shutdown(context.Background())
package coolhand

import (
	"context"
	"net/http"
	"sync"

	"github.com/luraproject/lura/v2/logging"

	"github.com/coolhand-ai/coolhand-go/config"
	"github.com/coolhand-ai/coolhand-go/delivery"
	"github.com/coolhand-ai/coolhand-go/exporter"
	"github.com/coolhand-ai/coolhand-go/http/client"
	"github.com/coolhand-ai/coolhand-go/provider"
	"github.com/coolhand-ai/coolhand-go/sanitize"
	"github.com/coolhand-ai/coolhand-go/state"
)

// Version is reported to the collector with every delivery.
const Version = "0.1.0"

// Monitor owns every moving part of one SDK instance: the process
// state, the provider registry, the sanitizer, the delivery queue and
// its sink. Instances built with [New] are independent; [Start]
// manages the single process wide one.
type Monitor struct {
	st        *state.State
	registry  *provider.Registry
	sanitizer *sanitize.Sanitizer
	queue     *delivery.Queue
	localSink *delivery.LocalSink

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a monitor from the given configuration. A nil cfg reads
// the COOLHAND_* environment variables. A nil logger keeps the SDK
// silent regardless of configuration.
func New(ctx context.Context, l logging.Logger, cfg *config.ConfigData) (*Monitor, error) {
	if cfg == nil {
		cfg = config.FromEnv()
	}
	cfg.UnsetFieldsToDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	me, te, err := exporter.Instances(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	st, err := state.New(cfg, l, Version, me, te)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		st:        st,
		registry:  provider.NewRegistry(),
		sanitizer: sanitize.New(nil, nil),
	}

	var sink delivery.Sink
	if cfg.DemoMode() {
		ls, err := delivery.NewLocalSink(cfg.DemoSinkPath, st.Logger(), st.Tracer(), st.Meter())
		if err != nil {
			st.Shutdown(ctx)
			return nil, err
		}
		m.localSink = ls
		sink = ls
	} else {
		sink = delivery.NewHTTPSink(cfg.CollectorURL, cfg.APIKey, Version)
	}
	m.queue = delivery.NewQueue(cfg.Queue, sink, st.Logger(), st.Meter())

	return m, nil
}

// TransportOptions returns the options to build monitoring transports
// bound to this monitor.
func (m *Monitor) TransportOptions() *client.TransportOptions {
	return &client.TransportOptions{
		Registry:    m.registry,
		Sanitizer:   m.sanitizer,
		Queue:       m.queue,
		MetricsOpts: client.TransportMetricsOptions{RoundTrip: true, ReadPayload: true},
		TracesOpts:  client.TransportTracesOptions{RoundTrip: true, ReadPayload: true},
		Instance:    m.st,
	}
}

// InstrumentedHTTPClient returns a copy of c monitored by this
// instance. Use it to cover clients that do not rely on the default
// transport.
func (m *Monitor) InstrumentedHTTPClient(c *http.Client) *http.Client {
	return client.InstrumentedHTTPClient(c, m.TransportOptions())
}

// Install wraps http.DefaultTransport with this monitor. Idempotent
// across the process: only the first install takes effect, and the
// call reports whether it was this one.
func (m *Monitor) Install() bool {
	return client.Install(m.TransportOptions())
}

// Registry exposes the provider patterns, so additional LLM hosts can
// be registered at runtime.
func (m *Monitor) Registry() *provider.Registry {
	return m.registry
}

// SessionID identifies this process run in every delivered record.
func (m *Monitor) SessionID() string {
	return m.st.SessionID()
}

// Stats returns the delivery counters.
func (m *Monitor) Stats() delivery.Stats {
	return m.queue.Stats()
}

// Status is a point in time summary of the monitor.
type Status struct {
	SessionID string         `json:"session_id"`
	DemoMode  bool           `json:"demo_mode"`
	Installed bool           `json:"installed"`
	Queue     delivery.Stats `json:"queue"`
}

// Status reports the monitor identity, mode and delivery counters.
func (m *Monitor) Status() Status {
	return Status{
		SessionID: m.st.SessionID(),
		DemoMode:  m.st.Config().DemoMode(),
		Installed: client.IsInstalled(),
		Queue:     m.queue.Stats(),
	}
}

// Shutdown flushes the queue best effort, closes the sink and the
// internal telemetry. Safe to call more than once.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.shutdownErr = m.queue.Close(ctx)
		if m.localSink != nil {
			if err := m.localSink.Close(); err != nil && m.shutdownErr == nil {
				m.shutdownErr = err
			}
		}
		m.st.Shutdown(ctx)
	})
	return m.shutdownErr
}

var (
	globalMutex   sync.Mutex
	globalMonitor *Monitor
)

// Start builds the process wide monitor and installs it on the
// default transport. The first call wins: concurrent or repeated
// initializations converge on the same instance, which is returned.
func Start(ctx context.Context, l logging.Logger, cfg *config.ConfigData) (*Monitor, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalMonitor != nil {
		return globalMonitor, nil
	}

	m, err := New(ctx, l, cfg)
	if err != nil {
		return nil, err
	}
	state.SetGlobalState(m.st)
	m.Install()
	globalMonitor = m
	return m, nil
}

// Default returns the process wide monitor, or nil before [Start].
func Default() *Monitor {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalMonitor
}

// IsInstalled tells if the default transport is currently monitored.
func IsInstalled() bool {
	return client.IsInstalled()
}

// Stop uninstalls the default transport monitor and shuts the process
// wide instance down.
func Stop(ctx context.Context) error {
	globalMutex.Lock()
	m := globalMonitor
	globalMonitor = nil
	globalMutex.Unlock()

	client.Uninstall()
	if m == nil {
		return nil
	}
	err := m.Shutdown(ctx)
	state.ResetGlobalState()
	return err
}
