// Package config defines the configuration used to set up the Coolhand
// monitoring SDK: the collector credentials, the capture limits, the
// delivery queue tuning and the optional internal telemetry exporters.
package config

import (
	"errors"
	"fmt"
	"net/url"
)

// DemoAPIKey is the reserved API key sentinel that selects demo mode:
// captured records are written to a local sink instead of being
// transmitted to the collector.
const DemoAPIKey = "demo"

// DefaultCollectorURL is where records are shipped when no collector
// override is configured.
const DefaultCollectorURL = "https://api.coolhand.ai/v1/interactions"

// ErrNoAPIKey is returned when live delivery is requested without
// an API key.
var ErrNoAPIKey = errors.New("coolhand: no api key configured")

// ConfigData is the root configuration of the SDK.
type ConfigData struct {
	// APIKey authenticates against the collector. The reserved
	// value [DemoAPIKey] switches the delivery to a local sink.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Silent disables the internal verbose logging channel. It
	// defaults to true: by default the SDK never writes a line.
	Silent *bool `json:"silent" yaml:"silent"`

	// Debug lowers the internal log level to DEBUG when Silent
	// is false.
	Debug bool `json:"debug" yaml:"debug"`

	// CollectorURL overrides the collector endpoint.
	CollectorURL string `json:"collector_url" yaml:"collector_url"`

	// DemoSinkPath is where demo mode envelopes are appended. An
	// empty value keeps them on the verbose logging channel only.
	DemoSinkPath string `json:"demo_sink_path" yaml:"demo_sink_path"`

	Queue     *QueueOpts     `json:"queue" yaml:"queue"`
	Capture   *CaptureOpts   `json:"capture" yaml:"capture"`
	Telemetry *TelemetryOpts `json:"telemetry" yaml:"telemetry"`
}

// QueueOpts tunes the delivery queue.
type QueueOpts struct {
	// Size bounds the buffer: when full, the oldest unsent record
	// is evicted to admit the newest.
	Size int `json:"size" yaml:"size"`

	// Workers is the number of background senders draining the buffer.
	Workers int `json:"workers" yaml:"workers"`

	// SendTimeoutMS bounds a single delivery attempt.
	SendTimeoutMS int `json:"send_timeout_ms" yaml:"send_timeout_ms"`

	// MaxAttempts bounds the tries for one record before it is
	// dropped.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// FlushTimeoutMS bounds the best effort flush on shutdown.
	FlushTimeoutMS int `json:"flush_timeout_ms" yaml:"flush_timeout_ms"`
}

// CaptureOpts tunes what gets recorded per exchange.
type CaptureOpts struct {
	// MaxBodyBytes caps the captured copy of a request or response
	// body. Truncation only affects the record, never the bytes
	// delivered to the caller.
	MaxBodyBytes int `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// TelemetryOpts configures the exporters for the SDK's own health
// metrics and traces (exchanges captured, queue evictions, send
// outcomes). When nil, the SDK reports nothing about itself.
type TelemetryOpts struct {
	Prometheus []PrometheusExporter `json:"prometheus" yaml:"prometheus"`
	OTLP       []OTLPExporter       `json:"otlp" yaml:"otlp"`

	MetricReportingPeriod *int `json:"metric_reporting_period" yaml:"metric_reporting_period"`
}

// OTLPExporter points the SDK health telemetry at an OTLP collector.
type OTLPExporter struct {
	Name           string `json:"name" yaml:"name"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	UseHTTP        bool   `json:"use_http" yaml:"use_http"`
	DisableMetrics bool   `json:"disable_metrics" yaml:"disable_metrics"`
	DisableTraces  bool   `json:"disable_traces" yaml:"disable_traces"`
}

// PrometheusExporter serves the SDK health metrics on a scrape endpoint.
type PrometheusExporter struct {
	Name           string `json:"name" yaml:"name"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	ProcessMetrics bool   `json:"process_metrics" yaml:"process_metrics"`
	GoMetrics      bool   `json:"go_metrics" yaml:"go_metrics"`
	DisableMetrics bool   `json:"disable_metrics" yaml:"disable_metrics"`
}

// DemoMode tells if the configured API key selects the local sink.
func (c *ConfigData) DemoMode() bool {
	return c.APIKey == DemoAPIKey
}

// Verbose tells if the internal logging channel is enabled.
func (c *ConfigData) Verbose() bool {
	return c.Silent != nil && !*c.Silent
}

// Validate checks that live delivery has the credentials and the
// endpoint it needs. Demo mode only checks the telemetry exporters.
func (c *ConfigData) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if !c.DemoMode() {
		u, err := url.ParseRequestURI(c.CollectorURL)
		if err != nil {
			return fmt.Errorf("coolhand: invalid collector url %q: %s", c.CollectorURL, err.Error())
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("coolhand: invalid collector url %q: missing scheme or host", c.CollectorURL)
		}
	}
	return c.validateTelemetry()
}

func (c *ConfigData) validateTelemetry() error {
	if c.Telemetry == nil {
		return nil
	}
	uniqueNames := make(map[string]bool, len(c.Telemetry.OTLP)+len(c.Telemetry.Prometheus))
	for idx, ecfg := range c.Telemetry.OTLP {
		if uniqueNames[ecfg.Name] {
			return fmt.Errorf("OTLP exporter with duplicate name: %s (at idx %d)", ecfg.Name, idx)
		}
		uniqueNames[ecfg.Name] = true
	}
	for idx, ecfg := range c.Telemetry.Prometheus {
		if uniqueNames[ecfg.Name] {
			return fmt.Errorf("prometheus exporter with duplicate name: %s (at idx %d)", ecfg.Name, idx)
		}
		uniqueNames[ecfg.Name] = true
	}
	return nil
}

// UnsetFieldsToDefaults fills every optional field that was left
// unset. Safe to call more than once.
func (c *ConfigData) UnsetFieldsToDefaults() {
	if c.Silent == nil {
		silent := true
		c.Silent = &silent
	}

	if c.CollectorURL == "" {
		c.CollectorURL = DefaultCollectorURL
	}

	if c.Queue == nil {
		c.Queue = &QueueOpts{}
	}
	if c.Queue.Size <= 0 {
		c.Queue.Size = 256
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 1
	}
	if c.Queue.SendTimeoutMS <= 0 {
		c.Queue.SendTimeoutMS = 5000
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.FlushTimeoutMS <= 0 {
		c.Queue.FlushTimeoutMS = 2000
	}

	if c.Capture == nil {
		c.Capture = &CaptureOpts{}
	}
	if c.Capture.MaxBodyBytes <= 0 {
		c.Capture.MaxBodyBytes = 1 << 20
	}

	if c.Telemetry != nil && c.Telemetry.MetricReportingPeriod == nil {
		reportingPeriod := 30
		c.Telemetry.MetricReportingPeriod = &reportingPeriod
	}
}
