package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestUnsetFieldsToDefaults(t *testing.T) {
	cfg := &ConfigData{APIKey: "live-key"}
	cfg.UnsetFieldsToDefaults()

	if cfg.Silent == nil || !*cfg.Silent {
		t.Error("silent must default to true")
	}
	if cfg.CollectorURL != DefaultCollectorURL {
		t.Errorf("collector url, want: %s, got: %s", DefaultCollectorURL, cfg.CollectorURL)
	}
	if cfg.Queue == nil || cfg.Queue.Size != 256 || cfg.Queue.Workers != 1 {
		t.Errorf("unexpected queue defaults: %#v", cfg.Queue)
	}
	if cfg.Queue.MaxAttempts != 3 || cfg.Queue.SendTimeoutMS != 5000 || cfg.Queue.FlushTimeoutMS != 2000 {
		t.Errorf("unexpected queue defaults: %#v", cfg.Queue)
	}
	if cfg.Capture == nil || cfg.Capture.MaxBodyBytes != 1<<20 {
		t.Errorf("unexpected capture defaults: %#v", cfg.Capture)
	}

	// a second pass must not clobber explicit values
	cfg.Queue.Size = 7
	cfg.UnsetFieldsToDefaults()
	if cfg.Queue.Size != 7 {
		t.Errorf("defaults overwrote an explicit value, got size: %d", cfg.Queue.Size)
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := &ConfigData{}
	cfg.UnsetFieldsToDefaults()
	if err := cfg.Validate(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("want ErrNoAPIKey, got: %v", err)
	}
}

func TestValidateDemoMode(t *testing.T) {
	cfg := &ConfigData{APIKey: DemoAPIKey}
	cfg.UnsetFieldsToDefaults()
	if !cfg.DemoMode() {
		t.Error("demo key must select demo mode")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("demo config must validate, got: %v", err)
	}
}

func TestValidateCollectorURL(t *testing.T) {
	for rawURL, want := range map[string]bool{
		DefaultCollectorURL:                        true,
		"http://localhost:8090/v1/interactions":    true,
		"not a url":                                false,
		"just-a-word":                              false,
		"/path/without/host":                       false,
		"://missing-scheme":                        false,
	} {
		cfg := &ConfigData{APIKey: "live-key", CollectorURL: rawURL}
		cfg.UnsetFieldsToDefaults()
		err := cfg.Validate()
		if want && err != nil {
			t.Errorf("%q must validate, got: %v", rawURL, err)
		}
		if !want && err == nil {
			t.Errorf("%q must not validate", rawURL)
		}
	}

	// demo mode skips the collector check entirely
	cfg := &ConfigData{APIKey: DemoAPIKey, CollectorURL: "not a url"}
	cfg.UnsetFieldsToDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("demo mode must not check the collector url, got: %v", err)
	}
}

func TestValidateDuplicateExporterNames(t *testing.T) {
	cfg := &ConfigData{
		APIKey: "live-key",
		Telemetry: &TelemetryOpts{
			OTLP:       []OTLPExporter{{Name: "local"}},
			Prometheus: []PrometheusExporter{{Name: "local"}},
		},
	}
	cfg.UnsetFieldsToDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("duplicate exporter names must not validate")
	}
}

func TestVerbose(t *testing.T) {
	cfg := &ConfigData{APIKey: "k"}
	cfg.UnsetFieldsToDefaults()
	if cfg.Verbose() {
		t.Error("default config must be silent")
	}
	silent := false
	cfg.Silent = &silent
	if !cfg.Verbose() {
		t.Error("silent=false must enable the verbose channel")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvSilent, "false")
	t.Setenv(EnvDebug, "true")

	cfg := FromEnv()
	if cfg.APIKey != "env-key" {
		t.Errorf("api key, want: env-key, got: %s", cfg.APIKey)
	}
	if !cfg.Verbose() {
		t.Error("COOLHAND_SILENT=false must enable the verbose channel")
	}
	if !cfg.Debug {
		t.Error("COOLHAND_DEBUG=true must enable debug")
	}
	if cfg.Queue == nil {
		t.Error("env config must carry the defaults")
	}
}

func TestFromFile(t *testing.T) {
	body := []byte(`
api_key: file-key
silent: false
collector_url: "http://localhost:8090/v1/interactions"
queue:
  size: 16
  max_attempts: 5
capture:
  max_body_bytes: 2048
`)
	path := filepath.Join(t.TempDir(), "coolhand.yml")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromFile(path)
	if err != nil {
		t.Fatalf("cannot load config: %v", err)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("api key, want: file-key, got: %s", cfg.APIKey)
	}
	if cfg.CollectorURL != "http://localhost:8090/v1/interactions" {
		t.Errorf("unexpected collector url: %s", cfg.CollectorURL)
	}
	if cfg.Queue.Size != 16 || cfg.Queue.MaxAttempts != 5 {
		t.Errorf("unexpected queue config: %#v", cfg.Queue)
	}
	if cfg.Capture.MaxBodyBytes != 2048 {
		t.Errorf("unexpected capture config: %#v", cfg.Capture)
	}
	// unset fields still get their defaults
	if cfg.Queue.Workers != 1 {
		t.Errorf("workers default, want: 1, got: %d", cfg.Queue.Workers)
	}

	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("missing file must fail")
	}
}
