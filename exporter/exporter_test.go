package exporter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/coolhand-ai/coolhand-go/config"
)

func TestInstancesWithoutTelemetry(t *testing.T) {
	m, s, err := Instances(context.Background(), nil)
	if err != nil {
		t.Fatalf("nil config must not fail: %v", err)
	}
	if len(m) != 0 || len(s) != 0 {
		t.Errorf("nil config must yield empty maps, got: %d metric, %d span", len(m), len(s))
	}
}

func TestInstancesOTLP(t *testing.T) {
	cfg := &config.TelemetryOpts{
		OTLP: []config.OTLPExporter{
			{Name: "agent", Port: 14317, DisableTraces: true},
		},
	}
	m, s, err := Instances(context.Background(), cfg)
	if err != nil {
		t.Fatalf("cannot build otlp exporter: %v", err)
	}

	mr, ok := m["agent"]
	if !ok {
		t.Fatal("metric reader not registered under its name")
	}
	if !mr.MetricDefaultReporting() {
		t.Error("metrics must report by default")
	}
	if r := mr.MetricReader(time.Second); r == nil {
		t.Error("nil metric reader")
	}

	se, ok := s["agent"]
	if !ok {
		t.Fatal("span exporter not registered under its name")
	}
	if se.TraceDefaultReporting() {
		t.Error("traces were disabled for this exporter")
	}
	if se.SpanExporter() == nil {
		t.Error("nil span exporter")
	}
}

func TestInstancesPrometheus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := 19201
	cfg := &config.TelemetryOpts{
		Prometheus: []config.PrometheusExporter{
			{Name: "scrape", Host: "127.0.0.1", Port: port},
		},
	}
	m, _, err := Instances(ctx, cfg)
	if err != nil {
		t.Fatalf("cannot build prometheus exporter: %v", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(m["scrape"].MetricReader(time.Second)))
	defer mp.Shutdown(context.Background())
	counter, err := mp.Meter("test").Int64Counter("test.counter")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 3)

	url := fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
	var body string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(b)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if body == "" {
		t.Fatal("scrape endpoint never came up")
	}
	if !strings.Contains(body, "test_counter") {
		t.Errorf("recorded counter not exposed:\n%s", body)
	}
}
