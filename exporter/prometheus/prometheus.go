// Package prometheus serves the SDK health metrics on a Prometheus
// scrape endpoint.
package prometheus

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/coolhand-ai/coolhand-go/config"
)

// PrometheusCollector implements the metrics exporter.
type PrometheusCollector struct {
	registry          *prom.Registry
	exporter          *prometheus.Exporter
	disabledByDefault bool
}

// MetricReader implements the interface to export metrics.
func (c *PrometheusCollector) MetricReader(_ time.Duration) sdkmetric.Reader {
	return c.exporter
}

func (c *PrometheusCollector) MetricDefaultReporting() bool {
	return !c.disabledByDefault
}

// Exporter creates a Prometheus exporter instance and starts serving
// its /metrics endpoint until the context is cancelled.
func Exporter(ctx context.Context, cfg config.PrometheusExporter) (*PrometheusCollector, error) {
	if cfg.Port == 0 {
		cfg.Port = 9201
	}
	registry := prom.NewRegistry()

	if cfg.ProcessMetrics {
		if err := registry.Register(promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}
	if cfg.GoMetrics {
		if err := registry.Register(promcollectors.NewGoCollector()); err != nil {
			return nil, err
		}
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	router := http.NewServeMux()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := http.Server{
		Handler:           router,
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		if serverErr := server.ListenAndServe(); serverErr != http.ErrServerClosed {
			log.Printf("[COOLHAND] the prometheus exporter failed to listen and serve: %v", serverErr)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		server.Shutdown(shutdownCtx)
		cancel()
	}()

	return &PrometheusCollector{
		registry:          registry,
		exporter:          exporter,
		disabledByDefault: cfg.DisableMetrics,
	}, nil
}
