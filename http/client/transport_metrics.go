package client

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/semconv/v1.21.0"

	chconfig "github.com/coolhand-ai/coolhand-go/config"
)

// TransportMetricsOptions contains the options to enable / disable
// for reporting metrics, and a set of fixed attributes to add
// to all metrics.
type TransportMetricsOptions struct {
	RoundTrip       bool                 // provide the per exchange metrics
	ReadPayload     bool                 // provide metrics for reading the response body
	FixedAttributes []attribute.KeyValue // "static" attributes set at config time.
}

// Enabled tells if metrics should be reported for the transport.
func (o *TransportMetricsOptions) Enabled() bool {
	return o.RoundTrip || o.ReadPayload
}

// transportMetrics holds the instruments for the monitored exchanges
type transportMetrics struct {
	// total of started exchanges (successful and failed)
	exchangesStarted metric.Int64Counter
	exchangesFailed  metric.Int64Counter

	exchangeLatency metric.Float64Histogram

	// token accounting, when the provider reported usage
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter

	fixedAttrs []attribute.KeyValue
}

func newTransportMetrics(metricsOpts *TransportMetricsOptions, meter metric.Meter) *transportMetrics {
	if meter == nil || !metricsOpts.RoundTrip {
		return nil
	}

	var tm transportMetrics
	tm.exchangesStarted, _ = meter.Int64Counter("coolhand.client.exchange.started.count")
	tm.exchangesFailed, _ = meter.Int64Counter("coolhand.client.exchange.failed.count")
	tm.exchangeLatency, _ = meter.Float64Histogram("coolhand.client.exchange.duration",
		chconfig.TimeBucketsOpt, metric.WithUnit("s"))
	tm.promptTokens, _ = meter.Int64Counter("coolhand.client.tokens.prompt")
	tm.completionTokens, _ = meter.Int64Counter("coolhand.client.tokens.completion")
	tm.fixedAttrs = metricsOpts.FixedAttributes
	return &tm
}

func (m *transportMetrics) report(ext *exchangeTracking) {
	if m == nil {
		return
	}

	attrM := make([]attribute.KeyValue, len(m.fixedAttrs), len(m.fixedAttrs)+5)
	copy(attrM, m.fixedAttrs)
	attrM = append(attrM,
		attribute.Key("provider").String(ext.pattern.Name),
		semconv.HTTPRequestMethodKey.String(ext.req.Method),
		attribute.Bool("streaming", ext.streaming),
	)

	statusCode := 0
	if ext.err == nil && ext.resp != nil {
		// with a client side failure there is no status code, but we
		// want it set to 0 to show up on the dashboard
		statusCode = ext.resp.StatusCode
	}
	attrM = append(attrM, semconv.HTTPResponseStatusCode(statusCode))

	if ext.record != nil && ext.record.Model != "" {
		attrM = append(attrM, attribute.Key("model").String(ext.record.Model))
	}
	attrOpt := metric.WithAttributeSet(attribute.NewSet(attrM...))

	ctx := ext.req.Context()
	m.exchangesStarted.Add(ctx, 1, attrOpt)
	if ext.err != nil {
		m.exchangesFailed.Add(ctx, 1, attrOpt)
	}
	m.exchangeLatency.Record(ctx, ext.latencyInSecs, attrOpt)

	if ext.record != nil && ext.record.Usage != nil {
		m.promptTokens.Add(ctx, ext.record.Usage.PromptTokens, attrOpt)
		m.completionTokens.Add(ctx, ext.record.Usage.CompletionTokens, attrOpt)
	}
}
