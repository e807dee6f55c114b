package delivery

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"

	chconfig "github.com/coolhand-ai/coolhand-go/config"
)

// queueMetrics reports the queue health on the SDK telemetry and
// keeps cheap local counters for the stats snapshot.
type queueMetrics struct {
	enqueuedCount metric.Int64Counter
	evictedCount  metric.Int64Counter
	sentCount     metric.Int64Counter
	droppedCount  metric.Int64Counter
	sendTime      metric.Float64Histogram

	nEnqueued atomic.Int64
	nEvicted  atomic.Int64
	nSent     atomic.Int64
	nDropped  atomic.Int64
}

func newQueueMetrics(meter metric.Meter) *queueMetrics {
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("coolhand.queue.nop")
	}
	m := &queueMetrics{}
	m.enqueuedCount, _ = meter.Int64Counter("coolhand.queue.enqueued.count")
	m.evictedCount, _ = meter.Int64Counter("coolhand.queue.evicted.count")
	m.sentCount, _ = meter.Int64Counter("coolhand.queue.sent.count")
	m.droppedCount, _ = meter.Int64Counter("coolhand.queue.dropped.count")
	m.sendTime, _ = meter.Float64Histogram("coolhand.queue.send.duration",
		chconfig.TimeBucketsOpt, metric.WithUnit("s"))
	return m
}

func (m *queueMetrics) enqueued() {
	m.nEnqueued.Add(1)
	m.enqueuedCount.Add(context.Background(), 1)
}

func (m *queueMetrics) evicted() {
	m.nEvicted.Add(1)
	m.evictedCount.Add(context.Background(), 1)
}

func (m *queueMetrics) sent(elapsed time.Duration) {
	m.nSent.Add(1)
	m.sentCount.Add(context.Background(), 1)
	m.sendTime.Record(context.Background(), float64(elapsed)/float64(time.Second))
}

func (m *queueMetrics) dropped() {
	m.nDropped.Add(1)
	m.droppedCount.Add(context.Background(), 1)
}

func (m *queueMetrics) snapshot() Stats {
	return Stats{
		Enqueued: m.nEnqueued.Load(),
		Evicted:  m.nEvicted.Load(),
		Sent:     m.nSent.Load(),
		Dropped:  m.nDropped.Load(),
	}
}
