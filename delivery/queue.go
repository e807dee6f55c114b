package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luraproject/lura/v2/logging"
	"go.opentelemetry.io/otel/metric"

	"github.com/coolhand-ai/coolhand-go/capture"
	chconfig "github.com/coolhand-ai/coolhand-go/config"
)

// Queue is the bounded buffer between the many goroutines that
// finish exchanges and the background senders that drain it.
//
// Enqueue never blocks: when the buffer is full, the oldest unsent
// record is evicted to admit the newest. A record is retried a small
// fixed number of times with exponential backoff and then dropped.
// Every failure stays inside the queue: nothing ever reaches the
// monitored application.
type Queue struct {
	mu  sync.Mutex
	buf []*capture.Record

	notify chan struct{}
	done   chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	sink         Sink
	size         int
	maxAttempts  int
	sendTimeout  time.Duration
	flushTimeout time.Duration

	logger  logging.Logger
	metrics *queueMetrics
}

// NewQueue creates the queue and starts its background workers.
func NewQueue(opts *chconfig.QueueOpts, sink Sink, l logging.Logger, meter metric.Meter) *Queue {
	if l == nil {
		l = logging.NoOp
	}
	q := &Queue{
		buf:          make([]*capture.Record, 0, opts.Size),
		notify:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		sink:         sink,
		size:         opts.Size,
		maxAttempts:  opts.MaxAttempts,
		sendTimeout:  time.Duration(opts.SendTimeoutMS) * time.Millisecond,
		flushTimeout: time.Duration(opts.FlushTimeoutMS) * time.Millisecond,
		logger:       l,
		metrics:      newQueueMetrics(meter),
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue admits a finalized record for background delivery and
// returns immediately. Safe under concurrent producers.
func (q *Queue) Enqueue(rec *capture.Record) {
	if rec == nil {
		return
	}
	q.mu.Lock()
	if len(q.buf) >= q.size {
		copy(q.buf, q.buf[1:])
		q.buf = q.buf[:len(q.buf)-1]
		q.metrics.evicted()
	}
	q.buf = append(q.buf, rec)
	q.mu.Unlock()

	q.metrics.enqueued()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Depth reports the number of buffered, unsent records.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Stats is a point in time snapshot of the queue counters.
type Stats struct {
	Depth    int   `json:"depth"`
	Enqueued int64 `json:"enqueued"`
	Evicted  int64 `json:"evicted"`
	Sent     int64 `json:"sent"`
	Dropped  int64 `json:"dropped"`
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	c := q.metrics.snapshot()
	c.Depth = q.Depth()
	return c
}

// Close stops the workers after a best effort flush of whatever is
// still buffered. It returns once the workers are gone or the
// context expires, whichever happens first.
func (q *Queue) Close(ctx context.Context) error {
	q.closeOnce.Do(func() { close(q.done) })

	waited := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) pop() *capture.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil
	}
	rec := q.buf[0]
	copy(q.buf, q.buf[1:])
	q.buf = q.buf[:len(q.buf)-1]
	return rec
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			// best effort flush, bounded so shutdown never hangs
			flushCtx, cancel := context.WithTimeout(context.Background(), q.flushTimeout)
			q.drain(flushCtx)
			cancel()
			return
		case <-q.notify:
			q.drain(context.Background())
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		rec := q.pop()
		if rec == nil {
			return
		}
		q.send(ctx, rec)
	}
}

func (q *Queue) send(ctx context.Context, rec *capture.Record) {
	started := time.Now()
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, q.sendTimeout)
		defer cancel()
		return q.sink.Send(attemptCtx, rec)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	retries := uint64(0)
	if q.maxAttempts > 1 {
		retries = uint64(q.maxAttempts - 1)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))
	if err != nil {
		q.metrics.dropped()
		q.logger.Debug("[COOLHAND] record dropped after retries:", rec.ID, err.Error())
		return
	}
	q.metrics.sent(time.Since(started))
}
