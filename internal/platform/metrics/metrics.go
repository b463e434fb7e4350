package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Collector keeps in-process totals for the /metrics endpoint and mirrors
// them to OpenTelemetry instruments on the global meter provider.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu        sync.Mutex
	dispatch  map[string]uint64
	ticks     uint64
	lastTick  map[string]any
	evaluated uint64

	requests     metric.Int64Counter
	dispatches   metric.Int64Counter
	tickDuration metric.Float64Histogram
}

func New() *Collector {
	c := &Collector{dispatch: map[string]uint64{}}
	meter := otel.Meter("competency")
	c.requests, _ = meter.Int64Counter("competency.http.requests",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	c.dispatches, _ = meter.Int64Counter("competency.notifications.dispatched",
		metric.WithDescription("Notification dispatch outcomes"),
		metric.WithUnit("{intent}"),
	)
	c.tickDuration, _ = meter.Float64Histogram("competency.reminders.tick.duration",
		metric.WithDescription("Reminder tick duration in seconds"),
		metric.WithUnit("s"),
	)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
	if c.requests != nil {
		c.requests.Add(context.Background(), 1, metric.WithAttributes(attribute.Int("status", status)))
	}
}

func (c *Collector) RecordDispatch(kind, outcome string) {
	c.mu.Lock()
	c.dispatch[outcome]++
	c.mu.Unlock()
	if c.dispatches != nil {
		c.dispatches.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func (c *Collector) RecordTick(tenantID string, evaluated, sent, failed int, duration time.Duration) {
	c.mu.Lock()
	c.ticks++
	c.evaluated += uint64(evaluated)
	c.lastTick = map[string]any{
		"tenantId":   tenantID,
		"evaluated":  evaluated,
		"sent":       sent,
		"failed":     failed,
		"durationMs": duration.Milliseconds(),
	}
	c.mu.Unlock()
	if c.tickDuration != nil {
		c.tickDuration.Record(context.Background(), duration.Seconds())
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	dispatch := make(map[string]uint64, len(c.dispatch))
	for k, v := range c.dispatch {
		dispatch[k] = v
	}
	ticks, evaluated, lastTick := c.ticks, c.evaluated, c.lastTick
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          errs,
		"rateLimitedTotal":     limited,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"dispatchOutcomes":     dispatch,
		"ticksTotal":           ticks,
		"assessmentsEvaluated": evaluated,
		"lastTick":             lastTick,
	}
}
