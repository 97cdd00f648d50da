package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce          sync.Once
	metricsInitErr       error
	scanCounter          metric.Int64Counter
	retryCounter         metric.Int64Counter
	rateLimitedCounter   metric.Int64Counter
	scanLatencyHistogram metric.Float64Histogram
)

// ScanMetrics captures the fields recorded for one client operation.
type ScanMetrics struct {
	Operation string
	Engine    string
	Verdict   string
	Blocked   bool
	Duration  time.Duration
	Retries   int
}

// RecordScan emits counters and a latency histogram describing a completed
// scan operation. Safe to call with no meter provider configured.
func RecordScan(ctx context.Context, m ScanMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("guardian.operation", m.Operation),
		attribute.String("guardian.engine", m.Engine),
		attribute.String("guardian.verdict", m.Verdict),
		attribute.Bool("guardian.blocked", m.Blocked),
	}

	scanCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if m.Duration > 0 {
		scanLatencyHistogram.Record(ctx, float64(m.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
	if m.Retries > 0 {
		retryCounter.Add(ctx, int64(m.Retries), metric.WithAttributes(attrs...))
	}
}

// RecordRateLimited counts a request rejected by the server's quota.
func RecordRateLimited(ctx context.Context, operation string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	rateLimitedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("guardian.operation", operation),
	))
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("guardian.client")

		scanCounter, metricsInitErr = meter.Int64Counter(
			"guardian.scans_total",
			metric.WithDescription("Completed scan operations partitioned by verdict"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		retryCounter, metricsInitErr = meter.Int64Counter(
			"guardian.retries_total",
			metric.WithDescription("Retry attempts performed for transient failures"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		rateLimitedCounter, metricsInitErr = meter.Int64Counter(
			"guardian.rate_limited_total",
			metric.WithDescription("Requests rejected by the server rate limiter"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		scanLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"guardian.scan.duration_ms",
			metric.WithDescription("Observed scan latency including retries"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}

// RecordScanEvent attaches a coarse-grained scan outcome to the provided
// span. The scanned text itself is never attached.
func RecordScanEvent(span trace.Span, blocked bool, verdict string, threats int) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent("guardian.scan", trace.WithAttributes(
		attribute.Bool("guardian.blocked", blocked),
		attribute.String("guardian.verdict", verdict),
		attribute.Int("guardian.threats.count", threats),
	))
}
