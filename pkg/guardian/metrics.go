package guardian

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects client-side Prometheus metrics. Attach one to a Client
// with WithMetrics and expose Registry() however the embedding application
// serves metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	scansTotal       *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestErrors    *prometheus.CounterVec
	retriesTotal     prometheus.Counter
	rateLimitedTotal prometheus.Counter
	adSpansRemoved   prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_scans_total",
				Help: "Completed scans by operation and verdict",
			},
			[]string{"operation", "verdict"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guardian_request_duration_seconds",
				Help:    "Request latency including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_request_errors_total",
				Help: "Failed operations by error kind",
			},
			[]string{"operation", "kind"},
		),
		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guardian_retries_total",
				Help: "Retry attempts issued for transient failures",
			},
		),
		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guardian_rate_limited_total",
				Help: "Requests rejected by the server's rate limiter",
			},
		),
		adSpansRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "guardian_ad_spans_removed_total",
				Help: "Ad spans stripped by the isolation engine",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.scansTotal,
		m.requestDuration,
		m.requestErrors,
		m.retriesTotal,
		m.rateLimitedTotal,
		m.adSpansRemoved,
	)
	return m
}

// Registry exposes the collector's registry for scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observeScan(operation string, verdict Verdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(operation, string(verdict)).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRequest(operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeError(operation string, err error) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(operation, errorKind(err)).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

func (m *Metrics) observeRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

func (m *Metrics) observeIsolation(spans int) {
	if m == nil || spans <= 0 {
		return
	}
	m.adSpansRemoved.Add(float64(spans))
}

// errorKind maps an error onto its taxonomy label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrService):
		return "service"
	default:
		return "other"
	}
}
