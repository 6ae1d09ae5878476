package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the scoring subsystem.
type Metrics struct {
	Scored       *prometheus.CounterVec
	Fallbacks    *prometheus.CounterVec
	BreakerState prometheus.Gauge
	Latency      prometheus.Histogram
}

// ObserveVerdict counts one scored transaction. Nil-safe so tests can run
// without touching the global registry.
func (m *Metrics) ObserveVerdict(risk string, seconds float64) {
	if m == nil {
		return
	}
	m.Scored.WithLabelValues(risk).Inc()
	m.Latency.Observe(seconds)
}

// ObserveFallback counts one substituted fallback verdict.
func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

// SetBreakerOpen records the current breaker state.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}

// New creates and registers all scoring metrics.
func New() *Metrics {
	return &Metrics{
		Scored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudlens_scoring_total",
			Help: "Transactions scored, by verdict tier.",
		}, []string{"risk"}),
		Fallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fraudlens_scoring_fallback_total",
			Help: "Fallback verdicts substituted, by failure reason.",
		}, []string{"reason"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fraudlens_scoring_breaker_open",
			Help: "1 while the inference circuit breaker is open.",
		}),
		Latency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraudlens_scoring_duration_seconds",
			Help:    "Wall time of one scoring call, fallback paths included.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
