package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the broadcast hub.
type Metrics struct {
	Subscribers prometheus.Gauge
	Published   prometheus.Counter
	Dropped     prometheus.Counter
}

// SetSubscribers records the current live subscriber count. Nil-safe so
// tests can run without touching the global registry.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

// IncPublished counts one fanned-out insight.
func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	m.Published.Inc()
}

// IncDropped counts one deregistered dead or overflowing subscriber.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

// New creates and registers all hub metrics.
func New() *Metrics {
	return &Metrics{
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fraudlens_hub_subscribers",
			Help: "Live subscriber connections.",
		}),
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudlens_hub_published_total",
			Help: "Insights fanned out to subscribers.",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fraudlens_hub_dropped_subscribers_total",
			Help: "Subscribers deregistered on write failure or overflow.",
		}),
	}
}
