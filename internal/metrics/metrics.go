// Package metrics holds the dashboard's own Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the dashboard exports on /metrics.
type Metrics struct {
	RefreshCycles   *prometheus.CounterVec
	RefreshSkipped  prometheus.Counter
	BackendRequests *prometheus.HistogramVec
	WebSocketConns  prometheus.Gauge
	Sessions        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchingcat",
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles run, by result.",
		}, []string{"result"}),
		RefreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "watchingcat",
			Name:      "refresh_skipped_total",
			Help:      "Refresh ticks skipped because the previous cycle was still running.",
		}),
		BackendRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "watchingcat",
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of calls to the WatchingCat backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "outcome"}),
		WebSocketConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "watchingcat",
			Name:      "websocket_clients",
			Help:      "Connected region-stream clients.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "watchingcat",
			Name:      "sessions",
			Help:      "Live browser sessions.",
		}),
	}
	reg.MustRegister(m.RefreshCycles, m.RefreshSkipped, m.BackendRequests, m.WebSocketConns, m.Sessions)
	return m
}

// Discard returns collectors registered with a private registry, for callers
// (mostly tests) that do not expose /metrics.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
