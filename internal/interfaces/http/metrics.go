package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds the engine's Prometheus metrics on a private
// registry so tests and embedding processes never fight over the global one.
type MetricsRegistry struct {
	registry *prometheus.Registry

	ScansTotal   prometheus.Counter
	ScanDuration prometheus.Histogram
	SignalsTotal *prometheus.CounterVec
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	WSClients    prometheus.Gauge
	ActiveRegime *prometheus.GaugeVec
}

// NewMetricsRegistry creates and registers all metrics.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalrun_scans_total",
			Help: "Total number of scan passes executed",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalrun_scan_duration_seconds",
			Help:    "Duration of one scan pass in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalrun_signals_total",
			Help: "Signals emitted by direction and regime",
		}, []string{"direction", "regime"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalrun_cache_hits_total",
			Help: "Signal cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalrun_cache_misses_total",
			Help: "Signal cache misses",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalrun_ws_clients",
			Help: "Connected websocket signal subscribers",
		}),
		ActiveRegime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalrun_active_regime",
			Help: "Last classified regime per symbol (1 = active)",
		}, []string{"symbol", "regime"}),
	}

	m.registry.MustRegister(
		m.ScansTotal, m.ScanDuration, m.SignalsTotal,
		m.CacheHits, m.CacheMisses,
		m.WSClients, m.ActiveRegime,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *MetricsRegistry) Gatherer() prometheus.Gatherer {
	return m.registry
}
