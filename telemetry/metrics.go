// Package telemetry exposes the counters, histograms, and gauges the engine
// updates around each pipeline stage, and the GET /metrics handler that
// serves them in Prometheus text-exposition format.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the engine touches. Construct one with
// New and pass it down to the components that need to record against it.
type Metrics struct {
	SignalsProcessed  *prometheus.CounterVec
	RiskErrors        *prometheus.CounterVec
	OrdersPlaced      *prometheus.CounterVec
	SignalLatency     prometheus.Histogram
	OpenPositions     prometheus.Gauge
	EventFabricErrors *prometheus.CounterVec
}

// New registers every collector against its own registry so tests can build
// isolated Metrics instances without colliding with prometheus's default
// global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return newWithRegisterer(reg)
}

// NewDefault registers against prometheus.DefaultRegisterer, for production
// use with promhttp.Handler's default registry.
func NewDefault() *Metrics {
	return newWithRegisterer(prometheus.DefaultRegisterer)
}

func newWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignalsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_signals_processed_total",
			Help: "Signals processed by the risk engine, by outcome.",
		}, []string{"outcome"}),
		RiskErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_risk_errors_total",
			Help: "Risk rejections, by error kind.",
		}, []string{"kind"}),
		OrdersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_orders_placed_total",
			Help: "Orders placed on the broker, by result kind.",
		}, []string{"kind"}),
		SignalLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kestrel_signal_processing_seconds",
			Help:    "Time spent processing a signal end to end.",
			Buckets: prometheus.DefBuckets,
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kestrel_open_positions",
			Help: "Current number of open positions across all strategies.",
		}),
		EventFabricErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_event_fabric_handler_errors_total",
			Help: "Subscriber handler errors observed by the event fabric, by subscriber.",
		}, []string{"subscriber"}),
	}
}

// Handler returns an http.Handler serving the Prometheus text exposition
// format for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
