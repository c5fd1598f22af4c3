// Package telemetry exposes simulation progress as Prometheus metrics.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/deepfake-battle/internal/engine"
)

// Registry holds all metrics for the simulator
type Registry struct {
	// Simulation Metrics
	SeriesValue  *prometheus.GaugeVec
	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	Running      *prometheus.GaugeVec
	BattlesTotal *prometheus.CounterVec

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry

	mu          sync.Mutex
	lastModel   engine.Model
	seenBattles int
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initSimulationMetrics()
	r.initHTTPMetrics()

	return r
}

func (r *Registry) initSimulationMetrics() {
	r.SeriesValue = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deepfakesim_series_value",
			Help: "Latest value of each metrics series column",
		},
		[]string{"model", "series"},
	)

	r.StepsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepfakesim_steps_total",
			Help: "Total number of simulation steps executed",
		},
		[]string{"model"},
	)

	r.StepDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepfakesim_step_duration_seconds",
			Help:    "Wall time of one simulation step",
			Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
		},
		[]string{"model"},
	)

	r.Running = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deepfakesim_running",
			Help: "1 while the current model can still step",
		},
		[]string{"model"},
	)

	r.BattlesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepfakesim_battles_total",
			Help: "Detector/generator engagements by outcome",
		},
		[]string{"outcome"},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "deepfakesim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deepfakesim_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
