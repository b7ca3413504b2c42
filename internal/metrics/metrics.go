// Package metrics exposes Prometheus collectors for provider calls, pipeline
// stages, and scene renders. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyreel"

// Recorder owns a private registry and the storyreel collectors.
type Recorder struct {
	registry        *prometheus.Registry
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerRetries *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	rendersInFlight prometheus.Gauge
	renderOutcomes  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Generation provider attempts by request kind and outcome.",
		}, []string{"kind", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Latency of individual provider attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Retries scheduled after transient provider failures.",
		}, []string{"kind"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline operations by stage and outcome.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage", "outcome"}),
		rendersInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "in_flight",
			Help:      "Scene video renders currently running.",
		}),
		renderOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "outcomes_total",
			Help:      "Terminal scene render outcomes.",
		}, []string{"status"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.providerCalls,
		r.providerLatency,
		r.providerRetries,
		r.stageDuration,
		r.rendersInFlight,
		r.renderOutcomes,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveProviderCall(kind, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.providerCalls.WithLabelValues(kind, outcome).Inc()
	r.providerLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveProviderRetry(kind string) {
	if r == nil {
		return
	}
	r.providerRetries.WithLabelValues(kind).Inc()
}

// ObserveStage records how long a pipeline operation took.
func (r *Recorder) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

// RenderStarted increments the in-flight gauge.
func (r *Recorder) RenderStarted() {
	if r == nil {
		return
	}
	r.rendersInFlight.Inc()
}

// RenderFinished decrements the in-flight gauge and counts the outcome.
func (r *Recorder) RenderFinished(status string) {
	if r == nil {
		return
	}
	r.rendersInFlight.Dec()
	r.renderOutcomes.WithLabelValues(status).Inc()
}
