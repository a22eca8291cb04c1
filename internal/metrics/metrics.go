// Package metrics exposes the daemon's Prometheus instrumentation: a
// struct of promauto-registered collectors, built once at start-up and
// handed to the engine, which records against its fields directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the engine records against during a tick.
type Metrics struct {
	TickDuration    prometheus.Histogram
	TicksTotal      prometheus.Counter
	ScanFailures    prometheus.Counter
	NewExes         prometheus.Counter
	NewMaps         prometheus.Counter
	NewEdges        prometheus.Counter
	PrunedEdges     prometheus.Counter
	BadExes         prometheus.Counter
	PrefetchMaps    prometheus.Counter
	PrefetchBytes   prometheus.Counter
	PrefetchFailure prometheus.Counter
	ModelTime       prometheus.Gauge
}

// New creates and registers the daemon's metrics under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "preloadd"
	}

	return &Metrics{
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of one scan/update/predict/plan/prefetch cycle.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 20},
		}),
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of completed ticks.",
		}),
		ScanFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_failures_total",
			Help:      "Total number of hard scan failures.",
		}),
		NewExes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_exes_total",
			Help:      "Total number of exes admitted into the model.",
		}),
		NewMaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_maps_total",
			Help:      "Total number of distinct map regions observed.",
		}),
		NewEdges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_markov_edges_total",
			Help:      "Total number of Markov edges created.",
		}),
		PrunedEdges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_markov_edges_total",
			Help:      "Total number of Markov edges pruned for an inactive endpoint.",
		}),
		BadExes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bad_exes_total",
			Help:      "Total number of exes rejected by the admission policy.",
		}),
		PrefetchMaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_maps_total",
			Help:      "Total number of map regions handed to the prefetcher.",
		}),
		PrefetchBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_bytes_total",
			Help:      "Total bytes covered by issued prefetch hints.",
		}),
		PrefetchFailure: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_failures_total",
			Help:      "Total number of prefetch hint failures.",
		}),
		ModelTime: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_time_seconds",
			Help:      "The engine's internal logical clock.",
		}),
	}
}
