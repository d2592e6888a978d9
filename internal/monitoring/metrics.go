package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

// Monte Carlo metrics. They live on a private registry so that importing the
// package never touches prometheus.DefaultRegisterer.
var (
	TrialsTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "debris_trials_total",
		Help: "Monte Carlo trajectories evaluated",
	})

	HitsTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "debris_hits_total",
		Help: "Trajectories with at least one fragment inside the hit distance",
	})

	ChordFallbacksTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "debris_chord_fallbacks_total",
		Help: "Importance-sampled chords that fell back to uniform sampling",
	})

	BatchDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "debris_batch_duration_seconds",
		Help:    "Wall time of one Monte Carlo batch",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60},
	})
)

// Registry returns the registry holding the estimator metrics, for callers
// that want to expose or scrape them.
func Registry() *prometheus.Registry {
	return registry
}
