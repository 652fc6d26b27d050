package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the nowcast engine.
// Instances are passed explicitly to the components that record into them;
// there is no package-level default.
type Metrics struct {
	IndexBuilds      prometheus.Counter
	IndexCacheHits   prometheus.Counter
	IndexCacheMisses prometheus.Counter

	AdvectionSteps   prometheus.Counter
	StepDuration     prometheus.Histogram
	ResampleDuration prometheus.Histogram
}

// NewMetrics creates the engine metrics and registers them with reg.
// A nil reg falls back to the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		IndexBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nowcast",
			Name:      "spatial_index_builds_total",
			Help:      "Total k-d tree builds performed.",
		}),
		IndexCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nowcast",
			Name:      "index_cache_hits_total",
			Help:      "Index cache lookups served from an existing entry.",
		}),
		IndexCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nowcast",
			Name:      "index_cache_misses_total",
			Help:      "Index cache lookups that required a build.",
		}),
		AdvectionSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nowcast",
			Name:      "advection_steps_total",
			Help:      "Total projector steps completed.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nowcast",
			Name:      "advection_step_duration_seconds",
			Help:      "Wall time of a single projector step.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ResampleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nowcast",
			Name:      "resample_duration_seconds",
			Help:      "Wall time of a nearest-neighbour resample pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}

	reg.MustRegister(
		m.IndexBuilds,
		m.IndexCacheHits,
		m.IndexCacheMisses,
		m.AdvectionSteps,
		m.StepDuration,
		m.ResampleDuration,
	)
	return m
}
