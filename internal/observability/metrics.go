package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// extraction job. Everything is registered on a private registry so the
// whole set can be pushed at the end of a batch run (there is no scrape
// endpoint) and so multiple instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	// Object store metrics.
	ObjectsFetched prometheus.Counter
	ObjectsMissing prometheus.Counter
	BytesFetched   prometheus.Counter
	FetchDuration  prometheus.Histogram
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}

	// Pipeline metrics.
	StepsProcessed prometheus.Counter
	StageDuration  *prometheus.HistogramVec // labels: stage={open,subset,aggregate,qa,write}
	RunsCompleted  *prometheus.CounterVec   // labels: outcome={success,failure}
	RunDuration    prometheus.Gauge

	// QA results from the last run.
	MissingHours prometheus.Gauge
	MaxAreaMean  prometheus.Gauge
}

// NewMetrics creates all job metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ObjectsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aorc",
			Name:      "store_objects_fetched_total",
			Help:      "Total objects read from the chunk store.",
		}),
		ObjectsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aorc",
			Name:      "store_objects_missing_total",
			Help:      "Total store reads that found no object (filled chunks, metadata probes).",
		}),
		BytesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aorc",
			Name:      "store_bytes_fetched_total",
			Help:      "Total compressed bytes read from the chunk store.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aorc",
			Name:      "store_fetch_duration_seconds",
			Help:      "Duration of single object reads from the chunk store.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aorc",
			Name:      "store_cache_lookups_total",
			Help:      "Store cache lookups by result.",
		}, []string{"result"}),
		StepsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aorc",
			Name:      "time_steps_processed_total",
			Help:      "Total hourly time steps aggregated.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aorc",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"stage"}),
		RunsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aorc",
			Name:      "runs_completed_total",
			Help:      "Completed extraction runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aorc",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
		MissingHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aorc",
			Name:      "missing_hours",
			Help:      "Hours absent from the requested window in the last run.",
		}),
		MaxAreaMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aorc",
			Name:      "max_area_mean",
			Help:      "Maximum hourly area-mean value found in the last run.",
		}),
	}

	m.registry.MustRegister(
		m.ObjectsFetched,
		m.ObjectsMissing,
		m.BytesFetched,
		m.FetchDuration,
		m.CacheLookups,
		m.StepsProcessed,
		m.StageDuration,
		m.RunsCompleted,
		m.RunDuration,
		m.MissingHours,
		m.MaxAreaMean,
	)

	return m
}

// Push sends the full metric set to a Pushgateway under the given job name.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.registry).Push()
}
