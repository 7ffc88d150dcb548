package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	modeLabel    = "mode"
	errTypeLabel = "error_type"
)

// Metrics holds the Prometheus collectors of one server. Each Metrics owns
// its registry so several servers can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	queries  *prometheus.CounterVec
	errors   *prometheus.CounterVec
	ranges   prometheus.Histogram
	cells    prometheus.Histogram
	depth    prometheus.Histogram
	duration prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zrange_queries_total",
			Help: "The number of range queries served.",
		}, []string{modeLabel}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zrange_query_errors_total",
			Help: "The number of range queries that failed.",
		}, []string{errTypeLabel}),
		ranges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zrange_query_ranges",
			Help:    "The number of ranges returned per query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		cells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zrange_query_cells_visited",
			Help:    "The number of tree cells examined per query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zrange_query_depth",
			Help:    "The target depth used per query.",
			Buckets: prometheus.LinearBuckets(0, 4, 16),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zrange_query_duration_seconds",
			Help:    "The time spent generating ranges.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.Registry.MustRegister(m.queries, m.errors, m.ranges, m.cells, m.depth, m.duration)
	return m
}

func (m *Metrics) ObserveQuery(mode string, ranges, cells int, depth uint, seconds float64) {
	m.queries.WithLabelValues(mode).Inc()
	m.ranges.Observe(float64(ranges))
	m.cells.Observe(float64(cells))
	m.depth.Observe(float64(depth))
	m.duration.Observe(seconds)
}

func (m *Metrics) ObserveError(errType string) {
	m.errors.WithLabelValues(errType).Inc()
}
