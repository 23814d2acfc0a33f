package comparison

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments comparison runs.
type Metrics struct {
	cells           *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	reconciliations *prometheus.CounterVec
}

// NewMetrics registers the comparison collectors against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fincompare_comparison_cells_total",
			Help: "Comparison cells by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fincompare_filing_fetch_duration_seconds",
			Help:    "Latency of filing fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fincompare_reconciliations_total",
			Help: "Categories resolved from several candidate lines, by rule.",
		}, []string{"rule"}),
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	registerer.MustRegister(m.cells, m.fetchDuration, m.reconciliations)
	return m
}

func (m *Metrics) observeFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) observeCell(outcome string) {
	if m == nil {
		return
	}
	m.cells.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeReconciliation(rule string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(rule).Inc()
}
