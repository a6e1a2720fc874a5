package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the scoring instruments; a nil *Metrics records nothing
type Metrics struct {
	rows    *prometheus.CounterVec
	drifts  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics registers the scoring instruments on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churnlearn",
			Subsystem: "api",
			Name:      "scored_rows_total",
			Help:      "Rows scored per model",
		}, []string{"model"}),
		drifts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churnlearn",
			Subsystem: "api",
			Name:      "schema_drift_total",
			Help:      "Score requests rejected for missing fitted columns",
		}, []string{"model"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "churnlearn",
			Subsystem: "api",
			Name:      "score_seconds",
			Help:      "Wall time of one score request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
	}
}

func (m *Metrics) scored(model string, rows int, took time.Duration) {
	if m != nil {
		m.rows.WithLabelValues(model).Add(float64(rows))
		m.latency.WithLabelValues(model).Observe(took.Seconds())
	}
}

func (m *Metrics) drift(model string) {
	if m != nil {
		m.drifts.WithLabelValues(model).Inc()
	}
}
