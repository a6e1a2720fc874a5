package service

import (
	"time"

	"churnlearn/internal/services/training/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the training run instruments; a nil *Metrics records nothing
type Metrics struct {
	runs        *prometheus.CounterVec
	units       *prometheus.CounterVec
	unitSeconds prometheus.Histogram
	phase       *prometheus.HistogramVec
	bestScore   *prometheus.GaugeVec
	rows        prometheus.Gauge
}

// NewMetrics registers the training instruments on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churnlearn",
			Subsystem: "train",
			Name:      "runs_total",
			Help:      "Training runs by outcome (ok or failure class)",
		}, []string{"outcome"}),
		units: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churnlearn",
			Subsystem: "train",
			Name:      "units_total",
			Help:      "Candidate x fold evaluations by outcome",
		}, []string{"outcome"}),
		unitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "churnlearn",
			Subsystem: "train",
			Name:      "unit_seconds",
			Help:      "Wall time of one candidate x fold evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		phase: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "churnlearn",
			Subsystem: "train",
			Name:      "phase_seconds",
			Help:      "Wall time spent per run phase",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 16),
		}, []string{"phase"}),
		bestScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "churnlearn",
			Subsystem: "train",
			Name:      "best_score",
			Help:      "Mean validation score of the last winning configuration",
		}, []string{"scoring"}),
		rows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "churnlearn",
			Subsystem: "train",
			Name:      "rows",
			Help:      "Rows read for the last run after eligibility filtering",
		}),
	}
}

func (m *Metrics) run(outcome string) {
	if m != nil {
		m.runs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) unit(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.units.WithLabelValues(outcome).Inc()
	m.unitSeconds.Observe(time.Since(start).Seconds())
}

func (m *Metrics) phaseDone(p domain.Phase, start time.Time) {
	if m != nil {
		m.phase.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) best(scoring string, score float64, rows int) {
	if m != nil {
		m.bestScore.WithLabelValues(scoring).Set(score)
		m.rows.Set(float64(rows))
	}
}
