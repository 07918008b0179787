// Package metrics holds the Prometheus instruments for stage execution and saves.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var stageDurationBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

// Metrics groups every instrument. It satisfies generator.StageObserver.
type Metrics struct {
	StageExecutionsTotal *prometheus.CounterVec
	StageDuration        *prometheus.HistogramVec
	RunsSavedTotal       *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the instruments and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		StageExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_workflow_stage_executions_total",
			Help: "Total number of stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "content_workflow_stage_duration_seconds",
			Help:    "Stage execution duration in seconds, model call included.",
			Buckets: stageDurationBuckets,
		}, []string{"stage"}),
		RunsSavedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "content_workflow_runs_saved_total",
			Help: "Total number of save attempts by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_workflow_active_sessions",
			Help: "Number of sessions held by the server.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.StageExecutionsTotal, m.StageDuration, m.RunsSavedTotal, m.ActiveSessions)
	return m
}

func (m *Metrics) ObserveStage(stage, outcome string, elapsed time.Duration) {
	m.StageExecutionsTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveSave counts a save attempt.
func (m *Metrics) ObserveSave(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.RunsSavedTotal.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
