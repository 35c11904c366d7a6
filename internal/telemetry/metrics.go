// Package telemetry exposes Prometheus metrics for the forecasting
// pipeline: training runs, forecast latency, quality gate outcomes and
// deployments. Metrics live in a dedicated registry so tests can build
// isolated instances without collisions.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storepulse/internal/forecast"
)

// Metrics holds all Prometheus instruments for the engine
type Metrics struct {
	registry *prometheus.Registry

	TrainingDuration *prometheus.HistogramVec
	TrainingRuns     *prometheus.CounterVec

	ForecastLatency *prometheus.HistogramVec
	ForecastPoints  prometheus.Counter

	GateChecks  *prometheus.CounterVec
	Deployments *prometheus.CounterVec
}

// NewMetrics builds and registers all engine metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TrainingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storepulse_training_duration_seconds",
				Help:    "Wall-clock duration of model training runs",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90, 120},
			},
			[]string{"mode", "converged"},
		),

		TrainingRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storepulse_training_runs_total",
				Help: "Total training runs by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		ForecastLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storepulse_forecast_duration_seconds",
				Help:    "Latency of forecast generation",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"mode"},
		),

		ForecastPoints: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "storepulse_forecast_points_total",
				Help: "Total forecast points generated",
			},
		),

		GateChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storepulse_gate_checks_total",
				Help: "Quality gate check results by check name and outcome",
			},
			[]string{"check", "outcome"},
		),

		Deployments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storepulse_deployments_total",
				Help: "Model deployments by mode and whether the gate was overridden",
			},
			[]string{"mode", "forced"},
		),
	}

	m.registry.MustRegister(
		m.TrainingDuration,
		m.TrainingRuns,
		m.ForecastLatency,
		m.ForecastPoints,
		m.GateChecks,
		m.Deployments,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTraining records one training run
func (m *Metrics) ObserveTraining(mode forecast.Mode, diag forecast.Diagnostics, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TrainingRuns.WithLabelValues(string(mode), outcome).Inc()
	if err == nil {
		m.TrainingDuration.
			WithLabelValues(string(mode), strconv.FormatBool(diag.Converged)).
			Observe(diag.Elapsed.Seconds())
	}
}

// ObserveForecast records one forecast generation
func (m *Metrics) ObserveForecast(mode forecast.Mode, points int, elapsed time.Duration) {
	m.ForecastLatency.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	m.ForecastPoints.Add(float64(points))
}

// ObserveGateReport records every check outcome from a gate run
func (m *Metrics) ObserveGateReport(report forecast.QualityGateReport) {
	for _, check := range report.Checks {
		outcome := "fail"
		switch {
		case check.Skipped:
			outcome = "skipped"
		case check.Passed:
			outcome = "pass"
		}
		m.GateChecks.WithLabelValues(check.Check, outcome).Inc()
	}
}

// ObserveDeployment records a model promotion
func (m *Metrics) ObserveDeployment(mode forecast.Mode, forced bool) {
	m.Deployments.WithLabelValues(string(mode), strconv.FormatBool(forced)).Inc()
}
