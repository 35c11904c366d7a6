package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/forecast"
)

func TestObserveTrainingCountsOutcomes(t *testing.T) {
	m := NewMetrics()

	diag := forecast.Diagnostics{Converged: true, Elapsed: 2 * time.Second}
	m.ObserveTraining(forecast.ModeLite, diag, nil)
	m.ObserveTraining(forecast.ModeLite, diag, nil)
	m.ObserveTraining(forecast.ModePro, forecast.Diagnostics{}, assert.AnError)

	assert.InDelta(t, 2, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("lite", "ok")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("pro", "error")), 1e-9)
	// failed runs record no duration sample
	assert.Equal(t, 1, testutil.CollectAndCount(m.TrainingDuration))
}

func TestObserveForecastAccumulatesPoints(t *testing.T) {
	m := NewMetrics()

	m.ObserveForecast(forecast.ModeLite, 7, 3*time.Millisecond)
	m.ObserveForecast(forecast.ModeLite, 30, 5*time.Millisecond)

	assert.InDelta(t, 37, testutil.ToFloat64(m.ForecastPoints), 1e-9)
}

func TestObserveGateReportLabelsEachCheck(t *testing.T) {
	m := NewMetrics()

	report := forecast.QualityGateReport{
		Mode: forecast.ModeLite,
		Checks: []forecast.GateResult{
			{Check: "baseline_lift", Passed: true},
			{Check: "weekend_gain", Skipped: true},
			{Check: "calibration_coverage", Passed: false},
		},
	}
	m.ObserveGateReport(report)

	assert.InDelta(t, 1, testutil.ToFloat64(m.GateChecks.WithLabelValues("baseline_lift", "pass")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GateChecks.WithLabelValues("weekend_gain", "skipped")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GateChecks.WithLabelValues("calibration_coverage", "fail")), 1e-9)
}

func TestObserveDeployment(t *testing.T) {
	m := NewMetrics()

	m.ObserveDeployment(forecast.ModePro, false)
	m.ObserveDeployment(forecast.ModePro, true)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Deployments.WithLabelValues("pro", "false")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Deployments.WithLabelValues("pro", "true")), 1e-9)
}

func TestHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveForecast(forecast.ModeLite, 7, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storepulse_forecast_points_total 7")
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveForecast(forecast.ModeLite, 5, time.Millisecond)

	assert.InDelta(t, 5, testutil.ToFloat64(a.ForecastPoints), 1e-9)
	assert.Zero(t, testutil.ToFloat64(b.ForecastPoints))
}
