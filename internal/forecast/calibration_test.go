package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessCalibrationKnownGenerator(t *testing.T) {
	// data simulated from the model's own distribution: measured coverage
	// must approach the analytic interval mass as the holdout grows
	const lambda, phi = 100.0, 5.0
	holdout := nbHoldout(1001, lambda, phi, 23)
	params := manualParams(lambda, phi)

	report, err := AssessCalibration(params, holdout, nil, DefaultForecastConfig(), DefaultGateConfig())
	require.NoError(t, err)

	q10 := int(nbQuantile(0.10, lambda, phi))
	q90 := int(nbQuantile(0.90, lambda, phi))
	analytic := nbCDF(q90, lambda, phi) - nbCDF(q10-1, lambda, phi)

	assert.InDelta(t, 0.90, analytic, 0.02, "P10..P90 interval mass sits near 90%%")
	assert.InDelta(t, analytic, report.Coverage, 0.04)
	assert.True(t, report.WithinBand)
	assert.Equal(t, 1000, report.Points)
	assert.InDelta(t, 0.80, report.NominalLevel, 1e-12)
}

func TestAssessCalibrationFolds(t *testing.T) {
	holdout := nbHoldout(115, 50, 5, 9)
	params := manualParams(50, 5)

	report, err := AssessCalibration(params, holdout, nil, DefaultForecastConfig(), DefaultGateConfig())
	require.NoError(t, err)

	// 114 points in 28-day chunks: 4 full folds and one remainder
	require.Len(t, report.Folds, 5)
	var points int
	for _, f := range report.Folds {
		points += f.Points
		assert.False(t, f.Start.After(f.End))
	}
	assert.Equal(t, report.Points, points)
	assert.Equal(t, 2, report.Folds[4].Points)
}

func TestAssessCalibrationErrors(t *testing.T) {
	params := manualParams(50, 5)

	_, err := AssessCalibration(params, nil, nil, DefaultForecastConfig(), DefaultGateConfig())
	require.Error(t, err)

	bad := DefaultForecastConfig()
	bad.LowerQuantile = 0.95
	_, err = AssessCalibration(params, constantHistory(30, 50), nil, bad, DefaultGateConfig())
	require.Error(t, err)
}
