package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMAPE(t *testing.T) {
	t.Run("perfect forecast", func(t *testing.T) {
		assert.Zero(t, SMAPE([]float64{10, 20, 30}, []float64{10, 20, 30}))
	})
	t.Run("known value", func(t *testing.T) {
		// |100-110| / (100+110) = 1/21 per point → 200/21 percent
		got := SMAPE([]float64{100}, []float64{110})
		assert.InDelta(t, 200.0/21.0, got, 1e-9)
	})
	t.Run("zero pairs are masked", func(t *testing.T) {
		with := SMAPE([]float64{0, 100}, []float64{0, 110})
		without := SMAPE([]float64{100}, []float64{110})
		assert.InDelta(t, without, with, 1e-12)
	})
	t.Run("all-zero series", func(t *testing.T) {
		assert.Zero(t, SMAPE([]float64{0, 0}, []float64{0, 0}))
	})
	t.Run("mismatched lengths", func(t *testing.T) {
		assert.True(t, math.IsNaN(SMAPE([]float64{1}, []float64{1, 2})))
	})
}

func TestMASE(t *testing.T) {
	// weekly-seasonal actuals: seasonal naive is perfect, scale is zero
	seasonal := []float64{10, 20, 30, 40, 50, 60, 70, 10, 20, 30, 40, 50, 60, 70}
	assert.True(t, math.IsNaN(MASE(seasonal, seasonal, 7)))

	actual := []float64{10, 12, 14, 16, 18, 20, 22, 24, 26, 28}
	pred := make([]float64, len(actual))
	copy(pred, actual)
	assert.Zero(t, MASE(actual, pred, 7))

	// constant error of 1 against seasonal scale of 14 (2 per day · 7)
	for i := range pred {
		pred[i] = actual[i] + 1
	}
	assert.InDelta(t, 1.0/14.0, MASE(actual, pred, 7), 1e-9)
}

func TestRMSEAndBias(t *testing.T) {
	actual := []float64{10, 20, 30}
	pred := []float64{12, 18, 33}

	assert.InDelta(t, math.Sqrt((4.0+4.0+9.0)/3.0), RMSE(actual, pred), 1e-9)
	assert.InDelta(t, (2.0-2.0+3.0)/3.0, Bias(actual, pred), 1e-9)
	assert.True(t, math.IsNaN(RMSE(nil, nil)))
}

func TestDirectionalAccuracy(t *testing.T) {
	actual := []float64{10, 15, 12, 18}
	// correct direction on steps 1 and 3, wrong on step 2
	pred := []float64{10, 20, 17, 25}
	assert.InDelta(t, 2.0/3.0, DirectionalAccuracy(actual, pred), 1e-9)

	assert.True(t, math.IsNaN(DirectionalAccuracy([]float64{1}, []float64{1})))
}

func TestIntervalCoverage(t *testing.T) {
	actual := []float64{10, 20, 30, 40}
	lower := []float64{8, 22, 25, 40}
	upper := []float64{12, 28, 35, 40}
	// inside, below, inside, exactly on both bounds
	assert.InDelta(t, 0.75, IntervalCoverage(actual, lower, upper), 1e-12)
}

func TestMovingAverageForecasts(t *testing.T) {
	series := []float64{10, 20, 30, 40, 50}
	got := MovingAverageForecasts(series, 3)

	assert.Equal(t, []float64{10, 10, 15, 20, 30}, got)
}

func TestMovingAverageFullWindow(t *testing.T) {
	series := []float64{7, 7, 7, 7, 7, 7, 7, 14}
	got := MovingAverageForecasts(series, BaselineWindow)
	assert.Equal(t, 7.0, got[7], "mean of the seven preceding days")
}

func TestNaiveForecasts(t *testing.T) {
	assert.Equal(t, []float64{5, 5, 8, 2}, NaiveForecasts([]float64{5, 8, 2, 9}))
	assert.Empty(t, NaiveForecasts(nil))
}
