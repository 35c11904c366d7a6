package forecast

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storepulse/internal/errors"
)

func TestBacktestRollingOrigin(t *testing.T) {
	history := weeklyHistory(150, 80)
	bt := NewBacktester(liteFitConfig(1, 1), DefaultForecastConfig(), nil, testLogger())

	report, err := bt.Run(context.Background(), history, 2, DefaultHoldoutDays)
	require.NoError(t, err)
	require.Len(t, report.Folds, 2)

	for i, fold := range report.Folds {
		assert.True(t, fold.TrainEnd.Before(fold.HoldoutStart),
			"fold %d trains strictly before its holdout", i)
		assert.Equal(t, DefaultHoldoutDays, fold.HoldoutDays)
		assert.False(t, math.IsNaN(fold.Model.SMAPE))
		assert.False(t, math.IsNaN(fold.Coverage))
	}

	// folds advance chronologically: the earlier fold trains on less data
	assert.Less(t, report.Folds[0].TrainDays, report.Folds[1].TrainDays)
	assert.Equal(t, report.Folds[1].HoldoutStart.AddDate(0, 0, -1), report.Folds[0].HoldoutEnd,
		"consecutive folds tile the history without overlap")

	assert.False(t, math.IsNaN(report.Model.SMAPE))
	assert.False(t, math.IsNaN(report.MovingAvg.SMAPE))
	assert.False(t, math.IsNaN(report.Naive.SMAPE))
	assert.False(t, math.IsNaN(report.Coverage))
}

func TestBacktestInsufficientHistory(t *testing.T) {
	bt := NewBacktester(liteFitConfig(2, 1), DefaultForecastConfig(), nil, testLogger())

	_, err := bt.Run(context.Background(), weeklyHistory(60, 80), 2, DefaultHoldoutDays)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientHistory))
}

func TestBacktestRejectsBadArguments(t *testing.T) {
	bt := NewBacktester(liteFitConfig(1, 1), DefaultForecastConfig(), nil, testLogger())
	history := weeklyHistory(150, 80)

	_, err := bt.Run(context.Background(), history, 0, DefaultHoldoutDays)
	assert.Error(t, err)

	_, err = bt.Run(context.Background(), history, 2, 3)
	assert.Error(t, err)

	_, err = bt.Run(context.Background(), nil, 1, DefaultHoldoutDays)
	assert.Error(t, err)
}

func TestMeanFoldMetricsSkipsNaN(t *testing.T) {
	folds := []BacktestFold{
		{Model: FoldMetrics{SMAPE: 10, MASE: math.NaN()}},
		{Model: FoldMetrics{SMAPE: 20, MASE: 1.5}},
	}
	agg := meanFoldMetrics(folds, func(f BacktestFold) FoldMetrics { return f.Model })
	assert.InDelta(t, 15, agg.SMAPE, 1e-12)
	assert.InDelta(t, 1.5, agg.MASE, 1e-12, "NaN folds drop out of the average")
}
