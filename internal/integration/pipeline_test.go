// Package integration exercises the full model lifecycle across package
// boundaries: fit on history, evaluate quality gates, register the
// artifact, deploy it and generate forecasts from the stored record.
package integration

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/forecast"
	"storepulse/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// weeklyHistory builds a deterministic series with a weekend lift and
// mild noise, starting on a Monday.
func weeklyHistory(n, base int, seed int64) []forecast.VisitRecord {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	records := make([]forecast.VisitRecord, n)
	for i := range records {
		date := start.AddDate(0, 0, i)
		count := base
		if forecast.IsWeekend(date) {
			count = base + base/2
		}
		count += rng.Intn(7) - 3
		if count < 0 {
			count = 0
		}
		records[i] = forecast.VisitRecord{Date: date, VisitCount: count}
	}
	return records
}

func TestTrainRegisterDeployForecast(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline fit is slow")
	}

	log := testLogger()
	history := weeklyHistory(150, 100, 7)
	holdoutDays := 28
	train := history[:len(history)-holdoutDays]
	holdout := history[len(history)-holdoutDays:]

	fitCfg := forecast.DefaultFitConfig()
	est := forecast.NewEstimator(fitCfg, log)
	params, diag, err := est.Fit(context.Background(), train)
	require.NoError(t, err)
	require.NotNil(t, params)
	assert.True(t, diag.Converged)

	validator := forecast.NewValidator(forecast.DefaultGateConfig(),
		forecast.DefaultForecastConfig(), forecast.NewRegionalCalendar(), log)
	report := validator.Validate(context.Background(), params, holdout, nil)
	require.Len(t, report.Checks, 4)

	store, err := registry.NewStore(t.TempDir(), log)
	require.NoError(t, err)
	rec := registry.NewRecord(params, history, fitCfg.Seed, &report)
	require.NoError(t, store.Save(context.Background(), rec))

	// deploy, forcing past the gates if the noisy series failed one
	if report.Deployable {
		require.NoError(t, store.Deploy(context.Background(), rec.VersionID))
	} else {
		require.NoError(t, store.ForceDeploy(context.Background(), rec.VersionID))
	}

	// forecasts from the stored record must match the in-memory model
	stored, err := store.Latest(params.Mode)
	require.NoError(t, err)
	assert.Equal(t, forecast.StateDeployed, stored.State)

	gen := forecast.NewGenerator(forecast.DefaultForecastConfig(),
		forecast.NewRegionalCalendar(), log)
	tail := history[len(history)-14:]

	direct, err := gen.Forecast(params, tail, 7, nil)
	require.NoError(t, err)
	fromStore, err := gen.Forecast(stored.Params, tail, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, direct, fromStore)

	for _, pt := range direct {
		assert.True(t, pt.IsValid(), "point %s", pt.Date.Format("2006-01-02"))
	}
}

func TestSupersededModelStaysReadable(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline fit is slow")
	}

	log := testLogger()
	store, err := registry.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	history := weeklyHistory(120, 80, 3)
	est := forecast.NewEstimator(forecast.DefaultFitConfig(), log)

	var versions []string
	for i := 0; i < 2; i++ {
		params, _, err := est.Fit(context.Background(), history)
		require.NoError(t, err)
		rec := registry.NewRecord(params, history, int64(i), nil)
		require.NoError(t, store.Save(context.Background(), rec))
		require.NoError(t, store.ForceDeploy(context.Background(), rec.VersionID))
		versions = append(versions, rec.VersionID)
	}

	first, err := store.Get(versions[0])
	require.NoError(t, err)
	assert.Equal(t, forecast.StateSuperseded, first.State)
	assert.NotNil(t, first.Params)

	latest, err := store.Latest(forecast.ModeLite)
	require.NoError(t, err)
	assert.Equal(t, versions[1], latest.VersionID)
}
