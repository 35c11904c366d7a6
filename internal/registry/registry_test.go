package registry

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/forecast"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams(mode forecast.Mode, lambda float64) *forecast.ModelParameters {
	enc := forecast.DefaultEncoding()
	return &forecast.ModelParameters{
		Mode:            mode,
		P:               1,
		Q:               1,
		Intercept:       math.Log(lambda),
		AR:              []float64{0},
		Feedback:        []float64{0},
		Exog:            make([]float64, enc.ExogDims(mode)),
		Dispersion:      5,
		Link:            "log",
		SeedMean:        lambda,
		EncodingVersion: enc.Version,
		TrainedAt:       time.Now().UTC(),
	}
}

func testHistory(n int) []forecast.VisitRecord {
	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	recs := make([]forecast.VisitRecord, n)
	for i := range recs {
		recs[i] = forecast.VisitRecord{Date: start.AddDate(0, 0, i), VisitCount: 90 + i%7}
	}
	return recs
}

func passingGates() *forecast.QualityGateReport {
	return &forecast.QualityGateReport{Deployable: true, EvaluatedAt: time.Now().UTC()}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	return store
}

func TestSaveGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	history := testHistory(60)

	rec := NewRecord(testParams(forecast.ModeLite, 90), history, 42, passingGates())
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(rec.VersionID)
	require.NoError(t, err)
	assert.Equal(t, rec.VersionID, got.VersionID)
	assert.Equal(t, forecast.StateTrainedPassing, got.State)
	assert.Equal(t, rec.Params, got.Params)
	assert.Equal(t, 60, got.Training.RecordCount)
	assert.Equal(t, history[0].Date, got.Training.RangeStart)
	assert.Len(t, got.Training.DatasetSHA256, 64)
}

func TestNewRecordStateFollowsGates(t *testing.T) {
	history := testHistory(30)

	passing := NewRecord(testParams(forecast.ModeLite, 90), history, 1, passingGates())
	assert.Equal(t, forecast.StateTrainedPassing, passing.State)

	failing := NewRecord(testParams(forecast.ModeLite, 90), history, 1,
		&forecast.QualityGateReport{Deployable: false})
	assert.Equal(t, forecast.StateTrainedFailing, failing.State)

	ungated := NewRecord(testParams(forecast.ModeLite, 90), history, 1, nil)
	assert.Equal(t, forecast.StateTrainedFailing, ungated.State)
}

func TestDeployLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	history := testHistory(60)

	first := NewRecord(testParams(forecast.ModeLite, 90), history, 1, passingGates())
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Deploy(ctx, first.VersionID))

	latest, err := store.Latest(forecast.ModeLite)
	require.NoError(t, err)
	assert.Equal(t, first.VersionID, latest.VersionID)
	assert.Equal(t, forecast.StateDeployed, latest.State)

	// a second deployment supersedes the first
	second := NewRecord(testParams(forecast.ModeLite, 95), history, 2, passingGates())
	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Deploy(ctx, second.VersionID))

	latest, err = store.Latest(forecast.ModeLite)
	require.NoError(t, err)
	assert.Equal(t, second.VersionID, latest.VersionID)

	old, err := store.Get(first.VersionID)
	require.NoError(t, err)
	assert.Equal(t, forecast.StateSuperseded, old.State)

	// superseded models can be archived
	require.NoError(t, store.Archive(ctx, first.VersionID))
	old, err = store.Get(first.VersionID)
	require.NoError(t, err)
	assert.Equal(t, forecast.StateArchived, old.State)
}

func TestDeployRejectsFailingModel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	failing := NewRecord(testParams(forecast.ModeLite, 90), testHistory(30), 1, nil)
	require.NoError(t, store.Save(ctx, failing))

	err := store.Deploy(ctx, failing.VersionID)
	require.Error(t, err, "implicit promotion of a failing model is never allowed")

	// the explicit override works
	require.NoError(t, store.ForceDeploy(ctx, failing.VersionID))
	latest, err := store.Latest(forecast.ModeLite)
	require.NoError(t, err)
	assert.Equal(t, failing.VersionID, latest.VersionID)
}

func TestLatestPerMode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	history := testHistory(60)

	lite := NewRecord(testParams(forecast.ModeLite, 90), history, 1, passingGates())
	pro := NewRecord(testParams(forecast.ModePro, 92), history, 1, passingGates())
	require.NoError(t, store.Save(ctx, lite))
	require.NoError(t, store.Save(ctx, pro))
	require.NoError(t, store.Deploy(ctx, lite.VersionID))
	require.NoError(t, store.Deploy(ctx, pro.VersionID))

	gotLite, err := store.Latest(forecast.ModeLite)
	require.NoError(t, err)
	gotPro, err := store.Latest(forecast.ModePro)
	require.NoError(t, err)
	assert.Equal(t, lite.VersionID, gotLite.VersionID)
	assert.Equal(t, pro.VersionID, gotPro.VersionID)
}

func TestListOrdersByCreation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec := NewRecord(testParams(forecast.ModeLite, 90), testHistory(30), int64(i), nil)
		require.NoError(t, store.Save(ctx, rec))
		ids = append(ids, rec.VersionID)
	}

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, rec := range list {
		assert.Equal(t, ids[i], rec.VersionID, "ULIDs keep creation order")
	}
}

func TestNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("01J0000000000000000000000X")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Latest(forecast.ModePro)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Deploy(context.Background(), "missing"))
}

func TestDatasetFingerprint(t *testing.T) {
	a := testHistory(30)
	b := testHistory(30)
	assert.Equal(t, DatasetFingerprint(a), DatasetFingerprint(b), "same data, same hash")

	b[10].VisitCount++
	assert.NotEqual(t, DatasetFingerprint(a), DatasetFingerprint(b), "any change shifts the hash")
}

func TestRegistryRoundTripPreservesForecasts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	history := testHistory(30)
	params := testParams(forecast.ModeLite, 90)

	gen := forecast.NewGenerator(forecast.DefaultForecastConfig(), nil, testLogger())
	before, err := gen.Forecast(params, history, 7, nil)
	require.NoError(t, err)

	rec := NewRecord(params, history, 42, passingGates())
	require.NoError(t, store.Save(ctx, rec))
	got, err := store.Get(rec.VersionID)
	require.NoError(t, err)

	after, err := gen.Forecast(got.Params, history, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after, "persistence must not perturb forecasts")
}
