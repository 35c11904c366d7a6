package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormat(t *testing.T) {
	err := NewData(CodeNegativeCount, "visit count is negative")
	assert.Equal(t, "NEGATIVE_COUNT: visit count is negative", err.Error())

	wrapped := err.Wrap(fmt.Errorf("row 12"))
	assert.Equal(t, "NEGATIVE_COUNT: visit count is negative: row 12", wrapped.Error())
}

func TestErrorIsMatchesOnCategoryAndCode(t *testing.T) {
	err := ErrInsufficientHistory.WithDetails(map[string]int{"have": 3, "need": 8})

	assert.True(t, errors.Is(err, ErrInsufficientHistory))
	assert.False(t, errors.Is(err, ErrDuplicateDate))
	assert.False(t, errors.Is(err, ErrOptimizerFailed))
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("line search stalled")
	err := ErrOptimizerFailed.Wrap(cause)

	require.ErrorIs(t, err, cause)

	var core *Error
	require.ErrorAs(t, fmt.Errorf("fit: %w", err), &core)
	assert.Equal(t, CodeOptimizerFailed, core.Code)
}

func TestCategoryHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		data     bool
		conv     bool
		forecast bool
		gate     bool
	}{
		{name: "data", err: ErrNonContiguousDates, data: true},
		{name: "convergence", err: ErrNonFiniteLikelihood, conv: true},
		{name: "forecast", err: ErrInvalidHorizon, forecast: true},
		{name: "gate", err: ErrGateFailed, gate: true},
		{name: "plain error", err: fmt.Errorf("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.data, IsData(tt.err))
			assert.Equal(t, tt.conv, IsConvergence(tt.err))
			assert.Equal(t, tt.forecast, IsForecast(tt.err))
			assert.Equal(t, tt.gate, IsQualityGate(tt.err))
		})
	}
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrInvalidHorizon.WithDetails(42)
	assert.Equal(t, 42, detailed.Details)
	assert.Nil(t, ErrInvalidHorizon.Details)
}

func TestWrappedCategorySurvivesFmtChain(t *testing.T) {
	err := fmt.Errorf("estimator: %w", ErrTrainingCancelled)
	assert.True(t, IsConvergence(err))
	assert.Equal(t, CategoryConvergence, CategoryOf(err))
}
