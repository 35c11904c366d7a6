package forecast

import (
	"io"
	"log/slog"
	"math/rand"
)

// testLogger returns a logger that discards output, keeping test runs quiet
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRand returns a deterministic random stream for synthetic data
func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
