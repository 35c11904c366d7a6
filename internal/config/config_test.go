package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "lite", cfg.Model.Mode)
	assert.Equal(t, 2, cfg.Model.P)
	assert.Equal(t, 1, cfg.Model.Q)
	assert.Equal(t, "reject", cfg.Model.GapPolicy)
	assert.Equal(t, 400, cfg.Optimizer.MaxIterations)
	assert.Equal(t, int64(42), cfg.Optimizer.Seed)
	assert.InDelta(t, 0.10, cfg.Forecast.LowerQuantile, 1e-12)
	assert.InDelta(t, 0.90, cfg.Forecast.UpperQuantile, 1e-12)
	assert.Equal(t, 90*time.Second, cfg.Gates.ColdStartBudget)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storepulse.yaml")
	content := `
model:
  mode: pro
  p: 3
  gap_policy: forward_fill
gates:
  baseline_lift_pct: 5.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pro", cfg.Model.Mode)
	assert.Equal(t, 3, cfg.Model.P)
	assert.Equal(t, "forward_fill", cfg.Model.GapPolicy)
	assert.InDelta(t, 5.0, cfg.Gates.BaselineLiftPct, 1e-12)
	// Unset file fields still pick up defaults.
	assert.Equal(t, 1, cfg.Model.Q)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storepulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  p: 3\n"), 0o644))

	t.Setenv("STOREPULSE_MODEL_P", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Model.P)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Model.Mode = "turbo" }},
		{"negative order", func(c *Config) { c.Model.P = -1 }},
		{"quantiles inverted", func(c *Config) {
			c.Forecast.LowerQuantile = 0.9
			c.Forecast.UpperQuantile = 0.1
		}},
		{"coverage band inverted", func(c *Config) {
			c.Gates.CoverageLow = 0.96
			c.Gates.CoverageHigh = 0.95
		}},
		{"unknown gap policy", func(c *Config) { c.Model.GapPolicy = "interpolate" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
