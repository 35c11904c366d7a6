// Package config loads engine configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence
// (environment wins, file beats defaults).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for all engine environment variables.
const EnvPrefix = "STOREPULSE"

// Config represents the complete engine configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model" envconfig:"MODEL"`
	Optimizer OptimizerConfig `yaml:"optimizer" envconfig:"OPTIMIZER"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Gates     GatesConfig     `yaml:"gates" envconfig:"GATES"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ModelConfig describes the NB-INGARCH recursion orders and data policy.
type ModelConfig struct {
	Mode      string `yaml:"mode" envconfig:"MODE" validate:"oneof=lite pro"`
	P         int    `yaml:"p" envconfig:"P" validate:"min=0,max=30"`
	Q         int    `yaml:"q" envconfig:"Q" validate:"min=0,max=30"`
	GapPolicy string `yaml:"gap_policy" envconfig:"GAP_POLICY" validate:"oneof=reject forward_fill zero_fill"`
}

// OptimizerConfig tunes the maximum-likelihood search.
type OptimizerConfig struct {
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"min=1"`
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gt=0"`
	GradTolerance float64 `yaml:"grad_tolerance" envconfig:"GRAD_TOLERANCE" validate:"gt=0"`
	Restarts      int     `yaml:"restarts" envconfig:"RESTARTS" validate:"min=1"`
	Seed          int64   `yaml:"seed" envconfig:"SEED"`
}

// ForecastConfig tunes interval and horizon behaviour.
type ForecastConfig struct {
	LowerQuantile  float64 `yaml:"lower_quantile" envconfig:"LOWER_QUANTILE" validate:"gt=0,lt=1"`
	UpperQuantile  float64 `yaml:"upper_quantile" envconfig:"UPPER_QUANTILE" validate:"gt=0,lt=1"`
	WidthThreshold float64 `yaml:"width_threshold" envconfig:"WIDTH_THRESHOLD" validate:"gt=0"`
	DefaultHorizon int     `yaml:"default_horizon" envconfig:"DEFAULT_HORIZON" validate:"min=1,max=30"`
}

// GatesConfig holds the deployability thresholds.
type GatesConfig struct {
	BaselineLiftPct float64       `yaml:"baseline_lift_pct" envconfig:"BASELINE_LIFT_PCT" validate:"gte=0"`
	WeekendGainPct  float64       `yaml:"weekend_gain_pct" envconfig:"WEEKEND_GAIN_PCT" validate:"gte=0"`
	CoverageLow     float64       `yaml:"coverage_low" envconfig:"COVERAGE_LOW" validate:"gt=0,lt=1"`
	CoverageHigh    float64       `yaml:"coverage_high" envconfig:"COVERAGE_HIGH" validate:"gt=0,lte=1"`
	ColdStartBudget time.Duration `yaml:"cold_start_budget" envconfig:"COLD_START_BUDGET"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	File   string `yaml:"file" envconfig:"FILE"`
}

// PathsConfig contains file system paths for caller-side artifacts.
type PathsConfig struct {
	ArtifactsDir string `yaml:"artifacts_dir" envconfig:"ARTIFACTS_DIR"`
	ReportsDir   string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
}

// Default returns the built-in engine defaults.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Mode:      "lite",
			P:         2,
			Q:         1,
			GapPolicy: "reject",
		},
		Optimizer: OptimizerConfig{
			MaxIterations: 400,
			Tolerance:     1e-8,
			GradTolerance: 1e-6,
			Restarts:      2,
			Seed:          42,
		},
		Forecast: ForecastConfig{
			LowerQuantile:  0.10,
			UpperQuantile:  0.90,
			WidthThreshold: 0.75,
			DefaultHorizon: 7,
		},
		Gates: GatesConfig{
			BaselineLiftPct: 8.0,
			WeekendGainPct:  20.0,
			CoverageLow:     0.80,
			CoverageHigh:    0.95,
			ColdStartBudget: 90 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
			File:   "logs/storepulse.log",
		},
		Paths: PathsConfig{
			ArtifactsDir: "artifacts",
			ReportsDir:   "reports",
		},
	}
}

// Load loads configuration from an optional YAML file overlaid with
// environment variables. An empty configFile skips the file stage.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, &cfg); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays YAML file values onto cfg; fields absent from the
// file keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints plus the cross-field rules the struct
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Forecast.LowerQuantile >= c.Forecast.UpperQuantile {
		return fmt.Errorf("forecast: lower_quantile %.2f must be below upper_quantile %.2f",
			c.Forecast.LowerQuantile, c.Forecast.UpperQuantile)
	}
	if c.Gates.CoverageLow >= c.Gates.CoverageHigh {
		return fmt.Errorf("gates: coverage_low %.2f must be below coverage_high %.2f",
			c.Gates.CoverageLow, c.Gates.CoverageHigh)
	}
	if c.Gates.ColdStartBudget <= 0 {
		return fmt.Errorf("gates: cold_start_budget must be positive")
	}
	return nil
}
