package cli

import (
	"storepulse/internal/config"
	"storepulse/internal/forecast"
)

// FitConfigFrom maps engine configuration onto training settings
func FitConfigFrom(cfg *config.Config) forecast.FitConfig {
	return forecast.FitConfig{
		Features: forecast.FeatureConfig{
			Mode:      forecast.Mode(cfg.Model.Mode),
			P:         cfg.Model.P,
			Q:         cfg.Model.Q,
			GapPolicy: forecast.GapPolicy(cfg.Model.GapPolicy),
			Calendar:  forecast.NewRegionalCalendar(),
			Encoding:  forecast.DefaultEncoding(),
		},
		MaxIterations: cfg.Optimizer.MaxIterations,
		Tolerance:     cfg.Optimizer.Tolerance,
		GradTolerance: cfg.Optimizer.GradTolerance,
		Restarts:      cfg.Optimizer.Restarts,
		Seed:          cfg.Optimizer.Seed,
	}
}

// ForecastConfigFrom maps engine configuration onto interval settings
func ForecastConfigFrom(cfg *config.Config) forecast.ForecastConfig {
	return forecast.ForecastConfig{
		LowerQuantile:  cfg.Forecast.LowerQuantile,
		UpperQuantile:  cfg.Forecast.UpperQuantile,
		WidthThreshold: cfg.Forecast.WidthThreshold,
	}
}

// GateConfigFrom maps engine configuration onto gate thresholds
func GateConfigFrom(cfg *config.Config) forecast.GateConfig {
	return forecast.GateConfig{
		BaselineLiftPct: cfg.Gates.BaselineLiftPct,
		WeekendGainPct:  cfg.Gates.WeekendGainPct,
		CoverageLow:     cfg.Gates.CoverageLow,
		CoverageHigh:    cfg.Gates.CoverageHigh,
		ColdStartBudget: cfg.Gates.ColdStartBudget,
	}
}
