package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storepulse/internal/cli"
	"storepulse/internal/forecast"
	"storepulse/internal/infrastructure"
)

var (
	validateModelID     string
	validateHistoryPath string
	validateRefVersion  string
)

// validateOutput bundles the gate report with calibration diagnostics
type validateOutput struct {
	Version     string                      `json:"version"`
	Gates       forecast.QualityGateReport  `json:"gates"`
	Calibration *forecast.CalibrationReport `json:"calibration,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the quality gates against a holdout window",
	Long: `Evaluate a registered model against a holdout window: baseline
lift over the seven-day moving average, weekend gain over a reference
model, interval calibration coverage and the cold start budget.

Example usage:
  storepulse validate --model 01J5 --history holdout.csv
  storepulse validate --model 01J5 --history holdout.csv --reference 01J4`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateModelID, "model", "", "Model version to validate (required)")
	validateCmd.Flags().StringVar(&validateHistoryPath, "history", "", "Path to holdout CSV (required)")
	validateCmd.Flags().StringVar(&validateRefVersion, "reference", "", "Reference model version for the weekend gain gate")
	validateCmd.MarkFlagRequired("model")
	validateCmd.MarkFlagRequired("history")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := infrastructure.EnsureTraceID(cmd.Context())
	log := infrastructure.LoggerWithContext(ctx)

	holdout, err := cli.LoadHistory(validateHistoryPath)
	if err != nil {
		return err
	}
	rec, err := resolveModel(validateModelID)
	if err != nil {
		return err
	}
	reference, err := loadReference(validateRefVersion)
	if err != nil {
		return err
	}

	cal := forecast.NewRegionalCalendar()
	validator := forecast.NewValidator(cli.GateConfigFrom(cfg), cli.ForecastConfigFrom(cfg), cal, log)
	report := validator.Validate(ctx, rec.Params, holdout, reference)
	metrics.ObserveGateReport(report)

	out := validateOutput{Version: rec.VersionID, Gates: report}
	if calib, err := forecast.AssessCalibration(rec.Params, holdout, cal,
		cli.ForecastConfigFrom(cfg), cli.GateConfigFrom(cfg)); err == nil {
		out.Calibration = calib
	} else {
		log.Warn("calibration assessment unavailable", "error", err)
	}

	log.Info("validation complete",
		"version", rec.VersionID,
		"deployable", report.Deployable)
	if err := writeJSON(out); err != nil {
		return err
	}
	if !report.Deployable {
		return fmt.Errorf("model %s failed quality gates", rec.VersionID)
	}
	return nil
}
