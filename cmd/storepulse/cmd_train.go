package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storepulse/internal/cli"
	"storepulse/internal/forecast"
	"storepulse/internal/infrastructure"
	"storepulse/internal/registry"
)

var (
	trainHistoryPath string
	trainHoldoutDays int
	trainRefVersion  string
	trainSkipGates   bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a model on visit history and register the artifact",
	Long: `Fit an NB-INGARCH model on daily visit history. The most recent
holdout window is withheld from training and used to evaluate the
quality gates; the fitted model is stored in the artifact registry with
its gate report and lifecycle state.

Example usage:
  storepulse train --history visits.csv
  storepulse train --history visits.csv --mode pro --reference <version>
  storepulse train --history visits.csv --holdout-days 14`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainHistoryPath, "history", "", "Path to visit history CSV (required)")
	trainCmd.Flags().IntVar(&trainHoldoutDays, "holdout-days", 28, "Days withheld for gate evaluation")
	trainCmd.Flags().StringVar(&trainRefVersion, "reference", "", "Reference model version for the weekend gain gate")
	trainCmd.Flags().BoolVar(&trainSkipGates, "skip-gates", false, "Register without evaluating quality gates")
	trainCmd.MarkFlagRequired("history")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := infrastructure.EnsureTraceID(cmd.Context())
	log := infrastructure.LoggerWithContext(ctx)

	history, err := cli.LoadHistory(trainHistoryPath)
	if err != nil {
		return err
	}
	if trainHoldoutDays < 0 || trainHoldoutDays >= len(history) {
		return fmt.Errorf("holdout-days %d does not leave a training window in %d records",
			trainHoldoutDays, len(history))
	}

	fitCfg := cli.FitConfigFrom(cfg)
	train := history[:len(history)-trainHoldoutDays]
	holdout := history[len(history)-trainHoldoutDays:]

	log.Info("training model",
		"mode", cfg.Model.Mode,
		"train_days", len(train),
		"holdout_days", len(holdout))

	est := forecast.NewEstimator(fitCfg, log)
	params, diag, err := est.Fit(ctx, train)
	metrics.ObserveTraining(fitCfg.Features.Mode, diagValue(diag), err)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	var report *forecast.QualityGateReport
	if !trainSkipGates && trainHoldoutDays > 0 {
		reference, err := loadReference(trainRefVersion)
		if err != nil {
			return err
		}
		validator := forecast.NewValidator(cli.GateConfigFrom(cfg), cli.ForecastConfigFrom(cfg),
			fitCfg.Features.Calendar, log)
		r := validator.Validate(ctx, params, holdout, reference)
		metrics.ObserveGateReport(r)
		report = &r
	}

	store, err := registry.NewStore(cfg.Paths.ArtifactsDir, log)
	if err != nil {
		return err
	}
	rec := registry.NewRecord(params, history, fitCfg.Seed, report)
	if err := store.Save(ctx, rec); err != nil {
		return fmt.Errorf("register model: %w", err)
	}

	log.Info("model registered",
		"version", rec.VersionID,
		"state", string(rec.State),
		"converged", diag.Converged,
		"log_likelihood", diag.LogLikelihood)
	return writeJSON(rec)
}

// loadReference fetches the weekend-gain reference model, if requested
func loadReference(versionID string) (*forecast.ModelParameters, error) {
	if versionID == "" {
		return nil, nil
	}
	store, err := registry.NewStore(cfg.Paths.ArtifactsDir, logger)
	if err != nil {
		return nil, err
	}
	rec, err := store.Get(versionID)
	if err != nil {
		return nil, fmt.Errorf("load reference model %s: %w", versionID, err)
	}
	return rec.Params, nil
}

func diagValue(d *forecast.Diagnostics) forecast.Diagnostics {
	if d == nil {
		return forecast.Diagnostics{}
	}
	return *d
}
