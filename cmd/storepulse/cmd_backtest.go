package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storepulse/internal/cli"
	"storepulse/internal/forecast"
	"storepulse/internal/infrastructure"
)

var (
	backtestHistoryPath string
	backtestFolds       int
	backtestHoldoutDays int
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a rolling-origin backtest over visit history",
	Long: `Refit the model on expanding training windows and score each
holdout fold against the seven-day moving average and naive baselines.

Example usage:
  storepulse backtest --history visits.csv --folds 3
  storepulse backtest --history visits.csv --folds 4 --holdout-days 14`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestHistoryPath, "history", "", "Path to visit history CSV (required)")
	backtestCmd.Flags().IntVar(&backtestFolds, "folds", 3, "Number of rolling-origin folds")
	backtestCmd.Flags().IntVar(&backtestHoldoutDays, "holdout-days", forecast.DefaultHoldoutDays, "Holdout days per fold")
	backtestCmd.MarkFlagRequired("history")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := infrastructure.EnsureTraceID(cmd.Context())
	log := infrastructure.LoggerWithContext(ctx)

	history, err := cli.LoadHistory(backtestHistoryPath)
	if err != nil {
		return err
	}

	log.Info("starting backtest",
		"records", len(history),
		"folds", backtestFolds,
		"holdout_days", backtestHoldoutDays)

	bt := forecast.NewBacktester(cli.FitConfigFrom(cfg), cli.ForecastConfigFrom(cfg),
		forecast.NewRegionalCalendar(), log)
	report, err := bt.Run(ctx, history, backtestFolds, backtestHoldoutDays)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	log.Info("backtest complete",
		"folds", len(report.Folds),
		"model_smape", report.Model.SMAPE,
		"moving_avg_smape", report.MovingAvg.SMAPE)
	return writeJSON(report)
}
