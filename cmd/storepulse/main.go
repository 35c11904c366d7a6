// Command storepulse trains, validates and serves daily foot-traffic
// forecasts for retail stores. All subcommands read daily visit history
// from CSV files and write JSON to stdout or the configured reports
// directory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storepulse/internal/config"
	"storepulse/internal/infrastructure"
	"storepulse/internal/telemetry"
)

var (
	configPath string
	modeFlag   string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "storepulse",
	Short: "Retail foot-traffic forecasting engine",
	Long: `StorePulse fits negative-binomial INGARCH models to daily visit
counts and produces calibrated forecasts with prediction intervals,
quality gate validation and operational guidance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if modeFlag != "" {
			cfg.Model.Mode = modeFlag
		}
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		metrics = telemetry.NewMetrics()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "storepulse.yaml", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Sampling mode override: lite or pro")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(modelsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureTraceID(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// writeJSON prints a result document to stdout
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
