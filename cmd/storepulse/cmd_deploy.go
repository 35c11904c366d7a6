package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storepulse/internal/infrastructure"
	"storepulse/internal/registry"
)

var deployForce bool

var deployCmd = &cobra.Command{
	Use:   "deploy <version>",
	Short: "Promote a registered model to serve forecasts",
	Long: `Promote a model version to the deployed state. Any previously
deployed model of the same mode is superseded. Models that failed the
quality gates can only be deployed with --force.

Example usage:
  storepulse deploy 01J5XYZ
  storepulse deploy 01J5XYZ --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&deployForce, "force", false, "Deploy even if quality gates failed")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := infrastructure.EnsureTraceID(cmd.Context())
	log := infrastructure.LoggerWithContext(ctx)
	versionID := args[0]

	store, err := registry.NewStore(cfg.Paths.ArtifactsDir, log)
	if err != nil {
		return err
	}

	if deployForce {
		err = store.ForceDeploy(ctx, versionID)
	} else {
		err = store.Deploy(ctx, versionID)
	}
	if err != nil {
		return fmt.Errorf("deploy %s: %w", versionID, err)
	}

	rec, err := store.Get(versionID)
	if err != nil {
		return err
	}
	metrics.ObserveDeployment(rec.Mode, deployForce)

	log.Info("model deployed",
		"version", versionID,
		"mode", string(rec.Mode),
		"forced", deployForce)
	return writeJSON(rec)
}
