package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"storepulse/internal/infrastructure"
	"storepulse/internal/registry"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List registered model versions",
	Long: `List every model version in the artifact registry with its mode,
lifecycle state and training window.

Example usage:
  storepulse models
  storepulse models --json`,
	RunE: runModels,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <version>",
	Short: "Archive a retired model version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := infrastructure.EnsureTraceID(cmd.Context())
		store, err := registry.NewStore(cfg.Paths.ArtifactsDir, infrastructure.LoggerWithContext(ctx))
		if err != nil {
			return err
		}
		if err := store.Archive(ctx, args[0]); err != nil {
			return fmt.Errorf("archive %s: %w", args[0], err)
		}
		fmt.Printf("archived %s\n", args[0])
		return nil
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Emit the full records as JSON")
	modelsCmd.AddCommand(archiveCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	store, err := registry.NewStore(cfg.Paths.ArtifactsDir, logger)
	if err != nil {
		return err
	}
	records, err := store.List()
	if err != nil {
		return err
	}

	if modelsJSON {
		return writeJSON(records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tMODE\tSTATE\tTRAINED\tRECORDS\tDEPLOYABLE")
	for _, rec := range records {
		deployable := "-"
		if rec.Gates != nil {
			deployable = fmt.Sprintf("%t", rec.Gates.Deployable)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.VersionID,
			rec.Mode,
			rec.State,
			rec.CreatedAt.Format("2006-01-02"),
			rec.Training.RecordCount,
			deployable)
	}
	return w.Flush()
}
