package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/config"
	"github.com/telmetric/churnsight/internal/report"
	"github.com/telmetric/churnsight/internal/storage"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded evaluation runs",
		RunE:  runRuns,
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show")
	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadPipeline()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := storage.NewRunStore(cfg.DBPath)
	if err != nil {
		return common.NewUserError("failed to open run history", err)
	}
	defer func() {
		_ = store.Close()
	}()
	if err := store.Migrate(cmd.Context()); err != nil {
		return common.NewUserError("failed to migrate run history", err)
	}

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return common.NewUserError("failed to list runs", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.RunHistory(runs))
	return nil
}
