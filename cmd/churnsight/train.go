package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/report"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the cross-validated churn model and save its artifact",
		Long: `Fits an ensemble-of-trees classifier with repeated stratified
cross-validation over a small mtry grid, refits the winner on the full train
set, and saves the artifact so later commands skip the expensive fit.

With --balance the train set is first upsampled so both labels have equal
counts; the balanced variant is saved under its own artifact path.`,
		RunE: runTrain,
	}
	commonFlags(cmd)
	cmd.Flags().Bool("balance", false, "upsample the minority label before training")
	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}
	balance, _ := cmd.Flags().GetBool("balance")

	p, err := prepare(cfg, balance)
	if err != nil {
		return err
	}

	model, err := trainModel(p)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Training(model))
	return nil
}
