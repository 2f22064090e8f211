package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/evaluate"
	"github.com/telmetric/churnsight/internal/plots"
	"github.com/telmetric/churnsight/internal/report"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the held-out test set at a decision threshold",
		Long: `Evaluates the saved model (training it first when no artifact
exists) on the held-out test set: confusion matrix, accuracy, recall,
specificity, precision, F1, and the threshold-independent ROC/AUC.

The default threshold of 0.45 trades some precision for recall: on this
imbalanced target a missed churner costs more than a false alarm.`,
		RunE: runEvaluate,
	}
	commonFlags(cmd)
	cmd.Flags().Float64("threshold", 0, "decision threshold in [0,1] (overrides config)")
	cmd.Flags().Bool("balance", false, "use the upsampled-training model variant")
	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}
	balance, _ := cmd.Flags().GetBool("balance")

	// Reject a bad threshold before any loading or training happens.
	if err := evaluate.ValidateThreshold(cfg.Threshold); err != nil {
		return common.NewUserError("invalid threshold", err)
	}

	p, err := prepare(cfg, balance)
	if err != nil {
		return err
	}
	model, err := loadOrTrain(p)
	if err != nil {
		return err
	}

	summary, err := evaluate.Evaluate(model, p.testDesign, cfg.Threshold)
	if err != nil {
		return common.NewUserError("evaluation failed", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Evaluation(summary, model.Classes))

	if err := plots.ROCCurve(summary.Curve, filepath.Join(cfg.PlotsDir, "roc.png")); err != nil {
		return common.NewUserError("failed to write ROC plot", err)
	}

	if err := recordRun(cmd.Context(), p, model, summary); err != nil {
		return common.NewUserError("failed to record run", err)
	}
	return nil
}
