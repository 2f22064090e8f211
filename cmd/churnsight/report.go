package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/evaluate"
	"github.com/telmetric/churnsight/internal/explain"
	"github.com/telmetric/churnsight/internal/plots"
	"github.com/telmetric/churnsight/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the full analysis: inspect, train, evaluate, explain",
		Long: `Runs the whole pipeline in one pass and prints the complete
narrative: dataset summary, training result, evaluation at the configured
threshold, and local explanations, writing every plot along the way.
A saved model artifact is reused when present.`,
		RunE: runReport,
	}
	commonFlags(cmd)
	cmd.Flags().Float64("threshold", 0, "decision threshold in [0,1] (overrides config)")
	cmd.Flags().Bool("balance", true, "use the upsampled-training model variant")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}
	balance, _ := cmd.Flags().GetBool("balance")
	if err := evaluate.ValidateThreshold(cfg.Threshold); err != nil {
		return common.NewUserError("invalid threshold", err)
	}

	p, err := prepare(cfg, balance)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Dataset narrative.
	counts, err := p.clean.LabelCounts()
	if err != nil {
		return common.NewUserError("failed to count labels", err)
	}
	summaries, err := dataset.SummarizeNumeric(p.clean)
	if err != nil {
		return common.NewUserError("failed to summarize numeric columns", err)
	}
	fmt.Fprintln(out, report.DatasetSummary(p.clean, p.cleanReport, counts, summaries))
	fmt.Fprintln(out)
	if err := writeDistributionPlots(p, counts); err != nil {
		return common.NewUserError("failed to write plots", err)
	}

	// Model, cached when an artifact exists.
	model, err := loadOrTrain(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, report.Training(model))
	fmt.Fprintln(out)

	// Held-out evaluation.
	summary, err := evaluate.Evaluate(model, p.testDesign, cfg.Threshold)
	if err != nil {
		return common.NewUserError("evaluation failed", err)
	}
	fmt.Fprintln(out, report.Evaluation(summary, model.Classes))
	fmt.Fprintln(out)
	if err := plots.ROCCurve(summary.Curve, filepath.Join(cfg.PlotsDir, "roc.png")); err != nil {
		return common.NewUserError("failed to write ROC plot", err)
	}
	if err := recordRun(cmd.Context(), p, model, summary); err != nil {
		return common.NewUserError("failed to record run", err)
	}

	// Local explanations.
	rows := sampleRows(p.testDesign, cfg.ExplainRows, cfg.Seed)
	explanations, err := explain.Explain(model, p.testDesign, rows, explain.Config{
		Samples:     cfg.ExplainSamples,
		TopFeatures: cfg.TopFeatures,
		Seed:        cfg.Seed,
	})
	if err != nil {
		return common.NewUserError("explanation failed", err)
	}
	fmt.Fprintln(out, report.Explanations(explanations, cfg.Positive))
	for _, ex := range explanations {
		path := filepath.Join(cfg.PlotsDir, fmt.Sprintf("contributions_row_%d.png", ex.Row))
		if err := plots.Contributions(ex, path); err != nil {
			return common.NewUserError("failed to write contribution plot", err)
		}
	}
	return nil
}
