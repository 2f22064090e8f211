package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/explain"
	"github.com/telmetric/churnsight/internal/plots"
	"github.com/telmetric/churnsight/internal/report"
)

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Explain individual test predictions feature by feature",
		Long: `Samples a few held-out customers and fits a local surrogate model
around each one, ranking which feature values pushed the churn probability
up or down. Interpretive only: the model and its predictions are unchanged.`,
		RunE: runExplain,
	}
	commonFlags(cmd)
	cmd.Flags().Int("rows", 0, "number of test rows to explain (overrides config)")
	cmd.Flags().Bool("balance", false, "use the upsampled-training model variant")
	return cmd
}

func runExplain(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}
	balance, _ := cmd.Flags().GetBool("balance")
	if cmd.Flags().Changed("rows") {
		cfg.ExplainRows, _ = cmd.Flags().GetInt("rows")
	}

	p, err := prepare(cfg, balance)
	if err != nil {
		return err
	}
	model, err := loadOrTrain(p)
	if err != nil {
		return err
	}

	rows := sampleRows(p.testDesign, cfg.ExplainRows, cfg.Seed)
	explanations, err := explain.Explain(model, p.testDesign, rows, explain.Config{
		Samples:     cfg.ExplainSamples,
		TopFeatures: cfg.TopFeatures,
		Seed:        cfg.Seed,
	})
	if err != nil {
		return common.NewUserError("explanation failed", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Explanations(explanations, cfg.Positive))

	for _, ex := range explanations {
		path := filepath.Join(cfg.PlotsDir, fmt.Sprintf("contributions_row_%d.png", ex.Row))
		if err := plots.Contributions(ex, path); err != nil {
			return common.NewUserError("failed to write contribution plot", err)
		}
	}
	return nil
}
