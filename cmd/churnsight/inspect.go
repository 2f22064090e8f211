package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/plots"
	"github.com/telmetric/churnsight/internal/report"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load and clean the dataset, then summarize its distributions",
		RunE:  runInspect,
	}
	commonFlags(cmd)
	cmd.Flags().Bool("plots", true, "write class balance and numeric distribution plots")
	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}

	p, err := prepare(cfg, false)
	if err != nil {
		return err
	}

	counts, err := p.clean.LabelCounts()
	if err != nil {
		return common.NewUserError("failed to count labels", err)
	}
	summaries, err := dataset.SummarizeNumeric(p.clean)
	if err != nil {
		return common.NewUserError("failed to summarize numeric columns", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.DatasetSummary(p.clean, p.cleanReport, counts, summaries))

	if write, _ := cmd.Flags().GetBool("plots"); write {
		if err := writeDistributionPlots(p, counts); err != nil {
			return common.NewUserError("failed to write plots", err)
		}
	}
	return nil
}

// writeDistributionPlots renders the class balance bar chart and one
// histogram per numeric column under the plots directory.
func writeDistributionPlots(p *prepared, counts map[string]int) error {
	if err := plots.ClassBalance(counts,
		p.clean.Schema.Target+" class balance",
		filepath.Join(p.cfg.PlotsDir, "class_balance.png")); err != nil {
		return err
	}
	for _, col := range p.clean.Schema.Features() {
		if col.Role != dataset.RoleNumeric {
			continue
		}
		values, err := dataset.NumericValues(p.clean, col.Name)
		if err != nil {
			return err
		}
		if err := plots.Histogram(values, col.Name,
			filepath.Join(p.cfg.PlotsDir, "hist_"+col.Name+".png")); err != nil {
			return err
		}
	}
	return nil
}
