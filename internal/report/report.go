package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/evaluate"
	"github.com/telmetric/churnsight/internal/explain"
	"github.com/telmetric/churnsight/internal/storage"
	"github.com/telmetric/churnsight/internal/trainer"
)

// DatasetSummary renders the cleaned dataset: dimensions, what cleaning
// removed, column roles, label balance and numeric distributions.
func DatasetSummary(ds dataset.Dataset, rep dataset.CleanReport, counts map[string]int, summaries []dataset.NumericSummary) string {
	var sections []string

	sections = append(sections, FormatTitle(ChartIcon, "Dataset"))

	sections = append(sections, fmt.Sprintf("%s %d rows × %d columns",
		BoldStyle.Render("Size:"), ds.NumRows(), ds.NumCols()))

	clean := fmt.Sprintf("%s dropped %s, removed %d incomplete rows of %d (%.2f%%)",
		BoldStyle.Render("Cleaning:"),
		columnList(rep.DroppedColumns),
		rep.RemovedRows, rep.InputRows,
		100*float64(rep.RemovedRows)/float64(max(rep.InputRows, 1)))
	if len(rep.RecastColumns) > 0 {
		clean += fmt.Sprintf(", recast %s to categorical", columnList(rep.RecastColumns))
	}
	sections = append(sections, clean)

	sections = append(sections, labelBalance(ds, counts))

	if len(summaries) > 0 {
		var b strings.Builder
		b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-16s %10s %10s %10s %10s %10s %10s", "column", "min", "q1", "median", "q3", "max", "mean")))
		for _, s := range summaries {
			b.WriteString(fmt.Sprintf("\n%-16s %10.2f %10.2f %10.2f %10.2f %10.2f %10.2f",
				s.Name, s.Min, s.Q1, s.Median, s.Q3, s.Max, s.Mean))
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}

// labelBalance renders per-level counts and proportions of the target.
func labelBalance(ds dataset.Dataset, counts map[string]int) string {
	levels := make([]string, 0, len(counts))
	total := 0
	for l, n := range counts {
		levels = append(levels, l)
		total += n
	}
	sort.Strings(levels)

	var b strings.Builder
	b.WriteString(BoldStyle.Render(fmt.Sprintf("%s balance:", ds.Schema.Target)))
	for _, l := range levels {
		n := counts[l]
		b.WriteString(fmt.Sprintf("\n  %-12s %5d  (%.1f%%)", l, n, 100*float64(n)/float64(max(total, 1))))
	}
	return b.String()
}

// Training renders the cross-validation outcome of a fitted model.
func Training(m *trainer.Model) string {
	var sections []string

	title := "Training"
	if m.Balanced {
		title = "Training (upsampled)"
	}
	sections = append(sections, FormatTitle(ModelIcon, title))

	sections = append(sections, fmt.Sprintf("%s %d trees, mtry=%d, trained on %d rows at %s",
		BoldStyle.Render("Model:"),
		m.Trees, m.Mtry, m.TrainRows, m.TrainedAt.Format("2006-01-02 15:04")))

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-8s %12s", "mtry", "cv accuracy")))
	for _, g := range m.Grid {
		line := fmt.Sprintf("\n%-8d %12.4f", g.Mtry, g.Accuracy)
		if g.Mtry == m.Mtry {
			line += "  " + SuccessStyle.Render("← selected")
		}
		b.WriteString(line)
	}
	sections = append(sections, b.String())

	sections = append(sections, SubtleStyle.Render(
		fmt.Sprintf("cross-validated accuracy %.4f over %d folds (seed %d)",
			m.CVAccuracy, len(m.FoldScores), m.Seed)))

	return strings.Join(sections, "\n\n")
}

// Evaluation renders the confusion matrix, derived metrics and AUC of one
// evaluation run.
func Evaluation(s evaluate.Summary, classes [2]string) string {
	var sections []string

	sections = append(sections, FormatTitle(ChartIcon,
		fmt.Sprintf("Evaluation at threshold %.2f", s.Threshold)))

	m := s.Matrix
	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-14s %12s %12s", "", "pred "+classes[0], "pred "+classes[1])))
	b.WriteString(fmt.Sprintf("\n%-14s %12d %12d", "true "+classes[0], m.TN, m.FP))
	b.WriteString(fmt.Sprintf("\n%-14s %12d %12d", "true "+classes[1], m.FN, m.TP))
	sections = append(sections, b.String())

	metrics := []struct {
		name  string
		value float64
	}{
		{"Accuracy", m.Accuracy()},
		{"Recall", m.Recall()},
		{"Specificity", m.Specificity()},
		{"Precision", m.Precision()},
		{"F1", m.F1()},
		{"AUC", s.Curve.AUC},
	}
	var mb strings.Builder
	for i, metric := range metrics {
		if i > 0 {
			mb.WriteString("\n")
		}
		mb.WriteString(fmt.Sprintf("%-14s %s", metric.name, metricStyle(metric.value).Render(fmt.Sprintf("%6.2f%%", 100*metric.value))))
	}
	sections = append(sections, mb.String())

	sections = append(sections, SubtleStyle.Render(
		fmt.Sprintf("%d test rows; AUC aggregates over all thresholds", s.TestRows)))

	return strings.Join(sections, "\n\n")
}

// metricStyle colors a [0,1] metric: strong values teal, weak ones yellow.
func metricStyle(v float64) lipgloss.Style {
	if v >= 0.8 {
		return SuccessStyle
	}
	if v >= 0.5 {
		return InfoStyle
	}
	return WarningStyle
}

// Explanations renders the ranked local contributions for each explained row.
func Explanations(exs []explain.Explanation, positive string) string {
	var sections []string

	sections = append(sections, FormatTitle(LensIcon,
		fmt.Sprintf("Local explanations (toward %q)", positive)))

	for _, ex := range exs {
		var b strings.Builder
		b.WriteString(BoldStyle.Render(fmt.Sprintf("Row %d — P(%s) = %.3f", ex.Row, positive, ex.Probability)))
		for _, c := range ex.Contributions {
			bar := contributionBar(c.Weight)
			sign := "+"
			if c.Weight < 0 {
				sign = "-"
			}
			b.WriteString(fmt.Sprintf("\n  %-32s %s%.4f %s", c.Value, sign, abs(c.Weight), bar))
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}

// contributionBar draws a small signed magnitude bar.
func contributionBar(w float64) string {
	n := int(abs(w) * 40)
	if n > 20 {
		n = 20
	}
	bar := strings.Repeat("█", n)
	if w >= 0 {
		return WarningStyle.Render(bar)
	}
	return SuccessStyle.Render(bar)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// RunHistory renders recorded evaluation runs, newest first.
func RunHistory(runs []storage.Run) string {
	var sections []string

	sections = append(sections, FormatTitle(HistoryIcon, "Run history"))

	if len(runs) == 0 {
		sections = append(sections, SubtleStyle.Render("no recorded runs"))
		return strings.Join(sections, "\n\n")
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-4s %-16s %-9s %9s %9s %8s %8s %8s",
		"id", "when", "balanced", "threshold", "accuracy", "recall", "auc", "seed")))
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("\n%-4d %-16s %-9v %9.2f %8.1f%% %7.1f%% %7.1f%% %8d",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Balanced,
			r.Threshold, 100*r.Accuracy, 100*r.Recall, 100*r.AUC, r.Seed))
	}
	sections = append(sections, b.String())

	return strings.Join(sections, "\n\n")
}

// columnList joins column names for prose output.
func columnList(names []string) string {
	if len(names) == 0 {
		return "no columns"
	}
	return strings.Join(names, ", ")
}
