// Package plots writes the pipeline's charts as PNG files via gonum/plot:
// class balance bars, numeric histograms, the ROC curve and per-row
// feature-contribution bars.
package plots

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/telmetric/churnsight/internal/evaluate"
	"github.com/telmetric/churnsight/internal/explain"
)

var (
	churnRed = color.RGBA{R: 255, G: 107, B: 107, A: 255}
	teal     = color.RGBA{R: 78, G: 205, B: 196, A: 255}
	gray     = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// ClassBalance writes a bar chart of per-label record counts.
func ClassBalance(counts map[string]int, title, path string) error {
	levels := make([]string, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	sort.Strings(levels)

	values := make(plotter.Values, len(levels))
	for i, l := range levels {
		values[i] = float64(counts[l])
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Records"

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("class balance bars: %w", err)
	}
	bars.Color = churnRed
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(levels...)

	return save(p, path)
}

// Histogram writes the distribution of one numeric column.
func Histogram(values []float64, name, path string) error {
	if len(values) == 0 {
		return fmt.Errorf("histogram %q: no values", name)
	}

	p := plot.New()
	p.Title.Text = name + " distribution"
	p.X.Label.Text = name
	p.Y.Label.Text = "Records"

	h, err := plotter.NewHist(plotter.Values(values), 30)
	if err != nil {
		return fmt.Errorf("histogram %q: %w", name, err)
	}
	h.FillColor = teal
	p.Add(h)

	return save(p, path)
}

// ROCCurve writes the ROC curve with the chance diagonal; the AUC goes in
// the title.
func ROCCurve(c evaluate.Curve, path string) error {
	pts := make(plotter.XYs, len(c.FPR))
	for i := range c.FPR {
		pts[i].X = c.FPR[i]
		pts[i].Y = c.TPR[i]
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC curve (AUC = %.3f)", c.AUC)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("roc line: %w", err)
	}
	line.Color = churnRed
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return fmt.Errorf("chance diagonal: %w", err)
	}
	chance.Color = gray
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)

	return save(p, path)
}

// Contributions writes the signed feature contributions of one explained
// row as a bar chart, strongest first.
func Contributions(ex explain.Explanation, path string) error {
	if len(ex.Contributions) == 0 {
		return fmt.Errorf("row %d: no contributions to plot", ex.Row)
	}

	values := make(plotter.Values, len(ex.Contributions))
	labels := make([]string, len(ex.Contributions))
	for i, c := range ex.Contributions {
		values[i] = c.Weight
		labels[i] = c.Value
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Row %d contributions toward churn (P = %.3f)", ex.Row, ex.Probability)
	p.Y.Label.Text = "Contribution"

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return fmt.Errorf("contribution bars: %w", err)
	}
	bars.Color = churnRed
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.9
	p.X.Tick.Label.XAlign = -0.9
	p.X.Tick.Label.YAlign = -0.4

	return save(p, path)
}

// save writes the plot as a PNG, creating parent directories as needed.
func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
