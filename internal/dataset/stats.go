package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FeatureStats summarizes the training design per feature: mean and
// standard deviation for numeric features, level frequencies for
// categorical ones. The explainer samples perturbations from these.
type FeatureStats struct {
	Mean []float64
	Std  []float64
	Freq [][]float64 // per categorical feature: relative level frequency; nil for numeric
}

// ComputeStats derives FeatureStats from a design matrix.
func ComputeStats(d *Design) FeatureStats {
	p := d.NumFeatures()
	stats := FeatureStats{
		Mean: make([]float64, p),
		Std:  make([]float64, p),
		Freq: make([][]float64, p),
	}
	col := make([]float64, d.NumRows())
	for j, f := range d.Features {
		for i := range d.X {
			col[i] = d.X[i][j]
		}
		switch f.Kind {
		case KindNumeric:
			stats.Mean[j] = stat.Mean(col, nil)
			stats.Std[j] = stat.StdDev(col, nil)
		case KindCategorical:
			freq := make([]float64, len(f.Levels))
			for _, v := range col {
				if i := int(v); i >= 0 && i < len(freq) {
					freq[i]++
				}
			}
			for i := range freq {
				freq[i] /= float64(len(col))
			}
			stats.Freq[j] = freq
		}
	}
	return stats
}

// NumericSummary is a five-number-plus summary of one numeric column.
type NumericSummary struct {
	Name   string
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
	Mean   float64
	Std    float64
}

// SummarizeNumeric computes distribution summaries for every numeric
// column of ds, in schema order. Missing values must have been cleaned.
func SummarizeNumeric(ds Dataset) ([]NumericSummary, error) {
	var out []NumericSummary
	for _, col := range ds.Schema.Features() {
		if col.Role != RoleNumeric {
			continue
		}
		values := ds.Frame.Col(col.Name).Float()
		if len(values) == 0 {
			return nil, fmt.Errorf("numeric column %q is empty", col.Name)
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		out = append(out, NumericSummary{
			Name:   col.Name,
			Min:    floats.Min(sorted),
			Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
			Max:    floats.Max(sorted),
			Mean:   stat.Mean(sorted, nil),
			Std:    stat.StdDev(sorted, nil),
		})
	}
	return out, nil
}

// NumericValues returns the values of one numeric column, for plotting.
func NumericValues(ds Dataset, name string) ([]float64, error) {
	role, ok := ds.Schema.RoleOf(name)
	if !ok || role != RoleNumeric {
		return nil, fmt.Errorf("column %q is not numeric", name)
	}
	return ds.Frame.Col(name).Float(), nil
}
