// Package explain produces local, per-row explanations of the churn model:
// each explained row gets a ranked list of signed feature contributions
// toward the positive label, obtained by fitting a weighted ridge surrogate
// on perturbed neighbors of the row. Output is interpretive only; the model
// is never modified.
package explain

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/trainer"
)

// Config controls the surrogate fit. Zero values select the defaults noted
// on each field.
type Config struct {
	// Samples is the number of perturbed neighbors drawn per row. Defaults
	// to 2000.
	Samples int
	// TopFeatures caps how many contributions are reported per row.
	// Defaults to 8.
	TopFeatures int
	// KernelWidth sets the RBF proximity kernel width in the surrogate
	// space. Defaults to 0.75 * sqrt(p) for p features.
	KernelWidth float64
	// Ridge is the L2 penalty of the surrogate regression. Defaults to 1.
	Ridge float64
	// Seed drives perturbation sampling; row i uses Seed+i so explanations
	// are deterministic per row regardless of the rows slice order.
	Seed int64
}

func (c Config) withDefaults(p int) Config {
	if c.Samples <= 0 {
		c.Samples = 2000
	}
	if c.TopFeatures <= 0 {
		c.TopFeatures = 8
	}
	if c.KernelWidth <= 0 {
		c.KernelWidth = 0.75 * math.Sqrt(float64(p))
	}
	if c.Ridge <= 0 {
		c.Ridge = 1
	}
	return c
}

// Contribution is one feature's signed pull on the predicted probability.
// Positive weights push toward the positive (churn) label.
type Contribution struct {
	Feature string
	Value   string
	Weight  float64
}

// Explanation is the ranked local explanation of one test row.
type Explanation struct {
	Row           int
	Probability   float64
	Contributions []Contribution
}

// Explain fits a local surrogate around each requested row of d and returns
// the top contributions per row, ranked by absolute weight.
func Explain(m *trainer.Model, d *dataset.Design, rows []int, cfg Config) ([]Explanation, error) {
	if err := m.Compatible(d); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("explain: no rows requested")
	}
	p := d.NumFeatures()
	cfg = cfg.withDefaults(p)

	out := make([]Explanation, 0, len(rows))
	for _, row := range rows {
		if row < 0 || row >= d.NumRows() {
			return nil, fmt.Errorf("explain: row %d outside design of %d rows", row, d.NumRows())
		}
		ex, err := explainRow(m, d.X[row], row, cfg)
		if err != nil {
			return nil, fmt.Errorf("explain row %d: %w", row, err)
		}
		out = append(out, ex)
	}
	return out, nil
}

// explainRow perturbs one row, queries the model for every neighbor, and
// fits a proximity-weighted ridge regression in the surrogate space.
func explainRow(m *trainer.Model, x0 []float64, row int, cfg Config) (Explanation, error) {
	p := len(m.Features)
	rnd := rand.New(rand.NewSource(cfg.Seed + int64(row)))

	// Surrogate representation: standardized numerics, same-level
	// indicators for categoricals. The explained row itself is sample 0.
	samples := make([][]float64, cfg.Samples)
	z := make([][]float64, cfg.Samples)
	samples[0] = append([]float64(nil), x0...)
	for i := 1; i < cfg.Samples; i++ {
		samples[i] = perturb(x0, m, rnd)
	}
	for i, s := range samples {
		z[i] = surrogate(s, x0, m)
	}

	weights := make([]float64, cfg.Samples)
	probs := make([]float64, cfg.Samples)
	z0 := z[0]
	for i := range samples {
		weights[i] = kernel(z[i], z0, cfg.KernelWidth)
		probs[i] = m.ProbaRow(samples[i])
	}

	beta, err := ridge(z, probs, weights, cfg.Ridge)
	if err != nil {
		return Explanation{}, err
	}

	// Each feature's additive term for this row in the surrogate model is
	// its signed contribution to the predicted probability.
	contribs := make([]Contribution, 0, p)
	for j, f := range m.Features {
		contribs = append(contribs, Contribution{
			Feature: f.Name,
			Value:   f.Describe(x0[j]),
			Weight:  beta[j] * z0[j],
		})
	}
	sort.SliceStable(contribs, func(a, b int) bool {
		return math.Abs(contribs[a].Weight) > math.Abs(contribs[b].Weight)
	})
	if len(contribs) > cfg.TopFeatures {
		contribs = contribs[:cfg.TopFeatures]
	}

	return Explanation{
		Row:           row,
		Probability:   probs[0],
		Contributions: contribs,
	}, nil
}

// perturb draws one neighbor: numerics from the training N(mean, std),
// categoricals from the training level frequencies.
func perturb(x0 []float64, m *trainer.Model, rnd *rand.Rand) []float64 {
	out := make([]float64, len(x0))
	for j, f := range m.Features {
		switch f.Kind {
		case dataset.KindNumeric:
			out[j] = m.Stats.Mean[j] + m.Stats.Std[j]*rnd.NormFloat64()
		case dataset.KindCategorical:
			out[j] = float64(sampleLevel(m.Stats.Freq[j], rnd))
		}
	}
	return out
}

// sampleLevel draws a level index proportional to its training frequency.
func sampleLevel(freq []float64, rnd *rand.Rand) int {
	u := rnd.Float64()
	acc := 0.0
	for i, f := range freq {
		acc += f
		if u < acc {
			return i
		}
	}
	return len(freq) - 1
}

// surrogate maps a raw sample into the interpretable space relative to the
// explained row x0: (x-mean)/std for numerics, 1/0 same-level indicators
// for categoricals.
func surrogate(x, x0 []float64, m *trainer.Model) []float64 {
	out := make([]float64, len(x))
	for j, f := range m.Features {
		switch f.Kind {
		case dataset.KindNumeric:
			if std := m.Stats.Std[j]; std > 0 {
				out[j] = (x[j] - m.Stats.Mean[j]) / std
			}
		case dataset.KindCategorical:
			if x[j] == x0[j] {
				out[j] = 1
			}
		}
	}
	return out
}

// kernel is the RBF proximity weight between two surrogate points.
func kernel(z, z0 []float64, width float64) float64 {
	d2 := 0.0
	for j := range z {
		diff := z[j] - z0[j]
		d2 += diff * diff
	}
	return math.Exp(-d2 / (width * width))
}

// ridge solves the proximity-weighted ridge regression of probs on z with
// an unpenalized-in-spirit intercept column, via the normal equations and a
// Cholesky factorization. Returns the p feature coefficients.
func ridge(z [][]float64, probs, weights []float64, lambda float64) ([]float64, error) {
	n := len(z)
	p := len(z[0])
	cols := p + 1 // intercept last

	a := mat.NewDense(n, cols, nil)
	for i, row := range z {
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, p, 1)
	}

	// M = A^T W A + lambda I, b = A^T W y.
	em := mat.NewSymDense(cols, nil)
	b := mat.NewVecDense(cols, nil)
	for i := 0; i < n; i++ {
		w := weights[i]
		if w == 0 {
			continue
		}
		for j := 0; j < cols; j++ {
			aij := a.At(i, j)
			b.SetVec(j, b.AtVec(j)+w*aij*probs[i])
			for k := j; k < cols; k++ {
				em.SetSym(j, k, em.At(j, k)+w*aij*a.At(i, k))
			}
		}
	}
	for j := 0; j < cols; j++ {
		em.SetSym(j, j, em.At(j, j)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(em); !ok {
		return nil, fmt.Errorf("surrogate normal equations are not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, b); err != nil {
		return nil, fmt.Errorf("solve surrogate regression: %w", err)
	}

	out := make([]float64, p)
	for j := range out {
		out[j] = beta.AtVec(j)
	}
	return out, nil
}
