// Package rforest grows bagged ensembles of binary CART trees and reports
// positive-class probabilities. Training is deterministic for a given seed:
// tree i draws its bootstrap sample and feature subsets from an independent
// generator seeded with seed+i, so results do not depend on goroutine
// scheduling.
package rforest

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Config controls forest growth. Zero values select the defaults noted on
// each field.
type Config struct {
	// Trees is the ensemble size. Defaults to 300.
	Trees int
	// Mtry is the number of candidate features examined per split.
	// Defaults to floor(sqrt(p)) for p features.
	Mtry int
	// MaxDepth caps tree depth. 0 means unlimited.
	MaxDepth int
	// MinLeaf is the minimum number of training rows per leaf. Defaults to 1.
	MinLeaf int
	// Seed seeds the per-tree generators.
	Seed int64
}

func (c Config) withDefaults(p int) Config {
	if c.Trees <= 0 {
		c.Trees = 300
	}
	if c.MinLeaf < 1 {
		c.MinLeaf = 1
	}
	if c.Mtry <= 0 || c.Mtry > p {
		c.Mtry = int(math.Sqrt(float64(p)))
		if c.Mtry < 1 {
			c.Mtry = 1
		}
	}
	return c
}

// Forest is a trained ensemble. Fields are exported so forests survive gob
// encoding.
type Forest struct {
	Trees       []*Node
	Cat         []bool
	Mtry        int
	Seed        int64
	NumFeatures int
}

// Train grows a forest on the design matrix x with binary labels y.
// cat marks, per column of x, whether splits use equality (label-encoded
// categorical) or threshold (numeric) semantics.
func Train(x [][]float64, y []int, cat []bool, cfg Config) (*Forest, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("rforest: no training rows")
	}
	p := len(x[0])
	if p == 0 {
		return nil, fmt.Errorf("rforest: no features")
	}
	if len(y) != n {
		return nil, fmt.Errorf("rforest: %d rows but %d labels", n, len(y))
	}
	if len(cat) != p {
		return nil, fmt.Errorf("rforest: %d features but %d kind flags", p, len(cat))
	}
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("rforest: row %d has %d columns, want %d", i, len(row), p)
		}
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("rforest: label %d at row %d is not binary", v, i)
		}
	}

	cfg = cfg.withDefaults(p)
	trees := make([]*Node, cfg.Trees)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Trees; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(cfg.Seed + int64(i)))
			sample := make([]int, n)
			for j := range sample {
				sample[j] = rnd.Intn(n)
			}
			b := &builder{x: x, y: y, cat: cat, cfg: cfg, rnd: rnd}
			trees[i] = b.build(sample, 0)
		}(i)
	}
	wg.Wait()

	return &Forest{
		Trees:       trees,
		Cat:         append([]bool(nil), cat...),
		Mtry:        cfg.Mtry,
		Seed:        cfg.Seed,
		NumFeatures: p,
	}, nil
}

// Proba returns the positive-class probability for one encoded row: the mean
// of the leaf probabilities across all trees.
func (f *Forest) Proba(x []float64) float64 {
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.walk(x)
	}
	return sum / float64(len(f.Trees))
}

// ProbaAll applies Proba to every row of x.
func (f *Forest) ProbaAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = f.Proba(row)
	}
	return out
}
