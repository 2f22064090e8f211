package trainer

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/rforest"
)

// Config controls cross-validated training. Zero values select the defaults
// noted on each field.
type Config struct {
	// Progress receives a fold-level progress bar when non-nil. Training is
	// the slow stage of the pipeline, so the CLI points this at stderr.
	Progress io.Writer
	// MtryGrid lists the candidate per-split feature counts. Defaults to
	// sqrt(p) and its neighbors for p features.
	MtryGrid []int
	// Trees is the ensemble size of every fitted forest. Defaults to 300.
	Trees int
	// Folds is the number of cross-validation folds. Defaults to 5.
	Folds int
	// Repeats is how many times the fold assignment is redrawn. Defaults to 3.
	Repeats int
	// MinLeaf is the minimum number of training rows per leaf. Defaults to 1.
	MinLeaf int
	// MaxDepth caps tree depth. 0 means unlimited.
	MaxDepth int
	// Seed drives fold assignment and every forest fit.
	Seed int64
	// Balanced records that the train design came from an upsampled
	// dataset. Informational only; carried into the model artifact.
	Balanced bool
}

func (c Config) withDefaults(p int) Config {
	if c.Trees <= 0 {
		c.Trees = 300
	}
	if c.Folds <= 0 {
		c.Folds = 5
	}
	if c.Repeats <= 0 {
		c.Repeats = 3
	}
	if len(c.MtryGrid) == 0 {
		c.MtryGrid = defaultMtryGrid(p)
	}
	return c
}

// defaultMtryGrid centers the candidate list on sqrt(p), clamped to [1, p].
func defaultMtryGrid(p int) []int {
	center := int(math.Sqrt(float64(p)))
	if center < 1 {
		center = 1
	}
	var grid []int
	for _, m := range []int{center - 1, center, center + 1} {
		if m >= 1 && m <= p && (len(grid) == 0 || grid[len(grid)-1] != m) {
			grid = append(grid, m)
		}
	}
	return grid
}

// Train runs Repeats x Folds stratified cross-validation for every mtry
// candidate, keeps the candidate with the best mean accuracy, and refits a
// final forest on the whole design with it. The same fold assignments and
// per-fold seeds are reused across candidates so the comparison is fair,
// and all randomness flows from cfg.Seed.
func Train(d *dataset.Design, cfg Config) (*Model, error) {
	if d == nil || d.NumRows() == 0 {
		return nil, fmt.Errorf("train design is empty: %w", common.ErrInsufficientData)
	}
	p := d.NumFeatures()
	cfg = cfg.withDefaults(p)
	for _, m := range cfg.MtryGrid {
		if m < 1 || m > p {
			return nil, fmt.Errorf("mtry candidate %d outside [1, %d]", m, p)
		}
	}

	folds, err := resample(d.Y, cfg.Folds, cfg.Repeats, cfg.Seed)
	if err != nil {
		return nil, err
	}
	cat := categorical(d.Features)

	cells := cfg.Repeats * cfg.Folds
	cellSeeds := make([]int64, cells)
	seedRnd := rand.New(rand.NewSource(cfg.Seed))
	for i := range cellSeeds {
		cellSeeds[i] = seedRnd.Int63()
	}

	var bar *progressbar.ProgressBar
	if cfg.Progress != nil {
		bar = progressbar.NewOptions(len(cfg.MtryGrid)*cells,
			progressbar.OptionSetWriter(cfg.Progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Cross-validating...[reset]"),
		)
	}

	started := time.Now()
	grid := make([]GridScore, 0, len(cfg.MtryGrid))
	best := -1
	var bestFolds []float64
	for _, mtry := range cfg.MtryGrid {
		if bar != nil {
			bar.Describe(fmt.Sprintf("[cyan][bold]Cross-validating mtry=%d...[reset]", mtry))
		}
		scores := make([]float64, 0, cells)
		for r := 0; r < cfg.Repeats; r++ {
			for f := 0; f < cfg.Folds; f++ {
				acc, foldErr := cvFold(d, folds[r], f, mtry, cfg, cellSeeds[r*cfg.Folds+f], cat)
				if foldErr != nil {
					return nil, foldErr
				}
				scores = append(scores, acc)
				if bar != nil {
					if addErr := bar.Add(1); addErr != nil {
						slog.Warn("failed to update progress bar", "error", addErr)
					}
				}
			}
		}
		mean := stat.Mean(scores, nil)
		grid = append(grid, GridScore{Mtry: mtry, Accuracy: mean})
		if best < 0 || mean > grid[best].Accuracy {
			best = len(grid) - 1
			bestFolds = scores
		}
	}

	winner := grid[best]
	forest, err := rforest.Train(d.X, d.Y, cat, rforest.Config{
		Trees:    cfg.Trees,
		Mtry:     winner.Mtry,
		MaxDepth: cfg.MaxDepth,
		MinLeaf:  cfg.MinLeaf,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}

	slog.Info("selected hyperparameters",
		"mtry", winner.Mtry,
		"cv_accuracy", fmt.Sprintf("%.4f", winner.Accuracy),
		"folds", cfg.Folds,
		"repeats", cfg.Repeats,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	return &Model{
		TrainedAt:  time.Now().UTC(),
		Forest:     forest,
		Features:   append([]dataset.Feature(nil), d.Features...),
		Stats:      dataset.ComputeStats(d),
		Grid:       grid,
		FoldScores: bestFolds,
		Classes:    d.Classes,
		CVAccuracy: winner.Accuracy,
		Seed:       cfg.Seed,
		Mtry:       winner.Mtry,
		Trees:      cfg.Trees,
		TrainRows:  d.NumRows(),
		Balanced:   cfg.Balanced,
	}, nil
}

// resample draws one stratified fold assignment per repeat. Each class is
// dealt round-robin across folds after a seeded shuffle, so every fold
// holds at least one row of each class whenever each class has at least
// Folds members; smaller classes are a training failure, not a retryable
// condition.
func resample(y []int, folds, repeats int, seed int64) ([][][]int, error) {
	if folds < 2 {
		return nil, fmt.Errorf("cross-validation needs at least 2 folds, got %d", folds)
	}
	var counts [2]int
	for _, v := range y {
		counts[v]++
	}
	for class, n := range counts {
		if n < folds {
			return nil, fmt.Errorf("%w: class %d has %d rows, need at least %d for %d folds",
				common.ErrInsufficientData, class, n, folds, folds)
		}
	}

	out := make([][][]int, repeats)
	for r := range out {
		rnd := rand.New(rand.NewSource(seed + int64(r)))
		assign := make([][]int, folds)
		for class := 0; class <= 1; class++ {
			pool := make([]int, 0, counts[class])
			for i, v := range y {
				if v == class {
					pool = append(pool, i)
				}
			}
			rnd.Shuffle(len(pool), func(i, j int) {
				pool[i], pool[j] = pool[j], pool[i]
			})
			for j, idx := range pool {
				f := j % folds
				assign[f] = append(assign[f], idx)
			}
		}
		for f := range assign {
			sort.Ints(assign[f])
		}
		out[r] = assign
	}
	return out, nil
}

// cvFold trains on every fold except the holdout and reports accuracy on
// the holdout at the 0.5 majority vote. The evaluation threshold is a
// separate concern owned by the evaluator.
func cvFold(d *dataset.Design, assign [][]int, holdout, mtry int, cfg Config, seed int64, cat []bool) (float64, error) {
	var trainIdx []int
	for f, rows := range assign {
		if f != holdout {
			trainIdx = append(trainIdx, rows...)
		}
	}
	testIdx := assign[holdout]
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return 0, fmt.Errorf("%w: fold %d is empty", common.ErrInsufficientData, holdout)
	}

	x := make([][]float64, len(trainIdx))
	y := make([]int, len(trainIdx))
	pos := 0
	for i, idx := range trainIdx {
		x[i] = d.X[idx]
		y[i] = d.Y[idx]
		pos += d.Y[idx]
	}
	if pos == 0 || pos == len(y) {
		return 0, fmt.Errorf("%w: fold %d training part has a single class", common.ErrInsufficientData, holdout)
	}

	forest, err := rforest.Train(x, y, cat, rforest.Config{
		Trees:    cfg.Trees,
		Mtry:     mtry,
		MaxDepth: cfg.MaxDepth,
		MinLeaf:  cfg.MinLeaf,
		Seed:     seed,
	})
	if err != nil {
		return 0, fmt.Errorf("fold %d: %w", holdout, err)
	}

	correct := 0
	for _, idx := range testIdx {
		pred := 0
		if forest.Proba(d.X[idx]) > 0.5 {
			pred = 1
		}
		if pred == d.Y[idx] {
			correct++
		}
	}
	return float64(correct) / float64(len(testIdx)), nil
}

// categorical flags, per design column, whether tree splits use equality
// semantics.
func categorical(features []dataset.Feature) []bool {
	out := make([]bool, len(features))
	for i, f := range features {
		out[i] = f.Kind == dataset.KindCategorical
	}
	return out
}
