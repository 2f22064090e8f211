// Package trainer fits the churn classifier: repeated stratified
// cross-validation over a small mtry grid, a final refit on the full train
// design, and gob persistence of the resulting model artifact.
package trainer

import (
	"fmt"
	"time"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/rforest"
)

// GridScore records the mean cross-validated accuracy of one mtry candidate.
type GridScore struct {
	Mtry     int
	Accuracy float64
}

// Model is the immutable artifact produced by Train: the fitted forest plus
// everything the evaluator, explainer and report need to use it. Fields are
// exported so models survive gob encoding.
type Model struct {
	TrainedAt  time.Time
	Forest     *rforest.Forest
	Features   []dataset.Feature
	Stats      dataset.FeatureStats
	Grid       []GridScore
	FoldScores []float64
	Classes    [2]string
	CVAccuracy float64
	Seed       int64
	Mtry       int
	Trees      int
	TrainRows  int
	Balanced   bool
}

// Proba returns the positive-class probability for every row of d. The
// design must have been produced by the encoder the model was trained on.
func (m *Model) Proba(d *dataset.Design) ([]float64, error) {
	if err := m.Compatible(d); err != nil {
		return nil, err
	}
	return m.Forest.ProbaAll(d.X), nil
}

// ProbaRow returns the positive-class probability for one encoded row.
func (m *Model) ProbaRow(x []float64) float64 {
	return m.Forest.Proba(x)
}

// Compatible reports whether d matches the encoding this model was trained
// on: same features in the same order and the same class levels.
func (m *Model) Compatible(d *dataset.Design) error {
	if m.Forest == nil {
		return common.ErrUntrainedModel
	}
	if len(d.Features) != len(m.Features) {
		return fmt.Errorf("design has %d features, model wants %d", len(d.Features), len(m.Features))
	}
	for i, f := range d.Features {
		if f.Name != m.Features[i].Name || f.Kind != m.Features[i].Kind {
			return fmt.Errorf("design feature %d is %q, model wants %q", i, f.Name, m.Features[i].Name)
		}
	}
	if d.Classes != m.Classes {
		return fmt.Errorf("design classes %v, model wants %v", d.Classes, m.Classes)
	}
	return nil
}
