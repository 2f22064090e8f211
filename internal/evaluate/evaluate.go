// Package evaluate scores a trained model on a held-out design: threshold
// classification, confusion matrix with derived metrics, and the ROC curve
// with its AUC. The decision threshold lives here, never in the model.
package evaluate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/trainer"
)

// Classify converts probabilities into 0/1 predictions: positive when the
// probability strictly exceeds threshold. The threshold is validated before
// any scoring happens.
func Classify(probs []float64, threshold float64) ([]int, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	preds := make([]int, len(probs))
	for i, p := range probs {
		if p > threshold {
			preds[i] = 1
		}
	}
	return preds, nil
}

// ValidateThreshold rejects decision thresholds outside [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold %v: %w", threshold, common.ErrInvalidThreshold)
	}
	return nil
}

// Matrix is a binary confusion matrix.
type Matrix struct {
	TP int
	FP int
	TN int
	FN int
}

// Confusion tallies predictions against true labels.
func Confusion(yTrue, yPred []int) (Matrix, error) {
	if len(yTrue) != len(yPred) {
		return Matrix{}, fmt.Errorf("confusion: %d labels but %d predictions", len(yTrue), len(yPred))
	}
	var m Matrix
	for i, truth := range yTrue {
		switch {
		case truth == 1 && yPred[i] == 1:
			m.TP++
		case truth == 0 && yPred[i] == 1:
			m.FP++
		case truth == 0 && yPred[i] == 0:
			m.TN++
		default:
			m.FN++
		}
	}
	return m, nil
}

// Total returns the number of scored rows.
func (m Matrix) Total() int { return m.TP + m.FP + m.TN + m.FN }

// Accuracy is the fraction of correct predictions.
func (m Matrix) Accuracy() float64 {
	return ratio(m.TP+m.TN, m.Total())
}

// Recall (sensitivity) is the fraction of true positives recovered.
func (m Matrix) Recall() float64 {
	return ratio(m.TP, m.TP+m.FN)
}

// Specificity is the fraction of true negatives recovered.
func (m Matrix) Specificity() float64 {
	return ratio(m.TN, m.TN+m.FP)
}

// Precision is the fraction of positive predictions that are correct.
func (m Matrix) Precision() float64 {
	return ratio(m.TP, m.TP+m.FP)
}

// F1 is the harmonic mean of precision and recall.
func (m Matrix) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Curve is a ROC curve: paired false/true positive rates over every score
// cutoff, and the area under it. AUC aggregates over all cutoffs, so it is
// independent of the evaluation threshold.
type Curve struct {
	FPR []float64
	TPR []float64
	AUC float64
}

// ROC sweeps every distinct score cutoff over probs and integrates the
// resulting curve. Both classes must be present in yTrue; the curve is
// undefined otherwise.
func ROC(probs []float64, yTrue []int) (Curve, error) {
	if len(probs) != len(yTrue) {
		return Curve{}, fmt.Errorf("roc: %d scores but %d labels", len(probs), len(yTrue))
	}
	pos := 0
	for _, v := range yTrue {
		pos += v
	}
	if pos == 0 || pos == len(yTrue) {
		return Curve{}, fmt.Errorf("roc needs both classes in the test labels: %w", common.ErrInsufficientData)
	}

	scores := append([]float64(nil), probs...)
	classes := make([]bool, len(yTrue))
	for i, v := range yTrue {
		classes[i] = v == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)
	return Curve{FPR: fpr, TPR: tpr, AUC: auc}, nil
}

// Summary bundles everything an evaluation run computes.
type Summary struct {
	Probs     []float64
	Predicted []int
	Matrix    Matrix
	Curve     Curve
	Threshold float64
	TestRows  int
}

// Evaluate scores the model on the test design at the given threshold.
func Evaluate(m *trainer.Model, d *dataset.Design, threshold float64) (Summary, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return Summary{}, err
	}
	probs, err := m.Proba(d)
	if err != nil {
		return Summary{}, fmt.Errorf("score test design: %w", err)
	}
	preds, err := Classify(probs, threshold)
	if err != nil {
		return Summary{}, err
	}
	matrix, err := Confusion(d.Y, preds)
	if err != nil {
		return Summary{}, err
	}
	curve, err := ROC(probs, d.Y)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Probs:     probs,
		Predicted: preds,
		Matrix:    matrix,
		Curve:     curve,
		Threshold: threshold,
		TestRows:  d.NumRows(),
	}, nil
}
