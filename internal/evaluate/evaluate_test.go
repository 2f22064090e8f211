package evaluate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/trainer"
)

func TestClassifyThresholdExtremes(t *testing.T) {
	// Forest scores are means of leaf probabilities, strictly inside (0,1)
	// on mixed data.
	probs := []float64{0.01, 0.2, 0.5, 0.8, 0.99}

	all, err := Classify(probs, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, all, "threshold 0 classifies everything positive")

	none, err := Classify(probs, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, none, "threshold 1 classifies everything negative")
}

func TestClassifyStrictlyExceeds(t *testing.T) {
	preds, err := Classify([]float64{0.45, 0.450001, 0.6}, 0.45)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, preds)
}

func TestClassifyRejectsBadThreshold(t *testing.T) {
	for _, th := range []float64{-0.1, 1.1, math.NaN()} {
		_, err := Classify([]float64{0.5}, th)
		require.Error(t, err, "threshold %v", th)
		assert.ErrorIs(t, err, common.ErrInvalidThreshold)
	}
}

func TestConfusionCountsAndMetrics(t *testing.T) {
	yTrue := []int{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	yPred := []int{1, 1, 1, 0, 0, 0, 0, 0, 1, 1}

	m, err := Confusion(yTrue, yPred)
	require.NoError(t, err)

	assert.Equal(t, 3, m.TP)
	assert.Equal(t, 1, m.FN)
	assert.Equal(t, 2, m.FP)
	assert.Equal(t, 4, m.TN)
	assert.Equal(t, len(yTrue), m.Total())

	assert.InDelta(t, 0.7, m.Accuracy(), 1e-9)
	assert.InDelta(t, 0.75, m.Recall(), 1e-9)
	assert.InDelta(t, 4.0/6.0, m.Specificity(), 1e-9)
	assert.InDelta(t, 0.6, m.Precision(), 1e-9)
	assert.InDelta(t, 2*0.6*0.75/(0.6+0.75), m.F1(), 1e-9)
}

func TestConfusionLengthMismatch(t *testing.T) {
	_, err := Confusion([]int{1}, []int{1, 0})
	require.Error(t, err)
}

func TestMetricsOnEmptyMatrix(t *testing.T) {
	var m Matrix
	assert.Zero(t, m.Accuracy())
	assert.Zero(t, m.Recall())
	assert.Zero(t, m.Precision())
	assert.Zero(t, m.F1())
}

func TestROCPerfectSeparation(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9}
	yTrue := []int{0, 0, 0, 1, 1, 1}

	c, err := ROC(probs, yTrue)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.AUC, 1e-9)
}

func TestROCRandomScoresNearHalf(t *testing.T) {
	rnd := rand.New(rand.NewSource(99))
	n := 4000
	probs := make([]float64, n)
	yTrue := make([]int, n)
	for i := range probs {
		probs[i] = rnd.Float64()
		yTrue[i] = i % 2
	}

	c, err := ROC(probs, yTrue)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, c.AUC, 0.05)
	assert.GreaterOrEqual(t, c.AUC, 0.0)
	assert.LessOrEqual(t, c.AUC, 1.0)
}

func TestROCRequiresBothClasses(t *testing.T) {
	_, err := ROC([]float64{0.2, 0.8}, []int{1, 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestEvaluateAUCInvariantToThreshold(t *testing.T) {
	d := separableDesign(30)
	m, err := trainer.Train(d, trainer.Config{Trees: 15, Folds: 3, Repeats: 1, Seed: 13})
	require.NoError(t, err)

	low, err := Evaluate(m, d, 0.2)
	require.NoError(t, err)
	high, err := Evaluate(m, d, 0.8)
	require.NoError(t, err)

	assert.Equal(t, low.Curve.AUC, high.Curve.AUC, "AUC aggregates over all thresholds")
	assert.Equal(t, d.NumRows(), low.Matrix.Total())
	assert.Equal(t, d.NumRows(), low.TestRows)
}

func TestEvaluateRejectsBadThreshold(t *testing.T) {
	d := separableDesign(10)
	m, err := trainer.Train(d, trainer.Config{Trees: 5, Folds: 2, Repeats: 1, Seed: 3})
	require.NoError(t, err)

	_, err = Evaluate(m, d, 1.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidThreshold)
}

// separableDesign mirrors the trainer test fixture: feature 0 separates the
// classes, feature 1 is categorical noise.
func separableDesign(perClass int) *dataset.Design {
	d := &dataset.Design{
		Features: []dataset.Feature{
			{Name: "signal", Kind: dataset.KindNumeric},
			{Name: "noise", Kind: dataset.KindCategorical, Levels: []string{"a", "b"}},
		},
		Classes: [2]string{"No", "Yes"},
	}
	for i := 0; i < perClass; i++ {
		step := float64(i) / float64(perClass)
		d.X = append(d.X, []float64{-2 + step, float64(i % 2)})
		d.Y = append(d.Y, 0)
		d.X = append(d.X, []float64{1 + step, float64((i + 1) % 2)})
		d.Y = append(d.Y, 1)
	}
	return d
}
