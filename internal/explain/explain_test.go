package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/trainer"
)

// monotoneDesign plants one numeric feature that fully determines the label
// plus two noise features, so the explainer has an unambiguous signal to
// recover.
func monotoneDesign(perClass int) *dataset.Design {
	d := &dataset.Design{
		Features: []dataset.Feature{
			{Name: "signal", Kind: dataset.KindNumeric},
			{Name: "noiseNum", Kind: dataset.KindNumeric},
			{Name: "noiseCat", Kind: dataset.KindCategorical, Levels: []string{"a", "b", "c"}},
		},
		Classes: [2]string{"No", "Yes"},
	}
	for i := 0; i < perClass; i++ {
		step := float64(i) / float64(perClass)
		d.X = append(d.X, []float64{-2 + step, step, float64(i % 3)})
		d.Y = append(d.Y, 0)
		d.X = append(d.X, []float64{1 + step, step, float64((i + 1) % 3)})
		d.Y = append(d.Y, 1)
	}
	return d
}

func trainedModel(t *testing.T, d *dataset.Design) *trainer.Model {
	t.Helper()
	m, err := trainer.Train(d, trainer.Config{Trees: 40, Folds: 3, Repeats: 1, Seed: 19})
	require.NoError(t, err)
	return m
}

func TestExplainRecoversPlantedSignal(t *testing.T) {
	d := monotoneDesign(50)
	m := trainedModel(t, d)

	// Row 1 is the first positive row: signal well above the mean.
	exs, err := Explain(m, d, []int{1}, Config{Samples: 800, TopFeatures: 3, Seed: 4})
	require.NoError(t, err)
	require.Len(t, exs, 1)

	ex := exs[0]
	assert.Equal(t, 1, ex.Row)
	assert.Greater(t, ex.Probability, 0.8)
	require.NotEmpty(t, ex.Contributions)

	top := ex.Contributions[0]
	assert.Equal(t, "signal", top.Feature)
	assert.Positive(t, top.Weight, "high signal should push toward churn")
	assert.Contains(t, top.Value, "signal=")
}

func TestExplainNegativeRowPullsDown(t *testing.T) {
	d := monotoneDesign(50)
	m := trainedModel(t, d)

	// Row 0 is the first negative row: signal well below the mean.
	exs, err := Explain(m, d, []int{0}, Config{Samples: 800, TopFeatures: 3, Seed: 4})
	require.NoError(t, err)

	top := exs[0].Contributions[0]
	assert.Equal(t, "signal", top.Feature)
	assert.Negative(t, top.Weight, "low signal should push away from churn")
	assert.Less(t, exs[0].Probability, 0.2)
}

func TestExplainCapsTopFeatures(t *testing.T) {
	d := monotoneDesign(30)
	m := trainedModel(t, d)

	exs, err := Explain(m, d, []int{0, 1}, Config{Samples: 300, TopFeatures: 2, Seed: 8})
	require.NoError(t, err)
	require.Len(t, exs, 2)
	for _, ex := range exs {
		assert.LessOrEqual(t, len(ex.Contributions), 2)
	}
}

func TestExplainDeterministicPerSeed(t *testing.T) {
	d := monotoneDesign(30)
	m := trainedModel(t, d)
	cfg := Config{Samples: 400, TopFeatures: 3, Seed: 12}

	a, err := Explain(m, d, []int{2}, cfg)
	require.NoError(t, err)
	b, err := Explain(m, d, []int{2}, cfg)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExplainRowSeedIndependentOfOrder(t *testing.T) {
	d := monotoneDesign(30)
	m := trainedModel(t, d)
	cfg := Config{Samples: 400, TopFeatures: 3, Seed: 12}

	pair, err := Explain(m, d, []int{2, 5}, cfg)
	require.NoError(t, err)
	reversed, err := Explain(m, d, []int{5, 2}, cfg)
	require.NoError(t, err)

	assert.Equal(t, pair[0], reversed[1])
	assert.Equal(t, pair[1], reversed[0])
}

func TestExplainValidation(t *testing.T) {
	d := monotoneDesign(20)
	m := trainedModel(t, d)

	_, err := Explain(m, d, nil, Config{})
	require.Error(t, err)

	_, err = Explain(m, d, []int{d.NumRows()}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside design")
}
