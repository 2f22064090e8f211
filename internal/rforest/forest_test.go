package rforest

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns rows where the single numeric feature cleanly divides
// the classes: negatives in [-2,-1], positives in [1,2].
func separable(perClass int) ([][]float64, []int) {
	var x [][]float64
	var y []int
	for i := 0; i < perClass; i++ {
		step := float64(i) / float64(perClass)
		x = append(x, []float64{-2 + step})
		y = append(y, 0)
		x = append(x, []float64{1 + step})
		y = append(y, 1)
	}
	return x, y
}

func TestTrainValidation(t *testing.T) {
	tests := []struct {
		name    string
		x       [][]float64
		y       []int
		cat     []bool
		wantErr string
	}{
		{
			name:    "no rows",
			x:       nil,
			y:       nil,
			cat:     []bool{false},
			wantErr: "no training rows",
		},
		{
			name:    "no features",
			x:       [][]float64{{}},
			y:       []int{0},
			cat:     nil,
			wantErr: "no features",
		},
		{
			name:    "label count mismatch",
			x:       [][]float64{{1}, {2}},
			y:       []int{0},
			cat:     []bool{false},
			wantErr: "2 rows but 1 labels",
		},
		{
			name:    "kind flag mismatch",
			x:       [][]float64{{1, 2}},
			y:       []int{0},
			cat:     []bool{false},
			wantErr: "kind flags",
		},
		{
			name:    "ragged row",
			x:       [][]float64{{1, 2}, {3}},
			y:       []int{0, 1},
			cat:     []bool{false, false},
			wantErr: "row 1 has 1 columns",
		},
		{
			name:    "non-binary label",
			x:       [][]float64{{1}, {2}},
			y:       []int{0, 2},
			cat:     []bool{false},
			wantErr: "not binary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Train(tt.x, tt.y, tt.cat, Config{Trees: 3, Seed: 1})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrainSeparatesNumericClasses(t *testing.T) {
	x, y := separable(40)

	f, err := Train(x, y, []bool{false}, Config{Trees: 50, Seed: 7})
	require.NoError(t, err)
	require.Len(t, f.Trees, 50)

	assert.Less(t, f.Proba([]float64{-3}), 0.1)
	assert.Greater(t, f.Proba([]float64{3}), 0.9)
}

func TestTrainSeparatesCategoricalLevels(t *testing.T) {
	var x [][]float64
	var y []int
	for code := 0; code < 3; code++ {
		for i := 0; i < 30; i++ {
			x = append(x, []float64{float64(code)})
			label := 0
			if code == 2 {
				label = 1
			}
			y = append(y, label)
		}
	}

	f, err := Train(x, y, []bool{true}, Config{Trees: 50, Seed: 11})
	require.NoError(t, err)

	assert.Greater(t, f.Proba([]float64{2}), 0.9)
	assert.Less(t, f.Proba([]float64{0}), 0.1)
	assert.Less(t, f.Proba([]float64{1}), 0.1)
}

func TestTrainDeterministicForSeed(t *testing.T) {
	x, y := separable(30)
	cfg := Config{Trees: 20, Seed: 42}

	a, err := Train(x, y, []bool{false}, cfg)
	require.NoError(t, err)
	b, err := Train(x, y, []bool{false}, cfg)
	require.NoError(t, err)

	grid := [][]float64{{-2.5}, {-0.5}, {0}, {0.5}, {2.5}}
	assert.Equal(t, a.ProbaAll(grid), b.ProbaAll(grid))
}

func TestTrainRespectsMaxDepth(t *testing.T) {
	x, y := separable(40)

	f, err := Train(x, y, []bool{false}, Config{Trees: 10, MaxDepth: 2, Seed: 3})
	require.NoError(t, err)

	for _, tree := range f.Trees {
		assert.LessOrEqual(t, depth(tree), 2)
	}
}

func TestTrainRespectsMinLeaf(t *testing.T) {
	x, y := separable(25)

	f, err := Train(x, y, []bool{false}, Config{Trees: 10, MinLeaf: 10, Seed: 5})
	require.NoError(t, err)

	for _, tree := range f.Trees {
		eachLeaf(tree, func(n *Node) {
			assert.GreaterOrEqual(t, n.N, 10)
		})
	}
}

func TestProbaAllBounds(t *testing.T) {
	x, y := separable(20)

	f, err := Train(x, y, []bool{false}, Config{Trees: 15, Seed: 9})
	require.NoError(t, err)

	probs := f.ProbaAll(x)
	require.Len(t, probs, len(x))
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestForestGobRoundTrip(t *testing.T) {
	x, y := separable(30)

	f, err := Train(x, y, []bool{false}, Config{Trees: 10, Seed: 21})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(f))

	var got Forest
	require.NoError(t, gob.NewDecoder(&buf).Decode(&got))

	grid := [][]float64{{-2}, {0}, {2}}
	assert.Equal(t, f.ProbaAll(grid), got.ProbaAll(grid))
	assert.Equal(t, f.Mtry, got.Mtry)
	assert.Equal(t, f.Cat, got.Cat)
}

func depth(n *Node) int {
	if n.leaf() {
		return 0
	}
	l := depth(n.Left)
	r := depth(n.Right)
	if l > r {
		return 1 + l
	}
	return 1 + r
}

func eachLeaf(n *Node, fn func(*Node)) {
	if n.leaf() {
		fn(n)
		return
	}
	eachLeaf(n.Left, fn)
	eachLeaf(n.Right, fn)
}
