package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/telmetric/churnsight/internal/common"
)

// StratifiedSplit partitions ds into train and test sets so each side
// preserves the target's class proportions to within one row of rounding.
// The partition is deterministic for a given seed: the two outputs are
// disjoint and their sizes sum to the input size.
func StratifiedSplit(ds Dataset, trainFrac float64, seed int64) (Dataset, Dataset, error) {
	if trainFrac <= 0 || trainFrac >= 1 || math.IsNaN(trainFrac) {
		return Dataset{}, Dataset{}, fmt.Errorf("train fraction %v: %w", trainFrac, common.ErrInvalidSplit)
	}
	labels, err := ds.Labels()
	if err != nil {
		return Dataset{}, Dataset{}, err
	}

	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	levels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		levels = append(levels, l)
	}
	sort.Strings(levels)

	rnd := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, l := range levels {
		pool := append([]int(nil), byLabel[l]...)
		rnd.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		n := int(math.Round(trainFrac * float64(len(pool))))
		trainIdx = append(trainIdx, pool[:n]...)
		testIdx = append(testIdx, pool[n:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	train, err := ds.subset(trainIdx)
	if err != nil {
		return Dataset{}, Dataset{}, err
	}
	test, err := ds.subset(testIdx)
	if err != nil {
		return Dataset{}, Dataset{}, err
	}
	return train, test, nil
}
