package dataset

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/telmetric/churnsight/internal/common"
)

// Upsample duplicates minority-label rows, sampled with replacement, until
// every label matches the majority count. Original rows keep their order;
// duplicates are appended. Deterministic for a given seed.
func Upsample(ds Dataset, seed int64) (Dataset, error) {
	labels, err := ds.Labels()
	if err != nil {
		return Dataset{}, err
	}

	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	if len(byLabel) < 2 {
		return Dataset{}, fmt.Errorf("upsample needs at least two labels: %w", common.ErrInsufficientData)
	}
	levels := make([]string, 0, len(byLabel))
	majority := 0
	for l, idx := range byLabel {
		levels = append(levels, l)
		if len(idx) > majority {
			majority = len(idx)
		}
	}
	sort.Strings(levels)

	indexes := make([]int, len(labels))
	for i := range indexes {
		indexes[i] = i
	}
	rnd := rand.New(rand.NewSource(seed))
	for _, l := range levels {
		pool := byLabel[l]
		for extra := majority - len(pool); extra > 0; extra-- {
			indexes = append(indexes, pool[rnd.Intn(len(pool))])
		}
	}

	return ds.subset(indexes)
}
