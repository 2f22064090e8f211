package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/telmetric/churnsight/internal/common"
)

// FeatureKind distinguishes how a feature is encoded in the design matrix.
type FeatureKind int

const (
	// KindNumeric features carry their raw value.
	KindNumeric FeatureKind = iota
	// KindCategorical features carry the index of their level.
	KindCategorical
)

// Feature describes one column of the design matrix.
type Feature struct {
	Name   string
	Kind   FeatureKind
	Levels []string // sorted category levels; nil for numeric features
}

// Describe renders a raw feature value for humans, e.g. "Contract=Month-to-month"
// or "tenure=12.0".
func (f Feature) Describe(value float64) string {
	if f.Kind == KindCategorical {
		i := int(value)
		if i >= 0 && i < len(f.Levels) {
			return fmt.Sprintf("%s=%s", f.Name, f.Levels[i])
		}
		return fmt.Sprintf("%s=?", f.Name)
	}
	return fmt.Sprintf("%s=%.4g", f.Name, value)
}

// Design is the numeric view of a Dataset consumed by the model: predictors
// as float columns (categoricals label-encoded), and the target as 0/1.
type Design struct {
	Features []Feature
	X        [][]float64
	Y        []int
	Classes  [2]string // [negative, positive]
}

// NumRows returns the number of encoded records.
func (d *Design) NumRows() int { return len(d.X) }

// NumFeatures returns the number of predictor columns.
func (d *Design) NumFeatures() int { return len(d.Features) }

// Positives returns how many records carry the positive label.
func (d *Design) Positives() int {
	n := 0
	for _, y := range d.Y {
		n += y
	}
	return n
}

// Encoder maps Datasets onto design matrices. It is fitted once on the
// cleaned dataset so train and test splits agree on feature order and
// category levels.
type Encoder struct {
	features []Feature
	codes    []map[string]int
	target   string
	classes  [2]string
}

// NewEncoder fits an encoder on ds: feature order follows the schema,
// category levels are collected and sorted, and the binary target is
// oriented so that positive maps to 1.
func NewEncoder(ds Dataset, positive string) (*Encoder, error) {
	labels, err := ds.Labels()
	if err != nil {
		return nil, err
	}
	levelSet := make(map[string]struct{})
	for _, l := range labels {
		levelSet[l] = struct{}{}
	}
	if len(levelSet) != 2 {
		return nil, fmt.Errorf("target %q has %d levels, want 2", ds.Schema.Target, len(levelSet))
	}
	if _, ok := levelSet[positive]; !ok {
		return nil, fmt.Errorf("positive label %q not present in target %q: %w",
			positive, ds.Schema.Target, common.ErrUnknownCategory)
	}
	var negative string
	for l := range levelSet {
		if l != positive {
			negative = l
		}
	}

	e := &Encoder{
		target:  ds.Schema.Target,
		classes: [2]string{negative, positive},
	}
	for _, col := range ds.Schema.Features() {
		switch col.Role {
		case RoleNumeric:
			e.features = append(e.features, Feature{Name: col.Name, Kind: KindNumeric})
			e.codes = append(e.codes, nil)
		case RoleCategorical:
			levels := uniqueSorted(ds.Frame.Col(col.Name).Records())
			codes := make(map[string]int, len(levels))
			for i, l := range levels {
				codes[l] = i
			}
			e.features = append(e.features, Feature{Name: col.Name, Kind: KindCategorical, Levels: levels})
			e.codes = append(e.codes, codes)
		}
	}
	if len(e.features) == 0 {
		return nil, fmt.Errorf("no predictor columns: %w", common.ErrMissingColumn)
	}
	return e, nil
}

// Features returns the fitted feature descriptions in design order.
func (e *Encoder) Features() []Feature {
	return append([]Feature(nil), e.features...)
}

// Classes returns the [negative, positive] target levels.
func (e *Encoder) Classes() [2]string {
	return e.classes
}

// Design encodes ds with the fitted feature maps. Columns missing from ds
// or category levels unseen at fit time are errors.
func (e *Encoder) Design(ds Dataset) (*Design, error) {
	n := ds.NumRows()
	cols := make([][]float64, len(e.features))
	for j, f := range e.features {
		if !ds.hasColumn(f.Name) {
			return nil, fmt.Errorf("feature %q: %w", f.Name, common.ErrMissingColumn)
		}
		col := ds.Frame.Col(f.Name)
		switch f.Kind {
		case KindNumeric:
			vals := col.Float()
			for i, v := range vals {
				if math.IsNaN(v) {
					return nil, fmt.Errorf("feature %q row %d is missing; run Clean first", f.Name, i)
				}
			}
			cols[j] = vals
		case KindCategorical:
			records := col.Records()
			vals := make([]float64, n)
			for i, v := range records {
				code, ok := e.codes[j][v]
				if !ok {
					return nil, fmt.Errorf("feature %q value %q: %w", f.Name, v, common.ErrUnknownCategory)
				}
				vals[i] = float64(code)
			}
			cols[j] = vals
		}
	}

	labels, err := ds.Labels()
	if err != nil {
		return nil, err
	}
	y := make([]int, n)
	for i, l := range labels {
		switch l {
		case e.classes[1]:
			y[i] = 1
		case e.classes[0]:
			y[i] = 0
		default:
			return nil, fmt.Errorf("target value %q: %w", l, common.ErrUnknownCategory)
		}
	}

	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = cols[j][i]
		}
		x[i] = row
	}

	return &Design{
		Features: e.Features(),
		X:        x,
		Y:        y,
		Classes:  e.classes,
	}, nil
}

func uniqueSorted(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
