// Package dataset provides the tabular data layer of the churn pipeline:
// CSV loading with column-role inference, cleaning, stratified splitting,
// class balancing, and design-matrix encoding for the model.
package dataset

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"github.com/telmetric/churnsight/internal/common"
)

// Role describes how a column participates in modeling.
type Role int

const (
	// RoleIdentifier marks a column that identifies rows and carries no signal.
	RoleIdentifier Role = iota
	// RoleCategorical marks a discrete-valued predictor.
	RoleCategorical
	// RoleNumeric marks a continuous-valued predictor.
	RoleNumeric
	// RoleTarget marks the label column.
	RoleTarget
)

// String returns the human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "identifier"
	case RoleCategorical:
		return "categorical"
	case RoleNumeric:
		return "numeric"
	case RoleTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Column pairs a column name with its inferred or declared role.
type Column struct {
	Name string
	Role Role
}

// Schema declares the modeling role of every column in a Dataset.
type Schema struct {
	Columns  []Column
	Target   string
	Positive string
}

// RoleOf reports the role of the named column.
func (s Schema) RoleOf(name string) (Role, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Role, true
		}
	}
	return 0, false
}

// Features returns the predictor columns: everything that is neither an
// identifier nor the target, in schema order.
func (s Schema) Features() []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Role == RoleCategorical || c.Role == RoleNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Identifiers returns the identifier column names in schema order.
func (s Schema) Identifiers() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Role == RoleIdentifier {
			out = append(out, c.Name)
		}
	}
	return out
}

// clone returns a deep copy so transformations never alias the input schema.
func (s Schema) clone() Schema {
	out := s
	out.Columns = append([]Column(nil), s.Columns...)
	return out
}

// setRole rewrites the role of the named column in place.
func (s *Schema) setRole(name string, role Role) {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			s.Columns[i].Role = role
			return
		}
	}
}

// dropColumns removes the named columns from the schema.
func (s *Schema) dropColumns(names []string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := s.Columns[:0]
	for _, c := range s.Columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	s.Columns = kept
}

// Dataset is an ordered collection of customer records with a declared
// schema. The frame is never mutated in place: every transformation
// returns a new Dataset.
type Dataset struct {
	Frame  dataframe.DataFrame
	Schema Schema
}

// NumRows returns the number of records.
func (d Dataset) NumRows() int {
	return d.Frame.Nrow()
}

// NumCols returns the number of columns.
func (d Dataset) NumCols() int {
	return d.Frame.Ncol()
}

// Labels returns the target column values as strings, one per record.
func (d Dataset) Labels() ([]string, error) {
	if !d.hasColumn(d.Schema.Target) {
		return nil, fmt.Errorf("target %q: %w", d.Schema.Target, common.ErrMissingColumn)
	}
	return d.Frame.Col(d.Schema.Target).Records(), nil
}

// LabelCounts returns the number of records per target level.
func (d Dataset) LabelCounts() (map[string]int, error) {
	labels, err := d.Labels()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts, nil
}

func (d Dataset) hasColumn(name string) bool {
	for _, n := range d.Frame.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// subset returns a Dataset containing the rows at the given indexes, in
// the given order. Indexes may repeat.
func (d Dataset) subset(indexes []int) (Dataset, error) {
	sub := d.Frame.Subset(indexes)
	if sub.Err != nil {
		return Dataset{}, fmt.Errorf("subset rows: %w", sub.Err)
	}
	return Dataset{Frame: sub, Schema: d.Schema}, nil
}
