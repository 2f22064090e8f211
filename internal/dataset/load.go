package dataset

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/telmetric/churnsight/internal/common"
)

// Values treated as missing when parsing CSV input.
var missingTokens = []string{"", " ", "NA", "N/A", "NaN"}

// numericShare is the fraction of parseable values a column needs to be
// declared numeric during role inference.
const numericShare = 0.8

// Options controls loading and role inference.
type Options struct {
	// Target is the label column name. Required.
	Target string
	// Positive is the target level treated as the positive class.
	Positive string
	// Identifiers names columns to force into the identifier role on top
	// of the unique-per-row inference.
	Identifiers []string
}

// Load reads the CSV file at path into a Dataset with inferred column
// roles. The error distinguishes unreadable files from malformed content.
func Load(path string, opts Options) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	ds, err := Read(f, opts)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV content from r into a Dataset with inferred column roles.
func Read(r io.Reader, opts Options) (Dataset, error) {
	if opts.Target == "" {
		return Dataset{}, fmt.Errorf("target column name is required: %w", common.ErrMissingColumn)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingTokens),
	)
	if df.Err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", common.ErrParse, df.Err)
	}
	if df.Nrow() == 0 {
		return Dataset{}, fmt.Errorf("%w: no data rows", common.ErrParse)
	}

	schema, err := inferSchema(df, opts)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Frame: df, Schema: schema}, nil
}

// inferSchema assigns a role to every column: the declared target, declared
// or unique-per-row identifiers, numeric columns, and categorical columns
// for everything else.
func inferSchema(df dataframe.DataFrame, opts Options) (Schema, error) {
	names := df.Names()
	forced := make(map[string]bool, len(opts.Identifiers))
	for _, n := range opts.Identifiers {
		forced[n] = true
	}

	schema := Schema{Target: opts.Target, Positive: opts.Positive}
	foundTarget := false
	for _, name := range names {
		col := df.Col(name)
		var role Role
		switch {
		case name == opts.Target:
			role = RoleTarget
			foundTarget = true
		case forced[name]:
			role = RoleIdentifier
		case isNumericColumn(col):
			role = RoleNumeric
		case isIdentifierColumn(col, df.Nrow()):
			role = RoleIdentifier
		default:
			role = RoleCategorical
		}
		schema.Columns = append(schema.Columns, Column{Name: name, Role: role})
	}
	if !foundTarget {
		return Schema{}, fmt.Errorf("target %q: %w", opts.Target, common.ErrMissingColumn)
	}
	return schema, nil
}

// isNumericColumn reports whether at least numericShare of the non-missing
// values parse as floats. Typed numeric series qualify directly.
func isNumericColumn(col series.Series) bool {
	switch col.Type() {
	case series.Int, series.Float:
		return true
	case series.Bool:
		return false
	}
	records := col.Records()
	nan := col.IsNaN()
	parsed, total := 0, 0
	for i, v := range records {
		if nan[i] {
			continue
		}
		total++
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			parsed++
		}
	}
	if total == 0 {
		return false
	}
	return float64(parsed)/float64(total) >= numericShare
}

// isIdentifierColumn reports whether a string column is unique per row,
// which marks it as an identifier rather than a predictor.
func isIdentifierColumn(col series.Series, rows int) bool {
	if rows <= 10 {
		return false
	}
	seen := make(map[string]struct{}, rows)
	for _, v := range col.Records() {
		seen[v] = struct{}{}
	}
	return len(seen) == rows
}
