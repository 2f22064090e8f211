package dataset

import (
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/series"

	"github.com/telmetric/churnsight/internal/common"
)

// CleanOptions controls the cleaning pass.
type CleanOptions struct {
	// RecastCategorical names numeric columns to recast as categorical,
	// such as 0/1 flag columns that should be modeled as factors.
	RecastCategorical []string
}

// CleanReport records what the Cleaner did, for auditability.
type CleanReport struct {
	InputRows      int
	RemovedRows    int
	DroppedColumns []string
	RecastColumns  []string
}

// Clean drops identifier columns, removes every row with a missing value,
// and recasts the configured numeric flag columns to categorical. The
// returned Dataset has zero missing values; the input is left untouched.
func Clean(ds Dataset, opts CleanOptions) (Dataset, CleanReport, error) {
	report := CleanReport{InputRows: ds.NumRows()}
	frame := ds.Frame
	schema := ds.Schema.clone()

	// Identifier columns carry no signal.
	if ids := schema.Identifiers(); len(ids) > 0 {
		frame = frame.Drop(ids)
		if frame.Err != nil {
			return Dataset{}, report, fmt.Errorf("drop identifier columns: %w", frame.Err)
		}
		schema.dropColumns(ids)
		report.DroppedColumns = ids
	}

	// Row-deletion policy for missing values: acceptable while the missing
	// fraction stays negligible; revisit (imputation) if it grows.
	keep := make([]int, 0, frame.Nrow())
	missing := make([]bool, frame.Nrow())
	for _, name := range frame.Names() {
		for i, isNaN := range frame.Col(name).IsNaN() {
			if isNaN {
				missing[i] = true
			}
		}
	}
	for i, m := range missing {
		if !m {
			keep = append(keep, i)
		}
	}
	report.RemovedRows = report.InputRows - len(keep)
	if report.RemovedRows > 0 {
		frame = frame.Subset(keep)
		if frame.Err != nil {
			return Dataset{}, report, fmt.Errorf("remove incomplete rows: %w", frame.Err)
		}
	}
	slog.Info("removed rows with missing values",
		"rows", report.RemovedRows,
		"fraction", fmt.Sprintf("%.4f", float64(report.RemovedRows)/float64(max(report.InputRows, 1))),
	)

	// Flag columns load as numbers but model as factors.
	for _, name := range opts.RecastCategorical {
		role, ok := schema.RoleOf(name)
		if !ok {
			return Dataset{}, report, fmt.Errorf("recast %q: %w", name, common.ErrMissingColumn)
		}
		if role != RoleNumeric {
			continue
		}
		col := frame.Col(name)
		frame = frame.Mutate(series.New(col.Records(), series.String, name))
		if frame.Err != nil {
			return Dataset{}, report, fmt.Errorf("recast %q: %w", name, frame.Err)
		}
		schema.setRole(name, RoleCategorical)
		report.RecastColumns = append(report.RecastColumns, name)
	}

	return Dataset{Frame: frame, Schema: schema}, report, nil
}
