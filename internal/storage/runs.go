package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/telmetric/churnsight/internal/common"
)

// Run is one recorded evaluation: the inputs that produced it and every
// metric it computed.
type Run struct {
	CreatedAt   time.Time
	DataPath    string
	ModelPath   string
	ID          int64
	Seed        int64
	Threshold   float64
	TrainRows   int
	TestRows    int
	RemovedRows int
	CVAccuracy  float64
	Mtry        int
	Accuracy    float64
	Recall      float64
	Specificity float64
	Precision   float64
	F1          float64
	AUC         float64
	Balanced    bool
}

// SaveRun appends one evaluation run to the history and returns its ID.
func (s *RunStore) SaveRun(ctx context.Context, run *Run) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if run == nil {
		return 0, fmt.Errorf("run cannot be nil")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			created_at, data_path, model_path, balanced, seed, threshold,
			train_rows, test_rows, removed_rows, cv_accuracy, mtry,
			accuracy, recall, specificity, precision, f1, auc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.DataPath, run.ModelPath, run.Balanced, run.Seed, run.Threshold,
		run.TrainRows, run.TestRows, run.RemovedRows, run.CVAccuracy, run.Mtry,
		run.Accuracy, run.Recall, run.Specificity, run.Precision, run.F1, run.AUC,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// everything.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, created_at, data_path, model_path, balanced, seed, threshold,
			train_rows, test_rows, removed_rows, cv_accuracy, mtry,
			accuracy, recall, specificity, precision, f1, auc
		FROM runs
		ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.DataPath, &r.ModelPath, &r.Balanced, &r.Seed, &r.Threshold,
			&r.TrainRows, &r.TestRows, &r.RemovedRows, &r.CVAccuracy, &r.Mtry,
			&r.Accuracy, &r.Recall, &r.Specificity, &r.Precision, &r.F1, &r.AUC,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// LatestRun returns the newest recorded run, or common.ErrNotFound when the
// history is empty.
func (s *RunStore) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run history is empty: %w", common.ErrNotFound)
	}
	return &runs[0], nil
}

// GetRun returns one run by ID.
func (s *RunStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, data_path, model_path, balanced, seed, threshold,
			train_rows, test_rows, removed_rows, cv_accuracy, mtry,
			accuracy, recall, specificity, precision, f1, auc
		FROM runs WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.CreatedAt, &r.DataPath, &r.ModelPath, &r.Balanced, &r.Seed, &r.Threshold,
		&r.TrainRows, &r.TestRows, &r.RemovedRows, &r.CVAccuracy, &r.Mtry,
		&r.Accuracy, &r.Recall, &r.Specificity, &r.Precision, &r.F1, &r.AUC,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", id, err)
	}
	return &r, nil
}
