package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/telmetric/churnsight/internal/common"
	"github.com/telmetric/churnsight/internal/config"
	"github.com/telmetric/churnsight/internal/dataset"
	"github.com/telmetric/churnsight/internal/evaluate"
	"github.com/telmetric/churnsight/internal/storage"
	"github.com/telmetric/churnsight/internal/trainer"
)

// prepared carries the dataset artifacts shared by every command: the
// cleaned frame, its split, and the encoded designs. The encoder is fitted
// once on the cleaned dataset so both designs agree on levels.
type prepared struct {
	cfg         config.Pipeline
	clean       dataset.Dataset
	cleanReport dataset.CleanReport
	train       dataset.Dataset
	test        dataset.Dataset
	encoder     *dataset.Encoder
	trainDesign *dataset.Design
	testDesign  *dataset.Design
	balanced    bool
}

// prepare runs load → clean → split (→ upsample) → encode. Re-running with
// the same config and seed reproduces the identical partition, which is how
// evaluate/explain recover the split a saved model was trained against.
func prepare(cfg config.Pipeline, balance bool) (*prepared, error) {
	ds, err := dataset.Load(cfg.DataPath, dataset.Options{
		Target:      cfg.Target,
		Positive:    cfg.Positive,
		Identifiers: cfg.Identifiers,
	})
	if err != nil {
		return nil, common.NewUserError("failed to load dataset", err)
	}

	clean, cleanReport, err := dataset.Clean(ds, dataset.CleanOptions{
		RecastCategorical: cfg.RecastCategorical,
	})
	if err != nil {
		return nil, common.NewUserError("failed to clean dataset", err)
	}

	encoder, err := dataset.NewEncoder(clean, cfg.Positive)
	if err != nil {
		return nil, common.NewUserError("failed to fit encoder", err)
	}

	train, test, err := dataset.StratifiedSplit(clean, cfg.TrainFraction, cfg.Seed)
	if err != nil {
		return nil, common.NewUserError("failed to split dataset", err)
	}
	if balance {
		train, err = dataset.Upsample(train, cfg.Seed)
		if err != nil {
			return nil, common.NewUserError("failed to upsample train set", err)
		}
	}

	trainDesign, err := encoder.Design(train)
	if err != nil {
		return nil, common.NewUserError("failed to encode train set", err)
	}
	testDesign, err := encoder.Design(test)
	if err != nil {
		return nil, common.NewUserError("failed to encode test set", err)
	}

	return &prepared{
		cfg:         cfg,
		clean:       clean,
		cleanReport: cleanReport,
		train:       train,
		test:        test,
		encoder:     encoder,
		trainDesign: trainDesign,
		testDesign:  testDesign,
		balanced:    balance,
	}, nil
}

// modelPath picks the artifact path for the requested training variant.
func modelPath(cfg config.Pipeline, balance bool) string {
	if balance {
		return cfg.BalancedModelPath
	}
	return cfg.ModelPath
}

// trainModel fits the cross-validated model on the prepared train design
// and saves the artifact.
func trainModel(p *prepared) (*trainer.Model, error) {
	model, err := trainer.Train(p.trainDesign, trainer.Config{
		Progress: os.Stderr,
		Trees:    p.cfg.Trees,
		Folds:    p.cfg.Folds,
		Repeats:  p.cfg.Repeats,
		Seed:     p.cfg.Seed,
		Balanced: p.balanced,
	})
	if err != nil {
		return nil, common.NewUserError("training failed", err)
	}

	path := modelPath(p.cfg, p.balanced)
	if err := model.Save(path); err != nil {
		return nil, common.NewUserError("failed to save model artifact", err)
	}
	slog.Info("saved model artifact", "path", path, "balanced", p.balanced)
	return model, nil
}

// loadOrTrain reuses a saved artifact when one exists; training takes
// minutes, retraining on every run is the failure mode artifacts prevent.
func loadOrTrain(p *prepared) (*trainer.Model, error) {
	path := modelPath(p.cfg, p.balanced)
	model, err := trainer.LoadModel(path)
	switch {
	case err == nil:
		if compatErr := model.Compatible(p.testDesign); compatErr != nil {
			return nil, common.NewUserError(
				fmt.Sprintf("saved model at %s does not match the current dataset; retrain", path), compatErr)
		}
		slog.Info("loaded model artifact", "path", path, "trained_at", model.TrainedAt)
		return model, nil
	case errors.Is(err, os.ErrNotExist):
		slog.Info("no model artifact found, training", "path", path)
		return trainModel(p)
	default:
		return nil, common.NewUserError("failed to load model artifact", err)
	}
}

// sampleRows draws n distinct test-design rows for explanation, seeded so
// repeated runs explain the same customers.
func sampleRows(d *dataset.Design, n int, seed int64) []int {
	if n > d.NumRows() {
		n = d.NumRows()
	}
	rnd := rand.New(rand.NewSource(seed))
	rows := rnd.Perm(d.NumRows())[:n]
	sort.Ints(rows)
	return rows
}

// recordRun appends the evaluation outcome to the run history database.
func recordRun(ctx context.Context, p *prepared, model *trainer.Model, summary evaluate.Summary) error {
	store, err := storage.NewRunStore(p.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate run history: %w", err)
	}

	m := summary.Matrix
	id, err := store.SaveRun(ctx, &storage.Run{
		DataPath:    p.cfg.DataPath,
		ModelPath:   modelPath(p.cfg, p.balanced),
		Balanced:    p.balanced,
		Seed:        p.cfg.Seed,
		Threshold:   summary.Threshold,
		TrainRows:   p.trainDesign.NumRows(),
		TestRows:    summary.TestRows,
		RemovedRows: p.cleanReport.RemovedRows,
		CVAccuracy:  model.CVAccuracy,
		Mtry:        model.Mtry,
		Accuracy:    m.Accuracy(),
		Recall:      m.Recall(),
		Specificity: m.Specificity(),
		Precision:   m.Precision(),
		F1:          m.F1(),
		AUC:         summary.Curve.AUC,
	})
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	slog.Info("recorded evaluation run", "id", id, "threshold", summary.Threshold)
	return nil
}

// pipelineConfig loads the config and applies per-command flag overrides.
func pipelineConfig(cmd *cobra.Command) (config.Pipeline, error) {
	cfg, err := config.LoadPipeline()
	if err != nil {
		return config.Pipeline{}, err
	}
	if cmd.Flags().Changed("data") {
		cfg.DataPath, _ = cmd.Flags().GetString("data")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	return cfg, nil
}

// commonFlags registers the flags shared by every pipeline command.
func commonFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "path to the customer CSV (overrides config)")
	cmd.Flags().Int64("seed", 0, "random seed driving split, upsampling and training (overrides config)")
}
