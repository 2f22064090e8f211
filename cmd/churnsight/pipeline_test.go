package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telmetric/churnsight/internal/config"
	"github.com/telmetric/churnsight/internal/evaluate"
	"github.com/telmetric/churnsight/internal/storage"
)

// writeChurnCSV generates a churn-like customer file: month-to-month
// customers with short tenure churn, everyone else stays.
func writeChurnCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("customerID,gender,SeniorCitizen,tenure,MonthlyCharges,TotalCharges,Contract,Churn\n")
	contracts := []string{"Month-to-month", "One year", "Two year"}
	genders := []string{"Female", "Male"}
	for i := 0; i < n; i++ {
		tenure := i % 60
		monthly := 20.0 + float64(i%80)
		contract := contracts[i%3]
		churn := "No"
		if contract == "Month-to-month" && tenure < 20 {
			churn = "Yes"
		}
		fmt.Fprintf(&b, "c-%04d,%s,%d,%d,%.2f,%.2f,%s,%s\n",
			i, genders[i%2], i%5/4, tenure, monthly, monthly*float64(tenure), contract, churn)
	}

	path := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func testConfig(t *testing.T, dataPath string) config.Pipeline {
	t.Helper()
	dir := t.TempDir()
	return config.Pipeline{
		DataPath:          dataPath,
		Target:            "Churn",
		Positive:          "Yes",
		Identifiers:       []string{"customerID"},
		RecastCategorical: []string{"SeniorCitizen"},
		Seed:              100,
		TrainFraction:     0.8,
		Threshold:         0.45,
		Folds:             3,
		Repeats:           1,
		Trees:             30,
		ExplainRows:       2,
		TopFeatures:       8,
		ExplainSamples:    300,
		ModelPath:         filepath.Join(dir, "model.gob"),
		BalancedModelPath: filepath.Join(dir, "model_balanced.gob"),
		PlotsDir:          filepath.Join(dir, "plots"),
		DBPath:            filepath.Join(dir, "runs.db"),
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end pipeline is slow")
	}
	cfg := testConfig(t, writeChurnCSV(t, 300))

	p, err := prepare(cfg, true)
	require.NoError(t, err)

	// Stratification holds on the untouched (pre-upsampling) test split.
	fullCounts, err := p.clean.LabelCounts()
	require.NoError(t, err)
	fullFrac := float64(fullCounts["Yes"]) / float64(p.clean.NumRows())
	testCounts, err := p.test.LabelCounts()
	require.NoError(t, err)
	testFrac := float64(testCounts["Yes"]) / float64(p.test.NumRows())
	assert.InDelta(t, fullFrac, testFrac, 1.0/float64(p.test.NumRows())+1e-9)

	// Upsampling balanced the train design.
	pos := p.trainDesign.Positives()
	assert.Equal(t, p.trainDesign.NumRows(), 2*pos)

	// Train once, then the artifact short-circuits retraining.
	model, err := trainModel(p)
	require.NoError(t, err)
	reloaded, err := loadOrTrain(p)
	require.NoError(t, err)
	assert.Equal(t, model.TrainedAt, reloaded.TrainedAt, "loadOrTrain should reuse the artifact")

	// The rule-generated labels are learnable almost perfectly.
	summary, err := evaluate.Evaluate(model, p.testDesign, cfg.Threshold)
	require.NoError(t, err)
	assert.Greater(t, summary.Matrix.Accuracy(), 0.9)
	assert.Greater(t, summary.Curve.AUC, 0.95)
	assert.Equal(t, p.testDesign.NumRows(), summary.Matrix.Total())

	// Runs land in the history database.
	require.NoError(t, recordRun(context.Background(), p, model, summary))
	store, err := storage.NewRunStore(cfg.DBPath)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()
	require.NoError(t, store.Migrate(context.Background()))
	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, cfg.Seed, runs[0].Seed)
	assert.True(t, runs[0].Balanced)
	assert.Equal(t, p.cleanReport.RemovedRows, runs[0].RemovedRows)
	assert.InDelta(t, summary.Curve.AUC, runs[0].AUC, 1e-12)
}

func TestPrepareDeterministicSplit(t *testing.T) {
	cfg := testConfig(t, writeChurnCSV(t, 120))

	a, err := prepare(cfg, false)
	require.NoError(t, err)
	b, err := prepare(cfg, false)
	require.NoError(t, err)

	assert.Equal(t, a.test.Frame.Records(), b.test.Frame.Records())
	assert.Equal(t, a.trainDesign.Y, b.trainDesign.Y)
}

func TestSampleRows(t *testing.T) {
	cfg := testConfig(t, writeChurnCSV(t, 120))
	p, err := prepare(cfg, false)
	require.NoError(t, err)

	rows := sampleRows(p.testDesign, 2, cfg.Seed)
	require.Len(t, rows, 2)
	assert.NotEqual(t, rows[0], rows[1])
	for _, r := range rows {
		assert.GreaterOrEqual(t, r, 0)
		assert.Less(t, r, p.testDesign.NumRows())
	}

	again := sampleRows(p.testDesign, 2, cfg.Seed)
	assert.Equal(t, rows, again)

	all := sampleRows(p.testDesign, p.testDesign.NumRows()+5, cfg.Seed)
	assert.Len(t, all, p.testDesign.NumRows())
}

func TestModelPathPicksVariant(t *testing.T) {
	cfg := config.Pipeline{ModelPath: "base.gob", BalancedModelPath: "balanced.gob"}
	assert.Equal(t, "base.gob", modelPath(cfg, false))
	assert.Equal(t, "balanced.gob", modelPath(cfg, true))
}

// TestRealDatasetScenario reproduces the stock workflow when the real telco
// export is present; CI environments without the file skip it.
func TestRealDatasetScenario(t *testing.T) {
	const path = "../../data/telco_churn.csv"
	if _, err := os.Stat(path); err != nil {
		t.Skipf("real dataset not present at %s", path)
	}
	if testing.Short() {
		t.Skip("real dataset training is slow")
	}

	cfg := testConfig(t, path)
	cfg.Folds = 5
	cfg.Repeats = 3
	cfg.Trees = 300

	p, err := prepare(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, 11, p.cleanReport.RemovedRows)
	assert.Equal(t, 7043, p.cleanReport.InputRows)

	fullCounts, err := p.clean.LabelCounts()
	require.NoError(t, err)
	churnFrac := float64(fullCounts["Yes"]) / float64(p.clean.NumRows())
	assert.InDelta(t, 0.265, churnFrac, 0.01)

	model, err := trainModel(p)
	require.NoError(t, err)
	summary, err := evaluate.Evaluate(model, p.testDesign, 0.45)
	require.NoError(t, err)

	// Library- and seed-dependent, so tolerance bands rather than equality.
	assert.InDelta(t, 0.985, summary.Matrix.Accuracy(), 0.03)
	assert.InDelta(t, 0.949, summary.Matrix.Recall(), 0.03)
	assert.InDelta(t, 0.992, summary.Curve.AUC, 0.03)
}
