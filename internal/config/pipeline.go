package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Pipeline holds every knob of the churn pipeline. All values come from
// Viper (config file, CHURNSIGHT_* environment variables, or flags) on top
// of the defaults below, so the seed and every stock constant stay
// reproducible yet overridable.
type Pipeline struct {
	DataPath          string
	Target            string
	Positive          string
	Identifiers       []string
	RecastCategorical []string
	Seed              int64
	TrainFraction     float64
	Threshold         float64
	Folds             int
	Repeats           int
	Trees             int
	ExplainRows       int
	TopFeatures       int
	ExplainSamples    int
	ModelPath         string
	BalancedModelPath string
	PlotsDir          string
	DBPath            string
}

// SetDefaults registers the stock workflow's constants with Viper. Called
// once from the CLI before any config is read.
func SetDefaults() {
	viper.SetDefault("data.path", "data/telco_churn.csv")
	viper.SetDefault("data.target", "Churn")
	viper.SetDefault("data.positive", "Yes")
	viper.SetDefault("data.identifiers", []string{"customerID"})
	viper.SetDefault("data.recast_categorical", []string{"SeniorCitizen"})

	viper.SetDefault("pipeline.seed", 100)
	viper.SetDefault("pipeline.train_fraction", 0.8)
	viper.SetDefault("pipeline.threshold", 0.45)

	viper.SetDefault("training.folds", 5)
	viper.SetDefault("training.repeats", 3)
	viper.SetDefault("training.trees", 300)

	viper.SetDefault("explain.rows", 2)
	viper.SetDefault("explain.top_features", 8)
	viper.SetDefault("explain.samples", 2000)

	viper.SetDefault("artifacts.model_path", "artifacts/churn_model.gob")
	viper.SetDefault("artifacts.balanced_model_path", "artifacts/churn_model_balanced.gob")
	viper.SetDefault("artifacts.plots_dir", "artifacts/plots")
	viper.SetDefault("artifacts.db_path", "artifacts/runs.db")
}

// LoadPipeline reads the pipeline configuration from Viper and validates
// the ranges that would otherwise fail deep inside a stage.
func LoadPipeline() (Pipeline, error) {
	p := Pipeline{
		DataPath:          ExpandPath(viper.GetString("data.path")),
		Target:            viper.GetString("data.target"),
		Positive:          viper.GetString("data.positive"),
		Identifiers:       viper.GetStringSlice("data.identifiers"),
		RecastCategorical: viper.GetStringSlice("data.recast_categorical"),
		Seed:              viper.GetInt64("pipeline.seed"),
		TrainFraction:     viper.GetFloat64("pipeline.train_fraction"),
		Threshold:         viper.GetFloat64("pipeline.threshold"),
		Folds:             viper.GetInt("training.folds"),
		Repeats:           viper.GetInt("training.repeats"),
		Trees:             viper.GetInt("training.trees"),
		ExplainRows:       viper.GetInt("explain.rows"),
		TopFeatures:       viper.GetInt("explain.top_features"),
		ExplainSamples:    viper.GetInt("explain.samples"),
		ModelPath:         ExpandPath(viper.GetString("artifacts.model_path")),
		BalancedModelPath: ExpandPath(viper.GetString("artifacts.balanced_model_path")),
		PlotsDir:          ExpandPath(viper.GetString("artifacts.plots_dir")),
		DBPath:            ExpandPath(viper.GetString("artifacts.db_path")),
	}

	if p.Target == "" {
		return Pipeline{}, fmt.Errorf("data.target cannot be empty")
	}
	if p.Positive == "" {
		return Pipeline{}, fmt.Errorf("data.positive cannot be empty")
	}
	if p.TrainFraction <= 0 || p.TrainFraction >= 1 {
		return Pipeline{}, fmt.Errorf("pipeline.train_fraction %v must be in (0, 1)", p.TrainFraction)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return Pipeline{}, fmt.Errorf("pipeline.threshold %v must be in [0, 1]", p.Threshold)
	}
	return p, nil
}
