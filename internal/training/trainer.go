package training

import (
	"fmt"
	"log"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/pipeline"
)

// Config holds everything one training run needs
type Config struct {
	DataDir      string
	ModelPath    string
	Params       pipeline.Params
	Forest       ml.ForestConfig
	TestFraction float64
	SplitSeed    int64
}

// DefaultConfig returns the settings the shipped model was built with
func DefaultConfig() Config {
	return Config{
		DataDir:      "data",
		ModelPath:    "models/bicep_model.json",
		Params:       pipeline.DefaultParams(),
		Forest:       ml.DefaultForestConfig(),
		TestFraction: 0.25,
		SplitSeed:    42,
	}
}

// Result describes a completed training run
type Result struct {
	Samples  int
	Train    int
	Test     int
	Report   *Report
	Forest   *ml.RandomForest
	Features int
}

// Run builds the dataset, fits a forest on the training split, evaluates it
// on the held-out split and saves the model to cfg.ModelPath.
func Run(cfg Config) (*Result, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Training: building dataset from %s", cfg.DataDir)
	ds, err := BuildDataset(cfg.DataDir, cfg.Params)
	if err != nil {
		return nil, err
	}
	log.Printf("Training: total reps %d, features per rep %d", ds.Len(), len(ds.X[0]))

	train, test, err := StratifiedSplit(ds, cfg.TestFraction, cfg.SplitSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to split dataset: %w", err)
	}

	forest := ml.NewRandomForest(cfg.Forest)
	log.Printf("Training: fitting random forest (%d trees) on %d reps", forest.Config.NumTrees, train.Len())
	if err := forest.Fit(train.X, train.Y); err != nil {
		return nil, err
	}

	pred, err := forest.Predict(test.X)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}
	report, err := Evaluate(test.Y, pred)
	if err != nil {
		return nil, err
	}

	if err := ml.SaveModel(cfg.ModelPath, forest, cfg.Params); err != nil {
		return nil, err
	}

	return &Result{
		Samples:  ds.Len(),
		Train:    train.Len(),
		Test:     test.Len(),
		Report:   report,
		Forest:   forest,
		Features: len(ds.X[0]),
	}, nil
}
