package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"fitcoach-backend/internal/ml"
	"fitcoach-backend/internal/pipeline"
	"fitcoach-backend/pkg/config"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("[classify] ")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <session_dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	modelPath := flag.String("model", "", "model artifact (default $MODEL_PATH or models/bicep_model.json)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0), *modelPath))
}

func run(sessionDir, modelPath string) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	if modelPath == "" {
		modelPath = cfg.ModelPath
	}

	// Fail on missing inputs before touching the model
	if _, _, err := pipeline.SessionPaths(sessionDir); err != nil {
		var missing *pipeline.MissingFileError
		if errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "Missing file: %s\n", missing.Path)
			return 1
		}
		log.Printf("%v", err)
		return 1
	}

	predictor, err := ml.LoadPredictor(modelPath, cfg.Pipeline)
	if err != nil {
		if errors.Is(err, ml.ErrModelNotFound) {
			fmt.Fprintf(os.Stderr, "Model not found: %s (run the train command first)\n", modelPath)
			return 1
		}
		log.Printf("%v", err)
		return 1
	}

	table, err := pipeline.AlignSession(sessionDir, cfg.Pipeline)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	windows, err := pipeline.Segment(table, cfg.Pipeline.WindowSeconds, cfg.Pipeline.StepSeconds)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	if len(windows) == 0 {
		fmt.Println("No reps detected.")
		return 0
	}

	matrix, err := pipeline.ExtractAll(table, windows)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	preds, err := predictor.ClassifyAll(matrix)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	for i, p := range preds {
		fmt.Printf("Rep %02d: %s (confidence %.2f)\n", i+1, p.Label, p.Confidence)
	}
	return 0
}
