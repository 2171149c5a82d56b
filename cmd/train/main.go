package main

import (
	"flag"
	"fmt"
	"log"

	"fitcoach-backend/internal/training"
	"fitcoach-backend/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[train] ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tc := training.DefaultConfig()
	flag.StringVar(&tc.DataDir, "data", cfg.DataDir, "directory holding correct/ and incorrect/ sessions")
	flag.StringVar(&tc.ModelPath, "out", cfg.ModelPath, "where to write the model artifact")
	flag.IntVar(&tc.Forest.NumTrees, "trees", tc.Forest.NumTrees, "number of trees")
	flag.Int64Var(&tc.Forest.Seed, "seed", tc.Forest.Seed, "random seed for the forest")
	flag.Float64Var(&tc.TestFraction, "test-size", tc.TestFraction, "held-out fraction per class")
	flag.Parse()
	tc.Params = cfg.Pipeline

	result, err := training.Run(tc)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	fmt.Printf("Total reps: %d\n", result.Samples)
	fmt.Printf("Features per rep: %d\n", result.Features)
	fmt.Printf("Train/test: %d/%d\n\n", result.Train, result.Test)
	fmt.Print(result.Report)
	fmt.Printf("\nModel saved to %s\n", tc.ModelPath)
}
