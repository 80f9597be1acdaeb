package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"heartapi/config"
	"heartapi/logging"
	"heartapi/ml"
	"heartapi/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	dataPath := flag.String("data", config.DefaultDataPath, "training dataset")
	outPath := flag.String("out", config.DefaultBundlePath, "bundle output path")
	testRatio := flag.Float64("test_ratio", ml.DefaultTestRatio, "holdout ratio")
	seed := flag.Int64("seed", ml.DefaultSeed, "split seed")
	maxIter := flag.Int("max_iter", ml.DefaultMaxIter, "solver iteration cap")
	history := flag.Int("history", 0, "print the last N training runs and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// Flags given explicitly win over the config file and the environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.DataPath = *dataPath
		case "out":
			cfg.OutPath = *outPath
		case "test_ratio":
			cfg.Training.TestRatio = *testRatio
		case "seed":
			cfg.Training.Seed = *seed
		case "max_iter":
			cfg.Training.MaxIter = *maxIter
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.MustNewLogger(cfg.Environment, cfg.Log)
	defer logger.Sync()

	if *history > 0 {
		if err := printHistory(cfg.Training.DBPath, *history); err != nil {
			logger.Fatal("failed to read training history", zap.Error(err))
		}
		return
	}

	ds, err := ml.ReadDataset(cfg.DataPath, ml.ReadOptions{Encoding: cfg.Training.Encoding})
	if err != nil {
		logger.Fatal("failed to read dataset", zap.String("path", cfg.DataPath), zap.Error(err))
	}
	logger.Info("dataset loaded",
		zap.String("path", cfg.DataPath),
		zap.Int("rows", len(ds.X)),
		zap.Strings("numeric", ml.NumericFeatures()),
		zap.Strings("categorical", ml.CategoricalFeatures()))

	result, err := ml.Train(ds, ml.TrainOptions{
		TestRatio: cfg.Training.TestRatio,
		Seed:      cfg.Training.Seed,
		MaxIter:   cfg.Training.MaxIter,
		C:         cfg.Training.C,
	})
	if err != nil {
		logger.Fatal("failed to train model", zap.Error(err))
	}
	classifier := result.Bundle.Model.Classifier
	if !classifier.Converged {
		logger.Warn("solver hit the iteration cap", zap.Int("max_iter", classifier.MaxIter))
	}
	logger.Info("model trained",
		zap.Int("train_rows", result.Bundle.Metadata.TrainRows),
		zap.Int("test_rows", result.Bundle.Metadata.TestRows),
		zap.Int("iterations", classifier.NIter))

	bundlePath := cfg.BundleOutput()
	if err := result.Bundle.Save(bundlePath); err != nil {
		logger.Fatal("failed to save bundle", zap.String("path", bundlePath), zap.Error(err))
	}

	writeReport(os.Stdout, result.Evaluation)
	fmt.Printf("Validation accuracy: %.4f\n", result.Evaluation.Accuracy)
	fmt.Printf("Saved model to %s\n", bundlePath)

	if cfg.Training.DBPath != "" {
		if err := recordRun(cfg.Training.DBPath, bundlePath, result); err != nil {
			logger.Warn("failed to record training run", zap.String("db", cfg.Training.DBPath), zap.Error(err))
		}
	}
}

func recordRun(dbPath, bundlePath string, result *ml.TrainResult) error {
	runs, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer runs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	meta := result.Bundle.Metadata
	_, err = runs.Record(ctx, store.TrainingRun{
		ModelType:  ml.ModelType(result.Bundle.Model),
		Dataset:    meta.Dataset,
		BundlePath: bundlePath,
		Accuracy:   result.Evaluation.Accuracy,
		Precision:  result.Evaluation.Precision,
		Recall:     result.Evaluation.Recall,
		F1:         result.Evaluation.F1,
		TrainRows:  meta.TrainRows,
		TestRows:   meta.TestRows,
		Iterations: result.Bundle.Model.Classifier.NIter,
		TrainedAt:  meta.CreatedAt,
	})
	return err
}

func printHistory(dbPath string, limit int) error {
	if dbPath == "" {
		return fmt.Errorf("training.db_path is not configured")
	}
	runs, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer runs.Close()

	recent, err := runs.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	writeHistory(os.Stdout, recent)
	return nil
}
