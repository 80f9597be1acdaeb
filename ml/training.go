package ml

import (
	"fmt"
	"time"
)

// TrainOptions configures a training run.
type TrainOptions struct {
	TestRatio float64
	Seed      int64
	MaxIter   int
	C         float64
}

// DefaultTrainOptions returns the standard split and solver settings.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		TestRatio: DefaultTestRatio,
		Seed:      DefaultSeed,
		MaxIter:   DefaultMaxIter,
		C:         DefaultC,
	}
}

// withDefaults replaces unset or out of range options with the defaults.
// A zero seed is a valid seed and is kept.
func (o TrainOptions) withDefaults() TrainOptions {
	defaults := DefaultTrainOptions()
	if o.TestRatio <= 0 || o.TestRatio >= 1 {
		o.TestRatio = defaults.TestRatio
	}
	if o.MaxIter <= 0 {
		o.MaxIter = defaults.MaxIter
	}
	if o.C <= 0 {
		o.C = defaults.C
	}
	return o
}

// TrainResult is the outcome of one run. TestProbabilities are computed from
// the in-memory pipeline right after fitting, before anything is persisted.
type TrainResult struct {
	Bundle            *Bundle
	Evaluation        Evaluation
	TestX             [][]float64
	TestY             []int
	TestProbabilities []float64
}

// Train splits the dataset, fits the pipeline on the training part and
// evaluates it on the holdout part.
func Train(ds *Dataset, opts TrainOptions) (*TrainResult, error) {
	if ds == nil || len(ds.X) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := CheckFeatureOrder(ds.Features); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	trainIdx, testIdx, err := StratifiedSplit(ds.Y, opts.TestRatio, opts.Seed)
	if err != nil {
		return nil, err
	}
	trainX, trainY := ds.Rows(trainIdx)
	testX, testY := ds.Rows(testIdx)

	pipeline := NewPipeline(ds.Features, CategoricalFeatures(), NewLogisticRegression(opts.C, opts.MaxIter))
	if err := pipeline.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	evaluation, probs, err := Evaluate(pipeline, testX, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}

	bundle := &Bundle{
		Model:    pipeline,
		Features: append([]string(nil), ds.Features...),
		Metadata: Metadata{
			Version:    BundleVersion,
			CreatedAt:  time.Now().UTC(),
			Dataset:    ds.Source,
			TrainRows:  len(trainIdx),
			TestRows:   len(testIdx),
			Seed:       opts.Seed,
			TestRatio:  opts.TestRatio,
			Evaluation: evaluation,
		},
	}
	return &TrainResult{
		Bundle:            bundle,
		Evaluation:        evaluation,
		TestX:             testX,
		TestY:             testY,
		TestProbabilities: probs,
	}, nil
}
