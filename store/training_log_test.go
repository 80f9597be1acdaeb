package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrainingLogRecordAndRecent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	log, err := Open(filepath.Join(t.TempDir(), "nested", "training.db"))
	req.NoError(err)
	defer log.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id, err := log.Record(ctx, TrainingRun{
			ModelType:  "Pipeline",
			Dataset:    "data/heart.csv",
			BundlePath: "model/heart_model.json",
			Accuracy:   0.8 + float64(i)/100,
			TrainRows:  242,
			TestRows:   61,
			Iterations: 6,
			TrainedAt:  base.Add(time.Duration(i) * time.Hour),
		})
		req.NoError(err)
		req.EqualValues(i+1, id)
	}

	runs, err := log.Recent(ctx, 2)
	req.NoError(err)
	req.Len(runs, 2)
	req.EqualValues(3, runs[0].ID)
	req.InDelta(0.82, runs[0].Accuracy, 1e-12)
	req.True(runs[0].TrainedAt.Equal(base.Add(2*time.Hour)))
	req.EqualValues(2, runs[1].ID)
	req.Equal(61, runs[1].TestRows)

	all, err := log.Recent(ctx, 0)
	req.NoError(err)
	req.Len(all, 3)
}

func TestTrainingLogReopen(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "training.db")

	log, err := Open(path)
	req.NoError(err)
	_, err = log.Record(context.Background(), TrainingRun{ModelType: "Pipeline", Dataset: "a.csv", BundlePath: "b.json"})
	req.NoError(err)
	req.NoError(log.Close())

	log, err = Open(path)
	req.NoError(err)
	defer log.Close()
	runs, err := log.Recent(context.Background(), 10)
	req.NoError(err)
	req.Len(runs, 1)
	req.False(runs[0].TrainedAt.IsZero())

	_, err = Open("")
	req.Error(err)
}
