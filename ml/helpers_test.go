package ml

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type scoreFunc func(features []float64) (float64, error)

func (f scoreFunc) Score(features []float64) (float64, error) {
	return f(features)
}

// syntheticDataset draws rows with realistic ranges and labels from a known
// logistic relationship, so a fitted model has something to find.
func syntheticDataset(n int, seed int64) *Dataset {
	rnd := rand.New(rand.NewSource(seed))
	ds := &Dataset{Source: "synthetic", Features: FeatureNames()}
	for i := 0; i < n; i++ {
		age := float64(29 + rnd.Intn(48))
		sex := float64(rnd.Intn(2))
		cp := float64(rnd.Intn(4))
		trestbps := float64(94 + rnd.Intn(106))
		chol := float64(126 + rnd.Intn(300))
		fbs := float64(rnd.Intn(2))
		restecg := float64(rnd.Intn(3))
		thalach := float64(71 + rnd.Intn(131))
		exang := float64(rnd.Intn(2))
		oldpeak := float64(rnd.Intn(62)) / 10
		slope := float64(rnd.Intn(3))
		ca := float64(rnd.Intn(5))
		thal := float64(1 + rnd.Intn(3))

		z := 0.06*(age-54) + 0.9*sex - 0.7*cp + 1.2*exang + 0.8*oldpeak -
			0.04*(thalach-150) + 0.7*ca - 4.3
		label := 0
		if rnd.Float64() < sigmoid(z) {
			label = 1
		}

		if i%17 == 5 {
			ca = math.NaN()
		}
		if i%23 == 7 {
			thal = math.NaN()
		}
		ds.X = append(ds.X, []float64{age, sex, cp, trestbps, chol, fbs, restecg, thalach, exang, oldpeak, slope, ca, thal})
		ds.Y = append(ds.Y, label)
	}
	return ds
}

func trainSynthetic(t testing.TB) *TrainResult {
	t.Helper()
	result, err := Train(syntheticDataset(300, 7), DefaultTrainOptions())
	require.NoError(t, err)
	return result
}

func exampleRow() []float64 {
	return []float64{63, 1, 3, 145, 233, 1, 0, 150, 0, 2.3, 0, 0, 1}
}
