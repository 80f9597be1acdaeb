package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"heartapi/ml"
	"heartapi/schema"
)

// heartCSV generates rows inside the request ranges so that holdout rows can
// be replayed through the service.
func heartCSV(n int, seed int64) string {
	rnd := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString(strings.Join(ml.FeatureNames(), ",") + ",target\n")
	for i := 0; i < n; i++ {
		age := 30 + rnd.Intn(45)
		sex := rnd.Intn(2)
		cp := rnd.Intn(4)
		trestbps := 100 + rnd.Intn(80)
		chol := 150 + rnd.Intn(200)
		fbs := rnd.Intn(2)
		restecg := rnd.Intn(3)
		thalach := 100 + rnd.Intn(100)
		exang := rnd.Intn(2)
		oldpeak := math.Round(rnd.Float64()*40) / 10
		slope := rnd.Intn(3)
		ca := rnd.Intn(5)
		thal := 1 + rnd.Intn(3)

		z := 0.06*float64(age-52) + 0.7*float64(cp) - 0.8*float64(exang) - 0.5*oldpeak + 0.02*float64(thalach-150) - 0.6*float64(ca) + 0.5
		target := 0
		if rnd.Float64() < 1/(1+math.Exp(-z)) {
			target = 1
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%d,%d,%d,%d,%.1f,%d,%d,%d,%d\n",
			age, sex, cp, trestbps, chol, fbs, restecg, thalach, exang, oldpeak, slope, ca, thal, target)
	}
	return b.String()
}

func inputFromRow(t *testing.T, row []float64) *schema.HeartInput {
	t.Helper()
	parts := make([]string, len(row))
	for i, name := range ml.FeatureNames() {
		if name == "oldpeak" {
			parts[i] = fmt.Sprintf("%q:%v", name, row[i])
		} else {
			parts[i] = fmt.Sprintf("%q:%d", name, int(row[i]))
		}
	}
	in, err := schema.Parse([]byte("{" + strings.Join(parts, ",") + "}"))
	require.NoError(t, err)
	return in
}

func TestServedBundleReproducesHoldout(t *testing.T) {
	req := require.New(t)

	ds, err := ml.ParseDataset(strings.NewReader(heartCSV(200, 11)), ml.ReadOptions{})
	req.NoError(err)
	result, err := ml.Train(ds, ml.DefaultTrainOptions())
	req.NoError(err)

	for _, name := range []string{"heart_model.json", "heart_model.msgpack"} {
		path := filepath.Join(t.TempDir(), "model", name)
		req.NoError(result.Bundle.Save(path))
		loaded, err := ml.LoadBundle(path)
		req.NoError(err)

		p, err := FromBundle(loaded, WithCacheSize(16))
		req.NoError(err)
		req.Equal("Pipeline", p.Info().ModelType)

		for i, row := range result.TestX {
			out, err := p.Predict(context.Background(), inputFromRow(t, row))
			req.NoError(err)
			want := result.TestProbabilities[i]
			req.Equal(Round4(want), out.Probability, "%s row %d", name, i)
			req.Equal(want >= 0.5, out.HeartDisease, "%s row %d", name, i)
		}
	}
}
