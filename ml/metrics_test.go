package ml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	req := require.New(t)
	// The single feature is the probability the stub returns.
	model := scoreFunc(func(x []float64) (float64, error) { return x[0], nil })
	X := [][]float64{{0.9}, {0.5}, {0.2}, {0.7}, {0.1}}
	y := []int{1, 0, 0, 0, 1}

	ev, probs, err := Evaluate(model, X, y)
	req.NoError(err)
	req.Equal([]float64{0.9, 0.5, 0.2, 0.7, 0.1}, probs)
	req.Equal(5, ev.Samples)
	req.Equal(1, ev.TruePositives)
	req.Equal(2, ev.FalsePositives)
	req.Equal(1, ev.TrueNegatives)
	req.Equal(1, ev.FalseNegatives)
	req.InDelta(0.4, ev.Accuracy, 1e-12)
	req.InDelta(1.0/3, ev.Precision, 1e-12)
	req.InDelta(0.5, ev.Recall, 1e-12)
	req.InDelta(0.4, ev.F1, 1e-12)
}

func TestEvaluateEdgeCases(t *testing.T) {
	req := require.New(t)
	negative := scoreFunc(func([]float64) (float64, error) { return 0.1, nil })

	ev, _, err := Evaluate(negative, [][]float64{{0}, {0}}, []int{0, 0})
	req.NoError(err)
	req.Equal(1.0, ev.Accuracy)
	req.Zero(ev.Precision)
	req.Zero(ev.Recall)
	req.Zero(ev.F1)

	ev, _, err = Evaluate(negative, nil, nil)
	req.NoError(err)
	req.Zero(ev.Samples)

	failing := scoreFunc(func([]float64) (float64, error) { return 0, errors.New("boom") })
	_, _, err = Evaluate(failing, [][]float64{{0}}, []int{0})
	req.ErrorContains(err, "boom")
}
