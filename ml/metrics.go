package ml

// Evaluation summarizes holdout performance. Only diagnostic: nothing in
// training branches on it.
type Evaluation struct {
	Samples        int     `json:"samples"`
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
}

// Evaluate scores every row and returns the metrics together with the raw
// probabilities, in row order.
func Evaluate(model Scorer, X [][]float64, y []int) (Evaluation, []float64, error) {
	var ev Evaluation
	probs := make([]float64, len(X))
	for i, row := range X {
		prob, err := model.Score(row)
		if err != nil {
			return Evaluation{}, nil, err
		}
		probs[i] = prob
		predicted := Classify(prob)
		actual := y[i] == 1
		switch {
		case predicted && actual:
			ev.TruePositives++
		case predicted && !actual:
			ev.FalsePositives++
		case !predicted && actual:
			ev.FalseNegatives++
		default:
			ev.TrueNegatives++
		}
	}

	ev.Samples = len(X)
	if ev.Samples == 0 {
		return ev, probs, nil
	}
	ev.Accuracy = float64(ev.TruePositives+ev.TrueNegatives) / float64(ev.Samples)
	if predictedPositive := ev.TruePositives + ev.FalsePositives; predictedPositive > 0 {
		ev.Precision = float64(ev.TruePositives) / float64(predictedPositive)
	}
	if actualPositive := ev.TruePositives + ev.FalseNegatives; actualPositive > 0 {
		ev.Recall = float64(ev.TruePositives) / float64(actualPositive)
	}
	if ev.Precision+ev.Recall > 0 {
		ev.F1 = 2 * ev.Precision * ev.Recall / (ev.Precision + ev.Recall)
	}
	return ev, probs, nil
}
