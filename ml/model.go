package ml

import "reflect"

// PositiveThreshold is the probability at or above which a row is classified
// as disease present.
const PositiveThreshold = 0.5

// Scorer turns a feature vector, ordered as the model was trained, into the
// positive class probability.
type Scorer interface {
	Score(features []float64) (float64, error)
}

// Classify reports whether probability counts as disease present.
func Classify(probability float64) bool {
	return probability >= PositiveThreshold
}

// ModelType names the concrete model behind a Scorer.
func ModelType(s Scorer) string {
	if typed, ok := s.(interface{ ModelType() string }); ok {
		return typed.ModelType()
	}
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
