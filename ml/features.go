package ml

import (
	"fmt"

	"github.com/samber/lo"
)

// TargetColumn is the label column of the training dataset.
const TargetColumn = "target"

// FeatureKind selects how a feature is preprocessed.
type FeatureKind int

const (
	Numeric FeatureKind = iota
	Categorical
)

// String returns the kind name.
func (k FeatureKind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// FeatureSpec describes one column of the feature vector.
type FeatureSpec struct {
	Name string
	Kind FeatureKind
}

// featureSpecs is the training/serving contract. Order matters: bundles
// record it and the service feeds vectors to the pipeline in this order.
var featureSpecs = []FeatureSpec{
	{Name: "age", Kind: Numeric},
	{Name: "sex", Kind: Numeric},
	{Name: "cp", Kind: Categorical},
	{Name: "trestbps", Kind: Numeric},
	{Name: "chol", Kind: Numeric},
	{Name: "fbs", Kind: Numeric},
	{Name: "restecg", Kind: Categorical},
	{Name: "thalach", Kind: Numeric},
	{Name: "exang", Kind: Numeric},
	{Name: "oldpeak", Kind: Numeric},
	{Name: "slope", Kind: Categorical},
	{Name: "ca", Kind: Numeric},
	{Name: "thal", Kind: Categorical},
}

// FeatureNames returns the feature names in trained order.
func FeatureNames() []string {
	return lo.Map(featureSpecs, func(s FeatureSpec, _ int) string { return s.Name })
}

// CategoricalFeatures returns the one-hot encoded features.
func CategoricalFeatures() []string {
	return featuresOfKind(Categorical)
}

// NumericFeatures returns the standardized features.
func NumericFeatures() []string {
	return featuresOfKind(Numeric)
}

func featuresOfKind(kind FeatureKind) []string {
	specs := lo.Filter(featureSpecs, func(s FeatureSpec, _ int) bool { return s.Kind == kind })
	return lo.Map(specs, func(s FeatureSpec, _ int) string { return s.Name })
}

// CheckFeatureOrder reports whether names is exactly the trained feature
// list, in the trained order.
func CheckFeatureOrder(names []string) error {
	expected := FeatureNames()
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate features %v", ErrFeatureMismatch, dups)
	}
	missing, extra := lo.Difference(expected, names)
	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("%w: missing %v, unexpected %v", ErrFeatureMismatch, missing, extra)
	}
	for i, name := range expected {
		if names[i] != name {
			return fmt.Errorf("%w: position %d is %q, want %q", ErrFeatureMismatch, i, names[i], name)
		}
	}
	return nil
}
