package ml

import (
	"fmt"

	"github.com/samber/lo"
)

var _ Scorer = (*Pipeline)(nil)

// Pipeline chains the column preprocessor and the classifier. Its input is a
// raw feature vector in Features order.
type Pipeline struct {
	Features     []string            `json:"features"`
	Categorical  []string            `json:"categorical"`
	Preprocessor *Preprocessor       `json:"preprocessor"`
	Classifier   *LogisticRegression `json:"classifier"`
}

// NewPipeline creates an unfitted pipeline. A nil classifier uses the defaults.
func NewPipeline(features, categorical []string, classifier *LogisticRegression) *Pipeline {
	if classifier == nil {
		classifier = NewLogisticRegression(DefaultC, DefaultMaxIter)
	}
	return &Pipeline{
		Features:     append([]string(nil), features...),
		Categorical:  append([]string(nil), categorical...),
		Preprocessor: &Preprocessor{},
		Classifier:   classifier,
	}
}

// ModelType names the pipeline in /info.
func (p *Pipeline) ModelType() string {
	return "Pipeline"
}

// Fit fits the preprocessor and then the classifier on raw rows.
func (p *Pipeline) Fit(X [][]float64, y []int) error {
	if unknown := lo.Without(p.Categorical, p.Features...); len(unknown) > 0 {
		return fmt.Errorf("categorical columns %v are not features", unknown)
	}
	if err := p.Preprocessor.Fit(p.Features, p.Categorical, X); err != nil {
		return fmt.Errorf("fit preprocessor: %w", err)
	}
	transformed := make([][]float64, len(X))
	for i, row := range X {
		out, err := p.Preprocessor.Transform(row)
		if err != nil {
			return err
		}
		transformed[i] = out
	}
	if err := p.Classifier.Fit(transformed, y); err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}
	return nil
}

// Score returns the positive class probability of one raw row.
func (p *Pipeline) Score(x []float64) (float64, error) {
	if p.Preprocessor == nil || p.Classifier == nil {
		return 0, ErrNotFitted
	}
	transformed, err := p.Preprocessor.Transform(x)
	if err != nil {
		return 0, err
	}
	return p.Classifier.PredictProba(transformed)
}

func (p *Pipeline) validate() error {
	if p.Preprocessor == nil || p.Classifier == nil {
		return ErrNotFitted
	}
	if p.Preprocessor.Width != len(p.Features) {
		return fmt.Errorf("preprocessor expects %d inputs, pipeline has %d features", p.Preprocessor.Width, len(p.Features))
	}
	if len(p.Classifier.Coef) != p.Preprocessor.OutputWidth() {
		return fmt.Errorf("classifier has %d coefficients, preprocessor produces %d columns", len(p.Classifier.Coef), p.Preprocessor.OutputWidth())
	}
	for _, c := range p.Preprocessor.Numeric {
		if c.Index < 0 || c.Index >= p.Preprocessor.Width || c.Scale == 0 {
			return fmt.Errorf("numeric column %s is malformed", c.Name)
		}
	}
	for _, c := range p.Preprocessor.Categorical {
		if c.Index < 0 || c.Index >= p.Preprocessor.Width {
			return fmt.Errorf("categorical column %s is malformed", c.Name)
		}
	}
	return nil
}
