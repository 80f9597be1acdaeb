package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"heartapi/ml"
	"heartapi/schema"
)

var (
	// ErrInference means a validated input could not be scored. Under a
	// correct deployment this does not happen.
	ErrInference = errors.New("inference failed")
)

// Predictor serves one immutable model for the lifetime of the process. It
// holds no mutable state besides the result cache, which is safe for
// concurrent use.
type Predictor struct {
	scorer    ml.Scorer
	features  []string
	modelType string
	cache     *lru.Cache[string, schema.PredictionOutput]
	logger    *zap.Logger
}

// Option configures a Predictor.
type Option func(*options)

type options struct {
	cacheSize int
	logger    *zap.Logger
	modelType string
}

// WithCacheSize keeps the last n predictions. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithLogger sets the logger for scoring failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithModelType overrides the model name reported by Info.
func WithModelType(name string) Option {
	return func(o *options) { o.modelType = name }
}

// NewPredictor checks that features is exactly the request schema's field
// set before accepting the scorer. A mismatch is refused rather than
// reordered on a best-effort basis.
func NewPredictor(scorer ml.Scorer, features []string, opts ...Option) (*Predictor, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if err := checkContract(features); err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.modelType == "" {
		o.modelType = ml.ModelType(scorer)
	}

	p := &Predictor{
		scorer:    scorer,
		features:  append([]string(nil), features...),
		modelType: o.modelType,
		logger:    o.logger,
	}
	if o.cacheSize > 0 {
		cache, err := lru.New[string, schema.PredictionOutput](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// FromBundle serves the bundle's pipeline in the bundle's feature order.
func FromBundle(b *ml.Bundle, opts ...Option) (*Predictor, error) {
	if b == nil || b.Model == nil {
		return nil, ml.ErrInvalidBundle
	}
	return NewPredictor(b.Model, b.Features, opts...)
}

func checkContract(features []string) error {
	fields := schema.FieldNames()
	if dups := lo.FindDuplicates(features); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate features %v", ml.ErrFeatureMismatch, dups)
	}
	missing, extra := lo.Difference(fields, features)
	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("%w: model lacks %v, request schema lacks %v", ml.ErrFeatureMismatch, missing, extra)
	}
	return nil
}

// Predict validates the input, orders it as the model was trained and
// classifies it. Identical inputs always give identical outputs.
func (p *Predictor) Predict(ctx context.Context, in *schema.HeartInput) (schema.PredictionOutput, error) {
	if err := ctx.Err(); err != nil {
		return schema.PredictionOutput{}, err
	}
	if in == nil {
		return schema.PredictionOutput{}, errors.New("input is required")
	}
	if err := in.Validate(); err != nil {
		return schema.PredictionOutput{}, err
	}

	vector, err := p.vector(in.Values())
	if err != nil {
		return schema.PredictionOutput{}, err
	}

	key := cacheKey(vector)
	if p.cache != nil {
		if out, ok := p.cache.Get(key); ok {
			return out, nil
		}
	}

	prob, err := p.scorer.Score(vector)
	if err != nil {
		p.logger.Error("scorer failed on validated input", zap.Error(err), zap.Float64s("features", vector))
		return schema.PredictionOutput{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		p.logger.Error("scorer returned an invalid probability", zap.Float64("probability", prob))
		return schema.PredictionOutput{}, fmt.Errorf("%w: probability %v outside [0,1]", ErrInference, prob)
	}

	out := schema.PredictionOutput{
		HeartDisease: ml.Classify(prob),
		Probability:  Round4(prob),
	}
	if p.cache != nil {
		p.cache.Add(key, out)
	}
	return out, nil
}

func (p *Predictor) vector(values map[string]float64) ([]float64, error) {
	vector := make([]float64, len(p.features))
	for i, name := range p.features {
		value, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: input has no %s", ml.ErrFeatureMismatch, name)
		}
		vector[i] = value
	}
	return vector, nil
}

// Info describes the served model.
func (p *Predictor) Info() schema.InfoOutput {
	return schema.InfoOutput{
		ModelType: p.modelType,
		Features:  append([]string(nil), p.features...),
	}
}

// Round4 rounds v to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func cacheKey(vector []float64) string {
	var b strings.Builder
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}
