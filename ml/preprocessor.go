package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// NumericColumn imputes with the training median then standardizes.
type NumericColumn struct {
	Name   string  `json:"name"`
	Index  int     `json:"index"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// CategoricalColumn imputes with the training mode then one-hot encodes
// against Categories. Values outside Categories encode as all zeros.
type CategoricalColumn struct {
	Name       string    `json:"name"`
	Index      int       `json:"index"`
	Mode       float64   `json:"mode"`
	Categories []float64 `json:"categories"`
}

// Preprocessor turns raw rows, gaps included, into classifier input.
type Preprocessor struct {
	Width       int                 `json:"width"`
	Numeric     []NumericColumn     `json:"numeric"`
	Categorical []CategoricalColumn `json:"categorical"`
}

// Fit learns imputation and encoding statistics from X, whose columns follow
// features. Columns named in categorical are one-hot encoded, the rest are
// scaled.
func (p *Preprocessor) Fit(features []string, categorical []string, X [][]float64) error {
	if len(X) == 0 {
		return errors.New("features is empty")
	}
	for i, row := range X {
		if len(row) != len(features) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureCount, i, len(row), len(features))
		}
	}

	p.Width = len(features)
	p.Numeric = p.Numeric[:0]
	p.Categorical = p.Categorical[:0]
	for idx, name := range features {
		column := columnValues(X, idx)
		if lo.Contains(categorical, name) {
			p.Categorical = append(p.Categorical, fitCategorical(name, idx, column))
		} else {
			p.Numeric = append(p.Numeric, fitNumeric(name, idx, column))
		}
	}
	return nil
}

func (p *Preprocessor) fitted() bool {
	return p != nil && p.Width > 0
}

// OutputWidth is the length of a transformed vector.
func (p *Preprocessor) OutputWidth() int {
	width := len(p.Numeric)
	for _, c := range p.Categorical {
		width += len(c.Categories)
	}
	return width
}

// Transform maps one raw row to the model's input space: scaled numeric
// columns first, then the indicator block of each categorical column.
func (p *Preprocessor) Transform(x []float64) ([]float64, error) {
	if !p.fitted() {
		return nil, ErrNotFitted
	}
	if len(x) != p.Width {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), p.Width)
	}

	out := make([]float64, p.OutputWidth())
	pos := 0
	for _, c := range p.Numeric {
		value := x[c.Index]
		if math.IsNaN(value) {
			value = c.Median
		}
		out[pos] = (value - c.Mean) / c.Scale
		pos++
	}
	for _, c := range p.Categorical {
		value := x[c.Index]
		if math.IsNaN(value) {
			value = c.Mode
		}
		if i := sort.SearchFloat64s(c.Categories, value); i < len(c.Categories) && c.Categories[i] == value {
			out[pos+i] = 1
		}
		pos += len(c.Categories)
	}
	return out, nil
}

func columnValues(X [][]float64, idx int) []float64 {
	values := make([]float64, len(X))
	for i, row := range X {
		values[i] = row[idx]
	}
	return values
}

func observed(values []float64) []float64 {
	return lo.Filter(values, func(v float64, _ int) bool { return !math.IsNaN(v) })
}

func fillMissing(values []float64, fill float64) []float64 {
	return lo.Map(values, func(v float64, _ int) float64 {
		if math.IsNaN(v) {
			return fill
		}
		return v
	})
}

func fitNumeric(name string, idx int, values []float64) NumericColumn {
	med := median(observed(values))
	mean, std := stat.PopMeanStdDev(fillMissing(values, med), nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	return NumericColumn{Name: name, Index: idx, Median: med, Mean: mean, Scale: std}
}

func fitCategorical(name string, idx int, values []float64) CategoricalColumn {
	m := mode(observed(values))
	categories := lo.Uniq(fillMissing(values, m))
	sort.Float64s(categories)
	return CategoricalColumn{Name: name, Index: idx, Mode: m, Categories: categories}
}

// median averages the two middle values of an even-sized sample. An empty
// sample yields 0.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// mode returns the most frequent value, the smallest one on ties.
func mode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := 0.0, 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}
