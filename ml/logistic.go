package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMaxIter = 1000
	DefaultC       = 1.0
	DefaultTol     = 1e-4
)

// LogisticRegression is an L2-regularized binary classifier. Fit minimizes
// C*sum(logloss) + 0.5*|coef|^2 with Newton steps; the intercept is not
// penalized.
type LogisticRegression struct {
	C         float64   `json:"c"`
	MaxIter   int       `json:"max_iter"`
	Tol       float64   `json:"tol"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	NIter     int       `json:"n_iter"`
	Converged bool      `json:"converged"`
}

// NewLogisticRegression uses the defaults for non-positive c or maxIter.
func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	if c <= 0 {
		c = DefaultC
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	return &LogisticRegression{C: c, MaxIter: maxIter, Tol: DefaultTol}
}

// Fit trains on X and 0/1 labels y.
func (lr *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(y) == 0 {
		return errors.New("features or labels empty")
	}
	if len(X) != len(y) {
		return errors.New("features and labels size mismatch")
	}
	seen := [2]bool{}
	for _, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidLabel, label)
		}
		seen[label] = true
	}
	if !seen[0] || !seen[1] {
		return ErrSingleClass
	}
	if lr.C <= 0 {
		lr.C = DefaultC
	}
	if lr.MaxIter <= 0 {
		lr.MaxIter = DefaultMaxIter
	}
	if lr.Tol <= 0 {
		lr.Tol = DefaultTol
	}

	n, d := len(X), len(X[0])
	// Design matrix with a trailing column of ones for the intercept.
	a := mat.NewDense(n, d+1, nil)
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureCount, i, len(row), d)
		}
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, d, 1)
	}
	target := make([]float64, n)
	for i, label := range y {
		target[i] = float64(label)
	}

	theta := make([]float64, d+1)
	grad := make([]float64, d+1)
	prob := make([]float64, n)
	lr.NIter = 0
	lr.Converged = false

	for lr.NIter < lr.MaxIter {
		lr.probabilities(a, theta, prob)
		lr.gradient(a, theta, prob, target, grad)
		if floats.Norm(grad, math.Inf(1)) <= lr.Tol {
			lr.Converged = true
			break
		}

		step, err := lr.newtonStep(a, prob, grad)
		if err != nil {
			return fmt.Errorf("newton step %d: %w", lr.NIter, err)
		}
		theta = lr.lineSearch(a, theta, step, grad, target)
		lr.NIter++
	}
	if !lr.Converged {
		lr.probabilities(a, theta, prob)
		lr.gradient(a, theta, prob, target, grad)
		lr.Converged = floats.Norm(grad, math.Inf(1)) <= lr.Tol
	}

	lr.Coef = append([]float64(nil), theta[:d]...)
	lr.Intercept = theta[d]
	return nil
}

// PredictProba returns the positive class probability for an already
// transformed vector.
func (lr *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if len(lr.Coef) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != len(lr.Coef) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(lr.Coef))
	}
	return sigmoid(floats.Dot(lr.Coef, x) + lr.Intercept), nil
}

func (lr *LogisticRegression) probabilities(a *mat.Dense, theta, prob []float64) {
	z := mat.NewVecDense(len(prob), nil)
	z.MulVec(a, mat.NewVecDense(len(theta), theta))
	for i := range prob {
		prob[i] = sigmoid(z.AtVec(i))
	}
}

func (lr *LogisticRegression) gradient(a *mat.Dense, theta, prob, target, grad []float64) {
	residual := make([]float64, len(prob))
	floats.SubTo(residual, prob, target)
	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(a.T(), mat.NewVecDense(len(residual), residual))
	floats.Scale(lr.C, grad)
	d := len(theta) - 1
	floats.Add(grad[:d], theta[:d])
}

// newtonStep solves H*step = grad with H = C*A'WA plus the penalty on the
// coefficients.
func (lr *LogisticRegression) newtonStep(a *mat.Dense, prob, grad []float64) ([]float64, error) {
	n, cols := a.Dims()
	weighted := mat.NewDense(n, cols, nil)
	weighted.Apply(func(i, _ int, v float64) float64 {
		return v * prob[i] * (1 - prob[i])
	}, a)

	var hessian mat.Dense
	hessian.Mul(a.T(), weighted)
	hessian.Scale(lr.C, &hessian)
	for j := 0; j < cols-1; j++ {
		hessian.Set(j, j, hessian.At(j, j)+1)
	}

	var step mat.VecDense
	if err := step.SolveVec(&hessian, mat.NewVecDense(len(grad), grad)); err != nil {
		// An ill-conditioned Hessian still yields a usable direction.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return step.RawVector().Data, nil
}

// lineSearch backtracks along -step until the objective decreases enough.
func (lr *LogisticRegression) lineSearch(a *mat.Dense, theta, step, grad, target []float64) []float64 {
	current := lr.objective(a, theta, target)
	slope := floats.Dot(grad, step)
	candidate := make([]float64, len(theta))
	t := 1.0
	for i := 0; i < 50; i++ {
		floats.AddScaledTo(candidate, theta, -t, step)
		if lr.objective(a, candidate, target) <= current-1e-4*t*slope {
			return candidate
		}
		t /= 2
	}
	return candidate
}

func (lr *LogisticRegression) objective(a *mat.Dense, theta, target []float64) float64 {
	n, _ := a.Dims()
	z := mat.NewVecDense(n, nil)
	z.MulVec(a, mat.NewVecDense(len(theta), theta))
	var loss float64
	for i := 0; i < n; i++ {
		zi := z.AtVec(i)
		loss += log1pExp(zi) - target[i]*zi
	}
	coef := theta[:len(theta)-1]
	return lr.C*loss + 0.5*floats.Dot(coef, coef)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func log1pExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
