// Package modeling provides the pluggable regression layer of the pipeline:
// a fit/predict contract, deterministic linear-family regressors, typed
// hyperparameter grids, and a K-fold selector.
package modeling

import (
	"fmt"
	"math"
)

// Regressor is the contract any model family must satisfy. The feature
// pipeline only depends on this interface.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Linear is implemented by regressors whose prediction is an affine form,
// allowing their coefficients to be persisted as a TrainedModel.
type Linear interface {
	Regressor
	Coefficients() (intercept float64, weights []float64)
}

// Ridge is L2-regularized least squares, solved in closed form via the
// normal equations. Alpha 0 reduces to ordinary least squares. The bias
// term is not regularized. Fitting is fully deterministic.
type Ridge struct {
	Alpha float64

	intercept float64
	weights   []float64
	fitted    bool
}

// Fit solves (X'X + αI)w = X'y over the bias-augmented design matrix.
func (r *Ridge) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("modeling: need a non-empty design matrix with matching target length, got %d×%d", len(X), len(y))
	}
	p := len(X[0])
	n := len(X)
	d := p + 1 // bias column appended last

	// Build A = X'X + αI and b = X'y in one pass.
	A := make([][]float64, d)
	for i := range A {
		A[i] = make([]float64, d)
	}
	b := make([]float64, d)

	row := make([]float64, d)
	for k := 0; k < n; k++ {
		if len(X[k]) != p {
			return fmt.Errorf("modeling: ragged design matrix: row %d has %d columns, want %d", k, len(X[k]), p)
		}
		copy(row, X[k])
		row[p] = 1
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				A[i][j] += row[i] * row[j]
			}
			b[i] += row[i] * y[k]
		}
	}
	for i := 0; i < d; i++ {
		for j := 0; j < i; j++ {
			A[i][j] = A[j][i]
		}
	}
	for i := 0; i < p; i++ {
		A[i][i] += r.Alpha
	}

	w, err := solveLinearSystem(A, b)
	if err != nil {
		return fmt.Errorf("modeling: ridge solve: %w", err)
	}
	r.weights = w[:p]
	r.intercept = w[p]
	r.fitted = true
	return nil
}

// Predict scores each row; calling it before Fit returns zeros.
func (r *Ridge) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if !r.fitted {
		return out
	}
	for k, x := range X {
		y := r.intercept
		for i, w := range r.weights {
			if i < len(x) {
				y += w * x[i]
			}
		}
		out[k] = y
	}
	return out
}

// Coefficients returns the fitted affine form.
func (r *Ridge) Coefficients() (float64, []float64) {
	return r.intercept, r.weights
}

// LinearRegression is ordinary least squares: Ridge with no penalty.
type LinearRegression struct {
	Ridge
}

// NewLinearRegression creates an OLS regressor.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// solveLinearSystem performs Gaussian elimination with partial pivoting.
// A is modified in place.
func solveLinearSystem(A [][]float64, b []float64) ([]float64, error) {
	d := len(A)
	for col := 0; col < d; col++ {
		pivot := col
		for r := col + 1; r < d; r++ {
			if math.Abs(A[r][col]) > math.Abs(A[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(A[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		A[col], A[pivot] = A[pivot], A[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < d; r++ {
			factor := A[r][col] / A[col][col]
			for c := col; c < d; c++ {
				A[r][c] -= factor * A[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, d)
	for i := d - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < d; j++ {
			sum -= A[i][j] * x[j]
		}
		x[i] = sum / A[i][i]
	}
	return x, nil
}
