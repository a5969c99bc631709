package modeling

import (
	"math"
	"testing"
)

// linearData generates y = 3 + 2*x0 - x1 with no noise, so an exact solver
// must recover the coefficients.
func linearData() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		x0 := float64(i)
		x1 := float64(i%5) * 1.5
		X = append(X, []float64{x0, x1})
		y = append(y, 3+2*x0-x1)
	}
	return X, y
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := linearData()
	m := NewLinearRegression()
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	intercept, weights := m.Coefficients()
	if !approxEqual(intercept, 3, 1e-8) {
		t.Errorf("intercept = %v; want 3", intercept)
	}
	if len(weights) != 2 || !approxEqual(weights[0], 2, 1e-8) || !approxEqual(weights[1], -1, 1e-8) {
		t.Errorf("weights = %v; want [2 -1]", weights)
	}

	pred := m.Predict([][]float64{{10, 3}})
	if !approxEqual(pred[0], 3+2*10-3, 1e-8) {
		t.Errorf("prediction = %v; want 20", pred[0])
	}
}

func TestRidgeShrinksTowardZero(t *testing.T) {
	X, y := linearData()

	ols := NewLinearRegression()
	if err := ols.Fit(X, y); err != nil {
		t.Fatalf("OLS fit: %v", err)
	}
	ridge := &Ridge{Alpha: 100}
	if err := ridge.Fit(X, y); err != nil {
		t.Fatalf("ridge fit: %v", err)
	}

	_, olsW := ols.Coefficients()
	_, ridgeW := ridge.Coefficients()
	var olsNorm, ridgeNorm float64
	for i := range olsW {
		olsNorm += olsW[i] * olsW[i]
		ridgeNorm += ridgeW[i] * ridgeW[i]
	}
	if ridgeNorm >= olsNorm {
		t.Errorf("penalized weight norm %v not smaller than OLS norm %v", ridgeNorm, olsNorm)
	}
}

func TestRidgeAlphaZeroMatchesOLS(t *testing.T) {
	X, y := linearData()

	ols := NewLinearRegression()
	if err := ols.Fit(X, y); err != nil {
		t.Fatalf("OLS fit: %v", err)
	}
	ridge := &Ridge{Alpha: 0}
	if err := ridge.Fit(X, y); err != nil {
		t.Fatalf("ridge fit: %v", err)
	}

	olsI, olsW := ols.Coefficients()
	rI, rW := ridge.Coefficients()
	if !approxEqual(olsI, rI, 1e-10) {
		t.Errorf("intercepts differ: %v vs %v", olsI, rI)
	}
	for i := range olsW {
		if !approxEqual(olsW[i], rW[i], 1e-10) {
			t.Errorf("weight %d differs: %v vs %v", i, olsW[i], rW[i])
		}
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	m := NewLinearRegression()
	if err := m.Fit(nil, nil); err == nil {
		t.Error("empty design matrix must fail")
	}
	if err := m.Fit([][]float64{{1, 2}}, []float64{1, 2}); err == nil {
		t.Error("mismatched target length must fail")
	}
	if err := m.Fit([][]float64{{1, 2}, {1}}, []float64{1, 2}); err == nil {
		t.Error("ragged design matrix must fail")
	}
}

func TestFitSingularSystem(t *testing.T) {
	// Two identical columns make X'X singular for OLS.
	X := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	y := []float64{2, 4, 6, 8}
	m := NewLinearRegression()
	if err := m.Fit(X, y); err == nil {
		t.Error("perfectly collinear columns must fail without a penalty")
	}

	// A small L2 penalty regularizes the same system.
	ridge := &Ridge{Alpha: 0.1}
	if err := ridge.Fit(X, y); err != nil {
		t.Errorf("ridge should handle collinear columns, got %v", err)
	}
}

func TestPredictBeforeFitReturnsZeros(t *testing.T) {
	m := NewLinearRegression()
	pred := m.Predict([][]float64{{1, 2}, {3, 4}})
	if len(pred) != 2 || pred[0] != 0 || pred[1] != 0 {
		t.Errorf("unfitted predictions = %v; want zeros", pred)
	}
}
