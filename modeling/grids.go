package modeling

import "fmt"

// ParamGrid is a typed hyperparameter grid: one variant per model family,
// each producing its own candidate regressors. This replaces string-keyed
// parameter dictionaries with cases the compiler can check.
type ParamGrid interface {
	Family() string
	Candidates() []Candidate
}

// Candidate pairs a configured regressor with a display name.
type Candidate struct {
	Name  string
	Model Regressor
}

// LinearGrid has no hyperparameters: one OLS candidate.
type LinearGrid struct{}

func (LinearGrid) Family() string { return "LinearRegression" }

func (LinearGrid) Candidates() []Candidate {
	return []Candidate{{Name: "LinearRegression", Model: NewLinearRegression()}}
}

// RidgeGrid sweeps the L2 penalty strength.
type RidgeGrid struct {
	Alphas []float64
}

func (RidgeGrid) Family() string { return "Ridge" }

func (g RidgeGrid) Candidates() []Candidate {
	alphas := g.Alphas
	if len(alphas) == 0 {
		alphas = []float64{1.0}
	}
	out := make([]Candidate, len(alphas))
	for i, a := range alphas {
		out[i] = Candidate{
			Name:  fmt.Sprintf("Ridge(alpha=%g)", a),
			Model: &Ridge{Alpha: a},
		}
	}
	return out
}

// DefaultGrids is the candidate set the training stage evaluates.
func DefaultGrids() []ParamGrid {
	return []ParamGrid{
		LinearGrid{},
		RidgeGrid{Alphas: []float64{0.1, 1.0, 10.0}},
	}
}
