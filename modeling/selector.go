package modeling

import (
	"fmt"
	"math"

	"github.com/Gabien21/project-airfare/utils"
)

// CVResult holds one candidate's cross-validation scores.
type CVResult struct {
	Name     string
	MeanR2   float64
	MeanRMSE float64
	Model    Regressor
}

// Selector compares candidate regressors with K-fold cross-validation.
// Folds are contiguous and unshuffled, so selection is deterministic for a
// given input order.
type Selector struct {
	folds  int
	logger *utils.Logger
}

// NewSelector creates a Selector with the given fold count.
func NewSelector(folds int, logger *utils.Logger) *Selector {
	if folds < 2 {
		folds = 2
	}
	return &Selector{folds: folds, logger: logger}
}

// Run cross-validates every candidate from every grid and returns their
// scores. A candidate that fails to fit on some fold is scored against the
// folds it completed; one that fits nowhere is dropped with a warning.
func (s *Selector) Run(grids []ParamGrid, X [][]float64, y []float64) ([]CVResult, error) {
	if len(X) < s.folds {
		return nil, fmt.Errorf("modeling: %d rows is too few for %d folds", len(X), s.folds)
	}

	var results []CVResult
	for _, grid := range grids {
		for _, cand := range grid.Candidates() {
			res, ok := s.crossValidate(cand, X, y)
			if !ok {
				s.logger.Warn("[modeling] %s failed on every fold, dropping", cand.Name)
				continue
			}
			s.logger.Info("[modeling] %-22s | R2: %.4f | RMSE: %.2f", cand.Name, res.MeanR2, res.MeanRMSE)
			results = append(results, res)
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("modeling: no candidate survived cross-validation")
	}
	return results, nil
}

func (s *Selector) crossValidate(cand Candidate, X [][]float64, y []float64) (CVResult, bool) {
	n := len(X)
	foldSize := n / s.folds

	var r2Sum, rmseSum float64
	var scored int

	for f := 0; f < s.folds; f++ {
		lo := f * foldSize
		hi := lo + foldSize
		if f == s.folds-1 {
			hi = n
		}

		trainX := make([][]float64, 0, n-(hi-lo))
		trainY := make([]float64, 0, n-(hi-lo))
		trainX = append(trainX, X[:lo]...)
		trainX = append(trainX, X[hi:]...)
		trainY = append(trainY, y[:lo]...)
		trainY = append(trainY, y[hi:]...)

		if err := cand.Model.Fit(trainX, trainY); err != nil {
			s.logger.Debug("[modeling] %s fold %d: %v", cand.Name, f, err)
			continue
		}
		pred := cand.Model.Predict(X[lo:hi])
		r2Sum += rSquared(y[lo:hi], pred)
		rmseSum += rmse(y[lo:hi], pred)
		scored++
	}

	if scored == 0 {
		return CVResult{}, false
	}
	return CVResult{
		Name:     cand.Name,
		MeanR2:   r2Sum / float64(scored),
		MeanRMSE: rmseSum / float64(scored),
		Model:    cand.Model,
	}, true
}

// Best returns the result with the highest mean R², breaking ties on lower
// RMSE.
func Best(results []CVResult) CVResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.MeanR2 > best.MeanR2 || (r.MeanR2 == best.MeanR2 && r.MeanRMSE < best.MeanRMSE) {
			best = r
		}
	}
	return best
}

func rSquared(actual, pred []float64) float64 {
	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i, v := range actual {
		ssRes += (v - pred[i]) * (v - pred[i])
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func rmse(actual, pred []float64) float64 {
	var sum float64
	for i, v := range actual {
		d := v - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}
