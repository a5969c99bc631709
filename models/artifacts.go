package models

import "sort"

// StandardScaler is a fitted per-column standardizer: (x - Mean) / Std with
// the population standard deviation, matching the training-time fit. A
// zero-variance column transforms to 0.
type StandardScaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Transform maps a raw value into scaled space.
func (s StandardScaler) Transform(x float64) float64 {
	if s.Std == 0 {
		return 0
	}
	return (x - s.Mean) / s.Std
}

// InverseTransform maps a scaled value back to the original unit.
func (s StandardScaler) InverseTransform(z float64) float64 {
	return z*s.Std + s.Mean
}

// OneHotEncoder holds, per categorical column, the sorted category values
// seen at fit time. Unknown categories encode to all zeros rather than
// failing, so inference never rejects a merely-unseen aircraft type.
type OneHotEncoder struct {
	// Columns preserves the fit-time column order.
	Columns    []string            `json:"columns"`
	Categories map[string][]string `json:"categories"`
}

// FeatureNames returns the expanded "column_value" names in output order.
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for _, col := range e.Columns {
		for _, v := range e.Categories[col] {
			names = append(names, col+"_"+v)
		}
	}
	return names
}

// Encode produces the one-hot vector for one record, values keyed by column.
func (e *OneHotEncoder) Encode(values map[string]string) []float64 {
	var out []float64
	for _, col := range e.Columns {
		cats := e.Categories[col]
		hot := sort.SearchStrings(cats, values[col])
		if hot == len(cats) || cats[hot] != values[col] {
			hot = -1 // unknown category: all zeros
		}
		for i := range cats {
			if i == hot {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// MultiLabelBinarizer holds the sorted universe of refund-policy clauses.
type MultiLabelBinarizer struct {
	Classes []string `json:"classes"`
}

// Encode produces the membership vector for one clause set. Unseen clauses
// are ignored, mirroring the single-label encoder's unknown handling.
func (m *MultiLabelBinarizer) Encode(labels []string) []float64 {
	present := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		present[l] = struct{}{}
	}
	out := make([]float64, len(m.Classes))
	for i, c := range m.Classes {
		if _, ok := present[c]; ok {
			out[i] = 1
		}
	}
	return out
}

// TransformerSet is the full fitted-transformer bundle for one training
// generation. It is immutable after fitting: retraining builds a new set and
// swaps it in whole, so concurrent inference always sees one consistent
// generation.
type TransformerSet struct {
	Generation string `json:"generation"`

	// Scalers is keyed by canonical column name, target included.
	Scalers map[string]StandardScaler `json:"scalers"`
	Encoder OneHotEncoder             `json:"encoder"`
	Refund  MultiLabelBinarizer       `json:"refund"`

	// Columns is the exact training-matrix column layout (target last).
	// Any preprocessed request must reproduce it or be rejected.
	Columns []string `json:"columns"`
}

// TrainedModel is the persisted regressor: a linear form over the feature
// columns in bundle order (target excluded). Tree models from the selection
// step are not persisted here; the pipeline keeps the best linear family.
type TrainedModel struct {
	Name       string    `json:"name"`
	Generation string    `json:"generation"`
	Intercept  float64   `json:"intercept"`
	Weights    []float64 `json:"weights"`
	MeanR2     float64   `json:"mean_r2"`
	MeanRMSE   float64   `json:"mean_rmse"`
}

// Predict scores one feature vector in scaled-target space.
func (m *TrainedModel) Predict(x []float64) float64 {
	y := m.Intercept
	for i, w := range m.Weights {
		if i < len(x) {
			y += w * x[i]
		}
	}
	return y
}
