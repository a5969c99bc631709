package services

import (
	"errors"
	"testing"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

// fakeLookup resolves display names from in-memory maps, standing in for the
// dimension tables.
type fakeLookup struct {
	airlines map[string]string
	airports map[string]string
}

func (f *fakeLookup) AirlineIDByName(name string) (string, bool, error) {
	id, ok := f.airlines[name]
	return id, ok, nil
}

func (f *fakeLookup) AirportCodeByName(name string) (string, bool, error) {
	code, ok := f.airports[name]
	return code, ok, nil
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		airlines: map[string]string{
			"Vietnam Airlines": "AL001",
			"VietJet Air":      "AL002",
		},
		airports: map[string]string{
			"Hà Nội":  "HAN",
			"Đà Nẵng": "DAD",
		},
	}
}

// fittedBundle trains a real transformer bundle and a model whose weights
// line up with it, so inference tests exercise the actual fit path.
func fittedBundle(t *testing.T) (*models.TransformerSet, *models.TrainedModel) {
	t.Helper()
	builder := NewFeatureBuilder(utils.NewLogger())
	set, matrix, err := builder.Fit(trainingRows(), "g1")
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	model := &models.TrainedModel{
		Name:       "Linear Regression",
		Generation: "g1",
		Intercept:  0.1,
		Weights:    make([]float64, len(matrix.Columns)-1),
	}
	model.Weights[0] = 0.05
	return set, model
}

func samplePredictionRequest() *models.PredictionRequest {
	return &models.PredictionRequest{
		CarryOnKg:     intPtr(7),
		CheckedKg:     intPtr(20),
		DurationHours: 1.5,
		FareClass:     "Phổ thông",
		Airline:       "Vietnam Airlines",
		Arrival:       "Hà Nội",
		AircraftType:  "Airbus A321",
		RefundPolicy:  []string{"- Không hoàn vé"},
		DepartureTime: "2025-06-22 09:00:00",
		ScrapeTime:    "2025-06-01 08:00:00",
	}
}

func TestPredictEndToEnd(t *testing.T) {
	set, model := fittedBundle(t)
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	price, err := p.Predict(samplePredictionRequest())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if price <= 0 {
		t.Errorf("predicted price = %d; want a positive VND amount", price)
	}
}

func TestPredictDeterministic(t *testing.T) {
	set, model := fittedBundle(t)
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	a, err := p.Predict(samplePredictionRequest())
	if err != nil {
		t.Fatalf("first Predict: %v", err)
	}
	b, err := p.Predict(samplePredictionRequest())
	if err != nil {
		t.Fatalf("second Predict: %v", err)
	}
	if a != b {
		t.Errorf("identical requests scored differently: %d vs %d", a, b)
	}
}

func TestPredictUnknownAirline(t *testing.T) {
	set, model := fittedBundle(t)
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	req := samplePredictionRequest()
	req.Airline = "Không tồn tại Airways"
	if _, err := p.Predict(req); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("unknown airline must fail with ErrUnknownEntity, got %v", err)
	}
}

func TestPredictUnknownArrival(t *testing.T) {
	set, model := fittedBundle(t)
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	req := samplePredictionRequest()
	req.Arrival = "Paris"
	if _, err := p.Predict(req); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("unknown arrival must fail with ErrUnknownEntity, got %v", err)
	}
}

func TestPredictUnseenCategoricalStillScores(t *testing.T) {
	set, model := fittedBundle(t)
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	// An aircraft type never seen at fit time encodes to zeros, it does not
	// reject the request the way unresolved names do.
	req := samplePredictionRequest()
	req.AircraftType = "ATR 72"
	if _, err := p.Predict(req); err != nil {
		t.Errorf("unseen aircraft type should score, got %v", err)
	}
}

func TestPredictorGenerationMismatch(t *testing.T) {
	set, model := fittedBundle(t)
	model.Generation = "g2"
	if _, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger()); !errors.Is(err, ErrSchemaDrift) {
		t.Errorf("mixed generations must fail with ErrSchemaDrift, got %v", err)
	}
}

func TestPredictWeightCountDrift(t *testing.T) {
	set, model := fittedBundle(t)
	model.Weights = model.Weights[:len(model.Weights)-1]
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}
	if _, err := p.Predict(samplePredictionRequest()); !errors.Is(err, ErrSchemaDrift) {
		t.Errorf("weight count mismatch must fail with ErrSchemaDrift, got %v", err)
	}
}

func TestPredictBadTimestamp(t *testing.T) {
	set, model := fittedBundle(t)
	p, err := NewPredictor(newFakeLookup(), set, model, utils.NewLogger())
	if err != nil {
		t.Fatalf("NewPredictor: %v", err)
	}

	req := samplePredictionRequest()
	req.DepartureTime = "22/06/2025 09:00"
	if _, err := p.Predict(req); err == nil {
		t.Error("day-first departure timestamp must be rejected")
	}
}

func TestTrainingAndInferenceVectorsAgree(t *testing.T) {
	builder := NewFeatureBuilder(utils.NewLogger())
	rows := trainingRows()
	set, matrix, err := builder.Fit(rows, "g1")
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// Rebuilding the first training row's vector through the shared path must
	// reproduce the matrix row, minus the trailing target.
	rec := newFeatureRecord(rows[0])
	vec := buildVector(set, rec)
	want := matrix.Rows[0][:len(matrix.Rows[0])-1]
	if len(vec) != len(want) {
		t.Fatalf("vector width %d != training width %d", len(vec), len(want))
	}
	for i := range vec {
		if vec[i] != want[i] {
			t.Errorf("position %d: inference %v != training %v (%s)", i, vec[i], want[i], matrix.Columns[i])
		}
	}
}
