package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

// ErrUnknownEntity is returned when a request names an airline or arrival
// location with no dimension-table match. Guessing would silently mis-price,
// so the request is rejected instead.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrSchemaDrift is returned when a preprocessed request does not line up
// with the loaded transformer bundle's column layout. It indicates mixed
// artifact generations and aborts the request loudly.
var ErrSchemaDrift = errors.New("feature schema drift")

// DimensionLookup resolves human-entered display names against the persisted
// dimension tables. The table store is the collaborator behind it.
type DimensionLookup interface {
	AirlineIDByName(name string) (string, bool, error)
	AirportCodeByName(name string) (string, bool, error)
}

// Predictor scores one pricing request at a time using a fitted transformer
// bundle and trained model. The bundle is read-only after construction:
// concurrent requests share it without locking, and retraining swaps in a
// whole new Predictor.
type Predictor struct {
	lookup DimensionLookup
	set    *models.TransformerSet
	model  *models.TrainedModel
	logger *utils.Logger
}

// NewPredictor wires a Predictor for one artifact generation. The bundle and
// model must come from the same training run.
func NewPredictor(lookup DimensionLookup, set *models.TransformerSet, model *models.TrainedModel, logger *utils.Logger) (*Predictor, error) {
	if set.Generation != model.Generation {
		return nil, fmt.Errorf("%w: bundle generation %q vs model generation %q",
			ErrSchemaDrift, set.Generation, model.Generation)
	}
	return &Predictor{lookup: lookup, set: set, model: model, logger: logger}, nil
}

// Predict reproduces the training-time preprocessing for one request and
// returns the predicted total price in VND, inverse-transformed from the
// scaled target space.
func (p *Predictor) Predict(req *models.PredictionRequest) (int64, error) {
	rec, err := p.preprocess(req)
	if err != nil {
		return 0, err
	}

	vec := buildVector(p.set, rec)
	if err := p.checkSchema(vec); err != nil {
		return 0, err
	}

	scaled := p.model.Predict(vec)
	price := p.set.Scalers[colTarget].InverseTransform(scaled)
	p.logger.Debug("[predict] %s → %s: scaled=%.4f price=%.0f", req.Airline, req.Arrival, scaled, price)
	return int64(math.Round(price)), nil
}

// preprocess resolves dimension names and coerces the request into the same
// featureRecord shape the builder fit on. Unseen categoricals other than the
// resolved names fall through to the encoder's all-zero unknown handling.
func (p *Predictor) preprocess(req *models.PredictionRequest) (featureRecord, error) {
	var rec featureRecord

	airlineID, found, err := p.lookup.AirlineIDByName(req.Airline)
	if err != nil {
		return rec, fmt.Errorf("predict: airline lookup: %w", err)
	}
	if !found {
		return rec, fmt.Errorf("%w: airline %q", ErrUnknownEntity, req.Airline)
	}

	arrivalCode, found, err := p.lookup.AirportCodeByName(req.Arrival)
	if err != nil {
		return rec, fmt.Errorf("predict: arrival lookup: %w", err)
	}
	if !found {
		return rec, fmt.Errorf("%w: arrival location %q", ErrUnknownEntity, req.Arrival)
	}

	departure, err := ParseScrapeTime(req.DepartureTime)
	if err != nil {
		return rec, fmt.Errorf("predict: departure time: %w", err)
	}
	scrape, err := ParseScrapeTime(req.ScrapeTime)
	if err != nil {
		return rec, fmt.Errorf("predict: scrape time: %w", err)
	}

	rec = featureRecord{
		duration:      req.DurationHours,
		fareClass:     req.FareClass,
		airlineID:     airlineID,
		arrivalCode:   arrivalCode,
		aircraftType:  req.AircraftType,
		refund:        cleanClauses(req.RefundPolicy),
		departureTime: departure,
		scrapeTime:    scrape,
	}
	// Missing baggage takes the same null representation used in training.
	if req.CarryOnKg != nil {
		rec.carryOn = float64(*req.CarryOnKg)
	}
	if req.CheckedKg != nil {
		rec.checked = float64(*req.CheckedKg)
	}
	return rec, nil
}

// checkSchema verifies the preprocessed vector matches the bundle's recorded
// training layout (target excluded) and the model's weight count.
func (p *Predictor) checkSchema(vec []float64) error {
	want := len(p.set.Columns) - 1
	if len(vec) != want {
		return fmt.Errorf("%w: request produced %d columns, bundle expects %d",
			ErrSchemaDrift, len(vec), want)
	}
	rebuilt := featureColumnNames(p.set)
	if len(rebuilt) != len(p.set.Columns) {
		return fmt.Errorf("%w: bundle columns do not reproduce", ErrSchemaDrift)
	}
	for i, c := range rebuilt {
		if c != p.set.Columns[i] {
			return fmt.Errorf("%w: column %d is %q, bundle recorded %q", ErrSchemaDrift, i, c, p.set.Columns[i])
		}
	}
	if len(p.model.Weights) != want {
		return fmt.Errorf("%w: model has %d weights, bundle expects %d features",
			ErrSchemaDrift, len(p.model.Weights), want)
	}
	return nil
}
