package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

// Feature column names, pre-canonicalization. Their order here is the fixed
// input contract for model training; changing it requires retraining.
const (
	colCarryOn  = "Carry-on_Baggage"
	colChecked  = "Checked_Baggage"
	colDuration = "Flight_Duration"
	colTarget   = "Total_Price"

	colFareClass = "Fare_Class"
	colAirline   = "Airline_id"
	colArrival   = "Arrival_Location_Code"
	colAircraft  = "Aircraft_Type"

	colDepartureHour = "Departure_Hour"
	colDayOfWeek     = "Departure_DayOfWeek"
	colLeadDays      = "Days_Before_Departure"
)

var numericColumns = []string{colCarryOn, colChecked, colDuration}
var categoricalColumns = []string{colFareClass, colAirline, colArrival, colAircraft}
var calendarColumns = []string{colDepartureHour, colDayOfWeek, colLeadDays}

// FeatureMatrix is the model-ready numeric frame: scaled numerics, one-hot
// categoricals, binarized refund clauses, calendar features, scaled target
// last. Column names are canonical ASCII.
type FeatureMatrix struct {
	Columns []string
	Rows    [][]float64
}

// FeatureBuilder fits the transformer bundle over a joined training frame
// and emits the numeric matrix. Fitting is deterministic: categories and
// clause classes are sorted, scaler statistics are closed-form.
type FeatureBuilder struct {
	logger *utils.Logger
}

// NewFeatureBuilder creates a FeatureBuilder with the given logger.
func NewFeatureBuilder(logger *utils.Logger) *FeatureBuilder {
	return &FeatureBuilder{logger: logger}
}

// Fit builds the TransformerSet from the joined rows and applies it,
// returning the training matrix. Non-feature columns of the join (unit
// price, tax breakdown, passenger type, flight code, departure code) are
// dropped here; the arrival timestamp contributes nothing and is dropped
// with the raw timestamps after calendar derivation.
func (f *FeatureBuilder) Fit(rows []*models.JoinedRow, generation string) (*models.TransformerSet, *FeatureMatrix, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("features: cannot fit on an empty training frame")
	}

	f.logger.Info("[features] Fitting transformers on %d rows", len(rows))

	records := make([]featureRecord, len(rows))
	for i, r := range rows {
		records[i] = newFeatureRecord(r)
	}

	set := &models.TransformerSet{
		Generation: generation,
		Scalers:    make(map[string]models.StandardScaler),
	}

	// One scaler per numeric column, target included.
	numeric := func(col string) []float64 {
		vals := make([]float64, len(records))
		for i, rec := range records {
			vals[i] = rec.numeric(col)
		}
		return vals
	}
	for _, col := range append(append([]string{}, numericColumns...), colTarget) {
		set.Scalers[col] = fitScaler(numeric(col))
	}

	// Single-label encoder across all categoricals except the refund column.
	set.Encoder = models.OneHotEncoder{
		Columns:    append([]string(nil), categoricalColumns...),
		Categories: make(map[string][]string, len(categoricalColumns)),
	}
	for _, col := range categoricalColumns {
		distinct := make(map[string]struct{})
		for _, rec := range records {
			distinct[rec.categorical(col)] = struct{}{}
		}
		set.Encoder.Categories[col] = sortedKeys(distinct)
	}

	// Multi-label binarizer over the refund clauses.
	clauseSet := make(map[string]struct{})
	for _, rec := range records {
		for _, clause := range rec.refund {
			clauseSet[clause] = struct{}{}
		}
	}
	set.Refund = models.MultiLabelBinarizer{Classes: sortedKeys(clauseSet)}

	set.Columns = featureColumnNames(set)

	matrix := &FeatureMatrix{Columns: set.Columns, Rows: make([][]float64, len(records))}
	for i, rec := range records {
		vec := buildVector(set, rec)
		vec = append(vec, set.Scalers[colTarget].Transform(rec.target))
		matrix.Rows[i] = vec
	}

	f.logger.Info("[features] Matrix: %d rows × %d columns (%d one-hot, %d refund clauses)",
		len(matrix.Rows), len(matrix.Columns), len(set.Encoder.FeatureNames()), len(set.Refund.Classes))
	return set, matrix, nil
}

// featureRecord carries one row's feature inputs after null-filling and
// column drops, ready for the fitted transformers.
type featureRecord struct {
	carryOn  float64
	checked  float64
	duration float64
	target   float64

	fareClass    string
	airlineID    string
	arrivalCode  string
	aircraftType string

	refund []string

	departureTime time.Time
	scrapeTime    time.Time
}

func newFeatureRecord(r *models.JoinedRow) featureRecord {
	rec := featureRecord{
		duration:      r.DurationHours,
		target:        float64(r.TotalPrice),
		fareClass:     r.FareClass,
		airlineID:     r.AirlineID,
		arrivalCode:   r.ArrivalCode,
		aircraftType:  r.AircraftType,
		refund:        cleanClauses(r.RefundPolicy),
		departureTime: r.DepartureTime,
		scrapeTime:    r.ScrapeTime,
	}
	if r.CarryOnKg != nil {
		rec.carryOn = float64(*r.CarryOnKg)
	}
	// nil checked baggage means "no checked baggage selected", filled as 0.
	if r.CheckedKg != nil {
		rec.checked = float64(*r.CheckedKg)
	}
	return rec
}

func (rec featureRecord) numeric(col string) float64 {
	switch col {
	case colCarryOn:
		return rec.carryOn
	case colChecked:
		return rec.checked
	case colDuration:
		return rec.duration
	case colTarget:
		return rec.target
	}
	return 0
}

func (rec featureRecord) categorical(col string) string {
	switch col {
	case colFareClass:
		return rec.fareClass
	case colAirline:
		return rec.airlineID
	case colArrival:
		return rec.arrivalCode
	case colAircraft:
		return rec.aircraftType
	}
	return ""
}

// cleanClauses strips the site's "- " bullet prefix from policy clauses.
func cleanClauses(clauses []string) []string {
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = strings.ReplaceAll(c, "- ", "")
	}
	return out
}

// buildVector applies the fitted bundle to one record: scaled numerics,
// one-hot categoricals, refund membership, calendar features. The target is
// not included; training appends it, inference never has it.
func buildVector(set *models.TransformerSet, rec featureRecord) []float64 {
	var vec []float64
	for _, col := range numericColumns {
		vec = append(vec, set.Scalers[col].Transform(rec.numeric(col)))
	}
	vec = append(vec, set.Encoder.Encode(map[string]string{
		colFareClass: rec.fareClass,
		colAirline:   rec.airlineID,
		colArrival:   rec.arrivalCode,
		colAircraft:  rec.aircraftType,
	})...)
	vec = append(vec, set.Refund.Encode(rec.refund)...)
	vec = append(vec,
		float64(rec.departureTime.Hour()),
		float64(mondayIndexedWeekday(rec.departureTime)),
		float64(leadDays(rec.departureTime, rec.scrapeTime)),
	)
	return vec
}

// featureColumnNames produces the canonical training-matrix layout for a
// fitted bundle, target last.
func featureColumnNames(set *models.TransformerSet) []string {
	var cols []string
	cols = append(cols, numericColumns...)
	cols = append(cols, set.Encoder.FeatureNames()...)
	cols = append(cols, set.Refund.Classes...)
	cols = append(cols, calendarColumns...)
	cols = append(cols, colTarget)

	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = CanonicalColumnName(c)
	}
	return out
}

// mondayIndexedWeekday maps time.Weekday (Sunday=0) to the Monday=0
// convention the training data used.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// leadDays is the whole number of days between scrape and departure,
// floored, so a 20.9-day gap counts as 20 full days.
func leadDays(departure, scrape time.Time) int {
	return int(math.Floor(departure.Sub(scrape).Hours() / 24))
}

func fitScaler(vals []float64) models.StandardScaler {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	// Population standard deviation, matching the training-time fit.
	return models.StandardScaler{Mean: mean, Std: math.Sqrt(sq / float64(len(vals)))}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalColumnName normalizes a feature-column name to its canonical
// form: transliterated to plain ASCII, bullet characters trimmed from the
// ends, internal whitespace collapsed to underscores, commas removed. The
// exact same normalization runs at training and inference time.
func CanonicalColumnName(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}
	// NFD does not decompose the Vietnamese đ.
	folded = strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
	folded = strings.Trim(folded, "- ")
	folded = strings.Join(strings.Fields(folded), "_")
	return strings.ReplaceAll(folded, ",", "")
}
