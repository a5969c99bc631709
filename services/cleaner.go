package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

// Cleaner transforms raw scraped flight rows into typed CleanFlight records.
// Parsing degrades gracefully: a malformed field becomes nil and is logged,
// the row itself is never dropped for a field-level failure.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean concatenates the per-route raw tables in order and parses every row.
// The input is assumed raw: the raw→clean boundary is one way, re-cleaning
// already-clean data is not supported.
func (c *Cleaner) Clean(routeTables ...[]*models.RawFlight) []*models.CleanFlight {
	var total int
	for _, t := range routeTables {
		total += len(t)
	}
	result := make([]*models.CleanFlight, 0, total)

	for _, table := range routeTables {
		for _, r := range table {
			result = append(result, c.cleanRow(r))
		}
	}

	c.logger.Info("[cleaner] Cleaned %d rows across %d route tables", len(result), len(routeTables))
	return result
}

func (c *Cleaner) cleanRow(r *models.RawFlight) *models.CleanFlight {
	row := &models.CleanFlight{}

	if name, code, err := ParseLocation(r.DepartureLocation); err == nil {
		row.DepartureName, row.DepartureCode = &name, &code
	} else {
		c.logField("departure location", r.DepartureLocation, err)
	}
	if name, code, err := ParseLocation(r.ArrivalLocation); err == nil {
		row.ArrivalName, row.ArrivalCode = &name, &code
	} else {
		c.logField("arrival location", r.ArrivalLocation, err)
	}

	if t, err := ParseDayFirstTime(r.DepartureTime); err == nil {
		row.DepartureTime = t
	} else {
		c.logField("departure time", r.DepartureTime, err)
	}
	if t, err := ParseDayFirstTime(r.ArrivalTime); err == nil {
		row.ArrivalTime = t
	} else {
		c.logField("arrival time", r.ArrivalTime, err)
	}
	if t, err := ParseScrapeTime(r.ScrapeTime); err == nil {
		row.ScrapeTime = t
	} else {
		c.logField("scrape time", r.ScrapeTime, err)
	}

	if d, err := ParseDuration(r.FlightDuration); err == nil {
		row.DurationHours = &d
	} else {
		c.logField("flight duration", r.FlightDuration, err)
	}
	if a, err := CleanAircraftType(r.AircraftType); err == nil {
		row.AircraftType = &a
	} else {
		c.logField("aircraft type", r.AircraftType, err)
	}

	// One bad composite string nulls all three derived columns together.
	if airline, code, fare, err := ParseTicketDescriptor(r.TicketDescriptor); err == nil {
		row.Airline, row.FlightCode, row.FareClass = &airline, &code, &fare
	} else {
		c.logField("ticket descriptor", r.TicketDescriptor, err)
	}

	if p := strings.TrimSpace(r.PassengerType); p != "" {
		row.PassengerType = &p
	}
	if n, err := strconv.Atoi(strings.TrimSpace(r.NumberOfTickets)); err == nil {
		row.NumberOfTickets = &n
	}

	if v, err := ParseCurrency(r.PricePerTicket); err == nil {
		row.PricePerTicket = &v
	} else {
		c.logField("price per ticket", r.PricePerTicket, err)
	}
	if v, err := ParseCurrency(r.TaxesAndFees); err == nil {
		row.TaxesAndFees = &v
	} else {
		c.logField("taxes & fees", r.TaxesAndFees, err)
	}
	if v, err := ParseCurrency(r.TotalPrice); err == nil {
		row.TotalPrice = &v
	} else {
		c.logField("total price", r.TotalPrice, err)
	}

	if kg, err := ParseCarryOn(r.CarryOnBaggage); err == nil {
		row.CarryOnKg = &kg
	} else {
		c.logField("carry-on baggage", r.CarryOnBaggage, err)
	}
	if kg, err := ParseChecked(r.CheckedBaggage); err == nil {
		row.CheckedKg = &kg
	} else {
		c.logField("checked baggage", r.CheckedBaggage, err)
	}

	policy, err := ParseRefundPolicy(r.RefundPolicy)
	if err != nil {
		c.logField("refund policy", r.RefundPolicy, err)
	}
	row.RefundPolicy = policy

	return row
}

// logField records a parse failure. Missing fields are routine and logged at
// debug; malformed values deserve a warning.
func (c *Cleaner) logField(field, raw string, err error) {
	if errors.Is(err, ErrMissing) {
		c.logger.Debug("[cleaner] Missing %s", field)
		return
	}
	c.logger.Warn("[cleaner] Unparseable %s %q: %v", field, raw, err)
}
