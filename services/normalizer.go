package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

// Normalizer decomposes a clean flat table into the five-entity schema:
// AIRPORT and AIRLINE dimensions, REFUND_POLICY, FLIGHT_SCHEDULE and TICKET.
// Deduplication is exact-string based; callers needing fuzzy matching must
// pre-normalize. Null key fields produce null-keyed rows, never errors.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize projects a fresh batch with batch-local surrogate ids.
func (n *Normalizer) Normalize(rows []*models.CleanFlight) *models.NormalizedTables {
	return n.NormalizeWithExisting(rows, nil, nil)
}

// NormalizeWithExisting merges against previously persisted dimensions before
// minting surrogate ids, so incremental loads never reassign an airline id.
// New airlines continue numbering after the highest persisted ordinal.
func (n *Normalizer) NormalizeWithExisting(rows []*models.CleanFlight,
	existingAirports []models.Airport, existingAirlines []models.Airline) *models.NormalizedTables {

	t := &models.NormalizedTables{}

	n.logger.Debug("[normalizer] Generating AIRPORT table...")
	t.Airports = n.projectAirports(rows, existingAirports)

	n.logger.Debug("[normalizer] Generating AIRLINE table...")
	airlineID := make(map[string]string)
	t.Airlines = n.projectAirlines(rows, existingAirlines, airlineID)

	n.logger.Debug("[normalizer] Generating REFUND_POLICY table...")
	t.RefundPolicies = n.projectRefundPolicies(rows, airlineID)

	n.logger.Debug("[normalizer] Generating FLIGHT_SCHEDULE table...")
	t.FlightSchedules = n.projectFlightSchedules(rows)

	n.logger.Debug("[normalizer] Generating TICKET table...")
	t.Tickets = n.projectTickets(rows, airlineID)

	n.logger.Info("[normalizer] %d airports | %d airlines | %d policies | %d schedules | %d tickets",
		len(t.Airports), len(t.Airlines), len(t.RefundPolicies), len(t.FlightSchedules), len(t.Tickets))
	return t
}

func (n *Normalizer) projectAirports(rows []*models.CleanFlight, existing []models.Airport) []models.Airport {
	seen := make(map[string]struct{})
	var out []models.Airport

	add := func(code, name string) {
		key := code + "\x00" + name
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, models.Airport{Code: code, Name: name})
	}

	for _, a := range existing {
		add(a.Code, a.Name)
	}
	// Departure column first, then arrival, matching load order downstream.
	for _, r := range rows {
		add(deref(r.DepartureCode), deref(r.DepartureName))
	}
	for _, r := range rows {
		add(deref(r.ArrivalCode), deref(r.ArrivalName))
	}
	return out
}

func (n *Normalizer) projectAirlines(rows []*models.CleanFlight, existing []models.Airline, idByName map[string]string) []models.Airline {
	var out []models.Airline
	maxOrdinal := 0

	for _, a := range existing {
		if _, dup := idByName[a.Name]; dup {
			continue
		}
		idByName[a.Name] = a.ID
		out = append(out, a)
		if ord, err := strconv.Atoi(strings.TrimPrefix(a.ID, "AL")); err == nil && ord > maxOrdinal {
			maxOrdinal = ord
		}
	}

	for _, r := range rows {
		if r.Airline == nil {
			continue
		}
		name := *r.Airline
		if _, dup := idByName[name]; dup {
			continue
		}
		maxOrdinal++
		id := fmt.Sprintf("AL%03d", maxOrdinal)
		idByName[name] = id
		out = append(out, models.Airline{ID: id, Name: name})
	}
	return out
}

func (n *Normalizer) projectRefundPolicies(rows []*models.CleanFlight, idByName map[string]string) []models.RefundPolicy {
	seen := make(map[string]struct{})
	var out []models.RefundPolicy

	for _, r := range rows {
		id := idByName[deref(r.Airline)]
		fare := deref(r.FareClass)
		key := id + "\x00" + fare + "\x00" + strings.Join(r.RefundPolicy, "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.RefundPolicy{
			AirlineID: id,
			FareClass: fare,
			Clauses:   append([]string(nil), r.RefundPolicy...),
		})
	}
	return out
}

func (n *Normalizer) projectFlightSchedules(rows []*models.CleanFlight) []models.FlightSchedule {
	seen := make(map[string]struct{})
	var out []models.FlightSchedule

	for _, r := range rows {
		s := models.FlightSchedule{
			DepartureTime: r.DepartureTime,
			FlightCode:    deref(r.FlightCode),
			DepartureCode: deref(r.DepartureCode),
			ArrivalCode:   deref(r.ArrivalCode),
			ArrivalTime:   r.ArrivalTime,
			DurationHours: derefFloat(r.DurationHours),
			AircraftType:  deref(r.AircraftType),
		}
		key := fmt.Sprintf("%d\x00%s\x00%s\x00%s\x00%d\x00%v\x00%s",
			s.DepartureTime.Unix(), s.FlightCode, s.DepartureCode,
			s.ArrivalCode, s.ArrivalTime.Unix(), s.DurationHours, s.AircraftType)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (n *Normalizer) projectTickets(rows []*models.CleanFlight, idByName map[string]string) []models.Ticket {
	seen := make(map[string]struct{})
	var out []models.Ticket

	for _, r := range rows {
		tk := models.Ticket{
			DepartureTime:   r.DepartureTime,
			FlightCode:      deref(r.FlightCode),
			DepartureCode:   deref(r.DepartureCode),
			AirlineID:       idByName[deref(r.Airline)],
			FareClass:       deref(r.FareClass),
			PassengerType:   r.PassengerType,
			NumberOfTickets: r.NumberOfTickets,
			PricePerTicket:  r.PricePerTicket,
			TaxesAndFees:    r.TaxesAndFees,
			TotalPrice:      r.TotalPrice,
			CarryOnKg:       r.CarryOnKg,
			CheckedKg:       r.CheckedKg,
			ScrapeTime:      r.ScrapeTime,
		}
		key := fmt.Sprintf("%d\x00%s\x00%s\x00%s\x00%s\x00%s\x00%v\x00%v\x00%v\x00%v\x00%v\x00%v\x00%d",
			tk.DepartureTime.Unix(), tk.FlightCode, tk.DepartureCode, tk.AirlineID, tk.FareClass,
			deref(tk.PassengerType), derefInt(tk.NumberOfTickets), derefInt64(tk.PricePerTicket),
			derefInt64(tk.TaxesAndFees), derefInt64(tk.TotalPrice),
			derefInt(tk.CarryOnKg), derefInt(tk.CheckedKg), tk.ScrapeTime.Unix())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tk)
	}
	return out
}

// Join rebuilds the flat modeling frame: TICKET inner-joined to
// FLIGHT_SCHEDULE on the schedule natural key and to REFUND_POLICY on
// (airline id, fare class). Tickets without both matches are skipped, same
// as an inner merge.
func (n *Normalizer) Join(t *models.NormalizedTables) []*models.JoinedRow {
	scheduleByKey := make(map[string]models.FlightSchedule, len(t.FlightSchedules))
	for _, s := range t.FlightSchedules {
		scheduleByKey[scheduleKey(s.DepartureTime, s.FlightCode, s.DepartureCode)] = s
	}
	policyByKey := make(map[string][]string, len(t.RefundPolicies))
	for _, p := range t.RefundPolicies {
		policyByKey[p.AirlineID+"\x00"+p.FareClass] = p.Clauses
	}

	var out []*models.JoinedRow
	for _, tk := range t.Tickets {
		s, ok := scheduleByKey[scheduleKey(tk.DepartureTime, tk.FlightCode, tk.DepartureCode)]
		if !ok {
			n.logger.Debug("[normalizer] Ticket %s %s has no flight schedule, skipping in join",
				tk.FlightCode, tk.DepartureTime.Format("2006-01-02 15:04"))
			continue
		}
		clauses, ok := policyByKey[tk.AirlineID+"\x00"+tk.FareClass]
		if !ok {
			n.logger.Debug("[normalizer] Ticket %s/%s has no refund policy, skipping in join",
				tk.AirlineID, tk.FareClass)
			continue
		}
		if tk.TotalPrice == nil {
			n.logger.Debug("[normalizer] Ticket %s has no total price, skipping in join", tk.FlightCode)
			continue
		}
		out = append(out, &models.JoinedRow{
			CarryOnKg:       tk.CarryOnKg,
			CheckedKg:       tk.CheckedKg,
			DurationHours:   s.DurationHours,
			TotalPrice:      *tk.TotalPrice,
			AirlineID:       tk.AirlineID,
			FareClass:       tk.FareClass,
			ArrivalCode:     s.ArrivalCode,
			AircraftType:    s.AircraftType,
			PassengerType:   tk.PassengerType,
			NumberOfTickets: tk.NumberOfTickets,
			PricePerTicket:  tk.PricePerTicket,
			TaxesAndFees:    tk.TaxesAndFees,
			FlightCode:      tk.FlightCode,
			DepartureCode:   tk.DepartureCode,
			RefundPolicy:    append([]string(nil), clauses...),
			DepartureTime:   tk.DepartureTime,
			ArrivalTime:     s.ArrivalTime,
			ScrapeTime:      tk.ScrapeTime,
		})
	}
	return out
}

func scheduleKey(dep time.Time, flightCode, depCode string) string {
	return fmt.Sprintf("%d\x00%s\x00%s", dep.Unix(), flightCode, depCode)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func derefInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
