package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Gabien21/project-airfare/models"
)

// rawHeader is the scrape-file column layout, one file per route per batch.
var rawHeader = []string{
	"Departure Location", "Departure Time", "Arrival Location", "Arrival Time",
	"Flight Duration", "Aircraft Type", "Ticket Price", "Passenger Type",
	"Number of Tickets", "Price per Ticket", "Taxes & Fees", "Total Price",
	"Carry-on Baggage", "Checked Baggage", "Refund Policy", "Scrape Time",
}

const (
	dayFirstLayout = "02/01/2006 15:04"
	scrapeLayout   = "2006-01-02 15:04:05"
)

// WriteRawCSV saves one route's raw scrape table. Intermediate directories
// are created automatically.
func WriteRawCSV(path string, rows []*models.RawFlight) error {
	return writeCSV(path, rawHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.DepartureLocation, r.DepartureTime, r.ArrivalLocation, r.ArrivalTime,
			r.FlightDuration, r.AircraftType, r.TicketDescriptor, r.PassengerType,
			r.NumberOfTickets, r.PricePerTicket, r.TaxesAndFees, r.TotalPrice,
			r.CarryOnBaggage, r.CheckedBaggage, r.RefundPolicy, r.ScrapeTime,
		}
	})
}

// ReadRawCSV loads one route's raw scrape table, locating columns by header
// name so column order in the file does not matter.
func ReadRawCSV(path string) ([]*models.RawFlight, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %q is empty", path)
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[name] = i
	}
	for _, name := range rawHeader {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("csv: %q is missing column %q", path, name)
		}
	}

	field := func(row []string, name string) string {
		i := idx[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]*models.RawFlight, 0, len(records)-1)
	for _, row := range records[1:] {
		out = append(out, &models.RawFlight{
			DepartureLocation: field(row, "Departure Location"),
			DepartureTime:     field(row, "Departure Time"),
			ArrivalLocation:   field(row, "Arrival Location"),
			ArrivalTime:       field(row, "Arrival Time"),
			FlightDuration:    field(row, "Flight Duration"),
			AircraftType:      field(row, "Aircraft Type"),
			TicketDescriptor:  field(row, "Ticket Price"),
			PassengerType:     field(row, "Passenger Type"),
			NumberOfTickets:   field(row, "Number of Tickets"),
			PricePerTicket:    field(row, "Price per Ticket"),
			TaxesAndFees:      field(row, "Taxes & Fees"),
			TotalPrice:        field(row, "Total Price"),
			CarryOnBaggage:    field(row, "Carry-on Baggage"),
			CheckedBaggage:    field(row, "Checked Baggage"),
			RefundPolicy:      field(row, "Refund Policy"),
			ScrapeTime:        field(row, "Scrape Time"),
		})
	}
	return out, nil
}

// WriteCleanCSV saves the combined cleaned dataset. Null fields serialize
// as empty strings; refund policies as JSON arrays.
func WriteCleanCSV(path string, rows []*models.CleanFlight) error {
	header := []string{
		"Departure Location", "Departure Location Code", "Departure Time",
		"Arrival Location", "Arrival Location Code", "Arrival Time",
		"Flight Duration", "Aircraft Type", "Airline", "Flight Code", "Fare Class",
		"Passenger Type", "Number of Tickets", "Price per Ticket", "Taxes & Fees",
		"Total Price", "Carry-on Baggage", "Checked Baggage", "Refund Policy", "Scrape Time",
	}
	return writeCSV(path, header, len(rows), func(i int) []string {
		r := rows[i]
		policy, _ := json.Marshal(r.RefundPolicy)
		return []string{
			strOrEmpty(r.DepartureName), strOrEmpty(r.DepartureCode), timeOrEmpty(r.DepartureTime, dayFirstLayout),
			strOrEmpty(r.ArrivalName), strOrEmpty(r.ArrivalCode), timeOrEmpty(r.ArrivalTime, dayFirstLayout),
			floatOrEmpty(r.DurationHours), strOrEmpty(r.AircraftType),
			strOrEmpty(r.Airline), strOrEmpty(r.FlightCode), strOrEmpty(r.FareClass),
			strOrEmpty(r.PassengerType), intOrEmpty(r.NumberOfTickets),
			int64OrEmpty(r.PricePerTicket), int64OrEmpty(r.TaxesAndFees), int64OrEmpty(r.TotalPrice),
			intOrEmpty(r.CarryOnKg), intOrEmpty(r.CheckedKg),
			string(policy), timeOrEmpty(r.ScrapeTime, scrapeLayout),
		}
	})
}

// WriteTableCSVs snapshots the five normalized tables under dir.
func WriteTableCSVs(dir string, t *models.NormalizedTables) error {
	if err := writeCSV(filepath.Join(dir, "airport.csv"),
		[]string{"AirportCode", "Location"}, len(t.Airports), func(i int) []string {
			return []string{t.Airports[i].Code, t.Airports[i].Name}
		}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "airline.csv"),
		[]string{"Airline_id", "Airline"}, len(t.Airlines), func(i int) []string {
			return []string{t.Airlines[i].ID, t.Airlines[i].Name}
		}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "refund_policy.csv"),
		[]string{"Airline_id", "Fare Class", "Refund Policy"}, len(t.RefundPolicies), func(i int) []string {
			p := t.RefundPolicies[i]
			clauses, _ := json.Marshal(p.Clauses)
			return []string{p.AirlineID, p.FareClass, string(clauses)}
		}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "flight_schedule.csv"),
		[]string{"Departure Time", "Flight Code", "Departure Location Code",
			"Arrival Location Code", "Arrival Time", "Flight Duration", "Aircraft Type"},
		len(t.FlightSchedules), func(i int) []string {
			s := t.FlightSchedules[i]
			return []string{
				s.DepartureTime.Format(dayFirstLayout), s.FlightCode, s.DepartureCode,
				s.ArrivalCode, s.ArrivalTime.Format(dayFirstLayout),
				strconv.FormatFloat(s.DurationHours, 'f', -1, 64), s.AircraftType,
			}
		}); err != nil {
		return err
	}

	return writeCSV(filepath.Join(dir, "ticket.csv"),
		[]string{"Departure Time", "Flight Code", "Departure Location Code", "Airline_id",
			"Fare Class", "Passenger Type", "Number of Tickets", "Price per Ticket",
			"Taxes & Fees", "Total Price", "Carry-on Baggage", "Checked Baggage", "Scrape Time"},
		len(t.Tickets), func(i int) []string {
			tk := t.Tickets[i]
			return []string{
				tk.DepartureTime.Format(dayFirstLayout), tk.FlightCode, tk.DepartureCode,
				tk.AirlineID, tk.FareClass, strOrEmpty(tk.PassengerType), intOrEmpty(tk.NumberOfTickets),
				int64OrEmpty(tk.PricePerTicket), int64OrEmpty(tk.TaxesAndFees), int64OrEmpty(tk.TotalPrice),
				intOrEmpty(tk.CarryOnKg), intOrEmpty(tk.CheckedKg), tk.ScrapeTime.Format(scrapeLayout),
			}
		})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func int64OrEmpty(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func timeOrEmpty(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}
