package services

import (
	"testing"
	"time"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

func sampleRaw() *models.RawFlight {
	return &models.RawFlight{
		DepartureLocation: "Hồ Chí Minh (SGN)",
		DepartureTime:     "22/06/2025 09:00",
		ArrivalLocation:   "Hà Nội (HAN)",
		ArrivalTime:       "22/06/2025 11:10",
		FlightDuration:    "2 giờ 10 phút",
		AircraftType:      "Máy bay: Airbus A321",
		TicketDescriptor:  "Vietnam Airlines Chuyến bay: VN212 Hạng vé : Phổ thông",
		PassengerType:     "Người lớn",
		NumberOfTickets:   "1",
		PricePerTicket:    "1,500,000 VNĐ",
		TaxesAndFees:      "450,000 VNĐ",
		TotalPrice:        "1,950,000 VNĐ",
		CarryOnBaggage:    "7kg",
		CheckedBaggage:    "20kg",
		RefundPolicy:      "['- Không hoàn vé']",
		ScrapeTime:        "2025-06-01 08:00:00",
	}
}

func TestCleanerFullRow(t *testing.T) {
	cleaner := NewCleaner(utils.NewLogger())
	rows := cleaner.Clean([]*models.RawFlight{sampleRaw()})
	if len(rows) != 1 {
		t.Fatalf("expected 1 clean row, got %d", len(rows))
	}
	row := rows[0]

	if row.DepartureName == nil || *row.DepartureName != "Hồ Chí Minh" {
		t.Errorf("departure name = %v", row.DepartureName)
	}
	if row.DepartureCode == nil || *row.DepartureCode != "SGN" {
		t.Errorf("departure code = %v", row.DepartureCode)
	}
	if row.ArrivalCode == nil || *row.ArrivalCode != "HAN" {
		t.Errorf("arrival code = %v", row.ArrivalCode)
	}
	want := time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC)
	if !row.DepartureTime.Equal(want) {
		t.Errorf("departure time = %v; want %v", row.DepartureTime, want)
	}
	if row.DurationHours == nil || *row.DurationHours != 2.17 {
		t.Errorf("duration = %v; want 2.17", row.DurationHours)
	}
	if row.AircraftType == nil || *row.AircraftType != "Airbus A321" {
		t.Errorf("aircraft = %v", row.AircraftType)
	}
	if row.Airline == nil || *row.Airline != "Vietnam Airlines" {
		t.Errorf("airline = %v", row.Airline)
	}
	if row.FlightCode == nil || *row.FlightCode != "VN212" {
		t.Errorf("flight code = %v", row.FlightCode)
	}
	if row.FareClass == nil || *row.FareClass != "Phổ thông" {
		t.Errorf("fare class = %v", row.FareClass)
	}
	if row.TotalPrice == nil || *row.TotalPrice != 1950000 {
		t.Errorf("total price = %v", row.TotalPrice)
	}
	if row.CarryOnKg == nil || *row.CarryOnKg != 7 {
		t.Errorf("carry-on = %v", row.CarryOnKg)
	}
	if row.CheckedKg == nil || *row.CheckedKg != 20 {
		t.Errorf("checked = %v", row.CheckedKg)
	}
	if len(row.RefundPolicy) != 1 || row.RefundPolicy[0] != "- Không hoàn vé" {
		t.Errorf("refund policy = %v", row.RefundPolicy)
	}
}

func TestCleanerMalformedFieldsBecomeNull(t *testing.T) {
	raw := sampleRaw()
	raw.TotalPrice = "liên hệ"
	raw.CheckedBaggage = "Vui lòng chọn ở bước tiếp theo"
	raw.FlightDuration = ""

	cleaner := NewCleaner(utils.NewLogger())
	rows := cleaner.Clean([]*models.RawFlight{raw})
	if len(rows) != 1 {
		t.Fatalf("row must survive field-level failures, got %d rows", len(rows))
	}
	row := rows[0]
	if row.TotalPrice != nil {
		t.Errorf("malformed total price should be nil, got %v", *row.TotalPrice)
	}
	if row.CheckedKg != nil {
		t.Errorf("choose-later checked baggage should be nil, got %v", *row.CheckedKg)
	}
	if row.DurationHours != nil {
		t.Errorf("missing duration should be nil, got %v", *row.DurationHours)
	}
	// Untouched fields still parse.
	if row.CarryOnKg == nil || *row.CarryOnKg != 7 {
		t.Errorf("carry-on = %v", row.CarryOnKg)
	}
}

func TestCleanerTicketTripleNull(t *testing.T) {
	raw := sampleRaw()
	raw.TicketDescriptor = "Vietnam Airlines VN212 Phổ thông"

	cleaner := NewCleaner(utils.NewLogger())
	row := cleaner.Clean([]*models.RawFlight{raw})[0]
	if row.Airline != nil || row.FlightCode != nil || row.FareClass != nil {
		t.Errorf("bad descriptor must null airline, flight code and fare class together: %v %v %v",
			row.Airline, row.FlightCode, row.FareClass)
	}
}

func TestCleanerConcatenatesRouteTables(t *testing.T) {
	a := sampleRaw()
	b := sampleRaw()
	b.TicketDescriptor = "VietJet Air Chuyến bay: VJ130 Hạng vé : Eco"

	cleaner := NewCleaner(utils.NewLogger())
	rows := cleaner.Clean([]*models.RawFlight{a}, []*models.RawFlight{b})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if *rows[0].Airline != "Vietnam Airlines" || *rows[1].Airline != "VietJet Air" {
		t.Errorf("route table order not preserved: %q then %q", *rows[0].Airline, *rows[1].Airline)
	}
}
