package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

func TestOptionCatalogGenerate(t *testing.T) {
	dep := time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC)
	a := cleanRow("Vietnam Airlines", "VN212", "Phổ thông", dep, 1950000)
	b := cleanRow("VietJet Air", "VJ130", "Eco", dep.Add(time.Hour), 1200000)
	b.ArrivalName = strPtr("Đà Nẵng")
	b.ArrivalCode = strPtr("DAD")
	b.DurationHours = floatPtr(1.25)
	b.CarryOnKg = intPtr(7)
	b.CheckedKg = nil
	c := cleanRow("Vietnam Airlines", "VN214", "Phổ thông", dep.Add(2*time.Hour), 2100000)
	c.CheckedKg = intPtr(30)
	c.DurationHours = floatPtr(2.25)

	svc := NewOptionService(utils.NewLogger())
	cat := svc.Generate([]*models.CleanFlight{a, b, c})

	if !reflect.DeepEqual(cat.Airlines, []string{"VietJet Air", "Vietnam Airlines"}) {
		t.Errorf("airlines = %v", cat.Airlines)
	}
	if !reflect.DeepEqual(cat.ArrivalLocations, []string{"Hà Nội", "Đà Nẵng"}) {
		t.Errorf("arrivals = %v", cat.ArrivalLocations)
	}

	if got := cat.FlightDuration.Min["Hà Nội"]; got != 2.0 {
		t.Errorf("min duration to Hà Nội = %v; want 2", got)
	}
	if got := cat.FlightDuration.Max["Hà Nội"]; got != 2.25 {
		t.Errorf("max duration to Hà Nội = %v; want 2.25", got)
	}
	if got := cat.FlightDuration.Min["Đà Nẵng"]; got != 1.25 {
		t.Errorf("min duration to Đà Nẵng = %v; want 1.25", got)
	}

	vnBag := cat.Baggage["Vietnam Airlines"]["Phổ thông"]
	if !reflect.DeepEqual(vnBag.Checked, []int{20, 30}) {
		t.Errorf("checked choices = %v; want [20 30]", vnBag.Checked)
	}
	vjBag := cat.Baggage["VietJet Air"]["Eco"]
	if len(vjBag.Checked) != 0 {
		t.Errorf("missing checked baggage must not contribute choices, got %v", vjBag.Checked)
	}

	clauses := cat.RefundPolicy["Vietnam Airlines"]["Phổ thông"]
	if !reflect.DeepEqual(clauses, []string{"- Không hoàn vé"}) {
		t.Errorf("refund clauses = %v", clauses)
	}
}

func TestOptionCatalogWriteJSON(t *testing.T) {
	dep := time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC)
	svc := NewOptionService(utils.NewLogger())
	cat := svc.Generate([]*models.CleanFlight{cleanRow("Vietnam Airlines", "VN212", "Phổ thông", dep, 1950000)})

	path := filepath.Join(t.TempDir(), "out", "options.json")
	if err := svc.WriteJSON(cat, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("catalog is not valid JSON: %v", err)
	}
	for _, key := range []string{"Departure Location", "Arrival Location", "Airline",
		"Aircraft Type", "Flight Duration", "Baggage", "Refund Policy"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("catalog JSON missing key %q", key)
		}
	}
}
