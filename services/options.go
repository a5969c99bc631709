package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

// OptionCatalog enumerates the input choices the presentation layer offers:
// distinct values per categorical column plus nested per-(airline, fare
// class) baggage and refund choices and per-arrival duration bounds. It is a
// read-only projection of the latest clean dataset.
type OptionCatalog struct {
	DepartureLocations []string                             `json:"Departure Location"`
	ArrivalLocations   []string                             `json:"Arrival Location"`
	Airlines           []string                             `json:"Airline"`
	AircraftTypes      []string                             `json:"Aircraft Type"`
	FlightDuration     DurationBounds                       `json:"Flight Duration"`
	Baggage            map[string]map[string]BaggageOptions `json:"Baggage"`
	RefundPolicy       map[string]map[string][]string       `json:"Refund Policy"`
}

// DurationBounds holds min/max observed flight duration per arrival location.
type DurationBounds struct {
	Min map[string]float64 `json:"min"`
	Max map[string]float64 `json:"max"`
}

// BaggageOptions lists the allowance choices observed for one fare class.
type BaggageOptions struct {
	CarryOn []int `json:"carry_on"`
	Checked []int `json:"checked"`
}

// OptionService derives the OptionCatalog and a terminal summary from a
// clean dataset.
type OptionService struct {
	logger *utils.Logger
}

// NewOptionService creates an OptionService with the given logger.
func NewOptionService(logger *utils.Logger) *OptionService {
	return &OptionService{logger: logger}
}

// Generate builds the catalog from clean rows. Rows missing the relevant
// fields simply do not contribute choices.
func (s *OptionService) Generate(rows []*models.CleanFlight) *OptionCatalog {
	cat := &OptionCatalog{
		FlightDuration: DurationBounds{Min: map[string]float64{}, Max: map[string]float64{}},
		Baggage:        map[string]map[string]BaggageOptions{},
		RefundPolicy:   map[string]map[string][]string{},
	}

	departures := map[string]struct{}{}
	arrivals := map[string]struct{}{}
	airlines := map[string]struct{}{}
	aircraft := map[string]struct{}{}
	carryOn := map[string]map[string]map[int]struct{}{}
	checked := map[string]map[string]map[int]struct{}{}
	policies := map[string]map[string]map[string]struct{}{}

	for _, r := range rows {
		if r.DepartureName != nil {
			departures[*r.DepartureName] = struct{}{}
		}
		if r.ArrivalName != nil {
			arrivals[*r.ArrivalName] = struct{}{}
			if r.DurationHours != nil {
				name, d := *r.ArrivalName, *r.DurationHours
				if cur, ok := cat.FlightDuration.Min[name]; !ok || d < cur {
					cat.FlightDuration.Min[name] = d
				}
				if cur, ok := cat.FlightDuration.Max[name]; !ok || d > cur {
					cat.FlightDuration.Max[name] = d
				}
			}
		}
		if r.AircraftType != nil {
			aircraft[*r.AircraftType] = struct{}{}
		}
		if r.Airline == nil || r.FareClass == nil {
			continue
		}
		al, fare := *r.Airline, *r.FareClass
		airlines[al] = struct{}{}

		if r.CarryOnKg != nil {
			addChoice(carryOn, al, fare, *r.CarryOnKg)
		}
		if r.CheckedKg != nil {
			addChoice(checked, al, fare, *r.CheckedKg)
		}
		for _, clause := range r.RefundPolicy {
			if policies[al] == nil {
				policies[al] = map[string]map[string]struct{}{}
			}
			if policies[al][fare] == nil {
				policies[al][fare] = map[string]struct{}{}
			}
			policies[al][fare][clause] = struct{}{}
		}
	}

	cat.DepartureLocations = sortedKeys(departures)
	cat.ArrivalLocations = sortedKeys(arrivals)
	cat.Airlines = sortedKeys(airlines)
	cat.AircraftTypes = sortedKeys(aircraft)

	for al := range airlines {
		cat.Baggage[al] = map[string]BaggageOptions{}
		for fare := range union(carryOn[al], checked[al]) {
			cat.Baggage[al][fare] = BaggageOptions{
				CarryOn: sortedInts(carryOn[al][fare]),
				Checked: sortedInts(checked[al][fare]),
			}
		}
	}
	for al, byFare := range policies {
		cat.RefundPolicy[al] = map[string][]string{}
		for fare, set := range byFare {
			cat.RefundPolicy[al][fare] = sortedKeys(set)
		}
	}

	return cat
}

// WriteJSON saves the catalog where the presentation layer reads it.
func (s *OptionService) WriteJSON(cat *OptionCatalog, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("options: create output dir: %w", err)
	}
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("options: marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("options: write %q: %w", path, err)
	}
	s.logger.Info("[options] Catalog saved to %s", path)
	return nil
}

// PrintSummary reports the clean batch on the terminal after ETL.
func (s *OptionService) PrintSummary(rows []*models.CleanFlight) {
	sep := strings.Repeat("═", 54)
	fmt.Printf("\n%s\n  FLIGHT ETL SUMMARY\n%s\n\n", sep, sep)
	fmt.Printf("  Clean rows : %d\n", len(rows))

	routes := map[string]int{}
	var minPrice, maxPrice, sum int64
	var priced int
	for _, r := range rows {
		if r.DepartureCode != nil && r.ArrivalCode != nil {
			routes[*r.DepartureCode+" → "+*r.ArrivalCode]++
		}
		if r.TotalPrice == nil {
			continue
		}
		p := *r.TotalPrice
		if priced == 0 || p < minPrice {
			minPrice = p
		}
		if priced == 0 || p > maxPrice {
			maxPrice = p
		}
		sum += p
		priced++
	}

	routeNames := make([]string, 0, len(routes))
	for k := range routes {
		routeNames = append(routeNames, k)
	}
	sort.Strings(routeNames)
	for _, rt := range routeNames {
		fmt.Printf("  %-12s : %d rows\n", rt, routes[rt])
	}

	if priced > 0 {
		fmt.Printf("\n  Total price (VND)\n")
		fmt.Printf("  Min %d | Avg %d | Max %d\n", minPrice, sum/int64(priced), maxPrice)
	}
	fmt.Printf("%s\n\n", sep)
}

func addChoice(m map[string]map[string]map[int]struct{}, airline, fare string, kg int) {
	if m[airline] == nil {
		m[airline] = map[string]map[int]struct{}{}
	}
	if m[airline][fare] == nil {
		m[airline][fare] = map[int]struct{}{}
	}
	m[airline][fare][kg] = struct{}{}
}

func union(a, b map[string]map[int]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
