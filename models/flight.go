package models

import "time"

// RawFlight holds one scraped flight offer exactly as it appears on the
// search-result page. All fields are raw strings; nothing is parsed until
// the cleaner runs. Written to CSV per route, then consumed once.
type RawFlight struct {
	DepartureLocation string // "Hồ Chí Minh (SGN)"
	DepartureTime     string // day-first, "22/06/2025 09:00"
	ArrivalLocation   string
	ArrivalTime       string
	FlightDuration    string // "2 giờ 30 phút"
	AircraftType      string // "Máy bay: Airbus A321"
	TicketDescriptor  string // airline + "Chuyến bay:" + code + "Hạng vé :" + class
	PassengerType     string
	NumberOfTickets   string
	PricePerTicket    string // "1,234,567 VNĐ"
	TaxesAndFees      string
	TotalPrice        string
	CarryOnBaggage    string // "7kg", "2x23kg"
	CheckedBaggage    string // "20kg" or the choose-later placeholder
	RefundPolicy      string // Python-literal list of clause strings
	ScrapeTime        string // "2025-06-01 08:00:00"
}

// CleanFlight is one fully parsed listing row. Nullable fields are pointers:
// nil means the raw value was missing or unparseable (logged, never fatal).
type CleanFlight struct {
	DepartureName *string
	DepartureCode *string
	DepartureTime time.Time
	ArrivalName   *string
	ArrivalCode   *string
	ArrivalTime   time.Time

	DurationHours *float64
	AircraftType  *string

	Airline    *string
	FlightCode *string
	FareClass  *string

	PassengerType   *string
	NumberOfTickets *int
	PricePerTicket  *int64
	TaxesAndFees    *int64
	TotalPrice      *int64

	CarryOnKg    *int
	CheckedKg    *int
	RefundPolicy []string

	ScrapeTime time.Time
}

// Airport is a dimension row: one (code, name) pair per airport.
type Airport struct {
	Code string
	Name string
}

// Airline is a dimension row with a pipeline-assigned surrogate id of the
// form "AL001", assigned in first-seen order and merged against the
// persisted table on incremental loads.
type Airline struct {
	ID   string
	Name string
}

// RefundPolicy maps an (airline, fare class) pair to its scraped policy
// clauses, stored verbatim (clause prefixes are stripped at feature time).
type RefundPolicy struct {
	AirlineID string
	FareClass string
	Clauses   []string
}

// FlightSchedule is one scheduled flight instance, naturally keyed by
// (DepartureTime, FlightCode, DepartureCode).
type FlightSchedule struct {
	DepartureTime time.Time
	FlightCode    string
	DepartureCode string
	ArrivalCode   string
	ArrivalTime   time.Time
	DurationHours float64
	AircraftType  string
}

// Ticket is one observed price quote. It carries the full FlightSchedule
// natural key so fact rows always join back to exactly one schedule.
type Ticket struct {
	DepartureTime time.Time
	FlightCode    string
	DepartureCode string

	AirlineID string
	FareClass string

	PassengerType   *string
	NumberOfTickets *int
	PricePerTicket  *int64
	TaxesAndFees    *int64
	TotalPrice      *int64
	CarryOnKg       *int
	CheckedKg       *int

	ScrapeTime time.Time
}

// NormalizedTables bundles the five entity tables produced from one clean batch.
type NormalizedTables struct {
	Airports        []Airport
	Airlines        []Airline
	RefundPolicies  []RefundPolicy
	FlightSchedules []FlightSchedule
	Tickets         []Ticket
}

// JoinedRow is Ticket ⋈ FlightSchedule ⋈ RefundPolicy: the flat frame the
// feature builder consumes.
type JoinedRow struct {
	CarryOnKg     *int
	CheckedKg     *int
	DurationHours float64
	TotalPrice    int64

	AirlineID    string
	FareClass    string
	ArrivalCode  string
	AircraftType string

	PassengerType   *string
	NumberOfTickets *int
	PricePerTicket  *int64
	TaxesAndFees    *int64
	FlightCode      string
	DepartureCode   string

	RefundPolicy []string

	DepartureTime time.Time
	ArrivalTime   time.Time
	ScrapeTime    time.Time
}

// PredictionRequest is one online pricing request. Airline and Arrival hold
// display names that must resolve against the dimension tables before the
// request can be scored; a miss is a hard failure.
type PredictionRequest struct {
	CarryOnKg     *int     `json:"carry_on_baggage"`
	CheckedKg     *int     `json:"checked_baggage"`
	DurationHours float64  `json:"flight_duration"`
	FareClass     string   `json:"fare_class"`
	Airline       string   `json:"airline"`
	Arrival       string   `json:"arrival_location"`
	AircraftType  string   `json:"aircraft_type"`
	RefundPolicy  []string `json:"refund_policy"`
	DepartureTime string   `json:"departure_time"`
	ScrapeTime    string   `json:"scrape_time"`
	Departure     string   `json:"departure_location,omitempty"`
}
