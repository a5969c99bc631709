package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissing marks a field that was absent in the scrape, as opposed to
// present but malformed. Callers treat both as null but may log differently.
var ErrMissing = errors.New("field missing")

const (
	// Delimiters and markers as they appear on the booking site.
	currencySuffix     = "VNĐ"
	flightCodeDelim    = "Chuyến bay:"
	fareClassDelim     = "Hạng vé :"
	hourWord           = "giờ"
	minuteWord         = "phút"
	aircraftPrefix     = "Máy bay:"
	wideBodyNote       = "(máy bay lớn)"
	chooseLaterMessage = "Vui lòng chọn ở bước tiếp theo"

	// defaultMultiCarryOnKg stands in for "2x23kg"-style multi-piece
	// allowances. 18 is the approximation used when the dataset was first
	// labeled, kept as-is rather than computing pieces*weight.
	defaultMultiCarryOnKg = 18
)

func isMissing(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none")
}

// ParseCurrency turns "1,234,567 VNĐ" into 1234567. The currency suffix is
// optional; thousands separators are stripped.
func ParseCurrency(raw string) (int64, error) {
	if isMissing(raw) {
		return 0, ErrMissing
	}
	s := strings.SplitN(raw, currencySuffix, 2)[0]
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed price %q: %w", raw, err)
	}
	return v, nil
}

// ParseDuration turns "2 giờ 30 phút" into fractional hours (2.5), rounded
// to two decimals.
func ParseDuration(raw string) (float64, error) {
	if isMissing(raw) {
		return 0, ErrMissing
	}
	parts := strings.SplitN(raw, hourWord, 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed duration %q", raw)
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed duration hours %q: %w", raw, err)
	}
	minStr := strings.TrimSpace(strings.ReplaceAll(parts[1], minuteWord, ""))
	minutes, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed duration minutes %q: %w", raw, err)
	}
	return math.Round((hours+minutes/60)*100) / 100, nil
}

// ParseCarryOn turns "7kg" into 7. Multi-piece allowances like "2x23kg" map
// to defaultMultiCarryOnKg.
func ParseCarryOn(raw string) (int, error) {
	if isMissing(raw) {
		return 0, ErrMissing
	}
	if strings.Contains(raw, "x") {
		return defaultMultiCarryOnKg, nil
	}
	return parseKilograms(raw)
}

// ParseChecked turns "20kg" into 20. The site's choose-later placeholder
// means no allowance was selected yet and maps to missing.
func ParseChecked(raw string) (int, error) {
	if isMissing(raw) || strings.TrimSpace(raw) == chooseLaterMessage {
		return 0, ErrMissing
	}
	return parseKilograms(raw)
}

func parseKilograms(raw string) (int, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "kg", ""))
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("malformed baggage weight %q: %w", raw, err)
	}
	return v, nil
}

// ParseTicketDescriptor splits the composite ticket string into
// (airline name, flight code, fare class). Example input:
//
//	"Vietnam Airlines Chuyến bay: VN212 Hạng vé : Economy"
//
// Any split failure yields an error and the caller nulls all three columns.
func ParseTicketDescriptor(raw string) (airline, flightCode, fareClass string, err error) {
	if isMissing(raw) {
		return "", "", "", ErrMissing
	}
	parts := strings.SplitN(raw, flightCodeDelim, 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("malformed ticket descriptor %q", raw)
	}
	airline = strings.TrimSpace(parts[0])
	rest := strings.SplitN(parts[1], fareClassDelim, 2)
	if len(rest) != 2 {
		return "", "", "", fmt.Errorf("malformed ticket descriptor %q", raw)
	}
	return airline, strings.TrimSpace(rest[0]), strings.TrimSpace(rest[1]), nil
}

// ParseLocation splits "Hà Nội (HAN)" into ("Hà Nội", "HAN").
func ParseLocation(raw string) (name, code string, err error) {
	if isMissing(raw) {
		return "", "", ErrMissing
	}
	open := strings.Index(raw, "(")
	if open < 0 {
		return "", "", fmt.Errorf("malformed location %q", raw)
	}
	name = strings.TrimSpace(raw[:open])
	code = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw[open+1:]), ")"))
	if code == "" {
		return "", "", fmt.Errorf("malformed location %q", raw)
	}
	return name, code, nil
}

// FormatLocation is the inverse of ParseLocation.
func FormatLocation(name, code string) string {
	return name + " (" + code + ")"
}

// CleanAircraftType strips the site's label prefix and wide-body note from
// an aircraft string: "Máy bay: Airbus A321 (máy bay lớn)" → "Airbus A321".
func CleanAircraftType(raw string) (string, error) {
	if isMissing(raw) {
		return "", ErrMissing
	}
	s := strings.ReplaceAll(raw, aircraftPrefix, "")
	s = strings.ReplaceAll(s, wideBodyNote, "")
	return strings.TrimSpace(s), nil
}

// ParseRefundPolicy parses a Python-literal list of strings, the format the
// scraper serialized policy clauses in:
//
//	"['- Không hoàn vé', '- Phí đổi vé 300,000 VNĐ']"
//
// Malformed input returns an empty slice and an error; the row keeps going.
func ParseRefundPolicy(raw string) ([]string, error) {
	if isMissing(raw) {
		return []string{}, nil
	}
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return []string{}, fmt.Errorf("malformed refund policy %q", raw)
	}
	body := s[1 : len(s)-1]

	clauses := []string{}
	i := 0
	for i < len(body) {
		switch body[i] {
		case ' ', '\t', '\n', ',':
			i++
		case '\'', '"':
			quote := body[i]
			i++
			var sb strings.Builder
			closed := false
			for i < len(body) {
				c := body[i]
				if c == '\\' && i+1 < len(body) {
					next := body[i+1]
					switch next {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					default:
						sb.WriteByte(next)
					}
					i += 2
					continue
				}
				if c == quote {
					closed = true
					i++
					break
				}
				sb.WriteByte(c)
				i++
			}
			if !closed {
				return []string{}, fmt.Errorf("malformed refund policy %q: unterminated string", raw)
			}
			clauses = append(clauses, sb.String())
		default:
			return []string{}, fmt.Errorf("malformed refund policy %q: unexpected byte %q", raw, body[i])
		}
	}
	return clauses, nil
}

// Timestamp layouts used across the scrape files. Departure and arrival
// times are day-first as rendered by the site; scrape time is ISO-like.
var dayFirstLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"15:04 02/01/2006",
}

var scrapeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDayFirstTime parses a day-first flight timestamp.
func ParseDayFirstTime(raw string) (time.Time, error) {
	if isMissing(raw) {
		return time.Time{}, ErrMissing
	}
	s := strings.TrimSpace(raw)
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed day-first timestamp %q", raw)
}

// ParseScrapeTime parses a scrape timestamp.
func ParseScrapeTime(raw string) (time.Time, error) {
	if isMissing(raw) {
		return time.Time{}, ErrMissing
	}
	s := strings.TrimSpace(raw)
	for _, layout := range scrapeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed scrape timestamp %q", raw)
}
