package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/Gabien21/project-airfare/models"
)

// PostgresStore persists the five-table flight schema in PostgreSQL and
// serves the dimension lookups the online predictor needs.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, runs schema migrations, and returns
// a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS airport (
			airport_code TEXT NOT NULL DEFAULT '',
			location     TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS airline (
			airline_id TEXT NOT NULL,
			airline    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS refund_policy (
			airline_id    TEXT NOT NULL DEFAULT '',
			fare_class    TEXT NOT NULL DEFAULT '',
			refund_policy TEXT NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS flight_schedule (
			departure_time TIMESTAMP NOT NULL,
			flight_code    TEXT      NOT NULL DEFAULT '',
			departure_code TEXT      NOT NULL DEFAULT '',
			arrival_code   TEXT      NOT NULL DEFAULT '',
			arrival_time   TIMESTAMP,
			duration_hours DOUBLE PRECISION,
			aircraft_type  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS ticket (
			departure_time    TIMESTAMP NOT NULL,
			flight_code       TEXT      NOT NULL DEFAULT '',
			departure_code    TEXT      NOT NULL DEFAULT '',
			airline_id        TEXT      NOT NULL DEFAULT '',
			fare_class        TEXT      NOT NULL DEFAULT '',
			passenger_type    TEXT,
			number_of_tickets INT,
			price_per_ticket  BIGINT,
			taxes_fees        BIGINT,
			total_price       BIGINT,
			carry_on_kg       INT,
			checked_kg        INT,
			scrape_time       TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ticket_schedule
			ON ticket(departure_time, flight_code, departure_code);
		CREATE INDEX IF NOT EXISTS idx_ticket_scrape ON ticket(scrape_time);
		CREATE INDEX IF NOT EXISTS idx_airline_name  ON airline(airline);
		CREATE INDEX IF NOT EXISTS idx_airport_name  ON airport(location);
	`)
	return err
}

// WriteTables loads one normalized batch into the five tables. Replace
// truncates each table first; Append keeps prior batches (dimension
// duplicates introduced by appends are pruned by Cleanup).
func (ps *PostgresStore) WriteTables(t *models.NormalizedTables, mode LoadMode) error {
	if mode == Replace {
		for _, table := range []string{"airport", "airline", "refund_policy", "flight_schedule", "ticket"} {
			if _, err := ps.db.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("postgres: clear %s: %w", table, err)
			}
		}
	}

	if err := ps.insertAirports(t.Airports); err != nil {
		return err
	}
	if err := ps.insertAirlines(t.Airlines); err != nil {
		return err
	}
	if err := ps.insertRefundPolicies(t.RefundPolicies); err != nil {
		return err
	}
	if err := ps.insertFlightSchedules(t.FlightSchedules); err != nil {
		return err
	}
	return ps.insertTickets(t.Tickets)
}

const batchSize = 50

func (ps *PostgresStore) insertAirports(rows []models.Airport) error {
	return insertBatched(ps.db, "airport", []string{"airport_code", "location"}, len(rows),
		func(i int) []interface{} {
			return []interface{}{rows[i].Code, rows[i].Name}
		})
}

func (ps *PostgresStore) insertAirlines(rows []models.Airline) error {
	return insertBatched(ps.db, "airline", []string{"airline_id", "airline"}, len(rows),
		func(i int) []interface{} {
			return []interface{}{rows[i].ID, rows[i].Name}
		})
}

func (ps *PostgresStore) insertRefundPolicies(rows []models.RefundPolicy) error {
	return insertBatched(ps.db, "refund_policy", []string{"airline_id", "fare_class", "refund_policy"}, len(rows),
		func(i int) []interface{} {
			clauses, _ := json.Marshal(rows[i].Clauses)
			return []interface{}{rows[i].AirlineID, rows[i].FareClass, string(clauses)}
		})
}

func (ps *PostgresStore) insertFlightSchedules(rows []models.FlightSchedule) error {
	cols := []string{"departure_time", "flight_code", "departure_code", "arrival_code",
		"arrival_time", "duration_hours", "aircraft_type"}
	return insertBatched(ps.db, "flight_schedule", cols, len(rows),
		func(i int) []interface{} {
			s := rows[i]
			return []interface{}{s.DepartureTime, s.FlightCode, s.DepartureCode,
				s.ArrivalCode, s.ArrivalTime, s.DurationHours, s.AircraftType}
		})
}

func (ps *PostgresStore) insertTickets(rows []models.Ticket) error {
	cols := []string{"departure_time", "flight_code", "departure_code", "airline_id", "fare_class",
		"passenger_type", "number_of_tickets", "price_per_ticket", "taxes_fees", "total_price",
		"carry_on_kg", "checked_kg", "scrape_time"}
	return insertBatched(ps.db, "ticket", cols, len(rows),
		func(i int) []interface{} {
			tk := rows[i]
			return []interface{}{tk.DepartureTime, tk.FlightCode, tk.DepartureCode, tk.AirlineID,
				tk.FareClass, tk.PassengerType, tk.NumberOfTickets, tk.PricePerTicket,
				tk.TaxesAndFees, tk.TotalPrice, tk.CarryOnKg, tk.CheckedKg, tk.ScrapeTime}
		})
}

// insertBatched builds multi-row VALUES inserts in batches, mirroring the
// batch size used elsewhere in the codebase.
func insertBatched(db *sql.DB, table string, cols []string, n int, args func(i int) []interface{}) error {
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}

		valueStrings := make([]string, 0, end-start)
		valueArgs := make([]interface{}, 0, (end-start)*len(cols))
		for i := start; i < end; i++ {
			placeholders := make([]string, len(cols))
			for j := range cols {
				placeholders[j] = fmt.Sprintf("$%d", (i-start)*len(cols)+j+1)
			}
			valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
			valueArgs = append(valueArgs, args(i)...)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(cols, ","), strings.Join(valueStrings, ","))
		if _, err := db.Exec(query, valueArgs...); err != nil {
			return fmt.Errorf("postgres: insert into %s: %w", table, err)
		}
	}
	return nil
}

// FetchAirports reads the whole airport dimension.
func (ps *PostgresStore) FetchAirports() ([]models.Airport, error) {
	rows, err := ps.db.Query("SELECT airport_code, location FROM airport")
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch airports: %w", err)
	}
	defer rows.Close()

	var out []models.Airport
	for rows.Next() {
		var a models.Airport
		if err := rows.Scan(&a.Code, &a.Name); err != nil {
			return nil, fmt.Errorf("postgres: scan airport: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FetchAirlines reads the whole airline dimension.
func (ps *PostgresStore) FetchAirlines() ([]models.Airline, error) {
	rows, err := ps.db.Query("SELECT airline_id, airline FROM airline")
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch airlines: %w", err)
	}
	defer rows.Close()

	var out []models.Airline
	for rows.Next() {
		var a models.Airline
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("postgres: scan airline: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FetchJoined materializes TICKET ⋈ FLIGHT_SCHEDULE ⋈ REFUND_POLICY, the
// flat frame the feature builder trains on.
func (ps *PostgresStore) FetchJoined() ([]*models.JoinedRow, error) {
	rows, err := ps.db.Query(`
		SELECT t.carry_on_kg, t.checked_kg, s.duration_hours, t.total_price,
		       t.airline_id, t.fare_class, s.arrival_code, s.aircraft_type,
		       t.passenger_type, t.number_of_tickets, t.price_per_ticket, t.taxes_fees,
		       t.flight_code, t.departure_code, r.refund_policy,
		       t.departure_time, s.arrival_time, t.scrape_time
		FROM ticket t
		JOIN flight_schedule s
		  ON t.departure_time = s.departure_time
		 AND t.flight_code    = s.flight_code
		 AND t.departure_code = s.departure_code
		JOIN refund_policy r
		  ON t.airline_id = r.airline_id
		 AND t.fare_class = r.fare_class
		WHERE t.total_price IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch joined frame: %w", err)
	}
	defer rows.Close()

	var out []*models.JoinedRow
	for rows.Next() {
		var (
			j         models.JoinedRow
			carryOn   sql.NullInt64
			checked   sql.NullInt64
			duration  sql.NullFloat64
			passenger sql.NullString
			numTix    sql.NullInt64
			unitPrice sql.NullInt64
			taxes     sql.NullInt64
			policy    string
		)
		if err := rows.Scan(&carryOn, &checked, &duration, &j.TotalPrice,
			&j.AirlineID, &j.FareClass, &j.ArrivalCode, &j.AircraftType,
			&passenger, &numTix, &unitPrice, &taxes,
			&j.FlightCode, &j.DepartureCode, &policy,
			&j.DepartureTime, &j.ArrivalTime, &j.ScrapeTime); err != nil {
			return nil, fmt.Errorf("postgres: scan joined row: %w", err)
		}
		if carryOn.Valid {
			v := int(carryOn.Int64)
			j.CarryOnKg = &v
		}
		if checked.Valid {
			v := int(checked.Int64)
			j.CheckedKg = &v
		}
		if duration.Valid {
			j.DurationHours = duration.Float64
		}
		if passenger.Valid {
			j.PassengerType = &passenger.String
		}
		if numTix.Valid {
			v := int(numTix.Int64)
			j.NumberOfTickets = &v
		}
		if unitPrice.Valid {
			j.PricePerTicket = &unitPrice.Int64
		}
		if taxes.Valid {
			j.TaxesAndFees = &taxes.Int64
		}
		if err := json.Unmarshal([]byte(policy), &j.RefundPolicy); err != nil {
			j.RefundPolicy = []string{}
		}
		out = append(out, &j)
	}
	return out, rows.Err()
}

// AirlineIDByName resolves an airline display name to its surrogate id.
func (ps *PostgresStore) AirlineIDByName(name string) (string, bool, error) {
	var id string
	err := ps.db.QueryRow("SELECT airline_id FROM airline WHERE airline = $1 LIMIT 1", name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: airline lookup %q: %w", name, err)
	}
	return id, true, nil
}

// AirportCodeByName resolves an airport display name to its code.
func (ps *PostgresStore) AirportCodeByName(name string) (string, bool, error) {
	var code string
	err := ps.db.QueryRow("SELECT airport_code FROM airport WHERE location = $1 LIMIT 1", name).Scan(&code)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: airport lookup %q: %w", name, err)
	}
	return code, true, nil
}

// Cleanup removes tickets scraped before the cutoff, flight schedules no
// ticket references anymore, and duplicate dimension rows introduced by
// append-mode loads.
func (ps *PostgresStore) Cleanup(cutoff time.Time) (int64, error) {
	tx, err := ps.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("postgres: begin cleanup: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM ticket WHERE scrape_time <= $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete old tickets: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := tx.Exec(`
		DELETE FROM flight_schedule s
		WHERE NOT EXISTS (
			SELECT 1 FROM ticket t
			WHERE t.flight_code    = s.flight_code
			  AND t.departure_time = s.departure_time
			  AND t.departure_code = s.departure_code
		)
	`); err != nil {
		return 0, fmt.Errorf("postgres: delete orphan schedules: %w", err)
	}

	dedup := map[string]string{
		"airport":       "airport_code, location",
		"airline":       "airline_id, airline",
		"refund_policy": "airline_id, fare_class, refund_policy",
	}
	for table, cols := range dedup {
		query := fmt.Sprintf(`
			DELETE FROM %[1]s a USING (
				SELECT ctid, ROW_NUMBER() OVER (PARTITION BY %[2]s ORDER BY ctid) AS rn
				FROM %[1]s
			) d
			WHERE a.ctid = d.ctid AND d.rn > 1
		`, table, cols)
		if _, err := tx.Exec(query); err != nil {
			return 0, fmt.Errorf("postgres: dedup %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit cleanup: %w", err)
	}
	return deleted, nil
}

// Close releases the database connection.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
