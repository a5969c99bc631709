package storage

import (
	"time"

	"github.com/Gabien21/project-airfare/models"
)

// LoadMode selects how a table write treats existing rows.
type LoadMode int

const (
	// Replace truncates the table before writing.
	Replace LoadMode = iota
	// Append keeps existing rows.
	Append
)

// TableStore is the contract any dimension/fact backend must satisfy.
type TableStore interface {
	WriteTables(t *models.NormalizedTables, mode LoadMode) error
	FetchAirports() ([]models.Airport, error)
	FetchAirlines() ([]models.Airline, error)
	FetchJoined() ([]*models.JoinedRow, error)
	Close() error
}

// RetentionStore prunes stale fact rows and dimension duplicates. Cleanup
// reports how many tickets were removed.
type RetentionStore interface {
	Cleanup(cutoff time.Time) (int64, error)
}
