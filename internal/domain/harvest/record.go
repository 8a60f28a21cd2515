// internal/domain/harvest/record.go
package harvest

import (
	"database/sql"
	"time"
)

// Source tells whether a harvest came from a consortium-wide connection
// or an institution-specific one.
type Source string

const (
	SourceConsortium  Source = "C"
	SourceInstitution Source = "I"
)

// Record is one (credential, report, year-month) harvest.
// Corresponds to the 'harvestlogs' table; (credential_id, report_id, yearmon) is unique.
type Record struct {
	ID           int64
	CredentialID int64
	ReportID     int64
	Release      string
	YearMon      string // e.g. "2024-03"
	Source       Source
	Status       Status
	Attempts     int
	ErrorID      int            // Last classified error code, 0 = none
	RawFile      sql.NullString // Relative to the institution/provider folder
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpdatedOn reports whether the record was last updated on the same
// calendar day as now.
func (r *Record) UpdatedOn(now time.Time) bool {
	u := r.UpdatedAt.In(now.Location())
	return u.Year() == now.Year() && u.YearDay() == now.YearDay()
}

// Stranded reports whether a Harvesting record has not been touched for
// longer than a request can take, meaning its run was interrupted.
func (r *Record) Stranded(now time.Time, after time.Duration) bool {
	return r.Status == StatusHarvesting && now.Sub(r.UpdatedAt) > after
}
