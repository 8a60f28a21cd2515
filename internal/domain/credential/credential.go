// internal/domain/credential/credential.go
package credential

import (
	"database/sql"
	"time"
)

// Status of a stored credential ('sushisettings.status').
type Status string

const (
	StatusEnabled    Status = "Enabled"
	StatusDisabled   Status = "Disabled"
	StatusSuspended  Status = "Suspended"
	StatusIncomplete Status = "Incomplete"
)

// Credential links one institution to one provider's SUSHI endpoint.
// InstitutionActive and ProviderActive are resolved by the repository so
// the worker can check preconditions without further lookups.
type Credential struct {
	ID                int64
	ConsortiumID      int64
	InstID            int64
	ProvID            int64
	Status            Status
	CustomerID        string
	RequestorID       string
	APIKey            string
	ExtraArgs         string
	Platform          string
	LastHarvest       sql.NullString // Year-month of the last successful harvest
	InstitutionActive bool
	ProviderActive    bool
	UpdatedAt         time.Time
}

// Enabled reports whether the credential may be used for requests.
func (c *Credential) Enabled() bool {
	return c.Status == StatusEnabled
}
