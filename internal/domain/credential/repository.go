// internal/domain/credential/repository.go
package credential

import (
	"context"

	"github.com/cockroachdb/errors"
)

var ErrNotFound = errors.New("credential data not found")

// Filter narrows the credentials the loader considers. Empty slices match everything.
type Filter struct {
	ProviderIDs []int64
	InstIDs     []int64
}

// Repository is the read-only view of credentials, connections and the
// master data they reference.
type Repository interface {
	// ListHarvestable returns enabled credentials whose institution is active.
	ListHarvestable(ctx context.Context, consortiumID int64, f Filter) ([]*Credential, error)
	GetByID(ctx context.Context, id int64) (*Credential, error)
	GetProvider(ctx context.Context, id int64) (*Provider, error)
	ListConnections(ctx context.Context, consortiumID, provID int64) ([]*Connection, error)
	GetInstitution(ctx context.Context, id int64) (*Institution, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	ListReports(ctx context.Context) ([]*Report, error)
	// MarkHarvested records yearMon as the credential's last successful harvest.
	MarkHarvested(ctx context.Context, id int64, yearMon string) error
}
