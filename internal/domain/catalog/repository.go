// internal/domain/catalog/repository.go
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
)

var ErrNotFound = errors.New("error code not found in catalog")

// Repository is read-mostly reference data with a single find-or-create
// write path for codes first seen from a provider.
type Repository interface {
	Get(ctx context.Context, code int) (*Entry, error)
	// FindOrCreate returns the entry for code, inserting fallback first when
	// the code is unknown. Concurrent creators converge on one row.
	FindOrCreate(ctx context.Context, code int, fallback *Entry) (*Entry, error)
	List(ctx context.Context) ([]*Entry, error)
}
