// internal/domain/harvest/repository.go
package harvest

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrHarvestNotFound  = errors.New("harvest record not found")
	ErrDuplicateHarvest = errors.New("duplicate harvest record (credential_id, report_id, yearmon)")
	ErrAlreadyQueued    = errors.New("harvest already queued for consortium")
)

// Repository persists harvest records and their failure details.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id int64) (*Record, error)
	GetByKey(ctx context.Context, credentialID, reportID int64, yearMon string) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	// UpdateStatus sets only the status column and bumps updated_at.
	UpdateStatus(ctx context.Context, id int64, status Status) error
	ListByStatus(ctx context.Context, consortiumID int64, statuses []Status) ([]*Record, error)

	AddFailure(ctx context.Context, f *FailedHarvest) error
	ClearFailures(ctx context.Context, harvestID int64) error
	ListFailures(ctx context.Context, harvestID int64) ([]*FailedHarvest, error)
}

// QueueRepository is the FIFO work queue.
type QueueRepository interface {
	// Enqueue returns ErrAlreadyQueued when the (consortium, harvest) pair exists.
	Enqueue(ctx context.Context, entry *QueueEntry) error
	List(ctx context.Context, consortiumID int64) ([]*QueueEntry, error)
	Delete(ctx context.Context, id int64) error
	DeleteByHarvest(ctx context.Context, harvestID int64) error
}

// Clock is injected so pacing and re-poll windows are testable.
type Clock func() time.Time
