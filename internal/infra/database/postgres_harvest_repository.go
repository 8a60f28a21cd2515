// internal/infra/database/postgres_harvest_repository.go
package database

import (
	"context"
	"database/sql"

	"counter_harvester/internal/domain/harvest"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const harvestUniqueConstraint = "harvestlogs_cred_report_yearmon_key"

const harvestColumns = `h.id, h.credential_id, h.report_id, h.release, h.yearmon, h.source,
       h.status, h.attempts, h.error_id, h.rawfile, h.created_at, h.updated_at`

type PostgresHarvestRepository struct {
	db *sql.DB
}

func NewPostgresHarvestRepository(db *sql.DB) *PostgresHarvestRepository {
	return &PostgresHarvestRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHarvest(row rowScanner) (*harvest.Record, error) {
	rec := &harvest.Record{}
	err := row.Scan(
		&rec.ID, &rec.CredentialID, &rec.ReportID, &rec.Release, &rec.YearMon, &rec.Source,
		&rec.Status, &rec.Attempts, &rec.ErrorID, &rec.RawFile, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PostgresHarvestRepository) Create(ctx context.Context, rec *harvest.Record) error {
	query := `INSERT INTO harvestlogs (credential_id, report_id, release, yearmon, source, status, attempts, error_id, rawfile)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.CredentialID, rec.ReportID, rec.Release, rec.YearMon, rec.Source,
		rec.Status, rec.Attempts, rec.ErrorID, rec.RawFile,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, harvestUniqueConstraint) {
			return harvest.ErrDuplicateHarvest
		}
		return errors.Wrap(err, "error creating harvest record")
	}
	return nil
}

func (r *PostgresHarvestRepository) GetByID(ctx context.Context, id int64) (*harvest.Record, error) {
	query := `SELECT ` + harvestColumns + ` FROM harvestlogs h WHERE h.id = $1`
	rec, err := scanHarvest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, harvest.ErrHarvestNotFound
		}
		return nil, errors.Wrap(err, "error getting harvest record by ID")
	}
	return rec, nil
}

func (r *PostgresHarvestRepository) GetByKey(ctx context.Context, credentialID, reportID int64, yearMon string) (*harvest.Record, error) {
	query := `SELECT ` + harvestColumns + ` FROM harvestlogs h
               WHERE h.credential_id = $1 AND h.report_id = $2 AND h.yearmon = $3`
	rec, err := scanHarvest(r.db.QueryRowContext(ctx, query, credentialID, reportID, yearMon))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, harvest.ErrHarvestNotFound
		}
		return nil, errors.Wrap(err, "error getting harvest record by key")
	}
	return rec, nil
}

func (r *PostgresHarvestRepository) Update(ctx context.Context, rec *harvest.Record) error {
	query := `UPDATE harvestlogs
               SET release = $1, status = $2, attempts = $3, error_id = $4, rawfile = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, rec.Release, rec.Status, rec.Attempts, rec.ErrorID, rec.RawFile, rec.ID).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return harvest.ErrHarvestNotFound
		}
		return errors.Wrap(err, "error updating harvest record")
	}
	return nil
}

func (r *PostgresHarvestRepository) UpdateStatus(ctx context.Context, id int64, status harvest.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE harvestlogs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return errors.Wrap(err, "error updating harvest status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "error reading affected rows")
	}
	if n == 0 {
		return harvest.ErrHarvestNotFound
	}
	return nil
}

// ListByStatus returns the consortium's records in any of the statuses, oldest first.
func (r *PostgresHarvestRepository) ListByStatus(ctx context.Context, consortiumID int64, statuses []harvest.Status) ([]*harvest.Record, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query := `SELECT ` + harvestColumns + `
               FROM harvestlogs h
               JOIN sushisettings s ON s.id = h.credential_id
               WHERE s.consortium_id = $1 AND h.status = ANY($2::text[])
               ORDER BY h.id`
	rows, err := r.db.QueryContext(ctx, query, consortiumID, pq.Array(names))
	if err != nil {
		return nil, errors.Wrap(err, "error querying harvest records by status")
	}
	defer rows.Close()

	records := make([]*harvest.Record, 0)
	for rows.Next() {
		rec, err := scanHarvest(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning harvest record row")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating harvest record rows")
	}
	return records, nil
}

// --- Failure detail methods ---

func (r *PostgresHarvestRepository) AddFailure(ctx context.Context, f *harvest.FailedHarvest) error {
	query := `INSERT INTO failedharvests (harvest_id, process_step, error_id, detail, help_url)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, f.HarvestID, f.ProcessStep, f.ErrorID, f.Detail, f.HelpURL).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "error creating failed harvest detail")
	}
	return nil
}

func (r *PostgresHarvestRepository) ClearFailures(ctx context.Context, harvestID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM failedharvests WHERE harvest_id = $1`, harvestID); err != nil {
		return errors.Wrap(err, "error clearing failed harvest details")
	}
	return nil
}

func (r *PostgresHarvestRepository) ListFailures(ctx context.Context, harvestID int64) ([]*harvest.FailedHarvest, error) {
	query := `SELECT id, harvest_id, process_step, error_id, detail, help_url, created_at
               FROM failedharvests WHERE harvest_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, harvestID)
	if err != nil {
		return nil, errors.Wrap(err, "error querying failed harvest details")
	}
	defer rows.Close()

	failures := make([]*harvest.FailedHarvest, 0)
	for rows.Next() {
		f := &harvest.FailedHarvest{}
		if err := rows.Scan(&f.ID, &f.HarvestID, &f.ProcessStep, &f.ErrorID, &f.Detail, &f.HelpURL, &f.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning failed harvest row")
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating failed harvest rows")
	}
	return failures, nil
}
