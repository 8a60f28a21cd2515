// internal/infra/database/postgres_catalog_repository.go
package database

import (
	"context"
	"database/sql"

	"counter_harvester/internal/domain/catalog"

	"github.com/cockroachdb/errors"
)

type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

func (r *PostgresCatalogRepository) Get(ctx context.Context, code int) (*catalog.Entry, error) {
	query := `SELECT id, message, explanation, suggestion, severity, new_status, color
               FROM ccplus_errors WHERE id = $1`
	e := &catalog.Entry{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&e.Code, &e.Message, &e.Explanation, &e.Suggestion, &e.Severity, &e.NewStatus, &e.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "error getting catalog entry %d", code)
	}
	return e, nil
}

// FindOrCreate inserts fallback under code unless a row exists, then reads
// the surviving row back. The primary key arbitrates concurrent inserts.
func (r *PostgresCatalogRepository) FindOrCreate(ctx context.Context, code int, fallback *catalog.Entry) (*catalog.Entry, error) {
	e := *fallback
	e.Code = code
	if err := r.insertIfMissing(ctx, &e); err != nil {
		return nil, err
	}
	return r.Get(ctx, code)
}

func (r *PostgresCatalogRepository) insertIfMissing(ctx context.Context, e *catalog.Entry) error {
	query := `INSERT INTO ccplus_errors (id, message, explanation, suggestion, severity, new_status, color)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, e.Code, e.Message, e.Explanation, e.Suggestion, e.Severity, e.NewStatus, e.Color); err != nil {
		return errors.Wrapf(err, "error inserting catalog entry %d", e.Code)
	}
	return nil
}

func (r *PostgresCatalogRepository) List(ctx context.Context) ([]*catalog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, message, explanation, suggestion, severity, new_status, color
               FROM ccplus_errors ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "error querying catalog")
	}
	defer rows.Close()

	entries := make([]*catalog.Entry, 0)
	for rows.Next() {
		e := &catalog.Entry{}
		if err := rows.Scan(&e.Code, &e.Message, &e.Explanation, &e.Suggestion, &e.Severity, &e.NewStatus, &e.Color); err != nil {
			return nil, errors.Wrap(err, "error scanning catalog row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating catalog rows")
	}
	return entries, nil
}
