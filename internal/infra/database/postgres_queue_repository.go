// internal/infra/database/postgres_queue_repository.go
package database

import (
	"context"
	"database/sql"

	"counter_harvester/internal/domain/harvest"

	"github.com/cockroachdb/errors"
)

const queueUniqueConstraint = "globaljobs_consortium_harvest_key"

type PostgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) *PostgresQueueRepository {
	return &PostgresQueueRepository{db: db}
}

func (r *PostgresQueueRepository) Enqueue(ctx context.Context, entry *harvest.QueueEntry) error {
	query := `INSERT INTO globaljobs (consortium_id, harvest_id, replace_data)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, entry.ConsortiumID, entry.HarvestID, entry.ReplaceData).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, queueUniqueConstraint) {
			return harvest.ErrAlreadyQueued
		}
		return errors.Wrap(err, "error enqueueing harvest")
	}
	return nil
}

// List returns the consortium's queue in FIFO order.
func (r *PostgresQueueRepository) List(ctx context.Context, consortiumID int64) ([]*harvest.QueueEntry, error) {
	query := `SELECT id, consortium_id, harvest_id, replace_data, created_at
               FROM globaljobs WHERE consortium_id = $1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, consortiumID)
	if err != nil {
		return nil, errors.Wrap(err, "error querying queue entries")
	}
	defer rows.Close()

	entries := make([]*harvest.QueueEntry, 0)
	for rows.Next() {
		e := &harvest.QueueEntry{}
		if err := rows.Scan(&e.ID, &e.ConsortiumID, &e.HarvestID, &e.ReplaceData, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning queue entry row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating queue entry rows")
	}
	return entries, nil
}

func (r *PostgresQueueRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM globaljobs WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "error deleting queue entry")
	}
	return nil
}

func (r *PostgresQueueRepository) DeleteByHarvest(ctx context.Context, harvestID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM globaljobs WHERE harvest_id = $1`, harvestID); err != nil {
		return errors.Wrap(err, "error deleting queue entries for harvest")
	}
	return nil
}
