package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"counter_harvester/internal/domain/harvest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harvestRowColumns = []string{"id", "credential_id", "report_id", "release", "yearmon", "source",
	"status", "attempts", "error_id", "rawfile", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestHarvestCreateReturnsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO harvestlogs`).
		WithArgs(int64(7), int64(3), "5.1", "2024-03", "C", "New", 0, 0, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))

	rec := &harvest.Record{CredentialID: 7, ReportID: 3, Release: "5.1", YearMon: "2024-03",
		Source: harvest.SourceConsortium, Status: harvest.StatusNew}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Equal(t, int64(42), rec.ID)
}

func TestHarvestCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)

	mock.ExpectQuery(`INSERT INTO harvestlogs`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: harvestUniqueConstraint})

	err := repo.Create(context.Background(), &harvest.Record{Status: harvest.StatusNew})
	assert.ErrorIs(t, err, harvest.ErrDuplicateHarvest)
}

func TestHarvestCreateOtherErrorIsWrapped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)

	mock.ExpectQuery(`INSERT INTO harvestlogs`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "harvestlogs_report_id_fkey"})

	err := repo.Create(context.Background(), &harvest.Record{Status: harvest.StatusNew})
	require.Error(t, err)
	assert.NotErrorIs(t, err, harvest.ErrDuplicateHarvest)
}

func TestHarvestGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)

	mock.ExpectQuery(`FROM harvestlogs h WHERE h.id = \$1`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(harvestRowColumns))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, harvest.ErrHarvestNotFound)
}

func TestHarvestGetByIDScansRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM harvestlogs h WHERE h.id = \$1`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(harvestRowColumns).
			AddRow(int64(9), int64(7), int64(3), "5", "2024-02", "I", "ReQueued", 2, 3030, "9_TR_2024-02-01_2024-02-29.json.zst.enc", now, now))

	rec, err := repo.GetByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, harvest.StatusReQueued, rec.Status)
	assert.Equal(t, harvest.SourceInstitution, rec.Source)
	assert.Equal(t, 2, rec.Attempts)
	assert.True(t, rec.RawFile.Valid)
}

func TestHarvestUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)
	now := time.Now()

	mock.ExpectQuery(`UPDATE harvestlogs`).
		WithArgs("5", "Waiting", 1, 0, "f.json", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	rec := &harvest.Record{ID: 5, Release: "5", Status: harvest.StatusWaiting, Attempts: 1,
		RawFile: sql.NullString{String: "f.json", Valid: true}}
	require.NoError(t, repo.Update(context.Background(), rec))
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestHarvestUpdateStatusMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)

	mock.ExpectExec(`UPDATE harvestlogs SET status`).WithArgs("Harvesting", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 5, harvest.StatusHarvesting)
	assert.ErrorIs(t, err, harvest.ErrHarvestNotFound)
}

func TestHarvestListByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)
	now := time.Now()

	mock.ExpectQuery(`JOIN sushisettings s ON s.id = h.credential_id`).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(harvestRowColumns).
			AddRow(int64(1), int64(7), int64(3), "5", "2024-02", "C", "New", 0, 0, nil, now, now).
			AddRow(int64(2), int64(7), int64(4), "5", "2024-02", "C", "ReQueued", 1, 1010, nil, now, now))

	recs, err := repo.ListByStatus(context.Background(), 1, []harvest.Status{harvest.StatusNew, harvest.StatusReQueued})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, harvest.StatusReQueued, recs[1].Status)
	assert.False(t, recs[0].RawFile.Valid)
}

func TestHarvestFailures(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresHarvestRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO failedharvests`).
		WithArgs(int64(5), "HTTP", 9010, "dial tcp: timeout", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	mock.ExpectExec(`DELETE FROM failedharvests`).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	f := &harvest.FailedHarvest{HarvestID: 5, ProcessStep: harvest.StepHTTP, ErrorID: 9010, Detail: "dial tcp: timeout"}
	require.NoError(t, repo.AddFailure(context.Background(), f))
	assert.Equal(t, int64(1), f.ID)
	require.NoError(t, repo.ClearFailures(context.Background(), 5))
}
