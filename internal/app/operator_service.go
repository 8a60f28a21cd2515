package app

import (
	"context"
	"time"

	"counter_harvester/internal/domain/harvest"

	"github.com/cockroachdb/errors"
)

var (
	ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")
	ErrHarvestRunning     = errors.New("harvest is being processed right now")
	ErrHarvestNotPaused   = errors.New("harvest is not paused")
)

// HarvestReport is a record together with its failure history.
type HarvestReport struct {
	Record   *harvest.Record
	Failures []*harvest.FailedHarvest
}

// OperatorService backs the operator commands. Every call is checked
// against the configured admin ID.
type OperatorService struct {
	harvests harvest.Repository
	queue    harvest.QueueRepository
	adminID  int64
	stranded time.Duration
	now      harvest.Clock
}

// NewOperatorService builds the service. A Harvesting record untouched for
// longer than strandedAfter may be reset or paused.
func NewOperatorService(hr harvest.Repository, qr harvest.QueueRepository, adminID int64, strandedAfter time.Duration) *OperatorService {
	return &OperatorService{
		harvests: hr,
		queue:    qr,
		adminID:  adminID,
		stranded: strandedAfter,
		now:      time.Now,
	}
}

// running reports whether a worker may still be holding rec.
func (s *OperatorService) running(rec *harvest.Record) bool {
	return rec.Status == harvest.StatusHarvesting && !rec.Stranded(s.now(), s.stranded)
}

func (s *OperatorService) authorize(performingAdminID int64) error {
	if s.adminID == 0 || performingAdminID != s.adminID {
		return ErrAdminNotAuthorized
	}
	return nil
}

func (s *OperatorService) HarvestStatus(ctx context.Context, performingAdminID, harvestID int64) (*HarvestReport, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	rec, err := s.harvests.GetByID(ctx, harvestID)
	if err != nil {
		return nil, err
	}
	failures, err := s.harvests.ListFailures(ctx, harvestID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list failures for harvest %d", harvestID)
	}
	return &HarvestReport{Record: rec, Failures: failures}, nil
}

// ResetHarvest gives a record a fresh retry budget and queues it for the
// next worker run.
func (s *OperatorService) ResetHarvest(ctx context.Context, performingAdminID, harvestID, consortiumID int64) (*harvest.Record, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	rec, err := s.harvests.GetByID(ctx, harvestID)
	if err != nil {
		return nil, err
	}
	if s.running(rec) {
		return rec, ErrHarvestRunning
	}

	if err := s.harvests.ClearFailures(ctx, rec.ID); err != nil {
		return nil, errors.Wrapf(err, "failed to clear failures for harvest %d", rec.ID)
	}
	rec.Attempts = 0
	rec.ErrorID = 0
	rec.Status = harvest.StatusQueued
	if err := s.harvests.Update(ctx, rec); err != nil {
		return nil, errors.Wrapf(err, "failed to reset harvest %d", rec.ID)
	}
	if err := s.ensureQueued(ctx, rec.ID, consortiumID); err != nil {
		return nil, err
	}
	return rec, nil
}

// PauseHarvest holds a record. A queued entry stays in the queue and is
// skipped until the record is resumed.
func (s *OperatorService) PauseHarvest(ctx context.Context, performingAdminID, harvestID int64) (*harvest.Record, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	rec, err := s.harvests.GetByID(ctx, harvestID)
	if err != nil {
		return nil, err
	}
	if s.running(rec) {
		return rec, ErrHarvestRunning
	}
	if rec.Status == harvest.StatusPaused {
		return rec, nil
	}
	if err := s.harvests.UpdateStatus(ctx, rec.ID, harvest.StatusPaused); err != nil {
		return nil, errors.Wrapf(err, "failed to pause harvest %d", rec.ID)
	}
	rec.Status = harvest.StatusPaused
	return rec, nil
}

func (s *OperatorService) ResumeHarvest(ctx context.Context, performingAdminID, harvestID, consortiumID int64) (*harvest.Record, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	rec, err := s.harvests.GetByID(ctx, harvestID)
	if err != nil {
		return nil, err
	}
	if rec.Status != harvest.StatusPaused {
		return rec, ErrHarvestNotPaused
	}
	if err := s.harvests.UpdateStatus(ctx, rec.ID, harvest.StatusQueued); err != nil {
		return nil, errors.Wrapf(err, "failed to resume harvest %d", rec.ID)
	}
	rec.Status = harvest.StatusQueued
	if err := s.ensureQueued(ctx, rec.ID, consortiumID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *OperatorService) ensureQueued(ctx context.Context, harvestID, consortiumID int64) error {
	err := s.queue.Enqueue(ctx, &harvest.QueueEntry{ConsortiumID: consortiumID, HarvestID: harvestID})
	if err != nil && !errors.Is(err, harvest.ErrAlreadyQueued) {
		return errors.Wrapf(err, "failed to enqueue harvest %d", harvestID)
	}
	return nil
}
