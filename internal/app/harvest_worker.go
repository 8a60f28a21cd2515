package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/credential"
	"counter_harvester/internal/domain/harvest"
	"counter_harvester/internal/infra/events"
	"counter_harvester/internal/infra/storage"
	"counter_harvester/internal/infra/sushi"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// ReportFetcher issues one report request.
type ReportFetcher interface {
	Report(ctx context.Context, req sushi.Request) (string, sushi.Result)
}

type ReportValidator interface {
	Validate(payload map[string]any) error
}

// RawFileStore keeps raw payloads on disk.
type RawFileStore interface {
	Stage(consortiumID int64, name string, raw []byte) error
	Promote(loc storage.Location, name string) error
	Discard(consortiumID int64, name string) error
	Remove(loc storage.Location, name string) error
}

// Pacer spaces requests to the same provider.
type Pacer interface {
	Wait(ctx context.Context, provID int64) error
}

type ReadyPublisher interface {
	PublishReady(ctx context.Context, ready events.HarvestReady) error
}

// Alerter notifies operators about records that need them.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, string) error { return nil }

// WorkerDeps wires a HarvestWorker. Events and Alerts may be nil.
type WorkerDeps struct {
	Harvests  harvest.Repository
	Queue     harvest.QueueRepository
	Creds     credential.Repository
	Catalog   catalog.Repository
	Client    ReportFetcher
	Validator ReportValidator
	Files     RawFileStore
	Pacer     Pacer
	Events    ReadyPublisher
	Alerts    Alerter

	MaxRetries    int
	PendingRepoll time.Duration
	// StrandedAfter is how long a Harvesting record may sit untouched
	// before it is taken back. Usually the HTTP timeout.
	StrandedAfter time.Duration
}

// Action is what the worker did with a queue entry.
type Action string

const (
	ActionProcessed Action = "processed"
	ActionSkipped   Action = "skipped" // Entry left in the queue
	ActionDropped   Action = "dropped" // Entry removed without a request
)

// ProcessResult reports the handling of one queue entry.
type ProcessResult struct {
	Action Action
	Status harvest.Status
	Code   int
}

type RunSummary struct {
	Processed int
	Skipped   int
	Dropped   int
	ByStatus  map[harvest.Status]int
}

// HarvestWorker drives queued harvest records through one attempt each.
type HarvestWorker struct {
	harvests  harvest.Repository
	queue     harvest.QueueRepository
	creds     credential.Repository
	catalog   catalog.Repository
	client    ReportFetcher
	validator ReportValidator
	files     RawFileStore
	pacer     Pacer
	events    ReadyPublisher
	alerts    Alerter

	maxRetries    int
	pendingRepoll time.Duration
	strandedAfter time.Duration
	now           harvest.Clock
	log           *logrus.Entry
}

func NewHarvestWorker(d WorkerDeps, log *logrus.Entry) *HarvestWorker {
	w := &HarvestWorker{
		harvests:      d.Harvests,
		queue:         d.Queue,
		creds:         d.Creds,
		catalog:       d.Catalog,
		client:        d.Client,
		validator:     d.Validator,
		files:         d.Files,
		pacer:         d.Pacer,
		events:        d.Events,
		alerts:        d.Alerts,
		maxRetries:    d.MaxRetries,
		pendingRepoll: d.PendingRepoll,
		strandedAfter: d.StrandedAfter,
		now:           time.Now,
		log:           log,
	}
	if w.events == nil {
		w.events = events.Discard{}
	}
	if w.alerts == nil {
		w.alerts = nopAlerter{}
	}
	return w
}

// Run processes a snapshot of the consortium's queue in FIFO order, one
// entry at a time. It stops early only on persistence errors or when ctx
// is done between entries.
func (w *HarvestWorker) Run(ctx context.Context, consortiumID int64) (*RunSummary, error) {
	entries, err := w.queue.List(ctx, consortiumID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list queue")
	}
	summary := &RunSummary{ByStatus: make(map[harvest.Status]int)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := w.Process(ctx, entry)
		if err != nil {
			return summary, errors.Wrapf(err, "queue entry %d", entry.ID)
		}
		switch res.Action {
		case ActionProcessed:
			summary.Processed++
			summary.ByStatus[res.Status]++
		case ActionSkipped:
			summary.Skipped++
		case ActionDropped:
			summary.Dropped++
			if res.Status != "" {
				summary.ByStatus[res.Status]++
			}
		}
	}
	w.log.WithFields(logrus.Fields{
		"consortium_id": consortiumID,
		"processed":     summary.Processed,
		"skipped":       summary.Skipped,
		"dropped":       summary.Dropped,
	}).Info("Harvest worker run finished")
	return summary, nil
}

// attemptContext is everything resolved before a request is made.
type attemptContext struct {
	entry  *harvest.QueueEntry
	rec    *harvest.Record
	cred   *credential.Credential
	prov   *credential.Provider
	report *credential.Report
	log    *logrus.Entry
}

func (a *attemptContext) location() storage.Location {
	return storage.Location{ConsortiumID: a.entry.ConsortiumID, InstID: a.cred.InstID, ProvID: a.cred.ProvID}
}

// Process handles one queue entry. The returned error is always a
// persistence or cancellation error; remote and parsing failures end up
// in the record.
func (w *HarvestWorker) Process(ctx context.Context, entry *harvest.QueueEntry) (ProcessResult, error) {
	log := w.log.WithFields(logrus.Fields{"queue_id": entry.ID, "harvest_id": entry.HarvestID})

	rec, err := w.harvests.GetByID(ctx, entry.HarvestID)
	if errors.Is(err, harvest.ErrHarvestNotFound) {
		// Nothing to attach a failure detail to.
		log.WithField("error_id", catalog.CodeHarvestMissing).Error("Harvest record missing, dropping queue entry")
		return ProcessResult{Action: ActionDropped, Code: catalog.CodeHarvestMissing}, w.queue.Delete(ctx, entry.ID)
	}
	if err != nil {
		return ProcessResult{}, err
	}
	log = log.WithField("status", rec.Status)

	if rec.Stranded(w.now(), w.strandedAfter) {
		log.Warn("Reclaiming harvest left running by an interrupted run")
	}
	if skip, drop := w.eligibility(rec); skip {
		log.Debug("Harvest not due, leaving queue entry")
		return ProcessResult{Action: ActionSkipped, Status: rec.Status}, nil
	} else if drop {
		log.Info("Stale queue entry dropped")
		return ProcessResult{Action: ActionDropped}, w.queue.Delete(ctx, entry.ID)
	}

	a := &attemptContext{entry: entry, rec: rec, log: log}
	o, ok, err := w.preconditions(ctx, a)
	if err != nil {
		return ProcessResult{}, err
	}
	if !ok {
		if err := w.apply(ctx, a, o, nil); err != nil {
			return ProcessResult{}, err
		}
		return ProcessResult{Action: ActionDropped, Status: o.status, Code: o.code}, nil
	}

	if err := w.pacer.Wait(ctx, a.prov.ID); err != nil {
		return ProcessResult{}, err
	}
	if err := w.harvests.UpdateStatus(ctx, rec.ID, harvest.StatusHarvesting); err != nil {
		return ProcessResult{}, errors.Wrap(err, "failed to mark harvest running")
	}
	rec.Status = harvest.StatusHarvesting

	// Once the record is marked running the request and its bookkeeping
	// finish even if ctx is cancelled; the HTTP timeout still bounds them.
	runCtx := context.WithoutCancel(ctx)
	o, staged, err := w.attempt(runCtx, a)
	if err != nil {
		return ProcessResult{}, err
	}
	if err := w.apply(runCtx, a, o, staged); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{Action: ActionProcessed, Status: o.status, Code: o.code}, nil
}

// eligibility decides whether an entry is left alone (skip) or removed
// as stale (drop). A Harvesting record is skipped while its run may still
// be alive and attempted again once stranded.
func (w *HarvestWorker) eligibility(rec *harvest.Record) (skip, drop bool) {
	now := w.now()
	switch {
	case rec.Status == harvest.StatusPaused:
		return true, false
	case rec.Status == harvest.StatusHarvesting:
		return !rec.Stranded(now, w.strandedAfter), false
	case !rec.Status.Processable():
		return false, true
	case rec.Status == harvest.StatusReQueued && rec.UpdatedOn(now):
		return true, false
	case rec.Status == harvest.StatusPending && now.Sub(rec.UpdatedAt) < w.pendingRepoll:
		return true, false
	}
	return false, false
}

// preconditions resolves the credential, provider and report. When the
// record cannot be attempted it returns ok=false and a fatal outcome.
func (w *HarvestWorker) preconditions(ctx context.Context, a *attemptContext) (o outcome, ok bool, err error) {
	fatal := func(code int, fallback harvest.Status, detail string) (outcome, bool, error) {
		entry, err := w.lookup(ctx, code)
		if err != nil {
			return outcome{}, false, err
		}
		return fatalOutcome(entry, fallback, detail), false, nil
	}

	a.report, err = w.creds.GetReport(ctx, a.rec.ReportID)
	if errors.Is(err, credential.ErrNotFound) {
		return fatal(catalog.CodeReportMissing, harvest.StatusFail, fmt.Sprintf("report %d not found", a.rec.ReportID))
	} else if err != nil {
		return outcome{}, false, err
	}

	a.cred, err = w.creds.GetByID(ctx, a.rec.CredentialID)
	if errors.Is(err, credential.ErrNotFound) {
		return fatal(catalog.CodeCredsDisabled, harvest.StatusBadCreds, fmt.Sprintf("credential %d not found", a.rec.CredentialID))
	} else if err != nil {
		return outcome{}, false, err
	}
	a.log = a.log.WithFields(logrus.Fields{"credential_id": a.cred.ID, "report": a.report.Name})

	switch {
	case !a.cred.Enabled():
		return fatal(catalog.CodeCredsDisabled, harvest.StatusBadCreds, fmt.Sprintf("credential status is %s", a.cred.Status))
	case !a.cred.InstitutionActive:
		return fatal(catalog.CodeInstInactive, harvest.StatusFail, fmt.Sprintf("institution %d is inactive", a.cred.InstID))
	case !a.cred.ProviderActive:
		return fatal(catalog.CodeProvInactive, harvest.StatusFail, fmt.Sprintf("provider %d is inactive", a.cred.ProvID))
	}

	a.prov, err = w.creds.GetProvider(ctx, a.cred.ProvID)
	if errors.Is(err, credential.ErrNotFound) {
		return fatal(catalog.CodeProvInactive, harvest.StatusFail, fmt.Sprintf("provider %d not found", a.cred.ProvID))
	} else if err != nil {
		return outcome{}, false, err
	}

	if a.rec.Attempts >= w.maxRetries {
		return fatal(catalog.CodeRetriesExhausted, harvest.StatusNoRetries,
			fmt.Sprintf("%d attempts made, limit is %d", a.rec.Attempts, w.maxRetries))
	}
	return outcome{}, true, nil
}

// attempt makes the request, stages the raw body and decides the outcome.
// It returns the staged file name, or nil when nothing was staged.
func (w *HarvestWorker) attempt(ctx context.Context, a *attemptContext) (outcome, *string, error) {
	begin, end, err := harvest.MonthBounds(a.rec.YearMon)
	if err != nil {
		entry, lerr := w.lookup(ctx, catalog.CodeInvalidDateArgs)
		if lerr != nil {
			return outcome{}, nil, lerr
		}
		return failureOutcome(entry, harvest.StepInitiation, err.Error(), "", a.rec.Attempts+1, w.maxRetries), nil, nil
	}

	uri, res := w.client.Report(ctx, sushi.Request{
		Provider:   a.prov,
		Credential: a.cred,
		Report:     a.report.Name,
		Release:    a.rec.Release,
		Begin:      begin,
		End:        end,
	})
	a.log.WithFields(logrus.Fields{
		"uri":         sushi.Redact(uri),
		"http_status": res.HTTPStatus,
		"outcome":     res.Outcome,
	}).Debug("Report request finished")

	var staged *string
	if len(res.Raw) > 0 {
		name := storage.FileName(a.rec.ID, a.report.Name, begin, end)
		if err := w.files.Stage(a.entry.ConsortiumID, name, res.Raw); err != nil {
			a.log.WithError(err).Error("Failed to stage raw file")
		} else {
			staged = &name
		}
	}

	o, err := w.decide(ctx, a, res)
	if err != nil {
		return outcome{}, staged, err
	}
	return o, staged, nil
}

func (w *HarvestWorker) decide(ctx context.Context, a *attemptContext, res sushi.Result) (outcome, error) {
	attemptsAfter := a.rec.Attempts + 1

	switch res.Outcome {
	case sushi.OutcomePending:
		return pendingOutcome(res.Code, describe(res.Message, res.Detail)), nil

	case sushi.OutcomeFail:
		entry, err := w.lookup(ctx, res.Code)
		if err != nil {
			return outcome{}, err
		}
		detail := describe(res.Message, res.Detail)
		if !res.HasException() || !entry.Severity.Informational() {
			return failureOutcome(entry, res.Step, detail, res.HelpURL, attemptsAfter, w.maxRetries), nil
		}
		if forced, ok := forcedStatus(entry); ok {
			return informationalOutcome(entry, forced, res.Step, detail, res.HelpURL), nil
		}
		a.log.WithFields(logrus.Fields{"error_id": entry.Code, "message": res.Message}).Info("Provider notice, continuing")
	}

	err := w.validator.Validate(res.Payload)
	switch {
	case err == nil:
		return successOutcome(), nil
	case errors.Is(err, sushi.ErrNoReportItems):
		return noDataOutcome(harvest.StepCOUNTER, "report contains no items", ""), nil
	}
	entry, lerr := w.lookup(ctx, sushi.ErrorCode(err))
	if lerr != nil {
		return outcome{}, lerr
	}
	return failureOutcome(entry, harvest.StepCOUNTER, err.Error(), "", attemptsAfter, w.maxRetries), nil
}

// lookup finds a catalog entry, creating the generic unknown-error row
// for codes never seen before.
func (w *HarvestWorker) lookup(ctx context.Context, code int) (*catalog.Entry, error) {
	entry, err := w.catalog.FindOrCreate(ctx, code, catalog.UnknownEntry(code))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up error code %d", code)
	}
	return entry, nil
}

// apply persists an outcome: raw file housekeeping, failure history, the
// record itself, then the queue entry and notifications.
func (w *HarvestWorker) apply(ctx context.Context, a *attemptContext, o outcome, staged *string) error {
	rec := a.rec
	w.housekeepFiles(a, o, staged)

	if o.attempt {
		rec.Attempts++
	}
	rec.Status = o.status
	rec.ErrorID = o.code

	switch o.history {
	case historyClear, historyReset:
		if err := w.harvests.ClearFailures(ctx, rec.ID); err != nil {
			return err
		}
	}
	if o.history == historyAppend || o.history == historyReset {
		f := &harvest.FailedHarvest{HarvestID: rec.ID, ProcessStep: o.step, ErrorID: o.code, Detail: o.detail, HelpURL: o.helpURL}
		if err := w.harvests.AddFailure(ctx, f); err != nil {
			return err
		}
	}

	if err := w.harvests.Update(ctx, rec); err != nil {
		return errors.Wrap(err, "failed to save harvest")
	}
	if !o.keepJob {
		if err := w.queue.Delete(ctx, a.entry.ID); err != nil {
			return err
		}
	}

	log := a.log.WithFields(logrus.Fields{"status": rec.Status, "attempts": rec.Attempts, "error_id": rec.ErrorID})
	switch {
	case o.code == 0:
		log.Info("Harvest succeeded")
	case o.severity.Informational() || o.status == harvest.StatusPending:
		log.WithField("detail", o.detail).Info("Harvest finished with notice")
	default:
		log.WithField("detail", o.detail).Warn("Harvest failed")
	}

	w.notify(ctx, a, o)
	return nil
}

func (w *HarvestWorker) housekeepFiles(a *attemptContext, o outcome, staged *string) {
	rec := a.rec
	switch o.file {
	case fileClear:
		if staged != nil {
			w.discard(a, *staged)
		}
		if rec.RawFile.Valid && a.cred != nil {
			if err := w.files.Remove(a.location(), rec.RawFile.String); err != nil {
				a.log.WithError(err).Warn("Failed to delete retained raw file")
			}
		}
		rec.RawFile = sql.NullString{}
	case fileDiscard:
		if staged != nil {
			w.discard(a, *staged)
		}
	case fileKeep:
		if staged == nil {
			return
		}
		if err := w.files.Promote(a.location(), *staged); err != nil {
			a.log.WithError(err).Error("Failed to promote raw file")
			w.discard(a, *staged)
			rec.RawFile = sql.NullString{}
			return
		}
		rec.RawFile = sql.NullString{String: *staged, Valid: true}
	}
}

func (w *HarvestWorker) discard(a *attemptContext, name string) {
	if err := w.files.Discard(a.entry.ConsortiumID, name); err != nil {
		a.log.WithError(err).Warn("Failed to discard staged raw file")
	}
}

// notify publishes ready events and operator alerts. Failures are logged only.
func (w *HarvestWorker) notify(ctx context.Context, a *attemptContext, o outcome) {
	rec := a.rec
	switch rec.Status {
	case harvest.StatusWaiting:
		if err := w.creds.MarkHarvested(ctx, a.cred.ID, rec.YearMon); err != nil {
			a.log.WithError(err).Warn("Failed to update credential's last harvest")
		}
		ready := events.HarvestReady{
			HarvestID:    rec.ID,
			ConsortiumID: a.entry.ConsortiumID,
			InstID:       a.cred.InstID,
			ProvID:       a.cred.ProvID,
			Report:       a.report.Name,
			Release:      rec.Release,
			YearMon:      rec.YearMon,
			RawFile:      rec.RawFile.String,
			ReplaceData:  a.entry.ReplaceData,
		}
		if err := w.events.PublishReady(ctx, ready); err != nil {
			a.log.WithError(err).Warn("Failed to publish harvest ready event")
		}
	case harvest.StatusNoRetries, harvest.StatusBadCreds:
		text := fmt.Sprintf("Harvest %d (%s %s) is %s: error %d, %s", rec.ID, reportName(a), rec.YearMon, rec.Status, o.code, o.detail)
		if err := w.alerts.Alert(ctx, text); err != nil {
			a.log.WithError(err).Warn("Failed to send operator alert")
		}
	}
}

func reportName(a *attemptContext) string {
	if a.report == nil {
		return fmt.Sprintf("report %d", a.rec.ReportID)
	}
	return a.report.Name
}
