package app

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"counter_harvester/internal/domain/credential"
	"counter_harvester/internal/domain/harvest"
	"counter_harvester/internal/infra/sushi"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// LoadRequest scopes one loader run. Empty filters match everything.
type LoadRequest struct {
	ConsortiumID int64
	YearMon      string // Defaults to the previous calendar month
	ProviderIDs  []int64
	InstIDs      []int64
	ReportNames  []string
	// ExplicitMonth ignores the providers' harvest day. A non-empty YearMon
	// implies it.
	ExplicitMonth bool
	ReplaceData   bool
}

type LoadSummary struct {
	Created       int
	Requeued      int
	Unchanged     int
	Queued        int
	AlreadyQueued int
}

// HarvestLoader creates harvest records for due connections and enqueues
// every record that is New or ReQueued.
type HarvestLoader struct {
	harvests harvest.Repository
	queue    harvest.QueueRepository
	creds    credential.Repository
	cutover  string // Months before this use release 5
	stranded time.Duration
	now      harvest.Clock
	log      *logrus.Entry
}

// NewHarvestLoader builds a loader. A Harvesting record untouched for
// longer than strandedAfter is treated as abandoned and requeued.
func NewHarvestLoader(hr harvest.Repository, qr harvest.QueueRepository, cr credential.Repository, release51Cutover string, strandedAfter time.Duration, log *logrus.Entry) *HarvestLoader {
	return &HarvestLoader{
		harvests: hr,
		queue:    qr,
		creds:    cr,
		cutover:  release51Cutover,
		stranded: strandedAfter,
		now:      time.Now,
		log:      log,
	}
}

// Run executes both phases. Only persistence errors abort it.
func (l *HarvestLoader) Run(ctx context.Context, req LoadRequest) (*LoadSummary, error) {
	today := l.now()
	yearMon := req.YearMon
	explicit := req.ExplicitMonth || yearMon != ""
	if yearMon == "" {
		yearMon = harvest.PreviousMonth(today)
	}
	if _, err := harvest.ParseYearMon(yearMon); err != nil {
		return nil, err
	}

	log := l.log.WithFields(logrus.Fields{
		"consortium_id": req.ConsortiumID,
		"yearmon":       yearMon,
	})
	summary := &LoadSummary{}

	if err := l.createRecords(ctx, req, yearMon, explicit, today, summary, log); err != nil {
		return summary, err
	}
	if err := l.enqueue(ctx, req.ConsortiumID, req.ReplaceData, summary, log); err != nil {
		return summary, err
	}

	log.WithFields(logrus.Fields{
		"created":        summary.Created,
		"requeued":       summary.Requeued,
		"unchanged":      summary.Unchanged,
		"queued":         summary.Queued,
		"already_queued": summary.AlreadyQueued,
	}).Info("Harvest loader finished")
	return summary, nil
}

func (l *HarvestLoader) createRecords(ctx context.Context, req LoadRequest, yearMon string, explicit bool, today time.Time, summary *LoadSummary, log *logrus.Entry) error {
	reports, err := l.masterReports(ctx, req.ReportNames)
	if err != nil {
		return err
	}
	creds, err := l.creds.ListHarvestable(ctx, req.ConsortiumID, credential.Filter{ProviderIDs: req.ProviderIDs, InstIDs: req.InstIDs})
	if err != nil {
		return errors.Wrap(err, "failed to list harvestable credentials")
	}

	providers := make(map[int64]*credential.Provider)
	connections := make(map[int64][]*credential.Connection)

	for _, cred := range creds {
		credLog := log.WithFields(logrus.Fields{"credential_id": cred.ID, "prov_id": cred.ProvID, "inst_id": cred.InstID})
		if !cred.ProviderActive {
			credLog.Debug("Provider inactive, skipping credential")
			continue
		}

		prov, ok := providers[cred.ProvID]
		if !ok {
			prov, err = l.creds.GetProvider(ctx, cred.ProvID)
			if err != nil {
				return errors.Wrapf(err, "failed to load provider %d", cred.ProvID)
			}
			providers[cred.ProvID] = prov
		}
		if !explicit && today.Day() != prov.DayOfMonth {
			credLog.WithField("day_of_month", prov.DayOfMonth).Debug("Provider not due today")
			continue
		}

		conns, ok := connections[cred.ProvID]
		if !ok {
			conns, err = l.creds.ListConnections(ctx, req.ConsortiumID, cred.ProvID)
			if err != nil {
				return errors.Wrapf(err, "failed to load connections for provider %d", cred.ProvID)
			}
			connections[cred.ProvID] = conns
		}

		release := SelectRelease(prov, yearMon, l.cutover)
		for _, rp := range dueReports(conns, cred.InstID) {
			report, ok := reports[rp.reportID]
			if !ok {
				continue
			}
			if err := l.createOrRequeue(ctx, cred, report, rp.source, release, yearMon, summary, credLog); err != nil {
				return err
			}
		}
	}
	return nil
}

type reportSource struct {
	reportID int64
	source   harvest.Source
}

// dueReports resolves the reports an institution is granted for one
// provider. Institution connections only add reports the consortium-wide
// connections do not already grant.
func dueReports(conns []*credential.Connection, instID int64) []reportSource {
	granted := make(map[int64]bool)
	var out []reportSource
	for _, c := range conns {
		if !c.IsActive || !c.ConsortiumWide() {
			continue
		}
		for _, id := range c.ReportIDs {
			if !granted[id] {
				granted[id] = true
				out = append(out, reportSource{reportID: id, source: harvest.SourceConsortium})
			}
		}
	}
	for _, c := range conns {
		if !c.IsActive || c.ConsortiumWide() || c.InstID != instID {
			continue
		}
		for _, id := range c.ReportIDs {
			if !granted[id] {
				granted[id] = true
				out = append(out, reportSource{reportID: id, source: harvest.SourceInstitution})
			}
		}
	}
	return out
}

func (l *HarvestLoader) masterReports(ctx context.Context, names []string) (map[int64]*credential.Report, error) {
	all, err := l.creds.ListReports(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reports")
	}
	wanted := make([]string, 0, len(names))
	for _, n := range names {
		wanted = append(wanted, strings.ToUpper(strings.TrimSpace(n)))
	}
	out := make(map[int64]*credential.Report)
	for _, r := range all {
		if r.ParentID != 0 {
			continue
		}
		if len(wanted) > 0 && !slices.Contains(wanted, strings.ToUpper(r.Name)) {
			continue
		}
		out[r.ID] = r
	}
	return out, nil
}

// untouchedOnConflict lists statuses a later loader run must not reschedule:
// already scheduled, in flight, waiting on the provider, or held by an
// operator. A stranded Harvesting record is not in flight and is requeued.
var untouchedOnConflict = []harvest.Status{
	harvest.StatusNew, harvest.StatusQueued, harvest.StatusHarvesting, harvest.StatusPending, harvest.StatusPaused,
}

func (l *HarvestLoader) createOrRequeue(ctx context.Context, cred *credential.Credential, report *credential.Report, source harvest.Source, release, yearMon string, summary *LoadSummary, log *logrus.Entry) error {
	rec := &harvest.Record{
		CredentialID: cred.ID,
		ReportID:     report.ID,
		Release:      release,
		YearMon:      yearMon,
		Source:       source,
		Status:       harvest.StatusNew,
	}
	err := l.harvests.Create(ctx, rec)
	if err == nil {
		summary.Created++
		log.WithFields(logrus.Fields{"harvest_id": rec.ID, "report": report.Name, "release": release}).Debug("Harvest record created")
		return nil
	}
	if !errors.Is(err, harvest.ErrDuplicateHarvest) {
		return errors.Wrapf(err, "failed to create harvest for credential %d report %s", cred.ID, report.Name)
	}

	existing, err := l.harvests.GetByKey(ctx, cred.ID, report.ID, yearMon)
	if err != nil {
		return errors.Wrapf(err, "failed to load existing harvest for credential %d report %s", cred.ID, report.Name)
	}
	if slices.Contains(untouchedOnConflict, existing.Status) && !existing.Stranded(l.now(), l.stranded) {
		summary.Unchanged++
		return nil
	}
	if err := l.harvests.UpdateStatus(ctx, existing.ID, harvest.StatusReQueued); err != nil {
		return errors.Wrapf(err, "failed to requeue harvest %d", existing.ID)
	}
	summary.Requeued++
	log.WithFields(logrus.Fields{"harvest_id": existing.ID, "previous_status": existing.Status}).Info("Existing harvest requeued")
	return nil
}

func (l *HarvestLoader) enqueue(ctx context.Context, consortiumID int64, replaceData bool, summary *LoadSummary, log *logrus.Entry) error {
	recs, err := l.harvests.ListByStatus(ctx, consortiumID, []harvest.Status{harvest.StatusNew, harvest.StatusReQueued})
	if err != nil {
		return errors.Wrap(err, "failed to list enqueueable harvests")
	}
	for _, rec := range recs {
		entry := &harvest.QueueEntry{ConsortiumID: consortiumID, HarvestID: rec.ID, ReplaceData: replaceData}
		if err := l.queue.Enqueue(ctx, entry); err != nil {
			if errors.Is(err, harvest.ErrAlreadyQueued) {
				summary.AlreadyQueued++
				log.WithField("harvest_id", rec.ID).Info("Harvest already queued, skipping")
				continue
			}
			return errors.Wrapf(err, "failed to enqueue harvest %d", rec.ID)
		}
		if err := l.harvests.UpdateStatus(ctx, rec.ID, harvest.StatusQueued); err != nil {
			return errors.Wrapf(err, "failed to mark harvest %d queued", rec.ID)
		}
		summary.Queued++
	}
	return nil
}

// SelectRelease picks the release to request: the provider's manual
// override, else release 5 for months before the cutover, else the highest
// release the provider lists.
func SelectRelease(p *credential.Provider, yearMon, cutover string) string {
	if p.ReleaseOverride != "" {
		return p.ReleaseOverride
	}
	if cutover != "" && harvest.YearMonBefore(yearMon, cutover) {
		return sushi.Release5
	}
	best, bestVal := sushi.Release5, 0.0
	for _, r := range p.Releases {
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			continue
		}
		if v > bestVal {
			best, bestVal = strings.TrimSpace(r), v
		}
	}
	return best
}
