package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/credential"
	"counter_harvester/internal/domain/harvest"
	"counter_harvester/internal/infra/events"
	"counter_harvester/internal/infra/sushi"

	"github.com/cockroachdb/errors"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harvestKey struct {
	credID, reportID int64
	yearMon          string
}

type memHarvests struct {
	clock     *testClock
	nextID    int64
	records   map[int64]*harvest.Record
	failures  map[int64][]*harvest.FailedHarvest
	createErr error
}

func newMemHarvests(clock *testClock) *memHarvests {
	return &memHarvests{clock: clock, records: map[int64]*harvest.Record{}, failures: map[int64][]*harvest.FailedHarvest{}}
}

func (m *memHarvests) byKey(k harvestKey) *harvest.Record {
	for _, r := range m.records {
		if r.CredentialID == k.credID && r.ReportID == k.reportID && r.YearMon == k.yearMon {
			return r
		}
	}
	return nil
}

// put stores rec as-is, for seeding state.
func (m *memHarvests) put(rec *harvest.Record) *harvest.Record {
	if rec.ID == 0 {
		m.nextID++
		rec.ID = m.nextID
	} else if rec.ID > m.nextID {
		m.nextID = rec.ID
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return &cp
}

func (m *memHarvests) get(id int64) *harvest.Record {
	cp := *m.records[id]
	return &cp
}

func (m *memHarvests) Create(_ context.Context, rec *harvest.Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.byKey(harvestKey{rec.CredentialID, rec.ReportID, rec.YearMon}) != nil {
		return harvest.ErrDuplicateHarvest
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = m.clock.Now()
	rec.UpdatedAt = rec.CreatedAt
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memHarvests) GetByID(_ context.Context, id int64) (*harvest.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, harvest.ErrHarvestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memHarvests) GetByKey(_ context.Context, credID, reportID int64, yearMon string) (*harvest.Record, error) {
	r := m.byKey(harvestKey{credID, reportID, yearMon})
	if r == nil {
		return nil, harvest.ErrHarvestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memHarvests) Update(ctx context.Context, rec *harvest.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := m.records[rec.ID]; !ok {
		return harvest.ErrHarvestNotFound
	}
	rec.UpdatedAt = m.clock.Now()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *memHarvests) UpdateStatus(_ context.Context, id int64, status harvest.Status) error {
	r, ok := m.records[id]
	if !ok {
		return harvest.ErrHarvestNotFound
	}
	r.Status = status
	r.UpdatedAt = m.clock.Now()
	return nil
}

func (m *memHarvests) ListByStatus(_ context.Context, _ int64, statuses []harvest.Status) ([]*harvest.Record, error) {
	var out []*harvest.Record
	for _, r := range m.records {
		for _, s := range statuses {
			if r.Status == s {
				cp := *r
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memHarvests) AddFailure(ctx context.Context, f *harvest.FailedHarvest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.ID = int64(len(m.failures[f.HarvestID]) + 1)
	f.CreatedAt = m.clock.Now()
	m.failures[f.HarvestID] = append(m.failures[f.HarvestID], f)
	return nil
}

func (m *memHarvests) ClearFailures(ctx context.Context, harvestID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(m.failures, harvestID)
	return nil
}

func (m *memHarvests) ListFailures(_ context.Context, harvestID int64) ([]*harvest.FailedHarvest, error) {
	return m.failures[harvestID], nil
}

type memQueue struct {
	nextID  int64
	entries []*harvest.QueueEntry
}

func (q *memQueue) Enqueue(_ context.Context, e *harvest.QueueEntry) error {
	for _, x := range q.entries {
		if x.ConsortiumID == e.ConsortiumID && x.HarvestID == e.HarvestID {
			return harvest.ErrAlreadyQueued
		}
	}
	q.nextID++
	e.ID = q.nextID
	cp := *e
	q.entries = append(q.entries, &cp)
	return nil
}

func (q *memQueue) List(_ context.Context, consortiumID int64) ([]*harvest.QueueEntry, error) {
	var out []*harvest.QueueEntry
	for _, e := range q.entries {
		if e.ConsortiumID == consortiumID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (q *memQueue) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *memQueue) DeleteByHarvest(_ context.Context, harvestID int64) error {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.HarvestID != harvestID {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	return nil
}

func (q *memQueue) has(harvestID int64) bool {
	for _, e := range q.entries {
		if e.HarvestID == harvestID {
			return true
		}
	}
	return false
}

type memCreds struct {
	creds       map[int64]*credential.Credential
	providers   map[int64]*credential.Provider
	connections map[int64][]*credential.Connection
	reports     map[int64]*credential.Report
	insts       map[int64]*credential.Institution
	marked      map[int64]string
}

func newMemCreds() *memCreds {
	return &memCreds{
		creds:       map[int64]*credential.Credential{},
		providers:   map[int64]*credential.Provider{},
		connections: map[int64][]*credential.Connection{},
		reports:     map[int64]*credential.Report{},
		insts:       map[int64]*credential.Institution{},
		marked:      map[int64]string{},
	}
}

func (m *memCreds) ListHarvestable(_ context.Context, consortiumID int64, f credential.Filter) ([]*credential.Credential, error) {
	var out []*credential.Credential
	for _, c := range m.creds {
		if c.ConsortiumID != consortiumID || !c.Enabled() || !c.InstitutionActive {
			continue
		}
		if len(f.ProviderIDs) > 0 && !containsID(f.ProviderIDs, c.ProvID) {
			continue
		}
		if len(f.InstIDs) > 0 && !containsID(f.InstIDs, c.InstID) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *memCreds) GetByID(_ context.Context, id int64) (*credential.Credential, error) {
	c, ok := m.creds[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCreds) GetProvider(_ context.Context, id int64) (*credential.Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return p, nil
}

func (m *memCreds) ListConnections(_ context.Context, _ int64, provID int64) ([]*credential.Connection, error) {
	return m.connections[provID], nil
}

func (m *memCreds) GetInstitution(_ context.Context, id int64) (*credential.Institution, error) {
	i, ok := m.insts[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return i, nil
}

func (m *memCreds) GetReport(_ context.Context, id int64) (*credential.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	return r, nil
}

func (m *memCreds) ListReports(context.Context) ([]*credential.Report, error) {
	var out []*credential.Report
	for _, r := range m.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCreds) MarkHarvested(_ context.Context, id int64, yearMon string) error {
	m.marked[id] = yearMon
	return nil
}

type memCatalog struct {
	entries map[int]*catalog.Entry
}

func newMemCatalog() *memCatalog {
	m := &memCatalog{entries: map[int]*catalog.Entry{}}
	for i := range catalog.Seed {
		e := catalog.Seed[i]
		m.entries[e.Code] = &e
	}
	return m
}

func (m *memCatalog) Get(_ context.Context, code int) (*catalog.Entry, error) {
	e, ok := m.entries[code]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return e, nil
}

func (m *memCatalog) FindOrCreate(_ context.Context, code int, fallback *catalog.Entry) (*catalog.Entry, error) {
	if e, ok := m.entries[code]; ok {
		return e, nil
	}
	e := *fallback
	e.Code = code
	m.entries[code] = &e
	return &e, nil
}

func (m *memCatalog) List(context.Context) ([]*catalog.Entry, error) {
	var out []*catalog.Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

// scriptedClient answers report requests from a fixed HTTP status and body,
// or with a transport failure when err is set. during runs while the
// request is in flight and ctxErr records the request context afterwards.
type scriptedClient struct {
	status   int
	body     string
	err      error
	during   func()
	ctxErr   error
	requests []sushi.Request
}

func (c *scriptedClient) Report(ctx context.Context, req sushi.Request) (string, sushi.Result) {
	c.requests = append(c.requests, req)
	if c.during != nil {
		c.during()
	}
	c.ctxErr = ctx.Err()
	uri, _ := sushi.BuildURI(req)
	if c.err != nil {
		return uri, sushi.Result{Outcome: sushi.OutcomeFail, Code: catalog.CodeNoConnection, Step: harvest.StepHTTP,
			Severity: catalog.SeverityError, Message: "No connection", Detail: c.err.Error()}
	}
	return uri, sushi.Classify(c.status, []byte(c.body))
}

type recordingEvents struct {
	published []events.HarvestReady
}

func (r *recordingEvents) PublishReady(_ context.Context, ready events.HarvestReady) error {
	r.published = append(r.published, ready)
	return nil
}

type recordingAlerts struct {
	texts []string
}

func (r *recordingAlerts) Alert(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

var errBoom = errors.New("boom")
