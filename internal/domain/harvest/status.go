// internal/domain/harvest/status.go
package harvest

// Status is the lifecycle state of a harvest record.
type Status string

const (
	StatusNew        Status = "New"
	StatusQueued     Status = "Queued"
	StatusHarvesting Status = "Harvesting"
	StatusWaiting    Status = "Waiting" // Payload accepted, ready for downstream processing
	StatusPending    Status = "Pending" // Provider queued the report; re-polled later
	StatusPaused     Status = "Paused"  // Operator-only
	StatusReQueued   Status = "ReQueued"
	StatusNoRetries  Status = "NoRetries"
	StatusFail       Status = "Fail"
	StatusBadCreds   Status = "BadCreds"
)

// ParseStatus returns the Status for s and whether it is a known value.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusNew, StatusQueued, StatusHarvesting, StatusWaiting, StatusPending,
		StatusPaused, StatusReQueued, StatusNoRetries, StatusFail, StatusBadCreds:
		return st, true
	}
	return "", false
}

// Processable reports whether the worker may act on a queue entry whose
// record is in this status. Everything else is a stale entry.
func (s Status) Processable() bool {
	switch s {
	case StatusNew, StatusQueued, StatusReQueued, StatusPending:
		return true
	}
	return false
}

// Terminal reports whether the pipeline will not touch the record again
// without operator or downstream action.
func (s Status) Terminal() bool {
	switch s {
	case StatusWaiting, StatusNoRetries, StatusFail, StatusBadCreds:
		return true
	}
	return false
}

// Enqueueable reports whether loader phase 2 picks the record up.
func (s Status) Enqueueable() bool {
	return s == StatusNew || s == StatusReQueued
}
