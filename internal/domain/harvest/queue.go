// internal/domain/harvest/queue.go
package harvest

import "time"

// QueueEntry points the worker at a harvest record. Corresponds to the
// 'globaljobs' table; (consortium_id, harvest_id) is unique and the id
// gives FIFO order.
type QueueEntry struct {
	ID           int64
	ConsortiumID int64
	HarvestID    int64
	ReplaceData  bool // Overwrite previously stored report content downstream
	CreatedAt    time.Time
}
