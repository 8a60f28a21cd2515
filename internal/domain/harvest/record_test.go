package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordStranded(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		status  Status
		updated time.Time
		want    bool
	}{
		{"running within timeout", StatusHarvesting, now.Add(-time.Minute), false},
		{"running at the limit", StatusHarvesting, now.Add(-5 * time.Minute), false},
		{"running past timeout", StatusHarvesting, now.Add(-time.Hour), true},
		{"queued long ago", StatusQueued, now.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Status: tt.status, UpdatedAt: tt.updated}
			assert.Equal(t, tt.want, r.Stranded(now, 5*time.Minute))
		})
	}
}
