package pacer

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between requests to the same provider.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[int64]*rate.Limiter
}

// New returns a Pacer allowing one request per interval and provider.
// A zero interval disables pacing.
func New(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		limiters: make(map[int64]*rate.Limiter),
	}
}

func (p *Pacer) limiter(provID int64) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[provID]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[provID] = l
	}
	return l
}

// Wait blocks until the provider may be called again or ctx is done.
func (p *Pacer) Wait(ctx context.Context, provID int64) error {
	if p.interval <= 0 {
		return nil
	}
	if err := p.limiter(provID).Wait(ctx); err != nil {
		return errors.Wrapf(err, "pacing provider %d", provID)
	}
	return nil
}
