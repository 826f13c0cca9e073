package coordinator

import (
	"context"
	"sync"
	"time"
)

// Pacer reserves call slots against one exchange's rate-limit budget. All
// concurrent fetch tasks for the exchange share a single Pacer, so the
// minimum spacing holds across instruments, not just within one task.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the caller's reserved slot arrives or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return ctx.Err()
	}
	p.mu.Lock()
	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	wait := p.next.Sub(now)
	p.next = p.next.Add(p.interval)
	p.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
