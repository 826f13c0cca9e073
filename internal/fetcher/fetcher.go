// Package fetcher implements cursor-based pagination for one stream of one
// instrument over a closed time window, under the exchange's call spacing
// and a bounded retry budget.
package fetcher

import (
	"context"
	"time"

	"backfill/internal/logger"
	"backfill/internal/market"
)

// State tracks the pagination lifecycle. Done and Error are terminal.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePageReady
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePageReady:
		return "page_ready"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Pacer serializes calls against a shared per-exchange rate-limit budget.
// Wait blocks until the caller may issue the next call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FetchFunc is the vendor primitive for one stream: at most limit records
// from the millisecond since-cursor onward, ascending.
type FetchFunc[T market.Timestamped] func(ctx context.Context, since int64, limit int) ([]T, error)

// Config bounds one pagination sequence.
type Config struct {
	// Exchange, Symbol and Stream annotate surfaced errors.
	Exchange string
	Symbol   string
	Stream   market.StreamType

	// Start and End delimit the closed window in millisecond epochs.
	Start int64
	End   int64

	// Limit is the records-per-call ceiling for this venue.
	Limit int

	// MaxRetries bounds transient-failure retries per page.
	MaxRetries int

	// BaseBackoff seeds the exponential retry backoff; rate-limit signals
	// start from a longer delay.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.Limit <= 0 {
		out.Limit = 500
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	if out.BaseBackoff <= 0 {
		out.BaseBackoff = 500 * time.Millisecond
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = 30 * time.Second
	}
	return out
}

// Fetcher produces a lazy, finite, non-restartable page sequence. It is not
// safe for concurrent use; each (instrument, stream) task owns its own.
type Fetcher[T market.Timestamped] struct {
	fetch   FetchFunc[T]
	pacer   Pacer
	cfg     Config
	cursor  int64
	started bool
	state   State
	err     error
}

func New[T market.Timestamped](fetch FetchFunc[T], pacer Pacer, cfg Config) *Fetcher[T] {
	final := cfg.withDefaults()
	return &Fetcher[T]{
		fetch:  fetch,
		pacer:  pacer,
		cfg:    final,
		cursor: final.Start,
		state:  StateIdle,
	}
}

func (f *Fetcher[T]) State() State { return f.state }

// Err returns the terminal error after the sequence entered StateError.
func (f *Fetcher[T]) Err() error { return f.err }

// Next returns the next page, or (nil, nil) once the sequence is done.
// The cursor advances to the last record's timestamp inclusively, so the
// following page may repeat that record; deduplication is the merge step's
// job, never the fetcher's, because some venues return partial data at
// exact boundaries.
func (f *Fetcher[T]) Next(ctx context.Context) ([]T, error) {
	switch f.state {
	case StateDone:
		return nil, nil
	case StateError:
		return nil, f.err
	}
	if f.started && f.cursor >= f.cfg.End {
		f.state = StateDone
		return nil, nil
	}
	f.state = StateFetching

	page, err := f.fetchPage(ctx)
	if err != nil {
		f.state = StateError
		f.err = &market.NetworkError{
			Exchange: f.cfg.Exchange,
			Symbol:   f.cfg.Symbol,
			Stream:   f.cfg.Stream,
			Err:      err,
		}
		return nil, f.err
	}

	// The window is closed on both ends; drop records past it. An empty
	// remainder means the first new record already sits past the window.
	for len(page) > 0 && page[len(page)-1].TS() > f.cfg.End {
		page = page[:len(page)-1]
	}
	if len(page) == 0 {
		f.state = StateDone
		return nil, nil
	}

	next := page[len(page)-1].TS()
	if f.started && next <= f.cursor {
		// No forward progress: the venue re-served the boundary tail.
		f.state = StateDone
		return nil, nil
	}
	f.cursor = next
	f.started = true
	f.state = StatePageReady
	return page, nil
}

func (f *Fetcher[T]) fetchPage(ctx context.Context) ([]T, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			delay := f.backoff(attempt, lastErr)
			logger.Debugf("[%s] retrying %s %s in %s (attempt %d/%d): %v",
				f.cfg.Exchange, f.cfg.Symbol, f.cfg.Stream, delay, attempt, f.cfg.MaxRetries, lastErr)
			if !sleepWithContext(ctx, delay) {
				return nil, ctx.Err()
			}
		}
		if f.pacer != nil {
			if err := f.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
		page, err := f.fetch(ctx, f.cursor, f.cfg.Limit)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *Fetcher[T]) backoff(attempt int, err error) time.Duration {
	base := f.cfg.BaseBackoff
	if market.IsRateLimit(err) {
		base *= 4
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= f.cfg.MaxBackoff {
			return f.cfg.MaxBackoff
		}
	}
	if delay > f.cfg.MaxBackoff {
		delay = f.cfg.MaxBackoff
	}
	return delay
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
