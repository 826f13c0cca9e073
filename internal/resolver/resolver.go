// Package resolver turns a validated request into a per-exchange fetch plan:
// venue symbols, applicable streams, page limits and call spacing.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backfill/internal/logger"
	"backfill/internal/market"
	"backfill/internal/pkg/symbol"
	"backfill/internal/request"
)

// PlanEntry is one (instrument, stream) fetch task.
type PlanEntry struct {
	Ticker   string
	Stream   market.StreamType
	Symbol   string // unified venue symbol, e.g. "BTC/USDT:USDT"
	Interval string // bar frequency for candle/open-interest streams
	Limit    int    // max records per call
	Spacing  time.Duration
}

// Plan is the complete dispatch set for one request. Streams the venue
// cannot serve are recorded in Skipped instead of failing the instrument.
type Plan struct {
	Exchange string
	Start    int64 // ms, inclusive
	End      int64 // ms, inclusive
	Entries  []PlanEntry
	Skipped  []market.StreamFailure
}

const defaultCacheTTL = time.Hour

// Resolver resolves capabilities against one vendor. The venue's symbol
// universe is cached for a refresh interval; venues list new contracts
// rarely enough that time-boxed invalidation beats event-driven.
type Resolver struct {
	vendor market.Vendor
	ttl    time.Duration
	now    func() time.Time

	mu          sync.Mutex
	symbols     map[string]bool
	refreshedAt time.Time
}

func New(vendor market.Vendor, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Resolver{
		vendor: vendor,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Resolve builds the fetch plan for a validated request. Unlisted
// instruments and unsupported streams degrade to Skipped entries; only a
// failure to load the symbol universe fails the call.
func (r *Resolver) Resolve(ctx context.Context, req request.Request) (*Plan, error) {
	universe, err := r.universe(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s symbol universe: %w", r.vendor.Name(), err)
	}

	startMs, endMs := req.Window()
	plan := &Plan{
		Exchange: r.vendor.Name(),
		Start:    startMs,
		End:      endMs,
	}
	streams := req.Streams()
	perpetual := req.MarketType == request.MarketPerpetualFuture

	for _, ticker := range req.Tickers {
		sym := symbol.FromTicker(ticker, req.QuoteCcy, perpetual).Unified()
		if sym == "" || !universe[sym] {
			for _, st := range streams {
				plan.Skipped = append(plan.Skipped, market.StreamFailure{
					Ticker: ticker,
					Stream: st,
					Err: &market.CapabilityError{
						Exchange: r.vendor.Name(),
						Ticker:   ticker,
						Stream:   st,
						Reason:   fmt.Sprintf("symbol %s not listed", sym),
					},
				})
			}
			continue
		}
		for _, st := range streams {
			if !r.vendor.Has(st.Feature()) {
				plan.Skipped = append(plan.Skipped, market.StreamFailure{
					Ticker: ticker,
					Stream: st,
					Err: &market.CapabilityError{
						Exchange: r.vendor.Name(),
						Ticker:   ticker,
						Stream:   st,
						Reason:   fmt.Sprintf("venue lacks %s", st.Feature()),
					},
				})
				continue
			}
			plan.Entries = append(plan.Entries, PlanEntry{
				Ticker:   ticker,
				Stream:   st,
				Symbol:   sym,
				Interval: req.Freq,
				Limit:    r.vendor.MaxRecords(),
				Spacing:  r.vendor.RateLimit(),
			})
		}
	}
	logger.Debugf("[%s] plan for request %s: %d entries, %d skipped",
		plan.Exchange, req.ID, len(plan.Entries), len(plan.Skipped))
	return plan, nil
}

func (r *Resolver) universe(ctx context.Context) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.symbols != nil && r.now().Sub(r.refreshedAt) < r.ttl {
		return r.symbols, nil
	}
	listed, err := r.vendor.Symbols(ctx)
	if err != nil {
		if r.symbols != nil {
			// Serve the stale universe rather than failing the request.
			logger.Warnf("[%s] symbol refresh failed, using stale cache: %v", r.vendor.Name(), err)
			return r.symbols, nil
		}
		return nil, err
	}
	set := make(map[string]bool, len(listed))
	for _, s := range listed {
		if norm := symbol.Normalize(s); norm != "" {
			set[norm] = true
		}
	}
	r.symbols = set
	r.refreshedAt = r.now()
	return set, nil
}
