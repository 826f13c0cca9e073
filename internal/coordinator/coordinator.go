// Package coordinator fans the fetch plan out across a bounded worker set,
// isolates per-task failures and regroups the raw streams per instrument.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"backfill/internal/fetcher"
	"backfill/internal/logger"
	"backfill/internal/market"
	"backfill/internal/pkg/circuit"
	"backfill/internal/resolver"
)

// StreamData carries everything one (instrument, stream) task produced.
// Partial pages collected before a failure are kept alongside Err.
type StreamData struct {
	Entry        resolver.PlanEntry
	Candles      []market.Candle
	FundingRates []market.FundingRate
	OpenInterest []market.OpenInterest
	Err          error
}

// Result groups stream data by ticker. Failures aggregates the plan's
// capability skips with fetch-time errors; every entry is per-stream.
type Result struct {
	ByTicker map[string][]StreamData
	Failures []market.StreamFailure
}

type Config struct {
	// MaxInFlight bounds concurrent tasks against one exchange.
	MaxInFlight int

	// Timeout bounds a whole Run; zero disables it.
	Timeout time.Duration

	// MaxRetries is the per-page retry budget inside each fetcher.
	MaxRetries int

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxInFlight <= 0 {
		out.MaxInFlight = 4
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	return out
}

type Coordinator struct {
	vendor  market.Vendor
	cfg     Config
	breaker *circuit.Breaker
}

func New(vendor market.Vendor, cfg Config) *Coordinator {
	final := cfg.withDefaults()
	return &Coordinator{
		vendor:  vendor,
		cfg:     final,
		breaker: circuit.New(vendor.Name(), final.BreakerThreshold, final.BreakerCooldown),
	}
}

// Run dispatches one task per plan entry and always returns a Result: task
// failures land in the per-stream failure list, never as a returned error,
// and a deadline cancels outstanding work without discarding what finished.
func (c *Coordinator) Run(ctx context.Context, plan *resolver.Plan) *Result {
	runCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	pacer := NewPacer(c.vendor.RateLimit())
	sem := semaphore.NewWeighted(int64(c.cfg.MaxInFlight))
	results := make([]StreamData, len(plan.Entries))

	var g errgroup.Group
	for i, entry := range plan.Entries {
		i, entry := i, entry
		g.Go(func() error {
			results[i] = c.runEntry(runCtx, plan, entry, sem, pacer)
			return nil
		})
	}
	_ = g.Wait()

	out := &Result{ByTicker: make(map[string][]StreamData, len(plan.Entries))}
	out.Failures = append(out.Failures, plan.Skipped...)
	for _, sd := range results {
		out.ByTicker[sd.Entry.Ticker] = append(out.ByTicker[sd.Entry.Ticker], sd)
		if sd.Err != nil {
			out.Failures = append(out.Failures, market.StreamFailure{
				Ticker: sd.Entry.Ticker,
				Stream: sd.Entry.Stream,
				Err:    sd.Err,
			})
		}
	}
	return out
}

func (c *Coordinator) runEntry(ctx context.Context, plan *resolver.Plan, entry resolver.PlanEntry, sem *semaphore.Weighted, pacer *Pacer) StreamData {
	sd := StreamData{Entry: entry}
	if err := sem.Acquire(ctx, 1); err != nil {
		sd.Err = err
		return sd
	}
	defer sem.Release(1)

	if !c.breaker.Allow() {
		sd.Err = fmt.Errorf("%s circuit open, %s %s not dispatched", plan.Exchange, entry.Ticker, entry.Stream)
		return sd
	}

	cfg := fetcher.Config{
		Exchange:   plan.Exchange,
		Symbol:     entry.Symbol,
		Stream:     entry.Stream,
		Start:      plan.Start,
		End:        plan.End,
		Limit:      entry.Limit,
		MaxRetries: c.cfg.MaxRetries,
	}

	var err error
	switch entry.Stream {
	case market.StreamCandles:
		sd.Candles, err = collect(ctx, pacer, cfg, func(ctx context.Context, since int64, limit int) ([]market.Candle, error) {
			return c.vendor.FetchCandles(ctx, entry.Symbol, entry.Interval, since, limit)
		})
	case market.StreamFundingRates:
		sd.FundingRates, err = collect(ctx, pacer, cfg, func(ctx context.Context, since int64, limit int) ([]market.FundingRate, error) {
			return c.vendor.FetchFundingRates(ctx, entry.Symbol, since, limit)
		})
	case market.StreamOpenInterest:
		sd.OpenInterest, err = collect(ctx, pacer, cfg, func(ctx context.Context, since int64, limit int) ([]market.OpenInterest, error) {
			return c.vendor.FetchOpenInterest(ctx, entry.Symbol, entry.Interval, since, limit)
		})
	default:
		err = fmt.Errorf("unhandled stream type %v", entry.Stream)
	}
	sd.Err = err

	if err != nil {
		c.breaker.RecordFailure()
		logger.Warnf("[%s] %s %s failed: %v", plan.Exchange, entry.Ticker, entry.Stream, err)
	} else {
		c.breaker.RecordSuccess()
	}
	return sd
}

// collect drains one fetcher's page sequence. Pages gathered before an
// error are returned with it so a deadline never discards partial progress.
func collect[T market.Timestamped](ctx context.Context, pacer *Pacer, cfg fetcher.Config, fn fetcher.FetchFunc[T]) ([]T, error) {
	f := fetcher.New(fn, pacer, cfg)
	var out []T
	for {
		page, err := f.Next(ctx)
		if err != nil {
			return out, err
		}
		if page == nil {
			return out, nil
		}
		out = append(out, page...)
	}
}
