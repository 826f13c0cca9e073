package market

import (
	"context"
	"time"
)

// Vendor is the per-exchange collaborator the pipeline fetches through.
// Implementations live under internal/gateway and wrap the official SDKs.
//
// All fetch methods take a millisecond since-cursor, return at most limit
// records in ascending timestamp order, and must be safe for concurrent use.
type Vendor interface {
	// Name is the canonical venue identifier ("binanceusdm", "gateio").
	Name() string

	// Has reports whether the venue can serve a stream at all.
	Has(feature Feature) bool

	// RateLimit is the minimum spacing between REST calls.
	RateLimit() time.Duration

	// MaxRecords is the venue's page-size ceiling per call.
	MaxRecords() int

	// Symbols lists the venue's tradable universe in unified form.
	Symbols(ctx context.Context) ([]string, error)

	FetchCandles(ctx context.Context, symbol, interval string, since int64, limit int) ([]Candle, error)

	FetchFundingRates(ctx context.Context, symbol string, since int64, limit int) ([]FundingRate, error)

	FetchOpenInterest(ctx context.Context, symbol, interval string, since int64, limit int) ([]OpenInterest, error)
}
