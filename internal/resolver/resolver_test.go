package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backfill/internal/market"
	"backfill/internal/request"
)

type fakeVendor struct {
	name        string
	listed      []string
	missing     map[market.Feature]bool
	symbolsErr  error
	symbolCalls int
}

func (f *fakeVendor) Name() string { return f.name }

func (f *fakeVendor) Has(feature market.Feature) bool { return !f.missing[feature] }

func (f *fakeVendor) RateLimit() time.Duration { return 10 * time.Millisecond }

func (f *fakeVendor) MaxRecords() int { return 500 }

func (f *fakeVendor) Symbols(ctx context.Context) ([]string, error) {
	f.symbolCalls++
	if f.symbolsErr != nil {
		return nil, f.symbolsErr
	}
	return append([]string(nil), f.listed...), nil
}

func (f *fakeVendor) FetchCandles(ctx context.Context, symbol, interval string, since int64, limit int) ([]market.Candle, error) {
	return nil, nil
}

func (f *fakeVendor) FetchFundingRates(ctx context.Context, symbol string, since int64, limit int) ([]market.FundingRate, error) {
	return nil, nil
}

func (f *fakeVendor) FetchOpenInterest(ctx context.Context, symbol, interval string, since int64, limit int) ([]market.OpenInterest, error) {
	return nil, nil
}

func perpRequest(t *testing.T, tickers ...string) request.Request {
	t.Helper()
	req := request.Request{
		Exchange:   "binance",
		MarketType: request.MarketPerpetualFuture,
		Tickers:    tickers,
		Fields:     []request.Field{request.FieldClose, request.FieldFundingRate, request.FieldOI},
		Freq:       "1d",
		Start:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	out, err := req.Validate()
	require.NoError(t, err)
	return out
}

func TestResolvePlan(t *testing.T) {
	vendor := &fakeVendor{
		name:   "binanceusdm",
		listed: []string{"BTC/USDT:USDT", "ETH/USDT:USDT"},
	}
	r := New(vendor, time.Hour)

	plan, err := r.Resolve(context.Background(), perpRequest(t, "btc", "eth"))
	require.NoError(t, err)

	assert.Equal(t, "binanceusdm", plan.Exchange)
	assert.Empty(t, plan.Skipped)
	require.Len(t, plan.Entries, 6, "3 streams per listed ticker")

	first := plan.Entries[0]
	assert.Equal(t, "btc", first.Ticker)
	assert.Equal(t, market.StreamCandles, first.Stream)
	assert.Equal(t, "BTC/USDT:USDT", first.Symbol)
	assert.Equal(t, "1d", first.Interval)
	assert.Equal(t, 500, first.Limit)
}

func TestResolveUnlistedTickerSkipsAllStreams(t *testing.T) {
	vendor := &fakeVendor{name: "binanceusdm", listed: []string{"BTC/USDT:USDT"}}
	r := New(vendor, time.Hour)

	plan, err := r.Resolve(context.Background(), perpRequest(t, "btc", "notacoin"))
	require.NoError(t, err)

	assert.Len(t, plan.Entries, 3)
	require.Len(t, plan.Skipped, 3)
	for _, skipped := range plan.Skipped {
		assert.Equal(t, "notacoin", skipped.Ticker)
		var capErr *market.CapabilityError
		assert.ErrorAs(t, skipped.Err, &capErr)
	}
}

func TestResolveMissingFeatureDegrades(t *testing.T) {
	vendor := &fakeVendor{
		name:    "gateio",
		listed:  []string{"BTC/USDT:USDT"},
		missing: map[market.Feature]bool{market.FeatureOpenInterestHistory: true},
	}
	r := New(vendor, time.Hour)

	plan, err := r.Resolve(context.Background(), perpRequest(t, "btc"))
	require.NoError(t, err)

	assert.Len(t, plan.Entries, 2, "candles and funding still planned")
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, market.StreamOpenInterest, plan.Skipped[0].Stream)
}

func TestResolveUniverseCache(t *testing.T) {
	vendor := &fakeVendor{name: "binanceusdm", listed: []string{"BTC/USDT:USDT"}}
	r := New(vendor, time.Hour)
	req := perpRequest(t, "btc")

	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, vendor.symbolCalls, "second resolve served from cache")

	// Expire the TTL; the next resolve refreshes.
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, vendor.symbolCalls)
}

func TestResolveStaleCacheOnRefreshFailure(t *testing.T) {
	vendor := &fakeVendor{name: "binanceusdm", listed: []string{"BTC/USDT:USDT"}}
	r := New(vendor, time.Hour)
	req := perpRequest(t, "btc")

	_, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	vendor.symbolsErr = errors.New("exchange down")
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	plan, err := r.Resolve(context.Background(), req)
	require.NoError(t, err, "stale universe still serves the request")
	assert.Len(t, plan.Entries, 3)
}

func TestResolveUniverseLoadFailure(t *testing.T) {
	vendor := &fakeVendor{name: "binanceusdm", symbolsErr: errors.New("exchange down")}
	r := New(vendor, time.Hour)

	_, err := r.Resolve(context.Background(), perpRequest(t, "btc"))
	assert.Error(t, err, "no cache to fall back on")
}
