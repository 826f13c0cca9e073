package tidy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backfill/internal/coordinator"
	"backfill/internal/market"
	"backfill/internal/request"
	"backfill/internal/resolver"
)

const day = int64(24 * 60 * 60 * 1000)

func perpRequest(t *testing.T, fields []request.Field, tickers ...string) request.Request {
	t.Helper()
	req := request.Request{
		Exchange:   "binance",
		MarketType: request.MarketPerpetualFuture,
		Tickers:    tickers,
		Fields:     fields,
		Freq:       "1d",
		Start:      time.Date(2021, 11, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2021, 11, 10, 0, 0, 0, 0, time.UTC),
	}
	out, err := req.Validate()
	require.NoError(t, err)
	return out
}

func entry(ticker string, stream market.StreamType) resolver.PlanEntry {
	return resolver.PlanEntry{Ticker: ticker, Stream: stream, Symbol: "BTC/USDT:USDT", Interval: "1d"}
}

func TestMergeCandles(t *testing.T) {
	req := perpRequest(t, request.OHLCVFields(), "btc")
	ts1 := req.Start.UnixMilli()
	ts2 := ts1 + day

	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {{
			Entry: entry("btc", market.StreamCandles),
			Candles: []market.Candle{
				{Timestamp: ts1, Open: 34850.0, High: 35280.0, Low: 34111.0, Close: 34980.47, Volume: 1021.5},
				{Timestamp: ts2, Open: 34980.47, High: 35890.0, Low: 34700.0, Close: 34974.51, Volume: 988.2},
			},
		}},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, time.UnixMilli(ts1).UTC(), first.Timestamp)
	assert.Equal(t, "btc", first.Ticker)
	require.NotNil(t, first.Value(request.FieldClose))
	assert.Equal(t, 34980.47, *first.Value(request.FieldClose))

	second := table.Rows[1]
	require.NotNil(t, second.Value(request.FieldClose))
	assert.Equal(t, 34974.51, *second.Value(request.FieldClose))
}

func TestMergeDeduplicatesBoundaryOverlap(t *testing.T) {
	req := perpRequest(t, request.OHLCVFields(), "btc")
	ts := req.Start.UnixMilli()

	// The second page re-serves the first page's last record; the later,
	// complete observation wins.
	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {{
			Entry: entry("btc", market.StreamCandles),
			Candles: []market.Candle{
				{Timestamp: ts, Close: 100.0, Volume: 1.0},
				{Timestamp: ts, Close: 101.0, Volume: 2.0},
			},
		}},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 101.0, *table.Rows[0].Value(request.FieldClose))
	assert.Equal(t, 2.0, *table.Rows[0].Value(request.FieldVolume))
}

func TestMergeOuterJoinAcrossStreams(t *testing.T) {
	fields := append(request.OHLCVFields(), request.FieldFundingRate, request.FieldOI)
	req := perpRequest(t, fields, "btc")
	ts1 := req.Start.UnixMilli()
	ts2 := ts1 + 8*60*60*1000 // funding lands off the candle grid

	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {
			{
				Entry:   entry("btc", market.StreamCandles),
				Candles: []market.Candle{{Timestamp: ts1, Close: 34980.47}},
			},
			{
				Entry:        entry("btc", market.StreamFundingRates),
				FundingRates: []market.FundingRate{{Symbol: "BTC/USDT:USDT", Rate: 0.0001, Timestamp: ts2}},
			},
		},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 2)

	candleRow, fundingRow := table.Rows[0], table.Rows[1]
	assert.Equal(t, 34980.47, *candleRow.Value(request.FieldClose))
	assert.Nil(t, candleRow.Value(request.FieldFundingRate), "no funding at the candle timestamp")

	assert.Nil(t, fundingRow.Value(request.FieldClose), "no candle at the funding timestamp")
	assert.Equal(t, 0.0001, *fundingRow.Value(request.FieldFundingRate))
	assert.Nil(t, fundingRow.Value(request.FieldOI), "requested but never observed stays null")
}

func TestMergeOpenInterestFallsBackToValue(t *testing.T) {
	req := perpRequest(t, []request.Field{request.FieldOI}, "btc")
	ts := req.Start.UnixMilli()

	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {{
			Entry:        entry("btc", market.StreamOpenInterest),
			OpenInterest: []market.OpenInterest{{Symbol: "BTC/USDT:USDT", Amount: 0, Value: 5_000_000, Timestamp: ts}},
		}},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 5_000_000.0, *table.Rows[0].Value(request.FieldOI))
}

func TestMergeColumnSubset(t *testing.T) {
	req := perpRequest(t, []request.Field{request.FieldClose}, "btc")
	ts := req.Start.UnixMilli()

	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {{
			Entry:   entry("btc", market.StreamCandles),
			Candles: []market.Candle{{Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}},
		}},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []request.Field{request.FieldClose}, table.Fields)
	row := table.Rows[0]
	assert.Len(t, row.Values, 1)
	assert.Equal(t, 1.5, *row.Value(request.FieldClose))
}

func TestMergeSortsByTimestampThenTicker(t *testing.T) {
	req := perpRequest(t, []request.Field{request.FieldClose}, "eth", "btc")
	ts1 := req.Start.UnixMilli()
	ts2 := ts1 + day

	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"eth": {{
			Entry:   entry("eth", market.StreamCandles),
			Candles: []market.Candle{{Timestamp: ts2, Close: 2}, {Timestamp: ts1, Close: 1}},
		}},
		"btc": {{
			Entry:   entry("btc", market.StreamCandles),
			Candles: []market.Candle{{Timestamp: ts2, Close: 4}, {Timestamp: ts1, Close: 3}},
		}},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "btc", table.Rows[0].Ticker)
	assert.Equal(t, "eth", table.Rows[1].Ticker)
	assert.Equal(t, "btc", table.Rows[2].Ticker)
	assert.Equal(t, "eth", table.Rows[3].Ticker)
	assert.True(t, table.Rows[0].Timestamp.Before(table.Rows[2].Timestamp))
}

func TestMergeEmptyTickerKeepsRow(t *testing.T) {
	req := perpRequest(t, []request.Field{request.FieldClose}, "btc", "ghost")
	ts := req.Start.UnixMilli()

	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {{
			Entry:   entry("btc", market.StreamCandles),
			Candles: []market.Candle{{Timestamp: ts, Close: 1.5}},
		}},
		"ghost": {{Entry: entry("ghost", market.StreamCandles)}},
	}}

	table := Merge(res, req)
	require.Len(t, table.Rows, 2)
	assert.ElementsMatch(t, []string{"btc", "ghost"}, table.Tickers())

	ghostRows := table.RowsFor("ghost")
	require.Len(t, ghostRows, 1)
	assert.Equal(t, req.Start, ghostRows[0].Timestamp)
	assert.Nil(t, ghostRows[0].Value(request.FieldClose))
}

func TestMergeIdempotent(t *testing.T) {
	req := perpRequest(t, request.OHLCVFields(), "btc")
	ts := req.Start.UnixMilli()
	res := &coordinator.Result{ByTicker: map[string][]coordinator.StreamData{
		"btc": {{
			Entry:   entry("btc", market.StreamCandles),
			Candles: []market.Candle{{Timestamp: ts, Close: 7}, {Timestamp: ts + day, Close: 8}},
		}},
	}}

	first := Merge(res, req)
	second := Merge(res, req)
	assert.Equal(t, first, second)
}
