package tidy

import (
	"sort"
	"time"

	"backfill/internal/coordinator"
	"backfill/internal/market"
	"backfill/internal/pkg/convert"
	"backfill/internal/request"
)

type cellKey struct {
	ts     int64
	ticker string
}

// Merge outer-joins the three streams per instrument on timestamp, maps
// vendor field names onto the canonical columns, deduplicates boundary
// overlap and sorts ascending by (timestamp, ticker).
//
// Repeated (timestamp, ticker) observations keep the latest-seen value.
// Vendors may re-serve a page's last record at the next page boundary with
// partial data on the earlier copy; the later, complete copy wins.
// Every requested ticker appears in the output: instruments with no
// observations at all contribute a single all-null row at the window start.
func Merge(res *coordinator.Result, req request.Request) *Table {
	cells := make(map[cellKey]map[request.Field]*float64)

	cell := func(ts int64, ticker string) map[request.Field]*float64 {
		k := cellKey{ts: ts, ticker: ticker}
		c, ok := cells[k]
		if !ok {
			c = make(map[request.Field]*float64, len(req.Fields))
			cells[k] = c
		}
		return c
	}

	// Iterate tickers in request order and streams in plan order so the
	// latest-seen policy is deterministic.
	for _, ticker := range req.Tickers {
		for _, sd := range res.ByTicker[ticker] {
			switch sd.Entry.Stream {
			case market.StreamCandles:
				for _, c := range sd.Candles {
					dst := cell(c.Timestamp, ticker)
					dst[request.FieldOpen] = convert.Ptr(c.Open)
					dst[request.FieldHigh] = convert.Ptr(c.High)
					dst[request.FieldLow] = convert.Ptr(c.Low)
					dst[request.FieldClose] = convert.Ptr(c.Close)
					dst[request.FieldVolume] = convert.Ptr(c.Volume)
				}
			case market.StreamFundingRates:
				for _, fr := range sd.FundingRates {
					cell(fr.Timestamp, ticker)[request.FieldFundingRate] = convert.Ptr(fr.Rate)
				}
			case market.StreamOpenInterest:
				for _, oi := range sd.OpenInterest {
					v := oi.Amount
					if v == 0 {
						v = oi.Value
					}
					cell(oi.Timestamp, ticker)[request.FieldOI] = convert.Ptr(v)
				}
			}
		}
	}

	// No silent drops: instruments that produced nothing still appear.
	startMs, _ := req.Window()
	present := make(map[string]bool, len(req.Tickers))
	for k := range cells {
		present[k.ticker] = true
	}
	for _, ticker := range req.Tickers {
		if !present[ticker] {
			cells[cellKey{ts: startMs, ticker: ticker}] = map[request.Field]*float64{}
		}
	}

	table := &Table{
		Fields: append([]request.Field(nil), req.Fields...),
		Rows:   make([]Row, 0, len(cells)),
	}
	for k, vals := range cells {
		row := Row{
			Timestamp: time.UnixMilli(k.ts).UTC(),
			Ticker:    k.ticker,
			Values:    make(map[request.Field]*float64, len(req.Fields)),
		}
		// Columns not requested are dropped here.
		for _, f := range req.Fields {
			row.Values[f] = vals[f]
		}
		table.Rows = append(table.Rows, row)
	}
	sort.Slice(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Ticker < b.Ticker
	})
	return table
}
