// Package request defines the canonical data request and its validation.
package request

import (
	"fmt"
	"strings"
	"time"

	"backfill/internal/market"
)

// MarketType is the closed set of instrument classes a request can target.
type MarketType int

const (
	MarketSpot MarketType = iota
	MarketFuture
	MarketPerpetualFuture
	MarketOption
)

func (m MarketType) String() string {
	switch m {
	case MarketSpot:
		return "spot"
	case MarketFuture:
		return "future"
	case MarketPerpetualFuture:
		return "perpetual_future"
	case MarketOption:
		return "option"
	default:
		return "unknown"
	}
}

func (m MarketType) valid() bool {
	switch m {
	case MarketSpot, MarketFuture, MarketPerpetualFuture, MarketOption:
		return true
	default:
		return false
	}
}

func ParseMarketType(s string) (MarketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spot":
		return MarketSpot, nil
	case "future":
		return MarketFuture, nil
	case "perpetual_future", "perp", "perpetual":
		return MarketPerpetualFuture, nil
	case "option":
		return MarketOption, nil
	default:
		return 0, fmt.Errorf("unrecognized market type %q", s)
	}
}

// Field is one canonical output column.
type Field string

const (
	FieldOpen        Field = "open"
	FieldHigh        Field = "high"
	FieldLow         Field = "low"
	FieldClose       Field = "close"
	FieldVolume      Field = "volume"
	FieldFundingRate Field = "funding_rate"
	FieldOI          Field = "oi"
)

// OHLCVFields returns the candle field set in canonical column order.
func OHLCVFields() []Field {
	return []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}
}

// Stream maps a field to the vendor stream that carries it.
func (f Field) Stream() market.StreamType {
	switch f {
	case FieldFundingRate:
		return market.StreamFundingRates
	case FieldOI:
		return market.StreamOpenInterest
	default:
		return market.StreamCandles
	}
}

// AllowedFields lists the fields a market type can request. Funding rates
// and open interest only exist for perpetual futures.
func AllowedFields(m MarketType) []Field {
	fields := OHLCVFields()
	if m == MarketPerpetualFuture {
		fields = append(fields, FieldFundingRate, FieldOI)
	}
	return fields
}

const defaultQuoteCcy = "USDT"

// DefaultStart is the earliest window start when a request leaves it unset:
// 2010-01-01 UTC, predating every crypto venue's history.
var DefaultStart = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// Request is the canonical, source-agnostic fetch request. It is immutable
// once Validate has normalized it.
type Request struct {
	// ID correlates the run's log lines; assigned at validation when empty.
	ID string

	// Source names the vendor family ("ccxt"); informational.
	Source string

	// Exchange is the target venue in canonical naming ("binance", "gate").
	Exchange string

	MarketType MarketType

	// Tickers is an ordered set of canonical instrument identifiers ("btc").
	Tickers []string

	// Fields is the requested column subset; defaults to OHLCV.
	Fields []Field

	// Freq is the bar frequency code ("1m", "1h", "1d"...).
	Freq string

	// QuoteCcy is the quote currency for symbol construction (default USDT).
	QuoteCcy string

	Start time.Time
	End   time.Time
}

// Window returns the closed request window as millisecond epochs.
func (r Request) Window() (int64, int64) {
	return r.Start.UnixMilli(), r.End.UnixMilli()
}

// Streams returns the distinct streams the requested fields draw from, in
// candles, funding, open-interest order.
func (r Request) Streams() []market.StreamType {
	want := make(map[market.StreamType]bool, 3)
	for _, f := range r.Fields {
		want[f.Stream()] = true
	}
	var out []market.StreamType
	for _, s := range []market.StreamType{market.StreamCandles, market.StreamFundingRates, market.StreamOpenInterest} {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}
