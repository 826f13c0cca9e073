// Package market defines the canonical record types, the vendor collaborator
// contract and the error taxonomy shared by the fetch pipeline.
package market

// StreamType identifies one of the three independent history streams an
// exchange can serve for an instrument.
type StreamType int

const (
	StreamCandles StreamType = iota
	StreamFundingRates
	StreamOpenInterest
)

func (s StreamType) String() string {
	switch s {
	case StreamCandles:
		return "candles"
	case StreamFundingRates:
		return "funding_rates"
	case StreamOpenInterest:
		return "open_interest"
	default:
		return "unknown"
	}
}

// Feature names a vendor capability flag.
type Feature string

const (
	FeatureCandles             Feature = "candles"
	FeatureFundingRateHistory  Feature = "funding_rate_history"
	FeatureOpenInterestHistory Feature = "open_interest_history"
)

// Feature returns the capability flag guarding a stream.
func (s StreamType) Feature() Feature {
	switch s {
	case StreamFundingRates:
		return FeatureFundingRateHistory
	case StreamOpenInterest:
		return FeatureOpenInterestHistory
	default:
		return FeatureCandles
	}
}

// Timestamped is satisfied by every raw record type; TS returns the record's
// millisecond epoch timestamp.
type Timestamped interface {
	TS() int64
}

// Candle is one OHLCV bar. Timestamp is the bar open time in ms.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (c Candle) TS() int64 { return c.Timestamp }

// FundingRate is one periodic funding payment record for a perpetual.
type FundingRate struct {
	Symbol    string  `json:"symbol"`
	Rate      float64 `json:"fundingRate"`
	Timestamp int64   `json:"timestamp"`
}

func (f FundingRate) TS() int64 { return f.Timestamp }

// OpenInterest is one open-interest observation. Amount is in contracts,
// Value in quote notional; venues report one or both, zero means unreported.
type OpenInterest struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"openInterestAmount"`
	Value     float64 `json:"openInterestValue"`
	Timestamp int64   `json:"timestamp"`
}

func (o OpenInterest) TS() int64 { return o.Timestamp }
