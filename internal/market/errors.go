package market

import (
	"errors"
	"fmt"
)

// NetworkError marks a transient I/O failure that exhausted its retry budget
// for one stream of one instrument. It never aborts sibling streams.
type NetworkError struct {
	Exchange string
	Symbol   string
	Stream   StreamType
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Exchange, e.Symbol, e.Stream, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError marks a vendor throttling signal. It is retryable like a
// network error but with a longer backoff.
type RateLimitError struct {
	Exchange string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Exchange, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// CapabilityError marks a stream the venue cannot serve for an instrument,
// either because the instrument is not listed or the feature flag is off.
// The affected stream degrades to absent; the instrument is not failed.
type CapabilityError struct {
	Exchange string
	Ticker   string
	Stream   StreamType
	Reason   string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s cannot serve %s for %s: %s", e.Exchange, e.Stream, e.Ticker, e.Reason)
}

// StreamFailure is the per-instrument/per-stream entry of the structured
// failure list returned alongside the merged table.
type StreamFailure struct {
	Ticker string
	Stream StreamType
	Err    error
}

func (f StreamFailure) String() string {
	return fmt.Sprintf("%s/%s: %v", f.Ticker, f.Stream, f.Err)
}
