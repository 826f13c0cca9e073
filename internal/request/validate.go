package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports the first malformed request parameter. Callers
// must not issue any network call when Validate returns one.
type ValidationError struct {
	Param  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s=%q (%s)", e.Param, e.Value, e.Reason)
}

// Validate checks the request and returns a normalized copy: canonical
// frequency code, deduplicated lowercase tickers, defaulted fields, quote
// currency and window, and an assigned run ID. The receiver is not mutated.
func (r Request) Validate() (Request, error) {
	out := r

	if !out.MarketType.valid() {
		return Request{}, &ValidationError{
			Param:  "mkt_type",
			Value:  fmt.Sprintf("%d", int(out.MarketType)),
			Reason: "must be one of spot, future, perpetual_future, option",
		}
	}

	if strings.TrimSpace(out.Freq) == "" {
		out.Freq = "1d"
	}
	freq, ok := NormalizeFreq(out.Freq)
	if !ok {
		return Request{}, &ValidationError{
			Param:  "freq",
			Value:  out.Freq,
			Reason: "unsupported frequency code",
		}
	}
	out.Freq = freq

	if len(out.Fields) == 0 {
		out.Fields = OHLCVFields()
	}
	allowed := make(map[Field]bool)
	for _, f := range AllowedFields(out.MarketType) {
		allowed[f] = true
	}
	for _, f := range out.Fields {
		if !allowed[f] {
			return Request{}, &ValidationError{
				Param:  "fields",
				Value:  string(f),
				Reason: fmt.Sprintf("not available for market type %s", out.MarketType),
			}
		}
	}

	tickers := make([]string, 0, len(out.Tickers))
	seen := make(map[string]bool, len(out.Tickers))
	for _, t := range out.Tickers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	if len(tickers) == 0 {
		return Request{}, &ValidationError{
			Param:  "tickers",
			Value:  strings.Join(out.Tickers, ","),
			Reason: "at least one ticker is required",
		}
	}
	out.Tickers = tickers

	out.QuoteCcy = strings.ToUpper(strings.TrimSpace(out.QuoteCcy))
	if out.QuoteCcy == "" {
		out.QuoteCcy = defaultQuoteCcy
	}

	if out.Start.IsZero() {
		out.Start = DefaultStart
	}
	if out.End.IsZero() {
		out.End = time.Now().UTC()
	}
	out.Start = out.Start.UTC()
	out.End = out.End.UTC()
	if out.End.Before(out.Start) {
		return Request{}, &ValidationError{
			Param:  "start_date",
			Value:  out.Start.Format(time.RFC3339),
			Reason: "start must not be after end",
		}
	}

	out.Exchange = strings.ToLower(strings.TrimSpace(out.Exchange))
	if out.Exchange == "" {
		return Request{}, &ValidationError{
			Param:  "exch",
			Value:  "",
			Reason: "target exchange is required",
		}
	}

	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	return out, nil
}
