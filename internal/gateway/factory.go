package gateway

import (
	"fmt"
	"time"

	"backfill/internal/gateway/binance"
	"backfill/internal/gateway/gate"
	"backfill/internal/market"
)

// Options carries the HTTP-level settings shared by every driver. Zero
// values fall back to the driver defaults.
type Options struct {
	RESTBaseURL  string
	HTTPTimeout  time.Duration
	ProxyEnabled bool
	RESTProxyURL string

	// Spacing and MaxRecords override the catalog's venue defaults.
	Spacing    time.Duration
	MaxRecords int
}

// New builds the vendor serving an exchange. The catalog decides the
// driver and the venue defaults; unknown exchanges and alias-only entries
// are an error here, before any network call.
func New(exchange string, opts Options) (market.Vendor, error) {
	entry, ok := Lookup(exchange)
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", exchange)
	}
	if entry.Driver == "" {
		return nil, fmt.Errorf("exchange %q has no wired driver", exchange)
	}

	spacing := opts.Spacing
	if spacing <= 0 {
		spacing = entry.Spacing()
	}
	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = entry.MaxRecords
	}

	switch entry.Driver {
	case "binance":
		return binance.New(binance.Config{
			RESTBaseURL:  opts.RESTBaseURL,
			HTTPTimeout:  opts.HTTPTimeout,
			ProxyEnabled: opts.ProxyEnabled,
			RESTProxyURL: opts.RESTProxyURL,
			Spacing:      spacing,
			MaxRecords:   maxRecords,
		})
	case "gate":
		return gate.New(gate.Config{
			RESTBaseURL:  opts.RESTBaseURL,
			HTTPTimeout:  opts.HTTPTimeout,
			ProxyEnabled: opts.ProxyEnabled,
			RESTProxyURL: opts.RESTProxyURL,
			Settle:       entry.Settle,
			Spacing:      spacing,
			MaxRecords:   maxRecords,
		})
	default:
		return nil, fmt.Errorf("exchange %q: unknown driver %q", exchange, entry.Driver)
	}
}
