package gate

import (
	"strings"
	"time"
)

const defaultGateREST = "https://api.gateio.ws/api/v4"

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string

	// Settle selects the contract group ("usdt" or "btc").
	Settle string

	Spacing    time.Duration
	MaxRecords int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = defaultGateREST
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.Settle = strings.ToLower(strings.TrimSpace(out.Settle))
	if out.Settle == "" {
		out.Settle = "usdt"
	}
	if out.Spacing <= 0 {
		out.Spacing = 100 * time.Millisecond
	}
	if out.MaxRecords <= 0 || out.MaxRecords > gateMaxHistoryLimit {
		out.MaxRecords = gateMaxHistoryLimit
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
