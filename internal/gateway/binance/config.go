package binance

import (
	"strings"
	"time"
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string

	// Spacing is the minimum inter-call gap; MaxRecords the page ceiling.
	Spacing    time.Duration
	MaxRecords int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.Spacing <= 0 {
		out.Spacing = 200 * time.Millisecond
	}
	if out.MaxRecords <= 0 || out.MaxRecords > maxHistoryLimit {
		out.MaxRecords = maxHistoryLimit
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
