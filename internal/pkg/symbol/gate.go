package symbol

import "strings"

// GateConverter renders contract names with underscores (BTC/USDT:USDT -> BTC_USDT).
type GateConverter struct{}

func (GateConverter) ToExchange(unified string) string {
	p := Parse(unified)
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "_" + p.Quote
}

func (GateConverter) FromExchange(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	return Parse(s).Unified()
}

var Gate = GateConverter{}
