package symbol

import "strings"

// BinanceConverter renders symbols without separators (BTC/USDT:USDT -> BTCUSDT).
type BinanceConverter struct{}

func (BinanceConverter) ToExchange(unified string) string {
	p := Parse(unified)
	if p.Base == "" || p.Quote == "" {
		return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(unified)), "/", "")
	}
	return p.Base + p.Quote
}

func (BinanceConverter) FromExchange(raw string) string {
	return Parse(raw).Unified()
}

var Binance = BinanceConverter{}
