// Package symbol maps between canonical tickers, unified symbols and
// venue-specific symbol conventions.
//
// Canonical tickers are source-agnostic lowercase bases ("btc"). Unified
// symbols follow the BASE/QUOTE form, with a ":SETTLE" suffix for linear
// perpetual contracts ("BTC/USDT:USDT"). Each venue converter translates a
// unified symbol into the venue's native spelling and back.
package symbol

import "strings"

type Pair struct {
	Base   string
	Quote  string
	Settle string
}

// Unified renders the pair in unified form: "BTC/USDT" for spot,
// "BTC/USDT:USDT" when a settle currency marks it as a linear contract.
func (p Pair) Unified() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	s := p.Base + "/" + p.Quote
	if p.Settle != "" {
		s += ":" + p.Settle
	}
	return s
}

// FromTicker builds a pair from a canonical ticker ("btc") and quote
// currency. Perpetual pairs settle in the quote currency.
func FromTicker(ticker, quote string, perpetual bool) Pair {
	base := strings.ToUpper(strings.TrimSpace(ticker))
	q := strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || q == "" {
		return Pair{}
	}
	p := Pair{Base: base, Quote: q}
	if perpetual {
		p.Settle = q
	}
	return p
}

var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

// Parse accepts "BTC/USDT:USDT", "BTC/USDT", "BTC_USDT" and bare "BTCUSDT"
// spellings. Bare symbols are split against a known quote-currency list.
func Parse(s string) Pair {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}
	}

	var settle string
	if idx := strings.Index(s, ":"); idx >= 0 {
		settle = strings.TrimSpace(s[idx+1:])
		s = s[:idx]
	}

	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Pair{
			Base:   strings.TrimSpace(parts[0]),
			Quote:  strings.TrimSpace(parts[1]),
			Settle: settle,
		}
	}
	if parts := strings.SplitN(s, "_", 2); len(parts) == 2 {
		return Pair{
			Base:   strings.TrimSpace(parts[0]),
			Quote:  strings.TrimSpace(parts[1]),
			Settle: settle,
		}
	}

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Pair{
				Base:   s[:len(s)-len(quote)],
				Quote:  quote,
				Settle: settle,
			}
		}
	}

	return Pair{}
}

// Normalize renders any recognized spelling in unified form, or "" when the
// input cannot be parsed.
func Normalize(s string) string {
	return Parse(s).Unified()
}

// Converter translates between unified and venue-native symbols.
type Converter interface {
	ToExchange(unified string) string

	FromExchange(raw string) string
}
