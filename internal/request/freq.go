package request

import (
	"strconv"
	"strings"
	"time"
)

// freqAliases maps legacy frequency spellings onto canonical codes.
var freqAliases = map[string]string{
	"1min":  "1m",
	"5min":  "5m",
	"15min": "15m",
	"30min": "30m",
	"h":     "1h",
	"d":     "1d",
	"w":     "1w",
}

var supportedFreqs = map[string]bool{
	"1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "8h": true, "12h": true,
	"1d": true, "1w": true,
}

// NormalizeFreq resolves aliases and reports whether the code is supported.
func NormalizeFreq(freq string) (string, bool) {
	f := strings.ToLower(strings.TrimSpace(freq))
	if alias, ok := freqAliases[f]; ok {
		f = alias
	}
	return f, supportedFreqs[f]
}

// FreqDuration parses a canonical frequency code ("15m", "1h", "1d", "1w")
// into a duration. Returns (0, false) on invalid input.
func FreqDuration(freq string) (time.Duration, bool) {
	freq, ok := NormalizeFreq(freq)
	if !ok || freq == "" {
		return 0, false
	}
	unit := freq[len(freq)-1]
	numStr := strings.TrimSpace(freq[:len(freq)-1])
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
