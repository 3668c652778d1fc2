package exchange

import "strings"

// common quote currencies, checked longest-suffix first
var knownQuotes = []string{"USDT", "BUSD", "USDC", "KRW", "BTC", "ETH"}

// CanonicalSymbol reduces a venue-specific pair spelling to the base asset,
// so "BTCUSDT", "BTC/USDT", "BTC-USDT" and "KRW-BTC" all map to "BTC".
// Thresholds and alerts are keyed by this canonical form.
func CanonicalSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	// Upbit style: KRW-BTC
	if base, ok := strings.CutPrefix(s, "KRW-"); ok {
		return base
	}

	// slash or dash separated pairs: BTC/USDT, BTC-USDT
	for _, sep := range []string{"/", "-"} {
		if base, _, found := strings.Cut(s, sep); found {
			return base
		}
	}

	base, _ := SplitSymbol(s)
	return base
}

// SplitSymbol splits a concatenated pair like BTCUSDT into base and quote.
func SplitSymbol(s string) (string, string) {
	s = strings.ToUpper(s)
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, ""
}
