package providers

import "strings"

// Exchange spot or ETF series used when stooq or twelvedata serve a futures ticker.
var proxyFor = map[string]string{
	"GC=F": "xauusd",
	"SI=F": "xagusd",
	"HG=F": "cper.us",
}

var etfFallback = map[string]string{
	"GC=F": "GLD",
	"SI=F": "SLV",
	"HG=F": "CPER",
}

var stooqSymbols = map[string]string{
	"SMH":     "smh.us",
	"TSLA":    "tsla.us",
	"9988.HK": "9988.hk",
	"0700.HK": "700.hk",
	"GC=F":    "xauusd",
	"SI=F":    "xagusd",
	"HG=F":    "cper.us",
	"GLD":     "gld.us",
	"SLV":     "slv.us",
	"CPER":    "cper.us",
}

var twelveDataSymbols = map[string]string{
	"TSLA":    "TSLA",
	"SMH":     "SMH",
	"0700.HK": "700.HK",
	"9988.HK": "9988.HK",
	"GC=F":    "XAU/USD",
	"SI=F":    "XAG/USD",
	"HG=F":    "CPER",
	"BTC-USD": "BTC/USD",
}

var alphaVantageSymbols = map[string]string{
	"TSLA":    "TSLA",
	"SMH":     "SMH",
	"0700.HK": "0700.HK",
	"9988.HK": "9988.HK",
	"GLD":     "GLD",
	"SLV":     "SLV",
	"CPER":    "CPER",
}

var marketWatchSymbols = map[string]string{
	"0700.HK": "700",
	"9988.HK": "9988",
}

const (
	tickerBTC     = "BTC-USD"
	binanceSymbol = "BTCUSDT"
)

// IsHK reports whether ticker trades in Hong Kong.
func IsHK(ticker string) bool {
	return strings.HasSuffix(strings.ToUpper(ticker), ".HK")
}

// StooqSymbol maps a ticker to stooq. Unknown tickers are lower-cased and suffixed
// with their market: HK codes lose leading zeros, anything else is treated as US.
func StooqSymbol(ticker string) string {
	if s, ok := stooqSymbols[ticker]; ok {
		return s
	}
	if IsHK(ticker) {
		code := strings.TrimLeft(ticker[:len(ticker)-3], "0")
		if code == "" {
			code = "0"
		}
		return strings.ToLower(code) + ".hk"
	}
	return strings.ReplaceAll(strings.ToLower(ticker), ".", "-") + ".us"
}

// TwelveDataSymbol maps a ticker to twelvedata. Futures and crypto pairs drop "=" and use "/" for "-".
func TwelveDataSymbol(ticker string) string {
	if s, ok := twelveDataSymbols[ticker]; ok {
		return s
	}
	if strings.ContainsAny(ticker, "=-") {
		return strings.ReplaceAll(strings.ReplaceAll(ticker, "=", ""), "-", "/")
	}
	return ticker
}

// AlphaVantageSymbol maps a ticker to alphavantage. Only listed tickers are served.
func AlphaVantageSymbol(ticker string) (string, bool) {
	s, ok := alphaVantageSymbols[ticker]
	return s, ok
}

// MarketWatchSymbol maps an HK ticker to marketwatch.
func MarketWatchSymbol(ticker string) (string, bool) {
	s, ok := marketWatchSymbols[ticker]
	return s, ok
}

// ProxyFor returns the substitute series a futures ticker is served from.
func ProxyFor(ticker string) (string, bool) {
	s, ok := proxyFor[ticker]
	return s, ok
}

// ETFFallback returns the commodity ETF standing in for a futures ticker.
func ETFFallback(ticker string) (string, bool) {
	s, ok := etfFallback[ticker]
	return s, ok
}
