package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStooqSymbol(t *testing.T) {
	cases := map[string]string{
		"0700.HK": "700.hk",
		"GC=F":    "xauusd",
		"AAPL":    "aapl.us",
		"0005.HK": "5.hk",
		"BRK.B":   "brk-b.us",
		"1810.hk": "1810.hk",
	}
	for in, want := range cases {
		assert.Equal(t, want, StooqSymbol(in), in)
	}
}

func TestTwelveDataSymbol(t *testing.T) {
	assert.Equal(t, "XAU/USD", TwelveDataSymbol("GC=F"))
	assert.Equal(t, "PLF", TwelveDataSymbol("PL=F"))
	assert.Equal(t, "ETH/USD", TwelveDataSymbol("ETH-USD"))
	assert.Equal(t, "NVDA", TwelveDataSymbol("NVDA"))
}

func TestRegionalLookups(t *testing.T) {
	sym, ok := MarketWatchSymbol("0700.HK")
	assert.True(t, ok)
	assert.Equal(t, "700", sym)

	_, ok = MarketWatchSymbol("TSLA")
	assert.False(t, ok)

	_, ok = AlphaVantageSymbol("GC=F")
	assert.False(t, ok)

	etf, ok := ETFFallback("HG=F")
	assert.True(t, ok)
	assert.Equal(t, "CPER", etf)
	assert.True(t, IsHK("9988.HK"))
}
