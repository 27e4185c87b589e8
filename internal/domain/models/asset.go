package models

import "github.com/guregu/null/v5"

// Light is a three-valued qualitative classification.
type Light string

const (
	LightGreen  Light = "green"
	LightYellow Light = "yellow"
	LightRed    Light = "red"
)

// Action is the per-asset or portfolio instruction.
type Action string

const (
	ActionAdd    Action = "ADD"
	ActionHold   Action = "HOLD"
	ActionReduce Action = "REDUCE"
)

// Regime is one of four macro-cycle states.
type Regime string

const (
	RegimeA Regime = "A"
	RegimeB Regime = "B"
	RegimeC Regime = "C"
	RegimeD Regime = "D"
)

// Asset signal reason codes, in the order they are checked.
const (
	ReasonInsufficientHistory = "INSUFFICIENT_HISTORY"
	ReasonProxyUsed           = "PROXY_USED"
	ReasonTrendUp             = "TREND_UP"
	ReasonVolHigh             = "VOL_HIGH"
	ReasonRegimeC             = "REGIME_C"
	ReasonCatalystOK          = "CATALYST_OK"
	ReasonHold                = "HOLD"
)

// AssetDefinition is the static reference row for one tracked asset.
type AssetDefinition struct {
	ID            string
	Name          string
	Ticker        string
	AssetType     string // crypto, equity, hk_equity, metal, future
	Currency      string
	BenchmarkID   string // empty for commodities
	BaseMaxWeight float64
}

// TickerCopper feeds the weekly composite.
const TickerCopper = "HG=F"

// DefaultAssets returns the tracked asset table. Each call returns a fresh copy.
func DefaultAssets() []AssetDefinition {
	return []AssetDefinition{
		{ID: "BTC", Name: "Bitcoin", Ticker: "BTC-USD", AssetType: "crypto", Currency: "USD", BenchmarkID: "QQQ", BaseMaxWeight: 0.25},
		{ID: "AI_BASKET", Name: "AI Basket", Ticker: "SMH", AssetType: "equity", Currency: "USD", BenchmarkID: "SPY", BaseMaxWeight: 0.40},
		{ID: "TSLA", Name: "Tesla", Ticker: "TSLA", AssetType: "equity", Currency: "USD", BenchmarkID: "SPY", BaseMaxWeight: 0.15},
		{ID: "BABA", Name: "Alibaba", Ticker: "9988.HK", AssetType: "hk_equity", Currency: "HKD", BenchmarkID: "HSTECH", BaseMaxWeight: 0.15},
		{ID: "TENCENT", Name: "Tencent", Ticker: "0700.HK", AssetType: "hk_equity", Currency: "HKD", BenchmarkID: "HSTECH", BaseMaxWeight: 0.15},
		{ID: "XAU", Name: "Gold", Ticker: "GC=F", AssetType: "metal", Currency: "USD", BaseMaxWeight: 0.20},
		{ID: "XAG", Name: "Silver", Ticker: "SI=F", AssetType: "metal", Currency: "USD", BaseMaxWeight: 0.08},
		{ID: "HG", Name: "Copper", Ticker: TickerCopper, AssetType: "future", Currency: "USD", BaseMaxWeight: 0.15},
	}
}

// Tickers lists the tickers of defs in table order.
func Tickers(defs []AssetDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Ticker)
	}
	return out
}

// AssetSignal is the per-asset classification for one run.
type AssetSignal struct {
	AssetID            string   `json:"assetId" validate:"required"`
	Date               string   `json:"date"`
	TrendLight         Light    `json:"trendLight" validate:"oneof=green yellow red"`
	RiskLight          Light    `json:"riskLight" validate:"oneof=green yellow red"`
	CatalystLight      Light    `json:"catalystLight" validate:"oneof=green yellow red"`
	SuggestedMaxWeight float64  `json:"suggestedMaxWeight" validate:"gte=0"`
	Action             Action   `json:"action" validate:"oneof=ADD HOLD REDUCE"`
	ReasonCodes        []string `json:"reasonCodes"`
	Notes              string   `json:"notes"`
}

// TechnicalFeatures are computed per asset from its price series.
type TechnicalFeatures struct {
	AssetID         string     `json:"assetId"`
	MA20            null.Float `json:"ma20"`
	MA60            null.Float `json:"ma60"`
	MA200           null.Float `json:"ma200"`
	Momentum12w     null.Float `json:"mom12w"`
	AnnualizedVol20 null.Float `json:"vol20Ann"`
	MaxDrawdown60   null.Float `json:"mdd60"`
	MaxDrawdown120  null.Float `json:"mdd120"`
	VolPercentile1y null.Float `json:"volPercentile1y"`
	DDPercentile1y  null.Float `json:"ddPercentile1y"`
}
