package models

import "github.com/guregu/null/v5"

// PayloadVersion is stamped on every snapshot.
const PayloadVersion = "0.1.0"

// DashboardPayload is the root snapshot record. Fields that cannot be computed are null, never zero.
type DashboardPayload struct {
	Version           string                       `json:"version" validate:"required"`
	GeneratedAt       string                       `json:"generatedAt" validate:"required"`
	DailySignal       *DailySignal                 `json:"dailySignal" validate:"required"`
	MacroSwitches     []MacroSwitch                `json:"macroSwitches" validate:"required,dive"`
	MacroDataStatus   map[string]MacroStatus       `json:"macroDataStatus"`
	Assets            []AssetRow                   `json:"assets" validate:"required,dive"`
	AssetSignals      []AssetSignal                `json:"assetSignals" validate:"required,dive"`
	DataStatus        map[string]DataStatus        `json:"dataStatus"`
	WeeklyKondratieff *WeeklyKondratieff           `json:"weeklyKondratieff"`
	TechnicalData     map[string]TechnicalFeatures `json:"technicalData"`
	PriceHistory      map[string][]OHLCPoint       `json:"priceHistory"`
}

// DailySignal is the headline record.
type DailySignal struct {
	Date                string   `json:"date"`
	Regime              Regime   `json:"regime" validate:"oneof=A B C D"`
	RegimeLabel         string   `json:"regimeLabel"`
	RiskScore           float64  `json:"riskScore" validate:"gte=0,lte=100"`
	RiskScoreConfidence float64  `json:"riskScoreConfidence" validate:"gte=0,lte=1"`
	Drivers             []string `json:"drivers" validate:"required,min=1"`
	PortfolioAction     Action   `json:"portfolioAction" validate:"oneof=ADD HOLD REDUCE"`
	RiskMode            string   `json:"riskMode"`
	AIDiffusionIndex    float64  `json:"aiDiffusionIndex"`
	ConstraintIndex     float64  `json:"constraintIndex"`
	CommentSummary      string   `json:"commentSummary"`
	DataAsOf            string   `json:"dataAsOf"`
}

// MacroSwitch is one row of the macro panel.
type MacroSwitch struct {
	ID           string     `json:"id" validate:"required"`
	Name         string     `json:"name"`
	CurrentValue null.Float `json:"currentValue"`
	Change7d     null.Float `json:"change7d"`
	Change1m     null.Float `json:"change1m"`
	Percentile   float64    `json:"percentile"`
	Light        Light      `json:"light" validate:"oneof=green yellow red"`
	Freshness    int        `json:"freshness"`
	Frequency    string     `json:"frequency"` // D or M
}

// MacroStatus is the per-indicator observability record.
type MacroStatus struct {
	Provider      string      `json:"provider"`
	OK            bool        `json:"ok"`
	Note          null.String `json:"note"`
	Freq          string      `json:"freq"`
	FreshnessDays int         `json:"freshness_days"`
	Reason        null.String `json:"reason"`
}

// AssetRow is the display row for one asset.
type AssetRow struct {
	ID                 string      `json:"id" validate:"required"`
	Name               string      `json:"name"`
	Ticker             string      `json:"ticker" validate:"required"`
	AssetType          string      `json:"assetType"`
	Currency           string      `json:"currency"`
	BenchmarkID        null.String `json:"benchmarkId"`
	BaseMaxWeight      float64     `json:"baseMaxWeight"`
	CurrentWeight      float64     `json:"currentWeight"`
	SuggestedMaxWeight float64     `json:"suggestedMaxWeight"`
	Price              null.Float  `json:"price"`
	PriceChange24h     null.Float  `json:"priceChange24h"`
	PriceChange7d      null.Float  `json:"priceChange7d"`
	PriceChange30d     null.Float  `json:"priceChange30d"`
}

// DataStatus is the per-ticker observability record.
type DataStatus struct {
	Provider      string            `json:"provider"`
	FreshnessDays int               `json:"freshness_days"`
	OK            bool              `json:"ok"`
	Note          null.String       `json:"note"`
	LastDate      null.String       `json:"last_date"`
	LastObsDate   null.String       `json:"last_obs_date"`
	RowCount      int               `json:"row_count"`
	ErrorReason   null.String       `json:"error_reason"`
	MappedSymbol  null.String       `json:"mapped_symbol"`
	AsOfTS        string            `json:"asof_ts"`
	IsProxy       bool              `json:"is_proxy"`
	ProxyFor      null.String       `json:"proxy_for"`
	StalePolicy   null.String       `json:"stale_policy"`
	PriceAdjusted bool              `json:"price_adjusted"`
	Attempts      []ProviderAttempt `json:"attempts"`
}

// WeeklyKondratieff is the weekly composite.
type WeeklyKondratieff struct {
	Date              string                `json:"date"`
	AIDiffusionIndex  null.Float            `json:"aiDiffusionIndex"`
	ConstraintIndex   null.Float            `json:"constraintIndex"`
	Phase             string                `json:"phase"`
	Strategy          string                `json:"strategy"`
	Components        KondratieffComponents `json:"components"`
	ChainInputMissing null.String           `json:"chainInputMissing"`
}

// KondratieffComponents are the composite inputs.
type KondratieffComponents struct {
	SOXRatio       float64 `json:"soxRatio"`
	NVDARatio      float64 `json:"nvdaRatio"`
	UtilityRatio   float64 `json:"utilityRatio"`
	CopperMomentum float64 `json:"copperMomentum"`
	EnergyPrice    float64 `json:"energyPrice"`
}

// Snapshot carries a payload together with its serialized form to downstream sinks.
type Snapshot struct {
	RunID   string
	Payload *DashboardPayload
	Raw     []byte
}
