package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

var buildNow = time.Date(2024, 6, 3, 12, 30, 0, 0, time.UTC)

func series(n int, start, step float64) []models.OHLCPoint {
	out := make([]models.OHLCPoint, n)
	day := models.Day(buildNow).AddDate(0, 0, -n)
	for i := range out {
		out[i] = models.FlatPoint(day.AddDate(0, 0, i+1), start+step*float64(i))
	}
	return out
}

func okResult(ticker string, pts []models.OHLCPoint) models.ProviderResult {
	return models.ProviderResult{
		Ticker:        ticker,
		Series:        pts,
		Provider:      "yahoo",
		LastObserved:  pts[len(pts)-1].Date,
		RowCount:      len(pts),
		MappedSymbol:  ticker,
		PriceAdjusted: true,
	}
}

func signalFor(t *testing.T, p *models.DashboardPayload, id string) models.AssetSignal {
	t.Helper()
	for _, s := range p.AssetSignals {
		if s.AssetID == id {
			return s
		}
	}
	t.Fatalf("no signal for %s", id)
	return models.AssetSignal{}
}

func rowFor(t *testing.T, p *models.DashboardPayload, id string) models.AssetRow {
	t.Helper()
	for _, r := range p.Assets {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("no row for %s", id)
	return models.AssetRow{}
}

func TestBuildWithNothingAvailable(t *testing.T) {
	b := NewBuilder(models.DefaultAssets(), 2)
	p, err := b.Build(context.Background(), models.EmptyMacroSet(), nil, buildNow)
	require.NoError(t, err)

	assert.Equal(t, models.PayloadVersion, p.Version)
	assert.Equal(t, "2024-06-03T12:30:00Z", p.GeneratedAt)
	assert.Len(t, p.Assets, 8)
	assert.Len(t, p.AssetSignals, 8)
	assert.Len(t, p.DataStatus, 8)
	assert.Len(t, p.TechnicalData, 8)
	assert.NotNil(t, p.PriceHistory)

	for _, row := range p.Assets {
		assert.False(t, row.Price.Valid, row.ID)
		assert.False(t, row.PriceChange24h.Valid, row.ID)
	}
	for _, s := range p.AssetSignals {
		assert.Equal(t, models.LightYellow, s.TrendLight, s.AssetID)
		assert.Equal(t, models.LightYellow, s.RiskLight, s.AssetID)
		assert.Equal(t, models.ReasonInsufficientHistory, s.ReasonCodes[0], s.AssetID)
	}

	st := p.DataStatus["GC=F"]
	assert.Equal(t, "fallback", st.Provider)
	assert.False(t, st.OK)
	assert.Equal(t, models.FreshnessUnknown, st.FreshnessDays)
	assert.Equal(t, "stale/fallback", st.Note.String)
	assert.Equal(t, "all_sources_failed", st.ErrorReason.String)
	assert.NotNil(t, st.Attempts)

	ds := p.DailySignal
	assert.Equal(t, 50.0, ds.RiskScore)
	assert.Equal(t, 0.4, ds.RiskScoreConfidence)
	assert.Equal(t, models.RegimeA, ds.Regime)
	assert.Equal(t, models.ActionAdd, ds.PortfolioAction)
	assert.Equal(t, "defensive", ds.RiskMode)
	assert.Equal(t, 50.0, ds.AIDiffusionIndex)
	assert.Equal(t, 40.0, ds.ConstraintIndex)
	assert.Equal(t, "2024-06-03 12:30 UTC", ds.DataAsOf)
	assert.Contains(t, ds.Drivers, DriverMacroMissing)
	assert.Equal(t, "Regime A, RiskScore 50. CONFIDENCE_LOW_DUE_TO_HY; CONFIDENCE_LOW_DUE_TO_REAL10Y; CONFIDENCE_LOW_DUE_TO_DXY.", ds.CommentSummary)

	wk := p.WeeklyKondratieff
	assert.Equal(t, ChainInputMissing, wk.ChainInputMissing.String)
	assert.False(t, wk.AIDiffusionIndex.Valid)
	assert.Contains(t, wk.Strategy, "; CHAIN_INPUT_MISSING")

	for _, sw := range p.MacroSwitches {
		assert.False(t, sw.CurrentValue.Valid, sw.ID)
		assert.Equal(t, models.FreshnessUnknown, sw.Freshness, sw.ID)
		assert.Equal(t, "missing_observation", p.MacroDataStatus[sw.ID].Note.String, sw.ID)
	}
}

func TestBuildShortHistoryIsYellow(t *testing.T) {
	defs := []models.AssetDefinition{{ID: "TSLA", Name: "Tesla", Ticker: "TSLA", BaseMaxWeight: 0.15}}
	b := NewBuilder(defs, 1)
	results := map[string]models.ProviderResult{"TSLA": okResult("TSLA", series(219, 100, 1))}

	p, err := b.Build(context.Background(), models.EmptyMacroSet(), results, buildNow)
	require.NoError(t, err)

	s := signalFor(t, p, "TSLA")
	assert.Equal(t, models.LightYellow, s.TrendLight)
	assert.Equal(t, models.LightYellow, s.RiskLight)
	assert.Contains(t, s.ReasonCodes, models.ReasonInsufficientHistory)
	assert.True(t, rowFor(t, p, "TSLA").Price.Valid)
}

func TestBuildUptrend(t *testing.T) {
	defs := []models.AssetDefinition{{ID: "TSLA", Name: "Tesla", Ticker: "TSLA", BenchmarkID: "SPY", BaseMaxWeight: 0.15}}
	b := NewBuilder(defs, 1)
	results := map[string]models.ProviderResult{"TSLA": okResult("TSLA", series(300, 100, 1))}

	p, err := b.Build(context.Background(), models.EmptyMacroSet(), results, buildNow)
	require.NoError(t, err)

	s := signalFor(t, p, "TSLA")
	assert.Equal(t, models.LightGreen, s.TrendLight)
	assert.Equal(t, models.LightGreen, s.RiskLight)
	assert.Equal(t, models.ActionAdd, s.Action, "green trend with a positive suggested weight adds")
	assert.Equal(t, []string{models.ReasonTrendUp, models.ReasonCatalystOK}, s.ReasonCodes)
	assert.Equal(t, "green/green/green", s.Notes)
	assert.Equal(t, 0.12, s.SuggestedMaxWeight)

	row := rowFor(t, p, "TSLA")
	assert.Equal(t, 399.0, row.Price.Float64)
	assert.Equal(t, "SPY", row.BenchmarkID.String)

	st := p.DataStatus["TSLA"]
	assert.True(t, st.OK)
	assert.Equal(t, 0, st.FreshnessDays)
	assert.Equal(t, "2024-06-03", st.LastObsDate.String)
	assert.False(t, st.Note.Valid)
}

func TestBuildSubCentCloseIsNullPrice(t *testing.T) {
	defs := []models.AssetDefinition{{ID: "BTC", Name: "Bitcoin", Ticker: "BTC-USD", BaseMaxWeight: 0.25}}
	b := NewBuilder(defs, 1)
	results := map[string]models.ProviderResult{"BTC-USD": okResult("BTC-USD", series(30, 0.004, 0))}

	p, err := b.Build(context.Background(), models.EmptyMacroSet(), results, buildNow)
	require.NoError(t, err)

	row := rowFor(t, p, "BTC")
	assert.False(t, row.Price.Valid)
	raw, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"price":null`)
}

func TestBuildDowntrendReduces(t *testing.T) {
	defs := []models.AssetDefinition{{ID: "XAG", Name: "Silver", Ticker: "SI=F", BaseMaxWeight: 0.08}}
	b := NewBuilder(defs, 1)
	results := map[string]models.ProviderResult{"SI=F": okResult("SI=F", series(300, 400, -1))}

	p, err := b.Build(context.Background(), models.EmptyMacroSet(), results, buildNow)
	require.NoError(t, err)

	s := signalFor(t, p, "XAG")
	assert.Equal(t, models.LightRed, s.TrendLight)
	assert.Equal(t, models.ActionReduce, s.Action)
	assert.Contains(t, s.ReasonCodes, models.ReasonVolHigh)
	assert.False(t, rowFor(t, p, "XAG").BenchmarkID.Valid)
}

func TestBuildProxyAndMappedSymbol(t *testing.T) {
	defs := []models.AssetDefinition{
		{ID: "XAU", Name: "Gold", Ticker: "GC=F", BaseMaxWeight: 0.2},
		{ID: "TENCENT", Name: "Tencent", Ticker: "0700.HK", BaseMaxWeight: 0.15},
	}
	gold := okResult("GC=F", series(300, 100, 1))
	gold.Provider = "stooq"
	gold.IsProxy = true
	gold.ProxyFor = "GC=F"
	gold.MappedSymbol = "xauusd"
	tencent := okResult("0700.HK", series(300, 300, 0.5))
	tencent.MappedSymbol = "700.hk"
	tencent.Provider = "stooq"

	p, err := NewBuilder(defs, 2).Build(context.Background(), models.EmptyMacroSet(), map[string]models.ProviderResult{
		"GC=F":    gold,
		"0700.HK": tencent,
	}, buildNow)
	require.NoError(t, err)

	assert.Equal(t, "proxy:GC=F", p.DataStatus["GC=F"].Provider)
	assert.Contains(t, signalFor(t, p, "XAU").ReasonCodes, models.ReasonProxyUsed)
	assert.Equal(t, "symbol_mapped_to=700.hk", p.DataStatus["0700.HK"].Note.String)
}

func TestBuildSuggestedWeightNeverExceedsBase(t *testing.T) {
	for _, regime := range []models.Regime{models.RegimeA, models.RegimeB, models.RegimeC, models.RegimeD, "X"} {
		for _, vol := range []null.Float{{}, null.FloatFrom(10), null.FloatFrom(60), null.FloatFrom(95)} {
			for _, def := range models.DefaultAssets() {
				w := suggestedWeight(def.BaseMaxWeight, regime, vol)
				assert.LessOrEqual(t, w, def.BaseMaxWeight)
			}
		}
	}
}

func TestBuildStressedMacro(t *testing.T) {
	set := models.EmptyMacroSet()
	set.HY = models.MacroIndicator{ID: models.IndicatorHY, Value: f(7), Change1m: f(0.3), FreshnessDays: 1}
	set.Real10Y = models.MacroIndicator{ID: models.IndicatorReal10Y, Value: f(2), FreshnessDays: 1}
	set.PMI = models.MacroIndicator{ID: models.IndicatorPMI, Value: f(45), FreshnessDays: 20}
	set.CoreCPI = models.MacroIndicator{ID: models.IndicatorCoreCPI, Value: f(4), FreshnessDays: 40}

	p, err := NewBuilder(models.DefaultAssets(), 4).Build(context.Background(), set, nil, buildNow)
	require.NoError(t, err)

	assert.Equal(t, models.RegimeC, p.DailySignal.Regime)
	assert.Equal(t, models.ActionReduce, p.DailySignal.PortfolioAction)
	for _, s := range p.AssetSignals {
		assert.Equal(t, models.LightRed, s.CatalystLight, s.AssetID)
		assert.Contains(t, s.ReasonCodes, models.ReasonRegimeC, s.AssetID)
	}

	var pmi models.MacroSwitch
	for _, sw := range p.MacroSwitches {
		if sw.ID == "PMI" {
			pmi = sw
		}
	}
	assert.Equal(t, 33.3, pmi.Percentile)
	assert.Equal(t, models.LightRed, pmi.Light)
	assert.True(t, p.MacroDataStatus["HY_SPREAD"].OK)
	assert.Equal(t, "fred_dtwexbgs", p.MacroDataStatus["DXY"].Provider)
}

func TestBuildPMIFallbackIsFlagged(t *testing.T) {
	set := models.EmptyMacroSet()
	set.PMI = models.MacroIndicator{ID: models.IndicatorPMI, Value: f(50), FreshnessDays: models.FreshnessUnknown, Reason: models.ReasonPMIFallback}

	p, err := NewBuilder(models.DefaultAssets(), 4).Build(context.Background(), set, nil, buildNow)
	require.NoError(t, err)

	assert.Contains(t, p.DailySignal.Drivers, models.ReasonPMIFallback)
	assert.NotContains(t, p.DailySignal.Drivers, DriverPMIExpansion)
	st := p.MacroDataStatus["PMI"]
	assert.False(t, st.OK)
	assert.Equal(t, models.ReasonPMIFallback, st.Reason.String)
}

func TestBuildCopperMomentum(t *testing.T) {
	defs := []models.AssetDefinition{{ID: "HG", Name: "Copper", Ticker: models.TickerCopper, BaseMaxWeight: 0.15}}
	pts := series(30, 100, 1)
	p, err := NewBuilder(defs, 1).Build(context.Background(), models.EmptyMacroSet(), map[string]models.ProviderResult{
		models.TickerCopper: okResult(models.TickerCopper, pts),
	}, buildNow)
	require.NoError(t, err)

	wk := p.WeeklyKondratieff
	assert.False(t, wk.ChainInputMissing.Valid)
	assert.Equal(t, p.DailySignal.AIDiffusionIndex, wk.AIDiffusionIndex.Float64)
	assert.InDelta(t, (129.0/105.0-1)*100, wk.Components.CopperMomentum, 1e-4)
	assert.Equal(t, 1.0, wk.Components.SOXRatio)
	assert.Equal(t, 0.0, wk.Components.EnergyPrice)
}

func TestBuildRoundTripIsByteIdentical(t *testing.T) {
	set := models.EmptyMacroSet()
	set.HY = models.MacroIndicator{ID: models.IndicatorHY, Value: f(3.21), Change7d: f(-0.05), Change1m: f(-0.31), FreshnessDays: 2}
	results := map[string]models.ProviderResult{
		"TSLA":    okResult("TSLA", series(300, 173.17, 0.37)),
		"SMH":     okResult("SMH", series(250, 211.3, -0.11)),
		"BTC-USD": okResult("BTC-USD", series(400, 41000.5, 13.7)),
	}
	p, err := NewBuilder(models.DefaultAssets(), 4).Build(context.Background(), set, results, buildNow)
	require.NoError(t, err)

	first, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded models.DashboardPayload
	require.NoError(t, json.Unmarshal(first, &decoded))
	second, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestBuildEmptyAssetTable(t *testing.T) {
	_, err := NewBuilder(nil, 1).Build(context.Background(), models.EmptyMacroSet(), nil, buildNow)
	assert.ErrorIs(t, err, ErrNoAssets)
}
