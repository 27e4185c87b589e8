package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/guregu/null/v5"
	"golang.org/x/sync/errgroup"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/internal/service/providers"
	"github.com/seethefuture888888-creator/kangbo/internal/services/features"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

// Daily signal driver codes.
const (
	DriverHYFalling      = "HY_SPREAD_FALLING"
	DriverRealFalling    = "REAL_RATE_FALLING"
	DriverUSDWeakening   = "USD_WEAKENING"
	DriverPMIExpansion   = "PMI_EXPANSION"
	DriverMacroMissing   = "MACRO_MISSING_OBS"
	DriverDataUpdating   = "DATA_UPDATING"
	driverLowConfidence  = "CONFIDENCE_LOW_DUE_TO_"
	ChainInputMissing    = "CHAIN_INPUT_MISSING"
	noteStaleFallback    = "stale/fallback"
	noteMissingObs       = "missing_observation"
	noteNeutralFallback  = "neutral_fallback"
	phaseTransition      = "transition"
	copperMomentumBars   = 25
	riskModeOffensive    = "offensive"
	riskModeDefensive    = "defensive"
	dataAsOfLayout       = "2006-01-02 15:04 UTC"
	generatedAtLayout    = "2006-01-02T15:04:05Z"
	providerFRED         = "fred"
	providerFREDDollar   = "fred_dtwexbgs"
	proxyProviderPrefix  = "proxy:"
	symbolMappedToPrefix = "symbol_mapped_to="
)

// ErrNoAssets is returned when the builder has nothing to track.
var ErrNoAssets = errors.New("usecase: asset table is empty")

var regimeMultipliers = map[models.Regime]float64{
	models.RegimeA: 1.0,
	models.RegimeB: 0.9,
	models.RegimeC: 0.7,
	models.RegimeD: 0.95,
}

// Builder assembles a DashboardPayload from macro indicators and provider results.
type Builder struct {
	assets  []models.AssetDefinition
	workers int
}

func NewBuilder(assets []models.AssetDefinition, workers int) *Builder {
	if workers <= 0 {
		workers = 4
	}
	return &Builder{assets: assets, workers: workers}
}

// Assets returns the tracked asset table.
func (b *Builder) Assets() []models.AssetDefinition { return b.assets }

type assetOutput struct {
	row    models.AssetRow
	signal models.AssetSignal
	tech   models.TechnicalFeatures
	status models.DataStatus
}

// Build is a pure function of its inputs. results is keyed by ticker; a missing entry is treated as exhausted.
func (b *Builder) Build(ctx context.Context, macro models.MacroSet, results map[string]models.ProviderResult, now time.Time) (*models.DashboardPayload, error) {
	if len(b.assets) == 0 {
		return nil, ErrNoAssets
	}
	now = now.UTC()
	today := util.FormatDay(now)
	generatedAt := now.Format(generatedAtLayout)

	risk, confidence, missing := RiskScore(MacroInputsFrom(macro))
	regime, label := ClassifyRegime(RegimeInputsFrom(macro, risk))
	daily := dailySignal(macro, risk, confidence, missing, regime, label, now)

	outputs := make([]assetOutput, len(b.assets))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, def := range b.assets {
		i, def := i, def
		g.Go(func() error {
			res, ok := results[def.Ticker]
			if !ok {
				res = models.ProviderResult{Ticker: def.Ticker, Provider: providers.ProviderFallback, ErrorReason: providers.ErrorAllSourcesFailed}
			}
			outputs[i] = buildAsset(def, res, macro, regime, today, generatedAt, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payload := &models.DashboardPayload{
		Version:         models.PayloadVersion,
		GeneratedAt:     generatedAt,
		DailySignal:     daily,
		MacroSwitches:   macroSwitches(macro),
		MacroDataStatus: macroDataStatus(macro),
		Assets:          make([]models.AssetRow, 0, len(outputs)),
		AssetSignals:    make([]models.AssetSignal, 0, len(outputs)),
		DataStatus:      make(map[string]models.DataStatus, len(outputs)),
		TechnicalData:   make(map[string]models.TechnicalFeatures, len(outputs)),
		PriceHistory:    map[string][]models.OHLCPoint{},
	}
	for _, out := range outputs {
		payload.Assets = append(payload.Assets, out.row)
		payload.AssetSignals = append(payload.AssetSignals, out.signal)
		payload.DataStatus[out.row.Ticker] = out.status
		payload.TechnicalData[out.row.ID] = out.tech
	}
	var copper []models.OHLCPoint
	if res, ok := results[models.TickerCopper]; ok {
		copper = res.Series
	}
	payload.WeeklyKondratieff = weeklyKondratieff(daily, label, copper, today)
	return payload, nil
}

func dailySignal(macro models.MacroSet, risk, confidence float64, missing []string, regime models.Regime, label string, now time.Time) *models.DailySignal {
	drivers := []string{}
	if below(macro.HY.Change1m, 0) {
		drivers = append(drivers, DriverHYFalling)
	}
	if below(macro.Real10Y.Change1m, 0) {
		drivers = append(drivers, DriverRealFalling)
	}
	if below(macro.DXY.Change1m, 0) {
		drivers = append(drivers, DriverUSDWeakening)
	}
	if atLeast(realPMI(macro.PMI), 50) {
		drivers = append(drivers, DriverPMIExpansion)
	}
	if macro.PMI.Reason == models.ReasonPMIFallback {
		drivers = append(drivers, models.ReasonPMIFallback)
	}
	for _, id := range missing {
		drivers = append(drivers, driverLowConfidence+id)
	}
	if len(missing) > 0 {
		drivers = append(drivers, DriverMacroMissing)
	}
	if len(drivers) == 0 {
		drivers = append(drivers, DriverDataUpdating)
	}

	action := models.ActionHold
	switch {
	case regime == models.RegimeC:
		action = models.ActionReduce
	case (regime == models.RegimeA || regime == models.RegimeD) && risk < 55:
		action = models.ActionAdd
	}
	mode := riskModeDefensive
	if risk < 50 {
		mode = riskModeOffensive
	}

	return &models.DailySignal{
		Date:                util.FormatDay(now),
		Regime:              regime,
		RegimeLabel:         label,
		RiskScore:           risk,
		RiskScoreConfidence: util.Round(confidence, 2),
		Drivers:             drivers,
		PortfolioAction:     action,
		RiskMode:            mode,
		AIDiffusionIndex:    util.Round(50+(50-risk)*0.36, 2),
		ConstraintIndex:     util.Round(math.Min(80, risk*0.8), 2),
		CommentSummary:      fmt.Sprintf("Regime %s, RiskScore %.0f. %s.", label, risk, strings.Join(firstN(drivers, 3), "; ")),
		DataAsOf:            now.Format(dataAsOfLayout),
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

type switchRow struct {
	id, name, freq string
	ind            func(models.MacroSet) models.MacroIndicator
}

var switchRows = []switchRow{
	{"HY_SPREAD", "HY Credit Spread", "D", func(s models.MacroSet) models.MacroIndicator { return s.HY }},
	{"REAL10Y", "10Y Real Rate", "D", func(s models.MacroSet) models.MacroIndicator { return s.Real10Y }},
	{"DXY", "US Dollar Index", "D", func(s models.MacroSet) models.MacroIndicator { return s.DXY }},
	{"PMI", "Manufacturing PMI (New Orders proxy)", "M", func(s models.MacroSet) models.MacroIndicator { return s.PMI }},
	{"CORE_INFL", "Core Inflation (YoY %)", "M", func(s models.MacroSet) models.MacroIndicator { return s.CoreCPI }},
}

func macroSwitches(macro models.MacroSet) []models.MacroSwitch {
	out := make([]models.MacroSwitch, 0, len(switchRows))
	for _, r := range switchRows {
		ind := r.ind(macro)
		pct := 50.0
		light := pctLight(pct)
		if r.id == "PMI" {
			if ind.Value.Valid {
				pct = util.Round(util.Clamp((ind.Value.Float64-35)/30*100, 0, 100), 1)
			}
			light = pctLight(100 - pct)
		}
		out = append(out, models.MacroSwitch{
			ID:           r.id,
			Name:         r.name,
			CurrentValue: roundNull(ind.Value, 2),
			Change7d:     roundNull(ind.Change7d, 4),
			Change1m:     roundNull(ind.Change1m, 4),
			Percentile:   pct,
			Light:        light,
			Freshness:    ind.FreshnessDays,
			Frequency:    r.freq,
		})
	}
	return out
}

func macroDataStatus(macro models.MacroSet) map[string]models.MacroStatus {
	out := make(map[string]models.MacroStatus, len(switchRows))
	for _, r := range switchRows {
		ind := r.ind(macro)
		provider := providerFRED
		if r.id == "DXY" {
			provider = providerFREDDollar
		}
		st := models.MacroStatus{
			Provider:      provider,
			OK:            ind.Value.Valid && ind.Reason == "",
			Freq:          r.freq,
			FreshnessDays: ind.FreshnessDays,
		}
		switch {
		case !ind.Value.Valid:
			st.Note = null.StringFrom(noteMissingObs)
		case ind.Reason != "":
			st.Note = null.StringFrom(noteNeutralFallback)
		}
		if ind.Reason != "" {
			st.Reason = null.StringFrom(ind.Reason)
		}
		out[r.id] = st
	}
	return out
}

func buildAsset(def models.AssetDefinition, res models.ProviderResult, macro models.MacroSet, regime models.Regime, today, generatedAt string, now time.Time) assetOutput {
	series := res.Series
	tech := features.Compute(def.ID, series)
	ret := features.Returns(series)

	price := null.Float{}
	if ret.Price.Valid && util.Finite(ret.Price.Float64) {
		if rounded := util.Round(ret.Price.Float64, 2); rounded > 0 {
			price = null.FloatFrom(rounded)
		}
	}

	rowCount := res.RowCount
	if rowCount == 0 {
		rowCount = len(series)
	}
	trend := trendLight(price, tech)
	riskL := riskLight(tech.VolPercentile1y)
	var reasons []string
	if rowCount < models.MinHistoryRows {
		trend, riskL = models.LightYellow, models.LightYellow
		reasons = append(reasons, models.ReasonInsufficientHistory)
	}
	catalyst := catalystLight(regime, macro)

	suggested := suggestedWeight(def.BaseMaxWeight, regime, tech.VolPercentile1y)
	action := models.ActionHold
	switch {
	case riskL == models.LightRed || trend == models.LightRed:
		action = models.ActionReduce
	case trend == models.LightGreen && catalyst != models.LightRed && suggested > 0:
		action = models.ActionAdd
	}

	if res.IsProxy {
		reasons = append(reasons, models.ReasonProxyUsed)
	}
	if trend == models.LightGreen {
		reasons = append(reasons, models.ReasonTrendUp)
	}
	if riskL == models.LightRed {
		reasons = append(reasons, models.ReasonVolHigh)
	}
	if regime == models.RegimeC {
		reasons = append(reasons, models.ReasonRegimeC)
	}
	if catalyst == models.LightGreen {
		reasons = append(reasons, models.ReasonCatalystOK)
	}
	if len(reasons) == 0 {
		reasons = []string{models.ReasonHold}
	}

	row := models.AssetRow{
		ID:                 def.ID,
		Name:               def.Name,
		Ticker:             def.Ticker,
		AssetType:          def.AssetType,
		Currency:           def.Currency,
		BaseMaxWeight:      def.BaseMaxWeight,
		CurrentWeight:      0,
		SuggestedMaxWeight: suggested,
		Price:              price,
		PriceChange24h:     finiteNull(ret.Change1d),
		PriceChange7d:      finiteNull(ret.Change7d),
		PriceChange30d:     finiteNull(ret.Change30d),
	}
	if def.BenchmarkID != "" {
		row.BenchmarkID = null.StringFrom(def.BenchmarkID)
	}

	return assetOutput{
		row: row,
		signal: models.AssetSignal{
			AssetID:            def.ID,
			Date:               today,
			TrendLight:         trend,
			RiskLight:          riskL,
			CatalystLight:      catalyst,
			SuggestedMaxWeight: suggested,
			Action:             action,
			ReasonCodes:        reasons,
			Notes:              fmt.Sprintf("%s/%s/%s", trend, riskL, catalyst),
		},
		tech:   sanitizeFeatures(tech),
		status: dataStatus(def, res, generatedAt, now),
	}
}

func pctLight(p float64) models.Light {
	switch {
	case p <= 33:
		return models.LightGreen
	case p <= 66:
		return models.LightYellow
	default:
		return models.LightRed
	}
}

func trendLight(price null.Float, tf models.TechnicalFeatures) models.Light {
	if !price.Valid || !tf.MA200.Valid {
		return models.LightYellow
	}
	p := price.Float64
	if tf.MA20.Valid && tf.MA60.Valid && p > tf.MA20.Float64 && tf.MA20.Float64 > tf.MA60.Float64 && tf.MA60.Float64 > tf.MA200.Float64 {
		return models.LightGreen
	}
	if p < tf.MA200.Float64 {
		return models.LightRed
	}
	return models.LightYellow
}

func riskLight(volPct null.Float) models.Light {
	p := 50.0
	if volPct.Valid {
		p = volPct.Float64
	}
	return pctLight(100 - p)
}

func catalystLight(regime models.Regime, macro models.MacroSet) models.Light {
	switch regime {
	case models.RegimeC:
		return models.LightRed
	case models.RegimeA:
		if !macro.Real10Y.Value.Valid || macro.Real10Y.Value.Float64 < 1.0 {
			return models.LightGreen
		}
	case models.RegimeD:
		if below(macro.DXY.Change1m, -0.5) {
			return models.LightGreen
		}
	}
	return models.LightYellow
}

func suggestedWeight(base float64, regime models.Regime, volPct null.Float) float64 {
	mult, ok := regimeMultipliers[regime]
	if !ok {
		mult = 1.0
	}
	riskMult := 1.0
	switch {
	case above(volPct, 70):
		riskMult = 0.8
	case above(volPct, 50):
		riskMult = 0.9
	}
	return util.Round(math.Min(base, base*mult*riskMult), 2)
}

func dataStatus(def models.AssetDefinition, res models.ProviderResult, generatedAt string, now time.Time) models.DataStatus {
	provider := res.Provider
	if provider == "" {
		provider = providers.ProviderFallback
	}
	if res.IsProxy && res.ProxyFor != "" {
		provider = proxyProviderPrefix + res.ProxyFor
	}

	st := models.DataStatus{
		Provider:      provider,
		FreshnessDays: models.FreshnessUnknown,
		OK:            res.OK(),
		RowCount:      res.RowCount,
		AsOfTS:        generatedAt,
		IsProxy:       res.IsProxy,
		PriceAdjusted: res.PriceAdjusted,
		Attempts:      res.Attempts,
	}
	if st.Attempts == nil {
		st.Attempts = []models.ProviderAttempt{}
	}
	if st.RowCount == 0 {
		st.RowCount = len(res.Series)
	}

	var notes []string
	if len(res.Series) == 0 || provider == providers.ProviderFallback {
		notes = append(notes, noteStaleFallback)
	}
	if providers.IsHK(def.Ticker) && res.MappedSymbol != "" && res.MappedSymbol != def.Ticker {
		notes = append(notes, symbolMappedToPrefix+res.MappedSymbol)
	}
	if len(notes) > 0 {
		st.Note = null.StringFrom(strings.Join(notes, "; "))
	}

	if !res.LastObserved.IsZero() {
		day := util.FormatDay(res.LastObserved)
		st.LastDate = null.StringFrom(day)
		st.LastObsDate = null.StringFrom(day)
		st.FreshnessDays = models.DaysBetween(res.LastObserved, now)
	}
	if res.ErrorReason != "" {
		st.ErrorReason = null.StringFrom(res.ErrorReason)
	}
	if res.MappedSymbol != "" {
		st.MappedSymbol = null.StringFrom(res.MappedSymbol)
	}
	if res.ProxyFor != "" {
		st.ProxyFor = null.StringFrom(res.ProxyFor)
	}
	return st
}

func weeklyKondratieff(daily *models.DailySignal, label string, copper []models.OHLCPoint, today string) *models.WeeklyKondratieff {
	wk := &models.WeeklyKondratieff{
		Date:  today,
		Phase: phaseTransition,
		Components: models.KondratieffComponents{
			SOXRatio:     1.0,
			NVDARatio:    1.0,
			UtilityRatio: 1.0,
		},
	}
	strategy := "Regime " + label + "; " + strings.Join(firstN(daily.Drivers, 3), "; ")

	n := len(copper)
	if n >= copperMomentumBars {
		wk.AIDiffusionIndex = null.FloatFrom(daily.AIDiffusionIndex)
		wk.ConstraintIndex = null.FloatFrom(daily.ConstraintIndex)
		if prev := copper[n-copperMomentumBars].Close; prev != 0 {
			mom := (copper[n-1].Close/prev - 1) * 100
			if util.Finite(mom) {
				wk.Components.CopperMomentum = util.Round(mom, 4)
			}
		}
	} else {
		wk.ChainInputMissing = null.StringFrom(ChainInputMissing)
		strategy += "; " + ChainInputMissing
	}
	wk.Strategy = strategy
	return wk
}

func roundNull(v null.Float, dp int) null.Float {
	if !v.Valid || !util.Finite(v.Float64) {
		return null.Float{}
	}
	return null.FloatFrom(util.Round(v.Float64, dp))
}

func finiteNull(v null.Float) null.Float {
	if !v.Valid || !util.Finite(v.Float64) {
		return null.Float{}
	}
	return v
}

func sanitizeFeatures(tf models.TechnicalFeatures) models.TechnicalFeatures {
	tf.MA20 = finiteNull(tf.MA20)
	tf.MA60 = finiteNull(tf.MA60)
	tf.MA200 = finiteNull(tf.MA200)
	tf.Momentum12w = finiteNull(tf.Momentum12w)
	tf.AnnualizedVol20 = finiteNull(tf.AnnualizedVol20)
	tf.MaxDrawdown60 = finiteNull(tf.MaxDrawdown60)
	tf.MaxDrawdown120 = finiteNull(tf.MaxDrawdown120)
	tf.VolPercentile1y = finiteNull(tf.VolPercentile1y)
	tf.DDPercentile1y = finiteNull(tf.DDPercentile1y)
	return tf
}
