package usecase

import (
	"github.com/guregu/null/v5"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

// Category weights of the composite risk score.
const (
	weightCredit    = 0.35
	weightLiquidity = 0.30
	weightGrowth    = 0.20
	weightInflation = 0.15

	neutralScore = 50.0
)

// MacroInputs are the latest levels fed to scoring. A null level scores neutral.
type MacroInputs struct {
	HY      null.Float
	Real10Y null.Float
	DXY     null.Float
	PMI     null.Float
	CoreCPI null.Float
}

// MacroInputsFrom extracts scoring inputs. The PMI fallback sentinel is passed as null.
func MacroInputsFrom(set models.MacroSet) MacroInputs {
	return MacroInputs{
		HY:      set.HY.Value,
		Real10Y: set.Real10Y.Value,
		DXY:     set.DXY.Value,
		PMI:     realPMI(set.PMI),
		CoreCPI: set.CoreCPI.Value,
	}
}

func realPMI(ind models.MacroIndicator) null.Float {
	if ind.Reason == models.ReasonPMIFallback {
		return null.Float{}
	}
	return ind.Value
}

// linearScore maps v from [lo, hi] onto [0, 100], clamped. Null maps to 50.
func linearScore(v null.Float, lo, hi float64) float64 {
	if !v.Valid || !util.Finite(v.Float64) {
		return neutralScore
	}
	return util.Clamp((v.Float64-lo)/(hi-lo)*100, 0, 100)
}

// RiskScore computes the weighted composite in [0, 100] rounded to one decimal,
// its confidence and the missing indicator ids in fixed order.
func RiskScore(in MacroInputs) (float64, float64, []string) {
	credit := linearScore(in.HY, 2, 8)
	realRate := linearScore(in.Real10Y, 0, 3)
	dollar := linearScore(in.DXY, 90, 130)
	liquidity := (realRate + dollar) / 2
	growth := neutralScore
	if in.PMI.Valid {
		growth = 100 - linearScore(in.PMI, 35, 65)
	}
	inflation := linearScore(in.CoreCPI, 1, 5)

	total := weightCredit*credit + weightLiquidity*liquidity + weightGrowth*growth + weightInflation*inflation
	score := util.Round(util.Clamp(total, 0, 100), 1)

	missing := missingInputs(in)
	return score, confidenceFor(len(missing)), missing
}

func missingInputs(in MacroInputs) []string {
	missing := []string{}
	for _, c := range []struct {
		id string
		v  null.Float
	}{
		{models.IndicatorHY, in.HY},
		{models.IndicatorReal10Y, in.Real10Y},
		{models.IndicatorDXY, in.DXY},
		{models.IndicatorPMI, in.PMI},
		{models.IndicatorCoreCPI, in.CoreCPI},
	} {
		if !c.v.Valid {
			missing = append(missing, c.id)
		}
	}
	return missing
}

func confidenceFor(missing int) float64 {
	switch {
	case missing == 0:
		return 1.0
	case missing == 1:
		return 0.8
	case missing == 2:
		return 0.6
	default:
		return 0.4
	}
}
