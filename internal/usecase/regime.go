package usecase

import (
	"github.com/guregu/null/v5"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

// Regime labels for the two flavours of recovery.
const (
	LabelDEarly = "D_early"
	LabelDLate  = "D_late"
)

// RegimeInputs is everything the classifier looks at.
type RegimeInputs struct {
	RiskScore    float64
	HY           null.Float
	HYChange1m   null.Float
	Real10Y      null.Float
	RealChange1m null.Float
	DXYChange1m  null.Float
	PMI          null.Float
	CoreCPI      null.Float
}

// RegimeInputsFrom assembles classifier inputs. The PMI fallback sentinel is passed as null.
func RegimeInputsFrom(set models.MacroSet, risk float64) RegimeInputs {
	return RegimeInputs{
		RiskScore:    risk,
		HY:           set.HY.Value,
		HYChange1m:   set.HY.Change1m,
		Real10Y:      set.Real10Y.Value,
		RealChange1m: set.Real10Y.Change1m,
		DXYChange1m:  set.DXY.Change1m,
		PMI:          realPMI(set.PMI),
		CoreCPI:      set.CoreCPI.Value,
	}
}

func above(v null.Float, t float64) bool   { return v.Valid && v.Float64 > t }
func below(v null.Float, t float64) bool   { return v.Valid && v.Float64 < t }
func atLeast(v null.Float, t float64) bool { return v.Valid && v.Float64 >= t }

// ClassifyRegime applies the ordered rules; the first match wins. Null inputs fail every comparison.
func ClassifyRegime(in RegimeInputs) (models.Regime, string) {
	if in.RiskScore < 40 {
		return models.RegimeA, string(models.RegimeA)
	}

	if below(in.HYChange1m, -0.2) && above(in.HY, 5) && below(in.RealChange1m, -0.05) {
		if below(in.DXYChange1m, -0.5) {
			return models.RegimeD, LabelDEarly
		}
		return models.RegimeD, LabelDLate
	}

	if below(in.PMI, 48) && above(in.HY, 6) {
		return models.RegimeC, string(models.RegimeC)
	}

	if atLeast(in.PMI, 50) {
		if above(in.CoreCPI, 3.0) || above(in.Real10Y, 1.5) {
			return models.RegimeB, string(models.RegimeB)
		}
		return models.RegimeA, string(models.RegimeA)
	}

	switch {
	case above(in.HY, 6):
		return models.RegimeC, string(models.RegimeC)
	case above(in.HY, 5):
		return models.RegimeB, string(models.RegimeB)
	default:
		return models.RegimeA, string(models.RegimeA)
	}
}
