package usecase

import (
	"testing"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

func f(v float64) null.Float { return null.FloatFrom(v) }

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		name   string
		in     RegimeInputs
		regime models.Regime
		label  string
	}{
		{
			name:   "low risk wins over everything",
			in:     RegimeInputs{RiskScore: 39.9, HY: f(9), PMI: f(40), HYChange1m: f(-1), RealChange1m: f(-1)},
			regime: models.RegimeA, label: "A",
		},
		{
			name:   "recovery with weakening dollar",
			in:     RegimeInputs{RiskScore: 60, HY: f(5.5), HYChange1m: f(-0.3), RealChange1m: f(-0.1), DXYChange1m: f(-0.8)},
			regime: models.RegimeD, label: LabelDEarly,
		},
		{
			name:   "recovery without dollar signal",
			in:     RegimeInputs{RiskScore: 60, HY: f(5.5), HYChange1m: f(-0.3), RealChange1m: f(-0.1)},
			regime: models.RegimeD, label: LabelDLate,
		},
		{
			name:   "contraction",
			in:     RegimeInputs{RiskScore: 72, HY: f(7), PMI: f(45), CoreCPI: f(4), Real10Y: f(2)},
			regime: models.RegimeC, label: "C",
		},
		{
			name:   "expansion with inflation",
			in:     RegimeInputs{RiskScore: 55, HY: f(4), PMI: f(52), CoreCPI: f(3.5)},
			regime: models.RegimeB, label: "B",
		},
		{
			name:   "expansion with high real rate",
			in:     RegimeInputs{RiskScore: 55, PMI: f(50), Real10Y: f(1.8)},
			regime: models.RegimeB, label: "B",
		},
		{
			name:   "clean expansion",
			in:     RegimeInputs{RiskScore: 45, PMI: f(51), CoreCPI: f(2.5), Real10Y: f(1)},
			regime: models.RegimeA, label: "A",
		},
		{
			name:   "credit fallback high",
			in:     RegimeInputs{RiskScore: 65, HY: f(6.5)},
			regime: models.RegimeC, label: "C",
		},
		{
			name:   "credit fallback mid",
			in:     RegimeInputs{RiskScore: 65, HY: f(5.5)},
			regime: models.RegimeB, label: "B",
		},
		{
			name:   "nothing known",
			in:     RegimeInputs{RiskScore: 50},
			regime: models.RegimeA, label: "A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regime, label := ClassifyRegime(tt.in)
			assert.Equal(t, tt.regime, regime)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestClassifyRegimeIsPure(t *testing.T) {
	in := RegimeInputs{RiskScore: 70, HY: f(7), PMI: f(45)}
	r1, l1 := ClassifyRegime(in)
	r2, l2 := ClassifyRegime(in)
	assert.Equal(t, r1, r2)
	assert.Equal(t, l1, l2)
}

func TestStressScenarioEndToEnd(t *testing.T) {
	set := models.EmptyMacroSet()
	set.HY.Value = f(7)
	set.Real10Y.Value = f(2)
	set.PMI.Value = f(45)
	set.CoreCPI.Value = f(4)

	risk, _, _ := RiskScore(MacroInputsFrom(set))
	assert.GreaterOrEqual(t, risk, 60.0)

	regime, _ := ClassifyRegime(RegimeInputsFrom(set, risk))
	assert.Equal(t, models.RegimeC, regime)
}

func TestFallbackPMIDoesNotSignalExpansion(t *testing.T) {
	set := models.EmptyMacroSet()
	set.PMI = models.MacroIndicator{ID: models.IndicatorPMI, Value: f(50), Reason: models.ReasonPMIFallback}
	set.CoreCPI.Value = f(4)

	regime, _ := ClassifyRegime(RegimeInputsFrom(set, 55))
	assert.Equal(t, models.RegimeA, regime)
	assert.False(t, RegimeInputsFrom(set, 55).PMI.Valid)
}
