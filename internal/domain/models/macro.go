package models

import (
	"time"

	"github.com/guregu/null/v5"
)

// FreshnessUnknown marks an indicator or price series with no usable observation.
const FreshnessUnknown = 999

// Macro indicator identifiers.
const (
	IndicatorHY      = "HY"
	IndicatorReal10Y = "REAL10Y"
	IndicatorDXY     = "DXY"
	IndicatorCoreCPI = "CORE_CPI"
	IndicatorPMI     = "PMI"
)

// ReasonPMIFallback flags the neutral PMI sentinel. It is never a real reading.
const ReasonPMIFallback = "PMI_FALLBACK"

// Observation is one dated macro value.
type Observation struct {
	Date  time.Time
	Value float64
}

// MacroIndicator is the derived view of one macro series for one run.
type MacroIndicator struct {
	ID            string
	Value         null.Float
	Change7d      null.Float
	Change1m      null.Float
	FreshnessDays int
	Reason        string
}

// MissingIndicator returns an indicator with no data.
func MissingIndicator(id string) MacroIndicator {
	return MacroIndicator{ID: id, FreshnessDays: FreshnessUnknown}
}

// MacroSet holds the five indicators consumed by scoring and regime.
type MacroSet struct {
	HY      MacroIndicator
	Real10Y MacroIndicator
	DXY     MacroIndicator
	PMI     MacroIndicator
	CoreCPI MacroIndicator
}

// Set stores ind under its ID. Unknown IDs are ignored.
func (s *MacroSet) Set(ind MacroIndicator) {
	switch ind.ID {
	case IndicatorHY:
		s.HY = ind
	case IndicatorReal10Y:
		s.Real10Y = ind
	case IndicatorDXY:
		s.DXY = ind
	case IndicatorPMI:
		s.PMI = ind
	case IndicatorCoreCPI:
		s.CoreCPI = ind
	}
}

// EmptyMacroSet returns a set where every indicator is missing.
func EmptyMacroSet() MacroSet {
	return MacroSet{
		HY:      MissingIndicator(IndicatorHY),
		Real10Y: MissingIndicator(IndicatorReal10Y),
		DXY:     MissingIndicator(IndicatorDXY),
		PMI:     MissingIndicator(IndicatorPMI),
		CoreCPI: MissingIndicator(IndicatorCoreCPI),
	}
}
