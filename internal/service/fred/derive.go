package fred

import (
	"math"
	"time"

	"github.com/guregu/null/v5"
	"gonum.org/v1/gonum/stat"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

const (
	maxObservations = 252
	yoyLag          = 12

	// MinZScoreWindow and MaxZScoreWindow bound the adaptive PMI window.
	MinZScoreWindow = 36
	MaxZScoreWindow = 120
	// MinPMIPoints is the number of valid year-over-year points required for a real reading.
	MinPMIPoints = MinZScoreWindow + 1

	pmiNeutral = 50.0
	pmiScale   = 5.0
	pmiFloor   = 35.0
	pmiCeil    = 65.0
	zeroStd    = 1e-9

	change7dDays = 5
	change1mDays = 28
)

// LevelIndicator derives value, deltas and freshness from a level series.
// Deltas compare the latest value to the first observation at least 5 and 28 calendar
// days older, so irregular cadence is handled.
func LevelIndicator(id string, obs []models.Observation, now time.Time) models.MacroIndicator {
	if len(obs) == 0 {
		return models.MissingIndicator(id)
	}
	if len(obs) > maxObservations {
		obs = obs[len(obs)-maxObservations:]
	}
	latest := obs[len(obs)-1]
	ind := models.MacroIndicator{
		ID:            id,
		Value:         null.FloatFrom(latest.Value),
		FreshnessDays: models.DaysBetween(latest.Date, now),
	}
	for i := len(obs) - 2; i >= 0; i-- {
		age := models.DaysBetween(obs[i].Date, latest.Date)
		if !ind.Change7d.Valid && age >= change7dDays {
			ind.Change7d = null.FloatFrom(latest.Value - obs[i].Value)
		}
		if !ind.Change1m.Valid && age >= change1mDays {
			ind.Change1m = null.FloatFrom(latest.Value - obs[i].Value)
			break
		}
	}
	return ind
}

// YoY returns (v[i]/v[i-12]-1)*100 for i >= 12; a zero base yields null.
func YoY(obs []models.Observation) []null.Float {
	if len(obs) <= yoyLag {
		return nil
	}
	out := make([]null.Float, 0, len(obs)-yoyLag)
	for i := yoyLag; i < len(obs); i++ {
		base := obs[i-yoyLag].Value
		if base == 0 {
			out = append(out, null.Float{})
			continue
		}
		out = append(out, null.FloatFrom((obs[i].Value/base-1)*100))
	}
	return out
}

// lastTwo returns the last valid value and the valid value before it.
func lastTwo(vals []null.Float) (last, prev null.Float) {
	i := len(vals) - 1
	for ; i >= 0; i-- {
		if vals[i].Valid {
			last = vals[i]
			break
		}
	}
	for i--; i >= 0; i-- {
		if vals[i].Valid {
			return last, vals[i]
		}
	}
	return last, prev
}

// CoreInflation turns a monthly price index into trailing-12-month inflation.
func CoreInflation(obs []models.Observation, now time.Time) models.MacroIndicator {
	yoy := YoY(obs)
	last, prev := lastTwo(yoy)
	if !last.Valid {
		return models.MissingIndicator(models.IndicatorCoreCPI)
	}
	ind := models.MacroIndicator{
		ID:            models.IndicatorCoreCPI,
		Value:         null.FloatFrom(util.Round(last.Float64, 2)),
		FreshnessDays: models.DaysBetween(obs[len(obs)-1].Date, now),
	}
	if prev.Valid {
		ind.Change1m = null.FloatFrom(util.Round(last.Float64-prev.Float64, 4))
	}
	return ind
}

// ZScoreWindow sizes the trailing window from the number of valid points.
func ZScoreWindow(valid int) int {
	w := valid - 1
	if w > MaxZScoreWindow {
		w = MaxZScoreWindow
	}
	if w < MinZScoreWindow {
		w = MinZScoreWindow
	}
	return w
}

func countValid(vals []null.Float) int {
	n := 0
	for _, v := range vals {
		if v.Valid {
			n++
		}
	}
	return n
}

// PMIScores maps each point to 50+5z over the adaptive trailing window, clamped to [35, 65].
// Points without a full window are null.
func PMIScores(vals []null.Float) []null.Float {
	window := ZScoreWindow(countValid(vals))
	out := make([]null.Float, len(vals))
	buf := make([]float64, 0, window)
	for i := range vals {
		if i < window-1 || !vals[i].Valid {
			continue
		}
		buf = buf[:0]
		for _, v := range vals[i-window+1 : i+1] {
			if v.Valid {
				buf = append(buf, v.Float64)
			}
		}
		if len(buf) < MinZScoreWindow {
			continue
		}
		mean, variance := stat.PopMeanVariance(buf, nil)
		std := zeroStd
		if variance > 0 {
			std = math.Sqrt(variance)
		}
		z := (vals[i].Float64 - mean) / std
		out[i] = null.FloatFrom(util.Clamp(pmiNeutral+pmiScale*z, pmiFloor, pmiCeil))
	}
	return out
}

// PMIFallback is the neutral sentinel emitted when no real reading can be derived.
func PMIFallback() models.MacroIndicator {
	return models.MacroIndicator{
		ID:            models.IndicatorPMI,
		Value:         null.FloatFrom(pmiNeutral),
		FreshnessDays: models.FreshnessUnknown,
		Reason:        models.ReasonPMIFallback,
	}
}

// PMIFromOrders derives the PMI stand-in from a new-orders level series. ok is false
// when fewer than MinPMIPoints valid year-over-year points exist.
func PMIFromOrders(obs []models.Observation, now time.Time) (models.MacroIndicator, bool) {
	yoy := YoY(obs)
	if countValid(yoy) < MinPMIPoints {
		return PMIFallback(), false
	}
	scores := PMIScores(yoy)
	last := scores[len(scores)-1]
	if !last.Valid {
		return PMIFallback(), false
	}
	_, prev := lastTwo(scores)
	ind := models.MacroIndicator{
		ID:            models.IndicatorPMI,
		Value:         null.FloatFrom(util.Round(last.Float64, 2)),
		FreshnessDays: models.DaysBetween(obs[len(obs)-1].Date, now),
	}
	if prev.Valid {
		ind.Change1m = null.FloatFrom(util.Round(last.Float64-prev.Float64, 4))
	}
	return ind, true
}
