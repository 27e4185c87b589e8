// Package features derives technical indicators from daily price series.
package features

import (
	"math"
	"sort"

	"github.com/guregu/null/v5"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	"github.com/seethefuture888888-creator/kangbo/pkg/util"
)

const (
	// BarsPerYear annualizes daily volatility.
	BarsPerYear = 252
	// MomentumBars12w is twelve weeks of trading days.
	MomentumBars12w    = 84
	percentileLookback = 252
)

// Normalize sorts points ascending by day, keeps the last point for duplicate days and drops non-finite closes.
func Normalize(points []models.OHLCPoint) []models.OHLCPoint {
	byDay := make(map[int64]models.OHLCPoint, len(points))
	for _, p := range points {
		if !util.Finite(p.Close) {
			continue
		}
		p.Date = models.Day(p.Date)
		byDay[p.Date.Unix()] = p
	}
	out := make([]models.OHLCPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Closes extracts the close column.
func Closes(series []models.OHLCPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Close
	}
	return out
}

// MA is the mean of the last n closes.
func MA(series []models.OHLCPoint, n int) null.Float {
	if n <= 0 || len(series) < n {
		return null.Float{}
	}
	tail := Closes(series[len(series)-n:])
	return null.FloatFrom(floats.Sum(tail) / float64(n))
}

// Momentum is the percent change over the given number of bars.
func Momentum(series []models.OHLCPoint, bars int) null.Float {
	n := len(series)
	if n <= bars {
		return null.Float{}
	}
	base := series[n-1-bars].Close
	if base == 0 {
		return null.Float{}
	}
	return null.FloatFrom((series[n-1].Close/base - 1) * 100)
}

// AnnualizedVol is the population standard deviation of the last window simple returns, annualized, in percent.
func AnnualizedVol(series []models.OHLCPoint, window int) null.Float {
	if window <= 0 || len(series) < window+1 {
		return null.Float{}
	}
	closes := Closes(series[len(series)-window-1:])
	rets := make([]float64, 0, window)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(rets) == 0 {
		return null.Float{}
	}
	_, variance := stat.PopMeanVariance(rets, nil)
	return null.FloatFrom(math.Sqrt(variance*BarsPerYear) * 100)
}

// MaxDrawdown is the largest peak-to-trough decline, in percent, over the last window closes.
func MaxDrawdown(series []models.OHLCPoint, window int) null.Float {
	if len(series) < 2 || window < 2 {
		return null.Float{}
	}
	if len(series) > window {
		series = series[len(series)-window:]
	}
	peak := series[0].Close
	mdd := 0.0
	for _, p := range series {
		if p.Close > peak {
			peak = p.Close
		}
		if peak > 0 {
			mdd = math.Max(mdd, (peak-p.Close)/peak*100)
		}
	}
	return null.FloatFrom(mdd)
}

// PercentileRank is the share of the last year of closes at or below value.
func PercentileRank(series []models.OHLCPoint, value float64) null.Float {
	if len(series) > percentileLookback {
		series = series[len(series)-percentileLookback:]
	}
	return rankOf(Closes(series), value)
}

// DrawdownPercentile ranks the current window drawdown among the rolling window
// drawdowns ending on each of the last year of days. Null until one full window exists.
func DrawdownPercentile(series []models.OHLCPoint, window int) null.Float {
	n := len(series)
	if window < 2 || n < window {
		return null.Float{}
	}
	first := window - 1
	if n-percentileLookback > first {
		first = n - percentileLookback
	}
	history := make([]float64, 0, n-first)
	for end := first; end < n; end++ {
		history = append(history, MaxDrawdown(series[end+1-window:end+1], window).Float64)
	}
	return rankOf(history, history[len(history)-1])
}

func rankOf(values []float64, value float64) null.Float {
	if len(values) == 0 {
		return null.Float{}
	}
	below := 0
	for _, v := range values {
		if v <= value {
			below++
		}
	}
	return null.FloatFrom(float64(below) / float64(len(values)) * 100)
}

// Compute derives the full feature set.
func Compute(assetID string, series []models.OHLCPoint) models.TechnicalFeatures {
	tf := models.TechnicalFeatures{
		AssetID:         assetID,
		MA20:            MA(series, 20),
		MA60:            MA(series, 60),
		MA200:           MA(series, 200),
		Momentum12w:     Momentum(series, MomentumBars12w),
		AnnualizedVol20: AnnualizedVol(series, 20),
		MaxDrawdown60:   MaxDrawdown(series, 60),
		MaxDrawdown120:  MaxDrawdown(series, 120),
		DDPercentile1y:  DrawdownPercentile(series, 60),
	}
	if n := len(series); n > 0 {
		tf.VolPercentile1y = PercentileRank(series, series[n-1].Close)
	}
	return tf
}

// PriceReturns is the latest close with trailing percent changes.
type PriceReturns struct {
	Price     null.Float
	Change1d  null.Float
	Change7d  null.Float
	Change30d null.Float
}

// Returns scans backward from the latest point for the first observation at least 1, 5 and 25 calendar days older.
func Returns(series []models.OHLCPoint) PriceReturns {
	var out PriceReturns
	n := len(series)
	if n == 0 {
		return out
	}
	last := series[n-1]
	out.Price = null.FloatFrom(last.Close)
	for i := n - 2; i >= 0; i-- {
		p := series[i]
		if p.Close == 0 {
			continue
		}
		age := models.DaysBetween(p.Date, last.Date)
		pct := util.Round((last.Close-p.Close)/p.Close*100, 2)
		if !out.Change1d.Valid && age >= 1 {
			out.Change1d = null.FloatFrom(pct)
		}
		if !out.Change7d.Valid && age >= 5 {
			out.Change7d = null.FloatFrom(pct)
		}
		if !out.Change30d.Valid && age >= 25 {
			out.Change30d = null.FloatFrom(pct)
			break
		}
	}
	return out
}
