package fred

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

var now = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func obsAt(daysAgo int, v float64) models.Observation {
	return models.Observation{Date: now.AddDate(0, 0, -daysAgo), Value: v}
}

func monthly(n int, f func(i int) float64) []models.Observation {
	out := make([]models.Observation, n)
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Observation{Date: start.AddDate(0, i, 0), Value: f(i)}
	}
	return out
}

func TestLevelIndicatorIrregularCadence(t *testing.T) {
	obs := []models.Observation{
		obsAt(40, 3.0),
		obsAt(29, 3.5),
		obsAt(10, 4.0),
		obsAt(6, 4.2),
		obsAt(3, 4.4),
		obsAt(2, 4.5),
	}
	ind := LevelIndicator(models.IndicatorHY, obs, now)
	assert.Equal(t, 4.5, ind.Value.Float64)
	assert.InDelta(t, 0.5, ind.Change7d.Float64, 1e-9, "first point >= 5 days older is 8 days back")
	assert.InDelta(t, 1.5, ind.Change1m.Float64, 1e-9, "27 days back is too recent; 38 days back is used")
	assert.Equal(t, 2, ind.FreshnessDays)
}

func TestLevelIndicatorEmpty(t *testing.T) {
	ind := LevelIndicator(models.IndicatorDXY, nil, now)
	assert.False(t, ind.Value.Valid)
	assert.False(t, ind.Change7d.Valid)
	assert.Equal(t, models.FreshnessUnknown, ind.FreshnessDays)
}

func TestLevelIndicatorShortHistory(t *testing.T) {
	ind := LevelIndicator(models.IndicatorReal10Y, []models.Observation{obsAt(3, 2), obsAt(1, 2.1)}, now)
	assert.True(t, ind.Value.Valid)
	assert.False(t, ind.Change7d.Valid)
	assert.False(t, ind.Change1m.Valid)
}

func TestCoreInflation(t *testing.T) {
	obs := monthly(14, func(i int) float64 { return 100 * math.Pow(1.0025, float64(i)) })
	obs[13].Value = obs[1].Value * 1.04
	ind := CoreInflation(obs, now)
	require.True(t, ind.Value.Valid)
	assert.Equal(t, 4.0, ind.Value.Float64)
	assert.False(t, ind.Change7d.Valid)
	require.True(t, ind.Change1m.Valid)
	assert.InDelta(t, 4.0-(math.Pow(1.0025, 12)-1)*100, ind.Change1m.Float64, 1e-3)

	assert.False(t, CoreInflation(obs[:12], now).Value.Valid)
}

func TestZScoreWindow(t *testing.T) {
	assert.Equal(t, 36, ZScoreWindow(36))
	assert.Equal(t, 36, ZScoreWindow(37))
	assert.Equal(t, 60, ZScoreWindow(61))
	assert.Equal(t, 120, ZScoreWindow(200))
	assert.Equal(t, 36, ZScoreWindow(0))
}

func TestPMIScoresClamped(t *testing.T) {
	vals := make([]null.Float, 60)
	for i := range vals {
		vals[i] = null.FloatFrom(float64(i % 3))
	}
	vals[59] = null.FloatFrom(1000)
	scores := PMIScores(vals)
	assert.False(t, scores[0].Valid)
	require.True(t, scores[59].Valid)
	assert.Equal(t, 65.0, scores[59].Float64)
	for _, s := range scores {
		if s.Valid {
			assert.GreaterOrEqual(t, s.Float64, 35.0)
			assert.LessOrEqual(t, s.Float64, 65.0)
		}
	}
}

func TestPMIScoresFlatSeries(t *testing.T) {
	vals := make([]null.Float, 40)
	for i := range vals {
		vals[i] = null.FloatFrom(2)
	}
	scores := PMIScores(vals)
	assert.Equal(t, 50.0, scores[39].Float64)
}

func TestPMIFromOrders(t *testing.T) {
	short := monthly(12+36, func(i int) float64 { return 100 + float64(i) })
	ind, ok := PMIFromOrders(short, now)
	assert.False(t, ok, "36 valid points is below the minimum")
	assert.Equal(t, 50.0, ind.Value.Float64)
	assert.Equal(t, models.ReasonPMIFallback, ind.Reason)
	assert.Equal(t, models.FreshnessUnknown, ind.FreshnessDays)

	long := monthly(12+80, func(i int) float64 { return 100 + 10*math.Sin(float64(i)/4) })
	ind, ok = PMIFromOrders(long, now)
	require.True(t, ok)
	assert.Empty(t, ind.Reason)
	assert.GreaterOrEqual(t, ind.Value.Float64, 35.0)
	assert.LessOrEqual(t, ind.Value.Float64, 65.0)
	assert.True(t, ind.Change1m.Valid)
	assert.Equal(t, models.DaysBetween(long[len(long)-1].Date, now), ind.FreshnessDays)
}
