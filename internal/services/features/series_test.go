package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func linearSeries(n int, start, step float64) []models.OHLCPoint {
	out := make([]models.OHLCPoint, n)
	for i := range out {
		out[i] = models.FlatPoint(day0.AddDate(0, 0, i), start+step*float64(i))
	}
	return out
}

func TestNormalize(t *testing.T) {
	in := []models.OHLCPoint{
		models.FlatPoint(day0.AddDate(0, 0, 2), 3),
		models.FlatPoint(day0, 1),
		models.FlatPoint(day0.AddDate(0, 0, 2).Add(5*time.Hour), 4),
		models.FlatPoint(day0.AddDate(0, 0, 1), math.NaN()),
	}
	out := Normalize(in)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Close)
	assert.Equal(t, 4.0, out[1].Close)
	assert.True(t, out[0].Date.Before(out[1].Date))
}

func TestMA(t *testing.T) {
	s := linearSeries(20, 1, 1)
	assert.InDelta(t, 10.5, MA(s, 20).Float64, 1e-9)
	assert.False(t, MA(s, 60).Valid)
}

func TestMomentum(t *testing.T) {
	s := linearSeries(84, 100, 1)
	assert.False(t, Momentum(s, MomentumBars12w).Valid)

	s = linearSeries(85, 100, 1)
	m := Momentum(s, MomentumBars12w)
	require.True(t, m.Valid)
	assert.InDelta(t, 84.0, m.Float64, 1e-9)
}

func TestAnnualizedVol(t *testing.T) {
	flat := linearSeries(21, 50, 0)
	v := AnnualizedVol(flat, 20)
	require.True(t, v.Valid)
	assert.Equal(t, 0.0, v.Float64)

	assert.False(t, AnnualizedVol(linearSeries(20, 50, 0), 20).Valid)

	alt := make([]models.OHLCPoint, 21)
	for i := range alt {
		c := 100.0
		if i%2 == 1 {
			c = 110
		}
		alt[i] = models.FlatPoint(day0.AddDate(0, 0, i), c)
	}
	v = AnnualizedVol(alt, 20)
	require.True(t, v.Valid)
	assert.Greater(t, v.Float64, 100.0)
}

func TestMaxDrawdown(t *testing.T) {
	s := []models.OHLCPoint{
		models.FlatPoint(day0, 100),
		models.FlatPoint(day0.AddDate(0, 0, 1), 120),
		models.FlatPoint(day0.AddDate(0, 0, 2), 90),
		models.FlatPoint(day0.AddDate(0, 0, 3), 110),
	}
	assert.InDelta(t, 25.0, MaxDrawdown(s, 60).Float64, 1e-9)
	assert.False(t, MaxDrawdown(s[:1], 60).Valid)
}

func TestPercentileRank(t *testing.T) {
	s := linearSeries(300, 1, 1)
	p := PercentileRank(s, 300)
	require.True(t, p.Valid)
	assert.Equal(t, 100.0, p.Float64)

	p = PercentileRank(s, 48)
	require.True(t, p.Valid)
	assert.Equal(t, 0.0, p.Float64)

	assert.False(t, PercentileRank(nil, 1).Valid)
}

func TestDrawdownPercentile(t *testing.T) {
	assert.False(t, DrawdownPercentile(linearSeries(59, 10, 1), 60).Valid)

	rising := linearSeries(300, 10, 1)
	p := DrawdownPercentile(rising, 60)
	require.True(t, p.Valid)
	assert.Equal(t, 100.0, p.Float64, "every rolling drawdown is zero")

	// a 20% slide over the final ten days is the deepest drawdown of the year
	crash := linearSeries(300, 100, 0)
	for i := 290; i < 300; i++ {
		crash[i].Close = 100 - 2*float64(i-289)
	}
	p = DrawdownPercentile(crash, 60)
	require.True(t, p.Valid)
	assert.Equal(t, 100.0, p.Float64)

	// once the slide leaves the window, only the 68 windows that held it rank above zero
	recovered := append(crash, linearSeries(120, 200, 1)...)
	p = DrawdownPercentile(recovered, 60)
	require.True(t, p.Valid)
	assert.InDelta(t, float64(252-68)/252*100, p.Float64, 1e-9)
	assert.Equal(t, 100.0, Compute("BTC", rising).DDPercentile1y.Float64)
}

func TestComputeShortSeries(t *testing.T) {
	tf := Compute("BTC", linearSeries(30, 10, 1))
	assert.Equal(t, "BTC", tf.AssetID)
	assert.True(t, tf.MA20.Valid)
	assert.False(t, tf.MA60.Valid)
	assert.False(t, tf.MA200.Valid)
	assert.False(t, tf.Momentum12w.Valid)
	assert.False(t, tf.DDPercentile1y.Valid)
	assert.True(t, tf.VolPercentile1y.Valid)
}

func TestReturns(t *testing.T) {
	s := linearSeries(40, 100, 1)
	r := Returns(s)
	require.True(t, r.Price.Valid)
	assert.Equal(t, 139.0, r.Price.Float64)
	assert.Equal(t, 0.72, r.Change1d.Float64)
	assert.Equal(t, 3.73, r.Change7d.Float64)
	assert.Equal(t, 21.93, r.Change30d.Float64)

	empty := Returns(nil)
	assert.False(t, empty.Price.Valid)
	assert.False(t, empty.Change1d.Valid)
}
