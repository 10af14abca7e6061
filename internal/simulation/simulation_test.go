package simulation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScope/internal/model"
)

func TestEstimate(t *testing.T) {
	stats, err := Estimate([]float64{100, 110, 121})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.1), stats.Mean, 1e-12)
	assert.InDelta(t, 0, stats.Std, 1e-12)
	assert.Equal(t, 2, stats.Samples)

	stats, err = Estimate([]float64{100, 200, 100})
	require.NoError(t, err)
	assert.InDelta(t, 0, stats.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2)*math.Log(2), stats.Std, 1e-12)
	assert.InDelta(t, stats.Std*math.Sqrt(252), stats.AnnualizedVol, 1e-12)

	_, err = Estimate([]float64{1, 2})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	_, err = Estimate([]float64{1, 0, 2})
	assert.ErrorIs(t, err, model.ErrInvalidAssumptions)
}

func TestMonteCarlo_ZeroVolatility(t *testing.T) {
	res, err := MonteCarlo(42.5, ReturnStats{}, Params{Horizon: 30, Paths: 1000, Confidence: 0.95, Seed: 7})
	require.NoError(t, err)
	require.Len(t, res.Paths, 1000)
	for _, p := range res.Paths {
		require.Len(t, p, 31)
		assert.Equal(t, 42.5, p[30])
	}
	for _, b := range res.Bands {
		assert.Equal(t, 42.5, b.Lower)
		assert.Equal(t, 42.5, b.Upper)
	}
	assert.Equal(t, 0.0, res.Risk.ProbGainPct)
	assert.InDelta(t, 0, res.Risk.VaR95Pct, 1e-12)
}

func TestMonteCarlo_DeterministicAcrossWorkers(t *testing.T) {
	stats := ReturnStats{Mean: 0.0005, Std: 0.02}
	base := Params{Horizon: 20, Paths: 157, Confidence: 0.9, Seed: 99}

	one := base
	one.Workers = 1
	many := base
	many.Workers = 8

	a, err := MonteCarlo(100, stats, one)
	require.NoError(t, err)
	b, err := MonteCarlo(100, stats, many)
	require.NoError(t, err)
	assert.Equal(t, a.Paths, b.Paths)
	assert.Equal(t, a.Bands, b.Bands)
	assert.Equal(t, a.Risk, b.Risk)

	other := base
	other.Seed = 100
	c, err := MonteCarlo(100, stats, other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Paths[0], c.Paths[0])
}

func TestMonteCarlo_ConfidenceWidensBand(t *testing.T) {
	stats := ReturnStats{Mean: 0, Std: 0.015}
	var prev *Result
	for _, c := range []float64{0.5, 0.8, 0.9, 0.95, 0.99} {
		res, err := MonteCarlo(50, stats, Params{Horizon: 30, Paths: 500, Confidence: c, Seed: 3})
		require.NoError(t, err)
		require.Len(t, res.Bands, 31)
		for k, b := range res.Bands {
			assert.Equal(t, k, b.Day)
			assert.LessOrEqual(t, b.Lower, b.Median)
			assert.LessOrEqual(t, b.Median, b.Upper)
			if prev != nil {
				assert.LessOrEqual(t, b.Lower, prev.Bands[k].Lower, "c=%v day %d", c, k)
				assert.GreaterOrEqual(t, b.Upper, prev.Bands[k].Upper, "c=%v day %d", c, k)
			}
		}
		prev = res
	}
}

func TestMonteCarlo_RiskMetrics(t *testing.T) {
	res, err := MonteCarlo(100, ReturnStats{Std: 0.02}, Params{Horizon: 10, Paths: 400, Confidence: 0.95, Seed: 1})
	require.NoError(t, err)
	term := res.Terminal()
	gains := 0
	sum := 0.0
	for _, v := range term {
		sum += v
		if v > 100 {
			gains++
		}
	}
	assert.InDelta(t, sum/400, res.Risk.MeanTerminal, 1e-9)
	assert.InDelta(t, float64(gains)/4, res.Risk.ProbGainPct, 1e-9)
	assert.GreaterOrEqual(t, res.Risk.TailLoss99Pct, res.Risk.VaR95Pct)
}

func TestMonteCarlo_Validation(t *testing.T) {
	ok := Params{Horizon: 5, Paths: 5, Confidence: 0.9}
	tests := []struct {
		name  string
		last  float64
		stats ReturnStats
		p     Params
	}{
		{"horizon", 10, ReturnStats{}, Params{Horizon: 0, Paths: 5, Confidence: 0.9}},
		{"paths", 10, ReturnStats{}, Params{Horizon: 5, Paths: 0, Confidence: 0.9}},
		{"confidence one", 10, ReturnStats{}, Params{Horizon: 5, Paths: 5, Confidence: 1}},
		{"confidence zero", 10, ReturnStats{}, Params{Horizon: 5, Paths: 5}},
		{"negative sigma", 10, ReturnStats{Std: -1}, ok},
		{"nan sigma", 10, ReturnStats{Std: math.NaN()}, ok},
		{"last close", 0, ReturnStats{}, ok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MonteCarlo(tt.last, tt.stats, tt.p)
			assert.ErrorIs(t, err, model.ErrInvalidAssumptions)
		})
	}
}

func TestPercentile(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, percentile(s, 0))
	assert.Equal(t, 4.0, percentile(s, 100))
	assert.InDelta(t, 2.5, percentile(s, 50), 1e-12)
	assert.InDelta(t, 1.15, percentile(s, 5), 1e-12)
	assert.Equal(t, 7.0, percentile([]float64{7}, 33))
	assert.True(t, math.IsNaN(percentile(nil, 50)))
}

func TestLinearTrend_ExactLine(t *testing.T) {
	closes := []float64{10, 12, 14, 16, 18}
	tr, err := LinearTrend(closes, 3, 95)
	require.NoError(t, err)
	assert.InDelta(t, 2, tr.Slope, 1e-12)
	assert.InDelta(t, 10, tr.Intercept, 1e-12)
	assert.InDelta(t, 0, tr.ResidualStd, 1e-12)
	assert.Equal(t, []float64{20, 22, 24}, roundAll(tr.Forecast))
	assert.Equal(t, roundAll(tr.Forecast), roundAll(tr.Upper))
	assert.False(t, tr.ZFallback)
}

func TestLinearTrend_BandAndFallback(t *testing.T) {
	closes := []float64{1, 3, 2, 4, 3, 5}
	tr, err := LinearTrend(closes, 2, 80)
	require.NoError(t, err)
	assert.Equal(t, 1.282, tr.Z)
	for k := range tr.Forecast {
		assert.InDelta(t, tr.Forecast[k]+1.282*tr.ResidualStd, tr.Upper[k], 1e-12)
		assert.InDelta(t, tr.Forecast[k]-1.282*tr.ResidualStd, tr.Lower[k], 1e-12)
	}
	require.Len(t, tr.FittedUpper, len(closes))
	require.Len(t, tr.FittedLower, len(closes))
	for i := range closes {
		assert.InDelta(t, tr.Fitted[i]+1.282*tr.ResidualStd, tr.FittedUpper[i], 1e-12)
		assert.InDelta(t, tr.Fitted[i]-1.282*tr.ResidualStd, tr.FittedLower[i], 1e-12)
	}
	assert.Greater(t, tr.ResidualStd, 0.0)

	tr, err = LinearTrend(closes, 2, 97)
	require.NoError(t, err)
	assert.True(t, tr.ZFallback)
	assert.Equal(t, 1.96, tr.Z)

	for _, c := range []float64{50, 80, 90, 95, 99} {
		_, ok := ZScore(c)
		assert.True(t, ok, c)
	}

	_, err = LinearTrend([]float64{1, 2}, 2, 95)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	_, err = LinearTrend(closes, 0, 95)
	assert.ErrorIs(t, err, model.ErrInvalidAssumptions)
}

func roundAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = math.Round(v*1e9) / 1e9
	}
	return out
}

func vShape(n, bottom int) []model.PriceBar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 100 + 5*math.Abs(float64(i-bottom))
		bars[i] = model.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return bars
}

func TestPivots_VShape(t *testing.T) {
	bars := vShape(25, 10)
	supports, resistances, err := Pivots(bars, 5)
	require.NoError(t, err)
	require.Len(t, supports, 1)
	assert.Equal(t, 10, supports[0].Index)
	assert.Equal(t, 99.0, supports[0].Price)
	assert.Equal(t, bars[10].Time, supports[0].Time)
	assert.Empty(t, resistances)
	for _, p := range append(supports, resistances...) {
		assert.GreaterOrEqual(t, p.Index, 5)
		assert.Less(t, p.Index, len(bars)-5)
	}
}

func TestPivots_EdgesAndErrors(t *testing.T) {
	// The minimum sits inside the excluded edge.
	supports, _, err := Pivots(vShape(20, 2), 5)
	require.NoError(t, err)
	assert.Empty(t, supports)

	_, _, err = Pivots(vShape(20, 10), 0)
	assert.ErrorIs(t, err, model.ErrInvalidAssumptions)
	_, _, err = Pivots(vShape(8, 4), 5)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestLevels(t *testing.T) {
	pivots := []Pivot{
		{Index: 1, Price: 10.04},
		{Index: 5, Price: 9.96},
		{Index: 9, Price: 10.01},
		{Index: 14, Price: 12.5},
		{Index: 20, Price: 15.26},
		{Index: 25, Price: 15.31},
	}
	levels := Levels(pivots, 2, DefaultLevelPrecision)
	require.Len(t, levels, 2)
	assert.Equal(t, 10.0, levels[0].Price)
	assert.Equal(t, 3, levels[0].Touches)
	assert.Len(t, levels[0].Pivots, 3)
	assert.Equal(t, 15.3, levels[1].Price)
	assert.Equal(t, 2, levels[1].Touches)

	all := Levels(pivots, 0, 0)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{10, 13, 15}, []float64{all[0].Price, all[1].Price, all[2].Price})
}

func TestTradingRange(t *testing.T) {
	supports := []Level{{Price: 90}, {Price: 80}, {Price: 95}, {Price: 70}, {Price: 105}}
	resistances := []Level{{Price: 110}, {Price: 130}, {Price: 99}}

	ra := TradingRange(supports, resistances, 100)
	require.NotNil(t, ra.Support)
	require.NotNil(t, ra.Resistance)
	assert.Equal(t, 95.0, *ra.Support)
	assert.Equal(t, 110.0, *ra.Resistance)
	assert.Equal(t, []float64{95, 90, 80}, ra.SupportsBelow)
	assert.Equal(t, []float64{110, 130}, ra.ResistancesAbove)
	assert.InDelta(t, 15.0/95*100, ra.SizePct, 1e-9)
	assert.InDelta(t, 100.0/3, ra.PositionPct, 1e-9)
	assert.Equal(t, ZoneMidRange, ra.Zone)

	assert.Equal(t, ZoneNearSupport, TradingRange(supports, resistances, 96).Zone)
	assert.Equal(t, ZoneNearResistance, TradingRange(supports, resistances, 109).Zone)

	ra = TradingRange(supports, nil, 100)
	assert.Nil(t, ra.Resistance)
	assert.Equal(t, ZoneUnknown, ra.Zone)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindMonteCarlo, KindTechnical, KindSupportResistance, KindTrend} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("astrology")
	assert.ErrorIs(t, err, model.ErrInvalidAssumptions)
}
