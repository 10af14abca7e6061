package crossasset

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScope/internal/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// seriesAt builds a series whose bar i falls on day0 + offset + i.
func seriesAt(symbol string, offset int, closes ...float64) model.PriceSeries {
	s := model.PriceSeries{Symbol: symbol}
	for i, c := range closes {
		s.Bars = append(s.Bars, model.PriceBar{
			Time: day0.AddDate(0, 0, offset+i), Open: c, High: c + 1, Low: c - 1, Close: c,
		})
	}
	return s
}

func randomSeries(symbol string, n int, seed uint64) model.PriceSeries {
	r := rand.New(rand.NewPCG(seed, seed*31))
	closes := make([]float64, n)
	p := 50.0
	for i := range closes {
		p *= math.Exp(r.NormFloat64() * 0.03)
		closes[i] = p
	}
	return seriesAt(symbol, 0, closes...)
}

func TestNormalize_PercentStartsAtZero(t *testing.T) {
	in := map[string]model.PriceSeries{
		"AAA": seriesAt("AAA", 0, 3.3, 6.6, 1.1),
		"BBB": randomSeries("BBB", 50, 3),
	}
	out := Normalize(in, MethodPercent)
	require.Len(t, out, 2)
	for name, n := range out {
		require.NoError(t, n.Err, name)
		assert.Equal(t, 0.0, n.Values[0], name)
		assert.Len(t, n.Values, in[name].Len())
	}
	assert.InDelta(t, 100.0, out["AAA"].Values[1], 1e-9)
	assert.InDelta(t, -66.6666666, out["AAA"].Values[2], 1e-6)
}

func TestNormalize_ZScore(t *testing.T) {
	out := Normalize(map[string]model.PriceSeries{"AAA": seriesAt("AAA", 0, 1, 2, 3)}, MethodZScore)
	n := out["AAA"]
	require.NoError(t, n.Err)
	assert.InDelta(t, -1.0, n.Values[0], 1e-12)
	assert.InDelta(t, 0.0, n.Values[1], 1e-12)
	assert.InDelta(t, 1.0, n.Values[2], 1e-12)
}

func TestNormalize_IsolatesFailures(t *testing.T) {
	in := map[string]model.PriceSeries{
		"FLAT":  seriesAt("FLAT", 0, 5, 5, 5, 5),
		"EMPTY": {Symbol: "EMPTY"},
		"OK":    seriesAt("OK", 0, 1, 2, 4),
	}
	z := Normalize(in, MethodZScore)
	assert.ErrorIs(t, z["FLAT"].Err, model.ErrInsufficientData)
	assert.Nil(t, z["FLAT"].Values)
	assert.ErrorIs(t, z["EMPTY"].Err, model.ErrInsufficientData)
	assert.NoError(t, z["OK"].Err)

	p := Normalize(in, MethodPercent)
	assert.ErrorIs(t, p["EMPTY"].Err, model.ErrInsufficientData)
	assert.NoError(t, p["FLAT"].Err)

	zero := Normalize(map[string]model.PriceSeries{"Z": seriesAt("Z", 0, 0, 1)}, MethodPercent)
	assert.ErrorIs(t, zero["Z"].Err, model.ErrInvalidAssumptions)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Z-Score")
	require.NoError(t, err)
	assert.Equal(t, MethodZScore, m)
	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodPercent, m)
	_, err = ParseMethod("rank")
	assert.ErrorIs(t, err, model.ErrInvalidAssumptions)
}

func TestCorrelationMatrix_Properties(t *testing.T) {
	in := map[string]model.PriceSeries{
		"A": randomSeries("A", 120, 1),
		"B": randomSeries("B", 120, 2),
		"C": randomSeries("C", 90, 3),
		"D": randomSeries("D", 60, 4),
	}
	m, err := CorrelationMatrix(in)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D"}, m.Names)
	for i := range m.Names {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Names {
			require.True(t, m.Valid(i, j))
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.GreaterOrEqual(t, m.Values[i][j], -1.0)
			assert.LessOrEqual(t, m.Values[i][j], 1.0)
		}
	}
	assert.Equal(t, 60, m.Overlap[0][3])
}

func TestCorrelationMatrix_AlignsByDate(t *testing.T) {
	// A covers days 0-5, B covers days 3-8 and agrees with A on the shared days.
	a := seriesAt("A", 0, 1, 2, 3, 4, 5, 6)
	b := seriesAt("B", 3, 4, 5, 6, 1, 0.5, 9)
	m, err := CorrelationMatrix(map[string]model.PriceSeries{"A": a, "B": b})
	require.NoError(t, err)

	r, ok := m.Get("A", "B")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)
	assert.Equal(t, 3, m.Overlap[0][1])

	// Positional pairing would have produced a different coefficient.
	assert.NotEqual(t, 1.0, math.Round(pearson(a.Closes(), b.Closes())*1e6)/1e6)
}

func TestCorrelationMatrix_GapsAndInverse(t *testing.T) {
	a := seriesAt("A", 0, 1, 2, 3, 4, 5)
	inv := seriesAt("INV", 0, 10, 8, 6, 4, 2)
	inv.Bars = append(inv.Bars[:2], inv.Bars[3:]...) // drop day 2
	m, err := CorrelationMatrix(map[string]model.PriceSeries{"A": a, "INV": inv})
	require.NoError(t, err)
	r, ok := m.Get("INV", "A")
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)
	assert.Equal(t, 4, m.Overlap[0][1])
}

func TestCorrelationMatrix_InvalidCells(t *testing.T) {
	in := map[string]model.PriceSeries{
		"A":    seriesAt("A", 0, 1, 2, 3),
		"FAR":  seriesAt("FAR", 100, 1, 2, 3),
		"FLAT": seriesAt("FLAT", 0, 7, 7, 7),
	}
	m, err := CorrelationMatrix(in)
	require.NoError(t, err)
	_, ok := m.Get("A", "FAR")
	assert.False(t, ok)
	_, ok = m.Get("A", "FLAT")
	assert.False(t, ok)
	assert.Equal(t, 1.0, m.Values[m.Index("FLAT")][m.Index("FLAT")])

	_, err = CorrelationMatrix(map[string]model.PriceSeries{"A": in["A"]})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestExtremes(t *testing.T) {
	in := map[string]model.PriceSeries{
		"A": seriesAt("A", 0, 1, 2, 3, 4),
		"B": seriesAt("B", 0, 2, 4, 6, 8),
		"C": seriesAt("C", 0, 4, 3, 2, 1),
	}
	m, err := CorrelationMatrix(in)
	require.NoError(t, err)
	hi, lo, ok := Extremes(m)
	require.True(t, ok)
	assert.Equal(t, "A", hi.A)
	assert.Equal(t, "B", hi.B)
	assert.InDelta(t, 1.0, hi.Value, 1e-12)
	assert.InDelta(t, -1.0, lo.Value, 1e-12)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(seriesAt("A", 0, 10, 15, 12))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, s.ChangePct, 1e-9)
	assert.Equal(t, 16.0, s.High)
	assert.Equal(t, 9.0, s.Low)

	_, err = Summarize(model.PriceSeries{Symbol: "X"})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRank(t *testing.T) {
	in := map[string]model.PriceSeries{
		"UP":    seriesAt("UP", 0, 10, 20),
		"DOWN":  seriesAt("DOWN", 0, 10, 5),
		"FLAT":  seriesAt("FLAT", 0, 10, 10),
		"EMPTY": {Symbol: "EMPTY"},
	}
	ranked := Rank(Normalize(in, MethodPercent))
	require.Len(t, ranked, 4)
	assert.Equal(t, "UP", ranked[0].Symbol)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "FLAT", ranked[1].Symbol)
	assert.Equal(t, "DOWN", ranked[2].Symbol)
	assert.Equal(t, "EMPTY", ranked[3].Symbol)
	assert.Equal(t, 0, ranked[3].Rank)
	assert.Error(t, ranked[3].Err)
}

func TestVolatility(t *testing.T) {
	v, err := Volatility(seriesAt("A", 0, 100, 110, 99, 120))
	require.NoError(t, err)
	assert.InDelta(t, -10.0, v.MaxDrawdownPct, 1e-9)
	assert.Greater(t, v.AnnualizedPct, 0.0)

	v, err = Volatility(seriesAt("B", 0, 100, 90, 80))
	require.NoError(t, err)
	assert.InDelta(t, -20.0, v.MaxDrawdownPct, 1e-9)

	_, err = Volatility(seriesAt("C", 0, 1, 2))
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}
