package crossasset

import (
	"math"
	"sort"
	"time"

	"StockScope/internal/model"
)

// Matrix is a symmetric Pearson correlation matrix indexed by Names.
// Cells without enough overlapping data are NaN.
type Matrix struct {
	Names   []string
	Values  [][]float64
	Overlap [][]int
}

// Index returns the position of name, or -1.
func (m *Matrix) Index(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Valid reports whether cell (i, j) holds a correlation.
func (m *Matrix) Valid(i, j int) bool {
	return !math.IsNaN(m.Values[i][j])
}

// Get returns the correlation between two symbols.
func (m *Matrix) Get(a, b string) (float64, bool) {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 || !m.Valid(i, j) {
		return 0, false
	}
	return m.Values[i][j], true
}

// dateKey identifies a trading day independent of the time of day.
type dateKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dateKey {
	y, m, d := t.Date()
	return dateKey{y, m, d}
}

// CorrelationMatrix correlates closes pairwise over the trading days both
// series share. Series are joined by date, never by position.
func CorrelationMatrix(seriesByName map[string]model.PriceSeries) (*Matrix, error) {
	if len(seriesByName) < 2 {
		return nil, model.Insufficient("correlation", "need at least 2 series, got %d", len(seriesByName))
	}
	names := make([]string, 0, len(seriesByName))
	for name := range seriesByName {
		names = append(names, name)
	}
	sort.Strings(names)

	byDate := make([]map[dateKey]float64, len(names))
	for i, name := range names {
		s := seriesByName[name]
		m := make(map[dateKey]float64, len(s.Bars))
		for _, b := range s.Bars {
			m[keyOf(b.Time)] = b.Close
		}
		byDate[i] = m
	}

	n := len(names)
	mx := &Matrix{Names: names, Values: make([][]float64, n), Overlap: make([][]int, n)}
	for i := range mx.Values {
		mx.Values[i] = make([]float64, n)
		mx.Overlap[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		mx.Values[i][i] = 1.0
		mx.Overlap[i][i] = len(seriesByName[names[i]].Bars)
		for j := i + 1; j < n; j++ {
			xs, ys := align(seriesByName[names[i]], byDate[j])
			r := pearson(xs, ys)
			mx.Values[i][j], mx.Values[j][i] = r, r
			mx.Overlap[i][j], mx.Overlap[j][i] = len(xs), len(xs)
		}
	}
	return mx, nil
}

// align returns the closes of a and other on the dates both carry, in a's order.
func align(a model.PriceSeries, other map[dateKey]float64) (xs, ys []float64) {
	seen := make(map[dateKey]bool, len(a.Bars))
	for _, b := range a.Bars {
		k := keyOf(b.Time)
		if seen[k] {
			continue
		}
		if v, ok := other[k]; ok {
			seen[k] = true
			xs = append(xs, b.Close)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

func pearson(xs, ys []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r))
}

// Pair is one off-diagonal cell of a Matrix.
type Pair struct {
	A, B  string
	Value float64
}

// Extremes returns the most and least correlated distinct pairs. ok is false
// when the matrix has no valid off-diagonal cell.
func Extremes(m *Matrix) (highest, lowest Pair, ok bool) {
	for i := range m.Names {
		for j := i + 1; j < len(m.Names); j++ {
			if !m.Valid(i, j) {
				continue
			}
			p := Pair{A: m.Names[i], B: m.Names[j], Value: m.Values[i][j]}
			if !ok {
				highest, lowest, ok = p, p, true
				continue
			}
			if p.Value > highest.Value {
				highest = p
			}
			if p.Value < lowest.Value {
				lowest = p
			}
		}
	}
	return highest, lowest, ok
}
