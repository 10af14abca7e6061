package crossasset

import (
	"math"
	"sort"

	"StockScope/internal/model"
)

const tradingDaysPerYear = 252

// TrendSummary describes how one symbol moved over the requested period.
type TrendSummary struct {
	Symbol    string
	First     float64
	Last      float64
	ChangePct float64
	High      float64
	Low       float64
}

// Summarize reports first/last close, percent change, and the period high/low.
func Summarize(s model.PriceSeries) (TrendSummary, error) {
	if len(s.Bars) == 0 {
		return TrendSummary{}, model.WithSymbol(model.Insufficient("trend summary", "empty series"), s.Symbol)
	}
	first, last := s.Bars[0].Close, s.Last().Close
	if first == 0 {
		return TrendSummary{}, model.WithSymbol(model.Invalid("trend summary", "first close", "first close is zero"), s.Symbol)
	}
	out := TrendSummary{
		Symbol:    s.Symbol,
		First:     first,
		Last:      last,
		ChangePct: (last/first - 1) * 100,
		High:      math.Inf(-1),
		Low:       math.Inf(1),
	}
	for _, b := range s.Bars {
		out.High = math.Max(out.High, b.High)
		out.Low = math.Min(out.Low, b.Low)
	}
	return out, nil
}

// Ranked is one row of a performance ranking.
type Ranked struct {
	Symbol string
	Final  float64
	Rank   int
	Err    error
}

// Rank orders normalized lines by their last value, best first. Symbols that
// failed normalization are listed after the ranked ones with Rank 0.
func Rank(normalized map[string]Normalized) []Ranked {
	var ranked, failed []Ranked
	for name, n := range normalized {
		if n.Err != nil {
			failed = append(failed, Ranked{Symbol: name, Err: n.Err})
			continue
		}
		v, ok := n.Values.LastDefined()
		if !ok {
			failed = append(failed, Ranked{Symbol: name, Err: model.WithSymbol(model.Insufficient("rank", "no defined values"), name)})
			continue
		}
		ranked = append(ranked, Ranked{Symbol: name, Final: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Final == ranked[j].Final {
			return ranked[i].Symbol < ranked[j].Symbol
		}
		return ranked[i].Final > ranked[j].Final
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Symbol < failed[j].Symbol })
	return append(ranked, failed...)
}

// VolatilityStats holds annualized volatility and maximum drawdown, both in percent.
type VolatilityStats struct {
	Symbol         string
	AnnualizedPct  float64
	MaxDrawdownPct float64
}

// Volatility computes the annualized sample deviation of simple daily
// returns and the deepest peak-to-trough decline of the closes.
func Volatility(s model.PriceSeries) (VolatilityStats, error) {
	closes := s.Closes()
	if len(closes) < 3 {
		return VolatilityStats{}, model.WithSymbol(model.Insufficient("volatility", "need at least 3 closes, got %d", len(closes)), s.Symbol)
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			return VolatilityStats{}, model.WithSymbol(model.Invalid("volatility", "close", "non-positive close at index %d", i-1), s.Symbol)
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	sd := sampleStd(returns, mean(returns))

	peak := closes[0]
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if dd := c/peak - 1; dd < worst {
			worst = dd
		}
	}
	return VolatilityStats{
		Symbol:         s.Symbol,
		AnnualizedPct:  sd * math.Sqrt(tradingDaysPerYear) * 100,
		MaxDrawdownPct: worst * 100,
	}, nil
}
