// Package simulation projects prices forward: Monte Carlo paths, linear
// trend extrapolation, and support/resistance detection.
package simulation

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"StockScope/internal/model"
)

const tradingDaysPerYear = 252

// ReturnStats summarizes daily log returns.
type ReturnStats struct {
	Mean          float64
	Std           float64
	AnnualizedVol float64
	Samples       int
}

// Estimate computes log return statistics over the whole close history.
func Estimate(closes []float64) (ReturnStats, error) {
	if len(closes) < 3 {
		return ReturnStats{}, model.Insufficient("return estimate", "need at least 3 closes, got %d", len(closes))
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return ReturnStats{}, model.Invalid("return estimate", "close", "non-positive close near index %d", i)
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	m := mean(returns)
	sd := sampleStd(returns, m)
	return ReturnStats{
		Mean:          m,
		Std:           sd,
		AnnualizedVol: sd * math.Sqrt(tradingDaysPerYear),
		Samples:       len(returns),
	}, nil
}

// Params configures a Monte Carlo run. Confidence is a fraction in (0, 1).
// Workers <= 0 uses GOMAXPROCS. The same Seed always yields the same paths.
type Params struct {
	Horizon    int
	Paths      int
	Confidence float64
	Seed       uint64
	Workers    int
}

// DefaultParams returns 200 paths over 30 days at 95% confidence.
func DefaultParams() Params {
	return Params{Horizon: 30, Paths: 200, Confidence: 0.95}
}

func (p Params) validate(last float64, stats ReturnStats) error {
	switch {
	case p.Horizon < 1:
		return model.Invalid("monte carlo", "horizon", "must be at least 1, got %d", p.Horizon)
	case p.Paths < 1:
		return model.Invalid("monte carlo", "paths", "must be at least 1, got %d", p.Paths)
	case !(p.Confidence > 0 && p.Confidence < 1):
		return model.Invalid("monte carlo", "confidence", "must be in (0, 1), got %v", p.Confidence)
	case !(stats.Std >= 0) || math.IsInf(stats.Std, 0):
		return model.Invalid("monte carlo", "sigma", "must be finite and non-negative, got %v", stats.Std)
	case math.IsNaN(stats.Mean) || math.IsInf(stats.Mean, 0):
		return model.Invalid("monte carlo", "mu", "must be finite, got %v", stats.Mean)
	case !(last > 0) || math.IsInf(last, 0):
		return model.Invalid("monte carlo", "last close", "must be positive, got %v", last)
	}
	return nil
}

// Band is the cross-path percentile envelope for one forecast day.
type Band struct {
	Day    int
	Lower  float64
	Median float64
	Upper  float64
}

// RiskMetrics are measured on terminal prices. Percent values are relative
// to the starting price.
type RiskMetrics struct {
	MeanTerminal      float64
	ExpectedReturnPct float64
	VaR95Pct          float64
	ProbGainPct       float64
	TailLoss99Pct     float64
}

// Result holds every simulated path (day 0 is the last close) and the
// aggregates derived from them.
type Result struct {
	Start  float64
	Paths  [][]float64
	Bands  []Band
	Risk   RiskMetrics
	Stats  ReturnStats
	Params Params
}

// Terminal returns the final price of every path.
func (r *Result) Terminal() []float64 {
	out := make([]float64, len(r.Paths))
	for i, p := range r.Paths {
		out[i] = p[len(p)-1]
	}
	return out
}

// MonteCarlo simulates geometric paths with normally distributed log
// returns. Path i draws from a generator seeded by (Seed, i), so the output
// does not depend on how paths are spread across workers.
func MonteCarlo(last float64, stats ReturnStats, p Params) (*Result, error) {
	if err := p.validate(last, stats); err != nil {
		return nil, err
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > p.Paths {
		workers = p.Paths
	}

	paths := make([][]float64, p.Paths)
	chunk := (p.Paths + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < p.Paths; start += chunk {
		end := min(start+chunk, p.Paths)
		g.Go(func() error {
			for i := start; i < end; i++ {
				paths[i] = simulatePath(last, stats, p.Horizon, rand.New(rand.NewPCG(p.Seed, uint64(i))))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Start: last, Paths: paths, Stats: stats, Params: p}
	res.Bands = bands(paths, p.Horizon, p.Confidence)
	res.Risk = risk(res.Terminal(), last)
	return res, nil
}

func simulatePath(last float64, stats ReturnStats, horizon int, rng *rand.Rand) []float64 {
	path := make([]float64, horizon+1)
	path[0] = last
	for k := 1; k <= horizon; k++ {
		path[k] = path[k-1] * math.Exp(stats.Mean+stats.Std*rng.NormFloat64())
	}
	return path
}

func bands(paths [][]float64, horizon int, confidence float64) []Band {
	lowerQ := (1 - confidence) / 2 * 100
	upperQ := 100 - lowerQ
	out := make([]Band, horizon+1)
	day := make([]float64, len(paths))
	for k := 0; k <= horizon; k++ {
		for i, p := range paths {
			day[i] = p[k]
		}
		sort.Float64s(day)
		out[k] = Band{
			Day:    k,
			Lower:  percentile(day, lowerQ),
			Median: percentile(day, 50),
			Upper:  percentile(day, upperQ),
		}
	}
	return out
}

func risk(terminal []float64, last float64) RiskMetrics {
	sorted := append([]float64(nil), terminal...)
	sort.Float64s(sorted)
	m := mean(sorted)
	gains := 0
	for _, v := range sorted {
		if v > last {
			gains++
		}
	}
	return RiskMetrics{
		MeanTerminal:      m,
		ExpectedReturnPct: (m/last - 1) * 100,
		VaR95Pct:          (last - percentile(sorted, 5)) / last * 100,
		ProbGainPct:       float64(gains) / float64(len(sorted)) * 100,
		TailLoss99Pct:     (last - percentile(sorted, 1)) / last * 100,
	}
}

// percentile interpolates linearly between the closest ranks of sorted,
// q in [0, 100].
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStd(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
