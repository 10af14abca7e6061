package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"StockScope/internal/crossasset"
	"StockScope/internal/model"
)

// CompareKind selects a cross-asset comparison.
type CompareKind int

const (
	// CompareNormalize rescales the closes and ranks the symbols by performance.
	CompareNormalize CompareKind = iota
	// CompareCorrelation correlates closes over the trading days the symbols share.
	CompareCorrelation
	// CompareVolatility compares annualized volatility and maximum drawdown.
	CompareVolatility
)

func (k CompareKind) String() string {
	switch k {
	case CompareNormalize:
		return "normalize"
	case CompareCorrelation:
		return "correlation"
	case CompareVolatility:
		return "volatility"
	default:
		return fmt.Sprintf("CompareKind(%d)", int(k))
	}
}

// ParseCompareKind maps user input to a CompareKind.
func ParseCompareKind(s string) (CompareKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normalize", "compare", "trend":
		return CompareNormalize, nil
	case "correlation", "corr":
		return CompareCorrelation, nil
	case "volatility", "vol":
		return CompareVolatility, nil
	default:
		return 0, model.Invalid("compare", "kind", "unknown comparison %q", s)
	}
}

// CompareReport is the outcome of a multi-symbol comparison. Symbols that
// could not be fetched or analyzed are listed in Failed and never abort the
// rest of the batch.
type CompareReport struct {
	Kind    CompareKind
	Method  crossasset.Method
	Symbols []string
	Failed  map[string]error

	Normalized map[string]crossasset.Normalized
	Ranking    []crossasset.Ranked
	Summaries  []crossasset.TrendSummary

	Matrix      *crossasset.Matrix
	Highest     crossasset.Pair
	Lowest      crossasset.Pair
	HasExtremes bool

	Volatility []crossasset.VolatilityStats
}

// Compare fetches every symbol concurrently and runs the comparison
// selected by kind. method only applies to CompareNormalize.
func (a *Analyzer) Compare(ctx context.Context, symbols []string, kind CompareKind, method crossasset.Method) (*CompareReport, error) {
	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		return nil, model.Insufficient("compare", "no symbols given")
	}
	rep := &CompareReport{Kind: kind, Method: method, Symbols: symbols, Failed: make(map[string]error)}

	series, err := a.fetchAll(ctx, symbols, rep.Failed)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return rep, model.Insufficient("compare", "no symbol could be fetched")
	}

	switch kind {
	case CompareNormalize:
		rep.Normalized = crossasset.Normalize(series, method)
		rep.Ranking = crossasset.Rank(rep.Normalized)
		for _, sym := range sortedKeys(series) {
			sum, err := crossasset.Summarize(series[sym])
			if err != nil {
				rep.Failed[sym] = err
				continue
			}
			rep.Summaries = append(rep.Summaries, sum)
		}
	case CompareCorrelation:
		m, err := crossasset.CorrelationMatrix(series)
		if err != nil {
			return rep, err
		}
		rep.Matrix = m
		rep.Highest, rep.Lowest, rep.HasExtremes = crossasset.Extremes(m)
	case CompareVolatility:
		for _, sym := range sortedKeys(series) {
			v, err := crossasset.Volatility(series[sym])
			if err != nil {
				rep.Failed[sym] = err
				continue
			}
			rep.Volatility = append(rep.Volatility, v)
		}
		sort.SliceStable(rep.Volatility, func(i, j int) bool {
			return rep.Volatility[i].AnnualizedPct < rep.Volatility[j].AnnualizedPct
		})
	default:
		return nil, model.Invalid("compare", "kind", "unsupported kind %v", kind)
	}

	log.WithFields(log.Fields{
		"kind":    kind,
		"symbols": len(symbols),
		"failed":  len(rep.Failed),
	}).Info("comparison completed")
	return rep, nil
}

// fetchAll loads history for every symbol with bounded concurrency.
// Per-symbol failures are recorded in failed; only context cancellation
// aborts the batch.
func (a *Analyzer) fetchAll(ctx context.Context, symbols []string, failed map[string]error) (map[string]model.PriceSeries, error) {
	var mu sync.Mutex
	out := make(map[string]model.PriceSeries, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	if n := a.Settings.MaxConcurrency; n > 0 {
		g.SetLimit(n)
	}
	for _, sym := range symbols {
		g.Go(func() error {
			s, err := a.history(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[sym] = err
				return nil
			}
			out[sym] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func uniqueSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = normalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
