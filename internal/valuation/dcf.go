// Package valuation estimates intrinsic value with a discounted cash flow
// model and derives sensitivity grids, verdicts and analyst outlooks around it.
package valuation

import (
	"math"

	"StockScope/internal/model"
)

// Assumptions drive a DCF run. Rates are percentages; GrowthRate nil means
// derive it from the cash flow history.
type Assumptions struct {
	ForecastYears  int
	GrowthRate     *float64
	TerminalGrowth float64
	DiscountRate   float64
}

// DefaultAssumptions returns five forecast years, a derived growth rate,
// 2.5% terminal growth and a 10% discount rate.
func DefaultAssumptions() Assumptions {
	return Assumptions{ForecastYears: 5, TerminalGrowth: 2.5, DiscountRate: 10}
}

// WithGrowth returns a copy of a that uses the given growth rate.
func (a Assumptions) WithGrowth(g float64) Assumptions {
	a.GrowthRate = &g
	return a
}

func (a Assumptions) validate() error {
	if a.ForecastYears < 1 {
		return model.Invalid("dcf", "forecast years", "must be at least 1, got %d", a.ForecastYears)
	}
	if a.DiscountRate <= a.TerminalGrowth {
		return model.Invalid("dcf", "discount rate", "discount rate %.2f%% must exceed terminal growth %.2f%%", a.DiscountRate, a.TerminalGrowth)
	}
	for name, v := range map[string]float64{"discount rate": a.DiscountRate, "terminal growth": a.TerminalGrowth} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Invalid("dcf", name, "must be finite")
		}
	}
	if a.GrowthRate != nil && (math.IsNaN(*a.GrowthRate) || math.IsInf(*a.GrowthRate, 0)) {
		return model.Invalid("dcf", "growth rate", "must be finite")
	}
	return nil
}

// SharesSource tells which field the share count came from.
type SharesSource int

const (
	SharesUnavailable SharesSource = iota
	SharesOutstanding
	SharesFloat
	SharesDerived
	// SharesGiven is a count handed straight to ValueFromFCF.
	SharesGiven
)

func (s SharesSource) String() string {
	switch s {
	case SharesOutstanding:
		return "shares outstanding"
	case SharesFloat:
		return "float shares"
	case SharesDerived:
		return "market cap / price"
	case SharesGiven:
		return "given"
	default:
		return "unavailable"
	}
}

// ResolveShares picks the share count: shares outstanding, then float
// shares, then market cap divided by a positive price.
func ResolveShares(f *model.Fundamentals) (*float64, SharesSource) {
	if v, ok := f.Positive(model.FieldSharesOutstanding); ok {
		return &v, SharesOutstanding
	}
	if v, ok := f.Positive(model.FieldFloatShares); ok {
		return &v, SharesFloat
	}
	mc, okCap := f.Lookup(model.FieldMarketCap)
	price, okPrice := f.Positive(model.FieldRegularMarketPrice)
	if okCap && okPrice {
		if v := mc / price; v > 0 {
			return &v, SharesDerived
		}
	}
	return nil, SharesUnavailable
}

// Inputs are the provider data a valuation consumes.
type Inputs struct {
	Statements   *model.Statements
	Fundamentals *model.Fundamentals
}

func (in Inputs) symbol() string {
	if in.Statements != nil && in.Statements.Symbol != "" {
		return in.Statements.Symbol
	}
	if in.Fundamentals != nil {
		return in.Fundamentals.Symbol
	}
	return ""
}

// Result is a completed DCF run. PerShare is nil when no share count could
// be resolved; the rest of the result is still valid.
type Result struct {
	Symbol  string
	History []float64
	// DroppedPeriods counts older cash flow periods left out of History
	// because a line item was missing.
	DroppedPeriods  int
	LatestFCF       float64
	Projected       []float64
	TerminalValue   float64
	PVForecast      float64
	PVTerminal      float64
	EnterpriseValue float64
	Shares          *float64
	SharesSource    SharesSource
	PerShare        *float64
	Assumptions     Assumptions
	GrowthSource    GrowthSource
}

// Value runs the full pipeline: free cash flow history, growth resolution,
// projection, discounting and the per-share split.
func Value(in Inputs, a Assumptions) (*Result, error) {
	sym := in.symbol()
	if err := a.validate(); err != nil {
		return nil, model.WithSymbol(err, sym)
	}
	fcf, err := FreeCashFlows(in.Statements)
	if err != nil {
		return nil, model.WithSymbol(err, sym)
	}
	shares, src := ResolveShares(in.Fundamentals)
	res, err := ValueFromFCF(fcf, shares, a)
	if err != nil {
		return nil, model.WithSymbol(err, sym)
	}
	res.Symbol = sym
	res.DroppedPeriods = len(in.Statements.CashFlow) - len(fcf)
	if res.Shares != nil {
		res.SharesSource = src
	}
	return res, nil
}

// ValueFromFCF projects a most-recent-first free cash flow history. shares
// may be nil.
func ValueFromFCF(history []float64, shares *float64, a Assumptions) (*Result, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, model.Insufficient("dcf", "no free cash flow history")
	}
	growth, source := ResolveGrowth(a.GrowthRate, history)
	resolved := a.WithGrowth(growth)

	g := growth / 100
	d := a.DiscountRate / 100
	tg := a.TerminalGrowth / 100
	latest := history[0]

	res := &Result{
		History:      append([]float64(nil), history...),
		LatestFCF:    latest,
		Projected:    make([]float64, a.ForecastYears),
		Assumptions:  resolved,
		GrowthSource: source,
	}
	factor := 1.0
	for k := 1; k <= a.ForecastYears; k++ {
		fcf := latest * math.Pow(1+g, float64(k))
		factor = math.Pow(1+d, -float64(k))
		res.Projected[k-1] = fcf
		res.PVForecast += fcf * factor
	}
	res.TerminalValue = res.Projected[a.ForecastYears-1] * (1 + tg) / (d - tg)
	// Terminal value is discounted with the last forecast year's factor.
	res.PVTerminal = res.TerminalValue * factor
	res.EnterpriseValue = res.PVForecast + res.PVTerminal

	if shares != nil && *shares > 0 {
		n := *shares
		ps := res.EnterpriseValue / n
		res.Shares = &n
		res.PerShare = &ps
		res.SharesSource = SharesGiven
	}
	return res, nil
}
