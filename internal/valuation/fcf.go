package valuation

import (
	"math"

	"StockScope/internal/model"
)

// DefaultGrowthRate is the growth rate, in percent, used when the cash flow
// history cannot produce one.
const DefaultGrowthRate = 5.0

// GrowthSource tells where the forecast growth rate came from.
type GrowthSource int

const (
	GrowthExplicit GrowthSource = iota
	GrowthHistorical
	GrowthDefault
)

func (g GrowthSource) String() string {
	switch g {
	case GrowthExplicit:
		return "explicit"
	case GrowthHistorical:
		return "historical"
	case GrowthDefault:
		return "default"
	default:
		return "unknown"
	}
}

// FreeCashFlows returns operating cash flow minus the absolute capital
// expenditure per cash flow period, most recent first. The history stops at
// the first period missing either line item so growth steps stay between
// adjacent years; only an incomplete most recent period is an error.
func FreeCashFlows(st *model.Statements) ([]float64, error) {
	if st == nil || len(st.CashFlow) == 0 {
		return nil, model.Missing("free cash flow", string(model.ItemOperatingCashFlow))
	}
	out := make([]float64, 0, len(st.CashFlow))
	for _, p := range st.CashFlow {
		fcf, item, ok := periodFCF(p)
		if !ok {
			if len(out) == 0 {
				return nil, periodMissing(p, item)
			}
			break
		}
		out = append(out, fcf)
	}
	return out, nil
}

func periodFCF(p model.StatementPeriod) (float64, model.LineItem, bool) {
	ocf, ok := p.Lookup(model.ItemOperatingCashFlow)
	if !ok {
		return 0, model.ItemOperatingCashFlow, false
	}
	capex, ok := p.Lookup(model.ItemCapitalExpenditure)
	if !ok {
		return 0, model.ItemCapitalExpenditure, false
	}
	return ocf - math.Abs(capex), "", true
}

func periodMissing(p model.StatementPeriod, item model.LineItem) error {
	e := model.Missing("free cash flow", string(item))
	if !p.End.IsZero() {
		e.Msg = "line item not reported for period ending " + p.End.Format("2006-01-02")
	}
	return e
}

// ResolveGrowth picks the forecast growth rate in percent. An explicit rate
// wins. Otherwise the mean period-over-period change of fcf is used, taken
// over the list in the order given. When that mean is undefined the default
// rate is returned and flagged as such.
func ResolveGrowth(explicit *float64, fcf []float64) (float64, GrowthSource) {
	if explicit != nil {
		return *explicit, GrowthExplicit
	}
	if len(fcf) < 2 {
		return DefaultGrowthRate, GrowthDefault
	}
	sum := 0.0
	for i := 1; i < len(fcf); i++ {
		sum += (fcf[i]/fcf[i-1] - 1) * 100
	}
	avg := sum / float64(len(fcf)-1)
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return DefaultGrowthRate, GrowthDefault
	}
	return avg, GrowthHistorical
}
