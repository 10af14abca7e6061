package strategy

import (
	"fmt"

	"StockScope/internal/model"
)

// BiasThreshold is the net row score at which the outlook leans one way.
const BiasThreshold = 2

// mapBias maps a net score to a Direction.
func mapBias(score int) model.Direction {
	switch {
	case score >= BiasThreshold:
		return model.Bullish
	case score <= -BiasThreshold:
		return model.Bearish
	default:
		return model.Neutral
	}
}

// Evaluate builds the status table and signals from the latest indicators.
func Evaluate(ind *model.TechnicalIndicators) *model.TechnicalOutlook {
	out := &model.TechnicalOutlook{Symbol: ind.Symbol, Price: ind.Price}

	// Step a: status rows
	out.Rows = append(out.Rows, maRows(ind)...)
	out.Rows = append(out.Rows, crossRows(ind)...)
	if row, ok := rsiRow(ind); ok {
		out.Rows = append(out.Rows, row)
	}
	if row, ok := bandRow(ind); ok {
		out.Rows = append(out.Rows, row)
	}

	// Step b: signals
	out.Signals = append(out.Signals, trendSignals(ind)...)
	if s, ok := rsiSignal(ind); ok {
		out.Signals = append(out.Signals, s)
	}
	if s, ok := bandSignal(ind); ok {
		out.Signals = append(out.Signals, s)
	}

	// Step c: net score and bias
	for _, r := range out.Rows {
		out.Score += int(r.Direction)
	}
	out.Bias = mapBias(out.Score)

	// Step d: take-profit warning
	if ind.RSI != nil && *ind.RSI > rsiTakeProfit {
		out.WarningMsg = fmt.Sprintf("RSI above %.0f, consider taking partial profits", rsiTakeProfit)
	}
	return out
}
