package strategy

import (
	"fmt"
	"sort"

	"StockScope/internal/model"
)

const (
	rsiOverbought   = 70.0
	rsiOversold     = 30.0
	rsiTakeProfit   = 85.0
	squeezeWidthPct = 10.0
	nearUpperBand   = 0.8
	nearLowerBand   = 0.2
)

func sortedWindows(mas map[int]float64) []int {
	ws := make([]int, 0, len(mas))
	for w := range mas {
		ws = append(ws, w)
	}
	sort.Ints(ws)
	return ws
}

// maRows compares price with every moving average, shortest window first.
func maRows(ind *model.TechnicalIndicators) []model.StatusRow {
	var rows []model.StatusRow
	for _, w := range sortedWindows(ind.MAs) {
		ma := ind.MAs[w]
		row := model.StatusRow{
			Indicator: fmt.Sprintf("Price vs MA%d", w),
			Value:     fmt.Sprintf("%.2f", ma),
		}
		if ind.Price > ma {
			row.Status, row.Direction = "above", model.Bullish
		} else {
			row.Status, row.Direction = "below", model.Bearish
		}
		rows = append(rows, row)
	}
	return rows
}

// crossRows compares each pair of adjacent moving averages.
func crossRows(ind *model.TechnicalIndicators) []model.StatusRow {
	ws := sortedWindows(ind.MAs)
	var rows []model.StatusRow
	for i := 0; i+1 < len(ws); i++ {
		short, long := ind.MAs[ws[i]], ind.MAs[ws[i+1]]
		row := model.StatusRow{
			Indicator: fmt.Sprintf("MA%d vs MA%d", ws[i], ws[i+1]),
			Value:     fmt.Sprintf("%.2f vs %.2f", short, long),
		}
		if short > long {
			row.Status, row.Direction = "bullish cross", model.Bullish
		} else {
			row.Status, row.Direction = "bearish cross", model.Bearish
		}
		rows = append(rows, row)
	}
	return rows
}

func rsiRow(ind *model.TechnicalIndicators) (model.StatusRow, bool) {
	if ind.RSI == nil {
		return model.StatusRow{}, false
	}
	rsi := *ind.RSI
	row := model.StatusRow{
		Indicator: fmt.Sprintf("RSI (%d)", ind.RSIPeriod),
		Value:     fmt.Sprintf("%.2f", rsi),
		Status:    "neutral",
	}
	switch {
	case rsi > rsiOverbought:
		row.Status, row.Direction = "overbought", model.Bearish
	case rsi < rsiOversold:
		row.Status, row.Direction = "oversold", model.Bullish
	}
	return row, true
}

func hasBands(ind *model.TechnicalIndicators) bool {
	return ind.BandUpper != nil && ind.BandMid != nil && ind.BandLower != nil
}

// bandPosition is where price sits between the lower (0) and upper (1) band.
func bandPosition(ind *model.TechnicalIndicators) float64 {
	lo, hi := *ind.BandLower, *ind.BandUpper
	if hi == lo {
		return 0.5
	}
	return (ind.Price - lo) / (hi - lo)
}

func bandRow(ind *model.TechnicalIndicators) (model.StatusRow, bool) {
	if !hasBands(ind) {
		return model.StatusRow{}, false
	}
	row := model.StatusRow{
		Indicator: "Bollinger",
		Value:     fmt.Sprintf("%.2f - %.2f", *ind.BandLower, *ind.BandUpper),
	}
	switch {
	case ind.Price > *ind.BandUpper:
		row.Status, row.Direction = "above upper band (overbought)", model.Bearish
	case ind.Price < *ind.BandLower:
		row.Status, row.Direction = "below lower band (oversold)", model.Bullish
	default:
		row.Status = fmt.Sprintf("inside band (%.1f%%)", bandPosition(ind)*100)
	}
	return row, true
}

// trendSignals reads the 50- and 200-day averages when both are present.
func trendSignals(ind *model.TechnicalIndicators) []string {
	ma50, ok50 := ind.MAs[50]
	ma200, ok200 := ind.MAs[200]
	if !ok50 || !ok200 {
		return nil
	}
	above50, above200 := ind.Price > ma50, ind.Price > ma200
	var out []string
	switch {
	case above50 && above200:
		out = append(out, "Price is above the major moving averages, overall trend leans bullish")
	case above50:
		out = append(out, "Price is above MA50 but below MA200, medium-term bullish with long-term uncertainty")
	case above200:
		out = append(out, "Price is below MA50 but above MA200, short-term pullback within a long-term uptrend")
	default:
		out = append(out, "Price is below the major moving averages, overall trend leans bearish")
	}
	if ma50 > ma200 {
		out = append(out, "MA50 is above MA200 (golden cross), long-term bullish")
	} else {
		out = append(out, "MA50 is below MA200 (death cross), long-term bearish")
	}
	return out
}

func rsiSignal(ind *model.TechnicalIndicators) (string, bool) {
	if ind.RSI == nil {
		return "", false
	}
	rsi := *ind.RSI
	switch {
	case rsi > rsiOverbought:
		return fmt.Sprintf("RSI(%d) is overbought (%.1f), pullback risk", ind.RSIPeriod, rsi), true
	case rsi < rsiOversold:
		return fmt.Sprintf("RSI(%d) is oversold (%.1f), technical rebound possible", ind.RSIPeriod, rsi), true
	case rsi > 50:
		return fmt.Sprintf("RSI(%d) is neutral to strong (%.1f)", ind.RSIPeriod, rsi), true
	default:
		return fmt.Sprintf("RSI(%d) is neutral to weak (%.1f)", ind.RSIPeriod, rsi), true
	}
}

func bandSignal(ind *model.TechnicalIndicators) (string, bool) {
	if !hasBands(ind) {
		return "", false
	}
	switch {
	case ind.Price > *ind.BandUpper:
		return "Price broke above the upper Bollinger band, strong but possibly overbought", true
	case ind.Price < *ind.BandLower:
		return "Price broke below the lower Bollinger band, weak but possibly oversold", true
	}
	if *ind.BandMid != 0 {
		width := (*ind.BandUpper - *ind.BandLower) / *ind.BandMid * 100
		if width < squeezeWidthPct {
			return fmt.Sprintf("Bollinger bands are squeezing (%.1f%%), a large move may follow", width), true
		}
	}
	switch pos := bandPosition(ind); {
	case pos > nearUpperBand:
		return "Price is near the upper band, upward momentum is strong", true
	case pos < nearLowerBand:
		return "Price is near the lower band, downward pressure is heavy", true
	default:
		return "Price is in the middle of the bands, no clear trend", true
	}
}
