package calculator

import (
	"StockScope/internal/model"
)

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI computes the relative strength index with simple rolling means of
// gains and losses. The first period positions carry no data. A window
// without losses saturates at 100.
func RSI(bars []model.PriceBar, period int) (model.Series, error) {
	if period <= 0 {
		return nil, model.Invalid("rsi", "period", "must be positive, got %d", period)
	}
	closes := extractCloses(bars)
	out := model.NoData(len(closes))
	if len(closes) <= period {
		return out, nil
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := period; i < len(closes); i++ {
		var avgGain, avgLoss float64
		for j := i - period + 1; j <= i; j++ {
			avgGain += gains[j]
			avgLoss += losses[j]
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)

		if avgLoss == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out, nil
}
