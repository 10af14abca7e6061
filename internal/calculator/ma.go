package calculator

import (
	"sort"

	"StockScope/internal/model"
)

// SMA computes the trailing simple moving average of prices over period.
// Positions before the first full window carry no data.
func SMA(prices []float64, period int) (model.Series, error) {
	if period <= 0 {
		return nil, model.Invalid("moving average", "window", "must be positive, got %d", period)
	}
	out := model.NoData(len(prices))
	for i := period - 1; i < len(prices); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += prices[j]
		}
		out[i] = sum / float64(period)
	}
	return out, nil
}

// MovingAverages computes one close-price SMA per window. Every window is
// computed independently over the same bars.
func MovingAverages(bars []model.PriceBar, windows []int) (map[int]model.Series, error) {
	closes := extractCloses(bars)
	out := make(map[int]model.Series, len(windows))
	for _, w := range windows {
		if _, done := out[w]; done {
			continue
		}
		ma, err := SMA(closes, w)
		if err != nil {
			return nil, err
		}
		out[w] = ma
	}
	return out, nil
}

// SortedWindows returns the keys of a MovingAverages result in ascending order.
func SortedWindows(mas map[int]model.Series) []int {
	ws := make([]int, 0, len(mas))
	for w := range mas {
		ws = append(ws, w)
	}
	sort.Ints(ws)
	return ws
}

func extractCloses(bars []model.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
