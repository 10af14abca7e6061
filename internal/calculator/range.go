package calculator

import (
	"math"

	"StockScope/internal/model"
)

// Trading-day lookbacks for the common ranges.
const (
	LookbackYear  = 252
	LookbackMonth = 22
)

// Range scans the most recent lookback bars and returns the high and low.
func Range(bars []model.PriceBar, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, model.Insufficient("range", "no bars provided")
	}
	if lookback <= 0 {
		return 0, 0, model.Invalid("range", "lookback", "must be positive, got %d", lookback)
	}
	n := len(bars)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, model.Invalid("range position", "high", "high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
