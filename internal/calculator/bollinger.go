package calculator

import (
	"math"

	"StockScope/internal/model"
)

const (
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0
)

// Bands holds Bollinger envelope lines aligned with the input bars.
type Bands struct {
	Middle model.Series `json:"middle"`
	Upper  model.Series `json:"upper"`
	Lower  model.Series `json:"lower"`
}

// BollingerBands computes middle = rolling mean and upper/lower = middle ± k
// rolling sample standard deviations over period closes.
func BollingerBands(bars []model.PriceBar, period int, k float64) (*Bands, error) {
	if period < 2 {
		return nil, model.Invalid("bollinger", "period", "must be at least 2, got %d", period)
	}
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return nil, model.Invalid("bollinger", "multiplier", "must be positive, got %v", k)
	}
	closes := extractCloses(bars)
	middle, err := SMA(closes, period)
	if err != nil {
		return nil, err
	}
	upper := model.NoData(len(closes))
	lower := model.NoData(len(closes))
	for i := period - 1; i < len(closes); i++ {
		mean := middle[i]
		ss := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period-1))
		upper[i] = mean + k*sd
		lower[i] = mean - k*sd
	}
	return &Bands{Middle: middle, Upper: upper, Lower: lower}, nil
}
