package model

import (
	"time"
)

// PriceBar represents a single OHLCV candlestick bar.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the daily bars of one symbol in ascending time order.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close prices.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high prices.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low prices.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Times extracts the bar timestamps.
func (s PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

// Last returns the most recent bar. The series must not be empty.
func (s PriceSeries) Last() PriceBar {
	return s.Bars[len(s.Bars)-1]
}

// Validate checks the series is non-empty and strictly ascending by time.
func (s PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return WithSymbol(Insufficient("price series", "no bars"), s.Symbol)
	}
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			return WithSymbol(Invalid("price series", "time",
				"bars not strictly ascending at index %d", i), s.Symbol)
		}
	}
	return nil
}
