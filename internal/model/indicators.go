package model

import "time"

// TechnicalIndicators holds the latest defined value of each indicator for
// one symbol. A nil pointer or missing map entry means the indicator could
// not be computed from the available history.
type TechnicalIndicators struct {
	Symbol    string
	AsOf      time.Time
	Price     float64
	MAs       map[int]float64
	RSIPeriod int
	RSI       *float64
	BandUpper *float64
	BandMid   *float64
	BandLower *float64
	High52w   *float64
	Low52w    *float64
}
