package model

// Direction is the lean of a single indicator reading.
type Direction int

const (
	Bearish Direction = -1
	Neutral Direction = 0
	Bullish Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// StatusRow is one line of the indicator status table.
type StatusRow struct {
	Indicator string
	Value     string
	Status    string
	Direction Direction
}

// TechnicalOutlook is the output of the strategy engine.
type TechnicalOutlook struct {
	Symbol     string
	Price      float64
	Rows       []StatusRow
	Signals    []string
	Score      int
	Bias       Direction
	WarningMsg string
}
