package crossasset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"StockScope/internal/model"
)

// Method selects how price series are rescaled for comparison.
type Method int

const (
	// MethodPercent expresses each close as the percent change from the first close.
	MethodPercent Method = iota
	// MethodZScore standardizes closes by the full-series mean and sample deviation.
	MethodZScore
)

func (m Method) String() string {
	switch m {
	case MethodPercent:
		return "percent"
	case MethodZScore:
		return "zscore"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps user input to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "percent", "pct", "%":
		return MethodPercent, nil
	case "zscore", "z-score", "z":
		return MethodZScore, nil
	default:
		return 0, model.Invalid("normalize", "method", "unknown method %q", s)
	}
}

// Normalized is the rescaled line of one symbol, or the reason it could not
// be produced.
type Normalized struct {
	Symbol string
	Times  []time.Time
	Values model.Series
	Err    error
}

// Normalize rescales every series independently. A failing symbol carries
// its error in the result instead of aborting the batch.
func Normalize(seriesByName map[string]model.PriceSeries, method Method) map[string]Normalized {
	out := make(map[string]Normalized, len(seriesByName))
	for name, s := range seriesByName {
		n := Normalized{Symbol: name, Times: s.Times()}
		var err error
		switch method {
		case MethodPercent:
			n.Values, err = percentChange(s.Closes())
		case MethodZScore:
			n.Values, err = zScores(s.Closes())
		default:
			err = model.Invalid("normalize", "method", "unsupported method %v", method)
		}
		if err != nil {
			n.Values = nil
			n.Err = model.WithSymbol(err, name)
		}
		out[name] = n
	}
	return out
}

func percentChange(closes []float64) (model.Series, error) {
	if len(closes) == 0 {
		return nil, model.Insufficient("normalize percent", "empty series")
	}
	first := closes[0]
	if first == 0 {
		return nil, model.Invalid("normalize percent", "first close", "first close is zero")
	}
	out := make(model.Series, len(closes))
	for i, c := range closes {
		out[i] = (c/first - 1) * 100
	}
	out[0] = 0
	return out, nil
}

func zScores(closes []float64) (model.Series, error) {
	if len(closes) < 2 {
		return nil, model.Insufficient("normalize zscore", "need at least 2 closes, got %d", len(closes))
	}
	m := mean(closes)
	sd := sampleStd(closes, m)
	if sd == 0 || math.IsNaN(sd) {
		return nil, model.Insufficient("normalize zscore", "constant series has zero deviation")
	}
	out := make(model.Series, len(closes))
	for i, c := range closes {
		out[i] = (c - m) / sd
	}
	return out, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd returns the ddof=1 standard deviation around m.
func sampleStd(values []float64, m float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
