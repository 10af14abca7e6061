package model

import (
	"encoding/json"
	"math"
)

// Series is a numeric line aligned index-for-index with the price series it
// was derived from. NaN marks positions with no data.
type Series []float64

// NoData returns a series of n positions, all without data.
func NoData(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Defined reports whether position i carries a value.
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// LastDefined returns the most recent value that carries data.
func (s Series) LastDefined() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return s[i], true
		}
	}
	return 0, false
}

// MarshalJSON writes NaN positions as null.
func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) {
			v := s[i]
			out[i] = &v
		}
	}
	return json.Marshal(out)
}
