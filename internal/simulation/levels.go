package simulation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"StockScope/internal/model"
)

// DefaultLevelPrecision is the number of decimals pivot prices are rounded
// to before grouping.
const DefaultLevelPrecision int32 = 1

// Pivot is a local extreme: a low for supports, a high for resistances.
type Pivot struct {
	Index int
	Time  time.Time
	Price float64
}

// Pivots finds bars whose low is <= every low in the window bars on each
// side (supports) and whose high is >= every high on each side
// (resistances). Bars closer than window to either edge are never pivots.
func Pivots(bars []model.PriceBar, window int) (supports, resistances []Pivot, err error) {
	if window < 1 {
		return nil, nil, model.Invalid("pivots", "window", "must be at least 1, got %d", window)
	}
	if len(bars) < 2*window+1 {
		return nil, nil, model.Insufficient("pivots", "need at least %d bars for window %d, got %d", 2*window+1, window, len(bars))
	}
	for i := window; i < len(bars)-window; i++ {
		isLow, isHigh := true, true
		for j := i - window; j <= i+window && (isLow || isHigh); j++ {
			if j == i {
				continue
			}
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
			if bars[j].High > bars[i].High {
				isHigh = false
			}
		}
		if isLow {
			supports = append(supports, Pivot{Index: i, Time: bars[i].Time, Price: bars[i].Low})
		}
		if isHigh {
			resistances = append(resistances, Pivot{Index: i, Time: bars[i].Time, Price: bars[i].High})
		}
	}
	return supports, resistances, nil
}

// Level is a price touched by several pivots.
type Level struct {
	Price   float64
	Touches int
	Pivots  []Pivot
}

// Levels groups pivots whose prices round to the same value at precision
// decimals and keeps the groups touched at least minTouches times, lowest
// price first.
func Levels(pivots []Pivot, minTouches int, precision int32) []Level {
	if minTouches < 1 {
		minTouches = 1
	}
	groups := make(map[string]*Level)
	for _, p := range pivots {
		d := decimal.NewFromFloat(p.Price).Round(precision)
		key := d.String()
		lv, ok := groups[key]
		if !ok {
			lv = &Level{Price: d.InexactFloat64()}
			groups[key] = lv
		}
		lv.Pivots = append(lv.Pivots, p)
		lv.Touches++
	}
	out := make([]Level, 0, len(groups))
	for _, lv := range groups {
		if lv.Touches >= minTouches {
			out = append(out, *lv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// Zone is where the price sits inside its trading range.
type Zone int

const (
	ZoneUnknown Zone = iota
	ZoneNearSupport
	ZoneMidRange
	ZoneNearResistance
)

func (z Zone) String() string {
	switch z {
	case ZoneNearSupport:
		return "near support"
	case ZoneMidRange:
		return "mid-range"
	case ZoneNearResistance:
		return "near resistance"
	default:
		return "unknown"
	}
}

// maxListedLevels caps the supports below and resistances above reported.
const maxListedLevels = 3

// RangeAnalysis places price between the nearest validated levels.
// Support and Resistance are nil when no level lies on that side; SizePct,
// PositionPct and Zone are set only when both exist.
type RangeAnalysis struct {
	Price            float64
	Support          *float64
	Resistance       *float64
	SupportsBelow    []float64
	ResistancesAbove []float64
	SizePct          float64
	PositionPct      float64
	Zone             Zone
}

// TradingRange finds the nearest support below and resistance above price.
func TradingRange(supports, resistances []Level, price float64) RangeAnalysis {
	ra := RangeAnalysis{Price: price}
	for _, lv := range supports {
		if lv.Price < price {
			ra.SupportsBelow = append(ra.SupportsBelow, lv.Price)
		}
	}
	for _, lv := range resistances {
		if lv.Price > price {
			ra.ResistancesAbove = append(ra.ResistancesAbove, lv.Price)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ra.SupportsBelow)))
	sort.Float64s(ra.ResistancesAbove)
	if len(ra.SupportsBelow) > maxListedLevels {
		ra.SupportsBelow = ra.SupportsBelow[:maxListedLevels]
	}
	if len(ra.ResistancesAbove) > maxListedLevels {
		ra.ResistancesAbove = ra.ResistancesAbove[:maxListedLevels]
	}
	if len(ra.SupportsBelow) > 0 {
		s := ra.SupportsBelow[0]
		ra.Support = &s
	}
	if len(ra.ResistancesAbove) > 0 {
		r := ra.ResistancesAbove[0]
		ra.Resistance = &r
	}
	if ra.Support == nil || ra.Resistance == nil {
		return ra
	}
	lo, hi := *ra.Support, *ra.Resistance
	if lo > 0 {
		ra.SizePct = (hi - lo) / lo * 100
	}
	ra.PositionPct = (price - lo) / (hi - lo) * 100
	switch {
	case ra.PositionPct < 25:
		ra.Zone = ZoneNearSupport
	case ra.PositionPct > 75:
		ra.Zone = ZoneNearResistance
	default:
		ra.Zone = ZoneMidRange
	}
	return ra
}
