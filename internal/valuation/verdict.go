package valuation

import (
	"math"

	"StockScope/internal/model"
)

// Rating buckets the upside of an intrinsic value over the market price.
type Rating int

const (
	RatingOvervalued Rating = iota
	RatingFairValue
	RatingUndervalued
	RatingSignificantlyUndervalued
)

func (r Rating) String() string {
	switch r {
	case RatingSignificantlyUndervalued:
		return "significantly undervalued"
	case RatingUndervalued:
		return "undervalued"
	case RatingFairValue:
		return "near fair value"
	default:
		return "possibly overvalued"
	}
}

// Verdict compares a per-share value against price. Upside is in percent.
func Verdict(perShare, price float64) (Rating, float64, error) {
	if price <= 0 {
		return 0, 0, model.Invalid("verdict", "price", "price must be positive, got %v", price)
	}
	upside := perShare/price - 1
	var r Rating
	switch {
	case upside > 0.2:
		r = RatingSignificantlyUndervalued
	case upside > 0:
		r = RatingUndervalued
	case upside > -0.2:
		r = RatingFairValue
	default:
		r = RatingOvervalued
	}
	return r, upside * 100, nil
}

const (
	outlookYears     = 5
	minOutlookGrowth = -10.0
	maxOutlookGrowth = 30.0
)

// AnalystOutlook gathers analyst targets and an EPS growth range. Every
// field is optional; growth values are percentages.
type AnalystOutlook struct {
	TargetLow      *float64
	TargetMean     *float64
	TargetHigh     *float64
	NextYearEPS    *float64
	NextYearGrowth *float64
	GrowthMin      *float64
	GrowthMax      *float64
	EPSMin         *float64
	EPSMax         *float64
}

// Empty reports whether no field could be derived.
func (o AnalystOutlook) Empty() bool {
	return o.TargetLow == nil && o.TargetMean == nil && o.TargetHigh == nil && o.NextYearEPS == nil
}

// Outlook derives analyst targets and a five-year EPS range from forward
// against trailing EPS. The growth range is the implied next-year growth
// scaled by 0.7 and 1.3 and clamped to [-10%, 30%].
func Outlook(f *model.Fundamentals) AnalystOutlook {
	var o AnalystOutlook
	o.TargetLow = lookup(f, model.FieldTargetLowPrice)
	o.TargetMean = lookup(f, model.FieldTargetMeanPrice)
	o.TargetHigh = lookup(f, model.FieldTargetHighPrice)

	fwd, ok := f.Lookup(model.FieldForwardEPS)
	if !ok || fwd == 0 {
		return o
	}
	o.NextYearEPS = &fwd
	trailing, ok := f.Positive(model.FieldTrailingEPS)
	if !ok {
		return o
	}
	growth := fwd/trailing - 1
	pct := growth * 100
	o.NextYearGrowth = &pct
	if growth == 0 {
		return o
	}
	lo := math.Max(pct*0.7, minOutlookGrowth)
	hi := math.Min(pct*1.3, maxOutlookGrowth)
	epsLo := trailing * math.Pow(1+lo/100, outlookYears)
	epsHi := trailing * math.Pow(1+hi/100, outlookYears)
	o.GrowthMin, o.GrowthMax = &lo, &hi
	o.EPSMin, o.EPSMax = &epsLo, &epsHi
	return o
}

func lookup(f *model.Fundamentals, name model.Field) *float64 {
	v, ok := f.Lookup(name)
	if !ok {
		return nil
	}
	return &v
}
