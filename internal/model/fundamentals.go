package model

import "time"

// Field names a fundamental data point.
type Field string

const (
	FieldMarketCap          Field = "marketCap"
	FieldTrailingPE         Field = "trailingPE"
	FieldForwardPE          Field = "forwardPE"
	FieldPriceToBook        Field = "priceToBook"
	FieldTrailingEPS        Field = "trailingEps"
	FieldForwardEPS         Field = "forwardEps"
	FieldSharesOutstanding  Field = "sharesOutstanding"
	FieldFloatShares        Field = "floatShares"
	FieldRegularMarketPrice Field = "regularMarketPrice"
	FieldChangePercent      Field = "regularMarketChangePercent"
	FieldFiftyTwoWeekHigh   Field = "fiftyTwoWeekHigh"
	FieldFiftyTwoWeekLow    Field = "fiftyTwoWeekLow"
	FieldDividendYield      Field = "dividendYield"
	FieldVolume             Field = "volume"
	FieldTargetLowPrice     Field = "targetLowPrice"
	FieldTargetMeanPrice    Field = "targetMeanPrice"
	FieldTargetHighPrice    Field = "targetHighPrice"
)

// Fundamentals is a snapshot of optional financial fields for one symbol.
// A field that was not reported is absent, never zero.
type Fundamentals struct {
	Symbol    string
	Name      string
	FetchedAt time.Time
	fields    map[Field]float64
}

// NewFundamentals creates an empty snapshot.
func NewFundamentals(symbol string) *Fundamentals {
	return &Fundamentals{Symbol: symbol, FetchedAt: time.Now(), fields: make(map[Field]float64)}
}

// Set records a reported value.
func (f *Fundamentals) Set(name Field, v float64) {
	if f.fields == nil {
		f.fields = make(map[Field]float64)
	}
	f.fields[name] = v
}

// Lookup returns the value and whether it was reported.
func (f *Fundamentals) Lookup(name Field) (float64, bool) {
	if f == nil {
		return 0, false
	}
	v, ok := f.fields[name]
	return v, ok
}

// Positive returns the value only when it was reported and is > 0.
func (f *Fundamentals) Positive(name Field) (float64, bool) {
	v, ok := f.Lookup(name)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// Fields returns a copy of every reported value.
func (f *Fundamentals) Fields() map[Field]float64 {
	out := make(map[Field]float64, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}
