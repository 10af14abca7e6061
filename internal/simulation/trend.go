package simulation

import (
	"StockScope/internal/model"
)

const fallbackZ = 1.96

var zTable = map[float64]float64{
	50: 0.674,
	80: 1.282,
	90: 1.645,
	95: 1.96,
	99: 2.576,
}

// ZScore returns the two-sided standard normal quantile for a confidence
// level in percent. Levels outside the table fall back to the 95% quantile
// and report ok == false.
func ZScore(confidencePct float64) (z float64, ok bool) {
	if z, ok := zTable[confidencePct]; ok {
		return z, true
	}
	return fallbackZ, false
}

// TrendForecast is an ordinary least squares line through (index, close)
// extended Horizon days past the history.
type TrendForecast struct {
	Slope       float64
	Intercept   float64
	Fitted      model.Series
	FittedUpper model.Series
	FittedLower model.Series
	Forecast    []float64
	Upper       []float64
	Lower       []float64
	ResidualStd float64
	Confidence  float64
	Z           float64
	ZFallback   bool
}

// At evaluates the fitted line at index x.
func (t *TrendForecast) At(x float64) float64 {
	return t.Intercept + t.Slope*x
}

// LinearTrend fits closes against their index and projects horizon days.
// The band is the line plus or minus z times the sample deviation of the
// residuals, over the history and the forecast alike.
func LinearTrend(closes []float64, horizon int, confidencePct float64) (*TrendForecast, error) {
	n := len(closes)
	if n < 3 {
		return nil, model.Insufficient("linear trend", "need at least 3 closes, got %d", n)
	}
	if horizon < 1 {
		return nil, model.Invalid("linear trend", "horizon", "must be at least 1, got %d", horizon)
	}

	xMean := float64(n-1) / 2
	yMean := mean(closes)
	var sxy, sxx float64
	for i, y := range closes {
		dx := float64(i) - xMean
		sxy += dx * (y - yMean)
		sxx += dx * dx
	}
	t := &TrendForecast{Confidence: confidencePct}
	t.Slope = sxy / sxx
	t.Intercept = yMean - t.Slope*xMean

	t.Fitted = make(model.Series, n)
	resid := make([]float64, n)
	for i, y := range closes {
		t.Fitted[i] = t.At(float64(i))
		resid[i] = y - t.Fitted[i]
	}
	t.ResidualStd = sampleStd(resid, mean(resid))

	z, ok := ZScore(confidencePct)
	t.Z, t.ZFallback = z, !ok
	t.FittedUpper = make(model.Series, n)
	t.FittedLower = make(model.Series, n)
	for i, v := range t.Fitted {
		t.FittedUpper[i] = v + z*t.ResidualStd
		t.FittedLower[i] = v - z*t.ResidualStd
	}
	t.Forecast = make([]float64, horizon)
	t.Upper = make([]float64, horizon)
	t.Lower = make([]float64, horizon)
	for k := 0; k < horizon; k++ {
		v := t.At(float64(n + k))
		t.Forecast[k] = v
		t.Upper[k] = v + z*t.ResidualStd
		t.Lower[k] = v - z*t.ResidualStd
	}
	return t, nil
}
