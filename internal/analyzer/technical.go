package analyzer

import (
	"context"

	log "github.com/sirupsen/logrus"

	"StockScope/internal/calculator"
	"StockScope/internal/model"
	"StockScope/internal/strategy"
)

// TechnicalReport is the latest indicator snapshot and its outlook.
type TechnicalReport struct {
	Indicators *model.TechnicalIndicators
	Outlook    *model.TechnicalOutlook
	// RangePosition is where the price sits in its 52-week range (0~1).
	RangePosition *float64
}

// Technical fetches history for symbol and evaluates its indicators.
func (a *Analyzer) Technical(ctx context.Context, symbol string) (*TechnicalReport, error) {
	symbol = normalizeSymbol(symbol)
	s, err := a.history(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return a.technical(s)
}

func (a *Analyzer) technical(s model.PriceSeries) (*TechnicalReport, error) {
	ind, err := a.indicators(s)
	if err != nil {
		return nil, model.WithSymbol(err, s.Symbol)
	}
	rep := &TechnicalReport{Indicators: ind, Outlook: strategy.Evaluate(ind)}
	if ind.High52w != nil && ind.Low52w != nil {
		if pos, err := calculator.RangePosition(ind.Price, *ind.High52w, *ind.Low52w); err == nil {
			rep.RangePosition = &pos
		}
	}
	log.WithFields(log.Fields{
		"symbol": s.Symbol,
		"score":  rep.Outlook.Score,
		"bias":   rep.Outlook.Bias,
	}).Info("technical outlook evaluated")
	return rep, nil
}

// indicators computes the latest defined value of every configured
// indicator. Indicators without enough history are left unset.
func (a *Analyzer) indicators(s model.PriceSeries) (*model.TechnicalIndicators, error) {
	cfg := a.Settings
	last := s.Last()
	ind := &model.TechnicalIndicators{
		Symbol:    s.Symbol,
		AsOf:      last.Time,
		Price:     last.Close,
		MAs:       make(map[int]float64),
		RSIPeriod: cfg.RSIPeriod,
	}

	mas, err := calculator.MovingAverages(s.Bars, cfg.MAWindows)
	if err != nil {
		return nil, err
	}
	for w, series := range mas {
		if v := latest(series); v != nil {
			ind.MAs[w] = *v
		}
	}

	rsi, err := calculator.RSI(s.Bars, cfg.RSIPeriod)
	if err != nil {
		return nil, err
	}
	ind.RSI = latest(rsi)

	bands, err := calculator.BollingerBands(s.Bars, cfg.BollingerPeriod, cfg.BollingerK)
	if err != nil {
		return nil, err
	}
	ind.BandUpper = latest(bands.Upper)
	ind.BandMid = latest(bands.Middle)
	ind.BandLower = latest(bands.Lower)

	high, low, err := calculator.Range(s.Bars, calculator.LookbackYear)
	if err != nil {
		return nil, err
	}
	ind.High52w, ind.Low52w = &high, &low
	return ind, nil
}

// latest returns the value at the last position, or nil when it is undefined.
func latest(s model.Series) *float64 {
	if len(s) == 0 || !s.Defined(len(s)-1) {
		return nil
	}
	v := s[len(s)-1]
	return &v
}
