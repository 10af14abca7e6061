// Package analyzer binds user requests to the analysis engines: it fetches
// provider data, runs the engines and returns structured reports.
package analyzer

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"StockScope/internal/calculator"
	"StockScope/internal/collector"
	"StockScope/internal/model"
	"StockScope/internal/simulation"
	"StockScope/internal/valuation"
)

// Settings are the analysis parameters used when a request does not
// override them.
type Settings struct {
	Period          collector.Period
	MAWindows       []int
	RSIPeriod       int
	BollingerPeriod int
	BollingerK      float64

	DCF     valuation.Assumptions
	Offsets []float64

	Simulation      simulation.Params
	TrendConfidence float64 // percent
	PivotWindow     int
	MinTouches      int
	LevelPrecision  int32

	// MaxConcurrency bounds parallel provider calls for multi-symbol requests.
	MaxConcurrency int
}

// DefaultSettings returns one year of history and the conventional
// indicator parameters.
func DefaultSettings() Settings {
	return Settings{
		Period:          collector.Period1Y,
		MAWindows:       []int{20, 50, 200},
		RSIPeriod:       calculator.DefaultRSIPeriod,
		BollingerPeriod: calculator.DefaultBollingerPeriod,
		BollingerK:      calculator.DefaultBollingerK,
		DCF:             valuation.DefaultAssumptions(),
		Offsets:         valuation.DefaultOffsets,
		Simulation:      simulation.DefaultParams(),
		TrendConfidence: 95,
		PivotWindow:     20,
		MinTouches:      3,
		LevelPrecision:  simulation.DefaultLevelPrecision,
		MaxConcurrency:  4,
	}
}

// Analyzer runs analyses against one provider.
type Analyzer struct {
	Provider collector.Provider
	Settings Settings
}

// New creates an Analyzer.
func New(p collector.Provider, s Settings) *Analyzer {
	return &Analyzer{Provider: p, Settings: s}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// unavailable maps a provider failure to ProviderUnavailable. Analysis
// errors pass through with the symbol attached.
func unavailable(stage, symbol string, err error) error {
	if model.KindOf(err) != "" {
		return model.WithSymbol(err, symbol)
	}
	return model.WithSymbol(model.Unavailable(stage, err), symbol)
}

func (a *Analyzer) history(ctx context.Context, symbol string) (model.PriceSeries, error) {
	entry := log.WithFields(log.Fields{"symbol": symbol, "provider": a.Provider.Name(), "period": a.Settings.Period})
	s, err := a.Provider.FetchHistory(ctx, symbol, a.Settings.Period)
	if err != nil {
		entry.WithError(err).Warn("fetch history failed")
		return model.PriceSeries{}, unavailable("fetch history", symbol, err)
	}
	if s.Symbol == "" {
		s.Symbol = symbol
	}
	if err := s.Validate(); err != nil {
		return model.PriceSeries{}, err
	}
	entry.WithField("bars", len(s.Bars)).Debug("history fetched")
	return s, nil
}
