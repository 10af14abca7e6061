package analyzer

import (
	"context"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"

	"StockScope/internal/model"
	"StockScope/internal/simulation"
)

// LevelsReport is the validated support/resistance levels and where the
// price sits between them.
type LevelsReport struct {
	Supports    []simulation.Level
	Resistances []simulation.Level
	Range       simulation.RangeAnalysis
}

// SimulationReport carries the output of one simulation kind. Only the
// field matching Kind is set.
type SimulationReport struct {
	Symbol string
	Kind   simulation.Kind
	Last   model.PriceBar

	MonteCarlo *simulation.Result
	Technical  *TechnicalReport
	Levels     *LevelsReport
	Trend      *simulation.TrendForecast
}

// Simulate runs the forward-looking analysis selected by kind.
func (a *Analyzer) Simulate(ctx context.Context, symbol string, kind simulation.Kind) (*SimulationReport, error) {
	symbol = normalizeSymbol(symbol)
	s, err := a.history(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rep := &SimulationReport{Symbol: symbol, Kind: kind, Last: s.Last()}
	cfg := a.Settings

	switch kind {
	case simulation.KindMonteCarlo:
		stats, err := simulation.Estimate(s.Closes())
		if err != nil {
			return nil, model.WithSymbol(err, symbol)
		}
		rep.MonteCarlo, err = simulation.MonteCarlo(rep.Last.Close, stats, runParams(cfg.Simulation))
		if err != nil {
			return nil, model.WithSymbol(err, symbol)
		}
	case simulation.KindTechnical:
		rep.Technical, err = a.technical(s)
		if err != nil {
			return nil, err
		}
	case simulation.KindSupportResistance:
		rep.Levels, err = a.levels(s)
		if err != nil {
			return nil, model.WithSymbol(err, symbol)
		}
	case simulation.KindTrend:
		rep.Trend, err = simulation.LinearTrend(s.Closes(), cfg.Simulation.Horizon, cfg.TrendConfidence)
		if err != nil {
			return nil, model.WithSymbol(err, symbol)
		}
	default:
		return nil, model.WithSymbol(model.Invalid("simulate", "kind", "unsupported kind %v", kind), symbol)
	}

	log.WithFields(log.Fields{"symbol": symbol, "kind": kind, "bars": len(s.Bars)}).Info("simulation completed")
	return rep, nil
}

func (a *Analyzer) levels(s model.PriceSeries) (*LevelsReport, error) {
	cfg := a.Settings
	supports, resistances, err := simulation.Pivots(s.Bars, cfg.PivotWindow)
	if err != nil {
		return nil, err
	}
	rep := &LevelsReport{
		Supports:    simulation.Levels(supports, cfg.MinTouches, cfg.LevelPrecision),
		Resistances: simulation.Levels(resistances, cfg.MinTouches, cfg.LevelPrecision),
	}
	rep.Range = simulation.TradingRange(rep.Supports, rep.Resistances, s.Last().Close)
	return rep, nil
}

// runParams fills in a fresh seed when none is configured. The seed used is
// kept in Result.Params so a run can be replayed.
func runParams(p simulation.Params) simulation.Params {
	for p.Seed == 0 {
		p.Seed = rand.Uint64()
	}
	return p
}
