package analyzer

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"StockScope/internal/model"
	"StockScope/internal/valuation"
)

// ValuationReport is a DCF run with its sensitivity grid, the verdict
// against the market price and the analyst outlook.
type ValuationReport struct {
	Symbol string
	Name   string
	DCF    *valuation.Result
	Grid   *valuation.Grid

	// Price is the regular market price when the provider reported one.
	// Rating and UpsidePct are only meaningful when HasVerdict is set.
	Price      *float64
	HasVerdict bool
	Rating     valuation.Rating
	UpsidePct  float64

	Outlook valuation.AnalystOutlook
}

// Valuation runs a DCF for symbol. A nil growth resolves from the cash flow
// history. Fundamentals are optional: without them the report has no
// per-share value and no verdict.
func (a *Analyzer) Valuation(ctx context.Context, symbol string, growth *float64) (*ValuationReport, error) {
	symbol = normalizeSymbol(symbol)
	entry := log.WithFields(log.Fields{"symbol": symbol, "provider": a.Provider.Name()})

	var (
		st   *model.Statements
		fund *model.Fundamentals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st, err = a.Provider.FetchStatements(gctx, symbol)
		if err != nil {
			return unavailable("fetch statements", symbol, err)
		}
		return nil
	})
	g.Go(func() error {
		f, err := a.Provider.FetchFundamentals(gctx, symbol)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			entry.WithError(err).Warn("fundamentals unavailable, valuing without share data")
			return nil
		}
		fund = f
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := valuation.Inputs{Statements: st, Fundamentals: fund}
	assumptions := a.Settings.DCF
	assumptions.GrowthRate = growth

	res, err := valuation.Value(in, assumptions)
	if err != nil {
		entry.WithError(err).Warn("dcf failed")
		return nil, err
	}
	grid, err := valuation.Sensitivity(in, assumptions, a.Settings.Offsets)
	if err != nil {
		return nil, err
	}

	rep := &ValuationReport{Symbol: symbol, DCF: res, Grid: grid, Outlook: valuation.Outlook(fund)}
	if fund != nil {
		rep.Name = fund.Name
		if p, ok := fund.Positive(model.FieldRegularMarketPrice); ok {
			rep.Price = &p
		}
	}
	if res.PerShare != nil && rep.Price != nil {
		rating, upside, err := valuation.Verdict(*res.PerShare, *rep.Price)
		if err == nil {
			rep.HasVerdict, rep.Rating, rep.UpsidePct = true, rating, upside
		}
	}

	entry.WithFields(log.Fields{
		"growth":        *res.Assumptions.GrowthRate,
		"growth_source": res.GrowthSource,
		"shares_source": res.SharesSource,
	}).Info("dcf valuation completed")
	return rep, nil
}
