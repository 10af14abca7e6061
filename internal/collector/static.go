package collector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"StockScope/internal/model"
)

// StaticProvider serves fixed in-memory data for development and testing.
// Symbols with an entry in Errors fail with that error on every call.
type StaticProvider struct {
	mu           sync.RWMutex
	History      map[string]model.PriceSeries
	Fundamentals map[string]*model.Fundamentals
	Statements   map[string]*model.Statements
	Errors       map[string]error
}

// NewStaticProvider creates an empty provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		History:      make(map[string]model.PriceSeries),
		Fundamentals: make(map[string]*model.Fundamentals),
		Statements:   make(map[string]*model.Statements),
		Errors:       make(map[string]error),
	}
}

func (s *StaticProvider) Name() string { return "static" }

// AddHistory registers a series under its symbol.
func (s *StaticProvider) AddHistory(series model.PriceSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History[series.Symbol] = series
}

// AddFundamentals registers a fundamentals snapshot under its symbol.
func (s *StaticProvider) AddFundamentals(f *model.Fundamentals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fundamentals[f.Symbol] = f
}

// AddStatements registers statements under their symbol.
func (s *StaticProvider) AddStatements(st *model.Statements) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statements[st.Symbol] = st
}

// Fail makes every call for symbol return err.
func (s *StaticProvider) Fail(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors[symbol] = err
}

// FetchHistory returns the registered series trimmed to the period's
// trading days.
func (s *StaticProvider) FetchHistory(_ context.Context, symbol string, period Period) (model.PriceSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.Errors[symbol]; err != nil {
		return model.PriceSeries{}, err
	}
	series, ok := s.History[symbol]
	if !ok || len(series.Bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("static history %s: %w", symbol, ErrNoData)
	}
	if n := period.TradingDays(); n > 0 && len(series.Bars) > n {
		series.Bars = series.Bars[len(series.Bars)-n:]
	}
	return series, nil
}

func (s *StaticProvider) FetchFundamentals(_ context.Context, symbol string) (*model.Fundamentals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.Errors[symbol]; err != nil {
		return nil, err
	}
	f, ok := s.Fundamentals[symbol]
	if !ok {
		return nil, fmt.Errorf("static fundamentals %s: %w", symbol, ErrNoData)
	}
	return f, nil
}

func (s *StaticProvider) FetchStatements(_ context.Context, symbol string) (*model.Statements, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.Errors[symbol]; err != nil {
		return nil, err
	}
	st, ok := s.Statements[symbol]
	if !ok {
		return nil, fmt.Errorf("static statements %s: %w", symbol, ErrNoData)
	}
	return st, nil
}

// SyntheticSeries generates count deterministic daily bars ending at end,
// oscillating gently around basePrice.
func SyntheticSeries(symbol string, basePrice float64, count int, end time.Time) model.PriceSeries {
	y, m, d := end.UTC().Date()
	last := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		drift := float64(i-count/2) * 0.001
		wave := 0.03 * math.Sin(float64(i)/7)
		p := basePrice * (1 + drift + wave)
		bars[i] = model.PriceBar{
			Time:   last.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return model.PriceSeries{Symbol: symbol, Bars: bars}
}
