// Package collector fetches price history, fundamentals and financial
// statements from market data providers.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"StockScope/internal/model"
)

// ErrNoData is returned when a provider answered but had nothing for the symbol.
var ErrNoData = errors.New("no data")

// Provider defines the interface for fetching market data.
type Provider interface {
	FetchHistory(ctx context.Context, symbol string, period Period) (model.PriceSeries, error)
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
	FetchStatements(ctx context.Context, symbol string) (*model.Statements, error)
	Name() string
}

// APIError is a non-success HTTP answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: %s (status: %d, endpoint: %s)", e.Provider, e.Message, e.StatusCode, e.Endpoint)
}

// Period is a history lookback window.
type Period int

const (
	Period1M Period = iota
	Period3M
	Period6M
	Period1Y
	Period2Y
	Period5Y
)

var periods = []struct {
	name string
	days int
}{
	Period1M: {"1mo", 22},
	Period3M: {"3mo", 66},
	Period6M: {"6mo", 126},
	Period1Y: {"1y", 252},
	Period2Y: {"2y", 504},
	Period5Y: {"5y", 1260},
}

func (p Period) valid() bool { return p >= 0 && int(p) < len(periods) }

func (p Period) String() string {
	if !p.valid() {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periods[p].name
}

// TradingDays approximates the number of daily bars in the period.
func (p Period) TradingDays() int {
	if !p.valid() {
		return 0
	}
	return periods[p].days
}

// ParsePeriod accepts the names printed by String.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, p := range periods {
		if p.name == s {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("unknown period %q (want one of 1mo, 3mo, 6mo, 1y, 2y, 5y)", s)
}
