package collector

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"StockScope/internal/model"
)

// RESTProvider implements Provider against a generic market data REST API.
type RESTProvider struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewRESTProvider creates a provider for baseURL, authenticating with a
// bearer API key when one is given.
func NewRESTProvider(baseURL, apiKey string, opts ...HTTPOption) *RESTProvider {
	c, l := newHTTPClient(baseURL, opts)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &RESTProvider{client: c, limiter: l}
}

func (p *RESTProvider) Name() string { return "rest" }

// restBar is the expected JSON shape of one daily bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type restFundamentals struct {
	Symbol string             `json:"symbol"`
	Name   string             `json:"name"`
	Fields map[string]float64 `json:"fields"`
}

type restPeriod struct {
	End   string             `json:"end"`
	Items map[string]float64 `json:"items"`
}

type restStatements struct {
	CashFlow []restPeriod `json:"cash_flow"`
	Income   []restPeriod `json:"income"`
	Balance  []restPeriod `json:"balance"`
}

func (p *RESTProvider) get(ctx context.Context, path string, params map[string]string, result any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rest rate limiter: %w", err)
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("rest fetch %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("rest %s: %w", path, ErrNoData)
	}
	if resp.IsError() {
		return &APIError{Provider: p.Name(), StatusCode: resp.StatusCode(), Endpoint: path, Message: truncate(resp.String(), 200)}
	}
	return nil
}

func (p *RESTProvider) FetchHistory(ctx context.Context, symbol string, period Period) (model.PriceSeries, error) {
	if !period.valid() {
		return model.PriceSeries{}, fmt.Errorf("rest: invalid period %v", period)
	}
	var bars []restBar
	params := map[string]string{
		"symbol": symbol,
		"period": period.String(),
		"limit":  fmt.Sprint(period.TradingDays()),
	}
	if err := p.get(ctx, "/api/v1/bars/daily", params, &bars); err != nil {
		return model.PriceSeries{}, err
	}
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("rest bars %s: %w", symbol, ErrNoData)
	}
	series := model.PriceSeries{Symbol: symbol, Bars: make([]model.PriceBar, len(bars))}
	for i, b := range bars {
		series.Bars[i] = model.PriceBar{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(series.Bars, func(i, j int) bool { return series.Bars[i].Time.Before(series.Bars[j].Time) })
	return series, nil
}

func (p *RESTProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	var out restFundamentals
	if err := p.get(ctx, "/api/v1/fundamentals", map[string]string{"symbol": symbol}, &out); err != nil {
		return nil, err
	}
	if len(out.Fields) == 0 {
		return nil, fmt.Errorf("rest fundamentals %s: %w", symbol, ErrNoData)
	}
	f := model.NewFundamentals(symbol)
	f.Name = out.Name
	for k, v := range out.Fields {
		f.Set(model.Field(k), v)
	}
	return f, nil
}

func (p *RESTProvider) FetchStatements(ctx context.Context, symbol string) (*model.Statements, error) {
	var out restStatements
	if err := p.get(ctx, "/api/v1/statements", map[string]string{"symbol": symbol}, &out); err != nil {
		return nil, err
	}
	st := &model.Statements{Symbol: symbol}
	var err error
	if st.CashFlow, err = restPeriods(out.CashFlow); err != nil {
		return nil, fmt.Errorf("rest statements %s: %w", symbol, err)
	}
	if st.Income, err = restPeriods(out.Income); err != nil {
		return nil, fmt.Errorf("rest statements %s: %w", symbol, err)
	}
	if st.Balance, err = restPeriods(out.Balance); err != nil {
		return nil, fmt.Errorf("rest statements %s: %w", symbol, err)
	}
	if len(st.CashFlow) == 0 && len(st.Income) == 0 && len(st.Balance) == 0 {
		return nil, fmt.Errorf("rest statements %s: %w", symbol, ErrNoData)
	}
	return st, nil
}

// restPeriods converts API periods, most recent first.
func restPeriods(in []restPeriod) ([]model.StatementPeriod, error) {
	out := make([]model.StatementPeriod, 0, len(in))
	for _, rp := range in {
		end, err := time.Parse("2006-01-02", rp.End)
		if err != nil {
			return nil, fmt.Errorf("parse period end %q: %w", rp.End, err)
		}
		p := model.NewPeriod(end)
		for k, v := range rp.Items {
			p.Set(model.LineItem(k), v)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].End.After(out[j].End) })
	return out, nil
}
