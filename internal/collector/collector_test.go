package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScope/internal/model"
)

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"^GSPC","gmtoffset":-14400,"currency":"USD","regularMarketPrice":103},
"timestamp":[1717421400,1717507800,1717594200,1717680600],
"indicators":{"quote":[{"open":[100,101,null,102],"high":[101,102,null,104],"low":[99,100,null,101],"close":[100.5,101.5,null,103],"volume":[1000,1100,null,1200]}]}}],"error":null}}`

const summaryFundamentals = `{"quoteSummary":{"result":[{
"price":{"regularMarketPrice":{"raw":190.5,"fmt":"190.50"},"marketCap":{"raw":3000000000,"fmt":"3B"},"regularMarketChangePercent":{"raw":0.0125},"longName":"Apple Inc."},
"summaryDetail":{"trailingPE":{"raw":29.1},"forwardPE":{},"fiftyTwoWeekHigh":{"raw":200},"fiftyTwoWeekLow":{"raw":150}},
"defaultKeyStatistics":{"sharesOutstanding":{"raw":15000000},"trailingEps":{"raw":6.5},"forwardEps":{"raw":7.1}},
"financialData":{"targetMeanPrice":{"raw":210}}}],"error":null}}`

const summaryStatements = `{"quoteSummary":{"result":[{
"cashflowStatementHistory":{"cashflowStatements":[
 {"endDate":{"raw":1672444800},"totalCashFromOperatingActivities":{"raw":900},"capitalExpenditures":{"raw":-100}},
 {"endDate":{"raw":1703980800},"totalCashFromOperatingActivities":{"raw":1000},"capitalExpenditures":{"raw":-120}}]},
"incomeStatementHistory":{"incomeStatementHistory":[{"endDate":{"raw":1703980800},"totalRevenue":{"raw":5000},"netIncome":{"raw":700}}]},
"balanceSheetHistory":{"balanceSheetStatements":[]}}],"error":null}}`

func jsonHandler(t *testing.T, routes map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func newTestYahoo(t *testing.T, h http.Handler) *YahooProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewYahooProvider(WithBaseURL(srv.URL), WithRateLimit(0), WithTimeout(5*time.Second))
}

func TestYahooProvider_FetchHistory(t *testing.T) {
	var gotQuery string
	routes := map[string]string{"/v8/finance/chart/^GSPC": chartBody}
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonHandler(t, routes)(w, r)
	}))

	s, err := y.FetchHistory(context.Background(), "SPX500", Period1Y)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "range=1y")
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Equal(t, "SPX500", s.Symbol)
	require.Len(t, s.Bars, 3, "null bar should be skipped")
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), s.Bars[0].Time)
	assert.Equal(t, time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC), s.Bars[2].Time)
	assert.Equal(t, 103.0, s.Last().Close)
	assert.NoError(t, s.Validate())
}

func TestYahooProvider_Errors(t *testing.T) {
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/BOOM" {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		jsonHandler(t, map[string]string{
			"/v8/finance/chart/EMPTY": `{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`,
		})(w, r)
	}))

	_, err := y.FetchHistory(context.Background(), "NOPE", Period1M)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = y.FetchHistory(context.Background(), "EMPTY", Period1M)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = y.FetchHistory(context.Background(), "BOOM", Period1M)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestYahooProvider_FetchFundamentals(t *testing.T) {
	var gotModules string
	y := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotModules = r.URL.Query().Get("modules")
		jsonHandler(t, map[string]string{"/v10/finance/quoteSummary/AAPL": summaryFundamentals})(w, r)
	}))

	f, err := y.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, fundamentalModules, gotModules)
	assert.Equal(t, "Apple Inc.", f.Name)

	v, ok := f.Lookup(model.FieldRegularMarketPrice)
	assert.True(t, ok)
	assert.Equal(t, 190.5, v)
	v, ok = f.Lookup(model.FieldSharesOutstanding)
	assert.True(t, ok)
	assert.Equal(t, 15000000.0, v)
	v, ok = f.Lookup(model.FieldChangePercent)
	assert.True(t, ok)
	assert.InDelta(t, 1.25, v, 1e-12)

	_, ok = f.Lookup(model.FieldForwardPE)
	assert.False(t, ok, "empty value object means absent")
	_, ok = f.Lookup(model.FieldFloatShares)
	assert.False(t, ok)
}

func TestYahooProvider_FetchStatements(t *testing.T) {
	y := newTestYahoo(t, jsonHandler(t, map[string]string{"/v10/finance/quoteSummary/AAPL": summaryStatements}))

	st, err := y.FetchStatements(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, st.CashFlow, 2)
	assert.True(t, st.CashFlow[0].End.After(st.CashFlow[1].End), "most recent period first")
	ocf, ok := st.CashFlow[0].Lookup(model.ItemOperatingCashFlow)
	assert.True(t, ok)
	assert.Equal(t, 1000.0, ocf)
	capex, _ := st.CashFlow[0].Lookup(model.ItemCapitalExpenditure)
	assert.Equal(t, -120.0, capex)

	require.Len(t, st.Income, 1)
	_, ok = st.Income[0].Lookup(model.ItemGrossProfit)
	assert.False(t, ok)
	assert.Empty(t, st.Balance)
}

func TestRESTProvider(t *testing.T) {
	var auth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bars/daily", func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "MSFT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "3mo", r.URL.Query().Get("period"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"timestamp":1717594200,"open":2,"high":3,"low":1,"close":2.5,"volume":10},
{"timestamp":1717507800,"open":1,"high":2,"low":0.5,"close":1.5,"volume":9}]`)
	})
	mux.HandleFunc("/api/v1/fundamentals", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"symbol":"MSFT","name":"Microsoft","fields":{"sharesOutstanding":7400,"regularMarketPrice":420}}`)
	})
	mux.HandleFunc("/api/v1/statements", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"cash_flow":[{"end":"2022-06-30","items":{"Operating Cash Flow":80,"Capital Expenditure":-20}},
{"end":"2023-06-30","items":{"Operating Cash Flow":90,"Capital Expenditure":-25}}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewRESTProvider(srv.URL, "secret", WithRateLimit(0))
	ctx := context.Background()

	s, err := p.FetchHistory(ctx, "MSFT", Period3M)
	require.NoError(t, err)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, 1.5, s.Bars[0].Close, "bars are sorted ascending")
	assert.Equal(t, "Bearer secret", auth.Load())

	f, err := p.FetchFundamentals(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", f.Name)
	shares, ok := f.Positive(model.FieldSharesOutstanding)
	assert.True(t, ok)
	assert.Equal(t, 7400.0, shares)

	st, err := p.FetchStatements(ctx, "MSFT")
	require.NoError(t, err)
	require.Len(t, st.CashFlow, 2)
	assert.Equal(t, 2023, st.CashFlow[0].End.Year())

	_, err = p.FetchHistory(ctx, "MSFT", Period(42))
	assert.Error(t, err)
}

type countingProvider struct {
	*StaticProvider
	history int32
}

func (c *countingProvider) FetchHistory(ctx context.Context, symbol string, period Period) (model.PriceSeries, error) {
	atomic.AddInt32(&c.history, 1)
	return c.StaticProvider.FetchHistory(ctx, symbol, period)
}

func TestCachedProvider(t *testing.T) {
	static := NewStaticProvider()
	static.AddHistory(SyntheticSeries("AAA", 50, 300, time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)))
	inner := &countingProvider{StaticProvider: static}
	p := NewCachedProvider(inner, time.Minute)
	ctx := context.Background()

	a, err := p.FetchHistory(ctx, "AAA", Period1Y)
	require.NoError(t, err)
	b, err := p.FetchHistory(ctx, "AAA", Period1Y)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.history))

	_, err = p.FetchHistory(ctx, "AAA", Period1M)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.history), "period is part of the key")

	_, err = p.FetchHistory(ctx, "MISSING", Period1Y)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = p.FetchHistory(ctx, "MISSING", Period1Y)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, int32(4), atomic.LoadInt32(&inner.history), "failures are not cached")

	assert.Same(t, Provider(inner), NewCachedProvider(inner, 0))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider()
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	p.AddHistory(SyntheticSeries("AAA", 10, 400, end))
	boom := errors.New("boom")
	p.Fail("BAD", boom)

	s, err := p.FetchHistory(context.Background(), "AAA", Period6M)
	require.NoError(t, err)
	assert.Len(t, s.Bars, Period6M.TradingDays())
	assert.Equal(t, end, s.Last().Time)
	assert.NoError(t, s.Validate())

	_, err = p.FetchFundamentals(context.Background(), "AAA")
	assert.ErrorIs(t, err, ErrNoData)
	_, err = p.FetchStatements(context.Background(), "BAD")
	assert.ErrorIs(t, err, boom)
}

func TestParsePeriod(t *testing.T) {
	for _, p := range []Period{Period1M, Period3M, Period6M, Period1Y, Period2Y, Period5Y} {
		got, err := ParsePeriod(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePeriod("10y")
	assert.Error(t, err)
}
