package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"StockScope/internal/model"
)

const (
	// DefaultYahooBaseURL is the Yahoo Finance query host.
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	fundamentalModules = "price,summaryDetail,defaultKeyStatistics,financialData"
	statementModules   = "cashflowStatementHistory,incomeStatementHistory,balanceSheetHistory"
)

// YahooProvider implements Provider using the Yahoo Finance public API.
type YahooProvider struct {
	client    *resty.Client
	limiter   *rate.Limiter
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// HTTPOption configures an HTTP backed provider.
type HTTPOption func(*resty.Client, **rate.Limiter)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) HTTPOption {
	return func(c *resty.Client, _ **rate.Limiter) {
		c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

// WithProxy routes requests through proxyURL. Empty means direct.
func WithProxy(proxyURL string) HTTPOption {
	return func(c *resty.Client, _ **rate.Limiter) {
		if proxyURL != "" {
			c.SetProxy(proxyURL)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *resty.Client, _ **rate.Limiter) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// WithRateLimit sets a custom rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond float64) HTTPOption {
	return func(_ *resty.Client, l **rate.Limiter) {
		if requestsPerSecond <= 0 {
			*l = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		*l = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func newHTTPClient(baseURL string, opts []HTTPOption) (*resty.Client, *rate.Limiter) {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		})
	limiter := rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit)
	for _, opt := range opts {
		opt(c, &limiter)
	}
	return c, limiter
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(opts ...HTTPOption) *YahooProvider {
	c, l := newHTTPClient(DefaultYahooBaseURL, opts)
	return &YahooProvider{
		client:  c,
		limiter: l,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (y *YahooProvider) Name() string { return "yahoo" }

func (y *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := y.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
// Quote values are pointers because Yahoo sends null for missing bars.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string  `json:"symbol"`
				GMTOffset int64   `json:"gmtoffset"`
				Timezone  string  `json:"exchangeTimezoneName"`
				Currency  string  `json:"currency"`
				LastPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func at(vs []*float64, i int) (float64, bool) {
	if i >= len(vs) || vs[i] == nil {
		return 0, false
	}
	return *vs[i], true
}

// tradingDay maps a bar timestamp to midnight UTC of the exchange-local date,
// so series from different exchanges join on calendar days.
func tradingDay(ts, gmtOffset int64) time.Time {
	y, m, d := time.Unix(ts+gmtOffset, 0).UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (y *YahooProvider) get(ctx context.Context, path string, params map[string]string, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("yahoo rate limiter: %w", err)
	}
	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("yahoo %s: %w", path, ErrNoData)
	}
	if resp.IsError() {
		return &APIError{Provider: y.Name(), StatusCode: resp.StatusCode(), Endpoint: path, Message: truncate(resp.String(), 200)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// FetchHistory returns daily bars in ascending order. Bars with a null
// price field are skipped.
func (y *YahooProvider) FetchHistory(ctx context.Context, symbol string, period Period) (model.PriceSeries, error) {
	if !period.valid() {
		return model.PriceSeries{}, fmt.Errorf("yahoo: invalid period %v", period)
	}
	var chart yahooChart
	path := "/v8/finance/chart/" + url.PathEscape(y.yahooSymbol(symbol))
	err := y.get(ctx, path, map[string]string{"range": period.String(), "interval": "1d"}, &chart)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	series := model.PriceSeries{Symbol: symbol, Bars: make([]model.PriceBar, 0, len(result.Timestamp))}
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !(ok1 && ok2 && ok3 && ok4) {
			continue // skip null bars (holidays etc.)
		}
		v, _ := at(quote.Volume, i)
		series.Bars = append(series.Bars, model.PriceBar{
			Time: tradingDay(ts, result.Meta.GMTOffset), Open: o, High: h, Low: l, Close: c, Volume: v,
		})
	}
	if len(series.Bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, ErrNoData)
	}
	sort.SliceStable(series.Bars, func(i, j int) bool { return series.Bars[i].Time.Before(series.Bars[j].Time) })
	series.Bars = dedupeDays(series.Bars)
	return series, nil
}

// dedupeDays keeps the last bar of each day. Yahoo appends a live bar for
// the current session that can share a date with the final daily bar.
func dedupeDays(bars []model.PriceBar) []model.PriceBar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// yahooSummary is the response structure of the quoteSummary API. Each module
// is kept raw because values mix {raw, fmt} objects and plain strings.
type yahooSummary struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yahooError                  `json:"error"`
	} `json:"quoteSummary"`
}

type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type yahooModule map[string]json.RawMessage

func (m yahooModule) number(key string) (float64, bool) {
	msg, ok := m[key]
	if !ok {
		return 0, false
	}
	var v yahooValue
	if err := json.Unmarshal(msg, &v); err != nil || v.Raw == nil {
		return 0, false
	}
	return *v.Raw, true
}

func (m yahooModule) text(key string) string {
	var s string
	if msg, ok := m[key]; ok {
		_ = json.Unmarshal(msg, &s)
	}
	return s
}

func (y *YahooProvider) summary(ctx context.Context, symbol, modules string) (map[string]json.RawMessage, error) {
	var out yahooSummary
	path := "/v10/finance/quoteSummary/" + url.PathEscape(y.yahooSymbol(symbol))
	if err := y.get(ctx, path, map[string]string{"modules": modules}, &out); err != nil {
		return nil, err
	}
	if out.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", out.QuoteSummary.Error.Description)
	}
	if len(out.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo summary %s: %w", symbol, ErrNoData)
	}
	return out.QuoteSummary.Result[0], nil
}

func module(result map[string]json.RawMessage, name string) yahooModule {
	var m yahooModule
	if msg, ok := result[name]; ok {
		_ = json.Unmarshal(msg, &m)
	}
	return m
}

var fundamentalFields = []struct {
	module string
	key    string
	field  model.Field
}{
	{"price", "regularMarketPrice", model.FieldRegularMarketPrice},
	{"price", "marketCap", model.FieldMarketCap},
	{"summaryDetail", "trailingPE", model.FieldTrailingPE},
	{"summaryDetail", "forwardPE", model.FieldForwardPE},
	{"summaryDetail", "dividendYield", model.FieldDividendYield},
	{"summaryDetail", "fiftyTwoWeekHigh", model.FieldFiftyTwoWeekHigh},
	{"summaryDetail", "fiftyTwoWeekLow", model.FieldFiftyTwoWeekLow},
	{"summaryDetail", "volume", model.FieldVolume},
	{"defaultKeyStatistics", "sharesOutstanding", model.FieldSharesOutstanding},
	{"defaultKeyStatistics", "floatShares", model.FieldFloatShares},
	{"defaultKeyStatistics", "priceToBook", model.FieldPriceToBook},
	{"defaultKeyStatistics", "trailingEps", model.FieldTrailingEPS},
	{"defaultKeyStatistics", "forwardEps", model.FieldForwardEPS},
	{"financialData", "targetLowPrice", model.FieldTargetLowPrice},
	{"financialData", "targetMeanPrice", model.FieldTargetMeanPrice},
	{"financialData", "targetHighPrice", model.FieldTargetHighPrice},
}

// FetchFundamentals returns the fields Yahoo reports. Absent fields stay absent.
func (y *YahooProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	result, err := y.summary(ctx, symbol, fundamentalModules)
	if err != nil {
		return nil, err
	}
	f := model.NewFundamentals(symbol)
	mods := map[string]yahooModule{}
	for _, spec := range fundamentalFields {
		m, ok := mods[spec.module]
		if !ok {
			m = module(result, spec.module)
			mods[spec.module] = m
		}
		if v, ok := m.number(spec.key); ok {
			f.Set(spec.field, v)
		}
	}
	price := mods["price"]
	if pct, ok := price.number("regularMarketChangePercent"); ok {
		f.Set(model.FieldChangePercent, pct*100)
	}
	if f.Name = price.text("longName"); f.Name == "" {
		f.Name = price.text("shortName")
	}
	if len(f.Fields()) == 0 {
		return nil, fmt.Errorf("yahoo fundamentals %s: %w", symbol, ErrNoData)
	}
	return f, nil
}

type statementMapping struct {
	module string
	list   string
	items  map[string]model.LineItem
}

var (
	cashFlowMapping = statementMapping{"cashflowStatementHistory", "cashflowStatements", map[string]model.LineItem{
		"totalCashFromOperatingActivities": model.ItemOperatingCashFlow,
		"capitalExpenditures":              model.ItemCapitalExpenditure,
	}}
	incomeMapping = statementMapping{"incomeStatementHistory", "incomeStatementHistory", map[string]model.LineItem{
		"totalRevenue":    model.ItemTotalRevenue,
		"grossProfit":     model.ItemGrossProfit,
		"operatingIncome": model.ItemOperatingIncome,
		"netIncome":       model.ItemNetIncome,
	}}
	balanceMapping = statementMapping{"balanceSheetHistory", "balanceSheetStatements", map[string]model.LineItem{
		"totalCurrentAssets":      model.ItemCurrentAssets,
		"totalCurrentLiabilities": model.ItemCurrentLiabilities,
		"inventory":               model.ItemInventory,
	}}
)

func parseStatements(result map[string]json.RawMessage, sm statementMapping) []model.StatementPeriod {
	var rows []yahooModule
	if msg, ok := module(result, sm.module)[sm.list]; ok {
		_ = json.Unmarshal(msg, &rows)
	}
	periods := make([]model.StatementPeriod, 0, len(rows))
	for _, row := range rows {
		var end time.Time
		if ts, ok := row.number("endDate"); ok {
			end = time.Unix(int64(ts), 0).UTC()
		}
		p := model.NewPeriod(end)
		for key, item := range sm.items {
			if v, ok := row.number(key); ok {
				p.Set(item, v)
			}
		}
		periods = append(periods, p)
	}
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].End.After(periods[j].End) })
	return periods
}

// FetchStatements returns annual statements, most recent period first.
func (y *YahooProvider) FetchStatements(ctx context.Context, symbol string) (*model.Statements, error) {
	result, err := y.summary(ctx, symbol, statementModules)
	if err != nil {
		return nil, err
	}
	st := &model.Statements{
		Symbol:   symbol,
		CashFlow: parseStatements(result, cashFlowMapping),
		Income:   parseStatements(result, incomeMapping),
		Balance:  parseStatements(result, balanceMapping),
	}
	if len(st.CashFlow) == 0 && len(st.Income) == 0 && len(st.Balance) == 0 {
		return nil, fmt.Errorf("yahoo statements %s: %w", symbol, ErrNoData)
	}
	return st, nil
}
