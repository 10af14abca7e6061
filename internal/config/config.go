package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockScope/internal/analyzer"
	"StockScope/internal/collector"
)

// Provider kinds.
const (
	ProviderYahoo  = "yahoo"
	ProviderREST   = "rest"
	ProviderStatic = "static"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Provider struct {
		Kind      string        `yaml:"kind"`
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"api_key"`
		Proxy     string        `yaml:"proxy"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
		CacheTTL  time.Duration `yaml:"cache_ttl"`
	} `yaml:"provider"`
	Schedule struct {
		DigestCron string `yaml:"digest_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Watchlist []string `yaml:"watchlist"`
	Analysis  Analysis `yaml:"analysis"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Analysis holds the default parameters of every analysis.
type Analysis struct {
	Period    string `yaml:"period"`
	MAWindows []int  `yaml:"ma_windows"`
	RSIPeriod int    `yaml:"rsi_period"`
	Bollinger struct {
		Period int     `yaml:"period"`
		K      float64 `yaml:"k"`
	} `yaml:"bollinger"`
	DCF struct {
		ForecastYears  int     `yaml:"forecast_years"`
		TerminalGrowth float64 `yaml:"terminal_growth"`
		DiscountRate   float64 `yaml:"discount_rate"`
	} `yaml:"dcf"`
	Simulation struct {
		Horizon    int     `yaml:"horizon"`
		Paths      int     `yaml:"paths"`
		Confidence float64 `yaml:"confidence"`
		Workers    int     `yaml:"workers"`
		Seed       uint64  `yaml:"seed"`
	} `yaml:"simulation"`
	TrendConfidence float64 `yaml:"trend_confidence"`
	Levels          struct {
		Window     int   `yaml:"window"`
		MinTouches int   `yaml:"min_touches"`
		Precision  int32 `yaml:"precision"`
	} `yaml:"levels"`
	MaxConcurrency int `yaml:"max_concurrency"`
}

// LoadEnv loads KEY=VALUE pairs from the given .env files (".env" when none
// is given) into the process environment. Missing files are skipped and
// variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Environment variable overrides
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"PROVIDER_KIND":      &c.Provider.Kind,
		"PROVIDER_BASE_URL":  &c.Provider.BaseURL,
		"PROVIDER_API_KEY":   &c.Provider.APIKey,
		"HTTPS_PROXY":        &c.Provider.Proxy,
		"CRON_DIGEST":        &c.Schedule.DigestCron,
		"ANALYSIS_PERIOD":    &c.Analysis.Period,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FORMAT":         &c.Log.Format,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = splitList(v)
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = b
	}
	if v := os.Getenv("PROVIDER_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PROVIDER_CACHE_TTL: %w", err)
		}
		c.Provider.CacheTTL = d
	}
	if v := os.Getenv("PROVIDER_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PROVIDER_RATE_LIMIT: %w", err)
		}
		c.Provider.RateLimit = f
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Provider.Kind == "" {
		c.Provider.Kind = ProviderYahoo
	}
	c.Provider.Kind = strings.ToLower(c.Provider.Kind)
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = collector.DefaultTimeout
	}
	if c.Provider.RateLimit == 0 {
		c.Provider.RateLimit = collector.DefaultRateLimit
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 30 22 * * 1-5"
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = []string{"SPX500"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	a := &c.Analysis
	if a.Period == "" {
		a.Period = collector.Period1Y.String()
	}
	if len(a.MAWindows) == 0 {
		a.MAWindows = []int{20, 50, 200}
	}
	if a.RSIPeriod == 0 {
		a.RSIPeriod = 14
	}
	if a.Bollinger.Period == 0 {
		a.Bollinger.Period = 20
	}
	if a.Bollinger.K == 0 {
		a.Bollinger.K = 2
	}
	if a.DCF.ForecastYears == 0 {
		a.DCF.ForecastYears = 5
	}
	if a.DCF.TerminalGrowth == 0 {
		a.DCF.TerminalGrowth = 2.5
	}
	if a.DCF.DiscountRate == 0 {
		a.DCF.DiscountRate = 10
	}
	if a.Simulation.Horizon == 0 {
		a.Simulation.Horizon = 30
	}
	if a.Simulation.Paths == 0 {
		a.Simulation.Paths = 200
	}
	if a.Simulation.Confidence == 0 {
		a.Simulation.Confidence = 0.95
	}
	if a.TrendConfidence == 0 {
		a.TrendConfidence = 95
	}
	if a.Levels.Window == 0 {
		a.Levels.Window = 20
	}
	if a.Levels.MinTouches == 0 {
		a.Levels.MinTouches = 3
	}
	if a.Levels.Precision == 0 {
		a.Levels.Precision = 1
	}
	if a.MaxConcurrency == 0 {
		a.MaxConcurrency = 4
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	switch c.Provider.Kind {
	case ProviderYahoo, ProviderStatic:
	case ProviderREST:
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("provider.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("provider.kind %q is not one of yahoo, rest, static", c.Provider.Kind)
	}
	if c.Provider.CacheTTL < 0 {
		return fmt.Errorf("provider.cache_ttl must not be negative")
	}
	if _, err := c.Analysis.ParsedPeriod(); err != nil {
		return fmt.Errorf("analysis.period: %w", err)
	}
	return c.Analysis.validate()
}

// ParsedPeriod returns the configured history period.
func (a Analysis) ParsedPeriod() (collector.Period, error) {
	return collector.ParsePeriod(a.Period)
}

// Settings maps the analysis section onto analyzer settings.
func (a Analysis) Settings() (analyzer.Settings, error) {
	period, err := a.ParsedPeriod()
	if err != nil {
		return analyzer.Settings{}, err
	}
	s := analyzer.DefaultSettings()
	s.Period = period
	s.MAWindows = a.MAWindows
	s.RSIPeriod = a.RSIPeriod
	s.BollingerPeriod = a.Bollinger.Period
	s.BollingerK = a.Bollinger.K
	s.DCF.ForecastYears = a.DCF.ForecastYears
	s.DCF.TerminalGrowth = a.DCF.TerminalGrowth
	s.DCF.DiscountRate = a.DCF.DiscountRate
	s.Simulation.Horizon = a.Simulation.Horizon
	s.Simulation.Paths = a.Simulation.Paths
	s.Simulation.Confidence = a.Simulation.Confidence
	s.Simulation.Workers = a.Simulation.Workers
	s.Simulation.Seed = a.Simulation.Seed
	s.TrendConfidence = a.TrendConfidence
	s.PivotWindow = a.Levels.Window
	s.MinTouches = a.Levels.MinTouches
	s.LevelPrecision = a.Levels.Precision
	s.MaxConcurrency = a.MaxConcurrency
	return s, nil
}

func (a Analysis) validate() error {
	for _, w := range a.MAWindows {
		if w <= 0 {
			return fmt.Errorf("analysis.ma_windows: window %d must be positive", w)
		}
	}
	switch {
	case a.RSIPeriod <= 0:
		return fmt.Errorf("analysis.rsi_period must be positive")
	case a.Bollinger.Period < 2:
		return fmt.Errorf("analysis.bollinger.period must be at least 2")
	case a.Bollinger.K <= 0:
		return fmt.Errorf("analysis.bollinger.k must be positive")
	case a.DCF.ForecastYears < 1:
		return fmt.Errorf("analysis.dcf.forecast_years must be at least 1")
	case a.DCF.DiscountRate <= a.DCF.TerminalGrowth:
		return fmt.Errorf("analysis.dcf.discount_rate (%v) must exceed terminal_growth (%v)", a.DCF.DiscountRate, a.DCF.TerminalGrowth)
	case a.Simulation.Horizon < 1:
		return fmt.Errorf("analysis.simulation.horizon must be at least 1")
	case a.Simulation.Paths < 1:
		return fmt.Errorf("analysis.simulation.paths must be at least 1")
	case !(a.Simulation.Confidence > 0 && a.Simulation.Confidence < 1):
		return fmt.Errorf("analysis.simulation.confidence must be in (0, 1)")
	case !(a.TrendConfidence > 0 && a.TrendConfidence < 100):
		return fmt.Errorf("analysis.trend_confidence must be a percentage in (0, 100)")
	case a.Levels.Window < 1:
		return fmt.Errorf("analysis.levels.window must be at least 1")
	case a.Levels.MinTouches < 1:
		return fmt.Errorf("analysis.levels.min_touches must be at least 1")
	case a.Levels.Precision < 0 || a.Levels.Precision > 8:
		return fmt.Errorf("analysis.levels.precision must be between 0 and 8")
	}
	for _, v := range []float64{a.DCF.TerminalGrowth, a.DCF.DiscountRate, a.Bollinger.K} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("analysis: non-finite value %v", v)
		}
	}
	return nil
}
