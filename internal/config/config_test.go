package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScope/internal/collector"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sample = `
telegram:
  bot_token: "file-token"
  chat_id: "42"
provider:
  kind: REST
  base_url: "https://data.example.com"
  cache_ttl: 5m
  timeout: 10s
schedule:
  digest_cron: "0 0 8 * * *"
watchlist: [AAPL, MSFT]
analysis:
  period: 2y
  ma_windows: [10, 30]
  dcf:
    discount_rate: 9
  simulation:
    paths: 500
    seed: 7
  levels:
    window: 5
`

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.BotToken)
	assert.Equal(t, ProviderREST, cfg.Provider.Kind, "kind is lower-cased")
	assert.Equal(t, 5*time.Minute, cfg.Provider.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Watchlist)
	assert.Equal(t, "0 0 8 * * *", cfg.Schedule.DigestCron)

	// unset fields fall back to defaults
	assert.Equal(t, 14, cfg.Analysis.RSIPeriod)
	assert.Equal(t, 2.5, cfg.Analysis.DCF.TerminalGrowth)
	assert.Equal(t, 3, cfg.Analysis.Levels.MinTouches)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())

	s, err := cfg.Analysis.Settings()
	require.NoError(t, err)
	assert.Equal(t, collector.Period2Y, s.Period)
	assert.Equal(t, []int{10, 30}, s.MAWindows)
	assert.Equal(t, 9.0, s.DCF.DiscountRate)
	assert.Nil(t, s.DCF.GrowthRate)
	assert.Equal(t, 500, s.Simulation.Paths)
	assert.Equal(t, uint64(7), s.Simulation.Seed)
	assert.Equal(t, 5, s.PivotWindow)
	assert.Equal(t, 95.0, s.TrendConfidence)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderYahoo, cfg.Provider.Kind)
	assert.Equal(t, collector.DefaultTimeout, cfg.Provider.Timeout)
	assert.Equal(t, []string{"SPX500"}, cfg.Watchlist)
	assert.Equal(t, "1y", cfg.Analysis.Period)
	assert.Equal(t, []int{20, 50, 200}, cfg.Analysis.MAWindows)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "99")
	t.Setenv("PROVIDER_KIND", "static")
	t.Setenv("WATCHLIST", " tsla, ,nvda ")
	t.Setenv("RUN_ON_START", "true")
	t.Setenv("PROVIDER_CACHE_TTL", "90s")
	t.Setenv("ANALYSIS_PERIOD", "6mo")

	cfg, err := Load(writeFile(t, "config.yaml", sample))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "99", cfg.Telegram.ChatID)
	assert.Equal(t, ProviderStatic, cfg.Provider.Kind)
	assert.Equal(t, []string{"TSLA", "NVDA"}, cfg.Watchlist)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, 90*time.Second, cfg.Provider.CacheTTL)
	assert.Equal(t, "6mo", cfg.Analysis.Period)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "telegram: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	t.Setenv("RUN_ON_START", "sometimes")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_ON_START")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		cfg.Telegram.BotToken = "t"
		cfg.Telegram.ChatID = "1"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"chat id", func(c *Config) { c.Telegram.ChatID = "" }, "chat_id"},
		{"unknown provider", func(c *Config) { c.Provider.Kind = "bloomberg" }, "provider.kind"},
		{"rest without url", func(c *Config) { c.Provider.Kind = ProviderREST }, "base_url"},
		{"negative ttl", func(c *Config) { c.Provider.CacheTTL = -time.Second }, "cache_ttl"},
		{"period", func(c *Config) { c.Analysis.Period = "10y" }, "analysis.period"},
		{"ma window", func(c *Config) { c.Analysis.MAWindows = []int{20, 0} }, "ma_windows"},
		{"discount vs terminal", func(c *Config) { c.Analysis.DCF.DiscountRate = 2 }, "must exceed terminal_growth"},
		{"confidence", func(c *Config) { c.Analysis.Simulation.Confidence = 1.5 }, "simulation.confidence"},
		{"trend confidence", func(c *Config) { c.Analysis.TrendConfidence = 100 }, "trend_confidence"},
		{"precision", func(c *Config) { c.Analysis.Levels.Precision = 12 }, "precision"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, ".env", "STOCKSCOPE_TEST_A=from-file\nSTOCKSCOPE_TEST_B=from-file\n")
	t.Setenv("STOCKSCOPE_TEST_B", "already-set")
	t.Cleanup(func() { os.Unsetenv("STOCKSCOPE_TEST_A") })

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("STOCKSCOPE_TEST_A"))
	assert.Equal(t, "already-set", os.Getenv("STOCKSCOPE_TEST_B"), "existing variables win")
}
