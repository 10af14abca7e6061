package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"StockScope/internal/analyzer"
	"StockScope/internal/collector"
	"StockScope/internal/config"
	"StockScope/internal/notifier"
	"StockScope/internal/scheduler"
)

func main() {
	log.Info("StockScope starting...")

	if err := config.LoadEnv(); err != nil {
		log.WithError(err).Fatal("load .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}
	setupLogging(cfg.Log.Level, cfg.Log.Format)

	settings, err := cfg.Analysis.Settings()
	if err != nil {
		log.WithError(err).Fatal("analysis settings")
	}

	// Init provider
	provider := newProvider(cfg)
	log.WithFields(log.Fields{
		"provider":  provider.Name(),
		"cache_ttl": cfg.Provider.CacheTTL,
	}).Info("data source ready")

	an := analyzer.New(provider, settings)

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
		notifier.WithProxy(cfg.Provider.Proxy))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, an, tn, cfg.Watchlist)
	if err := sched.RegisterDigest(cfg.Schedule.DigestCron); err != nil {
		log.WithError(err).Fatal("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("Telegram polling started")

	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, sending digest now")
		go sched.RunDigestNow()
	}

	log.WithField("watchlist", cfg.Watchlist).Info("StockScope is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
}

func setupLogging(level, format string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func newProvider(cfg *config.Config) collector.Provider {
	opts := []collector.HTTPOption{
		collector.WithProxy(cfg.Provider.Proxy),
		collector.WithTimeout(cfg.Provider.Timeout),
		collector.WithRateLimit(cfg.Provider.RateLimit),
	}

	var p collector.Provider
	switch cfg.Provider.Kind {
	case config.ProviderREST:
		p = collector.NewRESTProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, opts...)
	case config.ProviderStatic:
		// Offline demo data: five years of synthetic bars per watchlist symbol.
		sp := collector.NewStaticProvider()
		end := time.Now().UTC().Truncate(24 * time.Hour)
		for i, sym := range cfg.Watchlist {
			sp.AddHistory(collector.SyntheticSeries(sym, 50+float64(i)*25, collector.Period5Y.TradingDays(), end))
		}
		return sp
	default:
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, collector.WithBaseURL(cfg.Provider.BaseURL))
		}
		p = collector.NewYahooProvider(opts...)
	}
	return collector.NewCachedProvider(p, cfg.Provider.CacheTTL)
}
