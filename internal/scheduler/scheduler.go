package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"StockScope/internal/analyzer"
	"StockScope/internal/notifier"
)

// Sender delivers formatted reports.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the cron digest and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Analyzer  *analyzer.Analyzer
	Notifier  Sender
	Watchlist []string
	Ctx       context.Context

	// CommandTimeout bounds the work done for one command or digest.
	CommandTimeout time.Duration
	// Retries is the number of resend attempts for scheduled messages.
	Retries int

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, a *analyzer.Analyzer, n Sender, watchlist []string) *Scheduler {
	return &Scheduler{
		Cron:           cron.New(cron.WithSeconds()),
		Analyzer:       a,
		Notifier:       n,
		Watchlist:      watchlist,
		Ctx:            ctx,
		CommandTimeout: 2 * time.Minute,
		Retries:        3,
		now:            time.Now,
	}
}

// RegisterDigest schedules the watchlist digest.
func (s *Scheduler) RegisterDigest(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	log.WithField("cron", spec).Info("digest task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RunDigestNow executes the digest immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	log.WithField("symbols", len(s.Watchlist)).Info("running watchlist digest")
	if len(s.Watchlist) == 0 {
		log.Warn("watchlist is empty, digest skipped")
		return
	}
	ctx, cancel := context.WithTimeout(s.Ctx, s.CommandTimeout)
	defer cancel()
	s.trySend(ctx, s.digest(ctx))
}

// digest evaluates every watchlist symbol. A failing symbol is reported in
// its line and never drops the others.
func (s *Scheduler) digest(ctx context.Context) string {
	entries := make([]notifier.DigestEntry, 0, len(s.Watchlist))
	for _, sym := range s.Watchlist {
		rep, err := s.Analyzer.Technical(ctx, sym)
		if err != nil {
			log.WithField("symbol", sym).WithError(err).Error("digest analysis failed")
		}
		entries = append(entries, notifier.DigestEntry{Symbol: sym, Report: rep, Err: err})
	}
	return notifier.FormatDigest(s.now(), entries)
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if err := s.Notifier.SendWithRetry(ctx, text, s.Retries); err != nil {
		log.WithError(err).Error("send notification")
	}
}
