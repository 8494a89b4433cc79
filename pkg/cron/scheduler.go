// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/SmokyRM/snt-ulybka-sub005/pkg/metrics"
)

// DebtSource recomputes the outstanding accrued-minus-paid total.
type DebtSource interface {
	TotalDebt(ctx context.Context) (decimal.Decimal, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	debts  DebtSource
	spec   string
	logger *slog.Logger
}

// NewScheduler creates a new job scheduler. spec is a standard 5-field cron
// expression for the debt snapshot job.
func NewScheduler(debts DebtSource, spec string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	return &Scheduler{cron: c, debts: debts, spec: spec, logger: logger}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.snapshotDebts)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("debt_snapshot", s.spec),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the debt snapshot (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.snapshotDebts()
}

// snapshotDebts refreshes the debt gauge from current accruals and payments.
func (s *Scheduler) snapshotDebts() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	total, err := s.debts.TotalDebt(ctx)
	if err != nil {
		s.logger.Error("failed to compute total debt", slog.Any("error", err))
		return
	}

	f, _ := total.Float64()
	metrics.DebtTotal.Set(f)
	s.logger.Info("debt snapshot recorded", slog.String("total", total.StringFixed(2)))
}
