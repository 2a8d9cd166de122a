// Package scheduler runs periodic ledger maintenance.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dundie/backend/internal/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler rewrites cached balances that drifted from the ledger.
type Reconciler interface {
	ReconcileBalances(ctx context.Context) (services.ReconcileReport, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	schedule   string
	timeout    time.Duration
	logger     *zap.Logger
}

// cronLogger adapts zap to cron's logging interface.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}

func New(reconciler Reconciler, schedule string, logger *zap.Logger) *Scheduler {
	logger = logger.Named("scheduler")
	cl := cronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		schedule:   schedule,
		timeout:    10 * time.Minute,
		logger:     logger,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.reconcile); err != nil {
		return fmt.Errorf("schedule balance reconciliation %q: %w", s.schedule, err)
	}
	s.logger.Info("scheduled balance reconciliation", zap.String("schedule", s.schedule))

	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.reconciler.ReconcileBalances(ctx)
	if err != nil {
		s.logger.Error("balance reconciliation failed", zap.Error(err))
		return
	}
	s.logger.Info("balance reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("corrected", len(report.Corrected)),
		zap.Duration("duration", time.Since(start)),
	)
}
