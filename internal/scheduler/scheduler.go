package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/config"
)

// Scheduler triggers both sweeps on their own cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler registers the deadline and inactivity jobs. Nothing runs until Start.
func NewScheduler(cfg config.SchedulerConfig, sweeper *Sweeper, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cronLog := cronLogger{sugar: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, sweeper: sweeper, logger: logger, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(cfg.DeadlineCron, s.job(SweepDeadline, sweeper.RunDeadlineSweep)); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule deadline sweep %q: %w", cfg.DeadlineCron, err)
	}
	if _, err := c.AddFunc(cfg.InactivityCron, s.job(SweepInactivity, sweeper.RunInactivitySweep)); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule inactivity sweep %q: %w", cfg.InactivityCron, err)
	}
	return s, nil
}

// Start launches the cron goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("sweep scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop halts scheduling and waits for running sweeps until ctx expires, after which
// in-flight sweeps are cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("sweep still running at shutdown, cancelling")
	}
	s.cancel()
}

func (s *Scheduler) job(name string, run func(context.Context) (SweepReport, error)) func() {
	return func() {
		if _, err := run(s.ctx); err != nil {
			s.logger.Error("sweep aborted", zap.String("sweep", name), zap.Error(err))
		}
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// OptionsFromConfig builds sweep options. marker is used only when deduplication is enabled.
func OptionsFromConfig(cfg config.SchedulerConfig, marker Marker) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Location:           loc,
		ReminderWindowDays: cfg.ReminderWindowDays,
		InactivityDays:     cfg.InactivityDays,
	}
	if cfg.DedupEnabled {
		opts.Marker = marker
	}
	return opts, nil
}
