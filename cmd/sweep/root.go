package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/config"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/observability"
	"github.com/opsdesk/task-service/internal/persistence"
	"github.com/opsdesk/task-service/internal/repository"
	"github.com/opsdesk/task-service/internal/scheduler"
	"github.com/opsdesk/task-service/internal/service"
)

var noDedup bool

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run task-service sweeps once and exit",
	Long: `sweep runs the deadline-reminder or inactivity sweep a single time against the
configured database, for use from an external scheduler or by hand.

Configuration is read from the same environment as the API server.`,
	SilenceUsage: true,
}

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Remind assignees and supervisors about tasks due soon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSweep(cmd.Context(), func(ctx context.Context, s *scheduler.Sweeper) (scheduler.SweepReport, error) {
			return s.RunDeadlineSweep(ctx)
		})
	},
}

var inactivityCmd = &cobra.Command{
	Use:   "inactivity",
	Short: "Notify administrators about inactive workers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSweep(cmd.Context(), func(ctx context.Context, s *scheduler.Sweeper) (scheduler.SweepReport, error) {
			return s.RunInactivitySweep(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noDedup, "no-dedup", false, "Notify every item even if it was already handled today")
	rootCmd.AddCommand(deadlinesCmd, inactivityCmd)
}

func runSweep(parent context.Context, run func(context.Context, *scheduler.Sweeper) (scheduler.SweepReport, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if noDedup {
		cfg.Scheduler.DedupEnabled = false
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	opts, err := scheduler.OptionsFromConfig(cfg.Scheduler, persistence.NewRedisMarker(redis.Client))
	if err != nil {
		return err
	}

	pool := pg.PoolHandle()
	workerRepo := repository.NewWorkerRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	directory := repository.NewDirectory(workerRepo, taskRepo)
	metrics := observability.NewMetrics()

	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repository.NewNotificationRepository(pool),
		WorkerRepo:       workerRepo,
		Directory:        directory,
		Dispatcher:       events.NewInMemoryDispatcher(logger),
		Metrics:          metrics,
	}, logger)

	sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
		Tasks:    taskRepo,
		Workers:  directory,
		Notifier: notifications,
		Clock:    service.SystemClock(),
		Metrics:  metrics,
	}, opts, logger)

	report, err := run(ctx, sweeper)
	if err != nil {
		return err
	}
	logger.Info("sweep report",
		zap.String("sweep", report.Name),
		zap.Int("scanned", report.Scanned),
		zap.Int("notified", report.Notified),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	if report.Failed > 0 {
		return fmt.Errorf("%s sweep: %d of %d items failed", report.Name, report.Failed, report.Scanned)
	}
	return nil
}
