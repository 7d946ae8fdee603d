package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/task-service/internal/api/http"
	"github.com/opsdesk/task-service/internal/api/http/handlers"
	"github.com/opsdesk/task-service/internal/auth"
	"github.com/opsdesk/task-service/internal/config"
	"github.com/opsdesk/task-service/internal/events"
	"github.com/opsdesk/task-service/internal/observability"
	"github.com/opsdesk/task-service/internal/persistence"
	"github.com/opsdesk/task-service/internal/repository"
	"github.com/opsdesk/task-service/internal/scheduler"
	"github.com/opsdesk/task-service/internal/service"
	"github.com/opsdesk/task-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	location, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}
	policy, err := service.QualificationPolicyByName(cfg.Assignment.QualificationPolicy)
	if err != nil {
		logger.Fatal("invalid qualification policy", zap.Error(err))
	}

	pool := pg.PoolHandle()
	departmentRepo := repository.NewDepartmentRepository(pool)
	workerRepo := repository.NewWorkerRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	commentRepo := repository.NewTaskCommentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	directory := repository.NewDirectory(workerRepo, taskRepo)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	clock := service.SystemClock()

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		WorkerRepo:       workerRepo,
		Directory:        directory,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
	}, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TaskRepo:   taskRepo,
		WorkerRepo: workerRepo,
		Directory:  directory,
		Dispatcher: dispatcher,
		Policy:     policy,
		Clock:      clock,
	}, logger)
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:       taskRepo,
		CommentRepo:    commentRepo,
		DepartmentRepo: departmentRepo,
		WorkerRepo:     workerRepo,
		Assignment:     assignmentService,
		Dispatcher:     dispatcher,
		Clock:          clock,
		Location:       location,
	}, logger)
	workerService := service.NewWorkerService(service.WorkerDependencies{
		WorkerRepo:       workerRepo,
		DepartmentRepo:   departmentRepo,
		NotificationRepo: notificationRepo,
		Dispatcher:       dispatcher,
		Clock:            clock,
		BcryptCost:       cfg.Auth.BcryptCost,
	}, logger)
	departmentService := service.NewDepartmentService(departmentRepo)
	authService := service.NewAuthService(service.AuthDependencies{
		WorkerRepo:   workerRepo,
		TokenManager: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		Clock:        clock,
	}, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), workerRepo)

	var sweeps *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		opts, err := scheduler.OptionsFromConfig(cfg.Scheduler, persistence.NewRedisMarker(redis.Client))
		if err != nil {
			logger.Fatal("invalid sweep options", zap.Error(err))
		}
		sweeper := scheduler.NewSweeper(scheduler.SweeperDependencies{
			Tasks:    taskRepo,
			Workers:  directory,
			Notifier: notificationService,
			Clock:    clock,
			Metrics:  metrics,
		}, opts, logger)
		sweeps, err = scheduler.NewScheduler(cfg.Scheduler, sweeper, logger)
		if err != nil {
			logger.Fatal("failed to schedule sweeps", zap.Error(err))
		}
	}
	background := worker.NewBackground(notificationService, sweeps, logger)
	background.Start()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Workers:        handlers.NewWorkersHandler(authService, workerService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Tasks:          handlers.NewTasksHandler(taskService, assignmentService, location),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	background.Stop(stopCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
