package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/livechat-service/internal/api/http"
	"github.com/spec-kit/livechat-service/internal/api/http/handlers"
	"github.com/spec-kit/livechat-service/internal/auth"
	"github.com/spec-kit/livechat-service/internal/commands"
	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/events"
	"github.com/spec-kit/livechat-service/internal/observability"
	"github.com/spec-kit/livechat-service/internal/persistence"
	"github.com/spec-kit/livechat-service/internal/repository"
	"github.com/spec-kit/livechat-service/internal/repository/memory"
	"github.com/spec-kit/livechat-service/internal/service"
	"github.com/spec-kit/livechat-service/internal/worker"
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	var store repository.Store
	healthDeps := map[string]handlers.Pinger{}
	if redis.Enabled() {
		healthDeps["redis"] = redis
	}
	if pool != nil {
		store = repository.NewPostgresStore(pool)
		healthDeps["postgres"] = pg
	} else {
		store = memory.NewStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher()
	var notifier commands.Notifier
	if redis.Enabled() {
		notifier = commands.NewRedisNotifier(redis.Client)
	}
	bus := commands.NewLocalBus(notifier, logger)
	departmentCache := persistence.NewDepartmentCache(cfg.Cache, redis, logger)

	departmentService := service.NewDepartmentService(service.DepartmentDependencies{
		Store:      store,
		Cache:      departmentCache,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	agentService := service.NewAgentService(cfg.Auth, store.Agents(), departmentService, logger)
	authService := service.NewAuthService(cfg.Auth, store.Agents())
	notificationService := service.NewNotificationService(dispatcher, bus, logger, cfg.Notify)

	commands.RegisterLivechatMethods(bus, departmentService, agentService)
	worker.StartNotificationWorker(ctx, notificationService, departmentCache)

	if err := agentService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	go worker.NewReconcileWorker(departmentService, cfg.Reconcile.Interval(), logger).Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Auth:           handlers.NewAuthHandler(authService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Agents:         handlers.NewAgentsHandler(agentService, departmentService),
		Methods:        handlers.NewMethodsHandler(bus),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Agents()),
		Gatherer:       registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
