package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/case-service/internal/api/http"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/mail"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/persistence"
	"github.com/spec-kit/case-service/internal/ratelimit"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/storage"
	"github.com/spec-kit/case-service/internal/validation"
	"github.com/spec-kit/case-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.String("driver", cfg.Mail.Driver), zap.Error(err))
	}
	if closer, ok := mailer.(io.Closer); ok {
		defer closer.Close()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	userRepo := repository.NewUserRepository(pg.Pool)
	caseRepo := repository.NewCaseRepository(pg.Pool)
	reportRepo := repository.NewReportRepository(pg.Pool)
	visitingRepo := repository.NewVisitingRepository(pg.Pool)

	authService, err := service.NewAuthService(*cfg, service.AuthDependencies{
		Users:      userRepo,
		Mailer:     mailer,
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	userService := service.NewUserService(userRepo, auth.NewHasher(cfg.Auth.BcryptCost), store, logger)
	caseService := service.NewCaseService(caseRepo, reportRepo, dispatcher, logger)
	reportService := service.NewReportService(reportRepo, caseRepo, store, logger)
	visitingService := service.NewVisitingService(visitingRepo, caseRepo)

	notifications := service.NewNotificationService(dispatcher, mailer, logger, cfg.Mail.SendTimeout)
	worker.StartNotificationWorker(notifications)
	worker.StartStorageJanitor(dispatcher, reportService)

	validator := validation.New()
	app := httptransport.NewApp(cfg.App.Name, cfg.App.BodyLimitBytes, logger, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
		),
		Users:          handlers.NewUsersHandler(authService, userService, validator),
		Cases:          handlers.NewCasesHandler(caseService, validator),
		Reports:        handlers.NewReportsHandler(reportService, validator),
		Visiting:       handlers.NewVisitingHandler(visitingService, validator),
		Files:          handlers.NewFilesHandler(reportService, userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Limiter:        ratelimit.NewLimiter(redis.Client, cfg.Auth.RateLimitAttempts, cfg.Auth.RateLimitWindow),
		Metrics:        metrics,
		Logger:         logger,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
