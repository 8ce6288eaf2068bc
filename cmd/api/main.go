package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/election-service/internal/api/http"
	"github.com/spec-kit/election-service/internal/api/http/handlers"
	"github.com/spec-kit/election-service/internal/auth"
	"github.com/spec-kit/election-service/internal/config"
	"github.com/spec-kit/election-service/internal/events"
	"github.com/spec-kit/election-service/internal/notify"
	"github.com/spec-kit/election-service/internal/observability"
	"github.com/spec-kit/election-service/internal/persistence"
	"github.com/spec-kit/election-service/internal/registry"
	"github.com/spec-kit/election-service/internal/repository"
	"github.com/spec-kit/election-service/internal/service"
	"github.com/spec-kit/election-service/internal/worker"
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

	pool := pg.PoolHandle()
	electionRepo := repository.NewElectionRepository(pool)
	credentialRepo := repository.NewCredentialRepository(pool)
	portfolioRepo := repository.NewPortfolioRepository(pool)
	ballotRepo := repository.NewBallotRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	sessions := repository.NewSessionStore(redis.Client)

	auditService := service.NewAuditService(auditRepo, logger)
	sender := notify.NewLogSender(cfg.Notification.EmailFrom, logger)
	roster := registry.NewStaticRegistry(registry.ParseRoster(cfg.Registry.FallbackRoster))
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	verificationService := service.NewVerificationService(*cfg, service.VerificationDependencies{
		CredentialRepo: credentialRepo,
		ElectionRepo:   electionRepo,
		Sessions:       sessions,
		Sender:         sender,
		Audit:          auditService,
		Logger:         logger,
	})
	ballotService := service.NewBallotService(service.BallotDependencies{
		CredentialRepo: credentialRepo,
		ElectionRepo:   electionRepo,
		PortfolioRepo:  portfolioRepo,
		BallotRepo:     ballotRepo,
		Sessions:       sessions,
		Audit:          auditService,
		Logger:         logger,
	})
	lifecycleService := service.NewLifecycleService(*cfg, service.LifecycleDependencies{
		ElectionRepo:     electionRepo,
		CredentialRepo:   credentialRepo,
		BallotRepo:       ballotRepo,
		Registry:         roster,
		FallbackRegistry: roster,
		Sender:           sender,
		Dispatcher:       dispatcher,
		Audit:            auditService,
		Logger:           logger,
	})
	notificationService := service.NewNotificationService(dispatcher, sender, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	if cfg.Scheduler.Enabled {
		lifecycleWorker := worker.NewLifecycleWorker(lifecycleService, cfg.Scheduler.SweepInterval(), logger)
		lifecycleWorker.Start(ctx)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AdminTokenTTLMinutes)
	adminMiddleware := auth.NewAdminMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Verification:    handlers.NewVerificationHandler(verificationService),
		Ballots:         handlers.NewBallotHandler(ballotService),
		Admin:           handlers.NewAdminHandler(lifecycleService),
		AdminMiddleware: adminMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
