package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/car-marketplace/internal/api/http"
	"github.com/spec-kit/car-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/car-marketplace/internal/auth"
	"github.com/spec-kit/car-marketplace/internal/config"
	"github.com/spec-kit/car-marketplace/internal/events"
	"github.com/spec-kit/car-marketplace/internal/observability"
	"github.com/spec-kit/car-marketplace/internal/persistence"
	"github.com/spec-kit/car-marketplace/internal/repository"
	"github.com/spec-kit/car-marketplace/internal/service"
	"github.com/spec-kit/car-marketplace/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
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

	redis, err := persistence.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	credentialRepo := repository.NewCredentialRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)

	sessions := service.NewSessionProjector(redis.Client, cfg.Session.TTL())
	tokenManager := auth.NewSessionTokenManager(cfg.Session.JWTSecret, cfg.Session.TTL())
	dispatcher := events.NewInMemoryDispatcher(func(event events.Event, err error) {
		logger.Error("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	})
	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventEmailChanged,
		events.EventVerificationResent,
		events.EventPasswordResetRequested,
		events.EventAccountRemoved,
	} {
		flow := string(eventType)
		dispatcher.Subscribe(eventType, func(context.Context, events.Event) error {
			metrics.RecordAccountFlow(flow)
			return nil
		})
	}

	accountService := service.NewAccountService(*cfg, service.AccountDependencies{
		CredentialRepo: credentialRepo,
		ProfileRepo:    profileRepo,
		Sessions:       sessions,
		Hasher:         auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Minter:         auth.NewTokenMinter(cfg.Auth.BcryptCost),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	mailer := service.NewSMTPMailer(cfg.Mail)
	notificationService := service.NewNotificationService(mailer, logger)
	worker.StartNotificationWorker(ctx, dispatcher, notificationService, logger, 2)

	sessionMiddleware := auth.NewSessionMiddleware(tokenManager, sessions, cfg.Session.CookieName)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	accountsHandler := handlers.NewAccountsHandler(accountService, tokenManager, cfg.Session.CookieName)
	passwordHandler := handlers.NewPasswordHandler(accountService)
	verificationHandler := handlers.NewVerificationHandler(accountService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            healthHandler,
		Accounts:          accountsHandler,
		Password:          passwordHandler,
		Verification:      verificationHandler,
		SessionMiddleware: sessionMiddleware,
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
