package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agency-ops-api/internal/config"
	"github.com/noah-isme/agency-ops-api/internal/database"
	"github.com/noah-isme/agency-ops-api/internal/handler"
	"github.com/noah-isme/agency-ops-api/internal/middleware"
	"github.com/noah-isme/agency-ops-api/internal/repository"
	"github.com/noah-isme/agency-ops-api/internal/router"
	"github.com/noah-isme/agency-ops-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("app", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured; listing cache and redis events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable; continuing without nats events")
		} else {
			defer natsConn.Drain()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	listingCache := service.NewAssignmentListingCache(redisClient, cfg.ListingCacheTTL, logger)
	events := service.NewEventPublisher(redisClient, natsConn, cfg.EventChannel, logger)

	activityService := service.NewActivityService(activityRepo, logger)
	userService := service.NewUserService(userRepo, validate, activityService, listingCache, events, logger)
	catalogService := service.NewCatalogService(catalogRepo, validate, activityService, listingCache, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentServiceDeps{
		Assignments: assignmentRepo,
		Completions: completionRepo,
		Catalog:     catalogRepo,
		Users:       userRepo,
		Resolver:    service.NewAudienceResolver(userRepo),
		Validator:   validate,
		Activity:    activityService,
		Cache:       listingCache,
		Events:      events,
	}, logger)
	completionService := service.NewCompletionService(assignmentRepo, completionRepo, userRepo, listingCache, events, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		RequestTimeout: cfg.RequestTimeout,
	})
	router.Register(app, cfg, router.Dependencies{
		UserHandler:    handler.NewUserHandler(userService, logger),
		CatalogHandler: handler.NewCatalogHandler(catalogService, logger),
		AdminAssignmentHandler: handler.NewAdminAssignmentHandler(
			assignmentService,
			middleware.RateLimit("assign", cfg.AssignRateLimit, cfg.AssignRateWindow),
			logger,
		),
		MyAssignmentHandler:  handler.NewMyAssignmentHandler(assignmentService, completionService, logger),
		AdminActivityHandler: handler.NewAdminActivityHandler(activityService, logger),
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
