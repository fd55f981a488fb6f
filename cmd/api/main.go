package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/campusevents/event-api/api/swagger"
	"github.com/campusevents/event-api/internal/handler"
	internalmiddleware "github.com/campusevents/event-api/internal/middleware"
	"github.com/campusevents/event-api/internal/repository"
	"github.com/campusevents/event-api/internal/routes"
	"github.com/campusevents/event-api/internal/service"
	"github.com/campusevents/event-api/pkg/broker"
	"github.com/campusevents/event-api/pkg/cache"
	"github.com/campusevents/event-api/pkg/config"
	"github.com/campusevents/event-api/pkg/database"
	"github.com/campusevents/event-api/pkg/jobs"
	"github.com/campusevents/event-api/pkg/logger"
	corsmiddleware "github.com/campusevents/event-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusevents/event-api/pkg/middleware/requestid"
)

// @title Campus Events API
// @version 1.0.0
// @description Event request approvals, the published event catalog and attendee registrations.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("files", applied))
	}

	metricsSvc := service.NewMetricsService()

	var (
		cacheStore service.CacheRepository
		cacheRepo  *repository.CacheRepository
	)
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			cacheStore = cacheRepo
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)

	var publisher *broker.Publisher
	notifier := service.NewNotificationService(nil, metricsSvc, logr)
	if cfg.Notifications.RabbitMQURL != "" {
		publisher, err = broker.NewPublisher(cfg.Notifications.RabbitMQURL, cfg.Notifications.Exchange, logr)
		if err != nil {
			logr.Warn("rabbitmq unavailable, status changes will only be logged", zap.Error(err))
		} else {
			notifier = service.NewNotificationService(publisher, metricsSvc, logr)
		}
	}
	notificationQueue := jobs.NewQueue("notifications", notifier.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: 256,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifier.UseQueue(notificationQueue)
	notificationQueue.Start(ctx)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	requestRepo := repository.NewEventRequestRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminCode:         cfg.AdminCode,
	})
	userSvc := service.NewUserService(userRepo, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, eventRepo, metricsSvc, logr)
	catalogSvc := service.NewCatalogService(eventRepo, registrationSvc, requestRepo, cacheSvc, userRepo, validate, logr)
	workflowSvc := service.NewWorkflowService(requestRepo, eventRepo, userRepo, validate, logr,
		service.WithStrictTerminalStates(cfg.Workflow.StrictTerminalStates),
		service.WithNotifier(notifier),
		service.WithCatalogCache(cacheSvc),
		service.WithWorkflowMetrics(metricsSvc),
	)
	historySvc := service.NewHistoryService(requestRepo, logr)

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	routes.Register(r, routes.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Events:        handler.NewEventHandler(catalogSvc),
		Requests:      handler.NewEventRequestHandler(workflowSvc),
		History:       handler.NewHistoryHandler(historySvc),
		Registrations: handler.NewRegistrationHandler(registrationSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc, checks),
	}, routes.Options{
		APIPrefix:  cfg.APIPrefix,
		Tokens:     authSvc,
		Audit:      userRepo,
		Logger:     logr,
		EnableDocs: cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	if err := notificationQueue.Stop(shutdownCtx); err != nil {
		logr.Warn("notification queue did not drain", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logr.Warn("failed to close rabbitmq publisher", zap.Error(err))
		}
	}
}
