package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"timetodo_backend/database"
	"timetodo_backend/internal/auth"
	"timetodo_backend/internal/cache"
	"timetodo_backend/internal/config"
	"timetodo_backend/internal/handlers"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/messaging"
	"timetodo_backend/internal/middleware"
	"timetodo_backend/internal/routes"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/storage"
	"timetodo_backend/internal/validator"
	"timetodo_backend/internal/workers"
	"timetodo_backend/pkg/apperrors"
)

const Version = "1.0.0"

// App - собранное приложение: HTTP-сервер, фоновые воркеры и их зависимости
type App struct {
	cfg       *config.Config
	db        *gorm.DB
	server    *http.Server
	services  *services.ServiceContainer
	publisher messaging.Publisher
	closers   []func() error
}

// Run - точка входа cmd/web: конфиг, логгер, сборка и запуск до отмены ctx
func Run(ctx context.Context) error {
	config.LoadConfig()
	cfg := config.AppConfig
	InitLogger(cfg)

	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// InitLogger настраивает slog по секции log
func InitLogger(cfg *config.Config) {
	logger.Setup(cfg.Server.Env, logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.Info("Logger initialized", "env", cfg.Server.Env)
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	apperrors.SetDebug(cfg.IsDevelopment())

	logger.Info("Connecting to database...")
	gormDB, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(gormDB); err != nil {
			return nil, err
		}
	}

	a := &App{cfg: cfg, db: gormDB}

	storageInstance, err := storage.NewStorage(ctx, StorageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", storageInstance.Provider())

	limitsCache := a.initCache(ctx)
	a.publisher = a.initPublisher()

	a.services = services.NewServiceContainer(services.Dependencies{
		Storage:         storageInstance,
		LimitsCache:     limitsCache,
		LimitsTTL:       cfg.LimitsCacheTTL(),
		Publisher:       a.publisher,
		EventRoutingKey: cfg.RabbitMQ.RoutingKey,
		SignedURLTTL:    cfg.SignedURLTTL(),
	})

	ginRouter := SetupRouter(cfg, gormDB, a.services, storageInstance)

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run блокируется до отмены ctx или падения сервера/воркера
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server startup error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(shutdownCtx)
	})

	if a.cfg.Workers.AddOnSweepEnabled {
		interval := time.Duration(a.cfg.Workers.AddOnSweepInterval) * time.Minute
		w := workers.NewAddOnWorker(a.db, a.services.AddOnService, interval)
		g.Go(func() error { return w.Run(gctx) })
	}
	if a.cfg.Workers.DailySnapshots {
		w := workers.NewSnapshotWorker(a.db, a.services.MetricsService)
		g.Go(func() error { return w.Run(gctx) })
	}

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("failed to close resource", "error", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Application stopped")
}

// initCache: без Redis лимиты считаются на каждый запрос
func (a *App) initCache(ctx context.Context) cache.LimitsCache {
	if !a.cfg.Redis.Enabled {
		logger.Info("Limits cache disabled")
		return cache.NewNoopCache()
	}
	redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redis unavailable, limits cache disabled", "error", err)
		return cache.NewNoopCache()
	}
	a.closers = append(a.closers, redisCache.Close)
	logger.Info("Limits cache connected", "addr", a.cfg.Redis.Addr)
	return redisCache
}

// initPublisher: без RabbitMQ события только пишутся в базу
func (a *App) initPublisher() messaging.Publisher {
	if !a.cfg.RabbitMQ.Enabled {
		return messaging.NoopPublisher{}
	}
	publisher, err := messaging.NewRabbitPublisher(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Exchange, a.cfg.RabbitMQ.Retries)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, event fan-out disabled", "error", err)
		return messaging.NoopPublisher{}
	}
	a.closers = append(a.closers, publisher.Close)
	logger.Info("Event publisher connected", "exchange", a.cfg.RabbitMQ.Exchange)
	return publisher
}

func StorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		Region:     cfg.Storage.Region,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		PublicRead: cfg.Storage.PublicRead,
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB, container *services.ServiceContainer, storageInstance storage.Storage) *gin.Engine {
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.TTL)*time.Minute)
	eventsLimiter := middleware.NewKeyedRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimit.EventsRPS,
		Burst: cfg.RateLimit.EventsBurst,
	})

	guards := &middleware.Guards{
		Auth:                middleware.AuthMiddleware(tokens),
		Superuser:           middleware.RequireSuperuser(),
		EventsRateLimit:     eventsLimiter.Middleware(),
		SubscriptionHeaders: middleware.SubscriptionHeaders(container.EntitlementService, container.UsageService),
	}

	appHandlers := initializeHandlers(gormDB, container)
	ginRouter := initializeGinRouter(cfg, gormDB)

	opts := routes.Options{}
	if storageInstance.Provider() == "local" {
		opts.UploadsDir = cfg.Storage.BasePath
		opts.UploadsURL = cfg.Storage.BaseURL
	}
	routes.RegisterRoutes(ginRouter, appHandlers, guards, opts)
	return ginRouter
}

func initializeHandlers(gormDB *gorm.DB, container *services.ServiceContainer) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		HealthHandler: handlers.NewHealthHandler(gormDB, Version),
		SubscriptionHandler: handlers.NewSubscriptionHandler(
			baseHandler,
			container.EntitlementService,
			container.UsageService,
			container.AddOnService,
			container.AdvisorService,
		),
		FileHandler:      handlers.NewFileHandler(baseHandler, container.FileService),
		EventHandler:     handlers.NewEventHandler(baseHandler, container.EventService),
		AnalyticsHandler: handlers.NewAnalyticsHandler(baseHandler, container.MetricsService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}
