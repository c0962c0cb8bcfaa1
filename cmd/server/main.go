package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/application/dashboard"
	appsync "github.com/capliquify/backend/internal/application/sync"
	"github.com/capliquify/backend/internal/infrastructure/cache"
	"github.com/capliquify/backend/internal/infrastructure/config"
	"github.com/capliquify/backend/internal/infrastructure/connectors"
	"github.com/capliquify/backend/internal/infrastructure/event"
	"github.com/capliquify/backend/internal/infrastructure/logger"
	"github.com/capliquify/backend/internal/infrastructure/persistence"
	"github.com/capliquify/backend/internal/interfaces/http/handler"
	"github.com/capliquify/backend/internal/interfaces/http/middleware"
	"github.com/capliquify/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Capliquify Sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	credentialStore := persistence.NewGormCredentialStore(db.DB)
	syncRunRepo := persistence.NewGormSyncRunRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)

	// Snapshot cache: Redis when configured, in-memory fallback otherwise
	cacheFactory := cache.NewSnapshotCacheFactory(
		cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		cache.CacheConfig{
			TTL:       cfg.Cache.TTL,
			Retention: cfg.Cache.Retention,
		},
		cache.WithFactoryLogger(log),
		cache.WithInMemoryFallback(cfg.Cache.InMemoryFallback),
	)
	snapshotCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create snapshot cache", zap.Error(err))
	}

	// SSE gateway receives debounced events
	streamHandler := handler.NewStreamHandler(
		handler.WithStreamLogger(log),
		handler.WithStreamHeartbeat(cfg.Stream.Heartbeat),
		handler.WithStreamMaxClients(cfg.Stream.MaxClients),
	)
	if err := streamHandler.Start(); err != nil {
		log.Fatal("Failed to start stream handler", zap.Error(err))
	}
	defer streamHandler.Stop()

	publisher := event.NewDebouncedPublisher(streamHandler,
		event.WithDebounceWindow(cfg.Stream.DebounceWindow),
		event.WithPublisherLogger(log),
	)
	defer publisher.Stop()

	// Vendor connectors share one retry/timeout policy
	clientConfig := connectors.ClientConfig{
		Timeout:           cfg.Connector.Timeout,
		MaxAttempts:       cfg.Connector.MaxAttempts,
		BackoffBase:       cfg.Connector.BackoffBase,
		BackoffMultiplier: cfg.Connector.BackoffMultiplier,
	}

	xeroAdapter, err := connectors.NewXeroAdapter(connectors.DefaultXeroConfig(), clientConfig, log)
	if err != nil {
		log.Fatal("Failed to create Xero connector", zap.Error(err))
	}
	shopifyAdapter, err := connectors.NewShopifyAdapter(connectors.DefaultShopifyConfig(), clientConfig, log)
	if err != nil {
		log.Fatal("Failed to create Shopify connector", zap.Error(err))
	}
	amazonConfig := connectors.DefaultAmazonConfig()
	amazonConfig.OrderWindowDays = cfg.Connector.OrderWindowDays
	amazonAdapter, err := connectors.NewAmazonAdapter(amazonConfig, clientConfig, log)
	if err != nil {
		log.Fatal("Failed to create Amazon connector", zap.Error(err))
	}
	unleashedAdapter, err := connectors.NewUnleashedAdapter(connectors.DefaultUnleashedConfig(), clientConfig, log)
	if err != nil {
		log.Fatal("Failed to create Unleashed connector", zap.Error(err))
	}

	registry := connectors.NewRegistry()
	registry.Register(xeroAdapter)
	registry.Register(shopifyAdapter)
	registry.Register(amazonAdapter)
	registry.Register(unleashedAdapter)

	// Sync orchestrator and scheduler
	orchestrator := appsync.NewOrchestrator(
		registry,
		tenantRepo,
		credentialStore,
		syncRunRepo,
		alertRepo,
		snapshotCache,
		publisher,
		appsync.WithConfig(appsync.Config{
			SnapshotTTL: cfg.Cache.TTL,
			HistoryKeep: cfg.Sync.HistoryKeep,
		}),
		appsync.WithLogger(log),
	)

	if cfg.Sync.SchedulerEnabled {
		scheduler := appsync.NewScheduler(orchestrator,
			appsync.WithInterval(cfg.Sync.Interval),
			appsync.WithSchedulerLogger(log),
		)
		if err := scheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
			defer cancel()
			if err := scheduler.Stop(ctx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started", zap.Duration("interval", cfg.Sync.Interval))
	}

	// Dashboard facade serves cached snapshots only
	facade := dashboard.NewFacade(tenantRepo, credentialStore, snapshotCache,
		dashboard.WithLogger(log),
	)

	dashboardHandler := handler.NewDashboardHandler(facade,
		handler.WithDashboardLogger(log),
	)
	syncHandler := handler.NewSyncHandler(orchestrator,
		handler.WithSyncLogger(log),
	)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithOrigins(cfg.HTTP.CORSAllowOrigins))

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(middleware.TenantMiddlewareWithConfig(middleware.TenantConfig{
			SkipPaths: []string{"/api/v1/system/ping", "/api/v1/system/info"},
			Logger:    log,
		})),
	)
	r.Register(dashboardHandler).
		Register(syncHandler).
		Register(streamHandler).
		Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
