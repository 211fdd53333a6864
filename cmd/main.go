package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/cache"
	"github.com/tesseract-hub/docsearch-service/internal/config"
	"github.com/tesseract-hub/docsearch-service/internal/events"
	"github.com/tesseract-hub/docsearch-service/internal/handlers"
	"github.com/tesseract-hub/docsearch-service/internal/highlight"
	"github.com/tesseract-hub/docsearch-service/internal/metrics"
	"github.com/tesseract-hub/docsearch-service/internal/middleware"
	"github.com/tesseract-hub/docsearch-service/internal/provisioner"
	"github.com/tesseract-hub/docsearch-service/internal/service"
	"github.com/tesseract-hub/docsearch-service/internal/session"
	"github.com/tesseract-hub/docsearch-service/internal/storage"
	"github.com/tesseract-hub/docsearch-service/internal/tenants"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("Starting DocSearch Service")

	// Ensure the tenant trees exist before serving
	if err := os.MkdirAll(cfg.Tenants.ConfigRoot, 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create tenant config root")
	}
	if err := os.MkdirAll(cfg.Tenants.UploadsRoot, 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create tenant uploads root")
	}

	// Initialize cache (Redis, in-process fallback)
	appCache := setupCache(cfg, logger)
	defer appCache.Close()

	// Initialize NATS events publisher
	publisher, err := events.NewPublisher(cfg.Events.NATSURL, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to NATS, events won't be published")
		publisher, _ = events.NewPublisher("", logger)
	}
	defer publisher.Close()

	// Initialize tenant directory, storage and services
	directory := tenants.NewDirectory(cfg.Tenants.ConfigRoot, cfg.Tenants.UploadsRoot, nil, logger)
	store := storage.NewLocalStore(logger)
	documentService := service.NewDocumentService(store, publisher, logger, &service.ServiceOptions{
		Cache:      appCache,
		SuggestTTL: time.Duration(cfg.Cache.SuggestTTL) * time.Second,
	})
	gate := session.NewGate(appCache, time.Duration(cfg.Cache.SessionTTL)*time.Second, logger)
	highlighter := highlight.NewClient(time.Duration(cfg.Highlight.TimeoutSeconds)*time.Second, logger)
	tenantProvisioner := provisioner.New(directory, publisher, logger)

	// Setup HTTP server
	router := setupRouter(cfg, directory, documentService, store, gate, highlighter, tenantProvisioner, appCache, publisher, logger)
	server := &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server
	go func() {
		logger.WithField("addr", cfg.GetAddr()).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// setupLogger configures the application logger
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Logging.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: cfg.Logging.TimeFormat,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: cfg.Logging.TimeFormat,
		})
	}

	logger.SetOutput(os.Stdout)
	return logger
}

// setupCache connects to Redis when enabled, falling back to the
// in-process cache so login and suggest keep working without it.
func setupCache(cfg *config.Config, logger *logrus.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		logger.Info("Cache disabled by configuration, using in-process cache")
		return cache.NewMemoryCache()
	}

	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		Host:     cfg.Cache.Host,
		Port:     cfg.Cache.Port,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		PoolSize: cfg.Cache.PoolSize,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, using in-process cache")
		return cache.NewMemoryCache()
	}
	return redisCache
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	directory *tenants.Directory,
	documentService *service.DocumentService,
	store *storage.LocalStore,
	gate *session.Gate,
	highlighter *highlight.Client,
	tenantProvisioner *provisioner.Provisioner,
	appCache cache.Cache,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.Security.EnableCORS {
		corsConfig := cors.DefaultConfig()
		if len(cfg.Security.AllowedOrigins) > 0 {
			corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
		} else {
			corsConfig.AllowAllOrigins = true
		}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Provision-Token"}
		corsConfig.ExposeHeaders = []string{highlight.PagesFoundHeader, "Content-Disposition"}
		corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
		router.Use(cors.New(corsConfig))
	}

	// Metrics endpoint (Prometheus scraping)
	router.GET("/metrics", metrics.Handler())

	// Health check routes (no auth required)
	healthHandler := handlers.NewHealthHandler(appCache, publisher, cfg.Tenants.UploadsRoot)
	health := router.Group("/health")
	{
		health.GET("", healthHandler.Health)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/live", healthHandler.Live)
	}

	// Tenant provisioning (operator token required)
	provisionHandler := handlers.NewProvisionHandler(tenantProvisioner, cfg, logger)
	router.POST("/provision", provisionHandler.Provision)

	// Per-tenant action endpoint
	actionHandler := handlers.NewActionHandler(documentService, store, gate, highlighter, cfg, logger)
	api := router.Group("/api/:tenant")
	api.Use(middleware.TenantMiddleware(directory, logger))
	{
		api.GET("", actionHandler.Dispatch)
		api.POST("", actionHandler.Dispatch)
		api.GET("/branding", actionHandler.Branding)
		api.GET("/export/csv", actionHandler.ExportCSV)
	}

	return router
}
