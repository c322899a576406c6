package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/events"
	"catalog-import-service/internal/handlers"
	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/metrics"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// @title Catalog Import API
// @version 1.0.0
// @description Bulk import of categories with nested products, variants and images

// @host localhost:8083
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var publicPaths = []string{"/health", "/ready", "/metrics", "/swagger"}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	handlers.SetDB(db)

	redisClient := connectRedis(cfg, logger)

	// A nil *events.Publisher must not reach the handler as a non-nil interface
	var publisher handlers.EventPublisher
	eventsPublisher, err := events.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize events publisher (events won't be published)")
	} else {
		publisher = eventsPublisher
		logger.Info("✓ NATS events publisher initialized")
	}

	categoryRepo := repository.NewCategoryRepository(db, redisClient)
	pipeline := importer.New(logger, cfg.ProductConcurrency)
	gateways := func(tenantID, userID string) importer.Gateway {
		return repository.NewCatalogGateway(categoryRepo, tenantID, userID)
	}

	importHandler := handlers.NewImportHandler(pipeline, gateways, publisher, categoryRepo, cfg.MaxCategories, logger)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSOrigins...))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck)
	router.GET("/metrics", metrics.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	readPerm, importPerm := authenticate(api, cfg, logger)
	api.Use(middleware.TenantMiddleware())

	categories := api.Group("/categories")
	{
		categories.GET("/import/template", readPerm, importHandler.GetImportTemplate)
		categories.POST("/import/validate", importPerm, importHandler.ValidateImport)
		categories.POST("/import/execute", importPerm, importHandler.ExecuteImport)
		categories.POST("/import/file", importPerm, importHandler.ImportFile)

		categories.GET("/:id", readPerm, categoryHandler.GetCategory)
		categories.GET("/:id/products", readPerm, categoryHandler.GetCategoryProducts)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Catalog import service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down catalog-import-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if eventsPublisher != nil {
		eventsPublisher.Close()
		logger.Info("✓ Events publisher closed")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Catalog import service stopped")
}

// connectRedis returns nil when redis is unreachable; caching is then disabled
func connectRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL (continuing with localhost)")
		redisOpts = &redis.Options{Addr: "localhost:6379"}
	}
	if password := secrets.GetRedisPassword(); password != "" {
		redisOpts.Password = password
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis (caching will be disabled)")
		_ = client.Close()
		return nil
	}
	logger.Info("✓ Redis connected successfully")
	return client
}

// authenticate installs the caller authentication for the API group and
// returns the read and import permission checks for the selected mode
func authenticate(api *gin.RouterGroup, cfg *config.Config, logger *logrus.Logger) (gin.HandlerFunc, gin.HandlerFunc) {
	if cfg.AuthMode == config.AuthModeJWT {
		api.Use(middleware.AuthMiddleware(cfg.JWTSecret, publicPaths...))
		logger.Info("✓ Local JWT authentication enabled")
		return middleware.RequirePermission(middleware.PermissionCatalogRead),
			middleware.RequirePermission(middleware.PermissionCatalogImport)
	}

	// Istio validates JWT and injects x-jwt-claim-* headers
	api.Use(gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
		RequireAuth:        true,
		AllowLegacyHeaders: false,
		SkipPaths:          publicPaths,
	}))
	rbacMiddleware := rbac.NewMiddlewareWithURL(cfg.StaffServiceURL, nil)
	logger.Info("✓ RBAC middleware initialized")
	return rbacMiddleware.RequirePermission(rbac.PermissionCategoriesRead),
		rbacMiddleware.RequirePermission(rbac.PermissionCategoriesCreate)
}
