package app

import (
	"fmt"
	"time"

	"appdist_backend/database"
	"appdist_backend/internal/admission"
	"appdist_backend/internal/apkmeta"
	"appdist_backend/internal/config"
	"appdist_backend/internal/handlers"
	"appdist_backend/internal/logger"
	"appdist_backend/internal/middleware"
	"appdist_backend/internal/repositories"
	"appdist_backend/internal/routes"
	"appdist_backend/internal/services"
	"appdist_backend/internal/storage"
	"appdist_backend/internal/validator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Admission windows, carried over from the previous deployment: mutating
// operations get the tight bucket, reads the loose one.
const (
	uploadLimiterMax    = 50
	uploadLimiterWindow = 15 * time.Minute
	publicLimiterMax    = 200
	publicLimiterWindow = 1 * time.Minute
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.Migrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter wires storage, services, handlers and middleware into a gin
// engine. Kept separate from Run so tests can build an engine against
// their own config and database.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	store, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}

	releaseRepo := repositories.NewReleaseRepository()
	extractor := apkmeta.NewExtractor()

	ingestion := services.NewIngestionService(releaseRepo, store, extractor, cfg.Upload.MaxFileBytes)
	retrieval := services.NewRetrievalService(releaseRepo, store)

	uploadLimiter := admission.NewLimiter(uploadLimiterMax, uploadLimiterWindow)
	publicLimiter := admission.NewLimiter(publicLimiterMax, publicLimiterWindow)
	keyGate := admission.NewKeyGate(cfg.Upload.RequireUploadKey, cfg.Upload.UploadKey)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())
	ginRouter.Use(middleware.RequestIDMiddleware())
	ginRouter.Use(middleware.LoggingMiddleware())
	ginRouter.Use(middleware.SecurityHeadersMiddleware())
	ginRouter.Use(middleware.DBMiddleware(gormDB))

	corsConfig := cors.DefaultConfig()
	if cfg.CORS.Origin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.CORS.Origin}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "x-upload-key")
	ginRouter.Use(cors.New(corsConfig))

	// Stored bytes are served directly when the blobs live on local disk;
	// remote backends hand out their own URLs.
	if local, ok := store.(*storage.LocalStorage); ok {
		ginRouter.Static("/files", local.BasePath())
	}

	base := handlers.NewBaseHandler(validator.New())
	releaseHandler := handlers.NewReleaseHandler(base, ingestion, retrieval)
	routes.RegisterRoutes(ginRouter, releaseHandler, uploadLimiter, publicLimiter, keyGate)

	return ginRouter
}
