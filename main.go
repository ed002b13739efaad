package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lataonhehe/data-contract-hackathon/config"
	"github.com/lataonhehe/data-contract-hackathon/handler"
	"github.com/lataonhehe/data-contract-hackathon/middleware"
	"github.com/lataonhehe/data-contract-hackathon/pkg/logger"
	"github.com/lataonhehe/data-contract-hackathon/service"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded",
		"metadata_driver", cfg.Storage.MetadataDriver,
		"blob_driver", cfg.Storage.BlobDriver,
		"auth_enabled", cfg.AuthEnabled(),
	)

	ctx := context.Background()

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		slog.Error("failed to initialize blob store", "error", err)
		os.Exit(1)
	}

	metadata, closeMetadata, err := buildMetadataStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize metadata store", "error", err)
		os.Exit(1)
	}
	defer closeMetadata()

	// Verify infrastructure up front; a failure here is reported but not
	// fatal, the create path retries lazily.
	if err := blobs.Ensure(ctx); err != nil {
		slog.Warn("blob bucket not verified at startup", "error", err)
	}
	if err := metadata.Ensure(ctx); err != nil {
		slog.Warn("metadata store not verified at startup", "error", err)
	}

	generator := service.NewModelClient(&cfg.Model)
	contractSvc := service.NewContractService(generator, blobs, metadata, *cfg.Create.TolerateMetadataFailure)

	contractHandler := handler.NewContractHandler(contractSvc)
	authHandler := handler.NewAuthHandler(cfg)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(100, time.Minute))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "data-contract-service",
		})
	})

	api := router.Group("/api")
	if cfg.AuthEnabled() {
		api.POST("/auth/login", authHandler.Login)
		api = api.Group("/")
		api.Use(middleware.AuthMiddleware(&cfg.Auth))
		api.GET("/auth/me", authHandler.GetCurrentUser)
	}

	api.POST("/contracts", contractHandler.Create)
	api.GET("/contracts", contractHandler.List)
	api.GET("/contracts/:id", contractHandler.Get)
	api.PUT("/contracts/:id", contractHandler.Update)
	api.DELETE("/contracts/:id", contractHandler.Delete)
	api.POST("/generate", contractHandler.Generate)
	api.POST("/contracts/stream-generate", contractHandler.StreamGenerate)
	api.POST("/contracts/save", contractHandler.Save)

	// Demo endpoints: synthetic data only, nothing persisted
	api.GET("/contracts/:id/violations", contractHandler.Violations)
	api.GET("/contracts/:id/sample-data", contractHandler.SampleData)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second, // streamed generation can run long
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

func buildBlobStore(cfg *config.Config) (service.BlobStore, error) {
	switch cfg.Storage.BlobDriver {
	case "minio":
		return service.NewMinioBlobStore(&cfg.Minio)
	case "memory", "":
		return service.NewMemoryBlobStore(cfg.Minio.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown blob driver: %s", cfg.Storage.BlobDriver)
	}
}

func buildMetadataStore(ctx context.Context, cfg *config.Config) (service.MetadataStore, func(), error) {
	switch cfg.Storage.MetadataDriver {
	case "redis":
		return service.NewRedisMetadataStore(&cfg.Redis), func() {}, nil
	case "postgres":
		store, err := service.NewPostgresMetadataStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "memory", "":
		return service.NewMemoryMetadataStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata driver: %s", cfg.Storage.MetadataDriver)
	}
}

// corsMiddleware handles CORS headers for the SPA frontend
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
