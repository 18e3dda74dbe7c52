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
	"github.com/hibiken/asynq"

	"pdf-rag-service/internal/ai"
	"pdf-rag-service/internal/config"
	"pdf-rag-service/internal/ingest"
	"pdf-rag-service/internal/logger"
	"pdf-rag-service/internal/rasterize"
	"pdf-rag-service/internal/retrieval"
	"pdf-rag-service/internal/storage"
	"pdf-rag-service/internal/telemetry"
	"pdf-rag-service/internal/vectorindex"
	"pdf-rag-service/middleware"
	"pdf-rag-service/routes"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("pdf-rag-service")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	ctx := context.Background()

	// Model backends, chosen once from config and injected everywhere
	chatModel, embedder, err := ai.NewProviders(cfg)
	if err != nil {
		log.Fatal("Failed to initialize model backends:", err)
	}

	// Vector store
	osClient, err := vectorindex.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create OpenSearch client:", err)
	}
	index := vectorindex.NewIndex(osClient, embedder, cfg.IndexName)

	// Object storage and rasterization
	store, err := storage.NewObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create object store:", err)
	}
	raster := rasterize.NewFitz(cfg.RasterDPI)

	ingester := ingest.NewService(index, chatModel, store, raster)
	retriever := retrieval.NewService(index, embedder, chatModel)

	// Queue client for bulk/manifest background tasks
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(router, ingester, index, retriever)
	routes.SetupChatRoutes(router, retriever)
	routes.SetupBulkRoutes(router, queueClient)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "index", cfg.IndexName, "local", cfg.Local)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
