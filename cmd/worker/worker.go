package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"pdf-rag-service/internal/ai"
	"pdf-rag-service/internal/config"
	"pdf-rag-service/internal/ingest"
	"pdf-rag-service/internal/logger"
	"pdf-rag-service/internal/queue"
	"pdf-rag-service/internal/rasterize"
	"pdf-rag-service/internal/storage"
	"pdf-rag-service/internal/vectorindex"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	ctx := context.Background()

	chatModel, embedder, err := ai.NewProviders(cfg)
	if err != nil {
		log.Fatal("Failed to initialize model backends:", err)
	}

	osClient, err := vectorindex.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create OpenSearch client:", err)
	}
	index := vectorindex.NewIndex(osClient, embedder, cfg.IndexName)

	store, err := storage.NewObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create object store:", err)
	}

	ingester := ingest.NewService(index, chatModel, store, rasterize.NewFitz(cfg.RasterDPI))

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"ingest":  6,
				"default": 3,
				"low":     1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingester, index)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestFile, processor.ProcessIngest)
	mux.HandleFunc(queue.TaskDeleteFile, processor.ProcessDelete)

	logger.Info("Starting worker", "concurrency", cfg.WorkerConcurrency, "redis", cfg.RedisAddr)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
