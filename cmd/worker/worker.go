package main

import (
	"context"
	"log"
	"os"
	"time"

	"pdf-qa-platform/internal/ai"
	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/internal/queue"
	"pdf-qa-platform/internal/telemetry"
	"pdf-qa-platform/internal/vectorindex"
	"pdf-qa-platform/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.RedisURL == "" {
		logger.Error("REDIS_URL is required for the ingestion worker")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracer("pdf-qa-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	ctx := context.Background()

	geminiClient, err := ai.NewGeminiClient(ctx, cfg, metrics)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	index, err := vectorindex.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open vector index", "backend", cfg.VectorStore, "error", err)
		os.Exit(1)
	}
	defer index.Close()
	instrumented := vectorindex.Instrument(index, cfg.VectorStore, metrics)

	ingest := services.NewIngestService(
		services.NewPDFLoader(),
		services.NewRecursiveSplitter(cfg.MaxChunkSize, cfg.ChunkOverlap),
		geminiClient,
		instrumented,
		services.IngestConfig{
			Namespace:   cfg.VectorNamespace,
			Concurrency: cfg.IngestConcurrency,
			Dimensions:  cfg.VectorDimensions,
			Timeout:     cfg.IngestTimeout,
		},
		metrics,
	)

	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		logger.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queue.QueueIngest: 1,
			},
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	logger.Info("Starting ingestion worker",
		"queue", queue.QueueIngest,
		"vector_store", cfg.VectorStore,
		"ingest_concurrency", cfg.IngestConcurrency,
	)

	// Run blocks until SIGTERM/SIGINT
	if err := server.Run(queue.NewServeMux(queue.NewTaskProcessor(ingest))); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}
