package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-qa-platform/internal/ai"
	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/history"
	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/internal/queue"
	"pdf-qa-platform/internal/telemetry"
	"pdf-qa-platform/internal/vectorindex"
	"pdf-qa-platform/internal/watcher"
	"pdf-qa-platform/middleware"
	"pdf-qa-platform/routes"
	"pdf-qa-platform/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// historyStore is what the server needs from a history backend
type historyStore interface {
	services.HistoryStore
	Close() error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("pdf-qa-platform", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs history, rate limiting and the task queue when configured
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	index, err := vectorindex.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open vector index", "backend", cfg.VectorStore, "error", err)
		os.Exit(1)
	}
	defer index.Close()
	instrumented := vectorindex.Instrument(index, cfg.VectorStore, metrics)

	var turns historyStore = history.NewMemory()
	if cfg.HistoryStore == config.HistoryStoreRedis {
		turns = history.NewRedis(rdb, cfg.HistoryTTL())
	}

	geminiClient, err := ai.NewGeminiClient(ctx, cfg, metrics)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	store, err := services.NewUploadStore(cfg.UploadDir)
	if err != nil {
		logger.Error("Failed to prepare upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

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

	chat := services.NewChatService(geminiClient, geminiClient, instrumented, turns, services.ChatConfig{
		Namespace:       cfg.VectorNamespace,
		TopK:            cfg.TopK,
		HistoryWindow:   cfg.HistoryWindow,
		MaxContextChars: cfg.MaxContextChars,
		Timeout:         cfg.UpstreamTimeout,
	})

	var tasks routes.TaskQueue
	if cfg.AsyncIngestEnabled {
		opt, err := queue.RedisConnOpt(cfg)
		if err != nil {
			logger.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		q := queue.NewQueue(opt, cfg.IngestTimeout)
		defer q.Close()
		tasks = q
	}

	if cfg.InboxDir != "" {
		inbox, err := watcher.NewInbox(cfg.InboxDir, 2*time.Second, func(ctx context.Context, path string) error {
			res, err := ingest.ImportFile(ctx, store, path, cfg.MaxFileSize)
			if err != nil {
				if rnErr := os.Rename(path, path+".failed"); rnErr != nil {
					logger.Warn("Failed to mark inbox file", "file", path, "error", rnErr)
				}
				return err
			}
			logger.Info("Inbox file indexed", "file", path, "document_id", res.DocumentID, "chunks", res.Chunks)
			return os.Remove(path)
		})
		if err != nil {
			logger.Error("Failed to watch inbox", "dir", cfg.InboxDir, "error", err)
			os.Exit(1)
		}
		defer inbox.Close()
		go func() {
			if err := inbox.Run(ctx); err != nil {
				logger.Error("Inbox watcher stopped", "error", err)
			}
		}()
	}

	if cfg.UploadRetentionHours > 0 {
		sweeper := services.NewRetentionSweeper(cfg.UploadDir, time.Duration(cfg.UploadRetentionHours)*time.Hour)
		if err := sweeper.Start(time.Hour); err != nil {
			logger.Error("Failed to start retention sweeper", "error", err)
			os.Exit(1)
		}
		defer sweeper.Stop()
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware("pdf-qa-platform"))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))
	}

	// Setup routes
	routes.SetupHealthRoutes(router)
	routes.SetupUploadRoutes(router, cfg, store, ingest, tasks)
	routes.SetupAskRoutes(router, chat)
	if err := routes.SetupUIRoutes(router); err != nil {
		logger.Error("Failed to mount chat UI", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting",
			"port", cfg.Port,
			"vector_store", cfg.VectorStore,
			"history_store", cfg.HistoryStore,
			"async_ingest", cfg.AsyncIngestEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := turns.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		logger.Warn("Failed to close history store", "error", err)
	}

	logger.Info("Server exited")
}
