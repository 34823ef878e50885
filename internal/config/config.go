package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector index backends
const (
	VectorStoreMongo    = "mongo"
	VectorStorePgvector = "pgvector"
	VectorStoreQdrant   = "qdrant"
	VectorStoreMemory   = "memory"
)

// History store backends
const (
	HistoryStoreMemory = "memory"
	HistoryStoreRedis  = "redis"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Gemini
	GeminiAPIKey          string
	GeminiEmbeddingAPIKey string
	GeminiModel           string
	GoogleEmbeddingsModel string
	GeminiRPM             int

	// Vector index
	VectorStore      string
	VectorIndexName  string
	VectorNamespace  string
	VectorDimensions int
	MongoURI         string
	DBName           string
	MongoCollection  string
	PostgresURL      string
	QdrantURL        string
	QdrantAPIKey     string

	// Conversation history
	HistoryStore    string
	HistoryWindow   int
	HistoryTTLHours int

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Uploads and ingestion
	UploadDir            string
	MaxFileSize          int64
	MaxChunkSize         int
	ChunkOverlap         int
	IngestConcurrency    int
	AsyncIngestEnabled   bool
	InboxDir             string
	UploadRetentionHours int

	// Retrieval
	TopK            int
	MaxContextChars int

	// Deadlines
	UpstreamTimeout time.Duration
	IngestTimeout   time.Duration

	RateLimitReqs   int
	RateLimitWindow int

	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiEmbeddingAPIKey: getEnv("GEMINI_EMBEDDING_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiRPM:             getEnvInt("GEMINI_RPM", 60),

		VectorStore:      strings.ToLower(getEnv("VECTOR_STORE", VectorStoreMongo)),
		VectorIndexName:  getEnv("VECTOR_INDEX_NAME", "pdf_chunks_vector"),
		VectorNamespace:  getEnv("VECTOR_NAMESPACE", "default"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017/pdf_qa"),
		DBName:           getEnv("DB_NAME", "pdf_qa"),
		MongoCollection:  getEnv("MONGO_COLLECTION", "pdf_chunks"),
		PostgresURL:      getEnv("POSTGRES_URL", ""),
		QdrantURL:        getEnv("QDRANT_URL", ""),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),

		HistoryStore:    strings.ToLower(getEnv("HISTORY_STORE", HistoryStoreMemory)),
		HistoryWindow:   getEnvInt("HISTORY_WINDOW", 20),
		HistoryTTLHours: getEnvInt("HISTORY_TTL_HOURS", 72),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		UploadDir:            getEnv("UPLOAD_DIR", "/tmp/uploads"),
		MaxFileSize:          getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		MaxChunkSize:         getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:         getEnvInt("CHUNK_OVERLAP", 200),
		IngestConcurrency:    getEnvInt("INGEST_CONCURRENCY", 5),
		AsyncIngestEnabled:   getEnvBool("ASYNC_INGEST_ENABLED", false),
		InboxDir:             getEnv("INBOX_DIR", ""),
		UploadRetentionHours: getEnvInt("UPLOAD_RETENTION_HOURS", 0),

		TopK:            getEnvInt("TOP_K", 10),
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", 30000),

		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT", 60)) * time.Second,
		IngestTimeout:   time.Duration(getEnvInt("INGEST_TIMEOUT", 600)) * time.Second,

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.GeminiEmbeddingAPIKey == "" {
		cfg.GeminiEmbeddingAPIKey = cfg.GeminiAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and backend-specific settings
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	switch c.VectorStore {
	case VectorStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when VECTOR_STORE=mongo")
		}
	case VectorStorePgvector:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when VECTOR_STORE=pgvector")
		}
	case VectorStoreQdrant:
		if c.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required when VECTOR_STORE=qdrant")
		}
	case VectorStoreMemory:
	default:
		return fmt.Errorf("unknown VECTOR_STORE: %s", c.VectorStore)
	}

	switch c.HistoryStore {
	case HistoryStoreMemory:
	case HistoryStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when HISTORY_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown HISTORY_STORE: %s", c.HistoryStore)
	}

	if c.AsyncIngestEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when ASYNC_INGEST_ENABLED=true")
	}

	if c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", c.ChunkOverlap, c.MaxChunkSize)
	}
	if c.IngestConcurrency <= 0 {
		return fmt.Errorf("INGEST_CONCURRENCY must be positive")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive")
	}

	return nil
}

// HistoryTTL is how long an idle Redis-backed session survives
func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.HistoryTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
