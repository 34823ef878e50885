// Package vectorindex holds the vector index backends: MongoDB Atlas
// Vector Search, PostgreSQL with pgvector, Qdrant and an in-memory index.
package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/models"
)

// ErrDimensionMismatch is returned for vectors whose length differs from
// the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is the full backend surface, including shutdown.
type Index interface {
	Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error)
	DeleteDocument(ctx context.Context, namespace, documentID string) error
	Close() error
}

// New opens the backend selected by cfg.VectorStore.
func New(ctx context.Context, cfg *config.Config) (Index, error) {
	switch cfg.VectorStore {
	case config.VectorStoreMongo:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		return NewMongo(client, cfg.DBName, cfg.MongoCollection, cfg.VectorIndexName, cfg.VectorDimensions), nil
	case config.VectorStorePgvector:
		return NewPgvector(ctx, cfg.PostgresURL, cfg.VectorIndexName, cfg.VectorDimensions)
	case config.VectorStoreQdrant:
		q := NewQdrant(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.VectorIndexName, cfg.VectorDimensions)
		if err := q.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return q, nil
	case config.VectorStoreMemory:
		return NewMemory(cfg.VectorDimensions), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore)
	}
}

func checkDimensions(vec []float32, dimensions int) error {
	if dimensions > 0 && len(vec) != dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dimensions)
	}
	return nil
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
