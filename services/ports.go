package services

import (
	"context"

	"pdf-qa-platform/models"
)

// Embedder turns text into vectors. Documents and queries use different
// task types on the embedding API.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator produces a reply for a conversation whose last turn is the user's.
type TextGenerator interface {
	Generate(ctx context.Context, systemInstruction string, contents []models.Turn) (string, error)
}

// VectorIndex stores chunk vectors inside namespaces and answers
// similarity queries over them.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error)
	DeleteDocument(ctx context.Context, namespace, documentID string) error
}

// HistoryStore keeps append-only conversation turns per session.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]models.Turn, error)
	Append(ctx context.Context, sessionID string, turns ...models.Turn) error
	Reset(ctx context.Context, sessionID string) error
}

type DocumentLoader interface {
	Load(ctx context.Context, path, source string) ([]models.PageDocument, error)
}

type Splitter interface {
	Split(documentID string, pages []models.PageDocument) ([]models.Chunk, error)
}
