package routes

import (
	"context"

	"pdf-qa-platform/internal/queue"
	"pdf-qa-platform/models"
	"pdf-qa-platform/services"
)

// Ingester indexes a stored upload synchronously.
type Ingester interface {
	Ingest(ctx context.Context, filePath, originalName string) (*services.IngestResult, error)
}

// TaskQueue hands uploads to the background worker. A nil TaskQueue
// disables async uploads.
type TaskQueue interface {
	EnqueueIngest(ctx context.Context, p queue.IngestPayload) (string, error)
	Status(ctx context.Context, taskID string) (*models.TaskStatus, error)
}

// Chat is the question-answering surface used by /ask and /history.
type Chat interface {
	Answer(ctx context.Context, sessionID, question string) (*services.AnswerResult, error)
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	Reset(ctx context.Context, sessionID string) error
}

// SessionHeader carries the conversation ID when the body does not.
const SessionHeader = "X-Session-ID"
