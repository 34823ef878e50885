package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/models"
	"pdf-qa-platform/services"

	"github.com/hibiken/asynq"
)

const (
	TaskIngestPDF = "pdf:ingest"
	QueueIngest   = "ingest"
)

// ErrTaskNotFound is returned by Status for unknown task IDs.
var ErrTaskNotFound = errors.New("task not found")

type IngestPayload struct {
	FilePath     string `json:"file_path"`
	StoredName   string `json:"stored_name"`
	OriginalName string `json:"original_name"`
	RequestID    string `json:"request_id,omitempty"`
}

// NewIngestTask builds an ingestion task. Failed ingestions are not
// retried; the task is archived with its error for status lookups.
func NewIngestTask(p IngestPayload, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return asynq.NewTask(
		TaskIngestPDF,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Queue(QueueIngest),
		asynq.Retention(24*time.Hour),
	), nil
}

// RedisConnOpt builds asynq connection options from REDIS_URL.
func RedisConnOpt(cfg *config.Config) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
		}
		return opt, nil
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// Queue enqueues ingestion tasks and reports their state.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	timeout   time.Duration
}

func NewQueue(opt asynq.RedisConnOpt, taskTimeout time.Duration) *Queue {
	return &Queue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		timeout:   taskTimeout,
	}
}

// EnqueueIngest schedules ingestion of an already stored upload and returns the task ID.
func (q *Queue) EnqueueIngest(ctx context.Context, p IngestPayload) (string, error) {
	task, err := NewIngestTask(p, q.timeout)
	if err != nil {
		return "", err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue ingest task: %w", err)
	}
	logger.Info("Ingest task enqueued", "task_id", info.ID, "file", p.StoredName, "request_id", p.RequestID)
	return info.ID, nil
}

func (q *Queue) Status(ctx context.Context, taskID string) (*models.TaskStatus, error) {
	info, err := q.inspector.GetTaskInfo(QueueIngest, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("inspect task: %w", err)
	}

	status := &models.TaskStatus{
		TaskID:    info.ID,
		State:     stateName(info.State),
		LastError: info.LastErr,
	}
	var p IngestPayload
	if err := json.Unmarshal(info.Payload, &p); err == nil {
		status.FileName = p.StoredName
	}
	return status, nil
}

func (q *Queue) Close() error {
	q.inspector.Close()
	return q.client.Close()
}

// stateName maps asynq states onto the upload vocabulary.
func stateName(s asynq.TaskState) string {
	switch s {
	case asynq.TaskStateActive:
		return "processing"
	case asynq.TaskStateCompleted:
		return "completed"
	case asynq.TaskStateArchived:
		return "failed"
	default:
		return "pending"
	}
}

// Ingester is the part of the ingestion service the worker needs.
type Ingester interface {
	Ingest(ctx context.Context, filePath, originalName string) (*services.IngestResult, error)
}

// TaskProcessor handles ingestion tasks
type TaskProcessor struct {
	ingester Ingester
}

func NewTaskProcessor(ingester Ingester) *TaskProcessor {
	return &TaskProcessor{ingester: ingester}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing PDF", "file", payload.StoredName, "source", payload.OriginalName, "request_id", payload.RequestID)

	res, err := p.ingester.Ingest(ctx, payload.FilePath, payload.OriginalName)
	if err != nil {
		// Failed uploads are not retried, so their stored copy is dropped.
		if rmErr := os.Remove(payload.FilePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("Failed to remove upload", "file", payload.FilePath, "error", rmErr)
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if w := t.ResultWriter(); w != nil {
		if b, err := json.Marshal(res); err == nil {
			w.Write(b)
		}
	}

	logger.Info("PDF processed successfully", "file", payload.StoredName, "chunks", res.Chunks)
	return nil
}

// NewServeMux registers the task handlers.
func NewServeMux(p *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIngestPDF, p.ProcessIngest)
	return mux
}
