package vectorindex

import (
	"context"

	"pdf-qa-platform/internal/telemetry"
	"pdf-qa-platform/models"
)

// Instrumented counts every backend call by operation and outcome.
type Instrumented struct {
	Index
	backend string
	metrics *telemetry.Metrics
}

// Instrument wraps idx; a nil metrics value records nothing.
func Instrument(idx Index, backend string, metrics *telemetry.Metrics) *Instrumented {
	return &Instrumented{Index: idx, backend: backend, metrics: metrics}
}

func (i *Instrumented) Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error {
	err := i.Index.Upsert(ctx, namespace, chunks)
	i.metrics.RecordVectorOperation("upsert", i.backend, err == nil)
	return err
}

func (i *Instrumented) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	matches, err := i.Index.Query(ctx, namespace, vector, topK)
	i.metrics.RecordVectorOperation("query", i.backend, err == nil)
	return matches, err
}

func (i *Instrumented) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	err := i.Index.DeleteDocument(ctx, namespace, documentID)
	i.metrics.RecordVectorOperation("delete", i.backend, err == nil)
	return err
}
