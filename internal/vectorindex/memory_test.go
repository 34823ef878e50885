package vectorindex

import (
	"context"
	"errors"
	"testing"

	"pdf-qa-platform/models"
)

func TestMemory_UpsertAndQuery(t *testing.T) {
	idx := NewMemory(3)
	ctx := context.Background()

	chunks := []models.Chunk{
		{ID: "c1", DocumentID: "doc1", Text: "hello", Embedding: []float32{1, 0, 0}},
		{ID: "c2", DocumentID: "doc1", Text: "world", Embedding: []float32{0, 1, 0}},
		{ID: "c3", DocumentID: "doc2", Text: "other", Embedding: []float32{0.9, 0.1, 0}},
	}
	if err := idx.Upsert(ctx, "ns", chunks); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	results, err := idx.Query(ctx, "ns", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "c1" || results[1].Chunk.ID != "c3" {
		t.Errorf("unexpected order: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	if results[0].Chunk.Embedding != nil {
		t.Error("query results should not carry embeddings")
	}
}

func TestMemory_NamespacesAreIsolated(t *testing.T) {
	idx := NewMemory(0)
	ctx := context.Background()

	idx.Upsert(ctx, "a", []models.Chunk{{ID: "c1", DocumentID: "d", Embedding: []float32{1, 0}}})

	results, err := idx.Query(ctx, "b", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty namespace, got %d results", len(results))
	}
}

func TestMemory_UpsertIsIdempotent(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()
	c := models.Chunk{ID: "c1", DocumentID: "d", Text: "v1", Embedding: []float32{1, 0}}

	idx.Upsert(ctx, "ns", []models.Chunk{c})
	c.Text = "v2"
	idx.Upsert(ctx, "ns", []models.Chunk{c})

	if n := idx.Len("ns"); n != 1 {
		t.Fatalf("expected 1 chunk after re-upsert, got %d", n)
	}
	results, _ := idx.Query(ctx, "ns", []float32{1, 0}, 1)
	if results[0].Chunk.Text != "v2" {
		t.Errorf("expected overwritten text, got %q", results[0].Chunk.Text)
	}
}

func TestMemory_DeleteDocument(t *testing.T) {
	idx := NewMemory(2)
	ctx := context.Background()
	idx.Upsert(ctx, "ns", []models.Chunk{
		{ID: "c1", DocumentID: "doc1", Embedding: []float32{1, 0}},
		{ID: "c2", DocumentID: "doc2", Embedding: []float32{0, 1}},
	})

	if err := idx.DeleteDocument(ctx, "ns", "doc1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if n := idx.Len("ns"); n != 1 {
		t.Fatalf("expected 1 chunk left, got %d", n)
	}
	if err := idx.DeleteDocument(ctx, "missing", "doc1"); err != nil {
		t.Fatalf("deleting from unknown namespace should be a no-op: %v", err)
	}
}

func TestMemory_RejectsWrongDimensions(t *testing.T) {
	idx := NewMemory(3)
	ctx := context.Background()

	err := idx.Upsert(ctx, "ns", []models.Chunk{{ID: "c1", Embedding: []float32{1, 0}}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch on upsert, got %v", err)
	}
	if _, err := idx.Query(ctx, "ns", []float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch on query, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
