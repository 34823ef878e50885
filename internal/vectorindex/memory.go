package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"pdf-qa-platform/models"
)

// Memory is an in-process cosine similarity index. Data lives only as
// long as the process.
type Memory struct {
	dimensions int

	mu     sync.RWMutex
	spaces map[string]*space
}

type space struct {
	chunks map[string]models.Chunk // chunkID -> chunk
	docs   map[string][]string     // documentID -> chunkIDs
}

func NewMemory(dimensions int) *Memory {
	return &Memory{
		dimensions: dimensions,
		spaces:     make(map[string]*space),
	}
}

func (m *Memory) Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error {
	for _, c := range chunks {
		if err := checkDimensions(c.Embedding, m.dimensions); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sp, ok := m.spaces[namespace]
	if !ok {
		sp = &space{chunks: make(map[string]models.Chunk), docs: make(map[string][]string)}
		m.spaces[namespace] = sp
	}
	for _, c := range chunks {
		if _, exists := sp.chunks[c.ID]; !exists {
			sp.docs[c.DocumentID] = append(sp.docs[c.DocumentID], c.ID)
		}
		sp.chunks[c.ID] = c
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	if err := checkDimensions(vector, m.dimensions); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sp, ok := m.spaces[namespace]
	if !ok {
		return []models.Match{}, nil
	}

	results := make([]models.Match, 0, len(sp.chunks))
	for _, c := range sp.chunks {
		out := c
		out.Embedding = nil
		results = append(results, models.Match{Chunk: out, Score: cosineSimilarity(vector, c.Embedding)})
	}

	// Sort by score descending, ties by ID for stable output
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Chunk.ID < results[j].Chunk.ID
		}
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *Memory) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp, ok := m.spaces[namespace]
	if !ok {
		return nil
	}
	for _, id := range sp.docs[documentID] {
		delete(sp.chunks, id)
	}
	delete(sp.docs, documentID)
	return nil
}

// Len reports how many chunks a namespace holds.
func (m *Memory) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sp, ok := m.spaces[namespace]; ok {
		return len(sp.chunks)
	}
	return 0
}

func (m *Memory) Close() error { return nil }

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
