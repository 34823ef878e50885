package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pdf-qa-platform/models"
)

// Qdrant is a minimal REST client to Qdrant. It assumes cosine distance and
// keeps namespaces as a payload field filtered on every call.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	dimensions int
	client     *http.Client
}

func NewQdrant(url, apiKey, collection string, dimensions int) *Qdrant {
	return &Qdrant{
		url:        url,
		apiKey:     apiKey,
		collection: collection,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// EnsureCollection creates the collection when it does not exist yet.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	status, err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil, nil)
	if err == nil {
		return nil
	}
	if status != http.StatusNotFound {
		return err
	}
	if q.dimensions <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", q.dimensions)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimensions,
			"distance": "Cosine",
		},
	}
	_, err = q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil)
	return err
}

func (q *Qdrant) Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		if err := checkDimensions(c.Embedding, q.dimensions); err != nil {
			return err
		}
		points[i] = map[string]any{
			"id":     c.ID,
			"vector": c.Embedding,
			"payload": map[string]any{
				"namespace":   namespace,
				"document_id": c.DocumentID,
				"chunk_index": c.Index,
				"text":        c.Text,
				"metadata":    c.Metadata,
			},
		}
	}
	_, err := q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil)
	return err
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (q *Qdrant) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	if err := checkDimensions(vector, q.dimensions); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter":       mustMatch(map[string]string{"namespace": namespace}),
	}

	var resp qdrantSearchResponse
	if _, err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := models.Chunk{
			ID:         fmt.Sprint(r.ID),
			DocumentID: metaString(r.Payload, "document_id"),
			Text:       metaString(r.Payload, "text"),
		}
		if v, ok := r.Payload["chunk_index"].(float64); ok {
			chunk.Index = int(v)
		}
		if meta, ok := r.Payload["metadata"].(map[string]any); ok {
			chunk.Metadata = meta
		}
		matches = append(matches, models.Match{Chunk: chunk, Score: r.Score})
	}
	return matches, nil
}

func (q *Qdrant) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	body := map[string]any{
		"filter": mustMatch(map[string]string{"namespace": namespace, "document_id": documentID}),
	}
	_, err := q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), body, nil)
	return err
}

func (q *Qdrant) Close() error { return nil }

func (q *Qdrant) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.url, q.collection, suffix)
}

func mustMatch(fields map[string]string) map[string]any {
	must := make([]map[string]any, 0, len(fields))
	for key, value := range fields {
		must = append(must, map[string]any{"key": key, "match": map[string]any{"value": value}})
	}
	return map[string]any{"must": must}
}

func (q *Qdrant) do(ctx context.Context, method, url string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
