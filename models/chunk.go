package models

// PageDocument is the extracted text of a single PDF page
type PageDocument struct {
	Page   int    `json:"page"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Chunk represents a text chunk from an ingested PDF together with the
// metadata stored next to its vector in the index.
type Chunk struct {
	ID         string         `json:"id" bson:"_id"`
	DocumentID string         `json:"document_id" bson:"document_id"`
	Index      int            `json:"index" bson:"chunk_index"`
	Text       string         `json:"text" bson:"text"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Embedding  []float32      `json:"-" bson:"-"`
}

// Match is a chunk returned by a similarity query
type Match struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Chunk metadata keys
const (
	MetaSource     = "source"
	MetaFileName   = "file_name"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
)
