package services

import (
	"fmt"

	"pdf-qa-platform/models"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("6f1c5a6e-3a0b-4f57-9a43-2f5a8d1c7e10")

// RecursiveSplitter splits each page with separators "\n\n", "\n", " ", ""
// and stamps every chunk with its page number.
type RecursiveSplitter struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	return &RecursiveSplitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

func (s *RecursiveSplitter) Split(documentID string, pages []models.PageDocument) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, page := range pages {
		parts, err := s.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", page.Page, err)
		}
		for _, part := range parts {
			if part == "" {
				continue
			}
			idx := len(chunks)
			chunks = append(chunks, models.Chunk{
				ID:         ChunkID(documentID, idx),
				DocumentID: documentID,
				Index:      idx,
				Text:       part,
				Metadata: map[string]any{
					models.MetaSource:     page.Source,
					models.MetaFileName:   documentID,
					models.MetaPage:       page.Page,
					models.MetaChunkIndex: idx,
				},
			})
		}
	}
	return chunks, nil
}

// ChunkID is stable for a given document and position, so re-ingesting a
// stored file overwrites its chunks.
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", documentID, index))).String()
}
