package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/internal/telemetry"
	"pdf-qa-platform/models"

	"golang.org/x/sync/errgroup"
)

// IngestConfig tunes the ingestion pipeline
type IngestConfig struct {
	Namespace   string
	Concurrency int
	Dimensions  int // zero skips the check
	Timeout     time.Duration
}

type IngestResult struct {
	DocumentID string        `json:"document_id"`
	Source     string        `json:"source"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Duration   time.Duration `json:"duration"`
}

// IngestService loads a PDF, splits it, embeds every chunk and writes the
// vectors into the index. A document is either fully indexed or not at all.
type IngestService struct {
	loader   DocumentLoader
	splitter Splitter
	embedder Embedder
	index    VectorIndex
	cfg      IngestConfig
	metrics  *telemetry.Metrics
}

func NewIngestService(loader DocumentLoader, splitter Splitter, embedder Embedder, index VectorIndex, cfg IngestConfig, metrics *telemetry.Metrics) *IngestService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &IngestService{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// Ingest indexes the stored file at filePath. The stored file name is the
// document ID; originalName is kept as chunk source metadata.
func (s *IngestService) Ingest(ctx context.Context, filePath, originalName string) (*IngestResult, error) {
	start := time.Now()
	documentID := filepath.Base(filePath)
	if originalName == "" {
		originalName = documentID
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	result, err := s.ingest(ctx, filePath, documentID, originalName)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordPDFProcessing(elapsed.Seconds(), 0, "failed")
		logger.Error("PDF ingestion failed", "document_id", documentID, "source", originalName, "error", err)
		return nil, &models.IngestionError{File: originalName, Err: err}
	}

	result.Duration = elapsed
	s.metrics.RecordPDFProcessing(elapsed.Seconds(), result.Chunks, "completed")
	logger.Info("PDF ingested",
		"document_id", documentID,
		"source", originalName,
		"pages", result.Pages,
		"chunks", result.Chunks,
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

func (s *IngestService) ingest(ctx context.Context, filePath, documentID, originalName string) (*IngestResult, error) {
	pages, err := s.loader.Load(ctx, filePath, originalName)
	if err != nil {
		return nil, upstream("pdf-loader", "load", err)
	}
	if len(pages) == 0 {
		return nil, upstream("pdf-loader", "load", errors.New("no extractable text"))
	}

	chunks, err := s.splitter.Split(documentID, pages)
	if err != nil {
		return nil, upstream("splitter", "split", err)
	}
	if len(chunks) == 0 {
		return nil, upstream("splitter", "split", errors.New("no chunks produced"))
	}

	if err := s.embedAndUpsert(ctx, chunks); err != nil {
		s.cleanup(ctx, documentID)
		return nil, err
	}

	return &IngestResult{
		DocumentID: documentID,
		Source:     originalName,
		Pages:      len(pages),
		Chunks:     len(chunks),
	}, nil
}

func (s *IngestService) embedAndUpsert(ctx context.Context, chunks []models.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			vec, err := s.embedder.EmbedDocument(gctx, chunk.Text)
			if err != nil {
				return upstream("embeddings", "embed", err)
			}
			if s.cfg.Dimensions > 0 && len(vec) != s.cfg.Dimensions {
				return upstream("embeddings", "embed",
					fmt.Errorf("embedding has %d dimensions, index expects %d", len(vec), s.cfg.Dimensions))
			}
			chunk.Embedding = vec

			if err := s.index.Upsert(gctx, s.cfg.Namespace, []models.Chunk{chunk}); err != nil {
				return upstream("vector-index", "upsert", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// cleanup removes whatever part of the document reached the index. It runs
// on a fresh deadline because ctx may already be cancelled.
func (s *IngestService) cleanup(ctx context.Context, documentID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.index.DeleteDocument(cctx, s.cfg.Namespace, documentID); err != nil {
		logger.Warn("Failed to remove partially ingested document", "document_id", documentID, "error", err)
	}
}

// upstream wraps err unless it already names the failing collaborator.
func upstream(service, op string, err error) error {
	var ue *models.UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return models.Upstream(service, op, err)
}
