package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pdf-qa-platform/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Pgvector stores chunks in a PostgreSQL table with a vector column and
// ranks by cosine distance.
type Pgvector struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
}

func NewPgvector(ctx context.Context, connString, table string, dimensions int) (*Pgvector, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Pgvector{pool: pool, table: pgx.Identifier{table}.Sanitize(), dimensions: dimensions}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pgvector) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL
		)`, p.table, p.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (namespace, document_id)`,
			pgx.Identifier{"idx_" + trimQuotes(p.table) + "_ns_doc"}.Sanitize(), p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector migrate: %w", err)
		}
	}
	return nil
}

func (p *Pgvector) Upsert(ctx context.Context, namespace string, chunks []models.Chunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		if err := checkDimensions(c.Embedding, p.dimensions); err != nil {
			return err
		}
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		batch.Queue(
			fmt.Sprintf(`INSERT INTO %s (id, namespace, document_id, chunk_index, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
			 ON CONFLICT (id) DO UPDATE SET
			   namespace = EXCLUDED.namespace,
			   content = EXCLUDED.content,
			   metadata = EXCLUDED.metadata,
			   embedding = EXCLUDED.embedding`, p.table),
			c.ID, namespace, c.DocumentID, c.Index, c.Text, string(meta), pgvector.NewVector(c.Embedding),
		)
	}

	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk %d: %w", i, err)
		}
	}
	return nil
}

func (p *Pgvector) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	if err := checkDimensions(vector, p.dimensions); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, document_id, chunk_index, content, metadata, 1 - (embedding <=> $1) AS score
		 FROM %s
		 WHERE namespace = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`, p.table),
		pgvector.NewVector(vector), namespace, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			m    models.Match
			meta []byte
		)
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.Index, &m.Chunk.Text, &meta, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Chunk.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *Pgvector) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	_, err := p.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND document_id = $2`, p.table),
		namespace, documentID,
	)
	return err
}

func (p *Pgvector) Close() error {
	p.pool.Close()
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
