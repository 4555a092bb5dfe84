package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore keeps chunks in Postgres with a pgvector column. The
// graph itself stays in Neo4j; only similarity search moves here.
type PgvectorStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgvectorStore connects to Postgres and verifies the connection
func NewPgvectorStore(ctx context.Context, dsn string) (*PgvectorStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector backend needs a DSN (set PGVECTOR_DSN or index.pgvector_dsn)")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PgvectorStore{
		pool:   pool,
		logger: slog.Default().With("component", "index_pgvector"),
	}, nil
}

// EnsureIndex creates the extension, table, and HNSW index. The vector
// column is sized at creation; changing dimensions means dropping the
// table first.
func (s *PgvectorStore) EnsureIndex(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("vector column needs positive dimensions, got %d", dimensions)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS content_chunks (
			id TEXT PRIMARY KEY,
			source_urn TEXT NOT NULL,
			chunk_index INT NOT NULL,
			total_chunks INT NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS content_chunks_embedding_idx
			ON content_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("preparing chunk table: %w", err)
		}
	}
	s.logger.Info("chunk table ready", "dimensions", dimensions)
	return nil
}

// WriteChunks upserts a batch in one transaction
func (s *PgvectorStore) WriteChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning chunk write: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
	INSERT INTO content_chunks (id, source_urn, chunk_index, total_chunks, text, embedding)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		source_urn = EXCLUDED.source_urn,
		chunk_index = EXCLUDED.chunk_index,
		total_chunks = EXCLUDED.total_chunks,
		text = EXCLUDED.text,
		embedding = EXCLUDED.embedding`

	for _, c := range chunks {
		if _, err := tx.Exec(ctx, query,
			c.ID, c.SourceURN, c.Index, c.Total, c.Text, pgvector.NewVector(c.Embedding)); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// IndexedSources lists URNs that already have chunks
func (s *PgvectorStore) IndexedSources(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT source_urn FROM content_chunks`)
	if err != nil {
		return nil, fmt.Errorf("listing indexed sources: %w", err)
	}
	defer rows.Close()

	var urns []string
	for rows.Next() {
		var urn string
		if err := rows.Scan(&urn); err != nil {
			return nil, err
		}
		urns = append(urns, urn)
	}
	return urns, rows.Err()
}

// Search returns the top-k chunks by cosine similarity
func (s *PgvectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]SearchHit, error) {
	query := `
	SELECT id, source_urn, text, 1 - (embedding <=> $1) AS score
	FROM content_chunks
	WHERE embedding IS NOT NULL
	ORDER BY embedding <=> $1
	LIMIT $2`

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.ChunkID, &hit.SourceURN, &hit.Text, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Stats counts stored chunks and how many carry embeddings
func (s *PgvectorStore) Stats(ctx context.Context) (ChunkStats, error) {
	var stats ChunkStats
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), count(embedding) FROM content_chunks`).
		Scan(&stats.Total, &stats.Embedded)
	if err != nil {
		return ChunkStats{}, fmt.Errorf("counting chunks: %w", err)
	}
	return stats, nil
}

// Close releases the connection pool
func (s *PgvectorStore) Close() error {
	s.pool.Close()
	return nil
}
