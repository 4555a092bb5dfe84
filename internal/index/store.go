package index

import "context"

// Chunk is one embedded slice of a post or comment body
type Chunk struct {
	ID        string
	Text      string
	Index     int
	Total     int
	SourceURN string
	Embedding []float32
}

// SearchHit is one chunk returned by a similarity search
type SearchHit struct {
	ChunkID   string
	Text      string
	SourceURN string
	Score     float64
}

// ChunkStats reports how much of the corpus carries embeddings
type ChunkStats struct {
	Total    int64
	Embedded int64
}

// VectorStore persists chunks and answers similarity queries. The Neo4j
// backend keeps chunks next to the graph; the pgvector backend keeps
// them in Postgres while the graph stays in Neo4j.
type VectorStore interface {
	EnsureIndex(ctx context.Context, dimensions int) error
	WriteChunks(ctx context.Context, chunks []Chunk) error
	IndexedSources(ctx context.Context) ([]string, error)
	Search(ctx context.Context, embedding []float32, topK int) ([]SearchHit, error)
	Stats(ctx context.Context) (ChunkStats, error)
	Close() error
}
