package index

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/amai-lab/linkgraph/internal/graph"
)

// indexNamePattern guards the index name before interpolation; CREATE
// VECTOR INDEX cannot take it as a parameter
var indexNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Neo4jStore keeps chunks as (:Chunk) nodes beside the graph and
// searches them through a native vector index
type Neo4jStore struct {
	client    *graph.Client
	indexName string
	resolved  string // index name confirmed against the database
	logger    *slog.Logger
}

// NewNeo4jStore creates a Neo4j-backed vector store
func NewNeo4jStore(client *graph.Client, indexName string) (*Neo4jStore, error) {
	if !indexNamePattern.MatchString(indexName) {
		return nil, fmt.Errorf("invalid vector index name %q", indexName)
	}
	return &Neo4jStore{
		client:    client,
		indexName: indexName,
		logger:    slog.Default().With("component", "index_neo4j"),
	}, nil
}

// EnsureIndex creates the vector index when missing. Dimensions and the
// similarity function are fixed at creation; changing dimensions later
// means dropping the index first.
func (s *Neo4jStore) EnsureIndex(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("vector index needs positive dimensions, got %d", dimensions)
	}

	query := fmt.Sprintf(`
	CREATE VECTOR INDEX %s IF NOT EXISTS
	FOR (c:%s) ON c.embedding
	OPTIONS {indexConfig: {
	  `+"`vector.dimensions`"+`: %d,
	  `+"`vector.similarity_function`"+`: 'cosine'
	}}`, s.indexName, graph.LabelChunk, dimensions)

	if err := s.client.WriteBatch(ctx, "vector_index", []graph.Statement{{Query: query}}); err != nil {
		return fmt.Errorf("creating vector index %s: %w", s.indexName, err)
	}
	s.resolved = s.indexName
	s.logger.Info("vector index ready", "name", s.indexName, "dimensions", dimensions)
	return nil
}

// WriteChunks merges chunk nodes with their embeddings and links each to
// its source. Chunks whose source node is missing are dropped by the
// MATCH; the count check surfaces that instead of failing the batch.
func (s *Neo4jStore) WriteChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, map[string]any{
			"chunk_id":   c.ID,
			"text":       c.Text,
			"index":      c.Index,
			"total":      c.Total,
			"source_urn": c.SourceURN,
			"embedding":  toFloat64(c.Embedding),
		})
	}

	query := fmt.Sprintf(`
	UNWIND $chunks AS chunk_data
	MATCH (source {urn: chunk_data.source_urn})
	MERGE (chunk:%s {id: chunk_data.chunk_id})
	SET chunk.text = chunk_data.text,
	    chunk.index = chunk_data.index,
	    chunk.total = chunk_data.total,
	    chunk.source_urn = chunk_data.source_urn,
	    chunk.embedding = chunk_data.embedding
	MERGE (source)-[:%s]->(chunk)
	RETURN chunk.id AS chunk_id`, graph.LabelChunk, graph.RelHasChunk)

	records, err := s.client.ExecuteQuery(ctx, query, map[string]any{"chunks": rows})
	if err != nil {
		return fmt.Errorf("writing chunk batch: %w", err)
	}
	if len(records) != len(chunks) {
		s.logger.Warn("some chunks had no source node",
			"written", len(records), "batch", len(chunks))
	}
	return nil
}

// IndexedSources lists URNs that already have chunks
func (s *Neo4jStore) IndexedSources(ctx context.Context) ([]string, error) {
	records, err := s.client.ExecuteRead(ctx,
		fmt.Sprintf(`MATCH (c:%s) RETURN DISTINCT c.source_urn AS source_urn`, graph.LabelChunk),
		nil)
	if err != nil {
		return nil, err
	}
	urns := make([]string, 0, len(records))
	for _, rec := range records {
		if urn, _ := rec["source_urn"].(string); urn != "" {
			urns = append(urns, urn)
		}
	}
	return urns, nil
}

// Search runs the vector index query and returns the top-k chunks. The
// index name is resolved against the database on the first search, so a
// database indexed under an older name still answers.
func (s *Neo4jStore) Search(ctx context.Context, embedding []float32, topK int) ([]SearchHit, error) {
	if s.resolved == "" {
		name, err := s.FindVectorIndex(ctx)
		if err != nil {
			return nil, err
		}
		s.resolved = name
	}

	query := `
	CALL db.index.vector.queryNodes($index_name, $k, $embedding)
	YIELD node, score
	RETURN node.id AS id,
	       node.text AS text,
	       node.source_urn AS source_urn,
	       score`

	records, err := s.client.ExecuteRead(ctx, query, map[string]any{
		"index_name": s.resolved,
		"k":          topK,
		"embedding":  toFloat64(embedding),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]SearchHit, 0, len(records))
	for _, rec := range records {
		hit := SearchHit{}
		hit.ChunkID, _ = rec["id"].(string)
		hit.Text, _ = rec["text"].(string)
		hit.SourceURN, _ = rec["source_urn"].(string)
		hit.Score, _ = rec["score"].(float64)
		hits = append(hits, hit)
	}
	return hits, nil
}

// Stats counts chunk nodes and how many carry embeddings
func (s *Neo4jStore) Stats(ctx context.Context) (ChunkStats, error) {
	total, err := s.client.CountQuery(ctx,
		fmt.Sprintf(`MATCH (c:%s) RETURN count(c) AS count`, graph.LabelChunk),
		nil, "count")
	if err != nil {
		return ChunkStats{}, err
	}
	embedded, err := s.client.CountQuery(ctx,
		fmt.Sprintf(`MATCH (c:%s) WHERE c.embedding IS NOT NULL RETURN count(c) AS count`, graph.LabelChunk),
		nil, "count")
	if err != nil {
		return ChunkStats{}, err
	}
	return ChunkStats{Total: total, Embedded: embedded}, nil
}

// Close is a no-op; the graph client owns the driver
func (s *Neo4jStore) Close() error { return nil }

// toFloat64 widens an embedding for the bolt protocol, which carries
// float lists as 64-bit
func toFloat64(embedding []float32) []float64 {
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out
}

// FindVectorIndex checks that the configured vector index exists,
// falling back to any present vector index that looks like a content
// index. Indexes created by older runs may carry different names.
func (s *Neo4jStore) FindVectorIndex(ctx context.Context) (string, error) {
	records, err := s.client.ExecuteRead(ctx,
		`SHOW INDEXES WHERE type = 'VECTOR'`, nil)
	if err != nil {
		return "", fmt.Errorf("listing vector indexes: %w", err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("no vector index found; run the index command first")
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		if name, _ := rec["name"].(string); name != "" {
			names = append(names, name)
		}
	}
	for _, name := range names {
		if name == s.indexName {
			return name, nil
		}
	}
	if len(names) == 1 {
		s.logger.Info("using only available vector index", "name", names[0])
		return names[0], nil
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "chunk") || strings.Contains(lower, "embedding") || strings.Contains(lower, "content") {
			s.logger.Info("using closest vector index", "name", name)
			return name, nil
		}
	}
	return names[0], nil
}
