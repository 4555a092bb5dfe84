package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/llm"
)

// DefaultBatchSize is how many chunks are embedded and written per flush
const DefaultBatchSize = 50

// Source is a post or comment eligible for indexing
type Source struct {
	URN     string
	URL     string
	Label   string
	Content string
}

// Result summarizes an indexing run
type Result struct {
	Candidates int
	Processed  int
	Failed     int
	Chunks     int
	Stats      ChunkStats
}

// Indexer chunks post and comment content, embeds the chunks, and
// writes them to a vector store for retrieval
type Indexer struct {
	client    *graph.Client
	store     VectorStore
	embedder  *llm.Embedder
	fetcher   *enrich.Fetcher
	chunkSize int
	overlap   int
	batchSize int
	logger    *slog.Logger
}

// NewIndexer creates an indexer. The fetcher fills in content for
// sources the enrichment phase never reached.
func NewIndexer(client *graph.Client, store VectorStore, embedder *llm.Embedder, fetcher *enrich.Fetcher, cfg config.IndexConfig) *Indexer {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{
		client:    client,
		store:     store,
		embedder:  embedder,
		fetcher:   fetcher,
		chunkSize: chunkSize,
		overlap:   overlap,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// unindexedSources lists posts and comments with URLs that have no
// chunks yet. Indexed-source tracking lives in the vector store, so the
// same filter works whether chunks sit in Neo4j or Postgres.
func (ix *Indexer) unindexedSources(ctx context.Context) ([]Source, error) {
	query := fmt.Sprintf(`
	MATCH (n)
	WHERE (n:%s OR n:%s)
	  AND n.url IS NOT NULL
	  AND n.url <> ''
	RETURN n.urn AS urn, n.url AS url, labels(n)[0] AS label,
	       coalesce(n.content, n.text, '') AS content`,
		graph.LabelPost, graph.LabelComment)

	records, err := ix.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("listing index candidates: %w", err)
	}

	indexed, err := ix.indexedSourceSet(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(records))
	for _, rec := range records {
		src := Source{}
		src.URN, _ = rec["urn"].(string)
		src.URL, _ = rec["url"].(string)
		src.Label, _ = rec["label"].(string)
		src.Content, _ = rec["content"].(string)
		if src.URN == "" || indexed[src.URN] {
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// indexedSourceSet collects source URNs that already have chunks
func (ix *Indexer) indexedSourceSet(ctx context.Context) (map[string]bool, error) {
	urns, err := ix.store.IndexedSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexed sources: %w", err)
	}
	set := make(map[string]bool, len(urns))
	for _, urn := range urns {
		set[urn] = true
	}
	return set, nil
}

// Run indexes every unindexed post and comment. Sources without
// extractable content are counted failed and skipped; embedding errors
// abort the run so no chunk is stored without its vector.
func (ix *Indexer) Run(ctx context.Context, limit int) (*Result, error) {
	// The store must exist before indexed sources can be listed
	if err := ix.store.EnsureIndex(ctx, ix.embedder.Dimensions()); err != nil {
		return nil, err
	}

	sources, err := ix.unindexedSources(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(sources) > limit {
		sources = sources[:limit]
	}

	result := &Result{Candidates: len(sources)}
	if len(sources) == 0 {
		ix.logger.Info("nothing to index")
		result.Stats, _ = ix.store.Stats(ctx)
		return result, nil
	}
	ix.logger.Info("indexing sources", "count", len(sources))

	var pending []Chunk
	for i, src := range sources {
		if (i+1)%10 == 0 || i == len(sources)-1 {
			ix.logger.Info("indexing progress", "done", i+1, "total", len(sources))
		}

		content := ix.sourceContent(ctx, src)
		if content == "" {
			result.Failed++
			continue
		}

		texts := SplitText(content, ix.chunkSize, ix.overlap)
		for ci, text := range texts {
			pending = append(pending, Chunk{
				ID:        ChunkID(src.URN, ci),
				Text:      text,
				Index:     ci,
				Total:     len(texts),
				SourceURN: src.URN,
			})
		}
		result.Processed++

		if len(pending) >= ix.batchSize {
			if err := ix.flush(ctx, pending); err != nil {
				return result, err
			}
			result.Chunks += len(pending)
			pending = pending[:0]
		}
	}

	if len(pending) > 0 {
		if err := ix.flush(ctx, pending); err != nil {
			return result, err
		}
		result.Chunks += len(pending)
	}

	result.Stats, err = ix.store.Stats(ctx)
	if err != nil {
		ix.logger.Warn("chunk stats unavailable", "error", err)
	} else if result.Stats.Embedded < result.Stats.Total {
		ix.logger.Warn("chunks missing embeddings",
			"missing", result.Stats.Total-result.Stats.Embedded)
	}

	ix.logger.Info("indexing finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"chunks", result.Chunks)
	return result, nil
}

// sourceContent prefers the text enrichment already stored on the node;
// fetching the page is the fallback. Comment permalinks render the
// parent post, so fetching them would index the wrong text.
func (ix *Indexer) sourceContent(ctx context.Context, src Source) string {
	if src.Content != "" {
		return src.Content
	}
	if ix.fetcher == nil || enrich.IsCommentFeedURL(src.URL) {
		return ""
	}
	content, _, err := enrich.FetchPostContent(ctx, ix.fetcher, src.URL)
	if err != nil {
		ix.logger.Warn("content fetch failed", "url", src.URL, "error", err)
		return ""
	}
	return content
}

// flush embeds one batch and writes it to the store
func (ix *Indexer) flush(ctx context.Context, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunk batch: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	if err := ix.store.WriteChunks(ctx, chunks); err != nil {
		return err
	}
	ix.logger.Debug("chunk batch written", "chunks", len(chunks))
	return nil
}
