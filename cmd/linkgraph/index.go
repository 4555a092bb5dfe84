package main

import (
	"context"
	"fmt"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/index"
	"github.com/amai-lab/linkgraph/internal/llm"
	"github.com/spf13/cobra"
)

var (
	indexLimit   int
	indexNoFetch bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk and embed post/comment content for retrieval",
	Long: `Index chunks every Post and Comment with content, embeds the chunks, and
writes them to the configured vector backend (Neo4j vector index by
default, Postgres/pgvector as an alternative).

Incremental: sources that already have chunks are skipped. Content comes
from the content store first, then the graph node, then a page fetch.

Examples:
  linkgraph index
  linkgraph index --limit 50 --no-fetch`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexLimit, "limit", 0, "max sources to index (0 = unlimited)")
	indexCmd.Flags().BoolVar(&indexNoFetch, "no-fetch", false, "skip page fetches for sources without stored content")
	rootCmd.AddCommand(indexCmd)
}

// openVectorStore picks the vector backend from config. The graph client
// stays open either way: the Neo4j store writes through it, the pgvector
// store only needs it for source listing and query expansion.
func openVectorStore(ctx context.Context, client *graph.Client) (index.VectorStore, error) {
	switch cfg.Index.Backend {
	case "pgvector":
		store, err := index.NewPgvectorStore(ctx, cfg.Index.PgvectorDSN)
		if err != nil {
			return nil, fmt.Errorf("pgvector store: %w", err)
		}
		return store, nil
	case "", "neo4j":
		return index.NewNeo4jStore(client, cfg.Index.VectorIndex)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s (use 'neo4j' or 'pgvector')", cfg.Index.Backend)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if result := cfg.Validate(config.ValidationContextIndex); result.HasErrors() {
		return fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}

	fmt.Printf("🚀 Indexing content (backend: %s)...\n", cfg.Index.Backend)

	client, err := connectGraph(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	store, err := openVectorStore(ctx, client)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}

	var fetcher *enrich.Fetcher
	if !indexNoFetch {
		fetcher, err = enrich.NewFetcher(cfg.Enrich)
		if err != nil {
			return fmt.Errorf("page fetcher: %w", err)
		}
		defer fetcher.Close()
	}

	result, err := index.NewIndexer(client, store, embedder, fetcher, cfg.Index).Run(ctx, indexLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Candidates: %d | Indexed: %d | Failed: %d | Chunks written: %d\n",
		result.Candidates, result.Processed, result.Failed, result.Chunks)
	fmt.Printf("   Store now holds %d chunks (%d embedded)\n",
		result.Stats.Total, result.Stats.Embedded)
	fmt.Printf("\n🚀 Next steps:\n")
	fmt.Printf("   • Ask a question: linkgraph query \"what did I post about Go?\"\n")

	return nil
}
