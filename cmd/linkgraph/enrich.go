package main

import (
	"context"
	"fmt"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/llm"
	"github.com/spf13/cobra"
)

var (
	enrichLimit     int
	enrichFromCache bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich the graph with scraped pages, shared links, and LLM extraction",
	Long: `Enrich runs one of the post-build enrichment passes:

  profiles    scrape post pages, fill in author names and profile URLs
  resources   turn URLs shared in posts/comments into Resource nodes
  knowledge   LLM extraction of typed entities and relations from content
  reclassify  re-derive domain and type for existing Resource nodes`,
}

var enrichProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Fill in post authors by scraping post pages",
	RunE:  runEnrichProfiles,
}

var enrichResourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Extract shared URLs into Resource nodes",
	RunE:  runEnrichResources,
}

var enrichKnowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Extract entities and relations from content via the LLM",
	RunE:  runEnrichKnowledge,
}

var enrichReclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-derive domain and type for Resource nodes",
	RunE:  runEnrichReclassify,
}

func init() {
	enrichCmd.PersistentFlags().IntVar(&enrichLimit, "limit", 0, "max nodes to process (0 = unlimited)")
	enrichResourcesCmd.Flags().BoolVar(&enrichFromCache, "from-cache", false, "read post/comment text from the changelog cache instead of Neo4j")
	enrichCmd.AddCommand(enrichProfilesCmd)
	enrichCmd.AddCommand(enrichResourcesCmd)
	enrichCmd.AddCommand(enrichKnowledgeCmd)
	enrichCmd.AddCommand(enrichReclassifyCmd)
	rootCmd.AddCommand(enrichCmd)
}

// enrichClient validates config and opens the graph connection shared by
// every enrich subcommand
func enrichClient(ctx context.Context) (*graph.Client, error) {
	if result := cfg.Validate(config.ValidationContextEnrich); result.HasErrors() {
		return nil, fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}
	return connectGraph(ctx)
}

func runEnrichProfiles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := enrichClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	fetcher, err := enrich.NewFetcher(cfg.Enrich)
	if err != nil {
		return fmt.Errorf("page fetcher: %w", err)
	}
	defer fetcher.Close()

	fmt.Printf("🚀 Enriching post authors...\n")
	result, err := enrich.NewProfileEnricher(client, fetcher).EnrichAuthors(ctx, enrichLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Processed: %d | Enriched: %d | Failed: %d\n",
		result.Processed, result.Enriched, result.Failed)
	return nil
}

func runEnrichResources(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := enrichClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	enricher := enrich.NewResourceEnricher(client)

	var result *enrich.ResourceResult
	if enrichFromCache {
		data, err := graph.NewCache(cfg.Storage.CachePath).Load()
		if err != nil {
			return fmt.Errorf("load cache: %w", err)
		}
		fmt.Printf("🚀 Extracting resources from the changelog cache...\n")
		result, err = enricher.EnrichFromCache(ctx, data)
		if err != nil {
			return err
		}
	} else {
		fmt.Printf("🚀 Extracting resources from graph content...\n")
		result, err = enricher.EnrichResources(ctx, enrichLimit)
		if err != nil {
			return err
		}
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Resources: %d | From posts: %d | From comments: %d\n",
		result.Resources, result.Posts, result.Comments)
	return nil
}

func runEnrichKnowledge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := enrichClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	llmClient, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("LLM client: %w", err)
	}

	fmt.Printf("🚀 Extracting knowledge entities (provider: %s)...\n", cfg.LLM.Provider)
	result, err := enrich.NewKnowledgeEnricher(client, llmClient).EnrichKnowledge(ctx, enrichLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Succeeded: %d | Skipped: %d | Failed: %d\n",
		result.Succeeded, result.Skipped, result.Failed)
	if result.Failed > 0 {
		fmt.Printf("   ⚠️  Per-node failures are logged and retried on the next run\n")
	}
	return nil
}

func runEnrichReclassify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := enrichClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	fmt.Printf("🚀 Reclassifying Resource nodes...\n")
	result, err := enrich.NewResourceEnricher(client).Reclassify(ctx, enrichLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Updated: %d | Unchanged: %d | Failed: %d\n",
		result.Updated, result.Unchanged, result.Failed)
	return nil
}
