package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/enrich"
	"github.com/amai-lab/linkgraph/internal/extract"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/llm"
	"github.com/amai-lab/linkgraph/internal/pipeline"
	"github.com/amai-lab/linkgraph/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	pipelineWindow    string
	pipelineTypes     []string
	pipelineLimit     int
	pipelineNoEnrich  bool
	pipelineBatch     int
	pipelineFromCache bool
	pipelineSeedJSON  string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Collect, enrich, and summarize recent activity in one run",
	Long: `Pipeline runs the period summarization flow end to end: collect
reactions, reposts, and comments for a time window, fill in missing
content via page fetches, store the bodies, and batch-summarize them
with the LLM into .meta.json sidecars.

By default it fetches a fresh changelog slice for the window;
--from-cache reuses the extractions already in the changelog cache.
--seed-json skips collection and imports a pre-collected activity file,
then summarizes whatever still lacks a summary.

Examples:
  linkgraph pipeline --last 7d
  linkgraph pipeline --last 30d --types reaction,repost --no-enrich
  linkgraph pipeline --seed-json ./activities_enriched.json`,
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineWindow, "last", "30d", "time window, e.g. 7d, 2w, 1m")
	pipelineCmd.Flags().StringSliceVar(&pipelineTypes, "types", nil, "interaction types to collect: reaction, repost, comment (default all)")
	pipelineCmd.Flags().IntVar(&pipelineLimit, "limit", 0, "max posts to enrich and summarize (0 = unlimited)")
	pipelineCmd.Flags().BoolVar(&pipelineNoEnrich, "no-enrich", false, "skip page fetches for missing content")
	pipelineCmd.Flags().IntVar(&pipelineBatch, "batch-size", pipeline.SummaryBatchSize, "posts per LLM summarization call")
	pipelineCmd.Flags().BoolVar(&pipelineFromCache, "from-cache", false, "collect from the changelog cache instead of fetching")
	pipelineCmd.Flags().StringVar(&pipelineSeedJSON, "seed-json", "", "import activities from this JSON file and summarize")
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	startTime := time.Now()

	contentStore := store.NewContentStore(cfg.Storage.ContentDir)

	llmClient, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("LLM client: %w", err)
	}

	if pipelineSeedJSON != "" {
		return runPipelineSeed(ctx, contentStore, llmClient)
	}

	data, err := pipelineGraphData(ctx, contentStore)
	if err != nil {
		return err
	}

	var fetcher *enrich.Fetcher
	if !pipelineNoEnrich {
		fetcher, err = enrich.NewFetcher(cfg.Enrich)
		if err != nil {
			return fmt.Errorf("page fetcher: %w", err)
		}
		defer fetcher.Close()
	}

	p := pipeline.New(contentStore, fetcher, llmClient)
	fmt.Printf("🚀 Pipeline run %s (window %s)\n", p.RunID(), pipelineWindow)

	outDir := filepath.Join(cfg.Storage.DataDir, "pipeline")
	result, err := p.Run(ctx, data, pipeline.Options{
		Window:         pipelineWindow,
		Types:          pipelineTypes,
		Limit:          pipelineLimit,
		SkipEnrich:     pipelineNoEnrich,
		BatchSize:      pipelineBatch,
		ActivitiesPath: filepath.Join(outDir, "activities_raw.json"),
		EnrichedPath:   filepath.Join(outDir, "activities_enriched.json"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Pipeline complete in %v\n", time.Since(startTime).Round(time.Second))
	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Run id:     %s\n", result.RunID)
	fmt.Printf("   Collected:  %d activities\n", result.Collected)
	fmt.Printf("   Enriched:   %d\n", result.Enriched)
	fmt.Printf("   Stored:     %d\n", result.Stored)
	fmt.Printf("   Summarized: %d\n", result.Summarized)
	fmt.Printf("   Outputs:    %s\n", outDir)

	return nil
}

// pipelineGraphData supplies the node/relationship set the collector
// walks: the changelog cache, or a fresh fetch + extraction for the
// window when live
func pipelineGraphData(ctx context.Context, contentStore *store.ContentStore) (*graph.CacheData, error) {
	if pipelineFromCache {
		data, err := graph.NewCache(cfg.Storage.CachePath).Load()
		if err != nil {
			return nil, fmt.Errorf("load cache: %w", err)
		}
		fmt.Printf("📋 Using changelog cache: %d nodes, %d relationships\n",
			len(data.Nodes), len(data.Relationships))
		return data, nil
	}

	startMS, err := pipeline.ParseWindow(pipelineWindow)
	if err != nil {
		return nil, err
	}

	fmt.Printf("🔍 Fetching changelog since %s...\n",
		time.UnixMilli(startMS).UTC().Format("2006-01-02"))
	elements, _, err := fetchChangelog(ctx, changelog.Options{
		StartTime: startMS,
		PageSize:  cfg.LinkedIn.PageSize,
	})
	if err != nil && len(elements) == 0 {
		return nil, err
	}
	if err != nil {
		fmt.Printf("⚠️  Fetch ended early, continuing with %d elements: %v\n", len(elements), err)
	}

	extractor := extract.NewExtractor()
	summary := extractor.ProcessAll(elements)
	fmt.Printf("  ✓ Extracted %d elements (%d skipped)\n", summary.Extracted, summary.Skipped)

	// Full bodies go into the content store now, so the enrich phase
	// finds them without a page fetch
	for urn, content := range extractor.Contents() {
		if err := contentStore.Save(urn, content); err != nil {
			fmt.Printf("  ⚠️  Could not save content for %s: %v\n", urn, err)
		}
	}

	data := graph.NewCacheData()
	data.Merge(extractor.Nodes(), extractor.Relationships(), time.Now().UnixMilli())
	return data, nil
}

// runPipelineSeed imports a pre-collected activity file and summarizes
// pending posts
func runPipelineSeed(ctx context.Context, contentStore *store.ContentStore, llmClient *llm.Client) error {
	seeded, err := pipeline.SeedFromJSON(contentStore, pipelineSeedJSON)
	if err != nil {
		return fmt.Errorf("seed activities: %w", err)
	}
	fmt.Printf("✓ Seeded %d activities from %s\n", seeded, pipelineSeedJSON)

	runID := uuid.NewString()
	summarizer := pipeline.NewSummarizer(contentStore, llmClient, pipelineBatch, runID)
	summarized, err := summarizer.SummarizeAll(ctx, pipelineLimit)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Run id:     %s\n", runID)
	fmt.Printf("   Seeded:     %d\n", seeded)
	fmt.Printf("   Summarized: %d\n", summarized)
	return nil
}
