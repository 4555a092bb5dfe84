package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/amai-lab/linkgraph/internal/extract"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/store"
	"github.com/spf13/cobra"
)

var extractInput string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract people, posts, and comments from fetched changelog events",
	Long: `Extract runs the element classifier and entity extractor over a fetched
changelog dump, then persists the results three ways:

  • nodes + relationships merged into the changelog cache (for 'build')
  • activity rows appended to the CSV (dedup by activity URN)
  • full post/comment bodies saved to the content store

Examples:
  linkgraph extract
  linkgraph extract --input ./dump/changelog_elements.json`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "changelog JSON file (default: <data dir>/changelog_elements.json)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	in := extractInput
	if in == "" {
		in = elementsJSONPath()
	}

	elements, err := loadElements(in)
	if err != nil {
		return fmt.Errorf("load changelog elements: %w (run 'linkgraph fetch' first)", err)
	}
	fmt.Printf("🚀 Extracting entities from %d changelog elements...\n", len(elements))

	fmt.Printf("\n[1/4] Running extraction...\n")
	extractor := extract.NewExtractor()
	summary := extractor.ProcessAll(elements)
	fmt.Printf("  ✓ Extracted: %d | Skipped: %d | Failed: %d\n",
		summary.Extracted, summary.Skipped, summary.Failed)

	if skips := extractor.Skips(); len(skips) > 0 {
		reasons := make([]string, 0, len(skips))
		for reason := range skips {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Printf("    skip %-40s %d\n", reason, skips[reason])
		}
	}

	nodes := extractor.Nodes()
	rels := extractor.Relationships()

	fmt.Printf("\n[2/4] Merging into changelog cache...\n")
	cache := graph.NewCache(cfg.Storage.CachePath)
	data, err := cache.Load()
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	data.Merge(nodes, rels, time.Now().UnixMilli())
	if err := cache.Save(data); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	fmt.Printf("  ✓ Cache now holds %d nodes, %d relationships (%s)\n",
		len(data.Nodes), len(data.Relationships), cache.Path())

	fmt.Printf("\n[3/4] Appending activity rows to CSV...\n")
	csvStore := store.NewCSVStore(cfg.Storage.CSVPath)
	appended, err := csvStore.Append(extractor.Records())
	if err != nil {
		return fmt.Errorf("append CSV: %w", err)
	}
	fmt.Printf("  ✓ Appended %d new rows (%s)\n", appended, cfg.Storage.CSVPath)

	fmt.Printf("\n[4/4] Saving full content bodies...\n")
	contentStore := store.NewContentStore(cfg.Storage.ContentDir)
	saved := 0
	for urn, content := range extractor.Contents() {
		if err := contentStore.Save(urn, content); err != nil {
			fmt.Printf("  ⚠️  Could not save content for %s: %v\n", urn, err)
			continue
		}
		saved++
	}
	fmt.Printf("  ✓ Saved %d content bodies (%s)\n", saved, cfg.Storage.ContentDir)

	fmt.Printf("\n✅ Extraction complete\n")
	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Nodes: %d | Relationships: %d | CSV rows: %d | Content: %d\n",
		len(nodes), len(rels), appended, saved)
	fmt.Printf("\n🚀 Next steps:\n")
	fmt.Printf("   • Load into Neo4j:  linkgraph build\n")
	fmt.Printf("   • Review the queue: linkgraph review sync\n")

	return nil
}
