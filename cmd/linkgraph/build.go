package main

import (
	"context"
	"fmt"
	"time"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/store"
	"github.com/spf13/cobra"
)

var (
	buildJSONFile  string
	buildFromCSV   bool
	buildClear     bool
	buildBatchSize int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load extracted entities into Neo4j",
	Long: `Build loads nodes and relationships into the Neo4j graph.

By default it reads the changelog cache written by 'linkgraph extract'.
--json-file loads a cache-format JSON from another path; --csv rebuilds
the graph from the activity CSV instead.

Incremental by default: nodes and relationship triples already in the
database are skipped. --clear wipes the database and loads everything.

Examples:
  linkgraph build
  linkgraph build --csv
  linkgraph build --json-file ./backup/changelog_cache.json --clear`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildJSONFile, "json-file", "", "load from this cache-format JSON file")
	buildCmd.Flags().BoolVar(&buildFromCSV, "csv", false, "rebuild nodes and relationships from the activity CSV")
	buildCmd.Flags().BoolVar(&buildClear, "clear", false, "wipe the database first and do a full load")
	buildCmd.Flags().IntVar(&buildBatchSize, "batch-size", 0, "nodes/relationships per batch (default from config)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	startTime := time.Now()

	if result := cfg.Validate(config.ValidationContextBuild); result.HasErrors() {
		return fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}
	if buildFromCSV && buildJSONFile != "" {
		return fmt.Errorf("--csv and --json-file are mutually exclusive")
	}

	fmt.Printf("\n[1/3] Loading graph data...\n")
	var (
		nodes []*graph.Node
		rels  []graph.Relationship
	)
	switch {
	case buildFromCSV:
		records, err := store.NewCSVStore(cfg.Storage.CSVPath).Load()
		if err != nil {
			return fmt.Errorf("load CSV: %w", err)
		}
		nodes, rels, err = graph.RecordsToGraph(records)
		if err != nil {
			return fmt.Errorf("convert CSV rows: %w", err)
		}
		fmt.Printf("  ✓ Converted %d CSV rows → %d nodes, %d relationships\n",
			len(records), len(nodes), len(rels))
	default:
		path := buildJSONFile
		if path == "" {
			path = cfg.Storage.CachePath
		}
		data, err := graph.NewCache(path).Load()
		if err != nil {
			return fmt.Errorf("load cache: %w", err)
		}
		nodes = data.NodeList()
		rels = data.Relationships
		fmt.Printf("  ✓ Loaded %d nodes, %d relationships from %s\n",
			len(nodes), len(rels), path)
	}

	if len(nodes) == 0 && len(rels) == 0 {
		fmt.Println("⚠️  Nothing to load. Run 'linkgraph extract' first.")
		return nil
	}

	fmt.Printf("\n[2/3] Connecting to Neo4j...\n")
	client, err := connectGraph(ctx)
	if err != nil {
		return err
	}
	defer client.Close(ctx)
	fmt.Printf("  ✓ Connected to %s (database %s)\n", cfg.Neo4j.URI, client.Database())

	loaderCfg := graph.DefaultLoaderConfig()
	loaderCfg.BatchSize = cfg.Neo4j.BatchSize
	if buildBatchSize > 0 {
		loaderCfg.BatchSize = buildBatchSize
	}
	if buildClear {
		loaderCfg.Incremental = false
	}
	loader := graph.NewLoader(client, loaderCfg)

	if buildClear {
		fmt.Printf("\n[3/3] Clearing database and loading...\n")
		if err := loader.Clear(ctx); err != nil {
			return err
		}
	} else {
		fmt.Printf("\n[3/3] Loading incrementally...\n")
	}

	result, err := loader.Load(ctx, nodes, rels)
	if err != nil {
		return fmt.Errorf("graph load failed: %w", err)
	}
	fmt.Printf("  ✓ Wrote %d nodes, %d relationships (skipped %d existing nodes, %d existing relationships)\n",
		result.NodesWritten, result.RelationshipsWritten,
		result.NodesSkipped, result.RelationshipsSkipped)

	fmt.Printf("\n✅ Graph build complete in %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("\n🚀 Next steps:\n")
	fmt.Printf("   • Enrich authors:   linkgraph enrich profiles\n")
	fmt.Printf("   • Extract links:    linkgraph enrich resources\n")
	fmt.Printf("   • Index for search: linkgraph index\n")

	return nil
}
