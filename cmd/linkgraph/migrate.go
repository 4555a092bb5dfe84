package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/spf13/cobra"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run one-off graph maintenance migrations",
	Long: `Migrate fixes data written by earlier versions of the pipeline:

  schema          rename legacy relationship types to the canonical names
  comment-urns    rewrite legacy simple comment URNs to the composite form
  repost-authors  repair repost shares credited to the wrong person

Every migration supports --dry-run to print the plan without writing.`,
}

var migrateSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Rename legacy relationship types",
	RunE:  runMigrateSchema,
}

var migrateCommentURNsCmd = &cobra.Command{
	Use:   "comment-urns",
	Short: "Rewrite legacy comment URNs to the composite form",
	RunE:  runMigrateCommentURNs,
}

var migrateRepostAuthorsCmd = &cobra.Command{
	Use:   "repost-authors",
	Short: "Repair repost shares credited to the wrong person",
	RunE:  runMigrateRepostAuthors,
}

func init() {
	migrateCmd.PersistentFlags().BoolVar(&migrateDryRun, "dry-run", false, "print the plan without writing")
	migrateCmd.AddCommand(migrateSchemaCmd)
	migrateCmd.AddCommand(migrateCommentURNsCmd)
	migrateCmd.AddCommand(migrateRepostAuthorsCmd)
	rootCmd.AddCommand(migrateCmd)
}

// migratorFor validates config and builds a migrator on a fresh client.
// The returned closer must run after the migration.
func migratorFor(ctx context.Context) (*graph.Migrator, func(), error) {
	if result := cfg.Validate(config.ValidationContextBuild); result.HasErrors() {
		return nil, nil, fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}
	client, err := connectGraph(ctx)
	if err != nil {
		return nil, nil, err
	}
	return graph.NewMigrator(client), func() { client.Close(ctx) }, nil
}

func runMigrateSchema(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	migrator, done, err := migratorFor(ctx)
	if err != nil {
		return err
	}
	defer done()

	if migrateDryRun {
		fmt.Printf("📋 Dry run: counting legacy relationships...\n")
	} else {
		fmt.Printf("🚀 Renaming legacy relationship types...\n")
	}

	result, err := migrator.MigrateSchema(ctx, migrateDryRun)
	if err != nil {
		return err
	}

	types := make([]string, 0, len(result.Renamed))
	for t := range result.Renamed {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("   %-12s %d\n", t, result.Renamed[t])
	}

	if migrateDryRun {
		fmt.Printf("\n📊 %d relationships would be renamed\n", result.Total)
	} else {
		fmt.Printf("\n✅ Renamed %d relationships\n", result.Total)
	}
	return nil
}

func runMigrateCommentURNs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	migrator, done, err := migratorFor(ctx)
	if err != nil {
		return err
	}
	defer done()

	result, err := migrator.MigrateCommentURNs(ctx, migrateDryRun)
	if err != nil {
		return err
	}

	if migrateDryRun {
		for _, plan := range result.Planned {
			fmt.Printf("   %s → %s\n", plan.OldURN, plan.NewURN)
		}
		fmt.Printf("\n📊 Found %d legacy comment URNs; %d would be migrated\n",
			result.Found, len(result.Planned))
		return nil
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Found: %d | Migrated: %d | Merged: %d | Failed: %d\n",
		result.Found, result.Migrated, result.Merged, result.Failed)
	if result.Failed > 0 {
		fmt.Printf("   ⚠️  Failures are logged; re-run after fixing the cause\n")
	}
	return nil
}

func runMigrateRepostAuthors(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// The correct reposter comes from re-extracted changelog data, so
	// this migration needs the cache as well as the database.
	data, err := graph.NewCache(cfg.Storage.CachePath).Load()
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	reposterByShare := graph.BuildReposterMap(data.NodeList(), data.Relationships)
	if len(reposterByShare) == 0 {
		fmt.Println("⚠️  No repost shares in the changelog cache; run 'linkgraph extract' over a fresh fetch first.")
		return nil
	}
	fmt.Printf("📋 Cache maps %d repost shares to their reposter\n", len(reposterByShare))

	migrator, done, err := migratorFor(ctx)
	if err != nil {
		return err
	}
	defer done()

	result, err := migrator.FixRepostAuthors(ctx, reposterByShare, migrateDryRun)
	if err != nil {
		return err
	}

	if migrateDryRun {
		for _, plan := range result.Planned {
			fmt.Printf("   %s: %s → %s\n", plan.ShareURN, plan.CurrentAuthor, plan.CorrectAuthor)
		}
		fmt.Printf("\n📊 %d shares in DB, %d mapped, %d would be fixed\n",
			result.SharesInDB, result.Mapped, len(result.Planned))
		return nil
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Shares in DB: %d | Mapped: %d | Updated: %d\n",
		result.SharesInDB, result.Mapped, result.Updated)
	fmt.Printf("   Skipped: %d without mapping, %d already correct\n",
		result.SkippedNoMapping, result.SkippedAlreadyCorrect)
	return nil
}
