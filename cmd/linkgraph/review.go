package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/review"
	"github.com/spf13/cobra"
)

var (
	reviewPort      int
	reviewOpen      bool
	reviewSyncInput string
	reviewSyncFetch bool
	reviewExportDir string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manually review extraction results",
	Long: `Review manages the extraction review queue: every changelog element is
stored with its extraction preview and a status (pending, validated,
skipped, needs_fix, fixed_validated). Corrections export as JSON
fixtures for regression tests.

The queue lives in SQLite by default; set review.backend to "postgres"
to use Postgres instead.`,
}

var reviewServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review UI and JSON API",
	RunE:  runReviewServe,
}

var reviewSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync changelog elements into the review queue",
	RunE:  runReviewSync,
}

var reviewExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export validated and fixed items as JSON fixtures",
	RunE:  runReviewExport,
}

func init() {
	reviewServeCmd.Flags().IntVar(&reviewPort, "port", 0, "listen port (default from config)")
	reviewServeCmd.Flags().BoolVar(&reviewOpen, "open", false, "open the review UI in the browser")
	reviewSyncCmd.Flags().StringVarP(&reviewSyncInput, "input", "i", "", "changelog JSON file (default: <data dir>/changelog_elements.json)")
	reviewSyncCmd.Flags().BoolVar(&reviewSyncFetch, "fetch", false, "fetch fresh elements from the API instead of reading the dump")
	reviewExportCmd.Flags().StringVar(&reviewExportDir, "dir", "", "fixtures directory (default from config)")
	reviewCmd.AddCommand(reviewServeCmd)
	reviewCmd.AddCommand(reviewSyncCmd)
	reviewCmd.AddCommand(reviewExportCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if result := cfg.Validate(config.ValidationContextReview); result.HasErrors() {
		return fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}

	st, err := openReviewStore()
	if err != nil {
		return err
	}
	defer st.Close()

	port := reviewPort
	if port == 0 {
		port = cfg.Review.Port
	}
	fixturesDir := cfg.Review.FixturesDir

	fetchFn := func(ctx context.Context, startTime int64) ([]changelog.Element, error) {
		if startTime < 0 {
			startTime = changelog.LoadLastRun(cfg.Storage.DataDir)
		}
		elements, _, err := fetchChangelog(ctx, changelog.Options{
			StartTime: startTime,
			PageSize:  cfg.LinkedIn.PageSize,
		})
		return elements, err
	}

	server := review.NewServer(st, review.ServerConfig{
		Addr:        fmt.Sprintf(":%d", port),
		FixturesDir: fixturesDir,
		Fetch:       fetchFn,
		OpenBrowser: reviewOpen,
	})

	fmt.Printf("🚀 Review server on http://localhost:%d (backend: %s)\n", port, cfg.Review.Backend)
	fmt.Printf("   Ctrl-C to stop\n")
	return server.Run(ctx)
}

func runReviewSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if result := cfg.Validate(config.ValidationContextReview); result.HasErrors() {
		return fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}

	var (
		elements []changelog.Element
		err      error
	)
	if reviewSyncFetch {
		fmt.Printf("🚀 Fetching changelog for review...\n")
		elements, _, err = fetchChangelog(ctx, changelog.Options{
			StartTime: changelog.LoadLastRun(cfg.Storage.DataDir),
			PageSize:  cfg.LinkedIn.PageSize,
		})
		if err != nil && len(elements) == 0 {
			return err
		}
		if err != nil {
			fmt.Printf("⚠️  Fetch ended early: %v\n", err)
		}
	} else {
		in := reviewSyncInput
		if in == "" {
			in = elementsJSONPath()
		}
		elements, err = loadElements(in)
		if err != nil {
			return fmt.Errorf("load changelog elements: %w (run 'linkgraph fetch' first, or pass --fetch)", err)
		}
	}

	st, err := openReviewStore()
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := review.Sync(ctx, st, elements)
	if err != nil {
		return err
	}

	counts, err := st.CountsByStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Inserted: %d | Updated: %d\n", result.Inserted, result.Updated)
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("   %-16s %d\n", status, counts[status])
	}
	fmt.Printf("\n🚀 Next steps:\n")
	fmt.Printf("   • Review items: linkgraph review serve --open\n")

	return nil
}

func runReviewExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openReviewStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dir := reviewExportDir
	if dir == "" {
		dir = cfg.Review.FixturesDir
	}

	count, err := review.ExportFixtures(ctx, st, dir)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Exported %d fixtures to %s\n", count, dir)
	return nil
}
