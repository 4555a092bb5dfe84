package main

import (
	"context"
	"fmt"
	"time"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/spf13/cobra"
)

var (
	fetchStartTime int64
	fetchResume    bool
	fetchResources []string
	fetchMax       int
	fetchOutput    string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch changelog events from the LinkedIn API",
	Long: `Fetch pages through the LinkedIn Member Changelog API and writes the raw
elements to a JSON file under the data directory.

The access token comes from the environment, the OS keychain, or the
credentials file (run 'linkgraph login' to set one up).

Examples:
  linkgraph fetch
  linkgraph fetch --resume
  linkgraph fetch --resources ugcPosts,socialActions --max 200`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int64Var(&fetchStartTime, "start-time", 0, "fetch events processed at or after this epoch-ms timestamp")
	fetchCmd.Flags().BoolVar(&fetchResume, "resume", false, "resume from the recorded last run")
	fetchCmd.Flags().StringSliceVar(&fetchResources, "resources", nil, "keep only elements whose resourceName contains any of these")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 0, "stop after this many kept elements (0 = unlimited)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output JSON file (default: <data dir>/changelog_elements.json)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if result := cfg.Validate(config.ValidationContextFetch); result.HasErrors() {
		return fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}

	startTime := fetchStartTime
	if fetchResume && startTime == 0 {
		startTime = changelog.LoadLastRun(cfg.Storage.DataDir)
		fmt.Printf("🔁 Resuming from %s\n", time.UnixMilli(startTime).UTC().Format(time.RFC3339))
	}

	fetchedAt := time.Now().UnixMilli()
	elements, stats, err := fetchChangelog(ctx, changelog.Options{
		StartTime:   startTime,
		Resources:   fetchResources,
		MaxElements: fetchMax,
		PageSize:    cfg.LinkedIn.PageSize,
	})

	partial := false
	if err != nil {
		if len(elements) == 0 {
			return err
		}
		// Keep partial results, but don't advance .last_run past them
		partial = true
		fmt.Printf("⚠️  Fetch ended early: %v\n", err)
	}

	out := fetchOutput
	if out == "" {
		out = elementsJSONPath()
	}
	if err := saveElements(out, fetchedAt, elements); err != nil {
		return fmt.Errorf("save elements: %w", err)
	}

	if !partial && len(elements) > 0 {
		if err := changelog.SaveLastRun(cfg.Storage.DataDir, fetchedAt); err != nil {
			fmt.Printf("⚠️  Could not record last run: %v\n", err)
		}
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Pages: %d | Fetched: %d | Kept: %d | Filtered: %d\n",
		stats.Pages, stats.Fetched, stats.Kept, stats.Filtered)
	fmt.Printf("   Saved to: %s\n", out)
	fmt.Printf("\n🚀 Next steps:\n")
	fmt.Printf("   • Extract entities:  linkgraph extract\n")
	fmt.Printf("   • Activity overview: linkgraph stats\n")

	return nil
}
