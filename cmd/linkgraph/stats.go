package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/amai-lab/linkgraph/internal/extract"
	"github.com/spf13/cobra"
)

var (
	statsInput  string
	statsOutput string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize activity counts from a fetched changelog",
	Long: `Stats tallies a fetched changelog dump without extracting entities:
messages and invitations by direction, reactions by type, posts by share
type, comments, and per-resource counters. The full report is written as
JSON.

Examples:
  linkgraph stats
  linkgraph stats --input ./dump/changelog_elements.json -o report.json`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsInput, "input", "i", "", "changelog JSON file (default: <data dir>/changelog_elements.json)")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "", "report JSON file (default from config)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	in := statsInput
	if in == "" {
		in = elementsJSONPath()
	}

	elements, err := loadElements(in)
	if err != nil {
		return fmt.Errorf("load changelog elements: %w (run 'linkgraph fetch' first)", err)
	}

	stats := extract.CollectStatistics(elements)

	fmt.Printf("📊 Activity statistics (%d elements)\n\n", len(elements))
	fmt.Printf("   Messages:  %d sent, %d received\n", stats.Messages.Sent, stats.Messages.Received)
	fmt.Printf("   Invites:   %d sent, %d received\n", stats.Invites.Sent, stats.Invites.Received)
	fmt.Printf("   Posts:     %d original, %d reposts, %d reposts with comment\n",
		stats.Posts.Original, stats.Posts.Repost, stats.Posts.RepostWithComment)
	fmt.Printf("   Comments:  %d\n", stats.CommentsTotal)

	if len(stats.Reactions) > 0 {
		fmt.Printf("   Reactions:\n")
		for _, kv := range sortedCounts(stats.Reactions) {
			fmt.Printf("     %-10s %d\n", kv.key, kv.count)
		}
	}

	fmt.Printf("\n   Resources seen:\n")
	for _, kv := range sortedCounts(stats.ResourceTypes) {
		fmt.Printf("     %-50s %d\n", kv.key, kv.count)
	}

	out := statsOutput
	if out == "" {
		out = cfg.Storage.StatsPath
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("\n✅ Report saved to %s\n", out)

	return nil
}

type countEntry struct {
	key   string
	count int
}

// sortedCounts orders a counter map by count descending, then key
func sortedCounts(m map[string]int) []countEntry {
	entries := make([]countEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, countEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	return entries
}
