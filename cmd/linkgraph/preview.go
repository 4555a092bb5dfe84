package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/extract"
	"github.com/amai-lab/linkgraph/internal/review"
	"github.com/spf13/cobra"
)

var previewInput string

var previewCmd = &cobra.Command{
	Use:   "preview <index|element-id|urn>",
	Short: "Dry-run extraction on a single changelog element",
	Long: `Preview runs the extractor on one element from a fetched changelog dump
and prints the nodes and relationships it would produce, plus the
extraction trace. Nothing is written.

The element is selected by zero-based index, by review element id, or by
activity URN (substring match).

Examples:
  linkgraph preview 12
  linkgraph preview urn:li:ugcPost:7229
  linkgraph preview 3f6a0c9e12ab34cd`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewInput, "input", "i", "", "changelog JSON file (default: <data dir>/changelog_elements.json)")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	in := previewInput
	if in == "" {
		in = elementsJSONPath()
	}

	elements, err := loadElements(in)
	if err != nil {
		return fmt.Errorf("load changelog elements: %w (run 'linkgraph fetch' first)", err)
	}
	if len(elements) == 0 {
		return fmt.Errorf("no elements in %s", in)
	}

	el, err := selectElement(elements, args[0])
	if err != nil {
		return err
	}

	preview := extract.PreviewElement(el)

	fmt.Printf("📋 Element %s (%s, %s)\n",
		review.ElementID(el), el.ResourceName, el.ProcessedTime().UTC().Format("2006-01-02 15:04:05"))
	fmt.Printf("   Kind: %s\n", preview.Primary)

	out, err := json.MarshalIndent(struct {
		Nodes         interface{} `json:"nodes"`
		Relationships interface{} `json:"relationships"`
		SkipReasons   interface{} `json:"skipped_reasons,omitempty"`
	}{preview.Nodes, preview.Relationships, preview.SkipReasons}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if len(preview.Trace) > 0 {
		fmt.Printf("\n📋 Trace:\n")
		for _, step := range preview.Trace {
			fmt.Printf("   %s\n", step)
		}
	}

	return nil
}

// selectElement resolves a preview selector against the dump: a number
// is an index, 16 hex chars an element id, anything else a URN substring
func selectElement(elements []changelog.Element, selector string) (*changelog.Element, error) {
	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(elements) {
			return nil, fmt.Errorf("index %d out of range (0..%d)", idx, len(elements)-1)
		}
		return &elements[idx], nil
	}

	for i := range elements {
		if review.ElementID(&elements[i]) == selector {
			return &elements[i], nil
		}
	}

	for i := range elements {
		if urn := elements[i].ActivityURN(); urn != "" && strings.Contains(urn, selector) {
			return &elements[i], nil
		}
	}

	return nil, fmt.Errorf("no element matches %q (by index, element id, or URN)", selector)
}
