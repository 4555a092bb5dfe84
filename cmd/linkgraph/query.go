package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/index"
	"github.com/amai-lab/linkgraph/internal/llm"
	"github.com/spf13/cobra"
)

var (
	queryTopK        int
	queryGraph       bool
	queryShowContext bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the indexed content",
	Long: `Query embeds the question, retrieves the closest content chunks from the
vector backend, expands them with graph context (author, repost origin),
and asks the LLM to answer from that context.

Examples:
  linkgraph query "what did I post about Go?"
  linkgraph query --top-k 10 --show-context "who commented on my launch post?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", index.DefaultTopK, "number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&queryGraph, "graph", true, "expand hits with related people and repost origins")
	queryCmd.Flags().BoolVar(&queryShowContext, "show-context", false, "print the retrieved chunks")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	if result := cfg.Validate(config.ValidationContextIndex); result.HasErrors() {
		return fmt.Errorf("configuration validation failed:\n%s", result.Error())
	}

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
	llmClient, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("LLM client: %w", err)
	}

	engine := index.NewQueryEngine(client, store, embedder, llmClient)
	answer, err := engine.Ask(ctx, question, queryTopK, queryGraph)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", answer.Text)

	fmt.Printf("\n📋 Sources (%d):\n", len(answer.Contexts))
	for _, c := range answer.Contexts {
		line := fmt.Sprintf("   %.3f  %s", c.Score, c.SourceURN)
		if c.SourceLabel != "" {
			line += fmt.Sprintf(" (%s)", c.SourceLabel)
		}
		if len(c.People) > 0 {
			line += "  people: " + strings.Join(c.People, ", ")
		}
		fmt.Println(line)
	}

	if queryShowContext {
		fmt.Printf("\n📋 Retrieved chunks:\n")
		for i, c := range answer.Contexts {
			fmt.Printf("\n--- chunk %d (%s) ---\n%s\n", i+1, c.ChunkID, c.Text)
		}
	}

	return nil
}
