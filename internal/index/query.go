package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/llm"
)

// DefaultTopK is how many chunks a query retrieves
const DefaultTopK = 5

// RetrievedContext is one chunk with the graph context around its source
type RetrievedContext struct {
	ChunkID     string
	Text        string
	SourceURN   string
	SourceLabel string
	Score       float64
	People      []string
	RepostOf    string
}

// Answer is the response to one question
type Answer struct {
	Text     string
	Contexts []RetrievedContext
}

// QueryEngine answers questions over indexed content: embed the
// question, retrieve similar chunks, expand each hit to its owning post
// and the people around it, and let the LLM answer from that context
type QueryEngine struct {
	client   *graph.Client
	store    VectorStore
	embedder *llm.Embedder
	llm      *llm.Client
	logger   *slog.Logger
}

// NewQueryEngine creates a query engine
func NewQueryEngine(client *graph.Client, store VectorStore, embedder *llm.Embedder, llmClient *llm.Client) *QueryEngine {
	return &QueryEngine{
		client:   client,
		store:    store,
		embedder: embedder,
		llm:      llmClient,
		logger:   slog.Default().With("component", "query"),
	}
}

// Ask retrieves context for the question and generates an answer.
// expand controls the graph traversal around each hit; without it the
// answer uses chunk text alone.
func (q *QueryEngine) Ask(ctx context.Context, question string, topK int, expand bool) (*Answer, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := q.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := q.store.Search(ctx, embedding, topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no indexed content matched; run the index command first")
	}
	q.logger.Debug("retrieved chunks", "count", len(hits))

	contexts := make([]RetrievedContext, len(hits))
	for i, hit := range hits {
		contexts[i] = RetrievedContext{
			ChunkID:   hit.ChunkID,
			Text:      hit.Text,
			SourceURN: hit.SourceURN,
			Score:     hit.Score,
		}
	}
	if expand {
		if err := q.expandContexts(ctx, contexts); err != nil {
			q.logger.Warn("graph expansion failed", "error", err)
		}
	}

	answer, err := q.llm.Complete(ctx, ragSystemPrompt, ragUserPrompt(question, contexts))
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	return &Answer{Text: answer, Contexts: contexts}, nil
}

// expandContexts annotates each retrieved chunk with the label of its
// source, the people connected to it, and any repost origin. Legacy
// relationship names are matched for graphs predating the rename.
func (q *QueryEngine) expandContexts(ctx context.Context, contexts []RetrievedContext) error {
	urns := make([]string, 0, len(contexts))
	seen := make(map[string]bool)
	for _, c := range contexts {
		if c.SourceURN != "" && !seen[c.SourceURN] {
			seen[c.SourceURN] = true
			urns = append(urns, c.SourceURN)
		}
	}
	if len(urns) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
	MATCH (source)
	WHERE source.urn IN $urns
	OPTIONAL MATCH (source)<-[:%s|CREATES|%s|REACTS_TO|%s|ON_POST|%s]-(person:%s)
	OPTIONAL MATCH (source)-[:%s]->(original:%s)
	RETURN source.urn AS urn,
	       labels(source)[0] AS label,
	       collect(DISTINCT coalesce(person.name, person.urn)) AS people,
	       collect(DISTINCT original.urn) AS reposts`,
		graph.RelIsAuthorOf, graph.RelReactedTo, graph.RelCommentsOn, graph.RelReposts,
		graph.LabelPerson, graph.RelReposts, graph.LabelPost)

	records, err := q.client.ExecuteRead(ctx, query, map[string]any{"urns": urns})
	if err != nil {
		return err
	}

	type sourceInfo struct {
		label    string
		people   []string
		repostOf string
	}
	infoByURN := make(map[string]sourceInfo, len(records))
	for _, rec := range records {
		urn, _ := rec["urn"].(string)
		info := sourceInfo{}
		info.label, _ = rec["label"].(string)
		if people, ok := rec["people"].([]any); ok {
			for _, p := range people {
				if name, _ := p.(string); name != "" {
					info.people = append(info.people, name)
				}
			}
		}
		if reposts, ok := rec["reposts"].([]any); ok && len(reposts) > 0 {
			info.repostOf, _ = reposts[0].(string)
		}
		infoByURN[urn] = info
	}

	for i := range contexts {
		if info, ok := infoByURN[contexts[i].SourceURN]; ok {
			contexts[i].SourceLabel = info.label
			contexts[i].People = info.people
			contexts[i].RepostOf = info.repostOf
		}
	}
	return nil
}

const ragSystemPrompt = `You answer questions about the user's LinkedIn activity.
Use only the provided context. When the context does not contain the answer, say so.`

// ragUserPrompt renders retrieved chunks into the generation prompt
func ragUserPrompt(question string, contexts []RetrievedContext) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range contexts {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString("=== Post/Comment Content ===\n")
		b.WriteString(c.Text)
		if c.SourceURN != "" {
			b.WriteString("\n=== Source Info ===\n")
			b.WriteString(c.SourceURN)
			if c.SourceLabel != "" {
				fmt.Fprintf(&b, " (%s)", c.SourceLabel)
			}
		}
		if len(c.People) > 0 {
			b.WriteString("\n=== Related People ===\n")
			b.WriteString(strings.Join(c.People, "\n"))
		}
		if c.RepostOf != "" {
			b.WriteString("\n=== Reposted From ===\n")
			b.WriteString(c.RepostOf)
		}
	}
	fmt.Fprintf(&b, "\n\nQuestion:\n%s\n\nAnswer:", question)
	return b.String()
}
