package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/llm"
)

// minEnrichableLen is the shortest content worth sending to the model.
// Anything under this is a stub like "Great post!" with nothing to extract.
const minEnrichableLen = 20

// entityTypes defines the labels the extractor may produce. The
// descriptions go verbatim into the prompt.
var entityTypes = []struct {
	Label       string
	Description string
}{
	{"Technology", "A technology, framework, library, or tool mentioned in content."},
	{"Concept", "An abstract idea, methodology, or principle discussed in content."},
	{"Process", "A workflow, procedure, or series of steps."},
	{"Challenge", "A difficulty, limitation, or problem encountered."},
	{"Benefit", "A positive outcome or advantage."},
	{"Example", "A concrete use-case, demo, or real-world application."},
	{"Resource", "A related learning resource (article, video, repository, etc.)."},
	{"Person", "A person mentioned by name."},
}

// relationPatterns are the (from, type, to) triples the extractor may
// produce between entities. Anything outside this set is dropped.
var relationPatterns = [][3]string{
	{"Resource", "REFERENCES", "Resource"},
	{"Person", "CREATED", "Resource"},
	{"Technology", "RELATED_TO", "Technology"},
	{"Concept", "RELATED_TO", "Technology"},
	{"Example", "USED_IN", "Technology"},
	{"Process", "PART_OF", "Technology"},
	{"Technology", "HAS_CHALLENGE", "Challenge"},
	{"Concept", "HAS_CHALLENGE", "Challenge"},
	{"Technology", "LEADS_TO", "Benefit"},
	{"Process", "LEADS_TO", "Benefit"},
	{"Resource", "CITES", "Technology"},
}

func validEntityLabel(label string) bool {
	for _, et := range entityTypes {
		if et.Label == label {
			return true
		}
	}
	return false
}

func patternAllowed(fromLabel, relType, toLabel string) bool {
	for _, p := range relationPatterns {
		if p[0] == fromLabel && p[1] == relType && p[2] == toLabel {
			return true
		}
	}
	return false
}

// sourceLinkType picks the edge connecting a post or comment to an
// entity extracted from it
func sourceLinkType(label string) string {
	switch label {
	case "Person":
		return graph.RelMentions
	case "Resource":
		return graph.RelReferences
	default:
		return graph.RelDiscusses
	}
}

// extraction is the JSON shape the model is asked to return
type extraction struct {
	Entities  []extractedEntity   `json:"entities"`
	Relations []extractedRelation `json:"relations"`
}

type extractedEntity struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type extractedRelation struct {
	From string `json:"from"`
	Type string `json:"type"`
	To   string `json:"to"`
}

// KnowledgeResult summarizes a knowledge enrichment run
type KnowledgeResult struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// KnowledgeEnricher extracts typed entities and relations from post and
// comment text via the LLM and merges them into the graph
type KnowledgeEnricher struct {
	client *graph.Client
	llm    *llm.Client
	logger *slog.Logger
}

// NewKnowledgeEnricher creates a knowledge enricher
func NewKnowledgeEnricher(client *graph.Client, llmClient *llm.Client) *KnowledgeEnricher {
	return &KnowledgeEnricher{
		client: client,
		llm:    llmClient,
		logger: slog.Default().With("component", "enrich_knowledge"),
	}
}

// enrichable is a post or comment with text awaiting extraction
type enrichable struct {
	URN     string
	Content string
}

// nodesNeedingEnrichment lists posts and comments with content that have
// not been through extraction yet
func (k *KnowledgeEnricher) nodesNeedingEnrichment(ctx context.Context, limit int) ([]enrichable, error) {
	var nodes []enrichable
	for _, q := range []struct {
		label string
		prop  string
	}{
		{graph.LabelPost, "content"},
		{graph.LabelComment, "text"},
	} {
		query := fmt.Sprintf(`
		MATCH (n:%s)
		WHERE n.%s IS NOT NULL AND n.%s <> ''
		  AND n.enriched IS NULL
		RETURN n.urn AS urn, n.%s AS content`, q.label, q.prop, q.prop, q.prop)
		params := map[string]any{}
		if limit > 0 {
			query += " LIMIT $limit"
			params["limit"] = limit
		}

		records, err := k.client.ExecuteRead(ctx, query, params)
		if err != nil {
			return nil, fmt.Errorf("listing %s nodes for enrichment: %w", q.label, err)
		}
		for _, rec := range records {
			urn, _ := rec["urn"].(string)
			content, _ := rec["content"].(string)
			if urn != "" {
				nodes = append(nodes, enrichable{URN: urn, Content: content})
			}
		}
	}
	return nodes, nil
}

// EnrichKnowledge runs LLM extraction over every post and comment that
// has content but no extraction yet. Each node is marked enriched once
// its entities land, so interrupted runs resume where they stopped.
func (k *KnowledgeEnricher) EnrichKnowledge(ctx context.Context, limit int) (*KnowledgeResult, error) {
	nodes, err := k.nodesNeedingEnrichment(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		k.logger.Info("no nodes need enrichment")
		return &KnowledgeResult{}, nil
	}
	k.logger.Info("enriching nodes", "count", len(nodes))

	result := &KnowledgeResult{}
	for i, node := range nodes {
		if len(strings.TrimSpace(node.Content)) < minEnrichableLen {
			result.Skipped++
			continue
		}

		k.logger.Info("extracting",
			"progress", fmt.Sprintf("%d/%d", i+1, len(nodes)),
			"urn", node.URN)

		if err := k.enrichNode(ctx, node); err != nil {
			k.logger.Warn("enrichment failed", "urn", node.URN, "error", err)
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	k.logger.Info("enrichment finished",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}

func (k *KnowledgeEnricher) enrichNode(ctx context.Context, node enrichable) error {
	raw, err := k.llm.CompleteJSON(ctx, extractionSystemPrompt(), node.Content)
	if err != nil {
		return fmt.Errorf("extraction call: %w", err)
	}

	block, ok := llm.ExtractJSONBlock(raw)
	if !ok {
		return fmt.Errorf("no JSON object in model output")
	}
	var ext extraction
	if err := json.Unmarshal([]byte(block), &ext); err != nil {
		return fmt.Errorf("parsing extraction: %w", err)
	}

	entities, relations := validateExtraction(&ext)
	stmts := buildEnrichmentStatements(node.URN, entities, relations)
	if err := k.client.WriteBatch(ctx, "enrichment_update", stmts); err != nil {
		return fmt.Errorf("writing extraction: %w", err)
	}

	k.logger.Debug("extraction written",
		"urn", node.URN,
		"entities", len(entities),
		"relations", len(relations))
	return nil
}

// validateExtraction drops entities with unknown labels or blank names
// and relations that do not connect kept entities via an allowed pattern
func validateExtraction(ext *extraction) ([]extractedEntity, []extractedRelation) {
	labelByName := make(map[string]string)
	var entities []extractedEntity
	for _, e := range ext.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" || !validEntityLabel(e.Label) {
			continue
		}
		if _, dup := labelByName[name]; dup {
			continue
		}
		labelByName[name] = e.Label
		entities = append(entities, extractedEntity{Name: name, Label: e.Label})
	}

	var relations []extractedRelation
	for _, r := range ext.Relations {
		from := strings.TrimSpace(r.From)
		to := strings.TrimSpace(r.To)
		fromLabel, okFrom := labelByName[from]
		toLabel, okTo := labelByName[to]
		if !okFrom || !okTo {
			continue
		}
		if !patternAllowed(fromLabel, r.Type, toLabel) {
			continue
		}
		relations = append(relations, extractedRelation{From: from, Type: r.Type, To: to})
	}
	return entities, relations
}

// buildEnrichmentStatements produces the single-transaction write for
// one node's extraction: entity merges, source links, entity relations,
// and the enriched marker last so a failed write retries the whole node
func buildEnrichmentStatements(urn string, entities []extractedEntity, relations []extractedRelation) []graph.Statement {
	var stmts []graph.Statement
	for _, e := range entities {
		stmts = append(stmts, graph.Statement{
			Query: fmt.Sprintf(`MERGE (e:%s {name: $name}) SET e:%s`,
				e.Label, graph.LabelEntity),
			Params: map[string]any{"name": e.Name},
		})
		stmts = append(stmts, graph.Statement{
			Query: fmt.Sprintf(`
			MATCH (source {urn: $urn})
			MATCH (e:%s {name: $name})
			MERGE (source)-[:%s]->(e)`, e.Label, sourceLinkType(e.Label)),
			Params: map[string]any{"urn": urn, "name": e.Name},
		})
	}
	for _, r := range relations {
		stmts = append(stmts, graph.Statement{
			Query: fmt.Sprintf(`
			MATCH (from:%s {name: $from})
			MATCH (to:%s {name: $to})
			MERGE (from)-[:%s]->(to)`,
				graph.LabelEntity, graph.LabelEntity, r.Type),
			Params: map[string]any{"from": r.From, "to": r.To},
		})
	}
	stmts = append(stmts, graph.Statement{
		Query:  `MATCH (n {urn: $urn}) SET n.enriched = true`,
		Params: map[string]any{"urn": urn},
	})
	return stmts
}

// extractionSystemPrompt renders the entity and relation schema into the
// extraction prompt
func extractionSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a knowledge graph extraction engine. Extract entities and relationships from LinkedIn post content.\n\nEntity labels:\n")
	for _, et := range entityTypes {
		fmt.Fprintf(&b, "- %s: %s\n", et.Label, et.Description)
	}

	b.WriteString("\nAllowed relationships (from type to):\n")
	for _, p := range relationPatterns {
		fmt.Fprintf(&b, "- %s %s %s\n", p[0], p[1], p[2])
	}

	b.WriteString(`
Respond with JSON only, in this shape:
{"entities": [{"name": "...", "label": "..."}],
 "relations": [{"from": "...", "type": "...", "to": "..."}]}

Entity names are short noun phrases as written in the content. Relations
may only connect entities you listed, using the allowed patterns. Return
empty lists when nothing qualifies.`)
	return b.String()
}
