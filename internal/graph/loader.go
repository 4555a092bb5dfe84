package graph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultBatchSize is the number of nodes or relationships written per
// transaction during graph loading.
const DefaultBatchSize = 500

// identifierPattern is the shape labels and relationship types must have
// before they are interpolated into Cypher. Parameters cannot carry them.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoaderConfig controls batching and merge behaviour
type LoaderConfig struct {
	BatchSize   int
	Incremental bool
}

// DefaultLoaderConfig enables incremental MERGE loading
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		BatchSize:   DefaultBatchSize,
		Incremental: true,
	}
}

// Loader writes nodes and relationships into Neo4j in batches.
//
// Incremental mode prefilters against the URNs and (start, type, end)
// triples already in the graph, then MERGEs what remains so reruns are
// idempotent. Full-rebuild mode expects a cleared database and CREATEs.
type Loader struct {
	client *Client
	config LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a loader with the given config
func NewLoader(client *Client, config LoaderConfig) *Loader {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	return &Loader{
		client: client,
		config: config,
		logger: slog.Default().With("component", "graph_loader"),
	}
}

// LoadResult reports what a Load call wrote and what it skipped as
// already present.
type LoadResult struct {
	NodesWritten         int
	RelationshipsWritten int
	NodesSkipped         int
	RelationshipsSkipped int
}

// Triple identifies a relationship by its endpoints and type for
// incremental prefiltering. Parallel edges of the same type collapse
// into one triple, matching what MERGE would do.
type Triple struct {
	Start string
	Type  string
	End   string
}

// Clear removes every node and relationship from the database
func (l *Loader) Clear(ctx context.Context) error {
	l.logger.Warn("clearing graph database", "database", l.client.Database())
	if _, err := l.client.ExecuteQuery(ctx, "MATCH (n) DETACH DELETE (n)", nil); err != nil {
		return fmt.Errorf("clear database: %w", err)
	}
	return nil
}

// ExistingURNs returns the urn of every node already in the graph
func (l *Loader) ExistingURNs(ctx context.Context) (map[string]bool, error) {
	records, err := l.client.ExecuteRead(ctx,
		"MATCH (n) WHERE n.urn IS NOT NULL RETURN n.urn as urn", nil)
	if err != nil {
		return nil, fmt.Errorf("query existing nodes: %w", err)
	}

	urns := make(map[string]bool, len(records))
	for _, record := range records {
		if urn, ok := record["urn"].(string); ok {
			urns[urn] = true
		}
	}
	return urns, nil
}

// ExistingTriples returns every (start, type, end) relationship triple
// already in the graph
func (l *Loader) ExistingTriples(ctx context.Context) (map[Triple]bool, error) {
	query := `
		MATCH (start)-[r]->(end)
		WHERE start.urn IS NOT NULL AND end.urn IS NOT NULL
		RETURN start.urn as start_urn, type(r) as rel_type, end.urn as end_urn
	`
	records, err := l.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("query existing relationships: %w", err)
	}

	triples := make(map[Triple]bool, len(records))
	for _, record := range records {
		start, _ := record["start_urn"].(string)
		relType, _ := record["rel_type"].(string)
		end, _ := record["end_urn"].(string)
		triples[Triple{Start: start, Type: relType, End: end}] = true
	}
	return triples, nil
}

// Load writes the given nodes and relationships. In incremental mode it
// first filters out what the graph already holds.
func (l *Loader) Load(ctx context.Context, nodes []*Node, rels []Relationship) (*LoadResult, error) {
	result := &LoadResult{}

	if l.config.Incremental {
		existingURNs, err := l.ExistingURNs(ctx)
		if err != nil {
			return result, err
		}
		existingTriples, err := l.ExistingTriples(ctx)
		if err != nil {
			return result, err
		}

		total := len(nodes)
		nodes = filterNewNodes(nodes, existingURNs)
		result.NodesSkipped = total - len(nodes)

		total = len(rels)
		rels = filterNewRelationships(rels, existingTriples)
		result.RelationshipsSkipped = total - len(rels)

		l.logger.Info("incremental prefilter",
			"existing_nodes", len(existingURNs),
			"existing_relationships", len(existingTriples),
			"new_nodes", len(nodes),
			"new_relationships", len(rels))

		if len(nodes) == 0 && len(rels) == 0 {
			return result, nil
		}
	}

	if err := l.loadNodes(ctx, nodes, result); err != nil {
		return result, err
	}
	if err := l.loadRelationships(ctx, rels, result); err != nil {
		return result, err
	}
	return result, nil
}

func (l *Loader) loadNodes(ctx context.Context, nodes []*Node, result *LoadResult) error {
	for i := 0; i < len(nodes); i += l.config.BatchSize {
		end := i + l.config.BatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[i:end]

		statements := make([]Statement, 0, len(batch))
		for _, node := range batch {
			stmt, err := l.nodeStatement(node)
			if err != nil {
				return err
			}
			statements = append(statements, stmt)
		}

		batchNum := i/l.config.BatchSize + 1
		if err := l.client.WriteBatch(ctx, "graph_load", statements); err != nil {
			return fmt.Errorf("node batch %d: %w", batchNum, err)
		}
		result.NodesWritten += len(batch)
		l.logger.Info("nodes written", "count", len(batch), "batch", batchNum)
	}
	return nil
}

func (l *Loader) loadRelationships(ctx context.Context, rels []Relationship, result *LoadResult) error {
	for i := 0; i < len(rels); i += l.config.BatchSize {
		end := i + l.config.BatchSize
		if end > len(rels) {
			end = len(rels)
		}
		batch := rels[i:end]

		statements := make([]Statement, 0, len(batch))
		for _, rel := range batch {
			stmt, err := l.relationshipStatement(rel)
			if err != nil {
				return err
			}
			statements = append(statements, stmt)
		}

		batchNum := i/l.config.BatchSize + 1
		if err := l.client.WriteBatch(ctx, "graph_load", statements); err != nil {
			return fmt.Errorf("relationship batch %d: %w", batchNum, err)
		}
		result.RelationshipsWritten += len(batch)
		l.logger.Info("relationships written", "count", len(batch), "batch", batchNum)
	}
	return nil
}

// nodeStatement builds the upsert for one node. Labels are interpolated
// into the query text, so they are validated first.
func (l *Loader) nodeStatement(node *Node) (Statement, error) {
	if len(node.Labels) == 0 {
		return Statement{}, fmt.Errorf("node %q has no labels", node.ID)
	}
	for _, label := range node.Labels {
		if !identifierPattern.MatchString(label) {
			return Statement{}, fmt.Errorf("node %q has invalid label %q", node.ID, label)
		}
	}
	labels := strings.Join(node.Labels, ":")

	props := node.Properties
	if props == nil {
		props = map[string]interface{}{"urn": node.ID}
	}

	urn, hasURN := props["urn"].(string)
	if l.config.Incremental && hasURN && urn != "" {
		query := fmt.Sprintf(`
			MERGE (n:%s {urn: $urn})
			ON CREATE SET n = $props
			ON MATCH SET n += $props
		`, labels)
		return Statement{
			Query:  query,
			Params: map[string]any{"urn": urn, "props": props},
		}, nil
	}

	query := fmt.Sprintf("CREATE (n:%s) SET n = $props", labels)
	return Statement{
		Query:  query,
		Params: map[string]any{"props": props},
	}, nil
}

// relationshipStatement builds the upsert for one relationship. The
// endpoints are matched by urn across all labels.
func (l *Loader) relationshipStatement(rel Relationship) (Statement, error) {
	if !identifierPattern.MatchString(rel.Type) {
		return Statement{}, fmt.Errorf("invalid relationship type %q", rel.Type)
	}

	props := rel.Properties
	if props == nil {
		props = map[string]interface{}{}
	}

	var query string
	if l.config.Incremental {
		query = fmt.Sprintf(`
			MATCH (start {urn: $startNode})
			MATCH (end {urn: $endNode})
			MERGE (start)-[r:%s]->(end)
			ON CREATE SET r = $props
		`, rel.Type)
	} else {
		query = fmt.Sprintf(`
			MATCH (start {urn: $startNode})
			MATCH (end {urn: $endNode})
			CREATE (start)-[r:%s]->(end)
			SET r = $props
		`, rel.Type)
	}

	return Statement{
		Query: query,
		Params: map[string]any{
			"startNode": rel.From,
			"endNode":   rel.To,
			"props":     props,
		},
	}, nil
}

func filterNewNodes(nodes []*Node, existing map[string]bool) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		urn, _ := node.Properties["urn"].(string)
		if urn == "" || !existing[urn] {
			out = append(out, node)
		}
	}
	return out
}

func filterNewRelationships(rels []Relationship, existing map[Triple]bool) []Relationship {
	out := make([]Relationship, 0, len(rels))
	for _, rel := range rels {
		if !existing[Triple{Start: rel.From, Type: rel.Type, End: rel.To}] {
			out = append(out, rel)
		}
	}
	return out
}
