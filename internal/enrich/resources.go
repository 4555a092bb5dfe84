package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amai-lab/linkgraph/internal/graph"
)

// ResourceResult summarizes a resource extraction run
type ResourceResult struct {
	Resources int
	Posts     int
	Comments  int
}

// ReclassifyResult summarizes a reclassification run
type ReclassifyResult struct {
	Updated   int
	Unchanged int
	Failed    int
}

// ResourceEnricher turns URLs shared in posts and comments into
// Resource nodes with REFERENCES edges
type ResourceEnricher struct {
	client *graph.Client
	logger *slog.Logger
}

// NewResourceEnricher creates a resource enricher
func NewResourceEnricher(client *graph.Client) *ResourceEnricher {
	return &ResourceEnricher{
		client: client,
		logger: slog.Default().With("component", "enrich_resources"),
	}
}

// sourceText is a post or comment body paired with the node it came from
type sourceText struct {
	URN  string
	Text string
}

func (r *ResourceEnricher) textNodes(ctx context.Context, label, prop string, limit int) ([]sourceText, error) {
	query := fmt.Sprintf(`
	MATCH (n:%s)
	WHERE n.%s IS NOT NULL
	  AND n.%s <> ''
	RETURN n.urn AS urn, n.%s AS text`, label, prop, prop, prop)
	params := map[string]any{}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	records, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("listing %s nodes: %w", label, err)
	}

	out := make([]sourceText, 0, len(records))
	for _, rec := range records {
		urn, _ := rec["urn"].(string)
		text, _ := rec["text"].(string)
		if urn != "" && text != "" {
			out = append(out, sourceText{URN: urn, Text: text})
		}
	}
	return out, nil
}

// EnrichResources scans post content and comment text stored in the
// graph for URLs and attaches Resource nodes
func (r *ResourceEnricher) EnrichResources(ctx context.Context, limit int) (*ResourceResult, error) {
	posts, err := r.textNodes(ctx, graph.LabelPost, "content", limit)
	if err != nil {
		return nil, err
	}
	comments, err := r.textNodes(ctx, graph.LabelComment, "text", limit)
	if err != nil {
		return nil, err
	}
	r.logger.Info("scanning for shared resources",
		"posts", len(posts), "comments", len(comments))

	return r.attachAll(ctx, posts, comments)
}

// EnrichFromCache scans the extraction cache instead of the graph. The
// cache holds full post text where the graph copy may be truncated.
func (r *ResourceEnricher) EnrichFromCache(ctx context.Context, data *graph.CacheData) (*ResourceResult, error) {
	var posts, comments []sourceText
	for _, node := range data.NodeList() {
		switch {
		case node.HasLabel(graph.LabelPost):
			if content, _ := node.Properties["content"].(string); content != "" {
				posts = append(posts, sourceText{URN: node.ID, Text: content})
			}
		case node.HasLabel(graph.LabelComment):
			if text, _ := node.Properties["text"].(string); text != "" {
				comments = append(comments, sourceText{URN: node.ID, Text: text})
			}
		}
	}
	r.logger.Info("scanning cache for shared resources",
		"posts", len(posts), "comments", len(comments))

	return r.attachAll(ctx, posts, comments)
}

func (r *ResourceEnricher) attachAll(ctx context.Context, posts, comments []sourceText) (*ResourceResult, error) {
	result := &ResourceResult{}
	for _, post := range posts {
		created, err := r.attachResources(ctx, graph.LabelPost, post.URN, ExtractURLs(post.Text))
		if err != nil {
			return result, err
		}
		if created > 0 {
			result.Resources += created
			result.Posts++
		}
	}
	for _, comment := range comments {
		created, err := r.attachResources(ctx, graph.LabelComment, comment.URN, ExtractURLs(comment.Text))
		if err != nil {
			return result, err
		}
		if created > 0 {
			result.Resources += created
			result.Comments++
		}
	}

	r.logger.Info("resource extraction finished",
		"resources", result.Resources,
		"posts", result.Posts,
		"comments", result.Comments)
	return result, nil
}

// attachResources merges Resource nodes for each shareable URL and
// links the source to them. LinkedIn navigation URLs are skipped.
func (r *ResourceEnricher) attachResources(ctx context.Context, sourceLabel, sourceURN string, urls []string) (int, error) {
	created := 0
	for _, url := range urls {
		if ShouldIgnoreURL(url) {
			continue
		}
		domain, resourceType := CategorizeURL(url)
		if domain == "" {
			continue
		}

		query := fmt.Sprintf(`
		MATCH (source:%s {urn: $source_urn})

		MERGE (resource:%s {url: $url})
		ON CREATE SET resource.domain = $domain,
		              resource.type = $type

		MERGE (source)-[:%s]->(resource)

		RETURN resource.url AS url`,
			sourceLabel, graph.LabelResource, graph.RelReferences)

		records, err := r.client.ExecuteQuery(ctx, query, map[string]any{
			"source_urn": sourceURN,
			"url":        url,
			"domain":     domain,
			"type":       resourceType,
		})
		if err != nil {
			return created, fmt.Errorf("attaching resource %s: %w", url, err)
		}
		if len(records) > 0 {
			created++
		}
	}
	return created, nil
}

// Reclassify re-derives domain and type for every Resource from its
// current URL. Needed after URL migrations change what a node points at.
func (r *ResourceEnricher) Reclassify(ctx context.Context, limit int) (*ReclassifyResult, error) {
	query := fmt.Sprintf(`
	MATCH (resource:%s)
	RETURN resource.url AS url
	ORDER BY resource.url`, graph.LabelResource)
	params := map[string]any{}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	records, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}

	result := &ReclassifyResult{}
	updateQuery := fmt.Sprintf(`
	MATCH (resource:%s {url: $url})
	WITH resource,
	     CASE WHEN resource.domain <> $domain OR resource.type <> $type
	     THEN 1 ELSE 0 END AS needs_update
	SET resource.domain = $domain,
	    resource.type = $type
	RETURN needs_update`, graph.LabelResource)

	for i, rec := range records {
		url, _ := rec["url"].(string)
		if url == "" {
			result.Failed++
			continue
		}

		domain, resourceType := CategorizeURL(url)
		if domain == "" {
			result.Failed++
			continue
		}

		rows, err := r.client.ExecuteQuery(ctx, updateQuery, map[string]any{
			"url":    url,
			"domain": domain,
			"type":   resourceType,
		})
		if err != nil {
			r.logger.Warn("reclassify failed", "url", url, "error", err)
			result.Failed++
			continue
		}

		if len(rows) > 0 {
			if needs, ok := rows[0]["needs_update"].(int64); ok && needs > 0 {
				result.Updated++
			} else {
				result.Unchanged++
			}
		} else {
			result.Unchanged++
		}

		if (i+1)%50 == 0 {
			r.logger.Info("reclassify progress",
				"done", i+1, "total", len(records),
				"updated", result.Updated, "failed", result.Failed)
		}
	}

	r.logger.Info("reclassification finished",
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", result.Failed)
	return result, nil
}
