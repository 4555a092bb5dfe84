package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/amai-lab/linkgraph/internal/urn"
)

// Migrator runs in-place graph repairs: relationship renames, comment
// URN rewrites and repost author fixes. Every migration supports a dry
// run that reports without writing.
type Migrator struct {
	client *Client
	logger *slog.Logger
}

// NewMigrator creates a migrator on the given client
func NewMigrator(client *Client) *Migrator {
	return &Migrator{
		client: client,
		logger: slog.Default().With("component", "migrate"),
	}
}

// SchemaMigrationResult reports relationship renames per legacy type
type SchemaMigrationResult struct {
	Renamed map[string]int64
	Total   int64
}

// MigrateSchema renames legacy relationship types to their canonical
// forms, copying properties and deleting the old relationship.
func (m *Migrator) MigrateSchema(ctx context.Context, dryRun bool) (*SchemaMigrationResult, error) {
	renames := LegacyRelRenames()

	oldTypes := make([]string, 0, len(renames))
	for old := range renames {
		oldTypes = append(oldTypes, old)
	}
	sort.Strings(oldTypes)

	result := &SchemaMigrationResult{Renamed: make(map[string]int64)}
	for _, oldType := range oldTypes {
		newType := renames[oldType]

		countQuery := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) as cnt", oldType)
		count, err := m.client.CountQuery(ctx, countQuery, nil, "cnt")
		if err != nil {
			return result, fmt.Errorf("count %s relationships: %w", oldType, err)
		}

		if count == 0 {
			m.logger.Info("nothing to rename", "old", oldType, "new", newType)
			continue
		}

		if dryRun {
			m.logger.Info("would rename", "old", oldType, "new", newType, "count", count)
			result.Renamed[oldType] = count
			result.Total += count
			continue
		}

		migrateQuery := fmt.Sprintf(`
			MATCH (a)-[r:%s]->(b)
			WITH a, b, r, properties(r) AS props
			CREATE (a)-[r2:%s]->(b)
			SET r2 = props
			DELETE r
			RETURN count(r2) as migrated
		`, oldType, newType)

		records, err := m.client.ExecuteQuery(ctx, migrateQuery, nil)
		if err != nil {
			return result, fmt.Errorf("rename %s to %s: %w", oldType, newType, err)
		}

		migrated := count
		if len(records) > 0 {
			if n, ok := records[0]["migrated"].(int64); ok {
				migrated = n
			}
		}

		m.logger.Info("renamed relationships", "old", oldType, "new", newType, "count", migrated)
		result.Renamed[oldType] = migrated
		result.Total += migrated
	}
	return result, nil
}

// CommentURNMigration is one planned or applied comment rewrite
type CommentURNMigration struct {
	OldURN string
	NewURN string
	URL    string
}

// CommentURNResult reports a comment URN migration run
type CommentURNResult struct {
	Found    int
	Migrated int
	Merged   int
	Failed   int
	Planned  []CommentURNMigration
}

// commentOutgoingRels and commentIncomingRels are the relationship
// types re-pointed when two Comment nodes merge. Legacy names are
// included so the migration also works on graphs that predate the
// schema rename.
var (
	commentOutgoingRels = []string{RelCommentsOn, "ON_POST"}
	commentIncomingRels = []string{RelIsAuthorOf, "CREATES", RelReactedTo, "REACTS_TO"}
)

// MigrateCommentURNs rewrites Comment nodes that carry the legacy
// simple URN (urn:li:comment:123) to the composite form, recovering the
// parent from the COMMENTS_ON edge. When the composite URN already
// exists the two nodes merge and every referencing edge is re-pointed.
func (m *Migrator) MigrateCommentURNs(ctx context.Context, dryRun bool) (*CommentURNResult, error) {
	m.logReactionCoverage(ctx)

	candidates, err := m.findSimpleCommentURNs(ctx)
	if err != nil {
		return nil, err
	}

	result := &CommentURNResult{Found: len(candidates)}
	m.logger.Info("comments to migrate", "count", len(candidates))

	for _, candidate := range candidates {
		newURN := urn.BuildComment(candidate.parentURN, candidate.commentID)
		if newURN == "" {
			m.logger.Warn("cannot rebuild comment urn",
				"old_urn", candidate.oldURN, "parent", candidate.parentURN)
			result.Failed++
			continue
		}
		commentURL := urn.CommentToPostURL(newURN)

		if dryRun {
			result.Planned = append(result.Planned, CommentURNMigration{
				OldURN: candidate.oldURN,
				NewURN: newURN,
				URL:    commentURL,
			})
			continue
		}

		merged, err := m.migrateCommentURN(ctx, candidate.oldURN, newURN, commentURL)
		if err != nil {
			m.logger.Warn("comment migration failed",
				"old_urn", candidate.oldURN, "error", err)
			result.Failed++
			continue
		}
		if merged {
			result.Merged++
		}
		result.Migrated++
		m.logger.Info("comment migrated", "old_urn", candidate.oldURN, "new_urn", newURN)
	}
	return result, nil
}

type commentCandidate struct {
	oldURN    string
	commentID string
	parentURN string
}

// findSimpleCommentURNs returns comments still carrying a bare numeric
// URN, with the parent post recovered from the graph.
func (m *Migrator) findSimpleCommentURNs(ctx context.Context) ([]commentCandidate, error) {
	query := `
		MATCH (comment:Comment)
		WHERE comment.urn STARTS WITH 'urn:li:comment:'
		  AND NOT comment.urn CONTAINS '('
		OPTIONAL MATCH (comment)-[:COMMENTS_ON|ON_POST]->(parent)
		RETURN comment.urn as old_urn,
		       comment.comment_id as comment_id,
		       parent.urn as parent_urn,
		       labels(parent) as parent_labels
	`
	records, err := m.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("find simple comment urns: %w", err)
	}

	var candidates []commentCandidate
	for _, record := range records {
		oldURN, _ := record["old_urn"].(string)
		commentID, _ := record["comment_id"].(string)
		parentURN, _ := record["parent_urn"].(string)

		// A comment reply's parent is itself a comment; unwrap to the
		// post so the rebuilt URN stays two-level.
		if parentURN != "" && hasLabel(record["parent_labels"], LabelComment) {
			if parsed, ok := urn.ParseComment(parentURN); ok && parsed.ParentURN != "" {
				parentURN = parsed.ParentURN
			}
		}

		if commentID == "" {
			if idx := strings.LastIndex(oldURN, ":"); idx >= 0 {
				commentID = oldURN[idx+1:]
			}
		}

		if commentID == "" || parentURN == "" {
			continue
		}
		candidates = append(candidates, commentCandidate{
			oldURN:    oldURN,
			commentID: commentID,
			parentURN: parentURN,
		})
	}
	return candidates, nil
}

// migrateCommentURN rewrites one comment. Returns whether the rewrite
// merged into an existing node.
func (m *Migrator) migrateCommentURN(ctx context.Context, oldURN, newURN, commentURL string) (bool, error) {
	existing, err := m.client.CountQuery(ctx,
		"MATCH (c:Comment {urn: $new_urn}) RETURN count(c) as count",
		map[string]any{"new_urn": newURN}, "count")
	if err != nil {
		return false, err
	}

	params := map[string]any{
		"old_urn":     oldURN,
		"new_urn":     newURN,
		"comment_url": commentURL,
	}

	if existing == 0 {
		_, err := m.client.ExecuteQuery(ctx, `
			MATCH (comment:Comment {urn: $old_urn})
			SET comment.urn = $new_urn,
			    comment.url = $comment_url
		`, params)
		return false, err
	}

	// The composite node already exists: copy properties over, re-point
	// every edge, then drop the old node. One transaction so a failure
	// leaves both nodes intact.
	statements := []Statement{{
		Query: `
			MATCH (old:Comment {urn: $old_urn})
			MATCH (new:Comment {urn: $new_urn})
			SET new += properties(old)
			SET new.urn = $new_urn
			SET new.url = $comment_url
		`,
		Params: params,
	}}

	for _, relType := range commentOutgoingRels {
		statements = append(statements, Statement{
			Query: fmt.Sprintf(`
				MATCH (old:Comment {urn: $old_urn})-[r:%s]->(end)
				MATCH (new:Comment {urn: $new_urn})
				MERGE (new)-[r2:%s]->(end)
				SET r2 = properties(r)
				DELETE r
			`, relType, relType),
			Params: params,
		})
	}
	for _, relType := range commentIncomingRels {
		statements = append(statements, Statement{
			Query: fmt.Sprintf(`
				MATCH (start)-[r:%s]->(old:Comment {urn: $old_urn})
				MATCH (new:Comment {urn: $new_urn})
				MERGE (start)-[r2:%s]->(new)
				SET r2 = properties(r)
				DELETE r
			`, relType, relType),
			Params: params,
		})
	}

	statements = append(statements, Statement{
		Query:  "MATCH (old:Comment {urn: $old_urn}) DETACH DELETE old",
		Params: params,
	})

	if err := m.client.WriteBatch(ctx, "migration", statements); err != nil {
		return true, fmt.Errorf("merge into %s: %w", newURN, err)
	}
	return true, nil
}

func (m *Migrator) logReactionCoverage(ctx context.Context) {
	query := `
		MATCH ()-[r:REACTED_TO|REACTS_TO]->(target)
		RETURN
		    count(r) AS total_reactions,
		    count(CASE WHEN target:Post THEN 1 END) AS reactions_to_posts,
		    count(CASE WHEN target:Comment THEN 1 END) AS reactions_to_comments,
		    count(CASE WHEN NOT target:Post AND NOT target:Comment THEN 1 END) AS reactions_to_other
	`
	records, err := m.client.ExecuteRead(ctx, query, nil)
	if err != nil || len(records) == 0 {
		return
	}
	m.logger.Info("reaction coverage",
		"total", records[0]["total_reactions"],
		"to_posts", records[0]["reactions_to_posts"],
		"to_comments", records[0]["reactions_to_comments"],
		"to_other", records[0]["reactions_to_other"])
}

// RepostAuthorFix is one planned repost authorship correction
type RepostAuthorFix struct {
	ShareURN      string
	CurrentAuthor string
	CorrectAuthor string
}

// RepostAuthorResult reports a repost author fix run
type RepostAuthorResult struct {
	SharesInDB            int
	Mapped                int
	Updated               int
	SkippedNoMapping      int
	SkippedAlreadyCorrect int
	Planned               []RepostAuthorFix
}

// BuildReposterMap derives repost-share → reposter from extraction
// output: repost shares are Post nodes carrying original_post_urn, and
// the REPOSTS edge from a Person names who actually reshared.
func BuildReposterMap(nodes []*Node, rels []Relationship) map[string]string {
	repostShares := make(map[string]bool)
	persons := make(map[string]bool)
	for _, node := range nodes {
		if node.HasLabel(LabelPerson) {
			persons[node.ID] = true
			continue
		}
		if !node.HasLabel(LabelPost) {
			continue
		}
		if orig, ok := node.Properties["original_post_urn"].(string); ok && orig != "" {
			repostShares[node.ID] = true
		}
	}

	reposters := make(map[string]string)
	for _, rel := range rels {
		if rel.Type != RelReposts {
			continue
		}
		if persons[rel.From] && repostShares[rel.To] {
			reposters[rel.To] = rel.From
		}
	}
	return reposters
}

// FixRepostAuthors removes authorship edges that point at the wrong
// person for repost shares and merges the REPOSTS edge from the correct
// reposter, as derived by BuildReposterMap from re-extracted data.
func (m *Migrator) FixRepostAuthors(ctx context.Context, reposterByShare map[string]string, dryRun bool) (*RepostAuthorResult, error) {
	result := &RepostAuthorResult{Mapped: len(reposterByShare)}

	records, err := m.client.ExecuteRead(ctx, `
		MATCH (post:Post)
		WHERE post.original_post_urn IS NOT NULL AND post.urn IS NOT NULL
		RETURN post.urn as urn
	`, nil)
	if err != nil {
		return result, fmt.Errorf("find repost shares: %w", err)
	}
	result.SharesInDB = len(records)

	for _, record := range records {
		shareURN, _ := record["urn"].(string)
		correct := reposterByShare[shareURN]
		if correct == "" {
			result.SkippedNoMapping++
			continue
		}

		current, err := m.currentAuthorOf(ctx, shareURN)
		if err != nil {
			return result, err
		}
		if current == correct {
			result.SkippedAlreadyCorrect++
			continue
		}

		if dryRun {
			result.Planned = append(result.Planned, RepostAuthorFix{
				ShareURN:      shareURN,
				CurrentAuthor: current,
				CorrectAuthor: correct,
			})
			result.Updated++
			continue
		}

		if err := m.fixRepostAuthor(ctx, shareURN, correct); err != nil {
			return result, err
		}
		result.Updated++
		m.logger.Info("repost author fixed",
			"share", shareURN, "was", current, "now", correct)
	}
	return result, nil
}

// currentAuthorOf returns whoever currently holds an authorship or
// repost edge to the share, legacy names included.
func (m *Migrator) currentAuthorOf(ctx context.Context, shareURN string) (string, error) {
	records, err := m.client.ExecuteRead(ctx, `
		MATCH (p:Person)-[r:IS_AUTHOR_OF|CREATES|REPOSTS]->(post:Post {urn: $urn})
		RETURN p.urn as person_urn
		LIMIT 1
	`, map[string]any{"urn": shareURN})
	if err != nil {
		return "", fmt.Errorf("current author of %s: %w", shareURN, err)
	}
	if len(records) == 0 {
		return "", nil
	}
	person, _ := records[0]["person_urn"].(string)
	return person, nil
}

func (m *Migrator) fixRepostAuthor(ctx context.Context, shareURN, reposterURN string) error {
	_, err := m.client.ExecuteQuery(ctx, `
		MATCH (post:Post {urn: $post_urn})
		OPTIONAL MATCH (any_person:Person)-[r:IS_AUTHOR_OF|CREATES|REPOSTS]->(post)
		DELETE r
		WITH DISTINCT post
		MERGE (reposter:Person {urn: $reposter_urn})
		ON CREATE SET reposter.person_id = $person_id
		MERGE (reposter)-[:REPOSTS]->(post)
	`, map[string]any{
		"post_urn":     shareURN,
		"reposter_urn": reposterURN,
		"person_id":    urn.ExtractID(reposterURN),
	})
	if err != nil {
		return fmt.Errorf("fix repost author of %s: %w", shareURN, err)
	}
	return nil
}

// hasLabel checks a labels() value from a query result, which arrives
// as []interface{} of strings
func hasLabel(value interface{}, label string) bool {
	labels, ok := value.([]interface{})
	if !ok {
		return false
	}
	for _, l := range labels {
		if s, ok := l.(string); ok && s == label {
			return true
		}
	}
	return false
}
