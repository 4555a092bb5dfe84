package enrich

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amai-lab/linkgraph/internal/graph"
)

// AuthorProfile is an author identity scraped from a post page
type AuthorProfile struct {
	Name       string
	ProfileURL string
}

// countrySubdomain matches country mirrors like be.linkedin.com
var countrySubdomain = regexp.MustCompile(`https?://[a-z]{2}\.linkedin\.com`)

// ParseAuthorProfile finds the post author in page HTML. The author is
// the profile anchor carrying an actor-name tracking marker; image
// anchors (actor-image) carry no text and are skipped by the name
// length check.
func ParseAuthorProfile(html []byte) (*AuthorProfile, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false
	}

	var found *AuthorProfile
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/in/") || !strings.Contains(href, "actor-name") {
			return true
		}

		profileURL := strings.SplitN(href, "?", 2)[0]
		profileURL = countrySubdomain.ReplaceAllString(profileURL, "https://www.linkedin.com")
		if !strings.HasPrefix(profileURL, "https://www.linkedin.com") &&
			strings.Contains(profileURL, "//linkedin.com") {
			profileURL = strings.Replace(profileURL, "//linkedin.com", "//www.linkedin.com", 1)
		}

		name := strings.TrimSpace(s.Text())
		if len(name) > 1 && len(name) < 100 {
			found = &AuthorProfile{Name: name, ProfileURL: profileURL}
			return false
		}
		return true
	})

	return found, found != nil
}

// SyntheticPersonURN derives a stable URN for a person known only by
// profile URL. Scraped authors have no member id, so the hash stands in.
func SyntheticPersonURN(profileURL string) string {
	h := sha256.Sum256([]byte(profileURL))
	return "urn:li:person:extracted_" + hex.EncodeToString(h[:])[:16]
}

// AuthorResult summarizes an author enrichment run
type AuthorResult struct {
	Processed int
	Enriched  int
	Failed    int
}

// ProfileEnricher fills author_name/author_profile_url on Post nodes by
// fetching each post's page and scraping the author anchor
type ProfileEnricher struct {
	client  *graph.Client
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewProfileEnricher creates a profile enricher
func NewProfileEnricher(client *graph.Client, fetcher *Fetcher) *ProfileEnricher {
	return &ProfileEnricher{
		client:  client,
		fetcher: fetcher,
		logger:  slog.Default().With("component", "enrich_profiles"),
	}
}

// postRef is a post still missing author information
type postRef struct {
	URN string
	URL string
}

// postsWithoutAuthor lists posts that have a URL but no author yet
func (p *ProfileEnricher) postsWithoutAuthor(ctx context.Context, limit int) ([]postRef, error) {
	query := `
	MATCH (post:Post)
	WHERE post.url IS NOT NULL
	  AND post.url <> ''
	  AND (post.author_profile_url IS NULL OR post.author_profile_url = '')
	RETURN post.urn AS urn, post.url AS url`
	params := map[string]any{}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	records, err := p.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("listing posts without author: %w", err)
	}

	posts := make([]postRef, 0, len(records))
	for _, rec := range records {
		urn, _ := rec["urn"].(string)
		url, _ := rec["url"].(string)
		if urn != "" && url != "" {
			posts = append(posts, postRef{URN: urn, URL: url})
		}
	}
	return posts, nil
}

// EnrichAuthors scrapes author profiles for posts missing them and
// writes the results to the graph. Per-post failures are counted, never
// fatal: one private or deleted post must not stop the run.
func (p *ProfileEnricher) EnrichAuthors(ctx context.Context, limit int) (*AuthorResult, error) {
	posts, err := p.postsWithoutAuthor(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &AuthorResult{Processed: len(posts)}
	for i, post := range posts {
		p.logger.Info("processing post",
			"progress", fmt.Sprintf("%d/%d", i+1, len(posts)),
			"urn", post.URN)

		html, err := p.fetcher.FetchPage(ctx, post.URL)
		if err != nil {
			p.logger.Warn("page fetch failed", "url", post.URL, "error", err)
			result.Failed++
			continue
		}

		author, ok := ParseAuthorProfile(html)
		if !ok {
			p.logger.Warn("no author profile in page", "url", post.URL)
			result.Failed++
			continue
		}

		if err := p.updatePostAuthor(ctx, post.URN, author); err != nil {
			p.logger.Warn("author update failed", "urn", post.URN, "error", err)
			result.Failed++
			continue
		}

		p.logger.Info("author enriched", "urn", post.URN, "author", author.Name)
		result.Enriched++
	}
	return result, nil
}

// updatePostAuthor writes the author onto the post, refreshes any Person
// already linked to it, and merges a Person keyed by profile_url with an
// authorship edge. Legacy relationship names are matched alongside the
// canonical ones for graphs built before the schema migration.
func (p *ProfileEnricher) updatePostAuthor(ctx context.Context, postURN string, author *AuthorProfile) error {
	query := fmt.Sprintf(`
	MATCH (post:Post {urn: $urn})
	SET post.author_name = $name,
	    post.author_profile_url = $profile_url
	WITH post

	OPTIONAL MATCH (linked:Person)-[:%s|CREATES|%s]->(post)
	FOREACH (_ IN CASE WHEN linked IS NULL THEN [] ELSE [1] END |
	  SET linked.name = $name,
	      linked.profile_url = $profile_url
	)

	MERGE (person:Person {profile_url: $profile_url})
	ON CREATE SET person.name = $name,
	              person.urn = $person_urn,
	              person.person_id = $person_id
	ON MATCH SET person.name = $name

	MERGE (person)-[:%s]->(post)

	RETURN post.urn AS urn`,
		graph.RelIsAuthorOf, graph.RelReposts, graph.RelIsAuthorOf)

	personURN := SyntheticPersonURN(author.ProfileURL)
	records, err := p.client.ExecuteQuery(ctx, query, map[string]any{
		"urn":         postURN,
		"name":        author.Name,
		"profile_url": author.ProfileURL,
		"person_urn":  personURN,
		"person_id":   strings.TrimPrefix(personURN, "urn:li:person:"),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("post %s not found", postURN)
	}
	return nil
}
