package enrich

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors locate post body text in LinkedIn page markup. Both
// logged-in and public page variants are covered; every match longer
// than 20 characters contributes, so split posts reassemble.
var contentSelectors = []string{
	"article[data-id]",
	".feed-shared-update-v2__description",
	".feed-shared-text",
	`[data-test-id="main-feed-activity-card"]`,
}

// ParsePostContent extracts post body text from page HTML. When no
// selector matches, og:description and the page title (before the
// " | LinkedIn" suffix) stand in.
func ParsePostContent(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				parts = append(parts, text)
			}
		})
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && og != "" {
		parts = append(parts, og)
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		if idx := strings.Index(title, " | "); idx >= 0 {
			parts = append(parts, title[:idx])
		}
	}
	return strings.Join(parts, "\n")
}

// IsCommentFeedURL reports whether a URL targets a comment rather than
// a post. Comment pages render the parent post's body, so extracting
// content from them would attach the wrong text.
func IsCommentFeedURL(url string) bool {
	return url != "" && strings.Contains(url, "urn:li:comment:")
}

// FetchPostContent fetches a post page and returns its body text plus
// any URLs shared in it
func FetchPostContent(ctx context.Context, fetcher *Fetcher, url string) (string, []string, error) {
	html, err := fetcher.FetchPage(ctx, url)
	if err != nil {
		return "", nil, err
	}
	content := ParsePostContent(html)
	return content, ExtractURLs(content), nil
}
