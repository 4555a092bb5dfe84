package enrich

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern matches http(s) URLs in free text. The final character class
// excludes sentence punctuation so "see https://example.com." captures the
// URL without the period.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'{}|\\^` + "`" + `\[\]]+[^\s<>"'{}|\\^` + "`" + `\[\].,;:!?]`)

// ExtractURLs scans text for URLs and returns them deduplicated in first-seen
// order. Trailing punctuation (including a closing paren) is stripped, and
// candidates without a host are dropped.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, match := range urlPattern.FindAllString(text, -1) {
		cleaned := strings.TrimRight(match, ".,;:!?)")
		parsed, err := url.Parse(cleaned)
		if err != nil || parsed.Host == "" {
			continue
		}
		if !seen[cleaned] {
			seen[cleaned] = true
			out = append(out, cleaned)
		}
	}
	return out
}

// fileExtensionTypes maps extensions appearing anywhere in a URL to a resource
// type. Checked before domain rules so a direct PDF link on any host is a
// document.
var fileExtensionTypes = []struct {
	ext string
	typ string
}{
	{".pdf", "document"},
	{".doc", "document"},
	{".docx", "document"},
	{".ppt", "presentation"},
	{".pptx", "presentation"},
	{".mp4", "video"},
	{".jpg", "image"},
	{".jpeg", "image"},
	{".png", "image"},
	{".gif", "image"},
	{".svg", "image"},
}

// CategorizeURL derives a (domain, type) pair for a shared URL. The domain is
// the lowercased host without a leading "www.". Types: video, repository,
// documentation, research, document, presentation, image, article (default).
// Unparseable URLs yield ("", "unknown").
func CategorizeURL(rawURL string) (domain, resourceType string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", "unknown"
	}

	domain = strings.ToLower(parsed.Host)
	domain = strings.TrimPrefix(domain, "www.")
	urlLower := strings.ToLower(rawURL)
	pathLower := strings.ToLower(parsed.Path)

	for _, fe := range fileExtensionTypes {
		if strings.Contains(urlLower, fe.ext) {
			return domain, fe.typ
		}
	}

	switch {
	case containsAny(domain, "youtube.com", "youtu.be", "vimeo.com"):
		resourceType = "video"
	case containsAny(domain, "github.com", "gitlab.com", "bitbucket.org"):
		resourceType = "repository"
	case containsAny(domain, "docs.", "documentation", "readthedocs.io"):
		resourceType = "documentation"
	case containsAny(domain, "arxiv.org", "scholar.google.com"):
		resourceType = "research"
	case strings.Contains(domain, "linkedin.com") && strings.Contains(rawURL, "/pulse/"):
		resourceType = "article"
	case containsAny(domain, "medium.com", "substack.com", "dev.to", "hashnode.com", "blog.", "news."):
		resourceType = "article"
	case containsAny(pathLower, "/blog/", "/article/"):
		resourceType = "article"
	default:
		resourceType = "article"
	}
	return domain, resourceType
}

// ShouldIgnoreURL reports whether a URL points at LinkedIn navigation rather
// than shareable content: profiles, hashtag feeds, company pages, and feed
// links (posts are stored by URN, so their own feed URLs add nothing).
func ShouldIgnoreURL(rawURL string) bool {
	switch {
	case strings.Contains(rawURL, "linkedin.com/in/"),
		strings.Contains(rawURL, "linkedin.com/pub/"),
		strings.Contains(rawURL, "linkedin.com/feed/hashtag/"),
		strings.Contains(rawURL, "linkedin.com/company/"),
		strings.HasPrefix(rawURL, "https://www.linkedin.com/feed/"):
		return true
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
