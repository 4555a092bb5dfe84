package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	t.Run("finds urls and strips trailing punctuation", func(t *testing.T) {
		text := "Check out https://github.com/neo4j/neo4j-go-driver and https://arxiv.org/abs/2310.01234."
		urls := ExtractURLs(text)
		assert.Equal(t, []string{
			"https://github.com/neo4j/neo4j-go-driver",
			"https://arxiv.org/abs/2310.01234",
		}, urls)
	})

	t.Run("deduplicates in first-seen order", func(t *testing.T) {
		text := "https://example.com/a then https://example.com/b then https://example.com/a again"
		urls := ExtractURLs(text)
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
	})

	t.Run("strips closing paren", func(t *testing.T) {
		urls := ExtractURLs("(see https://example.com/docs)")
		assert.Equal(t, []string{"https://example.com/docs"}, urls)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Nil(t, ExtractURLs(""))
	})

	t.Run("text without urls", func(t *testing.T) {
		assert.Nil(t, ExtractURLs("no links here, just words"))
	})
}

func TestCategorizeURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDomain string
		wantType   string
	}{
		{"youtube", "https://www.youtube.com/watch?v=abc123", "youtube.com", "video"},
		{"short youtube", "https://youtu.be/abc123", "youtu.be", "video"},
		{"github", "https://github.com/golang/go", "github.com", "repository"},
		{"arxiv", "https://arxiv.org/abs/2310.01234", "arxiv.org", "research"},
		{"readthedocs", "https://requests.readthedocs.io/en/latest/", "requests.readthedocs.io", "documentation"},
		{"pdf anywhere", "https://example.com/paper.pdf", "example.com", "document"},
		{"slides", "https://example.com/talk.pptx", "example.com", "presentation"},
		{"linkedin pulse", "https://www.linkedin.com/pulse/some-article", "linkedin.com", "article"},
		{"medium", "https://medium.com/@someone/a-post", "medium.com", "article"},
		{"blog path", "https://example.com/blog/2024/post", "example.com", "article"},
		{"plain site defaults to article", "https://example.com/page", "example.com", "article"},
		{"unparseable", "https://", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain, resourceType := CategorizeURL(tt.url)
			assert.Equal(t, tt.wantDomain, domain)
			assert.Equal(t, tt.wantType, resourceType)
		})
	}
}

func TestShouldIgnoreURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"profile", "https://www.linkedin.com/in/someone", true},
		{"legacy profile", "https://www.linkedin.com/pub/someone/1/2/3", true},
		{"hashtag feed", "https://www.linkedin.com/feed/hashtag/golang", true},
		{"company page", "https://www.linkedin.com/company/acme", true},
		{"feed link", "https://www.linkedin.com/feed/update/urn:li:activity:123", true},
		{"pulse article", "https://www.linkedin.com/pulse/some-article", false},
		{"external site", "https://github.com/golang/go", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldIgnoreURL(tt.url))
		})
	}
}
