package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorProfile(t *testing.T) {
	t.Run("finds actor name anchor", func(t *testing.T) {
		html := []byte(`<html><body>
		<a href="https://www.linkedin.com/in/jane-doe?miniProfileUrn=urn%3Ali%3Afs_miniProfile%3AABC&trk=public_post_feed-actor-name">Jane Doe</a>
		</body></html>`)

		author, ok := ParseAuthorProfile(html)
		require.True(t, ok)
		assert.Equal(t, "Jane Doe", author.Name)
		assert.Equal(t, "https://www.linkedin.com/in/jane-doe", author.ProfileURL)
	})

	t.Run("rewrites country subdomain", func(t *testing.T) {
		html := []byte(`<a href="https://be.linkedin.com/in/jan-janssens?trk=actor-name">Jan Janssens</a>`)

		author, ok := ParseAuthorProfile(html)
		require.True(t, ok)
		assert.Equal(t, "https://www.linkedin.com/in/jan-janssens", author.ProfileURL)
	})

	t.Run("adds www to bare linkedin host", func(t *testing.T) {
		html := []byte(`<a href="https://linkedin.com/in/jane-doe?trk=actor-name">Jane Doe</a>`)

		author, ok := ParseAuthorProfile(html)
		require.True(t, ok)
		assert.Equal(t, "https://www.linkedin.com/in/jane-doe", author.ProfileURL)
	})

	t.Run("skips anchors without a usable name", func(t *testing.T) {
		html := []byte(`<html><body>
		<a href="https://www.linkedin.com/in/jane-doe?trk=actor-name"><img src="avatar.jpg"/></a>
		<a href="https://www.linkedin.com/in/jane-doe?trk=feed-actor-name">Jane Doe</a>
		</body></html>`)

		author, ok := ParseAuthorProfile(html)
		require.True(t, ok)
		assert.Equal(t, "Jane Doe", author.Name)
	})

	t.Run("ignores profile links without actor marker", func(t *testing.T) {
		html := []byte(`<a href="https://www.linkedin.com/in/someone-else">Someone Else</a>`)

		_, ok := ParseAuthorProfile(html)
		assert.False(t, ok)
	})

	t.Run("no anchors", func(t *testing.T) {
		_, ok := ParseAuthorProfile([]byte(`<html><body><p>nothing here</p></body></html>`))
		assert.False(t, ok)
	})
}

func TestSyntheticPersonURN(t *testing.T) {
	urn := SyntheticPersonURN("https://www.linkedin.com/in/jane-doe")
	assert.Equal(t, "urn:li:person:extracted_f5ffc16b5f49ee76", urn)

	// Stable across calls, distinct across URLs
	assert.Equal(t, urn, SyntheticPersonURN("https://www.linkedin.com/in/jane-doe"))
	assert.NotEqual(t, urn, SyntheticPersonURN("https://www.linkedin.com/in/john-doe"))
}
