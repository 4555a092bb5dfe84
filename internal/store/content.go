package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// ContentStore keeps full post and comment bodies on disk. Graph nodes
// carry only a 200-char truncation; the file named by the URN hash has
// the whole text.
type ContentStore struct {
	dir string
}

// NewContentStore creates a content store rooted at dir
func NewContentStore(dir string) *ContentStore {
	return &ContentStore{dir: dir}
}

// Path returns the content file path for a URN
func (s *ContentStore) Path(urn string) string {
	sum := sha256.Sum256([]byte(urn))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".md")
}

// Save writes the full content for a URN
func (s *ContentStore) Save(urn, content string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	if err := os.WriteFile(s.Path(urn), []byte(content), 0644); err != nil {
		return fmt.Errorf("write content for %s: %w", urn, err)
	}
	return nil
}

// Load reads the full content for a URN
func (s *ContentStore) Load(urn string) (string, error) {
	data, err := os.ReadFile(s.Path(urn))
	if err != nil {
		return "", fmt.Errorf("read content for %s: %w", urn, err)
	}
	return string(data), nil
}

// Has reports whether content exists for a URN
func (s *ContentStore) Has(urn string) bool {
	_, err := os.Stat(s.Path(urn))
	return err == nil
}
