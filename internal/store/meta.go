package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ContentMeta is the sidecar record kept next to a stored content file.
// The content filename is a hash, so the sidecar carries the URN; the
// summarization fields stay empty until the pipeline fills them.
type ContentMeta struct {
	URN             string   `json:"urn"`
	PostURL         string   `json:"post_url,omitempty"`
	URLs            []string `json:"urls,omitempty"`
	InteractionType string   `json:"interaction_type,omitempty"`
	Timestamp       int64    `json:"timestamp,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	Technologies    []string `json:"technologies,omitempty"`
	People          []string `json:"people,omitempty"`
	Category        string   `json:"category,omitempty"`
	RunID           string   `json:"run_id,omitempty"`
	SummarizedAt    string   `json:"summarized_at,omitempty"`
}

const metaSuffix = ".meta.json"

// MetaPath returns the sidecar path for a URN
func (s *ContentStore) MetaPath(urn string) string {
	return strings.TrimSuffix(s.Path(urn), ".md") + metaSuffix
}

// SaveMeta writes the sidecar for meta.URN, replacing any existing one
func (s *ContentStore) SaveMeta(meta *ContentMeta) error {
	if meta == nil || meta.URN == "" {
		return fmt.Errorf("content meta needs a urn")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta for %s: %w", meta.URN, err)
	}
	if err := os.WriteFile(s.MetaPath(meta.URN), raw, 0644); err != nil {
		return fmt.Errorf("write meta for %s: %w", meta.URN, err)
	}
	return nil
}

// LoadMeta reads the sidecar for a URN. A missing sidecar yields an
// empty record carrying the URN, so callers can merge and save.
func (s *ContentStore) LoadMeta(urn string) (*ContentMeta, error) {
	raw, err := os.ReadFile(s.MetaPath(urn))
	if err != nil {
		if os.IsNotExist(err) {
			return &ContentMeta{URN: urn}, nil
		}
		return nil, fmt.Errorf("read meta for %s: %w", urn, err)
	}
	meta := &ContentMeta{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("decode meta for %s: %w", urn, err)
	}
	if meta.URN == "" {
		meta.URN = urn
	}
	return meta, nil
}

// NeedingSummary lists sidecars without a summary whose content file
// exists, in filename order. limit <= 0 returns all. Content saved
// without a sidecar is unreachable here: the filename hash cannot be
// reversed to a URN.
func (s *ContentStore) NeedingSummary(limit int) ([]*ContentMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list content dir: %w", err)
	}

	var pending []*ContentMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		meta := &ContentMeta{}
		if err := json.Unmarshal(raw, meta); err != nil {
			continue
		}
		if meta.URN == "" || meta.Summary != "" || !s.Has(meta.URN) {
			continue
		}
		pending = append(pending, meta)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}
