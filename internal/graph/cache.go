package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CacheData is the on-disk shape of the changelog cache: everything
// extracted so far, merged across runs.
type CacheData struct {
	LastFetchedMS int64            `json:"last_fetched_ms"`
	Nodes         map[string]*Node `json:"nodes"`
	Relationships []Relationship   `json:"relationships"`
}

// NewCacheData creates an empty cache payload
func NewCacheData() *CacheData {
	return &CacheData{Nodes: make(map[string]*Node)}
}

// Cache persists extraction output between runs so the graph can be
// rebuilt without refetching the changelog.
type Cache struct {
	path string
}

// NewCache creates a cache at the given JSON path
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the cache file location
func (c *Cache) Path() string {
	return c.path
}

// Load reads the cache; a missing file yields an empty cache
func (c *Cache) Load() (*CacheData, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCacheData(), nil
		}
		return nil, fmt.Errorf("read changelog cache: %w", err)
	}

	data := NewCacheData()
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decode changelog cache: %w", err)
	}
	if data.Nodes == nil {
		data.Nodes = make(map[string]*Node)
	}
	return data, nil
}

// Save writes the cache to disk
func (c *Cache) Save(data *CacheData) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode changelog cache: %w", err)
	}

	if err := os.WriteFile(c.path, raw, 0644); err != nil {
		return fmt.Errorf("write changelog cache: %w", err)
	}
	return nil
}

// Merge folds new extraction output into the cache. Node properties
// merge by id with the later write winning per key; relationships
// deduplicate on (from, to, type, timestamp).
func (d *CacheData) Merge(nodes []*Node, rels []Relationship, fetchedAt int64) {
	for _, n := range nodes {
		existing, ok := d.Nodes[n.ID]
		if !ok {
			d.Nodes[n.ID] = n
			continue
		}
		for k, v := range n.Properties {
			existing.Properties[k] = v
		}
	}

	seen := make(map[string]bool, len(d.Relationships))
	for _, rel := range d.Relationships {
		seen[rel.Key()] = true
	}
	for _, rel := range rels {
		if seen[rel.Key()] {
			continue
		}
		seen[rel.Key()] = true
		d.Relationships = append(d.Relationships, rel)
	}

	if fetchedAt > d.LastFetchedMS {
		d.LastFetchedMS = fetchedAt
	}
}

// NodeList flattens the node map for loaders that take slices
func (d *CacheData) NodeList() []*Node {
	out := make([]*Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		out = append(out, n)
	}
	return out
}
