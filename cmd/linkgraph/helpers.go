package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/graph"
	"github.com/amai-lab/linkgraph/internal/review"
)

// connectGraph opens the Neo4j client from config
func connectGraph(ctx context.Context) (*graph.Client, error) {
	if err := cfg.RequireNeo4j(); err != nil {
		return nil, err
	}

	client, err := graph.NewClientWithDatabase(ctx,
		cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, fmt.Errorf("Neo4j connection failed: %w", err)
	}
	return client, nil
}

// elementsJSONPath is where fetch writes raw changelog elements and
// extract reads them back from
func elementsJSONPath() string {
	return filepath.Join(cfg.Storage.DataDir, "changelog_elements.json")
}

// elementsFile is the on-disk shape of a fetched changelog dump. It
// mirrors the API page shape so curl output drops in unchanged.
type elementsFile struct {
	FetchedAt int64               `json:"fetched_at,omitempty"`
	Elements  []changelog.Element `json:"elements"`
}

// saveElements writes fetched elements as a JSON document
func saveElements(path string, fetchedAt int64, elements []changelog.Element) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(elementsFile{FetchedAt: fetchedAt, Elements: elements}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// loadElements reads a changelog dump. Both the bare element array and
// the {"elements": [...]} page shape decode.
func loadElements(path string) ([]changelog.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var bare []changelog.Element
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var wrapped elementsFile
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wrapped.Elements, nil
}

// fetchChangelog resolves the access token and pulls changelog elements
func fetchChangelog(ctx context.Context, opts changelog.Options) ([]changelog.Element, *changelog.FetchStats, error) {
	creds := config.NewCredentialManager()
	token, err := creds.GetAccessToken()
	if err != nil {
		return nil, nil, err
	}

	client := changelog.NewClient(token, cfg.LinkedIn)
	return changelog.NewFetcher(client).FetchAll(ctx, opts)
}

// openReviewStore picks the review queue backend from config
func openReviewStore() (review.Store, error) {
	switch cfg.Review.Backend {
	case "postgres":
		if cfg.Review.PostgresDSN == "" {
			return nil, fmt.Errorf("review backend is postgres but review.postgres_dsn is empty")
		}
		return review.NewPostgresStore(cfg.Review.PostgresDSN)
	case "", "sqlite":
		return review.NewSQLiteStore(cfg.Review.DBPath)
	default:
		return nil, fmt.Errorf("unsupported review backend: %s (use 'sqlite' or 'postgres')", cfg.Review.Backend)
	}
}
