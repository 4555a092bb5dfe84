package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.linkedin.com/rest", cfg.LinkedIn.BaseURL)
	assert.Equal(t, "202312", cfg.LinkedIn.Version)
	assert.Equal(t, 50, cfg.LinkedIn.PageSize)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, 500, cfg.Neo4j.BatchSize)

	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "linkedin_activities.csv"), cfg.Storage.CSVPath)
	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "changelog_cache.json"), cfg.Storage.CachePath)

	assert.Equal(t, "linkedin_content_index", cfg.Index.VectorIndex)
	assert.Equal(t, 500, cfg.Index.ChunkSize)
	assert.Equal(t, 100, cfg.Index.ChunkOverlap)
	assert.Equal(t, 50, cfg.Index.BatchSize)

	assert.Equal(t, "sqlite", cfg.Review.Backend)
	assert.Equal(t, 768, cfg.LLM.EmbeddingDimensions)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	// An explicit path that does not exist is an error
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	// No path at all falls back to defaults
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Neo4j.BatchSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://graph.example.com:7687")
	t.Setenv("NEO4J_PASSWORD", "s3cret-pass")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("VECTOR_INDEX_NAME", "my_index")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "bolt://graph.example.com:7687", cfg.Neo4j.URI)
	assert.Equal(t, "s3cret-pass", cfg.Neo4j.Password)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "my_index", cfg.Index.VectorIndex)
}

func TestEnvOverrides_DataDirMovesDerivedPaths(t *testing.T) {
	t.Setenv("LINKEDIN_DATA_DIR", "/tmp/lg-data")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/tmp/lg-data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("/tmp/lg-data", "linkedin_activities.csv"), cfg.Storage.CSVPath)
	assert.Equal(t, filepath.Join("/tmp/lg-data", "content"), cfg.Storage.ContentDir)
	assert.Equal(t, filepath.Join("/tmp/lg-data", "page_cache.db"), cfg.Enrich.PageCachePath)
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("LINKEDIN_DATA_DIR", "/custom/dir")
	assert.Equal(t, "/custom/dir", DefaultDataDir())

	t.Setenv("LINKEDIN_DATA_DIR", "")
	assert.Contains(t, DefaultDataDir(), ".linkedin_api")
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Neo4j.URI = "bolt://saved.example.com:7687"
	cfg.Index.ChunkSize = 800

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://saved.example.com:7687", loaded.Neo4j.URI)
	assert.Equal(t, 800, loaded.Index.ChunkSize)
}

func TestValidate_Build(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "a-real-password"

	result := cfg.ValidateWithMode(ValidationContextBuild, ModeDevelopment)
	assert.False(t, result.HasErrors(), result.Error())
}

func TestValidate_BuildMissingNeo4j(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.URI = ""

	result := cfg.ValidateWithMode(ValidationContextBuild, ModeDevelopment)
	assert.True(t, result.HasErrors())
}

func TestValidate_InsecurePasswordRejectedWhenPackaged(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "neo4j"

	dev := cfg.ValidateWithMode(ValidationContextBuild, ModeDevelopment)
	assert.False(t, dev.HasErrors(), "development mode tolerates local defaults")
	assert.NotEmpty(t, dev.Warnings, "common passwords still warn in development")

	packaged := cfg.ValidateWithMode(ValidationContextBuild, ModePackaged)
	assert.True(t, packaged.HasErrors())
}

func TestRequireNeo4j(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "a-real-password"
	assert.NoError(t, cfg.RequireNeo4j())

	cfg.Neo4j.URI = ""
	err := cfg.RequireNeo4j()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEO4J_URI")
}

func TestValidate_Fetch(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateWithMode(ValidationContextFetch, ModeDevelopment)
	assert.False(t, result.HasErrors(), result.Error())

	cfg.LinkedIn.PageSize = 200
	result = cfg.ValidateWithMode(ValidationContextFetch, ModeDevelopment)
	assert.True(t, result.HasErrors())
}

func TestValidate_ReviewBackends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"sqlite default ok", func(c *Config) {}, false},
		{"sqlite without path", func(c *Config) { c.Review.DBPath = "" }, true},
		{"postgres without dsn", func(c *Config) { c.Review.Backend = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Review.Backend = "postgres"
			c.Review.PostgresDSN = "postgres://localhost/review"
		}, false},
		{"unknown backend", func(c *Config) { c.Review.Backend = "mysql" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			result := cfg.ValidateWithMode(ValidationContextReview, ModeDevelopment)
			assert.Equal(t, tt.wantErr, result.HasErrors(), result.Error())
		})
	}
}

func TestValidate_IndexChunking(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "a-real-password"
	cfg.Index.ChunkOverlap = 500 // equal to chunk size

	result := cfg.ValidateWithMode(ValidationContextIndex, ModeDevelopment)
	assert.True(t, result.HasErrors())
}

func TestExpandPath(t *testing.T) {
	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.NotContains(t, expandPath("~/data"), "~")
}
