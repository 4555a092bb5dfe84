package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/amai-lab/linkgraph/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextFetch - linkgraph fetch requires LinkedIn API settings
	ValidationContextFetch ValidationContext = "fetch"
	// ValidationContextBuild - linkgraph build requires Neo4j
	ValidationContextBuild ValidationContext = "build"
	// ValidationContextEnrich - enrichment requires Neo4j, LLM is optional
	ValidationContextEnrich ValidationContext = "enrich"
	// ValidationContextReview - review commands require a queue backend
	ValidationContextReview ValidationContext = "review"
	// ValidationContextIndex - content indexing requires a vector backend
	ValidationContextIndex ValidationContext = "index"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Validate validates configuration for the given context with auto-detected mode
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	mode := DetectMode()
	return c.ValidateWithMode(ctx, mode)
}

// ValidateWithMode validates configuration for the given context and deployment mode
func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextFetch:
		c.validateLinkedIn(result)
		c.validateStorage(result)
	case ValidationContextBuild:
		c.validateNeo4j(result, true, mode)
		c.validateStorage(result)
	case ValidationContextEnrich:
		c.validateNeo4j(result, true, mode)
		c.validateLLM(result, false)
	case ValidationContextReview:
		c.validateReview(result)
		c.validateStorage(result)
	case ValidationContextIndex:
		c.validateIndex(result, mode)
		c.validateLLM(result, false)
	case ValidationContextAll:
		c.validateLinkedIn(result)
		c.validateNeo4j(result, false, mode)
		c.validateStorage(result)
		c.validateLLM(result, false)
		c.validateReview(result)
		c.validateIndex(result, mode)
	}

	return result
}

// ValidateOrFatal validates configuration and exits if invalid (auto-detects mode)
func (c *Config) ValidateOrFatal(ctx ValidationContext) {
	result := c.Validate(ctx)
	if result.HasErrors() {
		fmt.Println(result.Error())
		fmt.Printf("\nDeployment mode: %s (%s)\n", DetectMode(), DetectMode().Description())
		os.Exit(1)
	}

	if len(result.Warnings) > 0 {
		fmt.Println("Configuration warnings:")
		for _, warn := range result.Warnings {
			fmt.Printf("  ⚠️  %s\n", warn)
		}
	}
}

func (c *Config) validateLinkedIn(result *ValidationResult) {
	if c.LinkedIn.BaseURL == "" {
		result.AddError("LinkedIn base URL is required but not set")
	} else if _, err := url.Parse(c.LinkedIn.BaseURL); err != nil {
		result.AddError("LinkedIn base URL is invalid: %v", err)
	}

	if c.LinkedIn.Version == "" {
		result.AddError("LinkedIn API version is required (LinkedIn-Version header, e.g. 202312)")
	}

	if c.LinkedIn.PageSize <= 0 || c.LinkedIn.PageSize > 50 {
		result.AddError("LinkedIn page size must be between 1 and 50 (got %d)", c.LinkedIn.PageSize)
	}
}

func (c *Config) validateNeo4j(result *ValidationResult, required bool, mode DeploymentMode) {
	if c.Neo4j.URI == "" {
		if required {
			result.AddError("NEO4J_URI is required but not set")
		} else {
			result.AddWarning("NEO4J_URI is not set")
		}
		return
	}

	if _, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	}

	if c.Neo4j.Username == "" {
		if required {
			result.AddError("NEO4J_USERNAME is required but not set")
		} else {
			result.AddWarning("NEO4J_USERNAME is not set")
		}
	}

	if c.Neo4j.Password == "" {
		if required {
			result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or .env file.")
		} else {
			result.AddWarning("NEO4J_PASSWORD is not set")
		}
	} else if mode.RequiresSecureCredentials() {
		// Reject well-known defaults outside local development
		insecurePasswords := []string{"password", "neo4j", "linkgraph123"}
		for _, insecure := range insecurePasswords {
			if c.Neo4j.Password == insecure {
				result.AddError("NEO4J_PASSWORD is set to an insecure default (%s). Set a real password via %s.", insecure, mode.ConfigSource())
			}
		}
	} else if mode.AllowsDevelopmentDefaults() {
		// Local Docker defaults are fine; only flag the very common ones
		for _, insecure := range []string{"password", "neo4j"} {
			if c.Neo4j.Password == insecure {
				result.AddWarning("NEO4J_PASSWORD is set to a very common password (%s). Consider changing it even for local development.", insecure)
			}
		}
	}

	if c.Neo4j.BatchSize <= 0 {
		result.AddError("Neo4j batch size must be positive (got %d)", c.Neo4j.BatchSize)
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	if c.Storage.DataDir == "" {
		result.AddError("Storage data directory is required but not set")
	}
	if c.Storage.CSVPath == "" {
		result.AddError("CSV output path is required but not set")
	}
	if c.Storage.CachePath == "" {
		result.AddError("Changelog cache path is required but not set")
	}
}

func (c *Config) validateLLM(result *ValidationResult, required bool) {
	switch c.LLM.Provider {
	case "openai", "ollama", "gemini", "":
	default:
		result.AddError("Unknown LLM provider %q (expected openai, ollama, or gemini)", c.LLM.Provider)
	}

	if c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		if required {
			result.AddError("LLM API key is required but not set")
		} else {
			result.AddWarning("LLM API key is not set; enrichment will fall back to ollama at %s", c.LLM.OllamaBaseURL)
		}
	}

	if c.LLM.EmbeddingDimensions <= 0 {
		result.AddError("Embedding dimensions must be positive (got %d)", c.LLM.EmbeddingDimensions)
	}
}

func (c *Config) validateReview(result *ValidationResult) {
	switch c.Review.Backend {
	case "sqlite":
		if c.Review.DBPath == "" {
			result.AddError("Review DB path is required for the sqlite backend")
		}
	case "postgres":
		if c.Review.PostgresDSN == "" {
			result.AddError("REVIEW_POSTGRES_DSN is required for the postgres backend")
		}
	default:
		result.AddError("Unknown review backend %q (expected sqlite or postgres)", c.Review.Backend)
	}

	if c.Review.Port <= 0 || c.Review.Port > 65535 {
		result.AddError("Review UI port must be between 1 and 65535 (got %d)", c.Review.Port)
	}
}

func (c *Config) validateIndex(result *ValidationResult, mode DeploymentMode) {
	switch c.Index.Backend {
	case "neo4j":
		c.validateNeo4j(result, true, mode)
	case "pgvector":
		if c.Index.PgvectorDSN == "" {
			result.AddError("PGVECTOR_DSN is required for the pgvector backend")
		}
	default:
		result.AddError("Unknown index backend %q (expected neo4j or pgvector)", c.Index.Backend)
	}

	if c.Index.ChunkSize <= 0 {
		result.AddError("Chunk size must be positive (got %d)", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		result.AddError("Chunk overlap must be non-negative and smaller than chunk size (got %d/%d)", c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	if c.Index.VectorIndex == "" {
		result.AddWarning("Vector index name is not set; index discovery will be used")
	}
}

// RequireNeo4j checks if Neo4j configuration is valid and returns error if not
func (c *Config) RequireNeo4j() error {
	result := &ValidationResult{Valid: true}
	mode := DetectMode()
	c.validateNeo4j(result, true, mode)

	if result.HasErrors() {
		return errors.ConfigError(result.Error())
	}

	return nil
}
