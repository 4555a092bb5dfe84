package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// LinkedIn API configuration
	LinkedIn LinkedInConfig `yaml:"linkedin"`

	// Neo4j graph database configuration
	Neo4j Neo4jConfig `yaml:"neo4j"`

	// Local storage configuration
	Storage StorageConfig `yaml:"storage"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Page enrichment settings
	Enrich EnrichConfig `yaml:"enrich"`

	// Review queue settings
	Review ReviewConfig `yaml:"review"`

	// Content index settings
	Index IndexConfig `yaml:"index"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

type LinkedInConfig struct {
	BaseURL   string `yaml:"base_url"`
	Version   string `yaml:"version"` // LinkedIn-Version header
	Account   string `yaml:"account"` // keychain account for the access token
	PageSize  int    `yaml:"page_size"`
	RateLimit int    `yaml:"rate_limit"` // requests per second
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Nodes and relationships per UNWIND batch
	BatchSize int `yaml:"batch_size"`
}

type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	CSVPath    string `yaml:"csv_path"`
	CachePath  string `yaml:"cache_path"`
	ContentDir string `yaml:"content_dir"`
	StatsPath  string `yaml:"stats_path"`
}

type LLMConfig struct {
	Provider            string `yaml:"provider"` // "openai", "ollama", "gemini"
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	OllamaBaseURL       string `yaml:"ollama_base_url"`
	OllamaModel         string `yaml:"ollama_model"`
	OllamaEmbedModel    string `yaml:"ollama_embed_model"`
	GeminiModel         string `yaml:"gemini_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	UseKeychain         bool   `yaml:"use_keychain"` // Prefer keychain over config file
}

type EnrichConfig struct {
	Wait          time.Duration `yaml:"wait"` // delay between page fetches
	Timeout       time.Duration `yaml:"timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	PageCachePath string        `yaml:"page_cache_path"`
	UserAgent     string        `yaml:"user_agent"`
}

type ReviewConfig struct {
	Backend     string `yaml:"backend"` // "sqlite", "postgres"
	DBPath      string `yaml:"db_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Port        int    `yaml:"port"`
	FixturesDir string `yaml:"fixtures_dir"`
}

type IndexConfig struct {
	Backend      string `yaml:"backend"` // "neo4j", "pgvector"
	VectorIndex  string `yaml:"vector_index"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size"`
	PgvectorDSN  string `yaml:"pgvector_dsn"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultDataDir resolves the data directory: LINKEDIN_DATA_DIR wins,
// otherwise ~/.linkedin_api/data
func DefaultDataDir() string {
	if dir := os.Getenv("LINKEDIN_DATA_DIR"); dir != "" {
		return expandPath(dir)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".linkedin_api", "data")
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := DefaultDataDir()
	return &Config{
		LinkedIn: LinkedInConfig{
			BaseURL:   "https://api.linkedin.com/rest",
			Version:   "202312",
			PageSize:  50,
			RateLimit: 2,
		},
		Neo4j: Neo4jConfig{
			URI:       "bolt://localhost:7687",
			Username:  "neo4j",
			Database:  "neo4j",
			BatchSize: 500,
		},
		Storage: StorageDefaults(dataDir),
		LLM: LLMConfig{
			Provider:            "openai",
			Model:               "gpt-4o",
			OllamaBaseURL:       "http://localhost:11434",
			OllamaModel:         "llama3.2:3b",
			OllamaEmbedModel:    "nomic-embed-text",
			GeminiModel:         "gemini-2.0-flash",
			EmbeddingModel:      "text-embedding-ada-002",
			EmbeddingDimensions: 768,
			UseKeychain:         true,
		},
		Enrich: EnrichConfig{
			Wait:          3500 * time.Millisecond,
			Timeout:       10 * time.Second,
			CacheTTL:      24 * time.Hour,
			PageCachePath: filepath.Join(dataDir, "page_cache.db"),
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		Review: ReviewConfig{
			Backend:     "sqlite",
			DBPath:      filepath.Join("outputs", "review", "review.sqlite3"),
			Port:        7860,
			FixturesDir: filepath.Join("outputs", "review", "fixtures"),
		},
		Index: IndexConfig{
			Backend:      "neo4j",
			VectorIndex:  "linkedin_content_index",
			ChunkSize:    500,
			ChunkOverlap: 100,
			BatchSize:    50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".linkgraph", "linkgraph.log"),
		},
	}
}

// StorageDefaults derives the file layout under a data directory
func StorageDefaults(dataDir string) StorageConfig {
	return StorageConfig{
		DataDir:    dataDir,
		CSVPath:    filepath.Join(dataDir, "linkedin_activities.csv"),
		CachePath:  filepath.Join(dataDir, "changelog_cache.json"),
		ContentDir: filepath.Join(dataDir, "content"),
		StatsPath:  filepath.Join(dataDir, "linkedin_statistics.json"),
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("linkedin", cfg.LinkedIn)
	v.SetDefault("neo4j", cfg.Neo4j)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("llm", cfg.LLM)
	v.SetDefault("enrich", cfg.Enrich)
	v.SetDefault("review", cfg.Review)
	v.SetDefault("index", cfg.Index)
	v.SetDefault("logging", cfg.Logging)

	// Load from environment variables
	v.SetEnvPrefix("LINKGRAPH")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath(".linkgraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".linkgraph"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	// Also try loading from home directory
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".linkgraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	// LinkedIn configuration
	if account := os.Getenv("LINKEDIN_ACCOUNT"); account != "" {
		cfg.LinkedIn.Account = account
	}
	if version := os.Getenv("LINKEDIN_VERSION"); version != "" {
		cfg.LinkedIn.Version = version
	}
	if rateLimit := os.Getenv("LINKEDIN_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.Atoi(rateLimit); err == nil {
			cfg.LinkedIn.RateLimit = rate
		}
	}

	// Neo4j configuration
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		cfg.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Neo4j.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Neo4j.Database = db
	}

	// LLM configuration - precedence: 1. Env var (highest) 2. Keychain 3. Config file
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		cfg.LLM.Provider = provider
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	} else if cfg.LLM.APIKey == "" && cfg.LLM.UseKeychain {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainKey, err := km.GetLLMKey(); err == nil && keychainKey != "" {
				cfg.LLM.APIKey = keychainKey
			}
		}
	}
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		cfg.LLM.BaseURL = url
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		cfg.LLM.OllamaBaseURL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		cfg.LLM.OllamaModel = model
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		cfg.LLM.EmbeddingModel = model
	}
	if dims := os.Getenv("EMBEDDING_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			cfg.LLM.EmbeddingDimensions = d
		}
	}

	// Storage configuration
	if dir := os.Getenv("LINKEDIN_DATA_DIR"); dir != "" {
		cfg.Storage = StorageDefaults(expandPath(dir))
		cfg.Enrich.PageCachePath = filepath.Join(cfg.Storage.DataDir, "page_cache.db")
	}

	// Review configuration
	if backend := os.Getenv("REVIEW_BACKEND"); backend != "" {
		cfg.Review.Backend = backend
	}
	if path := os.Getenv("REVIEW_DB_PATH"); path != "" {
		cfg.Review.DBPath = expandPath(path)
	}
	if dsn := os.Getenv("REVIEW_POSTGRES_DSN"); dsn != "" {
		cfg.Review.PostgresDSN = dsn
	}
	if port := os.Getenv("REVIEW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Review.Port = p
		}
	}

	// Index configuration
	if backend := os.Getenv("INDEX_BACKEND"); backend != "" {
		cfg.Index.Backend = backend
	}
	if name := os.Getenv("VECTOR_INDEX_NAME"); name != "" {
		cfg.Index.VectorIndex = name
	}
	if dsn := os.Getenv("PGVECTOR_DSN"); dsn != "" {
		cfg.Index.PgvectorDSN = dsn
	}

	// Logging configuration
	if level := os.Getenv("LINKGRAPH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv("LINKGRAPH_LOG_FILE"); file != "" {
		cfg.Logging.File = expandPath(file)
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("linkedin", c.LinkedIn)
	v.Set("neo4j", c.Neo4j)
	v.Set("storage", c.Storage)
	v.Set("llm", c.LLM)
	v.Set("enrich", c.Enrich)
	v.Set("review", c.Review)
	v.Set("index", c.Index)
	v.Set("logging", c.Logging)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
