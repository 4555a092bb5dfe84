package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/spf13/cobra"
)

var configSetKeychain bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Config inspects and edits the linkgraph configuration.

Settings load from .linkgraph/config.yaml (searched in the working
directory, then the home directory), overridden by environment
variables. Secrets display masked; 'config show' also reports where
each credential comes from.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set writes one configuration value to the config file
(~/.linkgraph/config.yaml unless --config points elsewhere).

Keys use dotted section.field form, e.g.:
  linkgraph config set neo4j.uri bolt://graph.internal:7687
  linkgraph config set llm.provider ollama
  linkgraph config set llm.api_key sk-... --keychain`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().BoolVar(&configSetKeychain, "keychain", false, "store the value in the OS keychain instead of the config file (llm.api_key only)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	keyring := config.NewKeyringManager()

	fmt.Printf("📋 linkgraph configuration\n\n")

	fmt.Printf("LinkedIn:\n")
	fmt.Printf("  base_url:  %s\n", cfg.LinkedIn.BaseURL)
	fmt.Printf("  version:   %s\n", cfg.LinkedIn.Version)
	fmt.Printf("  account:   %s\n", keyring.Account())
	tokenSource := keyring.GetTokenSource()
	fmt.Printf("  token:     %s\n", tokenSource.Recommended)

	fmt.Printf("\nNeo4j:\n")
	fmt.Printf("  uri:       %s\n", cfg.Neo4j.URI)
	fmt.Printf("  username:  %s\n", cfg.Neo4j.Username)
	fmt.Printf("  password:  %s\n", config.MaskKey(cfg.Neo4j.Password))
	fmt.Printf("  database:  %s\n", cfg.Neo4j.Database)

	fmt.Printf("\nStorage:\n")
	fmt.Printf("  data_dir:    %s\n", cfg.Storage.DataDir)
	fmt.Printf("  csv_path:    %s\n", cfg.Storage.CSVPath)
	fmt.Printf("  cache_path:  %s\n", cfg.Storage.CachePath)
	fmt.Printf("  content_dir: %s\n", cfg.Storage.ContentDir)

	fmt.Printf("\nLLM:\n")
	fmt.Printf("  provider:   %s\n", cfg.LLM.Provider)
	fmt.Printf("  model:      %s\n", cfg.LLM.Model)
	fmt.Printf("  api_key:    %s\n", config.MaskKey(cfg.LLM.APIKey))
	keySource := keyring.GetLLMKeySource(cfg)
	fmt.Printf("  key source: %s\n", keySource.Recommended)
	fmt.Printf("  embedding:  %s (%d dims)\n", cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingDimensions)

	fmt.Printf("\nReview:\n")
	fmt.Printf("  backend:  %s\n", cfg.Review.Backend)
	if cfg.Review.Backend == "postgres" {
		fmt.Printf("  dsn:      %s\n", config.MaskKey(cfg.Review.PostgresDSN))
	} else {
		fmt.Printf("  db_path:  %s\n", cfg.Review.DBPath)
	}
	fmt.Printf("  port:     %d\n", cfg.Review.Port)

	fmt.Printf("\nIndex:\n")
	fmt.Printf("  backend:      %s\n", cfg.Index.Backend)
	fmt.Printf("  vector_index: %s\n", cfg.Index.VectorIndex)
	fmt.Printf("  chunking:     %d chars, %d overlap, batches of %d\n",
		cfg.Index.ChunkSize, cfg.Index.ChunkOverlap, cfg.Index.BatchSize)

	fmt.Printf("\nLogging:\n")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  file:  %s\n", cfg.Logging.File)

	mode := config.DetectMode()
	fmt.Printf("\nDeployment mode: %s (%s)\n", mode, mode.Description())

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	// Keychain storage bypasses the config file entirely
	if key == "llm.api_key" && configSetKeychain {
		keyring := config.NewKeyringManager()
		if !keyring.IsAvailable() {
			return fmt.Errorf("OS keychain is not available on this system")
		}
		if err := keyring.SaveLLMKey(value); err != nil {
			return err
		}
		fmt.Printf("✓ LLM API key saved to keychain (%s)\n", config.MaskKey(value))
		return nil
	}
	if configSetKeychain {
		return fmt.Errorf("--keychain only applies to llm.api_key")
	}

	if err := applyConfigValue(cfg, key, value); err != nil {
		return err
	}

	path := cfgFile
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(homeDir, ".linkgraph", "config.yaml")
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	shown := value
	if key == "llm.api_key" || key == "neo4j.password" || key == "review.postgres_dsn" || key == "index.pgvector_dsn" {
		shown = config.MaskKey(value)
	}
	fmt.Printf("✓ %s = %s\n", key, shown)
	fmt.Printf("  Saved to %s\n", path)
	return nil
}

// applyConfigValue routes a dotted key to its config field
func applyConfigValue(c *config.Config, key, value string) error {
	intVal := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s expects a number, got %q", key, value)
		}
		return n, nil
	}

	switch key {
	case "linkedin.base_url":
		c.LinkedIn.BaseURL = value
	case "linkedin.version":
		c.LinkedIn.Version = value
	case "linkedin.account":
		c.LinkedIn.Account = value
	case "neo4j.uri":
		c.Neo4j.URI = value
	case "neo4j.username":
		c.Neo4j.Username = value
	case "neo4j.password":
		c.Neo4j.Password = value
	case "neo4j.database":
		c.Neo4j.Database = value
	case "storage.data_dir":
		// Derived paths (CSV, cache, content) follow the data dir
		c.Storage = config.StorageDefaults(value)
	case "llm.provider":
		c.LLM.Provider = value
	case "llm.api_key":
		c.LLM.APIKey = value
	case "llm.base_url":
		c.LLM.BaseURL = value
	case "llm.model":
		c.LLM.Model = value
	case "llm.embedding_model":
		c.LLM.EmbeddingModel = value
	case "llm.embedding_dimensions":
		n, err := intVal()
		if err != nil {
			return err
		}
		c.LLM.EmbeddingDimensions = n
	case "review.backend":
		c.Review.Backend = value
	case "review.db_path":
		c.Review.DBPath = value
	case "review.postgres_dsn":
		c.Review.PostgresDSN = value
	case "review.port":
		n, err := intVal()
		if err != nil {
			return err
		}
		c.Review.Port = n
	case "index.backend":
		c.Index.Backend = value
	case "index.vector_index":
		c.Index.VectorIndex = value
	case "index.pgvector_dsn":
		c.Index.PgvectorDSN = value
	case "logging.level":
		c.Logging.Level = value
	case "logging.file":
		c.Logging.File = value
	default:
		return fmt.Errorf("unknown config key: %s (see 'linkgraph config show')", key)
	}
	return nil
}
