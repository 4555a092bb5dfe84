package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/amai-lab/linkgraph/internal/config"
	"github.com/amai-lab/linkgraph/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linkgraph",
	Short: "linkgraph - LinkedIn activity knowledge graph",
	Long: `linkgraph turns your LinkedIn Member Data Portability changelog into a
Neo4j knowledge graph: fetch activities, extract people/posts/comments,
enrich with scraped pages and LLM extraction, then index and query it.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		setupPackageLogging()
	},
}

// setupPackageLogging routes the slog default used by the internal
// packages through the configured level and optional log file.
func setupPackageLogging() {
	level := logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = logging.DEBUG
	}

	wrapped, err := logging.NewLogger(logging.Config{
		Level:      level,
		OutputFile: cfg.Logging.File,
	})
	if err != nil {
		logger.WithError(err).Warn("Log file unavailable, logging to stderr only")
		wrapped, err = logging.NewLogger(logging.Config{Level: level})
		if err != nil {
			return
		}
	}
	slog.SetDefault(wrapped.Slog())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .linkgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`linkgraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}
