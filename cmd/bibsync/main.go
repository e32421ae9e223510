// Package main provides the bibsync CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bibsync/bibsync/internal/config"
	"github.com/bibsync/bibsync/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verboseLog switches the logger to the development config at debug level
var verboseLog bool

// configPath overrides the default config file location
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibsync",
	Short: "Sync citation libraries into Notion",
	Long: `bibsync keeps a Notion database in step with a citation export.

Core features:
  - BibTeX and CSL-JSON parsing with recovery from malformed entries
  - Fuzzy matching of records to PDFs in a Google Drive folder
  - Schema-adaptive mapping onto whatever database layout you use
  - Idempotent upserts keyed by DOI, URL, citation key, or title
  - Full-text extraction (native or OCR) synced as page content
  - Optional local SQLite chunk mirror with embeddings

Configuration lives in a YAML file; secrets come from the environment
or a .env file. All commands output JSON unless --human is set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "Verbose console logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/bibsync/config.yml)")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustLogger builds the run logger, exits on error.
func mustLogger() *zap.SugaredLogger {
	log, err := logging.New(verboseLog)
	if err != nil {
		exitWithError(ExitError, "building logger: %v", err)
	}
	return log
}
