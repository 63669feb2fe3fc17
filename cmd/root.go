// Package cmd implements the corpus command-line interface: schema
// migration, the background worker, and knowledge base and source
// management.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openhelm/corpus/internal/config"
	"github.com/openhelm/corpus/internal/log"
)

// orgID scopes every base and source operation to one organization.
var orgID string

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Corpus - knowledge indexing orchestrator",
	Long: `Corpus ingests documents into per-tenant knowledge bases: it extracts
text from files, web pages, and inline content, splits it into chunks,
embeds the chunks, and keeps a vector index in sync with the relational
records.

Run "corpus worker" to process sources in the background, and use the
base and source commands to manage what gets indexed.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the corpus CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&orgID, "org", "default", "organization id scoping all operations")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newWorkerCmd(),
		newBaseCmd(),
		newSourceCmd(),
		newVersionCmd(),
	)
}

// loadConfig initializes the default logger and loads configuration.
// Log level is controlled by the DEBUG environment variable.
func loadConfig() (*config.Config, log.Logger, error) {
	logger := log.New(log.Config{Level: logLevel()})
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
