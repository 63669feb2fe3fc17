package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd)
		},
	}
}

func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Corpus %s\n", AppVersion)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(out)

	cfg, _, err := loadConfig()
	if err != nil {
		// Version must still print without a reachable database or keys.
		fmt.Fprintf(out, "Configuration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Provider)
	fmt.Fprintf(out, "  Embedder model: %s\n", cfg.EmbedderModel)
	fmt.Fprintf(out, "  Chunking: %s (size %d, overlap %d)\n",
		cfg.ChunkingStrategy, cfg.ChunkSize, cfg.ChunkOverlap)
	fmt.Fprintf(out, "  Database: %s:%d/%s\n",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey != "" && len(geminiKey) >= 8 {
		fmt.Fprintf(out, "  GEMINI_API_KEY: %s...%s (configured)\n",
			geminiKey[:4], geminiKey[len(geminiKey)-4:])
	} else {
		fmt.Fprintln(out, "  GEMINI_API_KEY: Not set")
	}

	return nil
}
