package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// EmbedderSetup contains the resources needed for embedder-based tests.
type EmbedderSetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   *slog.Logger
}

// SetupEmbedder creates a Google AI embedder with a logger for integration
// tests that exercise a real embedding provider.
//
// Requirements:
//   - GEMINI_API_KEY environment variable must be set
//   - Skips the test if the API key is not available
func SetupEmbedder(t *testing.T) *EmbedderSetup {
	t.Helper()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring embedder")
	}

	ctx := context.Background()

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(g, "gemini-embedding-001")
	if embedder == nil {
		t.Fatal("Failed to create Google AI embedder")
	}

	return &EmbedderSetup{
		Embedder: embedder,
		Genkit:   g,
		Logger:   DiscardLogger(),
	}
}
