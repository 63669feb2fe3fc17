// Package embed produces embedding vectors for chunk text. The Genkit
// type bridges a configured provider model to the pipeline; Pool adds
// bounded concurrency and rate limiting on top of any embedder.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"

	"github.com/openhelm/corpus/internal/knowledge"
)

// Dimension is the vector width every provider is configured to emit. It
// must match the vector_entries column type.
const Dimension = 768

// Genkit implements knowledge.Embedder on an ai.Embedder.
type Genkit struct {
	embedder ai.Embedder
	// opts is forwarded verbatim as the provider-specific request
	// options, e.g. a genai config carrying the output dimensionality.
	opts   any
	logger *slog.Logger
}

// NewGenkit wraps a provider embedder. A nil logger falls back to
// slog.Default().
func NewGenkit(embedder ai.Embedder, opts any, logger *slog.Logger) (*Genkit, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Genkit{embedder: embedder, opts: opts, logger: logger}, nil
}

// EmbedBatch embeds all texts in one provider request. The response
// embeddings are aligned with the request documents, which preserves
// chunk order.
func (g *Genkit) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: g.opts,
	})
	if err != nil {
		return nil, &knowledge.EmbeddingError{
			Position: -1,
			Err:      fmt.Errorf("embedding %d texts: %w", len(texts), err),
		}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &knowledge.EmbeddingError{
			Position: -1,
			Err:      fmt.Errorf("response holds %d vectors for %d texts", len(resp.Embeddings), len(texts)),
		}
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, &knowledge.EmbeddingError{Position: i, Err: errors.New("empty embedding")}
		}
		out[i] = emb.Embedding
	}
	return out, nil
}
