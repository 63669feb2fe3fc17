package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validSSLModes are the SSL modes accepted by libpq/pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// validStrategies are the chunking strategies the splitter implements.
var validStrategies = map[string]bool{
	StrategySemantic: true,
	StrategyFixed:    true,
	StrategySentence: true,
}

// Validate checks the configuration for invalid or out-of-range values.
// Returns a sentinel error (wrapped with context) on the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be one of: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}

	if c.Provider == ProviderOllama {
		u, err := url.Parse(c.OllamaHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q must be a valid URL", ErrInvalidOllamaHost, c.OllamaHost)
		}
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	if !validStrategies[c.ChunkingStrategy] {
		return fmt.Errorf("%w: %q (must be one of: semantic, fixed, sentence)", ErrInvalidChunkingStrategy, c.ChunkingStrategy)
	}
	if c.ChunkSize < 16 || c.ChunkSize > 8192 {
		return fmt.Errorf("%w: %d (must be 16-8192 tokens)", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: %d (must be >= 0 and < chunk size %d)", ErrInvalidChunkOverlap, c.ChunkOverlap, c.ChunkSize)
	}

	if c.WorkerCount < 1 || c.WorkerCount > 64 {
		return fmt.Errorf("%w: %d (must be 1-64)", ErrInvalidWorkerCount, c.WorkerCount)
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > 20 {
		return fmt.Errorf("%w: %d (must be 1-20)", ErrInvalidMaxAttempts, c.MaxAttempts)
	}
	if c.EmbedConcurrency < 1 || c.EmbedConcurrency > 32 {
		return fmt.Errorf("%w: %d (must be 1-32)", ErrInvalidEmbedConcurrency, c.EmbedConcurrency)
	}

	return nil
}
