package config

import (
	"errors"
	"testing"
)

// validConfig returns a config that passes validation; tests mutate one
// field at a time.
func validConfig() *Config {
	return &Config{
		Provider:         ProviderGemini,
		EmbedderModel:    DefaultGeminiEmbedderModel,
		OllamaHost:       "http://localhost:11434",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "corpus",
		PostgresPassword: "secret",
		PostgresDBName:   "corpus",
		PostgresSSLMode:  "disable",
		ChunkingStrategy: StrategySemantic,
		ChunkSize:        512,
		ChunkOverlap:     50,
		WorkerCount:      4,
		MaxAttempts:      3,
		EmbedConcurrency: 4,
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Nil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "anthropic" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "  " },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name: "bad ollama host",
			mutate: func(c *Config) {
				c.Provider = ProviderOllama
				c.OllamaHost = "not a url"
			},
			wantErr: ErrInvalidOllamaHost,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.PostgresPort = 0 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "bad ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "maybe" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.ChunkingStrategy = "paragraph" },
			wantErr: ErrInvalidChunkingStrategy,
		},
		{
			name:    "chunk size too small",
			mutate:  func(c *Config) { c.ChunkSize = 8 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "overlap >= size",
			mutate:  func(c *Config) { c.ChunkOverlap = 512 },
			wantErr: ErrInvalidChunkOverlap,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: ErrInvalidChunkOverlap,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.WorkerCount = 0 },
			wantErr: ErrInvalidWorkerCount,
		},
		{
			name:    "too many attempts",
			mutate:  func(c *Config) { c.MaxAttempts = 50 },
			wantErr: ErrInvalidMaxAttempts,
		},
		{
			name:    "zero embed concurrency",
			mutate:  func(c *Config) { c.EmbedConcurrency = 0 },
			wantErr: ErrInvalidEmbedConcurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
