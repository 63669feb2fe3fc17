// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.corpus/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedding: provider selection and embedder model
//   - Storage: PostgreSQL connection (see storage.go)
//   - Indexing: default chunking parameters for new knowledge bases
//   - Worker: dispatcher pool sizing and retry policy
//   - Tracing: OTLP trace export (see observability.go)
//
// Sensitive fields (passwords, API keys) are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidChunkSize indicates the default chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidChunkOverlap indicates the chunk overlap is out of range.
	ErrInvalidChunkOverlap = errors.New("invalid chunk overlap")

	// ErrInvalidChunkingStrategy indicates an unknown chunking strategy.
	ErrInvalidChunkingStrategy = errors.New("invalid chunking strategy")

	// ErrInvalidWorkerCount indicates the worker count is out of range.
	ErrInvalidWorkerCount = errors.New("invalid worker count")

	// ErrInvalidMaxAttempts indicates the retry attempt limit is out of range.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts")

	// ErrInvalidEmbedConcurrency indicates the embed concurrency is out of range.
	ErrInvalidEmbedConcurrency = errors.New("invalid embed concurrency")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the vector_entries schema uses 768.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// Chunking strategy identifiers accepted for knowledge bases.
	StrategySemantic = "semantic"
	StrategyFixed    = "fixed"
	StrategySentence = "sentence"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Embedding provider configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "gemini" (default), "ollama", "openai"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Defaults applied to newly created knowledge bases
	ChunkingStrategy string `mapstructure:"chunking_strategy" json:"chunking_strategy"`
	ChunkSize        int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Worker configuration
	WorkerCount      int     `mapstructure:"worker_count" json:"worker_count"`
	MaxAttempts      int     `mapstructure:"max_attempts" json:"max_attempts"`
	EmbedConcurrency int     `mapstructure:"embed_concurrency" json:"embed_concurrency"`
	EmbedRatePerSec  float64 `mapstructure:"embed_rate_per_sec" json:"embed_rate_per_sec"` // 0 = unlimited

	// Tracing configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".corpus")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has highest priority for PostgreSQL settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "corpus")
	viper.SetDefault("postgres_password", "corpus_dev_password")
	viper.SetDefault("postgres_db_name", "corpus")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Chunking defaults for new knowledge bases
	viper.SetDefault("chunking_strategy", StrategySemantic)
	viper.SetDefault("chunk_size", 512)
	viper.SetDefault("chunk_overlap", 50)

	// Worker defaults
	viper.SetDefault("worker_count", 4)
	viper.SetDefault("max_attempts", 3)
	viper.SetDefault("embed_concurrency", 4)
	viper.SetDefault("embed_rate_per_sec", 0)

	// Tracing defaults
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "corpus")
	viper.SetDefault("tracing.enabled", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "CORPUS_PROVIDER")
	mustBind("embedder_model", "CORPUS_EMBEDDER_MODEL")
	mustBind("ollama_host", "CORPUS_OLLAMA_HOST")
	mustBind("postgres_password", "CORPUS_POSTGRES_PASSWORD")
	mustBind("worker_count", "CORPUS_WORKER_COUNT")
	mustBind("tracing.enabled", "CORPUS_TRACING_ENABLED")
	mustBind("tracing.endpoint", "CORPUS_TRACING_ENDPOINT")
}

// maskSecret masks a sensitive value for display, keeping only a short
// prefix for identification.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****"
}

// MarshalJSON masks sensitive fields when the config is serialized.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	masked.PostgresPassword = maskSecret(c.PostgresPassword)
	return json.Marshal(masked)
}

// String renders the config with secrets masked.
func (c Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
