package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/genai"

	"github.com/openhelm/corpus/db"
	"github.com/openhelm/corpus/internal/chunk"
	"github.com/openhelm/corpus/internal/config"
	"github.com/openhelm/corpus/internal/database"
	"github.com/openhelm/corpus/internal/embed"
	"github.com/openhelm/corpus/internal/extract"
	"github.com/openhelm/corpus/internal/knowledge"
	"github.com/openhelm/corpus/internal/queue"
	"github.com/openhelm/corpus/internal/vector"
)

// lazyTrigger breaks the construction cycle between the orchestrator
// (which enqueues through a Trigger) and the dispatcher (which processes
// through the orchestrator).
type lazyTrigger struct {
	inner knowledge.Trigger
}

func (l *lazyTrigger) Enqueue(ctx context.Context, sourceID uuid.UUID) error {
	if l.inner == nil {
		return errors.New("dispatcher not initialized")
	}
	return l.inner.Enqueue(ctx, sourceID)
}

// pendingTrigger leaves enqueued sources in PENDING. Used by one-shot
// CLI wiring where no worker runs in-process; a worker's startup resume
// picks the sources up.
type pendingTrigger struct{}

func (pendingTrigger) Enqueue(context.Context, uuid.UUID) error { return nil }

// SetupLite initializes only the database-backed components: store and
// orchestrator CRUD, without an embedding provider or background workers.
// Sources created through this wiring stay PENDING until a worker runs.
func SetupLite(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, err
	}

	store := knowledge.NewStore(pool, logger)
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBPool:       pool,
		Store:        store,
		Orchestrator: knowledge.NewOrchestrator(store, nil, nil, nil, nil, pendingTrigger{}, logger),
	}, nil
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	genkitEmbedder, err := embed.NewGenkit(embedder, embedOptions(cfg), logger)
	if err != nil {
		return nil, err
	}
	embedPool, err := embed.NewPool(genkitEmbedder, cfg.EmbedConcurrency, cfg.EmbedRatePerSec, logger)
	if err != nil {
		return nil, err
	}
	a.embedPool = embedPool

	chunker, err := chunk.New(logger)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	a.Store = knowledge.NewStore(pool, logger)
	trigger := &lazyTrigger{}
	a.Orchestrator = knowledge.NewOrchestrator(
		a.Store,
		extract.NewService(nil, logger),
		chunker,
		embedPool,
		vector.NewPGIndex(pool, logger),
		trigger,
		logger,
	)

	dispatcher, err := queue.NewDispatcher(a.Orchestrator, queue.Config{
		Workers:     cfg.WorkerCount,
		MaxAttempts: cfg.MaxAttempts,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.Dispatcher = dispatcher
	trigger.inner = dispatcher

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export when tracing is enabled.
// Call ordering in Setup ensures the TracerProvider is ready before
// Genkit initializes.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	tc := cfg.Tracing
	if !tc.Enabled {
		return func() {}
	}

	endpoint := tc.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	// Set OTEL env vars for the TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector doesn't need TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit embedder registration (no auto-discovery)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"embedder", cfg.EmbedderModel, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "embedder", cfg.EmbedderModel)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "embedder", cfg.EmbedderModel)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	switch provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // "gemini"
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// embedOptions returns the provider-specific embed request options.
// Gemini models emit 3072-dimensional vectors by default and must be
// truncated to match the vector schema; ollama and openai embedders are
// selected by model, whose dimensionality is the deployer's concern.
func embedOptions(cfg *config.Config) any {
	provider := cfg.Provider
	if provider == "" || provider == config.ProviderGemini {
		dim := int32(embed.Dimension)
		return &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}
	return nil
}
