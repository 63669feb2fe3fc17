// Package app provides application initialization and dependency wiring.
//
// App is the container holding every long-lived component: the database
// pool, the embedding provider, the ingest orchestrator, and the
// background dispatcher. Setup builds it; Close releases it in reverse
// order.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhelm/corpus/internal/config"
	"github.com/openhelm/corpus/internal/embed"
	"github.com/openhelm/corpus/internal/knowledge"
	"github.com/openhelm/corpus/internal/queue"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store        *knowledge.Store
	Orchestrator *knowledge.Orchestrator
	Dispatcher   *queue.Dispatcher

	embedPool   *embed.Pool
	otelCleanup func()
}

// ResumePending enqueues every source whose last run never reached a
// terminal status. Called at worker startup for crash recovery.
func (a *App) ResumePending(ctx context.Context) (int, error) {
	ids, err := a.Store.ListUnfinishedSourceIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := a.Dispatcher.Enqueue(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(ids) > 0 {
		a.Logger.Info("resumed unfinished sources", "count", len(ids))
	}
	return len(ids), nil
}

// Close gracefully shuts down all resources. Workers drain before the
// database pool they depend on closes.
func (a *App) Close() error {
	a.logger().Info("shutting down")

	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.embedPool != nil {
		a.embedPool.Release()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
