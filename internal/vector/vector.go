// Package vector stores and serves embedding vectors in PostgreSQL via
// the pgvector extension. Entries are keyed by the chunk id they mirror
// and partitioned by namespace, one namespace per knowledge base.
package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/openhelm/corpus/internal/knowledge"
)

// PGIndex implements knowledge.VectorIndex on the vector_entries table.
//
// Writes here are deliberately outside the orchestrator's relational
// transaction; the orchestrator sequences its calls so a stale or
// orphaned entry is always overwritten by the next upsert of the same id.
type PGIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGIndex creates a PGIndex backed by the given pool. A nil logger
// falls back to slog.Default().
func NewPGIndex(pool *pgxpool.Pool, logger *slog.Logger) *PGIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGIndex{pool: pool, logger: logger}
}

// Upsert writes all records in one batch. An existing id is overwritten,
// which makes retried processing runs idempotent at the index level.
func (x *PGIndex) Upsert(ctx context.Context, namespace string, records []knowledge.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO vector_entries (id, namespace, embedding, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET namespace = EXCLUDED.namespace,
			    embedding = EXCLUDED.embedding,
			    metadata = EXCLUDED.metadata`,
			r.ID, namespace, pgvector.NewVector(r.Values), r.Metadata)
	}

	results := x.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			x.logger.Debug("closing upsert batch", "error", err)
		}
	}()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting vectors into namespace %s: %w", namespace, err)
		}
	}

	x.logger.Debug("upserted vectors", "namespace", namespace, "count", len(records))
	return nil
}

// Delete removes the given ids from a namespace. Missing ids are not an
// error; deletes must stay idempotent for retried runs.
func (x *PGIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := x.pool.Exec(ctx, `
		DELETE FROM vector_entries
		WHERE namespace = $1 AND id = ANY($2)`, namespace, ids)
	if err != nil {
		return fmt.Errorf("deleting vectors from namespace %s: %w", namespace, err)
	}

	x.logger.Debug("deleted vectors", "namespace", namespace, "count", len(ids))
	return nil
}

// Match is one similarity search hit.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Search returns the top-k entries of a namespace by cosine similarity.
func (x *PGIndex) Search(ctx context.Context, namespace string, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := x.pool.Query(ctx, `
		SELECT id, 1 - (embedding <=> $2) AS score, metadata
		FROM vector_entries
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3`, namespace, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("searching namespace %s: %w", namespace, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Score, &m.Metadata); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count reports how many entries a namespace holds. Used by consistency
// checks that compare index size against relational chunk counts.
func (x *PGIndex) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := x.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM vector_entries WHERE namespace = $1`, namespace).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting namespace %s: %w", namespace, err)
	}
	return n, nil
}
