package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists knowledge bases, sources, documents, and chunks in
// PostgreSQL. All statements are single-row except DeleteDerivedState,
// which is the one multi-statement transaction in the system.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
// A nil logger falls back to slog.Default().
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// BaseParams are the settings for a new knowledge base.
type BaseParams struct {
	OrganizationID   string
	Name             string
	Description      string
	ChunkingStrategy string
	ChunkSize        int
	ChunkOverlap     int
	EmbeddingModel   string
}

// SourceParams are the payload for a new source. Exactly one raw-content
// reference must be set for the declared type; the Orchestrator validates
// this before calling CreateSource.
type SourceParams struct {
	KnowledgeBaseID uuid.UUID
	Name            string
	Type            SourceType
	FileURL         *string
	FileName        *string
	FileSize        *int64
	MimeType        *string
	WebsiteURL      *string
	TextContent     *string
}

const baseColumns = `id, organization_id, name, COALESCE(description, ''), chunking_strategy,
	chunk_size, chunk_overlap, embedding_model, sources_count, documents_count,
	chunks_count, total_tokens, created_at, updated_at, deleted_at`

const sourceColumns = `id, knowledge_base_id, name, type, file_url, file_name, file_size,
	mime_type, website_url, text_content, status, error_message, error_count,
	last_error_at, processing_progress, documents_count, chunks_count, tokens_count,
	last_sync_at, created_at, updated_at, deleted_at`

// CreateBase inserts a new knowledge base.
func (s *Store) CreateBase(ctx context.Context, p BaseParams) (*Base, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO knowledge_bases (organization_id, name, description, chunking_strategy,
			chunk_size, chunk_overlap, embedding_model)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING `+baseColumns,
		p.OrganizationID, p.Name, p.Description, p.ChunkingStrategy,
		p.ChunkSize, p.ChunkOverlap, p.EmbeddingModel)

	base, err := scanBase(row)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge base: %w", err)
	}

	s.logger.Debug("created knowledge base", "id", base.ID, "org", base.OrganizationID)
	return base, nil
}

// GetBase retrieves a non-deleted knowledge base by id.
// Returns ErrNotFound if missing or soft-deleted.
func (s *Store) GetBase(ctx context.Context, id uuid.UUID) (*Base, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+baseColumns+`
		FROM knowledge_bases
		WHERE id = $1 AND deleted_at IS NULL`, id)

	base, err := scanBase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("knowledge base %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting knowledge base %s: %w", id, err)
	}
	return base, nil
}

// ListBases lists an organization's non-deleted bases, newest first.
func (s *Store) ListBases(ctx context.Context, orgID string) ([]*Base, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+baseColumns+`
		FROM knowledge_bases
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge bases: %w", err)
	}
	defer rows.Close()

	var bases []*Base
	for rows.Next() {
		base, err := scanBase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning knowledge base: %w", err)
		}
		bases = append(bases, base)
	}
	return bases, rows.Err()
}

// UpdateBaseParams holds optional overrides; nil fields are left unchanged.
type UpdateBaseParams struct {
	Name             *string
	Description      *string
	ChunkingStrategy *string
	ChunkSize        *int
	ChunkOverlap     *int
}

// UpdateBase applies the non-nil fields of p to a base.
func (s *Store) UpdateBase(ctx context.Context, id uuid.UUID, p UpdateBaseParams) (*Base, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE knowledge_bases
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    chunking_strategy = COALESCE($4, chunking_strategy),
		    chunk_size = COALESCE($5, chunk_size),
		    chunk_overlap = COALESCE($6, chunk_overlap),
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+baseColumns,
		id, p.Name, p.Description, p.ChunkingStrategy, p.ChunkSize, p.ChunkOverlap)

	base, err := scanBase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("knowledge base %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("updating knowledge base %s: %w", id, err)
	}
	return base, nil
}

// SoftDeleteBase marks a base deleted. Sources are cascade soft-deleted.
func (s *Store) SoftDeleteBase(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("rollback after base delete", "error", err)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE knowledge_bases SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting knowledge base %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("knowledge base %s: %w", id, ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE knowledge_sources SET deleted_at = now(), updated_at = now()
		WHERE knowledge_base_id = $1 AND deleted_at IS NULL`, id); err != nil {
		return fmt.Errorf("deleting sources of base %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing base delete: %w", err)
	}

	s.logger.Debug("soft-deleted knowledge base", "id", id)
	return nil
}

// CreateSource inserts a PENDING source and increments the base's
// sources_count in one transaction.
func (s *Store) CreateSource(ctx context.Context, p SourceParams) (*Source, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("rollback after source create", "error", err)
		}
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO knowledge_sources (knowledge_base_id, name, type, file_url, file_name,
			file_size, mime_type, website_url, text_content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+sourceColumns,
		p.KnowledgeBaseID, p.Name, p.Type, p.FileURL, p.FileName,
		p.FileSize, p.MimeType, p.WebsiteURL, p.TextContent)

	source, err := scanSource(row)
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE knowledge_bases SET sources_count = sources_count + 1, updated_at = now()
		WHERE id = $1`, p.KnowledgeBaseID); err != nil {
		return nil, fmt.Errorf("incrementing sources count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing source create: %w", err)
	}

	s.logger.Debug("created source", "id", source.ID, "base_id", source.KnowledgeBaseID, "type", source.Type)
	return source, nil
}

// GetSource retrieves a non-deleted source by id.
// Returns ErrNotFound if missing or soft-deleted.
func (s *Store) GetSource(ctx context.Context, id uuid.UUID) (*Source, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sourceColumns+`
		FROM knowledge_sources
		WHERE id = $1 AND deleted_at IS NULL`, id)

	source, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting source %s: %w", id, err)
	}
	return source, nil
}

// ListSources lists a base's non-deleted sources, newest first.
func (s *Store) ListSources(ctx context.Context, baseID uuid.UUID) ([]*Source, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sourceColumns+`
		FROM knowledge_sources
		WHERE knowledge_base_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, baseID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// SoftDeleteSource marks a source deleted and decrements the base's
// sources_count. Derived documents, chunks, and vectors are NOT purged
// here; see Orchestrator.DeleteSource.
func (s *Store) SoftDeleteSource(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("rollback after source delete", "error", err)
		}
	}()

	var baseID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE knowledge_sources SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING knowledge_base_id`, id).Scan(&baseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("deleting source %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE knowledge_bases SET sources_count = GREATEST(sources_count - 1, 0), updated_at = now()
		WHERE id = $1`, baseID); err != nil {
		return fmt.Errorf("decrementing sources count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing source delete: %w", err)
	}

	s.logger.Debug("soft-deleted source", "id", id)
	return nil
}

// MarkSourceProcessing transitions a source to PROCESSING, clears the
// prior error message, and resets progress. Written before any extraction
// work so concurrent status reads reflect the in-flight run.
func (s *Store) MarkSourceProcessing(ctx context.Context, id uuid.UUID) error {
	return s.execSource(ctx, id, `
		UPDATE knowledge_sources
		SET status = 'PROCESSING', error_message = NULL, processing_progress = 0, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`)
}

// SetSourceProgress advances processing_progress. Observability only;
// completion does not require progress to reach 100 beforehand.
func (s *Store) SetSourceProgress(ctx context.Context, id uuid.UUID, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE knowledge_sources SET processing_progress = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, progress)
	if err != nil {
		return fmt.Errorf("updating progress for source %s: %w", id, err)
	}
	return nil
}

// MarkSourceReady records a successful run: READY status, full progress,
// cleared error message, fresh last_sync_at, and the run's counts.
func (s *Store) MarkSourceReady(ctx context.Context, id uuid.UUID, chunks int, tokens int64) error {
	return s.execSource(ctx, id, `
		UPDATE knowledge_sources
		SET status = 'READY', documents_count = 1, chunks_count = $2, tokens_count = $3,
		    processing_progress = 100, error_message = NULL, last_sync_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, chunks, tokens)
}

// MarkSourceError records a failed run: ERROR status, bounded message,
// incremented error_count, fresh last_error_at. Derived state from a
// previous successful run is left untouched.
func (s *Store) MarkSourceError(ctx context.Context, id uuid.UUID, msg string) error {
	return s.execSource(ctx, id, `
		UPDATE knowledge_sources
		SET status = 'ERROR', error_message = $2, error_count = error_count + 1,
		    last_error_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, msg)
}

// ResetSourcePending returns a source to PENDING for reindexing. The
// error message is cleared but error_count is preserved so repeated
// failures stay visible across reindex requests.
func (s *Store) ResetSourcePending(ctx context.Context, id uuid.UUID) error {
	return s.execSource(ctx, id, `
		UPDATE knowledge_sources
		SET status = 'PENDING', error_message = NULL, processing_progress = 0, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`)
}

// execSource runs a single-source UPDATE and maps zero affected rows to
// ErrNotFound.
func (s *Store) execSource(ctx context.Context, id uuid.UUID, sql string, args ...any) error {
	allArgs := append([]any{id}, args...)
	tag, err := s.pool.Exec(ctx, sql, allArgs...)
	if err != nil {
		return fmt.Errorf("updating source %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteDerivedState removes every prior generation of derived state for a
// source inside one transaction: it enumerates the source's documents and
// their chunk ids, invokes purgeVectors with those ids BEFORE the
// relational deletes commit, then deletes chunks and documents.
//
// Ordering is the load-bearing invariant: a crash after the vector delete
// but before commit leaves an orphaned vector entry, which a future upsert
// overwrites harmlessly; the reverse order could leave a relational row
// pointing at a vector that no longer exists.
func (s *Store) DeleteDerivedState(ctx context.Context, sourceID uuid.UUID, purgeVectors func(ctx context.Context, chunkIDs []string) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("rollback after derived-state delete", "error", err)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT c.id
		FROM knowledge_chunks c
		JOIN knowledge_documents d ON d.id = c.document_id
		WHERE d.source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("enumerating chunks for source %s: %w", sourceID, err)
	}

	var chunkIDs []string
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id.String())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("enumerating chunks for source %s: %w", sourceID, err)
	}

	if len(chunkIDs) > 0 && purgeVectors != nil {
		if err := purgeVectors(ctx, chunkIDs); err != nil {
			return fmt.Errorf("purging vectors for source %s: %w", sourceID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM knowledge_chunks
		WHERE document_id IN (SELECT id FROM knowledge_documents WHERE source_id = $1)`, sourceID); err != nil {
		return fmt.Errorf("deleting chunks for source %s: %w", sourceID, err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM knowledge_documents WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("deleting documents for source %s: %w", sourceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing derived-state delete: %w", err)
	}

	s.logger.Debug("replaced derived state", "source_id", sourceID, "purged_chunks", len(chunkIDs))
	return nil
}

// CreateDocument inserts a PROCESSING document holding the extracted
// title and content of the current run.
func (s *Store) CreateDocument(ctx context.Context, sourceID uuid.UUID, title, content string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO knowledge_documents (source_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, source_id, title, content, status, chunks_count, tokens_count, processed_at, created_at`,
		sourceID, title, content)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("creating document for source %s: %w", sourceID, err)
	}
	return doc, nil
}

// CreateChunk inserts one chunk row. The position comes from the chunker
// verbatim; the generated id doubles as the vector-index key.
func (s *Store) CreateChunk(ctx context.Context, documentID uuid.UUID, content string, position, tokenCount int) (*Chunk, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO knowledge_chunks (document_id, content, position, token_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_id, content, position, token_count, created_at`,
		documentID, content, position, tokenCount)

	var c Chunk
	if err := row.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &c.TokenCount, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("creating chunk %d for document %s: %w", position, documentID, err)
	}
	return &c, nil
}

// MarkDocumentIndexed finalizes a document after all chunks are embedded
// and upserted.
func (s *Store) MarkDocumentIndexed(ctx context.Context, id uuid.UUID, chunks int, tokens int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE knowledge_documents
		SET status = 'INDEXED', chunks_count = $2, tokens_count = $3, processed_at = now()
		WHERE id = $1`, id, chunks, tokens)
	if err != nil {
		return fmt.Errorf("marking document %s indexed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListDocuments lists a source's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, sourceID uuid.UUID) ([]*Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, title, content, status, chunks_count, tokens_count, processed_at, created_at
		FROM knowledge_documents
		WHERE source_id = $1
		ORDER BY created_at DESC`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListChunks lists a document's chunks in position order.
func (s *Store) ListChunks(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, content, position, token_count, created_at
		FROM knowledge_chunks
		WHERE document_id = $1
		ORDER BY position`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.Position, &c.TokenCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// ListUnfinishedSourceIDs returns the ids of sources whose last run never
// reached a terminal status. Workers enqueue these at startup so sources
// stranded by a crash get reprocessed.
func (s *Store) ListUnfinishedSourceIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM knowledge_sources
		WHERE status IN ('PENDING', 'PROCESSING') AND deleted_at IS NULL
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing unfinished sources: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning source id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecomputeBaseRollups re-aggregates document, chunk, and token counts
// across all non-deleted sources of a base and persists them. Full
// recomputation (not delta increments) lets rollups self-heal from any
// prior drift.
func (s *Store) RecomputeBaseRollups(ctx context.Context, baseID uuid.UUID) (Rollups, error) {
	var r Rollups
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT d.id),
			COUNT(c.id),
			COALESCE(SUM(c.token_count), 0)
		FROM knowledge_sources s
		JOIN knowledge_documents d ON d.source_id = s.id
		LEFT JOIN knowledge_chunks c ON c.document_id = d.id
		WHERE s.knowledge_base_id = $1 AND s.deleted_at IS NULL`, baseID).
		Scan(&r.DocumentsCount, &r.ChunksCount, &r.TotalTokens)
	if err != nil {
		return Rollups{}, fmt.Errorf("aggregating rollups for base %s: %w", baseID, err)
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE knowledge_bases
		SET documents_count = $2, chunks_count = $3, total_tokens = $4, updated_at = now()
		WHERE id = $1`, baseID, r.DocumentsCount, r.ChunksCount, r.TotalTokens); err != nil {
		return Rollups{}, fmt.Errorf("persisting rollups for base %s: %w", baseID, err)
	}

	return r, nil
}

func scanBase(row pgx.Row) (*Base, error) {
	var b Base
	err := row.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Description, &b.ChunkingStrategy,
		&b.ChunkSize, &b.ChunkOverlap, &b.EmbeddingModel, &b.SourcesCount, &b.DocumentsCount,
		&b.ChunksCount, &b.TotalTokens, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanSource(row pgx.Row) (*Source, error) {
	var src Source
	err := row.Scan(&src.ID, &src.KnowledgeBaseID, &src.Name, &src.Type, &src.FileURL,
		&src.FileName, &src.FileSize, &src.MimeType, &src.WebsiteURL, &src.TextContent,
		&src.Status, &src.ErrorMessage, &src.ErrorCount, &src.LastErrorAt,
		&src.ProcessingProgress, &src.DocumentsCount, &src.ChunksCount, &src.TokensCount,
		&src.LastSyncAt, &src.CreatedAt, &src.UpdatedAt, &src.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.SourceID, &d.Title, &d.Content, &d.Status,
		&d.ChunksCount, &d.TokensCount, &d.ProcessedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
