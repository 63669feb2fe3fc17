package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the upper bound for FILE source payloads.
const MaxFileSize = 20 << 20 // 20 MiB

// allowedMimeTypes lists the file formats extraction supports.
var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
	"text/csv":        true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Extractor turns a source's raw content reference into plain text.
type Extractor interface {
	// ExtractFile fetches and extracts a stored file by URL.
	ExtractFile(ctx context.Context, fileURL, mimeType string) (Extraction, error)
	// ExtractText normalizes inline text content.
	ExtractText(ctx context.Context, text string) (Extraction, error)
	// ExtractWebpage fetches a web page and extracts its readable text.
	ExtractWebpage(ctx context.Context, url string) (Extraction, error)
}

// Chunker splits extracted text into ordered pieces.
type Chunker interface {
	Chunk(ctx context.Context, text string, params ChunkingParams) ([]Piece, error)
}

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the external similarity index. Writes to it are not part
// of the relational transaction; the processing run sequences them so the
// relational side never references a vector that was not written first.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, records []VectorRecord) error
	Delete(ctx context.Context, namespace string, ids []string) error
}

// Trigger hands a source id to the background processing pipeline.
type Trigger interface {
	Enqueue(ctx context.Context, sourceID uuid.UUID) error
}

// Storage is the persistence surface the orchestrator needs. *Store
// satisfies it; tests substitute an in-memory fake.
type Storage interface {
	CreateBase(ctx context.Context, p BaseParams) (*Base, error)
	GetBase(ctx context.Context, id uuid.UUID) (*Base, error)
	ListBases(ctx context.Context, orgID string) ([]*Base, error)
	UpdateBase(ctx context.Context, id uuid.UUID, p UpdateBaseParams) (*Base, error)
	SoftDeleteBase(ctx context.Context, id uuid.UUID) error

	CreateSource(ctx context.Context, p SourceParams) (*Source, error)
	GetSource(ctx context.Context, id uuid.UUID) (*Source, error)
	ListSources(ctx context.Context, baseID uuid.UUID) ([]*Source, error)
	SoftDeleteSource(ctx context.Context, id uuid.UUID) error

	MarkSourceProcessing(ctx context.Context, id uuid.UUID) error
	SetSourceProgress(ctx context.Context, id uuid.UUID, progress int) error
	MarkSourceReady(ctx context.Context, id uuid.UUID, chunks int, tokens int64) error
	MarkSourceError(ctx context.Context, id uuid.UUID, msg string) error
	ResetSourcePending(ctx context.Context, id uuid.UUID) error

	DeleteDerivedState(ctx context.Context, sourceID uuid.UUID, purgeVectors func(ctx context.Context, chunkIDs []string) error) error
	CreateDocument(ctx context.Context, sourceID uuid.UUID, title, content string) (*Document, error)
	CreateChunk(ctx context.Context, documentID uuid.UUID, content string, position, tokenCount int) (*Chunk, error)
	MarkDocumentIndexed(ctx context.Context, id uuid.UUID, chunks int, tokens int64) error
	RecomputeBaseRollups(ctx context.Context, baseID uuid.UUID) (Rollups, error)
}

// Orchestrator coordinates the ingest pipeline: it validates incoming
// sources, runs extract -> chunk -> embed -> index for each processing
// request, and keeps source status and base rollups consistent with the
// outcome of every run.
type Orchestrator struct {
	store   Storage
	extract Extractor
	chunker Chunker
	embed   Embedder
	index   VectorIndex
	trigger Trigger
	logger  *slog.Logger
}

// NewOrchestrator wires the pipeline collaborators together. A nil logger
// falls back to slog.Default().
func NewOrchestrator(store Storage, extract Extractor, chunker Chunker, embed Embedder, index VectorIndex, trigger Trigger, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:   store,
		extract: extract,
		chunker: chunker,
		embed:   embed,
		index:   index,
		trigger: trigger,
		logger:  logger,
	}
}

// CreateBaseParams carries the caller-supplied settings for a new base.
// Zero values fall back to defaults.
type CreateBaseParams struct {
	Name             string
	Description      string
	ChunkingStrategy string
	ChunkSize        int
	ChunkOverlap     int
	EmbeddingModel   string
}

// CreateBase creates a knowledge base for an organization.
func (o *Orchestrator) CreateBase(ctx context.Context, orgID string, p CreateBaseParams) (*Base, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, Validationf("knowledge base name is required")
	}
	if p.ChunkingStrategy == "" {
		p.ChunkingStrategy = "semantic"
	}
	if p.ChunkSize == 0 {
		p.ChunkSize = 512
	}
	if p.ChunkOverlap == 0 {
		p.ChunkOverlap = 50
	}
	if p.ChunkOverlap >= p.ChunkSize {
		return nil, Validationf("chunk overlap %d must be smaller than chunk size %d", p.ChunkOverlap, p.ChunkSize)
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = "gemini-embedding-001"
	}

	return o.store.CreateBase(ctx, BaseParams{
		OrganizationID:   orgID,
		Name:             p.Name,
		Description:      p.Description,
		ChunkingStrategy: p.ChunkingStrategy,
		ChunkSize:        p.ChunkSize,
		ChunkOverlap:     p.ChunkOverlap,
		EmbeddingModel:   p.EmbeddingModel,
	})
}

// GetBase returns a base after verifying it belongs to the organization.
func (o *Orchestrator) GetBase(ctx context.Context, orgID string, baseID uuid.UUID) (*Base, error) {
	base, err := o.store.GetBase(ctx, baseID)
	if err != nil {
		return nil, err
	}
	if base.OrganizationID != orgID {
		return nil, fmt.Errorf("knowledge base %s: %w", baseID, ErrForbidden)
	}
	return base, nil
}

// ListBases lists an organization's bases.
func (o *Orchestrator) ListBases(ctx context.Context, orgID string) ([]*Base, error) {
	return o.store.ListBases(ctx, orgID)
}

// UpdateBase applies setting changes to an owned base. Changed chunking
// parameters affect future processing runs only; existing chunks keep the
// geometry they were created with until their source is reindexed.
func (o *Orchestrator) UpdateBase(ctx context.Context, orgID string, baseID uuid.UUID, p UpdateBaseParams) (*Base, error) {
	if _, err := o.GetBase(ctx, orgID, baseID); err != nil {
		return nil, err
	}
	return o.store.UpdateBase(ctx, baseID, p)
}

// DeleteBase soft-deletes an owned base and its sources.
func (o *Orchestrator) DeleteBase(ctx context.Context, orgID string, baseID uuid.UUID) error {
	if _, err := o.GetBase(ctx, orgID, baseID); err != nil {
		return err
	}
	return o.store.SoftDeleteBase(ctx, baseID)
}

// CreateSource validates the payload, persists a PENDING source, and
// enqueues it for processing.
func (o *Orchestrator) CreateSource(ctx context.Context, orgID string, p SourceParams) (*Source, error) {
	if _, err := o.GetBase(ctx, orgID, p.KnowledgeBaseID); err != nil {
		return nil, err
	}
	if err := validateSourcePayload(p); err != nil {
		return nil, err
	}

	source, err := o.store.CreateSource(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := o.trigger.Enqueue(ctx, source.ID); err != nil {
		// The source stays PENDING; a worker restart or manual reindex
		// picks it up.
		o.logger.Warn("failed to enqueue new source", "source_id", source.ID, "error", err)
	}
	return source, nil
}

// validateSourcePayload checks that exactly the content reference required
// by the declared type is present, and for files that the format and size
// are acceptable.
func validateSourcePayload(p SourceParams) error {
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("source name is required")
	}
	switch p.Type {
	case SourceTypeFile:
		if p.FileURL == nil || *p.FileURL == "" {
			return Validationf("file sources require a file URL")
		}
		if p.MimeType == nil || !allowedMimeTypes[*p.MimeType] {
			got := "unknown"
			if p.MimeType != nil {
				got = *p.MimeType
			}
			return Validationf("unsupported file type %q", got)
		}
		if p.FileSize != nil && *p.FileSize > MaxFileSize {
			return Validationf("file size %d exceeds the %d byte limit", *p.FileSize, MaxFileSize)
		}
	case SourceTypeWebsite:
		if (p.WebsiteURL == nil || *p.WebsiteURL == "") && (p.TextContent == nil || *p.TextContent == "") {
			return Validationf("website sources require a website URL")
		}
	case SourceTypeText:
		if p.TextContent == nil || strings.TrimSpace(*p.TextContent) == "" {
			return Validationf("text sources require text content")
		}
	default:
		return Validationf("unknown source type %q", p.Type)
	}
	return nil
}

// ListSources lists the sources of an owned base.
func (o *Orchestrator) ListSources(ctx context.Context, orgID string, baseID uuid.UUID) ([]*Source, error) {
	if _, err := o.GetBase(ctx, orgID, baseID); err != nil {
		return nil, err
	}
	return o.store.ListSources(ctx, baseID)
}

// Reindex resets a source to PENDING and enqueues a fresh processing run.
// error_count is preserved so a flapping source stays visible.
func (o *Orchestrator) Reindex(ctx context.Context, orgID string, sourceID uuid.UUID) error {
	source, err := o.ownedSource(ctx, orgID, sourceID)
	if err != nil {
		return err
	}
	if err := o.store.ResetSourcePending(ctx, source.ID); err != nil {
		return err
	}
	return o.trigger.Enqueue(ctx, source.ID)
}

// DeleteSource soft-deletes an owned source and recomputes the base's
// rollups so the deleted source's documents stop counting. Derived rows
// and vectors are left in place; the soft-deleted source filter keeps
// them out of every aggregate.
func (o *Orchestrator) DeleteSource(ctx context.Context, orgID string, sourceID uuid.UUID) error {
	source, err := o.ownedSource(ctx, orgID, sourceID)
	if err != nil {
		return err
	}
	if err := o.store.SoftDeleteSource(ctx, source.ID); err != nil {
		return err
	}
	if _, err := o.store.RecomputeBaseRollups(ctx, source.KnowledgeBaseID); err != nil {
		return fmt.Errorf("recomputing rollups after delete: %w", err)
	}
	return nil
}

func (o *Orchestrator) ownedSource(ctx context.Context, orgID string, sourceID uuid.UUID) (*Source, error) {
	source, err := o.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if _, err := o.GetBase(ctx, orgID, source.KnowledgeBaseID); err != nil {
		return nil, err
	}
	return source, nil
}

// ProcessSource runs the full ingest pipeline for one source. Any failure
// after the PROCESSING transition is persisted as an ERROR outcome before
// the error is returned to the caller; derived state from the last
// successful run survives failures that occur before the replace step.
func (o *Orchestrator) ProcessSource(ctx context.Context, sourceID uuid.UUID) error {
	source, err := o.store.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	base, err := o.store.GetBase(ctx, source.KnowledgeBaseID)
	if err != nil {
		return err
	}

	if err := o.store.MarkSourceProcessing(ctx, source.ID); err != nil {
		return err
	}
	o.logger.Info("processing source", "source_id", source.ID, "type", source.Type, "base_id", base.ID)

	if err := o.runPipeline(ctx, source, base); err != nil {
		msg := truncateError(err)
		if markErr := o.store.MarkSourceError(ctx, source.ID, msg); markErr != nil {
			o.logger.Error("failed to persist error outcome", "source_id", source.ID, "error", markErr)
		}
		o.logger.Warn("source processing failed", "source_id", source.ID, "error", err)
		return err
	}
	return nil
}

// runPipeline does the work between the PROCESSING and terminal
// transitions. It returns the failure verbatim; ProcessSource owns the
// ERROR bookkeeping.
func (o *Orchestrator) runPipeline(ctx context.Context, source *Source, base *Base) error {
	_ = o.store.SetSourceProgress(ctx, source.ID, 10)

	extraction, err := o.extractSource(ctx, source)
	if err != nil {
		return err
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return Validationf("source yielded no extractable text")
	}
	_ = o.store.SetSourceProgress(ctx, source.ID, 30)

	pieces, err := o.chunker.Chunk(ctx, extraction.Text, ChunkingParams{
		Strategy:     base.ChunkingStrategy,
		ChunkSize:    base.ChunkSize,
		ChunkOverlap: base.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if len(pieces) == 0 {
		return Validationf("source yielded no chunks")
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}
	vectors, err := o.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(pieces) {
		return fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(pieces))
	}
	_ = o.store.SetSourceProgress(ctx, source.ID, 60)

	// Replace the previous generation. Old vectors are purged inside the
	// relational transaction so a commit implies the index holds no stale
	// entries for this source.
	namespace := base.ID.String()
	err = o.store.DeleteDerivedState(ctx, source.ID, func(ctx context.Context, chunkIDs []string) error {
		return o.index.Delete(ctx, namespace, chunkIDs)
	})
	if err != nil {
		return fmt.Errorf("replacing derived state: %w", err)
	}

	title := extraction.Title
	if title == "" {
		title = source.Name
	}
	doc, err := o.store.CreateDocument(ctx, source.ID, title, extraction.Text)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}

	records := make([]VectorRecord, 0, len(pieces))
	var totalTokens int64
	for i, piece := range pieces {
		chunk, err := o.store.CreateChunk(ctx, doc.ID, piece.Content, piece.Position, piece.TokenCount)
		if err != nil {
			return fmt.Errorf("creating chunk %d: %w", piece.Position, err)
		}
		totalTokens += int64(piece.TokenCount)
		records = append(records, VectorRecord{
			ID:     chunk.ID.String(),
			Values: vectors[i],
			Metadata: map[string]any{
				"source_id":         source.ID.String(),
				"document_id":       doc.ID.String(),
				"knowledge_base_id": base.ID.String(),
				"position":          piece.Position,
			},
		})
	}
	_ = o.store.SetSourceProgress(ctx, source.ID, 90)

	if err := o.index.Upsert(ctx, namespace, records); err != nil {
		return fmt.Errorf("indexing vectors: %w", err)
	}

	if err := o.store.MarkDocumentIndexed(ctx, doc.ID, len(pieces), totalTokens); err != nil {
		return err
	}
	if err := o.store.MarkSourceReady(ctx, source.ID, len(pieces), totalTokens); err != nil {
		return err
	}
	rollups, err := o.store.RecomputeBaseRollups(ctx, base.ID)
	if err != nil {
		return fmt.Errorf("recomputing rollups: %w", err)
	}

	o.logger.Info("source indexed",
		"source_id", source.ID,
		"chunks", len(pieces),
		"tokens", totalTokens,
		"base_chunks", rollups.ChunksCount)
	return nil
}

// extractSource resolves the source's raw content reference by type.
func (o *Orchestrator) extractSource(ctx context.Context, source *Source) (Extraction, error) {
	switch source.Type {
	case SourceTypeFile:
		if source.FileURL == nil || source.MimeType == nil {
			return Extraction{}, Validationf("file source %s is missing its file reference", source.ID)
		}
		return o.extract.ExtractFile(ctx, *source.FileURL, *source.MimeType)
	case SourceTypeWebsite:
		// Inline text captured at creation time wins over refetching.
		if source.TextContent != nil && strings.TrimSpace(*source.TextContent) != "" {
			return o.extract.ExtractText(ctx, *source.TextContent)
		}
		if source.WebsiteURL == nil || *source.WebsiteURL == "" {
			return Extraction{}, Validationf("website source %s has no URL", source.ID)
		}
		return o.extract.ExtractWebpage(ctx, *source.WebsiteURL)
	case SourceTypeText:
		if source.TextContent == nil {
			return Extraction{}, Validationf("text source %s has no content", source.ID)
		}
		return o.extract.ExtractText(ctx, *source.TextContent)
	default:
		return Extraction{}, Validationf("unknown source type %q", source.Type)
	}
}
