package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies how a source's raw content is referenced.
type SourceType string

const (
	SourceTypeFile    SourceType = "FILE"
	SourceTypeText    SourceType = "TEXT"
	SourceTypeWebsite SourceType = "WEBSITE"
)

// SourceStatus is the observable processing state of a source.
type SourceStatus string

const (
	SourcePending    SourceStatus = "PENDING"
	SourceProcessing SourceStatus = "PROCESSING"
	SourceReady      SourceStatus = "READY"
	SourceError      SourceStatus = "ERROR"
)

// DocumentStatus is the processing state of an extracted document.
type DocumentStatus string

const (
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentIndexed    DocumentStatus = "INDEXED"
)

// Base is a tenant-scoped container of sources. The rollup counters are a
// cache: they are always recomputable by re-aggregating over non-deleted
// sources, documents, and chunks.
type Base struct {
	ID               uuid.UUID
	OrganizationID   string
	Name             string
	Description      string
	ChunkingStrategy string
	ChunkSize        int
	ChunkOverlap     int
	EmbeddingModel   string
	SourcesCount     int
	DocumentsCount   int
	ChunksCount      int
	TotalTokens      int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Source is one ingested unit of content. Exactly one raw-content
// reference (FileURL, TextContent, WebsiteURL) is populated per type.
// After creation the Orchestrator owns all status, progress, and error
// fields.
type Source struct {
	ID                 uuid.UUID
	KnowledgeBaseID    uuid.UUID
	Name               string
	Type               SourceType
	FileURL            *string
	FileName           *string
	FileSize           *int64
	MimeType           *string
	WebsiteURL         *string
	TextContent        *string
	Status             SourceStatus
	ErrorMessage       *string
	ErrorCount         int
	LastErrorAt        *time.Time
	ProcessingProgress int
	DocumentsCount     int
	ChunksCount        int
	TokensCount        int64
	LastSyncAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// Document is the extracted-text artifact produced from one processing run
// of a source. At most one non-superseded document exists per source.
type Document struct {
	ID          uuid.UUID
	SourceID    uuid.UUID
	Title       string
	Content     string
	Status      DocumentStatus
	ChunksCount int
	TokensCount int64
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// Chunk is one embedded span of a document's text. Its id doubles as the
// vector-index key, giving a 1:1 join between relational row and vector
// entry.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Content    string
	Position   int
	TokenCount int
	CreatedAt  time.Time
}

// ChunkingParams are the splitting parameters configured on a base.
type ChunkingParams struct {
	Strategy     string
	ChunkSize    int
	ChunkOverlap int
}

// Piece is one split produced by the Chunker. Position values are 0-based,
// contiguous, and carried verbatim through persistence and vector
// metadata.
type Piece struct {
	Content    string
	Position   int
	TokenCount int
}

// VectorRecord is one entry upserted into the vector index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Extraction is the parsed output of a source's raw content.
type Extraction struct {
	Title string
	Text  string
}

// Rollups are the recomputed aggregates for a knowledge base.
type Rollups struct {
	DocumentsCount int
	ChunksCount    int
	TotalTokens    int64
}
