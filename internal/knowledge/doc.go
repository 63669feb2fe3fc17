// Package knowledge implements the knowledge indexing core: per-tenant
// knowledge bases whose sources (files, raw text, web pages) are parsed,
// chunked, embedded, and synchronized into a vector index alongside a
// relational record of every chunk.
//
// The central type is Orchestrator, which turns one ingested source into a
// consistent set of (document, chunk, vector) records. It coordinates two
// non-transactional resources — the relational Store and the VectorIndex —
// and drives each source through the status state machine
//
//	PENDING → PROCESSING → {READY | ERROR}
//
// with reindexing returning READY or ERROR sources to PENDING.
//
// A processing run replaces all derived state from earlier runs before
// writing its own, so reprocessing a source any number of times never
// leaves duplicate or orphaned chunks or vectors behind. The replace step
// deletes vector entries before the relational delete commits: a crash in
// that window leaves at worst an orphaned vector entry, which later
// upserts overwrite, never a relational row pointing at a missing vector.
//
// The Orchestrator performs no internal retries. Failures are persisted on
// the source (status ERROR, bounded message, incremented error count) and
// re-raised so the job trigger's redelivery policy decides what happens
// next.
package knowledge
