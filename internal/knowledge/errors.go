package knowledge

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrNotFound indicates the requested entity is missing or
	// soft-deleted. Raised to the caller without touching source status.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the entity belongs to a different
	// organization.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError marks permanently bad input: wrong payload for the
// declared source type, an unsupported type, or empty extracted content.
// Validation errors are never retried; a human must fix the source before
// reindexing.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExtractionError wraps a failure to resolve or parse a source's raw
// content. Retryable by the job trigger's redelivery policy.
type ExtractionError struct {
	Source string // what was being extracted (url, file ref, "text")
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError wraps an embedding provider failure or timeout.
// Retryable by the job trigger's redelivery policy.
type EmbeddingError struct {
	Position int // chunk position that failed, -1 if unknown
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("embedding chunk %d: %v", e.Position, e.Err)
	}
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Retryable reports whether the job trigger should redeliver after this
// error. Validation failures and missing entities never become good on
// retry; everything else (extraction, embedding, transient store or
// network failures) may.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		return false
	}
	return true
}

// truncateError bounds a persisted error message. Messages land in the
// source row and in API responses; unbounded driver errors do not belong
// there.
const maxErrorMessageLen = 2000

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	// Cutting at a byte count can land inside a multibyte rune; the
	// column is TEXT, and Postgres rejects invalid UTF-8.
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
