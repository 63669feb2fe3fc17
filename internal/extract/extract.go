// Package extract turns raw source content into plain text. It handles
// stored files (PDF, DOCX, plain text variants), inline text, and web
// pages, producing the extraction the chunking stage consumes.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/openhelm/corpus/internal/knowledge"
	"github.com/openhelm/corpus/internal/security"
)

const fetchTimeout = 30 * time.Second

// Service implements knowledge.Extractor.
type Service struct {
	client *http.Client
	logger *slog.Logger
}

// NewService creates an extraction Service. A nil client gets a guarded
// default that refuses to fetch internal addresses; a nil logger falls
// back to slog.Default().
func NewService(client *http.Client, logger *slog.Logger) *Service {
	if client == nil {
		client = security.NewURLGuard().Client(fetchTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// ExtractText passes inline text through with whitespace normalized. The
// first non-empty line doubles as the title.
func (s *Service) ExtractText(_ context.Context, text string) (knowledge.Extraction, error) {
	normalized := normalize(text)
	return knowledge.Extraction{Title: firstLineTitle(normalized), Text: normalized}, nil
}

const maxTitleRunes = 120

func firstLineTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(strings.TrimLeft(line, "# "))
	if runes := []rune(line); len(runes) > maxTitleRunes {
		line = string(runes[:maxTitleRunes])
	}
	return line
}

// ExtractFile loads a file by URL or local path and extracts its text
// according to the declared MIME type.
func (s *Service) ExtractFile(ctx context.Context, fileURL, mimeType string) (knowledge.Extraction, error) {
	data, err := s.loadFile(ctx, fileURL)
	if err != nil {
		return knowledge.Extraction{}, &knowledge.ExtractionError{Source: fileURL, Err: err}
	}
	if int64(len(data)) > knowledge.MaxFileSize {
		return knowledge.Extraction{}, knowledge.Validationf("file %s exceeds the %d byte limit", fileURL, knowledge.MaxFileSize)
	}

	var text string
	switch mimeType {
	case "application/pdf":
		text, err = extractPDF(data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		text, err = extractDOCX(data)
	case "text/plain", "text/markdown", "text/csv":
		text = string(data)
	default:
		return knowledge.Extraction{}, knowledge.Validationf("unsupported file type %q", mimeType)
	}
	if err != nil {
		return knowledge.Extraction{}, &knowledge.ExtractionError{Source: fileURL, Err: err}
	}

	s.logger.Debug("extracted file", "url", fileURL, "mime_type", mimeType, "bytes", len(text))
	return knowledge.Extraction{Text: normalize(text)}, nil
}

// loadFile reads the content behind a file reference. http(s) URLs are
// fetched; everything else is treated as a local path.
func (s *Service) loadFile(ctx context.Context, fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return s.fetch(ctx, fileURL)
	}
	path := fileURL
	if u != nil && u.Scheme == "file" {
		path = u.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Debug("closing response body", "url", rawURL, "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	// One byte past the limit is enough to reject oversized payloads
	// without buffering them whole.
	data, err := io.ReadAll(io.LimitReader(resp.Body, knowledge.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return data, nil
}

// normalize collapses runs of blank lines and trims the result so the
// chunker sees consistent paragraph boundaries regardless of origin.
func normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var b strings.Builder
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
