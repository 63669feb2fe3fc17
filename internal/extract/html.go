package extract

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/openhelm/corpus/internal/knowledge"
)

// ExtractWebpage fetches a page and reduces it to readable text. The
// readability pass strips navigation and boilerplate; pages it cannot
// parse fall back to the raw body text.
func (s *Service) ExtractWebpage(ctx context.Context, rawURL string) (knowledge.Extraction, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return knowledge.Extraction{}, knowledge.Validationf("invalid website URL %q", rawURL)
	}

	data, err := s.fetch(ctx, rawURL)
	if err != nil {
		return knowledge.Extraction{}, &knowledge.ExtractionError{Source: rawURL, Err: err}
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return knowledge.Extraction{
			Title: article.Title,
			Text:  normalize(article.TextContent),
		}, nil
	}
	if err != nil {
		s.logger.Debug("readability pass failed, using raw body text", "url", rawURL, "error", err)
	}

	return s.rawBodyText(rawURL, data)
}

// rawBodyText extracts the document title and visible body text without
// readability heuristics.
func (s *Service) rawBodyText(rawURL string, data []byte) (knowledge.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return knowledge.Extraction{}, &knowledge.ExtractionError{Source: rawURL, Err: err}
	}

	doc.Find("script, style, noscript").Remove()
	return knowledge.Extraction{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  normalize(doc.Find("body").Text()),
	}, nil
}
