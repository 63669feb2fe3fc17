// Package chunk splits extracted text into the ordered pieces that get
// embedded and indexed. Three strategies are supported: fixed token
// windows, sentence packing, and recursive semantic splitting.
package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/openhelm/corpus/internal/knowledge"
)

// Strategy names accepted in ChunkingParams.
const (
	StrategyFixed    = "fixed"
	StrategySentence = "sentence"
	StrategySemantic = "semantic"
)

const encodingName = "cl100k_base"

// Tokenizer is the token-level view of text the strategies share.
// Production uses tiktoken; tests substitute a deterministic fake.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenAdapter struct {
	enc *tiktoken.Tiktoken
}

func (a *tiktokenAdapter) Encode(text string) []int {
	return a.enc.Encode(text, nil, nil)
}

func (a *tiktokenAdapter) Decode(tokens []int) string {
	return a.enc.Decode(tokens)
}

// Splitter implements knowledge.Chunker.
type Splitter struct {
	tok    Tokenizer
	logger *slog.Logger
}

// New creates a Splitter backed by the cl100k_base encoding.
func New(logger *slog.Logger) (*Splitter, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encodingName, err)
	}
	return NewWithTokenizer(&tiktokenAdapter{enc: enc}, logger), nil
}

// NewWithTokenizer creates a Splitter with a caller-supplied tokenizer.
func NewWithTokenizer(tok Tokenizer, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{tok: tok, logger: logger}
}

// Chunk splits text according to the requested strategy. Pieces come back
// with contiguous 0-based positions and per-piece token counts; empty
// pieces are dropped before positions are assigned.
func (s *Splitter) Chunk(_ context.Context, text string, params knowledge.ChunkingParams) ([]knowledge.Piece, error) {
	if params.ChunkSize <= 0 {
		return nil, knowledge.Validationf("chunk size %d must be positive", params.ChunkSize)
	}
	if params.ChunkOverlap < 0 || params.ChunkOverlap >= params.ChunkSize {
		return nil, knowledge.Validationf("chunk overlap %d must be in [0, %d)", params.ChunkOverlap, params.ChunkSize)
	}

	var (
		contents []string
		err      error
	)
	switch params.Strategy {
	case StrategyFixed:
		contents = s.fixedWindows(text, params.ChunkSize, params.ChunkOverlap)
	case StrategySentence:
		contents = s.packSentences(text, params.ChunkSize)
	case StrategySemantic, "":
		contents, err = s.semantic(text, params.ChunkSize, params.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("semantic split: %w", err)
		}
	default:
		return nil, knowledge.Validationf("unknown chunking strategy %q", params.Strategy)
	}

	pieces := make([]knowledge.Piece, 0, len(contents))
	for _, content := range contents {
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pieces = append(pieces, knowledge.Piece{
			Content:    content,
			Position:   len(pieces),
			TokenCount: len(s.tok.Encode(content)),
		})
	}

	s.logger.Debug("split text", "strategy", params.Strategy, "pieces", len(pieces))
	return pieces, nil
}

// fixedWindows slides a token window of chunkSize with the given overlap.
func (s *Splitter) fixedWindows(text string, chunkSize, overlap int) []string {
	tokens := s.tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := chunkSize - overlap
	var out []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+chunkSize, len(tokens))
		out = append(out, s.tok.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return out
}

// packSentences greedily packs whole sentences into chunks of at most
// chunkSize tokens. A single sentence over the budget becomes its own
// chunk rather than being split mid-sentence.
func (s *Splitter) packSentences(text string, chunkSize int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		out     []string
		current strings.Builder
		used    int
	)
	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
			used = 0
		}
	}

	for _, sentence := range sentences {
		n := len(s.tok.Encode(sentence))
		if used > 0 && used+n > chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
		used += n
	}
	flush()
	return out
}

// semantic delegates to the recursive character splitter, measuring
// lengths in tokens so chunk geometry matches the base's configuration.
func (s *Splitter) semantic(text string, chunkSize, overlap int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithLenFunc(func(t string) int { return len(s.tok.Encode(t)) }),
	)
	return splitter.SplitText(text)
}

// splitSentences breaks text on terminal punctuation followed by
// whitespace. Newline runs also terminate a sentence so list items and
// headings become their own units.
func splitSentences(text string) []string {
	var (
		out     []string
		current strings.Builder
	)
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				flush()
			}
		}
	}
	flush()
	return out
}
