package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhelm/corpus/internal/knowledge"
	"github.com/openhelm/corpus/internal/testutil"
)

// wordTokenizer treats each whitespace-separated word as one token,
// keeping token arithmetic easy to reason about in tests.
type wordTokenizer struct {
	words map[int]string
	next  int
	ids   map[string]int
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{words: make(map[int]string), ids: make(map[string]int)}
}

func (w *wordTokenizer) Encode(text string) []int {
	var out []int
	for _, word := range strings.Fields(text) {
		id, ok := w.ids[word]
		if !ok {
			id = w.next
			w.next++
			w.ids[word] = id
			w.words[id] = word
		}
		out = append(out, id)
	}
	return out
}

func (w *wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = w.words[id]
	}
	return strings.Join(parts, " ")
}

func newSplitter() *Splitter {
	return NewWithTokenizer(newWordTokenizer(), testutil.DiscardLogger())
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w" + strings.Repeat("x", i%7)
	}
	return strings.Join(parts, " ")
}

func TestFixedWindows(t *testing.T) {
	s := newSplitter()

	pieces, err := s.Chunk(t.Context(), words(25), knowledge.ChunkingParams{
		Strategy: StrategyFixed, ChunkSize: 10, ChunkOverlap: 2,
	})
	require.NoError(t, err)

	// 25 tokens, window 10, step 8: [0,10) [8,18) [16,25)
	require.Len(t, pieces, 3)
	wantTokens := []int{10, 10, 9}
	for i, p := range pieces {
		assert.Equal(t, i, p.Position, "piece %d position", i)
		assert.Equal(t, wantTokens[i], p.TokenCount, "piece %d tokens", i)
	}
}

func TestFixedWindowsShortInput(t *testing.T) {
	s := newSplitter()

	pieces, err := s.Chunk(t.Context(), "just three words", knowledge.ChunkingParams{
		Strategy: StrategyFixed, ChunkSize: 10, ChunkOverlap: 2,
	})
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, "just three words", pieces[0].Content)
}

func TestSentencePacking(t *testing.T) {
	s := newSplitter()
	text := "One two three. Four five six. Seven eight nine ten eleven. Twelve."

	pieces, err := s.Chunk(t.Context(), text, knowledge.ChunkingParams{
		Strategy: StrategySentence, ChunkSize: 7, ChunkOverlap: 0,
	})
	require.NoError(t, err)

	// Sentences of 3, 3, 5, and 1 tokens pack into (3+3), (5+1).
	require.Len(t, pieces, 2)
	assert.Equal(t, "One two three. Four five six.", pieces[0].Content)
	assert.Equal(t, "Seven eight nine ten eleven. Twelve.", pieces[1].Content)

	// A sentence over the budget still becomes one piece.
	long := words(20) + "."
	pieces, err = s.Chunk(t.Context(), long, knowledge.ChunkingParams{
		Strategy: StrategySentence, ChunkSize: 5, ChunkOverlap: 0,
	})
	require.NoError(t, err)
	assert.Len(t, pieces, 1, "oversized sentence must stay whole")
}

func TestSemanticSplit(t *testing.T) {
	s := newSplitter()
	text := strings.Repeat("The quick brown fox jumps over the lazy dog.\n\n", 12)

	pieces, err := s.Chunk(t.Context(), text, knowledge.ChunkingParams{
		Strategy: StrategySemantic, ChunkSize: 30, ChunkOverlap: 5,
	})
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)
	for i, p := range pieces {
		assert.Equal(t, i, p.Position, "positions must be contiguous")
		assert.NotEmpty(t, p.Content)
		assert.NotZero(t, p.TokenCount)
	}
}

func TestChunkValidation(t *testing.T) {
	s := newSplitter()

	tests := []struct {
		name   string
		params knowledge.ChunkingParams
	}{
		{"zero chunk size", knowledge.ChunkingParams{Strategy: StrategyFixed, ChunkSize: 0}},
		{"overlap equals size", knowledge.ChunkingParams{Strategy: StrategyFixed, ChunkSize: 10, ChunkOverlap: 10}},
		{"negative overlap", knowledge.ChunkingParams{Strategy: StrategyFixed, ChunkSize: 10, ChunkOverlap: -1}},
		{"unknown strategy", knowledge.ChunkingParams{Strategy: "agentic", ChunkSize: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Chunk(t.Context(), "some text", tt.params)
			var ve *knowledge.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func TestChunkEmptyInput(t *testing.T) {
	s := newSplitter()
	for _, strategy := range []string{StrategyFixed, StrategySentence} {
		pieces, err := s.Chunk(t.Context(), "   \n\n  ", knowledge.ChunkingParams{
			Strategy: strategy, ChunkSize: 10, ChunkOverlap: 0,
		})
		require.NoError(t, err, strategy)
		assert.Empty(t, pieces, "%s produced pieces from whitespace", strategy)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello world. Hello again.", []string{"Hello world.", "Hello again."}},
		{"No terminal punctuation", []string{"No terminal punctuation"}},
		{"Q? A! Done.", []string{"Q?", "A!", "Done."}},
		{"Line one\nLine two", []string{"Line one", "Line two"}},
		{"Version 1.5 works fine.", []string{"Version 1.5 works fine."}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitSentences(tt.in), "splitSentences(%q)", tt.in)
	}
}
