package embed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/goleak"

	"github.com/openhelm/corpus/internal/knowledge"
	"github.com/openhelm/corpus/internal/testutil"
)

func TestMain(m *testing.M) {
	// Importing ants starts background goroutines for its package-level
	// default pool, which this package never uses; release it so goleak
	// only sees goroutines from the code under test.
	ants.Release()
	goleak.VerifyTestMain(m)
}

// indexEmbedder returns a vector encoding each text's batch-local index
// plus its length, making order violations detectable.
type indexEmbedder struct {
	calls   atomic.Int32
	failAt  int32 // call number that fails; 0 disables
	maxSeen atomic.Int32
}

func (e *indexEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	call := e.calls.Add(1)
	if e.failAt != 0 && call == e.failAt {
		return nil, errors.New("provider rejected batch")
	}
	if n := int32(len(texts)); n > e.maxSeen.Load() {
		e.maxSeen.Store(n)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestPoolOrderPreserved(t *testing.T) {
	inner := &indexEmbedder{}
	pool, err := NewPool(inner, 4, 0, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	// 100 texts of distinct lengths across several batches.
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = string(make([]byte, i+1))
	}

	vectors, err := pool.EmbedBatch(t.Context(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != 1 || v[0] != float32(i+1) {
			t.Fatalf("vector %d = %v, want [%d]", i, v, i+1)
		}
	}
	if got := inner.maxSeen.Load(); got > defaultBatchSize {
		t.Errorf("largest batch = %d, want <= %d", got, defaultBatchSize)
	}
	if got := inner.calls.Load(); got != 4 {
		t.Errorf("provider calls = %d, want 4", got)
	}
}

func TestPoolPropagatesFailure(t *testing.T) {
	inner := &indexEmbedder{failAt: 1}
	pool, err := NewPool(inner, 2, 0, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	texts := make([]string, 80)
	for i := range texts {
		texts[i] = "x"
	}
	_, err = pool.EmbedBatch(t.Context(), texts)
	if err == nil {
		t.Fatal("EmbedBatch succeeded despite provider failure")
	}
	var ee *knowledge.EmbeddingError
	if !errors.As(err, &ee) {
		t.Errorf("err = %v, want EmbeddingError", err)
	}
}

// shortEmbedder drops the last vector of every batch without reporting
// an error.
type shortEmbedder struct{}

func (shortEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts)-1)
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestPoolRejectsShortBatch(t *testing.T) {
	pool, err := NewPool(shortEmbedder{}, 2, 0, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	_, err = pool.EmbedBatch(t.Context(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("EmbedBatch accepted a short provider response")
	}
	var ee *knowledge.EmbeddingError
	if !errors.As(err, &ee) {
		t.Errorf("err = %v, want EmbeddingError", err)
	}
}

func TestPoolEmptyInput(t *testing.T) {
	pool, err := NewPool(&indexEmbedder{}, 2, 0, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	vectors, err := pool.EmbedBatch(t.Context(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vectors != nil {
		t.Errorf("vectors = %v, want nil", vectors)
	}
}

func TestPoolCanceledContext(t *testing.T) {
	pool, err := NewPool(&indexEmbedder{}, 1, 0.0001, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	texts := []string{"a", "b"}
	if _, err := pool.EmbedBatch(ctx, texts); err == nil {
		t.Fatal("EmbedBatch succeeded with canceled context")
	}
}
