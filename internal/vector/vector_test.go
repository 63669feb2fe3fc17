package vector_test

import (
	"testing"

	"github.com/openhelm/corpus/internal/knowledge"
	"github.com/openhelm/corpus/internal/testutil"
	"github.com/openhelm/corpus/internal/vector"
)

func TestPGIndexRoundTrip(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	ctx := t.Context()

	idx := vector.NewPGIndex(db.Pool, testutil.DiscardLogger())
	ns := "base-1"

	records := []knowledge.VectorRecord{
		{ID: "chunk-a", Values: unitVector(0), Metadata: map[string]any{"position": 0}},
		{ID: "chunk-b", Values: unitVector(1), Metadata: map[string]any{"position": 1}},
		{ID: "chunk-c", Values: unitVector(2), Metadata: map[string]any{"position": 2}},
	}
	if err := idx.Upsert(ctx, ns, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := idx.Count(ctx, ns)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	// The nearest neighbor of chunk-b's own vector is chunk-b.
	matches, err := idx.Search(ctx, ns, unitVector(1), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "chunk-b" {
		t.Fatalf("matches = %+v, want chunk-b first", matches)
	}
	if matches[0].Score < 0.99 {
		t.Errorf("self-similarity = %f, want ~1", matches[0].Score)
	}

	// Upserting an existing id overwrites rather than duplicates.
	records[0].Values = unitVector(3)
	if err := idx.Upsert(ctx, ns, records[:1]); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if n, _ = idx.Count(ctx, ns); n != 3 {
		t.Fatalf("count after overwrite = %d, want 3", n)
	}

	if err := idx.Delete(ctx, ns, []string{"chunk-a", "chunk-c", "never-existed"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ = idx.Count(ctx, ns); n != 1 {
		t.Fatalf("count after delete = %d, want 1", n)
	}

	// Namespaces are isolated.
	if err := idx.Delete(ctx, "other-base", []string{"chunk-b"}); err != nil {
		t.Fatalf("cross-namespace Delete: %v", err)
	}
	if n, _ = idx.Count(ctx, ns); n != 1 {
		t.Fatalf("count after cross-namespace delete = %d, want 1", n)
	}
}

// unitVector returns a 768-dim unit vector pointing along the given axis.
func unitVector(axis int) []float32 {
	v := make([]float32, 768)
	v[axis] = 1
	return v
}
