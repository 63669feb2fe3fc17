package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
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

// countingProcessor records per-source run counts and detects concurrent
// runs of the same source.
type countingProcessor struct {
	mu       sync.Mutex
	runs     map[uuid.UUID]int
	inFlight map[uuid.UUID]bool
	overlap  atomic.Bool
	delay    time.Duration
	errFor   map[uuid.UUID]error
	done     chan uuid.UUID
}

func newCountingProcessor(buffer int) *countingProcessor {
	return &countingProcessor{
		runs:     make(map[uuid.UUID]int),
		inFlight: make(map[uuid.UUID]bool),
		errFor:   make(map[uuid.UUID]error),
		done:     make(chan uuid.UUID, buffer),
	}
}

func (p *countingProcessor) ProcessSource(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	if p.inFlight[id] {
		p.overlap.Store(true)
	}
	p.inFlight[id] = true
	p.runs[id]++
	err := p.errFor[id]
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.inFlight[id] = false
	p.mu.Unlock()

	p.done <- id
	return err
}

func (p *countingProcessor) runCount(id uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs[id]
}

func newDispatcher(t *testing.T, p Processor, cfg Config) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(p, cfg, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func waitFor(t *testing.T, ch <-chan uuid.UUID, n int) {
	t.Helper()
	for range n {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for processing runs")
		}
	}
}

func TestDispatcherProcessesSources(t *testing.T) {
	proc := newCountingProcessor(8)
	d := newDispatcher(t, proc, Config{Workers: 4})

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		if err := d.Enqueue(t.Context(), id); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	waitFor(t, proc.done, len(ids))

	for _, id := range ids {
		if got := proc.runCount(id); got != 1 {
			t.Errorf("source %s ran %d times, want 1", id, got)
		}
	}
}

func TestDispatcherSerializesPerSource(t *testing.T) {
	proc := newCountingProcessor(16)
	proc.delay = 30 * time.Millisecond
	d := newDispatcher(t, proc, Config{Workers: 8})

	id := uuid.New()
	for range 5 {
		if err := d.Enqueue(t.Context(), id); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	// The first run plus exactly one coalesced follow-up.
	waitFor(t, proc.done, 2)
	time.Sleep(50 * time.Millisecond)

	if proc.overlap.Load() {
		t.Error("same source processed concurrently")
	}
	if got := proc.runCount(id); got != 2 {
		t.Errorf("source ran %d times for 5 triggers, want 2 (coalesced)", got)
	}
}

func TestDispatcherRetriesTransientFailure(t *testing.T) {
	proc := newCountingProcessor(8)
	id := uuid.New()
	proc.errFor[id] = errors.New("transient provider failure")
	d := newDispatcher(t, proc, Config{Workers: 2, MaxAttempts: 3, BackoffBase: time.Millisecond})

	if err := d.Enqueue(t.Context(), id); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, proc.done, 3)

	if got := proc.runCount(id); got != 3 {
		t.Errorf("source ran %d times, want 3 attempts", got)
	}
}

func TestDispatcherDoesNotRetryValidationFailure(t *testing.T) {
	proc := newCountingProcessor(8)
	id := uuid.New()
	proc.errFor[id] = knowledge.Validationf("source yielded no chunks")
	d := newDispatcher(t, proc, Config{Workers: 2, MaxAttempts: 3, BackoffBase: time.Millisecond})

	if err := d.Enqueue(t.Context(), id); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, proc.done, 1)
	time.Sleep(20 * time.Millisecond)

	if got := proc.runCount(id); got != 1 {
		t.Errorf("source ran %d times, want 1 (no retry for validation errors)", got)
	}
}

func TestDispatcherRecoversAfterFailure(t *testing.T) {
	proc := newCountingProcessor(8)
	id := uuid.New()
	proc.errFor[id] = knowledge.Validationf("bad payload")
	d := newDispatcher(t, proc, Config{Workers: 2, MaxAttempts: 2, BackoffBase: time.Millisecond})

	if err := d.Enqueue(t.Context(), id); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, proc.done, 1)

	// A later enqueue after the source left the active set runs again.
	proc.mu.Lock()
	delete(proc.errFor, id)
	proc.mu.Unlock()
	if err := d.Enqueue(t.Context(), id); err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
	waitFor(t, proc.done, 1)

	if got := proc.runCount(id); got != 2 {
		t.Errorf("source ran %d times, want 2", got)
	}
}

func TestDispatcherClosedRejectsWork(t *testing.T) {
	proc := newCountingProcessor(8)
	d, err := NewDispatcher(proc, Config{Workers: 1}, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	d.Close()

	if err := d.Enqueue(t.Context(), uuid.New()); err == nil {
		t.Error("Enqueue on closed dispatcher succeeded")
	}
}
