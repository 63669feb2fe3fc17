// Package queue runs source processing in the background. The Dispatcher
// is an in-process work queue with bounded workers, per-source
// serialization, and retry with exponential backoff for transient
// failures.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/openhelm/corpus/internal/knowledge"
)

// Processor runs one processing attempt for a source. Satisfied by
// knowledge.Orchestrator.
type Processor interface {
	ProcessSource(ctx context.Context, sourceID uuid.UUID) error
}

// Config bounds the dispatcher's workers and retry policy.
type Config struct {
	// Workers is the number of sources processed concurrently.
	Workers int
	// MaxAttempts bounds processing attempts per enqueue, including the
	// first. Non-retryable failures stop earlier.
	MaxAttempts int
	// BackoffBase is the delay before the first retry; it doubles per
	// attempt.
	BackoffBase time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = 4
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	return c
}

// sourceState tracks one source's position in the queue. A source is
// either absent (idle) or active; rerun records triggers that arrived
// while a run was in flight so exactly one follow-up run happens.
type sourceState struct {
	rerun bool
}

// Dispatcher implements knowledge.Trigger over an ants worker pool.
// Runs for distinct sources proceed in parallel; runs for the same
// source are serialized.
type Dispatcher struct {
	processor Processor
	cfg       Config
	workers   *ants.Pool
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[uuid.UUID]*sourceState
	closed bool
}

// NewDispatcher creates a Dispatcher. Close must be called to release
// the worker pool.
func NewDispatcher(processor Processor, cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	workers, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		processor: processor,
		cfg:       cfg,
		workers:   workers,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		active:    make(map[uuid.UUID]*sourceState),
	}, nil
}

// Enqueue schedules a processing run for a source. If a run for the same
// source is already queued or in flight, the request coalesces into one
// follow-up run after the current one finishes.
func (d *Dispatcher) Enqueue(_ context.Context, sourceID uuid.UUID) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is closed")
	}
	if st, ok := d.active[sourceID]; ok {
		st.rerun = true
		d.mu.Unlock()
		d.logger.Debug("coalesced trigger for active source", "source_id", sourceID)
		return nil
	}
	d.active[sourceID] = &sourceState{}
	d.mu.Unlock()

	return d.submit(sourceID)
}

func (d *Dispatcher) submit(sourceID uuid.UUID) error {
	d.wg.Add(1)
	err := d.workers.Submit(func() {
		defer d.wg.Done()
		d.run(sourceID)
	})
	if err != nil {
		d.wg.Done()
		d.mu.Lock()
		delete(d.active, sourceID)
		d.mu.Unlock()
		return fmt.Errorf("submitting source %s: %w", sourceID, err)
	}
	return nil
}

// run executes one source's attempts and any coalesced rerun. The rerun
// happens in the same worker; resubmitting from inside a worker could
// block on a saturated pool.
func (d *Dispatcher) run(sourceID uuid.UUID) {
	for {
		d.runAttempts(sourceID)

		d.mu.Lock()
		st := d.active[sourceID]
		if st != nil && st.rerun && !d.closed && d.ctx.Err() == nil {
			st.rerun = false
			d.mu.Unlock()
			continue
		}
		delete(d.active, sourceID)
		d.mu.Unlock()
		return
	}
}

// runAttempts retries one enqueue until success, a non-retryable failure,
// or attempt exhaustion.
func (d *Dispatcher) runAttempts(sourceID uuid.UUID) {
	for attempt := 1; ; attempt++ {
		err := d.processor.ProcessSource(d.ctx, sourceID)
		if err == nil {
			break
		}
		if !knowledge.Retryable(err) {
			d.logger.Warn("source failed permanently", "source_id", sourceID, "error", err)
			break
		}
		if attempt >= d.cfg.MaxAttempts {
			d.logger.Warn("source failed after final attempt",
				"source_id", sourceID, "attempts", attempt, "error", err)
			break
		}

		delay := d.cfg.BackoffBase << (attempt - 1)
		d.logger.Info("retrying source",
			"source_id", sourceID, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-d.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Close stops accepting work, cancels in-flight runs, and waits for
// workers to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	d.workers.Release()
}
