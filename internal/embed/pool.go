package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/openhelm/corpus/internal/knowledge"
)

// defaultBatchSize caps how many texts go into one provider request.
const defaultBatchSize = 32

// Pool fans a large embed request out over a bounded worker pool, one
// provider request per batch, and reassembles the vectors in input order.
// An optional rate limit spaces the provider requests.
type Pool struct {
	inner     knowledge.Embedder
	workers   *ants.Pool
	limiter   *rate.Limiter
	batchSize int
	logger    *slog.Logger
}

// NewPool creates a Pool with the given concurrency. ratePerSec <= 0
// disables rate limiting.
func NewPool(inner knowledge.Embedder, concurrency int, ratePerSec float64, logger *slog.Logger) (*Pool, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner embedder is required")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	workers, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating embed worker pool: %w", err)
	}

	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	return &Pool{
		inner:     inner,
		workers:   workers,
		limiter:   limiter,
		batchSize: defaultBatchSize,
		logger:    logger,
	}, nil
}

// EmbedBatch splits texts into batches, embeds them concurrently, and
// returns the vectors aligned with the input. The first batch failure
// cancels the remaining ones.
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		wg.Add(1)

		submitErr := p.workers.Submit(func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					errOnce.Do(func() { firstErr = err; cancel() })
					return
				}
			}

			vectors, err := p.inner.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				var ee *knowledge.EmbeddingError
				if !errors.As(err, &ee) {
					err = &knowledge.EmbeddingError{Position: start, Err: err}
				}
				errOnce.Do(func() {
					firstErr = fmt.Errorf("embedding batch [%d:%d]: %w", start, end, err)
					cancel()
				})
				return
			}
			// A short non-error return would leave nil rows that read as
			// empty vectors downstream.
			if len(vectors) != end-start {
				errOnce.Do(func() {
					firstErr = &knowledge.EmbeddingError{
						Position: start,
						Err:      fmt.Errorf("batch [%d:%d] returned %d vectors for %d texts", start, end, len(vectors), end-start),
					}
					cancel()
				})
				return
			}
			copy(results[start:end], vectors)
		})
		if submitErr != nil {
			wg.Done()
			errOnce.Do(func() { firstErr = fmt.Errorf("submitting embed batch: %w", submitErr); cancel() })
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	p.logger.Debug("embedded texts", "count", len(texts), "batch_size", p.batchSize)
	return results, nil
}

// Release shuts the worker pool down. The Pool must not be used after.
func (p *Pool) Release() {
	p.workers.Release()
}
