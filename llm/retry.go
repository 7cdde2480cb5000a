package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Retrier re-runs provider calls that fail with transient errors.
type Retrier struct {
	config RetryConfig

	mu   sync.Mutex
	rand *rand.Rand
}

// NewRetrier creates a Retrier. Zero BackoffFactor is treated as 2.
func NewRetrier(config RetryConfig) *Retrier {
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2
	}
	return &Retrier{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Attempt is one try of a retried operation. attempt starts at zero.
type Attempt[T any] func(ctx context.Context, attempt int) (T, error)

// Do runs op until it succeeds, returns a permanent error, or the retry
// budget is exhausted.
func Do[T any](ctx context.Context, r *Retrier, op Attempt[T]) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := op(ctx, attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRetryableError(err) {
			return zero, err
		}
		if attempt == r.config.MaxRetries {
			break
		}
		timer := time.NewTimer(r.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("gave up after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// delay is exponential backoff with +/-25% jitter, bounded by
// [InitialDelay, MaxDelay]. A provider Retry-After wins.
func (r *Retrier) delay(attempt int, err error) time.Duration {
	if llmErr, ok := AsLLMError(err); ok && llmErr.RetryAfter > 0 {
		return time.Duration(llmErr.RetryAfter) * time.Second
	}
	d := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))
	r.mu.Lock()
	d += 0.25 * d * (r.rand.Float64()*2 - 1)
	r.mu.Unlock()
	if hi := float64(r.config.MaxDelay); hi > 0 && d > hi {
		d = hi
	}
	if lo := float64(r.config.InitialDelay); d < lo {
		d = lo
	}
	return time.Duration(d)
}
