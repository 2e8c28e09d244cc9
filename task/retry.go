package task

import (
	"errors"
	"math"
	"time"
)

type retryConfig struct {
	delay       time.Duration
	backoff     float64
	shouldRetry func(err error, attempt int) bool
}

// RetryOption configures [Task.Retry].
type RetryOption func(*retryConfig)

// WithRetryDelay sets the wait before each re-attempt. Default is no wait.
func WithRetryDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) { c.delay = d }
}

// WithBackoff multiplies the retry delay by mult after every failed
// attempt: the wait before re-attempt k is delay × mult^k. Default 1.
// Panics if mult <= 0.
func WithBackoff(mult float64) RetryOption {
	if mult <= 0 {
		panic("task: WithBackoff requires mult > 0")
	}
	return func(c *retryConfig) { c.backoff = mult }
}

// WithShouldRetry installs a predicate consulted after each failed
// attempt; returning false stops retrying and rejects with that error.
func WithShouldRetry(fn func(err error, attempt int) bool) RetryOption {
	return func(c *retryConfig) { c.shouldRetry = fn }
}

// Retry returns a Task that re-runs the source on rejection, up to n
// retries (n+1 attempts total). Between attempts it waits the configured
// delay, scaled by the backoff multiplier. If the governing scope aborts
// during the wait, the Execution is abandoned without settling. After the
// final failed attempt it rejects with the last error.
//
// Retry panics if n is negative.
func (t *Task[T]) Retry(n int, opts ...RetryOption) *Task[T] {
	if n < 0 {
		panic("task: Retry requires n >= 0")
	}
	cfg := retryConfig{backoff: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	return t.derive(func(env *Env) (T, error) {
		var zero T
		var lastErr error
		for attempt := 0; attempt <= n; attempt++ {
			v, err := t.runScope(env.Scope()).await(env.Scope())
			if err == nil {
				return v, nil
			}
			if errors.Is(err, ErrAborted) {
				return zero, err
			}
			lastErr = err
			if attempt == n {
				break
			}
			if cfg.shouldRetry != nil && !cfg.shouldRetry(err, attempt) {
				break
			}
			if cfg.delay > 0 {
				wait := time.Duration(float64(cfg.delay) * math.Pow(cfg.backoff, float64(attempt)))
				if serr := env.Sleep(wait); serr != nil {
					return zero, serr
				}
			}
		}
		return zero, lastErr
	})
}
