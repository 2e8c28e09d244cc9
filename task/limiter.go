package task

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

type limiterConfig struct {
	onActive    func()
	onCompleted func()
	onError     func(error)
	onIdle      func()
}

// LimiterOption configures a [Limiter]'s event hooks. Hooks run on the
// goroutine of the Execution that triggered them and must not block.
type LimiterOption func(*limiterConfig)

// OnActive fires when a wrapped Execution is dispatched (admitted past the
// concurrency bound).
func OnActive(fn func()) LimiterOption {
	return func(c *limiterConfig) { c.onActive = fn }
}

// OnCompleted fires when a dispatched Execution fulfils.
func OnCompleted(fn func()) LimiterOption {
	return func(c *limiterConfig) { c.onCompleted = fn }
}

// OnError fires when a dispatched Execution rejects.
func OnError(fn func(error)) LimiterOption {
	return func(c *limiterConfig) { c.onError = fn }
}

// OnIdle fires exactly once per transition to the idle state: no active
// Executions and an empty wait queue.
func OnIdle(fn func()) LimiterOption {
	return func(c *limiterConfig) { c.onIdle = fn }
}

// Limiter is an admission controller bounding the number of simultaneously
// active Executions across arbitrary Tasks. Admission is strictly FIFO;
// active never exceeds the configured concurrency. A wrapped Execution
// cancelled while still queued leaves the queue with no side effects and
// never counts as active.
type Limiter struct {
	concurrency int64
	sem         *semaphore.Weighted
	cfg         limiterConfig

	// mu guards the counters; they are mutated only under it, never on
	// the semaphore path.
	mu      sync.Mutex
	active  int
	waiting int
	idle    bool
}

// NewLimiter creates a Limiter admitting at most concurrency simultaneous
// Executions. Panics if concurrency < 1.
func NewLimiter(concurrency int, opts ...LimiterOption) *Limiter {
	if concurrency < 1 {
		panic("task: NewLimiter requires concurrency >= 1")
	}
	l := &Limiter{
		concurrency: int64(concurrency),
		sem:         semaphore.NewWeighted(int64(concurrency)),
		idle:        true,
	}
	for _, opt := range opts {
		opt(&l.cfg)
	}
	return l
}

// Concurrency returns the immutable admission bound.
func (l *Limiter) Concurrency() int { return int(l.concurrency) }

// Active returns the number of currently dispatched Executions.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Waiting returns the number of Executions queued for admission.
func (l *Limiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiting
}

// Limit wraps t in a Task whose Executions pass through the limiter: they
// dispatch immediately while capacity remains and queue FIFO otherwise.
func Limit[T any](l *Limiter, t *Task[T]) *Task[T] {
	return newTask(t.cfg, func(env *Env) (T, error) {
		var zero T
		l.enqueue()
		if err := l.sem.Acquire(env.Context(), 1); err != nil {
			// Cancelled while queued: leave without side effects.
			l.abandonQueued()
			return zero, ErrAborted
		}
		l.dispatched()

		v, err := t.runScope(env.Scope()).await(env.Scope())
		l.completed(err)
		l.sem.Release(1)
		return v, err
	})
}

func (l *Limiter) enqueue() {
	l.mu.Lock()
	l.waiting++
	l.idle = false
	l.mu.Unlock()
}

func (l *Limiter) abandonQueued() {
	l.mu.Lock()
	l.waiting--
	fireIdle := l.becameIdle()
	l.mu.Unlock()
	if fireIdle && l.cfg.onIdle != nil {
		l.cfg.onIdle()
	}
}

func (l *Limiter) dispatched() {
	l.mu.Lock()
	l.waiting--
	l.active++
	l.mu.Unlock()
	if l.cfg.onActive != nil {
		l.cfg.onActive()
	}
}

func (l *Limiter) completed(err error) {
	l.mu.Lock()
	l.active--
	fireIdle := l.becameIdle()
	l.mu.Unlock()

	switch {
	case err == nil:
		if l.cfg.onCompleted != nil {
			l.cfg.onCompleted()
		}
	case errors.Is(err, ErrAborted):
		// Abandoned mid-flight: neither completion nor error.
	default:
		if l.cfg.onError != nil {
			l.cfg.onError(err)
		}
	}
	if fireIdle && l.cfg.onIdle != nil {
		l.cfg.onIdle()
	}
}

// becameIdle must be called with mu held. It flips the idle flag on the
// transition and reports whether this call performed it.
func (l *Limiter) becameIdle() bool {
	if l.active == 0 && l.waiting == 0 && !l.idle {
		l.idle = true
		return true
	}
	return false
}
