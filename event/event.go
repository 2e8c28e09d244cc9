// Package event adapts event sources into Tasks. An Emitter fans values
// out to subscribers; On turns the next delivery into a one-shot Task that
// unsubscribes both on delivery and on cancellation.
package event

import (
	"sync"

	"github.com/NetPo4ki/go-task/task"
)

// Emitter is a minimal fan-out event source. Emit never blocks: a
// subscriber whose buffer is full misses the value.
type Emitter[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	next   int
	buffer int
}

// Option configures an Emitter.
type Option func(*emitterConfig)

type emitterConfig struct {
	buffer int
}

// WithBuffer sets the per-subscriber channel buffer. Default 1.
// Panics if n < 1.
func WithBuffer(n int) Option {
	if n < 1 {
		panic("event: WithBuffer requires n >= 1")
	}
	return func(c *emitterConfig) { c.buffer = n }
}

// NewEmitter creates an Emitter.
func NewEmitter[T any](opts ...Option) *Emitter[T] {
	cfg := emitterConfig{buffer: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Emitter[T]{subs: make(map[int]chan T), buffer: cfg.buffer}
}

// Emit delivers v to every current subscriber without blocking.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe registers a listener channel and returns it with an
// unsubscribe function. Unsubscribing twice is a no-op.
func (e *Emitter[T]) Subscribe() (<-chan T, func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	ch := make(chan T, e.buffer)
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Len returns the current subscriber count.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// On returns a one-shot Task that, on each run, subscribes to e and
// fulfils with the next emitted value. The listener is unregistered on
// delivery and on cancellation; a cancelled run leaves the Execution
// permanently pending.
func On[T any](e *Emitter[T]) *task.Task[T] {
	return task.New(func(env *task.Env) (T, error) {
		ch, unsubscribe := e.Subscribe()
		defer unsubscribe()
		select {
		case v := <-ch:
			return v, nil
		case <-env.Done():
			var zero T
			return zero, task.ErrAborted
		}
	})
}
