package task

import (
	"context"
	"sync"
)

// ExecutionState describes the settlement state of an Execution.
type ExecutionState int32

const (
	// Idle means the executor has not been invoked. An Execution created
	// from an already-aborted Task stays Idle forever.
	Idle ExecutionState = iota
	// Running means the executor has been invoked and has not settled.
	Running
	// Fulfilled means the executor returned a value.
	Fulfilled
	// Rejected means the executor returned an error.
	Rejected
)

func (s ExecutionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Execution is a single, one-shot run of a Task. Many Executions may derive
// from one Task; each owns a composite Scope linked to the Task's root scope
// and, if supplied, the caller's override scope.
//
// A cancelled Execution never settles. Await bounds the wait with the
// caller's context instead.
type Execution[T any] struct {
	scope *Scope
	done  chan struct{}

	mu        sync.Mutex
	state     ExecutionState
	value     T
	err       error
	settleFns []func(T, error)
}

func newExecution[T any](s *Scope) *Execution[T] {
	return &Execution[T]{scope: s, done: make(chan struct{})}
}

// Scope returns the Execution's composite scope.
func (e *Execution[T]) Scope() *Scope { return e.scope }

// State returns the current settlement state.
func (e *Execution[T]) State() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settled reports whether the Execution is Fulfilled or Rejected.
func (e *Execution[T]) Settled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the Execution settles. It is never
// closed for an Execution abandoned by cancellation.
func (e *Execution[T]) Done() <-chan struct{} { return e.done }

// Cancel aborts this Execution's own scope. Sibling Executions of the same
// Task are unaffected; cancel the Task itself to abort them all.
func (e *Execution[T]) Cancel() { e.scope.Abort() }

// Await blocks until the Execution settles or ctx is done. A cancelled
// Execution never settles, so callers that may race with cancellation
// should pass a bounded context.
func (e *Execution[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-e.done:
		return e.result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// await blocks until settlement or until either the governing scope or the
// awaited Execution's own scope aborts, returning ErrAborted so the caller
// can short-circuit without settling its own Execution. Watching e's scope
// matters when the awaited Task is cancelled directly: its Execution will
// never settle, and without that arm the waiter would park forever. The
// governing-scope arm stays separate so shared (memoized, throttled)
// Executions honor each caller's scope.
func (e *Execution[T]) await(s *Scope) (T, error) {
	select {
	case <-e.done:
		return e.result()
	case <-e.scope.Done():
		if e.Settled() {
			return e.result()
		}
		var zero T
		return zero, ErrAborted
	case <-s.Done():
		var zero T
		return zero, ErrAborted
	}
}

func (e *Execution[T]) result() (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.err
}

func (e *Execution[T]) begin() {
	e.mu.Lock()
	if e.state == Idle {
		e.state = Running
	}
	e.mu.Unlock()
}

// settle records the outcome exactly once. Later calls are no-ops.
func (e *Execution[T]) settle(v T, err error) bool {
	e.mu.Lock()
	if e.state == Fulfilled || e.state == Rejected {
		e.mu.Unlock()
		return false
	}
	if err != nil {
		e.state = Rejected
		e.err = err
	} else {
		e.state = Fulfilled
		e.value = v
	}
	fns := e.settleFns
	e.settleFns = nil
	e.mu.Unlock()

	close(e.done)
	for _, fn := range fns {
		fn(v, err)
	}
	return true
}

// onSettle registers fn to run when the Execution settles; if it already
// has, fn runs immediately. Callbacks must not block: group combinators
// use them to multiplex many Executions onto one channel.
func (e *Execution[T]) onSettle(fn func(T, error)) {
	e.mu.Lock()
	if e.state == Fulfilled || e.state == Rejected {
		v, err := e.value, e.err
		e.mu.Unlock()
		fn(v, err)
		return
	}
	e.settleFns = append(e.settleFns, fn)
	e.mu.Unlock()
}
