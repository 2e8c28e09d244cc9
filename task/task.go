package task

import (
	"context"
	"sync"
	"time"
)

// Executor is the deferred computation behind a Task. It runs on its own
// goroutine with an Env bound to the Execution's scope. Returning
// ErrAborted (or a context cancellation caused by the scope, as Env.Sleep
// and Env.Context produce) leaves the Execution permanently unsettled.
type Executor[T any] func(env *Env) (T, error)

// Env is the capability set handed to an executor. It carries only what a
// single Execution needs: its scope, a cancellable sleep and a hook for
// cancellation cleanup.
type Env struct {
	scope *Scope
}

// Scope returns the Execution's composite scope.
func (e *Env) Scope() *Scope { return e.scope }

// Context returns a context cancelled when the scope aborts.
func (e *Env) Context() context.Context { return e.scope.Context() }

// Done returns a channel closed when the scope aborts.
func (e *Env) Done() <-chan struct{} { return e.scope.Done() }

// Aborted reports whether the scope has been aborted.
func (e *Env) Aborted() bool { return e.scope.Aborted() }

// OnCancel registers fn to run if this Execution is cancelled. Unlike
// [Task.OnCancel], it fires only for an Execution that actually started.
func (e *Env) OnCancel(fn func()) { e.scope.OnAbort(fn) }

// Sleep blocks for d, returning early with ErrAborted if the scope aborts
// first. Returning that error from the executor leaves the Execution
// unsettled, which is what a cancelled delay should do.
func (e *Env) Sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-e.scope.Done():
		return ErrAborted
	}
}

// Task is an immutable, reusable, lazy definition of a computation.
// Constructing a Task never invokes its executor; each Run produces an
// independent Execution. Cancelling the Task aborts its root scope and,
// through scope links, every Execution derived from it.
type Task[T any] struct {
	exec  Executor[T]
	scope *Scope
	cfg   config

	// intercept replaces the default run path; set by Throttle and
	// Memoize, which hand out shared Executions instead of fresh ones.
	intercept func(override *Scope) *Execution[T]

	// debounceOrigin points at the first non-debounced ancestor so that
	// re-debouncing re-targets it instead of stacking delays.
	debounceOrigin *Task[T]

	debMu sync.Mutex
	deb   *debounceState
}

// New creates a Task from an executor. The executor is not invoked.
func New[T any](exec Executor[T], opts ...Option) *Task[T] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return newTask(cfg, exec)
}

func newTask[T any](cfg config, exec Executor[T]) *Task[T] {
	return &Task[T]{exec: exec, scope: NewScope(), cfg: cfg}
}

// derive builds a Task that inherits t's configuration.
func (t *Task[T]) derive(exec Executor[T]) *Task[T] {
	return newTask(t.cfg, exec)
}

// Resolve returns a Task that fulfils with v on every run.
func Resolve[T any](v T) *Task[T] {
	return New(func(*Env) (T, error) { return v, nil })
}

// Of is an alias of [Resolve].
func Of[T any](v T) *Task[T] { return Resolve(v) }

// Reject returns a Task that rejects with err on every run.
func Reject[T any](err error) *Task[T] {
	return New(func(*Env) (T, error) {
		var zero T
		return zero, err
	})
}

// Func adapts a plain context function into a Task.
func Func[T any](fn func(ctx context.Context) (T, error), opts ...Option) *Task[T] {
	return New(func(env *Env) (T, error) {
		return fn(env.Context())
	}, opts...)
}

// Scope returns the Task's root scope.
func (t *Task[T]) Scope() *Scope { return t.scope }

// Name returns the name set with [WithName], or "".
func (t *Task[T]) Name() string { return t.cfg.name }

// Run creates and starts a new Execution. If the Task's root scope is
// already aborted the executor is not invoked and the returned Execution
// stays Idle forever.
func (t *Task[T]) Run() *Execution[T] { return t.runScope(nil) }

// RunScope is Run with a caller-supplied override scope: aborting either
// the Task's root scope or the override aborts the Execution.
func (t *Task[T]) RunScope(override *Scope) *Execution[T] { return t.runScope(override) }

// RunContext is Run with the cancellation of ctx linked in as an abort
// source for the Execution.
func (t *Task[T]) RunContext(ctx context.Context) *Execution[T] {
	s := NewScope()
	s.LinkContext(ctx)
	return t.runScope(s)
}

func (t *Task[T]) runScope(override *Scope) *Execution[T] {
	if t.intercept != nil {
		return t.intercept(override)
	}
	return t.start(override)
}

// compositeScope builds the per-Execution scope, aborted when either the
// task root or the override aborts.
func (t *Task[T]) compositeScope(override *Scope) *Scope {
	es := NewScope()
	es.Link(t.scope)
	es.Link(override)
	return es
}

func (t *Task[T]) start(override *Scope) *Execution[T] {
	es := t.compositeScope(override)
	e := newExecution[T](es)
	if es.Aborted() {
		// Cancellation observed before dispatch: never invoke the
		// executor, never settle.
		return e
	}
	e.begin()
	go t.invoke(e)
	return e
}

func (t *Task[T]) invoke(e *Execution[T]) {
	if t.cfg.obs != nil {
		t.cfg.obs.ExecutionStarted(t.cfg.name)
	}
	start := time.Now()

	v, err := t.call(e)
	if swallowed(e.scope, err) {
		if t.cfg.obs != nil {
			t.cfg.obs.ExecutionAbandoned(t.cfg.name)
		}
		return
	}
	e.settle(v, err)
	if t.cfg.obs != nil {
		t.cfg.obs.ExecutionSettled(t.cfg.name, time.Since(start), err)
	}
}

// call runs the executor with panic containment: a panicking executor
// rejects the Execution with a *PanicError.
func (t *Task[T]) call(e *Execution[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return t.exec(&Env{scope: e.scope})
}

// Cancel idempotently aborts the Task's root scope. Every Execution derived
// from the Task is aborted transitively, and the eager callbacks registered
// with [Task.OnCancel] fire exactly once total, in registration order,
// regardless of repeat calls.
func (t *Task[T]) Cancel() {
	if t.scope.Abort() && t.cfg.obs != nil {
		t.cfg.obs.TaskCancelled(t.cfg.name)
	}
}

// OnCancel registers cb to run as soon as the Task's root scope aborts,
// whether or not Run was ever called. It mutates the receiver and returns
// it for chaining; it is the one combinator that does not produce a new
// Task.
func (t *Task[T]) OnCancel(cb func()) *Task[T] {
	t.scope.OnAbort(cb)
	return t
}

// Memoize returns a Task that runs the source at most once and hands the
// cached Execution to every subsequent Run. A rejected settlement clears
// the cache, so the next Run retries from scratch; use [Task.MemoizeErrors]
// to cache rejections too. A cached Execution whose scope was aborted is
// also discarded.
func (t *Task[T]) Memoize() *Task[T] { return t.memoize(false) }

// MemoizeErrors is [Task.Memoize] with rejected settlements cached as well.
func (t *Task[T]) MemoizeErrors() *Task[T] { return t.memoize(true) }

func (t *Task[T]) memoize(cacheErrors bool) *Task[T] {
	nt := t.derive(nil)
	var (
		mu     sync.Mutex
		cached *Execution[T]
	)
	nt.intercept = func(override *Scope) *Execution[T] {
		mu.Lock()
		defer mu.Unlock()
		if cached != nil {
			stale := cached.scope.Aborted() ||
				(!cacheErrors && cached.State() == Rejected)
			if !stale {
				// At-most-once: the cached Execution is returned
				// unchanged; the caller's override is not linked in.
				return cached
			}
			cached = nil
		}
		es := nt.compositeScope(override)
		if es.Aborted() {
			return newExecution[T](es)
		}
		cached = t.runScope(es)
		return cached
	}
	return nt
}
