package task

import (
	"sync"
	"time"
)

// debounceState is the single pending timer shared by every debounced view
// of one source Task. It is owned by the original, non-debounced Task so
// that chained Debounce calls collapse instead of stacking delays.
type debounceState struct {
	mu        sync.Mutex
	timer     *time.Timer
	supersede chan struct{}
}

func (t *Task[T]) debounceSt() *debounceState {
	t.debMu.Lock()
	defer t.debMu.Unlock()
	if t.deb == nil {
		t.deb = &debounceState{}
	}
	return t.deb
}

// arm cancels any pending timer, releases the waiter that armed it, and
// arms a fresh one. It returns the new timer and the channel closed if a
// later run supersedes this one.
func (st *debounceState) arm(d time.Duration, fire chan<- struct{}) (*time.Timer, <-chan struct{}) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.timer != nil {
		st.timer.Stop()
	}
	if st.supersede != nil {
		close(st.supersede)
	}
	superseded := make(chan struct{})
	st.supersede = superseded
	timer := time.AfterFunc(d, func() { close(fire) })
	st.timer = timer
	return timer, superseded
}

// clear drops the pending timer if it is still the given one.
func (st *debounceState) clear(timer *time.Timer) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.timer == timer {
		st.timer.Stop()
		st.timer = nil
		st.supersede = nil
	}
}

// Debounce delays each run of the source until a quiet period of d has
// elapsed. Every Run resets the shared pending timer, so rapid repeated
// runs collapse into one source invocation settling the latest Execution;
// the superseded Executions stay pending forever. Cancelling clears the
// pending timer without running the source.
//
// The pending timer is owned by the original, non-debounced source:
// debouncing an already-debounced Task re-targets that source, so
// t.Debounce(200ms).Debounce(500ms) behaves exactly like one 500ms
// debounce.
//
// Debounce panics if d <= 0.
func (t *Task[T]) Debounce(d time.Duration) *Task[T] {
	if d <= 0 {
		panic("task: Debounce requires d > 0")
	}
	origin := t
	if t.debounceOrigin != nil {
		origin = t.debounceOrigin
	}
	st := origin.debounceSt()

	nt := t.derive(func(env *Env) (T, error) {
		var zero T
		fire := make(chan struct{})
		timer, superseded := st.arm(d, fire)

		select {
		case <-fire:
			st.clear(timer)
			return origin.runScope(env.Scope()).await(env.Scope())
		case <-superseded:
			timer.Stop()
			return zero, ErrAborted
		case <-env.Done():
			timer.Stop()
			st.clear(timer)
			return zero, ErrAborted
		}
	})
	nt.debounceOrigin = origin
	return nt
}

// Throttle caps the source's execution rate: a run inside a hot window (a
// previous run happened less than d ago) returns the cached Execution
// unchanged, including its eventual rejection. A run in a cold window
// starts a fresh source Execution, caches it and stamps the window. A
// cached Execution whose scope was aborted is discarded as if the window
// were cold.
//
// Throttle panics if d <= 0.
func (t *Task[T]) Throttle(d time.Duration) *Task[T] {
	if d <= 0 {
		panic("task: Throttle requires d > 0")
	}
	nt := t.derive(nil)
	var (
		mu     sync.Mutex
		last   time.Time
		cached *Execution[T]
	)
	nt.intercept = func(override *Scope) *Execution[T] {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		// An aborted cached Execution will never settle; treat it as a
		// cold window, matching the memoize staleness rule.
		if cached != nil && now.Sub(last) < d && !cached.scope.Aborted() {
			return cached
		}
		es := nt.compositeScope(override)
		if es.Aborted() {
			return newExecution[T](es)
		}
		cached = t.runScope(es)
		last = now
		return cached
	}
	return nt
}
