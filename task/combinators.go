package task

import (
	"errors"
	"time"
)

// Map transforms the fulfilment value of t with fn. Rejections pass
// through untouched.
func Map[T, R any](t *Task[T], fn func(T) R) *Task[R] {
	return newTask(t.cfg, func(env *Env) (R, error) {
		var zero R
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err != nil {
			return zero, err
		}
		return fn(v), nil
	})
}

// FlatMap runs the Task produced by fn from t's fulfilment value, under
// the same governing scope.
func FlatMap[T, R any](t *Task[T], fn func(T) *Task[R]) *Task[R] {
	return newTask(t.cfg, func(env *Env) (R, error) {
		var zero R
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err != nil {
			return zero, err
		}
		return fn(v).runScope(env.Scope()).await(env.Scope())
	})
}

// Tap runs fn on the fulfilment value for its side effects. A panic in fn
// is logged and suppressed; the value passes through unchanged.
func (t *Task[T]) Tap(fn func(T)) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err != nil {
			return v, err
		}
		safeCall("tap", func() { fn(v) })
		return v, nil
	})
}

// TapError runs fn on the rejection error for its side effects (logging,
// metrics). The original error always passes through; a panic in fn is
// logged and suppressed and never replaces it.
func (t *Task[T]) TapError(fn func(error)) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err != nil && !errors.Is(err, ErrAborted) {
			safeCall("tapError", func() { fn(err) })
		}
		return v, err
	})
}

// CatchError transforms a rejection with fn, which may recover to a value
// or substitute a different error. Fulfilments pass through untouched.
func (t *Task[T]) CatchError(fn func(error) (T, error)) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err == nil || errors.Is(err, ErrAborted) {
			return v, err
		}
		return fn(err)
	})
}

// OrElse recovers from a rejection by running the Task produced by fn.
func (t *Task[T]) OrElse(fn func(error) *Task[T]) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err == nil || errors.Is(err, ErrAborted) {
			return v, err
		}
		return fn(err).runScope(env.Scope()).await(env.Scope())
	})
}

// FallbackTo runs alt if t rejects, regardless of the error.
func (t *Task[T]) FallbackTo(alt *Task[T]) *Task[T] {
	return t.OrElse(func(error) *Task[T] { return alt })
}

// Finally runs fn after t settles, on fulfilment and rejection alike.
// The outcome passes through unchanged; a panic in fn is logged and
// suppressed.
func (t *Task[T]) Finally(fn func()) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if errors.Is(err, ErrAborted) {
			return v, err
		}
		safeCall("finally", fn)
		return v, err
	})
}

// BiMap post-processes both outcomes: onOK maps the fulfilment value,
// onErr maps the rejection error. It never changes which side settles.
func BiMap[T, R any](t *Task[T], onOK func(T) R, onErr func(error) error) *Task[R] {
	return newTask(t.cfg, func(env *Env) (R, error) {
		var zero R
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err != nil {
			if errors.Is(err, ErrAborted) {
				return zero, err
			}
			return zero, onErr(err)
		}
		return onOK(v), nil
	})
}

// Fold collapses both outcomes into a fulfilment: onErr for rejections,
// onOK for fulfilments. The resulting Task never rejects.
func Fold[T, R any](t *Task[T], onErr func(error) R, onOK func(T) R) *Task[R] {
	return newTask(t.cfg, func(env *Env) (R, error) {
		var zero R
		v, err := t.runScope(env.Scope()).await(env.Scope())
		if err != nil {
			if errors.Is(err, ErrAborted) {
				return zero, err
			}
			return onErr(err), nil
		}
		return onOK(v), nil
	})
}

// IfElse branches on the fulfilment value: onTrue when pred holds,
// onFalse otherwise. The chosen Task runs under the same governing scope.
func IfElse[T, R any](t *Task[T], pred func(T) bool, onTrue, onFalse func(T) *Task[R]) *Task[R] {
	return FlatMap(t, func(v T) *Task[R] {
		if pred(v) {
			return onTrue(v)
		}
		return onFalse(v)
	})
}

// Pair holds the two fulfilment values produced by [Zip].
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip runs a and b concurrently and fulfils with both values once both
// settle. See [ZipWith].
func Zip[A, B any](a *Task[A], b *Task[B]) *Task[Pair[A, B]] {
	return ZipWith(a, b, func(av A, bv B) Pair[A, B] {
		return Pair[A, B]{First: av, Second: bv}
	})
}

// ZipWith runs a and b concurrently under the same governing scope and
// fulfils with fn applied to both values. It rejects as soon as either
// side rejects; the still-running sibling is left to finish and its result
// is discarded (only group combinators bulk-cancel siblings).
func ZipWith[A, B, R any](a *Task[A], b *Task[B], fn func(A, B) R) *Task[R] {
	return newTask(a.cfg, func(env *Env) (R, error) {
		var zero R
		ea := a.runScope(env.Scope())
		eb := b.runScope(env.Scope())

		settled := make(chan error, 2)
		ea.onSettle(func(_ A, err error) { settled <- err })
		eb.onSettle(func(_ B, err error) { settled <- err })

		for seen := 0; seen < 2; seen++ {
			select {
			case err := <-settled:
				if err != nil {
					return zero, err
				}
			case <-env.Done():
				return zero, ErrAborted
			}
		}
		av, _ := ea.result()
		bv, _ := eb.result()
		return fn(av, bv), nil
	})
}

// Delay runs t after a quiet wait of d. Cancelling during the wait leaves
// the Execution unsettled without ever invoking the source.
func (t *Task[T]) Delay(d time.Duration) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		if err := env.Sleep(d); err != nil {
			var zero T
			return zero, err
		}
		return t.runScope(env.Scope()).await(env.Scope())
	})
}

// Timeout races t against a timer. If the timer wins, the source
// Execution is cancelled and the result rejects with *TimeoutError; if the
// source settles first, the timer is dropped and the outcome passes
// through.
func (t *Task[T]) Timeout(d time.Duration) *Task[T] {
	return t.derive(func(env *Env) (T, error) {
		var zero T
		inner := NewScope()
		inner.Link(env.Scope())
		e := t.runScope(inner)

		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-e.Done():
			return e.result()
		case <-timer.C:
			inner.Abort()
			return zero, &TimeoutError{After: d}
		case <-env.Done():
			inner.Abort()
			return zero, ErrAborted
		}
	})
}
