package task

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

func groupCfg[T any](tasks []*Task[T]) config {
	if len(tasks) > 0 {
		return tasks[0].cfg
	}
	return config{}
}

// Sequence runs tasks strictly one at a time, in slice order. It fulfils
// with every result in that order, or rejects with the first failure,
// leaving the remaining tasks un-run.
func Sequence[T any](tasks []*Task[T]) *Task[[]T] {
	return newTask(groupCfg(tasks), func(env *Env) ([]T, error) {
		results := make([]T, 0, len(tasks))
		for _, tk := range tasks {
			v, err := tk.runScope(env.Scope()).await(env.Scope())
			if err != nil {
				return nil, err
			}
			results = append(results, v)
		}
		return results, nil
	})
}

// Parallel runs tasks with at most limit in flight (limit <= 0 means
// unbounded). Admission is FIFO in slice order; the result slice is indexed
// by input position regardless of completion order. The first rejection
// cancels every running sibling, stops further launches and rejects the
// group; siblings that still settle afterwards are discarded.
func Parallel[T any](tasks []*Task[T], limit int) *Task[[]T] {
	return newTask(groupCfg(tasks), func(env *Env) ([]T, error) {
		results := make([]T, len(tasks))
		gs := NewScope()
		gs.Link(env.Scope())

		var (
			g        errgroup.Group
			failOnce sync.Once
			firstErr error
		)
		if limit > 0 {
			g.SetLimit(limit)
		}
		for i, tk := range tasks {
			i, tk := i, tk
			if gs.Aborted() {
				break
			}
			g.Go(func() error {
				v, err := tk.runScope(gs).await(gs)
				switch {
				case err == nil:
					results[i] = v
				case !errors.Is(err, ErrAborted):
					failOnce.Do(func() {
						firstErr = err
						// Bulk-cancel the running siblings.
						gs.Abort()
					})
				}
				return nil
			})
		}
		_ = g.Wait()

		if firstErr != nil {
			return nil, firstErr
		}
		if env.Aborted() {
			return nil, ErrAborted
		}
		return results, nil
	})
}

// All is Parallel without a concurrency bound.
func All[T any](tasks ...*Task[T]) *Task[[]T] {
	return Parallel(tasks, 0)
}

// Result is the per-task outcome collected by [AllSettled].
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the task fulfilled.
func (r Result[T]) Ok() bool { return r.Err == nil }

// AllSettled runs every task concurrently and fulfils with one Result per
// input, in input order. It never rejects: failures are carried in the
// Result slots.
func AllSettled[T any](tasks []*Task[T]) *Task[[]Result[T]] {
	return newTask(groupCfg(tasks), func(env *Env) ([]Result[T], error) {
		results := make([]Result[T], len(tasks))
		var g errgroup.Group
		for i, tk := range tasks {
			i, tk := i, tk
			g.Go(func() error {
				v, err := tk.runScope(env.Scope()).await(env.Scope())
				results[i] = Result[T]{Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait()
		if env.Aborted() {
			return nil, ErrAborted
		}
		return results, nil
	})
}

// Race runs every task concurrently and settles with the first settlement,
// fulfilment or rejection alike. The losers are cancelled. An empty input
// never settles.
func Race[T any](tasks ...*Task[T]) *Task[T] {
	return newTask(groupCfg(tasks), func(env *Env) (T, error) {
		var zero T
		type outcome struct {
			v   T
			err error
		}
		settled := make(chan outcome, len(tasks))
		scopes := make([]*Scope, len(tasks))
		for i, tk := range tasks {
			i, tk := i, tk
			s := NewScope()
			s.Link(env.Scope())
			scopes[i] = s
			tk.runScope(s).onSettle(func(v T, err error) {
				settled <- outcome{v: v, err: err}
			})
		}
		select {
		case o := <-settled:
			for _, s := range scopes {
				s.Abort()
			}
			return o.v, o.err
		case <-env.Done():
			return zero, ErrAborted
		}
	})
}

// Any runs every task concurrently and fulfils with the first fulfilment,
// cancelling the rest. If every task rejects, Any rejects with an
// *AggregateError carrying the errors in input order. An empty input
// rejects immediately.
func Any[T any](tasks ...*Task[T]) *Task[T] {
	return newTask(groupCfg(tasks), func(env *Env) (T, error) {
		var zero T
		if len(tasks) == 0 {
			return zero, &AggregateError{}
		}
		type outcome struct {
			i   int
			v   T
			err error
		}
		settled := make(chan outcome, len(tasks))
		scopes := make([]*Scope, len(tasks))
		for i, tk := range tasks {
			i, tk := i, tk
			s := NewScope()
			s.Link(env.Scope())
			scopes[i] = s
			tk.runScope(s).onSettle(func(v T, err error) {
				settled <- outcome{i: i, v: v, err: err}
			})
		}

		errs := make([]error, len(tasks))
		for rejected := 0; rejected < len(tasks); {
			select {
			case o := <-settled:
				if o.err == nil {
					for _, s := range scopes {
						s.Abort()
					}
					return o.v, nil
				}
				errs[o.i] = o.err
				rejected++
			case <-env.Done():
				return zero, ErrAborted
			}
		}
		return zero, &AggregateError{Errors: errs}
	})
}
