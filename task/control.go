package task

// Reduce runs tasks strictly one at a time, folding every fulfilment value
// into an accumulator. It rejects on the first failure.
func Reduce[T, A any](tasks []*Task[T], initial A, fn func(A, T) A) *Task[A] {
	return newTask(groupCfg(tasks), func(env *Env) (A, error) {
		acc := initial
		for _, tk := range tasks {
			v, err := tk.runScope(env.Scope()).await(env.Scope())
			if err != nil {
				var zero A
				return zero, err
			}
			acc = fn(acc, v)
		}
		return acc, nil
	})
}

// Traverse maps every item to a Task with fn and runs them strictly one at
// a time, collecting the results in item order.
func Traverse[T, R any](items []T, fn func(T) *Task[R]) *Task[[]R] {
	return New(func(env *Env) ([]R, error) {
		results := make([]R, 0, len(items))
		for _, item := range items {
			v, err := fn(item).runScope(env.Scope()).await(env.Scope())
			if err != nil {
				return nil, err
			}
			results = append(results, v)
		}
		return results, nil
	})
}

// Times runs the Task produced by fn(i) for i in [0, n), strictly one at a
// time, collecting the results in index order. Panics if n < 0.
func Times[T any](n int, fn func(i int) *Task[T]) *Task[[]T] {
	if n < 0 {
		panic("task: Times requires n >= 0")
	}
	return New(func(env *Env) ([]T, error) {
		results := make([]T, 0, n)
		for i := 0; i < n; i++ {
			v, err := fn(i).runScope(env.Scope()).await(env.Scope())
			if err != nil {
				return nil, err
			}
			results = append(results, v)
		}
		return results, nil
	})
}

// Whilst repeatedly runs t while cond() is true, checking before each run,
// and fulfils with the results in run order. Zero iterations fulfil with
// an empty slice.
func Whilst[T any](cond func() bool, t *Task[T]) *Task[[]T] {
	return newTask(t.cfg, func(env *Env) ([]T, error) {
		results := []T{}
		for cond() {
			v, err := t.runScope(env.Scope()).await(env.Scope())
			if err != nil {
				return nil, err
			}
			results = append(results, v)
		}
		return results, nil
	})
}

// Until repeatedly runs t until cond() is true, checking after each run,
// so the task runs at least once. It fulfils with the results in run
// order.
func Until[T any](cond func() bool, t *Task[T]) *Task[[]T] {
	return newTask(t.cfg, func(env *Env) ([]T, error) {
		results := []T{}
		for {
			v, err := t.runScope(env.Scope()).await(env.Scope())
			if err != nil {
				return nil, err
			}
			results = append(results, v)
			if cond() {
				return results, nil
			}
		}
	})
}

// Filter keeps the items whose predicate Task fulfils with true. The
// predicates run concurrently; the kept items preserve input order. It
// rejects with the first predicate failure.
func Filter[T any](items []T, pred func(T) *Task[bool]) *Task[[]T] {
	preds := make([]*Task[bool], len(items))
	for i, item := range items {
		preds[i] = pred(item)
	}
	return Map(Parallel(preds, 0), func(keep []bool) []T {
		out := make([]T, 0, len(items))
		for i, k := range keep {
			if k {
				out = append(out, items[i])
			}
		}
		return out
	})
}

// Compose is Kleisli composition: the returned function feeds a value
// through g, then pipes its fulfilment into f.
func Compose[A, B, C any](f func(B) *Task[C], g func(A) *Task[B]) func(A) *Task[C] {
	return func(a A) *Task[C] {
		return FlatMap(g(a), f)
	}
}
