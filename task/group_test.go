package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSequenceCollectsInOrder(t *testing.T) {
	t.Parallel()
	tasks := []*Task[int]{Resolve(1), Resolve(2), Resolve(3)}
	v, err := Sequence(tasks).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, v)
}

func TestSequenceShortCircuits(t *testing.T) {
	t.Parallel()
	var thirdRan atomic.Bool
	tasks := []*Task[int]{
		Resolve(1),
		Reject[int](errBoom),
		New(func(env *Env) (int, error) {
			thirdRan.Store(true)
			return 3, nil
		}),
	}
	_, err := Sequence(tasks).Run().Await(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.False(t, thirdRan.Load(), "tasks after the failure must never run")
}

func TestSequenceRunsOneAtATime(t *testing.T) {
	t.Parallel()
	var cur, maxSeen atomic.Int32
	work := New(func(env *Env) (int, error) {
		c := cur.Add(1)
		defer cur.Add(-1)
		for {
			if m := maxSeen.Load(); c <= m || maxSeen.CompareAndSwap(m, c) {
				break
			}
		}
		if err := env.Sleep(5 * time.Millisecond); err != nil {
			return 0, err
		}
		return 1, nil
	})
	_, err := Sequence([]*Task[int]{work, work, work}).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), maxSeen.Load())
}

func TestParallelResultsInInputOrder(t *testing.T) {
	t.Parallel()
	tasks := []*Task[string]{
		delayed("r0", 50*time.Millisecond),
		delayed("r1", 10*time.Millisecond),
		delayed("r2", 30*time.Millisecond),
	}
	v, err := Parallel(tasks, 2).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"r0", "r1", "r2"}, v,
		"results indexed by input position, not completion order")
}

func TestParallelHonoursLimit(t *testing.T) {
	t.Parallel()
	var cur, maxSeen atomic.Int32
	work := New(func(env *Env) (int, error) {
		c := cur.Add(1)
		defer cur.Add(-1)
		for {
			if m := maxSeen.Load(); c <= m || maxSeen.CompareAndSwap(m, c) {
				break
			}
		}
		if err := env.Sleep(10 * time.Millisecond); err != nil {
			return 0, err
		}
		return 1, nil
	})
	tasks := []*Task[int]{work, work, work, work, work, work}
	_, err := Parallel(tasks, 2).Run().Await(context.Background())
	require.NoError(t, err)
	require.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestParallelFailureCancelsSiblings(t *testing.T) {
	t.Parallel()
	var cancelled atomic.Int32
	var lateRan atomic.Bool

	blocker := blockingTask(nil, &cancelled)
	failing := Reject[int](errBoom).Delay(10 * time.Millisecond)
	late := New(func(env *Env) (int, error) {
		lateRan.Store(true)
		return 3, nil
	})

	_, err := Parallel([]*Task[int]{blocker, failing, late}, 2).
		Run().Await(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.Eventually(t, func() bool { return cancelled.Load() == 1 },
		time.Second, time.Millisecond, "running siblings are bulk-cancelled on failure")
	require.False(t, lateRan.Load(), "tasks admitted after the failure must be no-ops")
}

func TestAllUnbounded(t *testing.T) {
	t.Parallel()
	start := time.Now()
	v, err := All(
		delayed(1, 30*time.Millisecond),
		delayed(2, 30*time.Millisecond),
		delayed(3, 30*time.Millisecond),
	).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, v)
	require.Less(t, time.Since(start), 80*time.Millisecond)
}

func TestAllSettledNeverRejects(t *testing.T) {
	t.Parallel()
	v, err := AllSettled([]*Task[int]{Resolve(1), Reject[int](errBoom), Resolve(3)}).
		Run().Await(context.Background())
	require.NoError(t, err)
	require.Len(t, v, 3)
	require.True(t, v[0].Ok())
	require.Equal(t, 1, v[0].Value)
	require.ErrorIs(t, v[1].Err, errBoom)
	require.True(t, v[2].Ok())
	require.Equal(t, 3, v[2].Value)
}

func TestRaceFirstSettlementWins(t *testing.T) {
	t.Parallel()
	var cancelled atomic.Int32
	slow := New(func(env *Env) (int, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return 1, nil
		case <-env.Done():
			cancelled.Add(1)
			return 0, ErrAborted
		}
	})
	v, err := Race(slow, delayed(2, 10*time.Millisecond)).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Eventually(t, func() bool { return cancelled.Load() == 1 },
		time.Second, time.Millisecond, "losers are cancelled")
}

func TestRaceRejectionWinsToo(t *testing.T) {
	t.Parallel()
	_, err := Race(delayed(1, 100*time.Millisecond), Reject[int](errBoom)).
		Run().Await(context.Background())
	require.ErrorIs(t, err, errBoom)
}

func TestAnyResolvesWithFirstFulfilment(t *testing.T) {
	t.Parallel()
	v, err := Any(
		Reject[int](errors.New("a")),
		Resolve(2),
		Reject[int](errors.New("c")),
	).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestAnyAggregatesErrorsInOrder(t *testing.T) {
	t.Parallel()
	errA := errors.New("a")
	errB := errors.New("b")
	_, err := Any(
		Reject[int](errA).Delay(20*time.Millisecond),
		Reject[int](errB),
	).Run().Await(context.Background())

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Equal(t, []error{errA, errB}, agg.Errors,
		"errors are ordered by input position regardless of completion order")
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}

func TestAnyEmptyRejects(t *testing.T) {
	t.Parallel()
	_, err := Any[int]().Run().Await(context.Background())
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Empty(t, agg.Errors)
}
