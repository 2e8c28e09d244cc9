package task

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	src := New(func(env *Env) (string, error) {
		if n := calls.Add(1); n < 3 {
			return "", fmt.Errorf("attempt %d", n)
		}
		return "done", nil
	})

	v, err := src.Retry(3).Run().Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "done", v)
	require.Equal(t, int32(3), calls.Load(), "source invoked exactly 3 times total")
}

func TestRetryRejectsWithLastError(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	src := New(func(env *Env) (int, error) {
		return 0, fmt.Errorf("attempt %d", calls.Add(1))
	})

	_, err := src.Retry(2).Run().Await(context.Background())
	require.EqualError(t, err, "attempt 3", "rejects with the error of the final attempt")
	require.Equal(t, int32(3), calls.Load(), "n retries means n+1 attempts")
}

func TestRetryShouldRetryStopsEarly(t *testing.T) {
	t.Parallel()
	fatal := errors.New("fatal")
	var calls atomic.Int32
	src := New(func(env *Env) (int, error) {
		calls.Add(1)
		return 0, fatal
	})

	_, err := src.Retry(10, WithShouldRetry(func(err error, attempt int) bool {
		return !errors.Is(err, fatal)
	})).Run().Await(context.Background())
	require.ErrorIs(t, err, fatal)
	require.Equal(t, int32(1), calls.Load())
}

func TestRetryBackoffScalesDelay(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	src := New(func(env *Env) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errBoom
		}
		return 1, nil
	})

	// Waits: 10ms, then 20ms.
	start := time.Now()
	_, err := src.Retry(3, WithRetryDelay(10*time.Millisecond), WithBackoff(2)).
		Run().Await(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRetryCancelDuringBackoffNeverSettles(t *testing.T) {
	t.Parallel()
	src := Reject[int](errBoom)
	r := src.Retry(5, WithRetryDelay(500*time.Millisecond))

	e := r.Run()
	time.Sleep(20 * time.Millisecond) // let the first attempt fail and the wait start
	r.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, e.Settled(), "a retry cancelled mid-backoff is abandoned")
}

func TestRetryPanicsOnNegativeN(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { Resolve(1).Retry(-1) })
}
