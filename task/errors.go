package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// ErrAborted marks an outcome caused by the execution's own scope being
// aborted. An executor returning ErrAborted (directly or wrapped) does not
// settle its Execution: the Execution stays pending forever, which is the
// library's cancellation policy. Combinators treat it the same way and
// short-circuit without settling.
var ErrAborted = errors.New("task: execution aborted")

// TimeoutError is the rejection produced by [Task.Timeout] when the timer
// wins the race against the wrapped task.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task: timed out after %s", e.After)
}

// AggregateError is the rejection produced by [Any] when every alternative
// rejected. Errors holds the underlying rejections in input order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("task: all %d tasks rejected", len(e.Errors))
}

// Unwrap exposes the underlying errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// PanicError wraps a panic recovered from an executor, together with the
// goroutine stack captured at the point of the panic. The Execution is
// settled Rejected with a *PanicError.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task: executor panicked: %v\n\n%s", e.Value, e.Stack)
}

// SideEffectError wraps a panic recovered from a side-effect callback
// (Tap, TapError, Finally, OnCancel, abort listeners). It is logged and
// suppressed; it never replaces the primary outcome of an Execution.
type SideEffectError struct {
	Op    string
	Value any
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("task: %s panicked: %v", e.Op, e.Value)
}

var logger atomic.Pointer[slog.Logger]

// SetLogger replaces the logger used to report suppressed side-effect
// panics. The default is slog.Default(). Passing nil restores the default.
func SetLogger(l *slog.Logger) { logger.Store(l) }

func log() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// safeCall invokes a side-effect callback, converting a panic into a
// logged, suppressed *SideEffectError.
func safeCall(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log().Error("suppressed side-effect panic",
				slog.String("op", op),
				slog.Any("error", &SideEffectError{Op: op, Value: r}))
		}
	}()
	fn()
}

func newPanicError(v any) *PanicError {
	// runtime.Stack truncates gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: string(buf[:n])}
}

// swallowed reports whether err is a cancellation outcome that must leave
// the Execution unsettled: ErrAborted itself, or a context cancellation
// observed while the execution's own scope is aborted.
func swallowed(s *Scope, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAborted) {
		return true
	}
	return s.Aborted() && errors.Is(err, context.Canceled)
}
