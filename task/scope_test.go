package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestAbortIdempotent(t *testing.T) {
	t.Parallel()
	s := NewScope()
	fired := 0
	s.OnAbort(func() { fired++ })

	if !s.Abort() {
		t.Fatal("first Abort should report true")
	}
	if s.Abort() {
		t.Fatal("second Abort should report false")
	}
	if fired != 1 {
		t.Fatalf("listener fired %d times, want 1", fired)
	}
	if !s.Aborted() {
		t.Fatal("scope should be aborted")
	}
}

func TestListenerOrder(t *testing.T) {
	t.Parallel()
	s := NewScope()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.OnAbort(func() { order = append(order, i) })
	}
	s.Abort()
	for i, got := range order {
		if got != i {
			t.Fatalf("listener order %v, want registration order", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 listeners to fire, got %d", len(order))
	}
}

func TestOnAbortAfterAbortFiresImmediately(t *testing.T) {
	t.Parallel()
	s := NewScope()
	s.Abort()
	fired := false
	s.OnAbort(func() { fired = true })
	if !fired {
		t.Fatal("listener registered after abort must fire on the same call stack")
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer SetLogger(nil)

	s := NewScope()
	second := false
	s.OnAbort(func() { panic("listener boom") })
	s.OnAbort(func() { second = true })
	s.Abort()
	if !second {
		t.Fatal("a panicking listener must not block the listeners after it")
	}
}

func TestLinkPropagation(t *testing.T) {
	t.Parallel()
	parent := NewScope()
	child := NewScope()
	child.Link(parent)

	parent.Abort()
	if !child.Aborted() {
		t.Fatal("aborting the linked scope must abort this one")
	}
}

func TestLinkIsOneWay(t *testing.T) {
	t.Parallel()
	parent := NewScope()
	child := NewScope()
	child.Link(parent)

	child.Abort()
	if parent.Aborted() {
		t.Fatal("aborting the child must not touch the linked scope")
	}
}

func TestLinkAlreadyAborted(t *testing.T) {
	t.Parallel()
	parent := NewScope()
	parent.Abort()
	child := NewScope()
	child.Link(parent)
	if !child.Aborted() {
		t.Fatal("linking an aborted scope must abort immediately")
	}
}

func TestLinkContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScope()
	s.LinkContext(ctx)
	cancel()

	deadline := time.After(200 * time.Millisecond)
	for !s.Aborted() {
		select {
		case <-deadline:
			t.Fatal("scope did not observe context cancellation")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestLinkContextAlreadyDone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScope()
	s.LinkContext(ctx)
	if !s.Aborted() {
		t.Fatal("linking a done context must abort immediately")
	}
}

func TestScopeContextCancelledOnAbort(t *testing.T) {
	t.Parallel()
	s := NewScope()
	s.Abort()
	select {
	case <-s.Context().Done():
	default:
		t.Fatal("scope context should be cancelled after abort")
	}
}
