package task

import (
	"context"
	"sync"
)

// Scope is a node in a cancellation tree. It starts live and can be aborted
// exactly once; the aborted flag is monotonic. Listeners registered via
// OnAbort run in registration order when the scope aborts, and a listener
// registered after the abort runs immediately on the caller's stack.
//
// Scopes are linked, not parented: Link(other) makes an abort of other abort
// this scope too, which lets an Execution answer to both its Task's root
// scope and a caller-supplied override scope at the same time.
type Scope struct {
	mu        sync.Mutex
	aborted   bool
	listeners []func()

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScope returns a live scope.
func NewScope() *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{ctx: ctx, cancel: cancel}
}

// Aborted reports whether the scope has been aborted.
func (s *Scope) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Done returns a channel that is closed when the scope aborts.
func (s *Scope) Done() <-chan struct{} { return s.ctx.Done() }

// Context returns a context that is cancelled when the scope aborts.
// It bridges scopes into context-based APIs (semaphores, net/http, ...).
func (s *Scope) Context() context.Context { return s.ctx }

// Abort aborts the scope. The first call flips the flag, cancels the
// scope's context and invokes every registered listener in registration
// order; subsequent calls are no-ops. It returns true if this call
// performed the abort.
//
// A panicking listener is logged and suppressed so that it cannot block
// the listeners registered after it.
func (s *Scope) Abort() bool {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return false
	}
	s.aborted = true
	ls := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	s.cancel()
	for _, fn := range ls {
		safeCall("abort listener", fn)
	}
	return true
}

// OnAbort registers fn to run when the scope aborts. If the scope is
// already aborted, fn runs immediately on the caller's stack, so no
// notification is ever missed.
func (s *Scope) OnAbort(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		safeCall("abort listener", fn)
		return
	}
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Link makes an abort of other abort s as well. If other is already
// aborted, s is aborted immediately. Propagation is one-way: aborting s
// does not touch other.
func (s *Scope) Link(other *Scope) {
	if other == nil {
		return
	}
	other.OnAbort(func() { s.Abort() })
}

// LinkContext makes cancellation of ctx abort s. If ctx is already done,
// s is aborted immediately. No goroutine is spawned; the hook is released
// when ctx is cancelled.
func (s *Scope) LinkContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if ctx.Err() != nil {
		s.Abort()
		return
	}
	context.AfterFunc(ctx, func() { s.Abort() })
}
