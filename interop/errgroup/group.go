// Package errgroup provides an adapter with golang.org/x/sync/errgroup
// semantics over task scopes. It enables incremental migration: code that
// expects an errgroup-style Group can drive Tasks without learning the
// Execution API.
package errgroup

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-task/task"
)

// Group runs functions and Tasks under one shared scope. The first non-nil
// error aborts the scope, cancelling every Task scheduled through the
// group (fail-fast semantics).
type Group struct {
	s   *task.Scope
	g   errgroup.Group
	ctx context.Context
}

// WithContext creates a Group whose scope is linked to ctx: cancelling ctx
// aborts everything scheduled in the group. The returned context is
// cancelled when the group's scope aborts.
func WithContext(ctx context.Context) (*Group, context.Context) {
	s := task.NewScope()
	s.LinkContext(ctx)
	return &Group{s: s, ctx: s.Context()}, s.Context()
}

// Go starts fn on its own goroutine. A non-nil return aborts the group's
// scope.
func (g *Group) Go(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	g.g.Go(func() error {
		if err := fn(g.ctx); err != nil {
			g.s.Abort()
			return err
		}
		return nil
	})
}

// Run schedules t in the group. The Execution runs under the group's
// scope; a rejection aborts the scope. Cancelled, never-settling
// Executions unblock when the scope aborts and report the context error.
func Run[T any](g *Group, t *task.Task[T], out *T) {
	g.g.Go(func() error {
		v, err := t.RunScope(g.s).Await(g.ctx)
		if err != nil {
			g.s.Abort()
			return err
		}
		if out != nil {
			*out = v
		}
		return nil
	})
}

// Wait blocks until everything scheduled has returned and yields the first
// non-nil error, or nil if all succeeded.
func (g *Group) Wait() error {
	return g.g.Wait()
}
