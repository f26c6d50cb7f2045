// Package txn provides a minimal transaction context that fans out
// open/begin/pre-commit/post-commit/rollback/close events to registered
// observers. The tree's LifecycleAdapter is the canonical observer, but the
// context itself knows nothing about trees.
package txn

import "github.com/google/uuid"

// Observer reacts to transaction lifecycle events. Every method receives
// the Context so an observer can read its ID for log correlation.
type Observer interface {
	OnOpen(ctx *Context)
	OnPreCommit(ctx *Context) error
	OnPostCommit(ctx *Context)
	OnRollback(ctx *Context)
	OnClose(ctx *Context)
	// OnMutation is called once per mutating operation performed under
	// this transaction, independent of commit/rollback.
	OnMutation(ctx *Context)
}

// Context represents one logical transaction. Callers create one with
// Begin, register observers, perform work, then call PreCommit+PostCommit
// (success) or Rollback (abort), and finally Close in either case.
type Context struct {
	ID        string
	observers []Observer
}

// Begin starts a new transaction and fires OnOpen on every observer passed
// in. Additional observers can still be registered afterward with
// Subscribe.
func Begin(observers ...Observer) *Context {
	ctx := &Context{ID: uuid.NewString()}
	for _, o := range observers {
		ctx.Subscribe(o)
	}
	for _, o := range ctx.observers {
		o.OnOpen(ctx)
	}
	return ctx
}

// Subscribe registers an additional observer on an already-open context.
func (c *Context) Subscribe(o Observer) {
	c.observers = append(c.observers, o)
}

// PreCommit fires OnPreCommit on every observer, stopping at the first
// error (mirroring how a transaction manager aborts the commit if any
// participant refuses it).
func (c *Context) PreCommit() error {
	for _, o := range c.observers {
		if err := o.OnPreCommit(c); err != nil {
			return err
		}
	}
	return nil
}

// PostCommit fires OnPostCommit on every observer. Call only after a
// successful PreCommit.
func (c *Context) PostCommit() {
	for _, o := range c.observers {
		o.OnPostCommit(c)
	}
}

// Rollback fires OnRollback on every observer.
func (c *Context) Rollback() {
	for _, o := range c.observers {
		o.OnRollback(c)
	}
}

// Close fires OnClose on every observer. Safe to call after either a
// commit or a rollback.
func (c *Context) Close() {
	for _, o := range c.observers {
		o.OnClose(c)
	}
}

// Mutate fires OnMutation on every observer. Callers invoke this once per
// put/remove performed under the transaction.
func (c *Context) Mutate() {
	for _, o := range c.observers {
		o.OnMutation(c)
	}
}
