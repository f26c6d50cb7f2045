package tree

import (
	"context"

	"gengardb/internal/rblog"
	"gengardb/pkg/txn"
)

// LifecycleAdapter wires a Tree into a transaction's open/commit/rollback
// events: it flushes dirty pages and the descriptor on pre-commit, does
// nothing on post-commit, discards in-memory state and reloads the root on
// rollback, and applies the lazy-save policy on every mutation.
type LifecycleAdapter struct {
	tree *Tree
}

// NewLifecycleAdapter returns an Observer that keeps t durable across the
// transaction boundaries it's subscribed to.
func NewLifecycleAdapter(t *Tree) *LifecycleAdapter {
	return &LifecycleAdapter{tree: t}
}

var _ txn.Observer = (*LifecycleAdapter)(nil)

func (a *LifecycleAdapter) OnOpen(ctx *txn.Context) {
	rblog.WithTxnID(ctx.ID).Debug().Msg("tree observing transaction")
}

// OnPreCommit flushes every dirty page and the descriptor before the
// transaction is allowed to commit.
func (a *LifecycleAdapter) OnPreCommit(ctx *txn.Context) error {
	return a.tree.Flush(context.Background())
}

func (a *LifecycleAdapter) OnPostCommit(ctx *txn.Context) {}

// OnRollback discards the in-memory node graph and cache entirely and
// reloads the root from the last-persisted descriptor, undoing any
// uncommitted structural change.
func (a *LifecycleAdapter) OnRollback(ctx *txn.Context) {
	raw, err := a.tree.store.Read(a.tree.descRID)
	if err != nil {
		rblog.WithTxnID(ctx.ID).Error().Err(err).Msg("rollback: failed to reread descriptor")
		return
	}
	desc, err := decodeDescriptor(raw)
	if err != nil {
		rblog.WithTxnID(ctx.ID).Error().Err(err).Msg("rollback: corrupt descriptor")
		return
	}

	a.tree.Engine.cache.clear()
	a.tree.Engine.commit = newCommitBuffer()
	a.tree.Engine.pendingDeletes = nil
	a.tree.Engine.size = desc.size
	a.tree.Engine.root = nil
	if desc.rootRID.IsValid() {
		root, err := a.tree.Engine.load(context.Background(), desc.rootRID)
		if err != nil {
			rblog.WithTxnID(ctx.ID).Error().Err(err).Msg("rollback: failed to reload root")
			return
		}
		a.tree.Engine.root = root
	}
}

// OnClose flushes one last time and forgets the in-memory root so the next
// access reloads a clean copy. If the flush fails, only the cache is
// cleared and the in-memory tree is kept.
func (a *LifecycleAdapter) OnClose(ctx *txn.Context) {
	if err := a.tree.Flush(context.Background()); err != nil {
		rblog.WithTxnID(ctx.ID).Error().Err(err).Msg("close: flush failed")
		a.tree.Engine.cache.clear()
		return
	}
	rootRID := a.tree.Engine.RootRID()
	a.tree.Engine.cache.clear()
	a.tree.Engine.root = nil
	if rootRID.IsValid() {
		root, err := a.tree.Engine.load(context.Background(), rootRID)
		if err != nil {
			rblog.WithTxnID(ctx.ID).Error().Err(err).Msg("close: failed to reload root")
			return
		}
		a.tree.Engine.root = root
	}
}

// OnMutation applies the lazy-save cadence: once MaxUpdatesBeforeSave
// mutations have accumulated since the last flush, flush immediately
// instead of waiting for the transaction boundary, then run an optimize
// pass.
func (a *LifecycleAdapter) OnMutation(ctx *txn.Context) {
	if a.tree.Engine.ShouldAutosave() {
		if err := a.tree.Flush(context.Background()); err != nil {
			rblog.WithTxnID(ctx.ID).Error().Err(err).Msg("autosave flush failed")
			return
		}
		a.tree.Engine.Optimize()
	}
}
