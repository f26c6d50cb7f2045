package tree

import (
	"context"

	"gengardb/pkg/record"
)

// commitBuffer accumulates dirty pages between flushes. Flush drains them
// in child-before-parent order so a parent's left_rid/right_rid fields
// always describe an already-persisted (or already-final) child by the
// time the parent itself is encoded. A child written before its parent
// exists yet necessarily embeds a stale parent_rid; the trailing fix-up
// pass in Flush corrects those once every node involved has its final RID.
type commitBuffer struct {
	dirty map[*node]struct{}
}

func newCommitBuffer() *commitBuffer {
	return &commitBuffer{dirty: make(map[*node]struct{})}
}

func (b *commitBuffer) add(n *node) {
	b.dirty[n] = struct{}{}
}

func (b *commitBuffer) len() int { return len(b.dirty) }

// Flush persists every dirty page via store, assigning final RIDs to pages
// that were only ever held in memory, and returns once every forward
// reference among the flushed set has been resolved.
func (b *commitBuffer) Flush(ctx context.Context, store record.Store) error {
	if len(b.dirty) == 0 {
		return nil
	}

	flushed := make(map[*node]bool, len(b.dirty))
	order := make([]*node, 0, len(b.dirty))

	var visit func(n *node) error
	visit = func(n *node) error {
		if flushed[n] {
			return nil
		}
		flushed[n] = true
		if n.left != nil && n.left.dirty {
			if err := visit(n.left); err != nil {
				return err
			}
		}
		if n.right != nil && n.right.dirty {
			if err := visit(n.right); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeOne(store, n); err != nil {
			return err
		}
		order = append(order, n)
		return nil
	}

	for n := range b.dirty {
		if err := visit(n); err != nil {
			return err
		}
	}
	commitFlushesTotal.Inc()
	commitPagesWrittenTotal.Add(float64(len(order)))

	for _, n := range order {
		if n.parent == nil || n.parentRID.Equal(n.parent.selfRID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n.parentRID = n.parent.selfRID
		data, err := n.encode()
		if err != nil {
			return err
		}
		if _, err := store.Update(n.selfRID, data); err != nil {
			return ridErr("fixup parent rid", n.selfRID, err)
		}
	}

	b.dirty = make(map[*node]struct{})
	return nil
}

// writeOne persists a single page: an Update if it already has a final
// RID, a Create (which mints one) otherwise. A freshly assigned RID is
// immediately threaded into the parent's child-pointer field so the
// parent's own encoding, still pending in the postorder walk, picks it up.
func writeOne(store record.Store, n *node) error {
	data, err := n.encode()
	if err != nil {
		return err
	}

	if n.selfRID.IsValid() && !n.selfRID.IsNew() {
		if _, err := store.Update(n.selfRID, data); err != nil {
			return ridErr("flush", n.selfRID, err)
		}
		n.dirty = false
		return nil
	}

	newRID, err := store.Create(data)
	if err != nil {
		return ridErr("flush", n.selfRID, err)
	}
	n.selfRID = newRID
	if n.parent != nil {
		if n.parent.left == n {
			n.parent.leftRID = newRID
		}
		if n.parent.right == n {
			n.parent.rightRID = newRID
		}
	}
	n.dirty = false
	return nil
}
