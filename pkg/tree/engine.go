// Package tree implements the persistent, lazily loaded red-black tree that
// backs every index flavor in pkg/index. Pages are the classical CLRS
// red-black node for routing purposes (one key, two children), except at
// the bottom of the tree where a single page is allowed to aggregate up to
// pageSize sorted entries before it splits. Splitting reuses the
// overflowing page itself as the new router, keeping its RID and tree
// position, and creates two fresh leaf children from the lower and upper
// halves.
package tree

import (
	"context"
	"errors"
	"sort"
	"sync"

	"gengardb/pkg/config"
	"gengardb/pkg/record"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
)

// Engine is the tree itself: the in-memory node graph, its page cache, the
// pending write set, and the collaborators needed to load and persist
// pages.
type Engine struct {
	// mu is held exclusively for almost every operation, including reads:
	// a cache miss during descent lazily materializes pages into the
	// shared node graph, which isn't safe to do under a shared RLock with
	// other concurrent readers doing the same. RLock is only used by
	// accessors that can't trigger a load.
	mu sync.RWMutex

	store  record.Store
	keySer serializer.Serializer
	valSer serializer.Serializer
	cmp    Comparator
	cfg    config.Config

	cache  *nodeCache
	commit *commitBuffer
	root   *node
	size   int64

	provisionalSeq         int64
	pendingDeletes         []rid.RID
	sinceSave              int64
	mutationsSinceOptimize int64
}

// NewEngine builds an empty tree ready to accept inserts. Use OpenEngine to
// resume a tree previously persisted via a descriptor.
func NewEngine(store record.Store, keySer, valSer serializer.Serializer, cmp Comparator, cfg config.Config) *Engine {
	return &Engine{
		store:  store,
		keySer: keySer,
		valSer: valSer,
		cmp:    cmp,
		cfg:    cfg,
		cache:  newNodeCache(cfg.EntryPointsSize, cmp),
		commit: newCommitBuffer(),
	}
}

// OpenEngine resumes a tree whose root page is rootRID (rid.Invalid for an
// empty tree) and whose prior size is known from the descriptor.
func OpenEngine(store record.Store, keySer, valSer serializer.Serializer, cmp Comparator, cfg config.Config, rootRID rid.RID, size int64) (*Engine, error) {
	e := NewEngine(store, keySer, valSer, cmp, cfg)
	e.size = size
	if rootRID.IsValid() {
		root, err := e.load(context.Background(), rootRID)
		if err != nil {
			return nil, err
		}
		e.root = root
	}
	return e, nil
}

// RootRID reports the current root page's RID, or rid.Invalid for an empty
// tree or one whose root has never been flushed.
func (e *Engine) RootRID() rid.RID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.root == nil {
		return rid.Invalid
	}
	return e.root.selfRID
}

// Size returns the number of entries currently in the tree.
func (e *Engine) Size() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.size
}

func ridOf(n *node) rid.RID {
	if n == nil {
		return rid.Invalid
	}
	return n.selfRID
}

func attachLeft(parent, child *node, buf *commitBuffer) {
	parent.left = child
	parent.leftRID = ridOf(child)
	if child != nil {
		child.parent = parent
		child.parentRID = parent.selfRID
		child.markDirty(buf)
	}
	parent.markDirty(buf)
}

func attachRight(parent, child *node, buf *commitBuffer) {
	parent.right = child
	parent.rightRID = ridOf(child)
	if child != nil {
		child.parent = parent
		child.parentRID = parent.selfRID
		child.markDirty(buf)
	}
	parent.markDirty(buf)
}

// load fetches a page by RID, preferring the in-memory cache. A cache miss
// is the only point that performs real record-store I/O, so it's where
// cooperative cancellation is checked.
func (e *Engine) load(ctx context.Context, r rid.RID) (*node, error) {
	if n, ok := e.cache.get(r); ok {
		cacheHitsTotal.Inc()
		return n, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cacheMissesTotal.Inc()
	data, err := e.store.Read(r)
	if err != nil {
		return nil, ridErr("load", r, err)
	}
	n, err := decodeNode(r, data, e.keySer, e.valSer)
	if err != nil {
		return nil, err
	}
	e.cache.put(n)
	e.cache.considerEntryPoint(n)
	return n, nil
}

// child returns n's left (or right) child, lazily loading it from the
// store if only its RID is known.
func (e *Engine) child(ctx context.Context, n *node, left bool) (*node, error) {
	if left {
		if n.left != nil {
			return n.left, nil
		}
		if !n.leftRID.IsValid() {
			return nil, nil
		}
		c, err := e.load(ctx, n.leftRID)
		if err != nil {
			return nil, err
		}
		n.left = c
		c.parent = n
		return c, nil
	}
	if n.right != nil {
		return n.right, nil
	}
	if !n.rightRID.IsValid() {
		return nil, nil
	}
	c, err := e.load(ctx, n.rightRID)
	if err != nil {
		return nil, err
	}
	n.right = c
	c.parent = n
	return c, nil
}

func leafSearch(n *node, key any, cmp Comparator) (idx int, found bool) {
	count := int(n.count)
	idx = sort.Search(count, func(i int) bool {
		ki, _ := n.key(i)
		return cmp(ki, key) >= 0
	})
	if idx < count {
		ki, _ := n.key(idx)
		if cmp(ki, key) == 0 {
			return idx, true
		}
	}
	return idx, false
}

// missingSide reports which child slot a router is missing, relative to
// key: -1 (none missing / not applicable), 0 (left), 1 (right).
const (
	noMissingSide = -1
	missingLeft   = 0
	missingRight  = 1
)

// startingPoint picks where search should begin descending for key: the
// best covering entry point if the cache has one, climbing back up toward
// the root only as far as needed to reach a page that is actually on key's
// search path, or the root itself when no entry point helps.
func (e *Engine) startingPoint(key any) *node {
	cur := e.cache.bestEntryPoint(key)
	if cur == nil {
		return e.root
	}
	start := cur
	for cur.parent != nil {
		pk, err := cur.parent.key(0)
		if err != nil {
			return e.root
		}
		c := e.cmp(key, pk)
		onLeft := cur.isLeftChild()
		if (onLeft && c >= 0) || (!onLeft && c <= 0) {
			start = cur.parent
		}
		cur = cur.parent
	}
	return start
}

// search walks the tree looking for key, starting at the best entry point
// the cache has (or the root, lacking one). owner/idx describe where it
// was found (found=true) or where it would be inserted: either an index
// into an existing leaf's slots, or, if side != noMissingSide, a router
// missing the child that would need to be created.
func (e *Engine) search(ctx context.Context, key any) (owner *node, idx int, found bool, side int, err error) {
	cur := e.startingPoint(key)
	for cur != nil {
		if err := ctx.Err(); err != nil {
			return nil, 0, false, noMissingSide, err
		}
		e.cache.touch(cur)
		if cur.isLeaf() {
			i, f := leafSearch(cur, key, e.cmp)
			return cur, i, f, noMissingSide, nil
		}
		rk, kerr := cur.key(0)
		if kerr != nil {
			return nil, 0, false, noMissingSide, kerr
		}
		c := e.cmp(key, rk)
		if c == 0 {
			return cur, 0, true, noMissingSide, nil
		}
		goLeft := c < 0
		next, cerr := e.child(ctx, cur, goLeft)
		if cerr != nil {
			return nil, 0, false, noMissingSide, cerr
		}
		if next == nil {
			if goLeft {
				return cur, 0, false, missingLeft, nil
			}
			return cur, 0, false, missingRight, nil
		}
		cur = next
	}
	return nil, 0, false, noMissingSide, nil
}

// Get looks up key and reports whether it was present.
func (e *Engine) Get(ctx context.Context, key any) (any, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	owner, idx, found, _, err := e.search(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	v, err := owner.value(idx)
	return v, true, err
}

// nextProvisional mints a provisional RID for a page created this session
// that hasn't been flushed yet. Cluster id -1 makes the RID invalid, which
// keeps the page out of the cache and the entry points; Position's "less
// than -1" sentinel marks it as new. It is replaced wholesale by the
// store's real RID at flush time.
func (e *Engine) nextProvisional() rid.RID {
	e.provisionalSeq++
	return rid.New(-1, e.provisionalSeq)
}

// postMutation applies the two config-driven policies that react to a
// successful Put or Remove: an automatic Optimize pass once
// OptimizeThreshold mutations have accumulated, and, when RuntimeChecks is
// set, a full structural re-validation before the mutation is allowed to
// return successfully. Callers already hold e.mu.
func (e *Engine) postMutation(ctx context.Context) error {
	e.mutationsSinceOptimize++
	if e.cfg.OptimizeThreshold > 0 && e.mutationsSinceOptimize >= e.cfg.OptimizeThreshold {
		maxDepth := int(float64(e.cfg.EntryPointsSize) * e.cfg.OptimizeEntrypointsFactor)
		optimize(e.root, e.cache, maxDepth)
		e.mutationsSinceOptimize = 0
	}
	if e.cfg.RuntimeChecks {
		if _, _, _, err := e.statsWalk(ctx, e.root); err != nil {
			return err
		}
	}
	return nil
}

// Put inserts or updates key. Existing values are overwritten in place;
// new keys land in the appropriate leaf, splitting it if it overflows.
func (e *Engine) Put(ctx context.Context, key, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.root == nil {
		leaf := newLeaf(e.cfg.NodePageSize, e.keySer, e.valSer)
		leaf.selfRID = e.nextProvisional()
		leaf.color = black
		leaf.insertSlotAt(0, decodedSlot(key), decodedSlot(value))
		leaf.markDirty(e.commit)
		e.root = leaf
		e.size++
		e.sinceSave++
		return e.postMutation(ctx)
	}

	owner, idx, found, side, err := e.search(ctx, key)
	if err != nil {
		return err
	}
	if found {
		owner.setValue(idx, value, e.commit)
		e.sinceSave++
		return e.postMutation(ctx)
	}

	if side == noMissingSide {
		owner.insertSlotAt(idx, decodedSlot(key), decodedSlot(value))
		owner.markDirty(e.commit)
		e.size++
		e.sinceSave++
		if int(owner.count) > int(owner.pageSize) {
			e.splitLeaf(owner)
		}
		return e.postMutation(ctx)
	}

	leaf := newLeaf(owner.pageSize, e.keySer, e.valSer)
	leaf.selfRID = e.nextProvisional()
	leaf.insertSlotAt(0, decodedSlot(key), decodedSlot(value))
	if side == missingLeft {
		attachLeft(owner, leaf, e.commit)
	} else {
		attachRight(owner, leaf, e.commit)
	}
	e.size++
	e.sinceSave++
	e.insertFixup(leaf)
	return e.postMutation(ctx)
}

// splitLeaf is called when a leaf's slot count exceeds its page size. The
// median slot stays in place (the page becomes a router); the slots below
// and above it seed two brand-new red leaf children.
func (e *Engine) splitLeaf(leaf *node) {
	count := int(leaf.count)
	mid := count / 2

	lowKeys, lowValues := leaf.keys[:mid], leaf.values[:mid]
	highKeys, highValues := leaf.keys[mid+1:], leaf.values[mid+1:]
	medKey, medValue := leaf.keys[mid], leaf.values[mid]

	var left, right *node
	if len(lowKeys) > 0 {
		left = newLeaf(leaf.pageSize, e.keySer, e.valSer)
		left.selfRID = e.nextProvisional()
		left.keys = append([]slot(nil), lowKeys...)
		left.values = append([]slot(nil), lowValues...)
		left.count = uint16(len(lowKeys))
	}
	if len(highKeys) > 0 {
		right = newLeaf(leaf.pageSize, e.keySer, e.valSer)
		right.selfRID = e.nextProvisional()
		right.keys = append([]slot(nil), highKeys...)
		right.values = append([]slot(nil), highValues...)
		right.count = uint16(len(highKeys))
	}

	leaf.keys = []slot{medKey}
	leaf.values = []slot{medValue}
	leaf.count = 1
	leaf.markDirty(e.commit)

	if left != nil {
		attachLeft(leaf, left, e.commit)
	}
	if right != nil {
		attachRight(leaf, right, e.commit)
	}

	z := left
	if z == nil {
		z = right
	}
	if z != nil {
		e.insertFixup(z)
	}
}

// insertFixup is CLRS's RB-INSERT-FIXUP: z is a freshly attached red page
// (either a new leaf from a split, or the leaf/router itself the first time
// it's created) whose parent may also be red.
func (e *Engine) insertFixup(z *node) {
	for z.parent != nil && z.parent.color == red {
		gp := z.parent.parent
		if gp == nil {
			break
		}
		if z.parent == gp.left {
			uncle := gp.right
			if isRed(uncle) {
				z.parent.color = black
				z.parent.markDirty(e.commit)
				uncle.color = black
				uncle.markDirty(e.commit)
				gp.color = red
				gp.markDirty(e.commit)
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				e.rotateLeft(z)
			}
			z.parent.color = black
			z.parent.markDirty(e.commit)
			gp.color = red
			gp.markDirty(e.commit)
			e.rotateRight(gp)
		} else {
			uncle := gp.left
			if isRed(uncle) {
				z.parent.color = black
				z.parent.markDirty(e.commit)
				uncle.color = black
				uncle.markDirty(e.commit)
				gp.color = red
				gp.markDirty(e.commit)
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				e.rotateRight(z)
			}
			z.parent.color = black
			z.parent.markDirty(e.commit)
			gp.color = red
			gp.markDirty(e.commit)
			e.rotateLeft(gp)
		}
	}
	if e.root.color != black {
		e.root.color = black
		e.root.markDirty(e.commit)
	}
}

func (e *Engine) rotateLeft(x *node) {
	y := x.right
	attachRight(x, y.left, e.commit)
	oldParent := x.parent
	if oldParent == nil {
		e.root = y
		y.parent = nil
		y.parentRID = rid.Invalid
		y.markDirty(e.commit)
	} else if oldParent.left == x {
		attachLeft(oldParent, y, e.commit)
	} else {
		attachRight(oldParent, y, e.commit)
	}
	attachLeft(y, x, e.commit)
}

func (e *Engine) rotateRight(x *node) {
	y := x.left
	attachLeft(x, y.right, e.commit)
	oldParent := x.parent
	if oldParent == nil {
		e.root = y
		y.parent = nil
		y.parentRID = rid.Invalid
		y.markDirty(e.commit)
	} else if oldParent.left == x {
		attachLeft(oldParent, y, e.commit)
	} else {
		attachRight(oldParent, y, e.commit)
	}
	attachRight(y, x, e.commit)
}

// Remove deletes key, reporting whether it was present.
func (e *Engine) Remove(ctx context.Context, key any) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owner, idx, found, _, err := e.search(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if owner.isLeaf() {
		owner.removeSlotAt(idx)
		owner.markDirty(e.commit)
	} else {
		if err := e.swapWithNeighbor(ctx, owner); err != nil {
			return false, err
		}
	}

	e.size--
	e.sinceSave++
	if owner.count == 0 {
		if err := e.removeEmptyNode(ctx, owner); err != nil {
			return false, err
		}
	}
	if err := e.postMutation(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// swapWithNeighbor replaces a matched router's single slot with its
// in-order successor (or, lacking a right child, predecessor), then removes
// that slot from wherever it actually lived. Mirrors CLRS's handling of
// deleting a two-child node by splicing out its successor instead.
func (e *Engine) swapWithNeighbor(ctx context.Context, router *node) error {
	right, err := e.child(ctx, router, false)
	if err != nil {
		return err
	}
	left, err := e.child(ctx, router, true)
	if err != nil {
		return err
	}

	var donor *node
	var donorIdx int
	if right != nil {
		donor, err = e.minOf(ctx, right)
		donorIdx = 0
	} else if left != nil {
		donor, err = e.maxOf(ctx, left)
		if err == nil {
			donorIdx = int(donor.count) - 1
		}
	} else {
		// no children at all: this router is really just a single-slot leaf.
		router.removeSlotAt(0)
		router.markDirty(e.commit)
		return nil
	}
	if err != nil {
		return err
	}
	k, err := donor.key(donorIdx)
	if err != nil {
		return err
	}
	v, err := donor.value(donorIdx)
	if err != nil {
		return err
	}
	router.keys[0] = decodedSlot(k)
	router.values[0] = decodedSlot(v)
	router.markDirty(e.commit)
	donor.removeSlotAt(donorIdx)
	donor.markDirty(e.commit)
	if donor.count == 0 {
		if err := e.removeEmptyNode(ctx, donor); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) minOf(ctx context.Context, n *node) (*node, error) {
	cur := n
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		left, err := e.child(ctx, cur, true)
		if err != nil {
			return nil, err
		}
		if left == nil {
			return cur, nil
		}
		cur = left
	}
}

func (e *Engine) maxOf(ctx context.Context, n *node) (*node, error) {
	cur := n
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		right, err := e.child(ctx, cur, false)
		if err != nil {
			return nil, err
		}
		if right == nil {
			return cur, nil
		}
		cur = right
	}
}

// removeEmptyNode splices a now-empty page out of the tree. A page can
// still be holding one child here (the degenerate small-page-size case
// where a split produced an empty side); that child takes the empty page's
// place. A black page being removed needs the standard double-black
// fixup; a red one, by the red-black invariant, can only be removed with
// no children at all and needs none.
func (e *Engine) removeEmptyNode(ctx context.Context, n *node) error {
	child, err := e.child(ctx, n, true)
	if err != nil {
		return err
	}
	if child == nil {
		if child, err = e.child(ctx, n, false); err != nil {
			return err
		}
	}
	parent := n.parent
	wasLeft := n.isLeftChild()

	if parent == nil {
		e.root = child
		if child != nil {
			child.parent = nil
			child.parentRID = rid.Invalid
			child.markDirty(e.commit)
		}
	} else if wasLeft {
		attachLeft(parent, child, e.commit)
	} else {
		attachRight(parent, child, e.commit)
	}

	wasBlack := n.color == black
	e.forgetNode(n)

	if wasBlack {
		return e.deleteFixup(ctx, child, parent, wasLeft)
	}
	return nil
}

// deleteFixup is CLRS's RB-DELETE-FIXUP, adapted to track x's parent and
// side explicitly since a spliced-out position has no sentinel node to
// carry that information once x itself is nil. The sibling w and its
// children are fetched through e.child rather than read off w.left/w.right
// directly, since the fixup can walk into pages that were never visited
// during the descent that found the key being deleted.
func (e *Engine) deleteFixup(ctx context.Context, x *node, parent *node, xIsLeft bool) error {
	for parent != nil && isBlack(x) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if xIsLeft {
			w, err := e.child(ctx, parent, false)
			if err != nil {
				return err
			}
			if w == nil {
				break
			}
			if isRed(w) {
				w.color = black
				w.markDirty(e.commit)
				parent.color = red
				parent.markDirty(e.commit)
				e.rotateLeft(parent)
				if w, err = e.child(ctx, parent, false); err != nil {
					return err
				}
			}
			wl, err := e.child(ctx, w, true)
			if err != nil {
				return err
			}
			wr, err := e.child(ctx, w, false)
			if err != nil {
				return err
			}
			if isBlack(wl) && isBlack(wr) {
				w.color = red
				w.markDirty(e.commit)
				x = parent
				parent = x.parent
				xIsLeft = parent != nil && parent.left == x
				continue
			}
			if isBlack(wr) {
				if wl != nil {
					wl.color = black
					wl.markDirty(e.commit)
				}
				w.color = red
				w.markDirty(e.commit)
				e.rotateRight(w)
				if w, err = e.child(ctx, parent, false); err != nil {
					return err
				}
				if wr, err = e.child(ctx, w, false); err != nil {
					return err
				}
			}
			w.color = parent.color
			w.markDirty(e.commit)
			parent.color = black
			parent.markDirty(e.commit)
			if wr != nil {
				wr.color = black
				wr.markDirty(e.commit)
			}
			e.rotateLeft(parent)
			x = e.root
			parent = nil
		} else {
			w, err := e.child(ctx, parent, true)
			if err != nil {
				return err
			}
			if w == nil {
				break
			}
			if isRed(w) {
				w.color = black
				w.markDirty(e.commit)
				parent.color = red
				parent.markDirty(e.commit)
				e.rotateRight(parent)
				if w, err = e.child(ctx, parent, true); err != nil {
					return err
				}
			}
			wl, err := e.child(ctx, w, true)
			if err != nil {
				return err
			}
			wr, err := e.child(ctx, w, false)
			if err != nil {
				return err
			}
			if isBlack(wl) && isBlack(wr) {
				w.color = red
				w.markDirty(e.commit)
				x = parent
				parent = x.parent
				xIsLeft = parent != nil && parent.left == x
				continue
			}
			if isBlack(wl) {
				if wr != nil {
					wr.color = black
					wr.markDirty(e.commit)
				}
				w.color = red
				w.markDirty(e.commit)
				e.rotateLeft(w)
				if w, err = e.child(ctx, parent, true); err != nil {
					return err
				}
				if wl, err = e.child(ctx, w, true); err != nil {
					return err
				}
			}
			w.color = parent.color
			w.markDirty(e.commit)
			parent.color = black
			parent.markDirty(e.commit)
			if wl != nil {
				wl.color = black
				wl.markDirty(e.commit)
			}
			e.rotateRight(parent)
			x = e.root
			parent = nil
		}
	}
	if x != nil {
		x.color = black
		x.markDirty(e.commit)
	}
	return nil
}

func (e *Engine) forgetNode(n *node) {
	if n.selfRID.IsValid() && !n.selfRID.IsNew() {
		e.pendingDeletes = append(e.pendingDeletes, n.selfRID)
	}
	e.cache.forget(n.selfRID)
	delete(e.commit.dirty, n)
}

// First returns the smallest key in the tree.
func (e *Engine) First(ctx context.Context) (key, value any, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.root == nil {
		return nil, nil, false, nil
	}
	n, err := e.minOf(ctx, e.root)
	if err != nil {
		return nil, nil, false, err
	}
	k, err := n.key(0)
	if err != nil {
		return nil, nil, false, err
	}
	v, err := n.value(0)
	return k, v, true, err
}

// Last returns the largest key in the tree.
func (e *Engine) Last(ctx context.Context) (key, value any, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.root == nil {
		return nil, nil, false, nil
	}
	n, err := e.maxOf(ctx, e.root)
	if err != nil {
		return nil, nil, false, err
	}
	last := int(n.count) - 1
	k, err := n.key(last)
	if err != nil {
		return nil, nil, false, err
	}
	v, err := n.value(last)
	return k, v, true, err
}

// Successor returns the smallest key strictly greater than key.
func (e *Engine) Successor(ctx context.Context, key any) (nextKey, value any, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	owner, idx, found, _, err := e.search(ctx, key)
	if err != nil {
		return nil, nil, false, err
	}
	if !found {
		return nil, nil, false, nil
	}
	return e.successorOf(ctx, owner, idx)
}

func (e *Engine) successorOf(ctx context.Context, owner *node, idx int) (any, any, bool, error) {
	if owner.isLeaf() {
		if idx+1 < int(owner.count) {
			k, err := owner.key(idx + 1)
			if err != nil {
				return nil, nil, false, err
			}
			v, err := owner.value(idx + 1)
			return k, v, true, err
		}
	} else {
		right, err := e.child(ctx, owner, false)
		if err != nil {
			return nil, nil, false, err
		}
		if right != nil {
			n, err := e.minOf(ctx, right)
			if err != nil {
				return nil, nil, false, err
			}
			k, err := n.key(0)
			if err != nil {
				return nil, nil, false, err
			}
			v, err := n.value(0)
			return k, v, true, err
		}
	}
	cur := owner
	p := cur.parent
	for p != nil && p.right == cur {
		cur = p
		p = p.parent
	}
	if p == nil {
		return nil, nil, false, nil
	}
	k, err := p.key(0)
	if err != nil {
		return nil, nil, false, err
	}
	v, err := p.value(0)
	return k, v, true, err
}

// Predecessor returns the largest key strictly less than key.
func (e *Engine) Predecessor(ctx context.Context, key any) (prevKey, value any, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	owner, idx, found, _, err := e.search(ctx, key)
	if err != nil {
		return nil, nil, false, err
	}
	if !found {
		return nil, nil, false, nil
	}
	if owner.isLeaf() {
		if idx > 0 {
			k, err := owner.key(idx - 1)
			if err != nil {
				return nil, nil, false, err
			}
			v, err := owner.value(idx - 1)
			return k, v, true, err
		}
	} else {
		left, err := e.child(ctx, owner, true)
		if err != nil {
			return nil, nil, false, err
		}
		if left != nil {
			n, err := e.maxOf(ctx, left)
			if err != nil {
				return nil, nil, false, err
			}
			last := int(n.count) - 1
			k, err := n.key(last)
			if err != nil {
				return nil, nil, false, err
			}
			v, err := n.value(last)
			return k, v, true, err
		}
	}
	cur := owner
	p := cur.parent
	for p != nil && p.left == cur {
		cur = p
		p = p.parent
	}
	if p == nil {
		return nil, nil, false, nil
	}
	k, err := p.key(0)
	if err != nil {
		return nil, nil, false, err
	}
	v, err := p.value(0)
	return k, v, true, err
}

// Clear empties the tree. Pages that were already persisted are orphaned
// rather than individually deleted; their records stay in the store.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root = nil
	e.size = 0
	e.cache.clear()
	e.commit = newCommitBuffer()
	e.pendingDeletes = nil
}

// Flush persists every dirty page and applies pending physical deletes.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.pendingDeletes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.Delete(r); err != nil && !errors.Is(err, record.ErrNotFound) {
			return ridErr("flush delete", r, err)
		}
	}
	e.pendingDeletes = nil
	if err := e.commit.Flush(ctx, e.store); err != nil {
		return err
	}
	e.sinceSave = 0
	return nil
}

// ShouldAutosave reports whether the mutation count since the last flush
// has crossed cfg.MaxUpdatesBeforeSave. A threshold of zero means "never
// autosave on mutation, only at transaction boundaries."
func (e *Engine) ShouldAutosave() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.MaxUpdatesBeforeSave > 0 && e.sinceSave >= e.cfg.MaxUpdatesBeforeSave
}

// Optimize evicts clean, non-entry-point pages deeper than the configured
// bound, freeing memory on trees too large to keep fully resident.
func (e *Engine) Optimize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	maxDepth := int(float64(e.cfg.EntryPointsSize) * e.cfg.OptimizeEntrypointsFactor)
	e.mutationsSinceOptimize = 0
	return optimize(e.root, e.cache, maxDepth)
}
