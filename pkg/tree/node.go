package tree

import (
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
)

// color is the red-black color of a page's position in the tree. A page
// with more than one slot behaves as a leaf bucket; internal "router"
// pages carry exactly one slot (the separator key promoted by a split) and
// two children. Color and the left/right/parent links are tracked at the
// page granularity regardless of how many slots a leaf happens to hold, so
// the classical red-black rotation and fixup algorithms apply unchanged to
// the tree of pages.
type color bool

const (
	red   color = true
	black color = false
)

// slot holds one key or value lazily: either its encoded bytes, its
// decoded form, or both once materialized.
type slot struct {
	encoded []byte
	decoded any
	hasEnc  bool
	hasDec  bool
}

func encodedSlot(b []byte) slot { return slot{encoded: b, hasEnc: true} }

func decodedSlot(v any) slot { return slot{decoded: v, hasDec: true} }

// materialize decodes the slot with s if it hasn't been already, caching
// the result.
func (sl *slot) materialize(s serializer.Serializer) (any, error) {
	if sl.hasDec {
		return sl.decoded, nil
	}
	v, err := s.Decode(sl.encoded)
	if err != nil {
		return nil, err
	}
	sl.decoded = v
	sl.hasDec = true
	return v, nil
}

// encode serializes the slot with s if it hasn't been already, caching the
// result so repeated flushes without intervening mutation don't re-encode.
func (sl *slot) encode(s serializer.Serializer) ([]byte, error) {
	if sl.hasEnc {
		return sl.encoded, nil
	}
	b, err := s.Encode(sl.decoded)
	if err != nil {
		return nil, err
	}
	sl.encoded = b
	sl.hasEnc = true
	return b, nil
}

// setDecoded replaces the decoded value and invalidates the cached
// encoding, per the "setting values[i] invalidates serialized_values[i]"
// invariant.
func (sl *slot) setDecoded(v any) {
	sl.decoded = v
	sl.hasDec = true
	sl.hasEnc = false
	sl.encoded = nil
}

// node is a NodePage: the persistent unit of the tree. It owns up to
// pageSize key/value slots plus parent/left/right identifiers, a color
// bit, and the slot count. Only leaf pages (no children) ever hold more
// than one slot; internal "router" pages hold exactly one.
type node struct {
	selfRID   rid.RID
	parentRID rid.RID
	leftRID   rid.RID
	rightRID  rid.RID

	color    color
	pageSize uint16
	count    uint16

	keys   []slot
	values []slot

	parent *node
	left   *node
	right  *node

	dirty  bool
	loaded bool // true once keys/values slices reflect on-disk state

	keySer serializer.Serializer
	valSer serializer.Serializer
}

func newLeaf(pageSize uint16, keySer, valSer serializer.Serializer) *node {
	return &node{
		selfRID:   rid.Invalid,
		parentRID: rid.Invalid,
		leftRID:   rid.Invalid,
		rightRID:  rid.Invalid,
		color:     red,
		pageSize:  pageSize,
		keySer:    keySer,
		valSer:    valSer,
		loaded:    true,
		dirty:     true,
	}
}

// markDirty flags the page for a future CommitBuffer flush.
func (n *node) markDirty(buf *commitBuffer) {
	n.dirty = true
	if buf != nil {
		buf.add(n)
	}
}

// key returns the materialized key at slot i.
func (n *node) key(i int) (any, error) {
	v, err := n.keys[i].materialize(n.keySer)
	if err != nil {
		return nil, ridErr("decode key", n.selfRID, err)
	}
	return v, nil
}

// value returns the materialized value at slot i.
func (n *node) value(i int) (any, error) {
	v, err := n.values[i].materialize(n.valSer)
	if err != nil {
		return nil, ridErr("decode value", n.selfRID, err)
	}
	return v, nil
}

// setValue replaces the value at slot i and marks the page dirty.
func (n *node) setValue(i int, v any, buf *commitBuffer) {
	n.values[i].setDecoded(v)
	n.markDirty(buf)
}

// hasLeft and hasRight report whether this page has a left/right child,
// consulting the RID even when the child hasn't been lazily loaded into
// left/right yet: a page just decoded off the wire has leftRID/rightRID
// populated from its on-disk router links but leaves left/right nil until
// something actually descends into them.
func (n *node) hasLeft() bool  { return n.left != nil || n.leftRID.IsValid() }
func (n *node) hasRight() bool { return n.right != nil || n.rightRID.IsValid() }

// isLeaf reports whether this page has no children, i.e. it is a data
// bucket rather than a single-key router. Must consult the RIDs, not just
// the in-memory pointers, or a freshly loaded router whose children are
// still unresident gets misclassified as a leaf.
func (n *node) isLeaf() bool { return !n.hasLeft() && !n.hasRight() }

// firstKeyOrNil returns keys[0] for use as the page's representative key
// during rotations; every page (leaf or router) has at least one slot once
// loaded, except a tree with no nodes at all.
func (n *node) repKey() (any, error) { return n.key(0) }

// insertSlotAt shifts keys/values right by one starting at i and inserts
// (k, v) there.
func (n *node) insertSlotAt(i int, k, v slot) {
	n.keys = append(n.keys, slot{})
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = k

	n.values = append(n.values, slot{})
	copy(n.values[i+1:], n.values[i:])
	n.values[i] = v

	n.count++
}

// removeSlotAt deletes the slot at i, shifting the remainder left.
func (n *node) removeSlotAt(i int) {
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.values = append(n.values[:i], n.values[i+1:]...)
	n.count--
}

// sibling returns n's sibling under its parent, or nil if n is the root or
// has no sibling.
func (n *node) sibling() *node {
	if n.parent == nil {
		return nil
	}
	if n.parent.left == n {
		return n.parent.right
	}
	return n.parent.left
}

func (n *node) isLeftChild() bool {
	return n.parent != nil && n.parent.left == n
}

func isBlack(n *node) bool { return n == nil || n.color == black }
func isRed(n *node) bool   { return n != nil && n.color == red }
