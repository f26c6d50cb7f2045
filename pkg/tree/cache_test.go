package tree

import (
	"testing"

	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
)

func leafWithKey(keySer, valSer serializer.Serializer, id int32, pos int64, key uint64) *node {
	n := newLeaf(4, keySer, valSer)
	n.selfRID = rid.RID{ClusterID: id, Position: pos}
	n.insertSlotAt(0, decodedSlot(key), decodedSlot("v"))
	return n
}

func TestNodeCache_EntryPointCapEvictsLeastRecentlyTouched(t *testing.T) {
	keySer, valSer := serializer.Uint64Serializer{}, serializer.StringSerializer{}
	c := newNodeCache(2, uint64Cmp)

	a := leafWithKey(keySer, valSer, 1, 1, 10)
	b := leafWithKey(keySer, valSer, 1, 2, 20)
	d := leafWithKey(keySer, valSer, 1, 3, 30)

	c.considerEntryPoint(a)
	c.considerEntryPoint(b)
	c.touch(a) // a is now more recently touched than b

	c.considerEntryPoint(d) // cap is 2: evicts the least recently touched, b
	if len(c.entryPoints) != 2 {
		t.Fatalf("entry points = %d, want 2", len(c.entryPoints))
	}
	found := map[*node]bool{}
	for _, ep := range c.entryPoints {
		found[ep] = true
	}
	if !found[a] || !found[d] || found[b] {
		t.Fatalf("expected a and d to survive eviction, b to be gone")
	}
}

func TestNodeCache_GetPutForget(t *testing.T) {
	keySer, valSer := serializer.Uint64Serializer{}, serializer.StringSerializer{}
	c := newNodeCache(4, uint64Cmp)
	n := leafWithKey(keySer, valSer, 1, 7, 99)

	c.put(n)
	got, ok := c.get(n.selfRID)
	if !ok || got != n {
		t.Fatalf("get after put: ok=%v got=%v", ok, got)
	}

	c.forget(n.selfRID)
	if _, ok := c.get(n.selfRID); ok {
		t.Fatal("expected forget to remove the cached page")
	}
}

func TestOptimize_EvictsDeepCleanPagesOnly(t *testing.T) {
	keySer, valSer := serializer.Uint64Serializer{}, serializer.StringSerializer{}
	cache := newNodeCache(4, uint64Cmp)

	root := leafWithKey(keySer, valSer, 1, 1, 50)
	root.color = black
	left := leafWithKey(keySer, valSer, 1, 2, 10)
	right := leafWithKey(keySer, valSer, 1, 3, 90)
	attachLeft(root, left, nil)
	attachRight(root, right, nil)
	root.dirty, left.dirty, right.dirty = false, false, false
	cache.put(root)
	cache.put(left)
	cache.put(right)

	evicted := optimize(root, cache, 0)
	if evicted != 2 {
		t.Fatalf("evicted = %d, want 2", evicted)
	}
	if root.left != nil || root.right != nil {
		t.Fatal("expected children to be detached after eviction")
	}
	if _, ok := cache.get(left.selfRID); ok {
		t.Fatal("expected evicted left child to be forgotten by the cache")
	}
}

func TestOptimize_NeverEvictsDirtyPages(t *testing.T) {
	keySer, valSer := serializer.Uint64Serializer{}, serializer.StringSerializer{}
	cache := newNodeCache(4, uint64Cmp)

	root := leafWithKey(keySer, valSer, 1, 1, 50)
	left := leafWithKey(keySer, valSer, 1, 2, 10)
	attachLeft(root, left, nil)
	left.dirty = true

	evicted := optimize(root, cache, 0)
	if evicted != 0 {
		t.Fatalf("evicted = %d, want 0 (dirty page must survive)", evicted)
	}
	if root.left == nil {
		t.Fatal("dirty child should not have been detached")
	}
}
