package index

import (
	"fmt"
	"path/filepath"
	"testing"

	"gengardb/pkg/config"
	"gengardb/pkg/record/heap"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
)

func stringCmp(a, b any) int {
	as, bs := a.(string), b.(string)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func newTestStore(t *testing.T) *heap.Store {
	t.Helper()
	store, err := heap.Open(filepath.Join(t.TempDir(), "index.heap"), 1)
	if err != nil {
		t.Fatalf("heap.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUnique_PutGetRemove(t *testing.T) {
	store := newTestStore(t)
	registry := serializer.NewRegistry()
	cfg := config.Default()

	idx := NewUnique()
	if err := idx.Configure("string", stringCmp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := idx.Open(store, registry, rid.Invalid, cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}

	r := rid.RID{ClusterID: 10, Position: 1}
	if err := idx.Put("alice", r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := idx.Get("alice")
	if err != nil || !ok || !got.Equal(r) {
		t.Fatalf("Get = %v, %v, %v", got, ok, err)
	}

	// putting the same pair again is a no-op, not a violation
	if err := idx.Put("alice", r); err != nil {
		t.Fatalf("Put (repeat): %v", err)
	}

	other := rid.RID{ClusterID: 10, Position: 2}
	if err := idx.Put("alice", other); err == nil {
		t.Fatal("expected a unique constraint violation")
	}

	removed, err := idx.Remove("alice")
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	if _, ok, _ := idx.Get("alice"); ok {
		t.Fatal("expected alice to be gone after Remove")
	}
}

func TestUnique_ConfigureIdempotentSameArgsErrorsOnDifferent(t *testing.T) {
	idx := NewUnique()
	if err := idx.Configure("string", stringCmp); err != nil {
		t.Fatalf("first Configure: %v", err)
	}
	if err := idx.Configure("string", stringCmp); err != nil {
		t.Fatalf("repeat Configure with same args should be a no-op: %v", err)
	}
	if err := idx.Configure("uint64", stringCmp); err == nil {
		t.Fatal("expected Configure with a different key serializer to fail")
	}
}

func TestUnique_OperationsBeforeOpenFail(t *testing.T) {
	idx := NewUnique()
	if _, _, err := idx.Get("x"); err != ErrNotOpen {
		t.Fatalf("Get before open: %v", err)
	}
	if err := idx.Put("x", rid.RID{ClusterID: 1, Position: 1}); err != ErrNotOpen {
		t.Fatalf("Put before open: %v", err)
	}
}

func TestNonUnique_PutAppendsWithoutDuplicates(t *testing.T) {
	store := newTestStore(t)
	registry := serializer.NewRegistry()
	cfg := config.Default()

	idx := NewNonUnique()
	if err := idx.Configure("string", stringCmp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := idx.Open(store, registry, rid.Invalid, cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}

	r1 := rid.RID{ClusterID: 10, Position: 1}
	r2 := rid.RID{ClusterID: 10, Position: 2}
	if err := idx.Put("x", r1); err != nil {
		t.Fatalf("Put r1: %v", err)
	}
	if err := idx.Put("x", r2); err != nil {
		t.Fatalf("Put r2: %v", err)
	}
	if err := idx.Put("x", r1); err != nil {
		t.Fatalf("Put r1 again: %v", err)
	}

	list, ok, err := idx.Get("x")
	if err != nil || !ok || len(list) != 2 {
		t.Fatalf("Get = %v, %v, %v", list, ok, err)
	}

	removedOne, err := idx.Remove("x", &r1)
	if err != nil || !removedOne {
		t.Fatalf("Remove r1: %v %v", removedOne, err)
	}
	list, ok, err = idx.Get("x")
	if err != nil || !ok || len(list) != 1 || !list[0].Equal(r2) {
		t.Fatalf("Get after removing r1 = %v, %v, %v", list, ok, err)
	}

	removedSlot, err := idx.Remove("x", nil)
	if err != nil || !removedSlot {
		t.Fatalf("Remove whole slot: %v %v", removedSlot, err)
	}
	if _, ok, _ := idx.Get("x"); ok {
		t.Fatal("expected x to be gone")
	}
}

func TestFullText_PutAllowsDuplicatePostings(t *testing.T) {
	store := newTestStore(t)
	registry := serializer.NewRegistry()
	cfg := config.Default()

	idx := NewFullText()
	if err := idx.Configure(stringCmp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := idx.Open(store, registry, rid.Invalid, cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}

	doc1 := rid.RID{ClusterID: 1, Position: 1}
	doc2 := rid.RID{ClusterID: 1, Position: 2}
	if err := idx.Put("gengar", doc1); err != nil {
		t.Fatalf("Put doc1: %v", err)
	}
	if err := idx.Put("gengar", doc2); err != nil {
		t.Fatalf("Put doc2: %v", err)
	}
	if err := idx.Put("gengar", doc1); err != nil {
		t.Fatalf("Put doc1 again: %v", err)
	}

	postings, ok, err := idx.Search("gengar")
	if err != nil || !ok || len(postings) != 3 {
		t.Fatalf("Search = %v, %v, %v, want 3 postings", postings, ok, err)
	}

	removed, err := idx.Remove("gengar", &doc1)
	if err != nil || !removed {
		t.Fatalf("Remove doc1: %v %v", removed, err)
	}
	postings, ok, err = idx.Search("gengar")
	if err != nil || !ok || len(postings) != 1 || !postings[0].Equal(doc2) {
		t.Fatalf("Search after removing doc1 = %v, %v, %v", postings, ok, err)
	}
}

func TestIndex_ReopenByDescRIDPreservesData(t *testing.T) {
	store := newTestStore(t)
	registry := serializer.NewRegistry()
	cfg := config.Default()

	idx := NewUnique()
	if err := idx.Configure("string", stringCmp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := idx.Open(store, registry, rid.Invalid, cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	r := rid.RID{ClusterID: 5, Position: 5}
	if err := idx.Put("k", r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	descRID := idx.DescRID()
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := NewUnique()
	if err := reopened.Configure("string", stringCmp); err != nil {
		t.Fatalf("Configure (reopen): %v", err)
	}
	if err := reopened.Open(store, registry, descRID, cfg); err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	got, ok, err := reopened.Get("k")
	if err != nil || !ok || !got.Equal(r) {
		t.Fatalf("Get after reopen = %v, %v, %v", got, ok, err)
	}
}

func TestIndex_ReopenAfterSplitFindsEveryKey(t *testing.T) {
	store := newTestStore(t)
	registry := serializer.NewRegistry()
	cfg := config.Default()
	cfg.NodePageSize = 4

	idx := NewUnique()
	if err := idx.Configure("string", stringCmp); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := idx.Open(store, registry, rid.Invalid, cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}

	const n = 20
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%02d", i)
		r := rid.RID{ClusterID: 1, Position: int64(i)}
		if err := idx.Put(key, r); err != nil {
			t.Fatalf("Put(%s): %v", key, err)
		}
	}
	descRID := idx.DescRID()
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := NewUnique()
	if err := reopened.Configure("string", stringCmp); err != nil {
		t.Fatalf("Configure (reopen): %v", err)
	}
	if err := reopened.Open(store, registry, descRID, cfg); err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%02d", i)
		want := rid.RID{ClusterID: 1, Position: int64(i)}
		got, ok, err := reopened.Get(key)
		if err != nil || !ok {
			t.Fatalf("Get(%s) after reopen: ok=%v err=%v", key, ok, err)
		}
		if !got.Equal(want) {
			t.Fatalf("Get(%s) after reopen = %v, want %v", key, got, want)
		}
	}
}
