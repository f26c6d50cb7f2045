package tree

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gengardb/pkg/config"
	"gengardb/pkg/record/heap"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
)

func TestTree_CreateFlushReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := heap.Open(filepath.Join(dir, "tree.heap"), 1)
	if err != nil {
		t.Fatalf("heap.Open: %v", err)
	}
	defer store.Close()

	registry := serializer.NewRegistry()
	cfg := config.Default()
	cfg.NodePageSize = 4

	tr, err := Create(store, registry, "uint64", "string", uint64Cmp, cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := uint64(1); i <= 20; i++ {
		if err := tr.Put(context.Background(), i, fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := tr.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(store, registry, tr.DescRID(), uint64Cmp, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Size() != 20 {
		t.Fatalf("size after reopen = %d, want 20", reopened.Size())
	}
	for i := uint64(1); i <= 20; i++ {
		v, ok, err := reopened.Get(context.Background(), i)
		if err != nil || !ok {
			t.Fatalf("Get(%d): ok=%v err=%v", i, ok, err)
		}
		if v.(string) != fmt.Sprintf("v%d", i) {
			t.Fatalf("Get(%d) = %q", i, v)
		}
	}

	if removed, err := reopened.Remove(context.Background(), uint64(10)); err != nil || !removed {
		t.Fatalf("Remove(10): removed=%v err=%v", removed, err)
	}
	if err := reopened.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	again, err := Open(store, registry, tr.DescRID(), uint64Cmp, cfg)
	if err != nil {
		t.Fatalf("Open (again): %v", err)
	}
	if again.Size() != 19 {
		t.Fatalf("size after remove+reopen = %d, want 19", again.Size())
	}
	if _, ok, _ := again.Get(context.Background(), uint64(10)); ok {
		t.Fatal("key 10 should have stayed removed across reopen")
	}
}

func TestTree_OpenUnknownSerializerFails(t *testing.T) {
	store, err := heap.Open(filepath.Join(t.TempDir(), "tree.heap"), 1)
	if err != nil {
		t.Fatalf("heap.Open: %v", err)
	}
	defer store.Close()

	registry := serializer.NewRegistry()
	cfg := config.Default()

	if _, err := Create(store, registry, "not-a-real-serializer", "string", uint64Cmp, cfg); err == nil {
		t.Fatal("expected Create to fail for an unregistered key serializer")
	}
}

func TestTree_OpenRejectsUnreadableDescriptor(t *testing.T) {
	store, err := heap.Open(filepath.Join(t.TempDir(), "tree.heap"), 1)
	if err != nil {
		t.Fatalf("heap.Open: %v", err)
	}
	defer store.Close()

	registry := serializer.NewRegistry()
	cfg := config.Default()

	unwritten := rid.RID{ClusterID: 1, Position: 9999}
	if _, err := Open(store, registry, unwritten, uint64Cmp, cfg); err == nil {
		t.Fatal("expected Open to fail for a RID that was never written")
	}
}
