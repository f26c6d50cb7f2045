package tree

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gengardb/pkg/config"
	"gengardb/pkg/record/heap"
	"gengardb/pkg/serializer"
)

func TestCommitBuffer_FlushAssignsFinalRIDsAndSurvivesReload(t *testing.T) {
	store, err := heap.Open(filepath.Join(t.TempDir(), "tree.heap"), 1)
	if err != nil {
		t.Fatalf("heap.Open: %v", err)
	}
	defer store.Close()

	cfg := config.Default()
	cfg.NodePageSize = 4
	e := NewEngine(store, serializer.Uint64Serializer{}, serializer.StringSerializer{}, uint64Cmp, cfg)

	for i := uint64(1); i <= 9; i++ {
		if err := e.Put(context.Background(), i, fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	if !e.root.selfRID.IsNew() {
		t.Fatalf("expected an unflushed root to carry a provisional rid, got %v", e.root.selfRID)
	}

	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	rootRID := e.root.selfRID
	if rootRID.IsNew() || !rootRID.IsValid() {
		t.Fatalf("root rid after flush = %v, want final", rootRID)
	}

	// Every page reachable from root must now have a final RID, and every
	// parent/child RID field must agree with the live pointer graph -
	// this is what the fix-up pass in commitBuffer.Flush exists for.
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.selfRID.IsNew() {
			t.Fatalf("node with key-slot0 still provisional after flush: %v", n.selfRID)
		}
		if n.parent != nil && !n.parentRID.Equal(n.parent.selfRID) {
			t.Fatalf("parent_rid %v does not match actual parent rid %v", n.parentRID, n.parent.selfRID)
		}
		if n.left != nil && !n.leftRID.Equal(n.left.selfRID) {
			t.Fatalf("left_rid %v does not match actual left child rid %v", n.leftRID, n.left.selfRID)
		}
		if n.right != nil && !n.rightRID.Equal(n.right.selfRID) {
			t.Fatalf("right_rid %v does not match actual right child rid %v", n.rightRID, n.right.selfRID)
		}
		walk(n.left)
		walk(n.right)
	}
	walk(e.root)

	reopened, err := OpenEngine(store, serializer.Uint64Serializer{}, serializer.StringSerializer{}, uint64Cmp, cfg, rootRID, e.size)
	if err != nil {
		t.Fatalf("OpenEngine: %v", err)
	}
	for i := uint64(1); i <= 9; i++ {
		v, ok, err := reopened.Get(context.Background(), i)
		if err != nil || !ok {
			t.Fatalf("reopened Get(%d): ok=%v err=%v", i, ok, err)
		}
		if v.(string) != fmt.Sprintf("v%d", i) {
			t.Fatalf("reopened Get(%d) = %q", i, v)
		}
	}
}
