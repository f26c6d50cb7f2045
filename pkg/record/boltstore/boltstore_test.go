package boltstore

import (
	"errors"
	"path/filepath"
	"testing"

	"gengardb/pkg/record"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "records.db"), 2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateReadUpdateDelete(t *testing.T) {
	s := openTempStore(t)

	r, err := s.Create([]byte("payload one"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ClusterID != 2 {
		t.Fatalf("want cluster 2, got %d", r.ClusterID)
	}

	got, err := s.Read(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "payload one" {
		t.Fatalf("mismatch: %q", got)
	}

	if _, err := s.Update(r, []byte("payload two")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.Read(r)
	if err != nil {
		t.Fatalf("read after update: %v", err)
	}
	if string(got) != "payload two" {
		t.Fatalf("mismatch after update: %q", got)
	}

	if err := s.Delete(r); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = s.Read(r)
	var nf *record.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestStore_SequentialPositionsMonotonic(t *testing.T) {
	s := openTempStore(t)
	var last int64 = -1
	for i := 0; i < 10; i++ {
		r, err := s.Create([]byte{byte(i)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if r.Position <= last {
			t.Fatalf("expected strictly increasing positions, got %d after %d", r.Position, last)
		}
		last = r.Position
	}
}
