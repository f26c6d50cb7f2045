package heap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gengardb/pkg/record"
	"gengardb/pkg/rid"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "heap.bin"), 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateReadRoundTrip(t *testing.T) {
	s := openTempStore(t)

	records := []string{"hello gengar", "page two test data", "a third record"}
	rids := make([]rid.RID, len(records))
	for i, rec := range records {
		r, err := s.Create([]byte(rec))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		rids[i] = r
	}
	for i, want := range records {
		got, err := s.Read(rids[i])
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != want {
			t.Fatalf("payload mismatch: want %q, got %q", want, got)
		}
	}
}

func TestStore_ChecksumDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.bin")
	s, err := Open(path, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r, err := s.Create([]byte("integrity!"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = s.Close()

	// Flip a byte in the payload region on disk.
	pageID, _ := decodePosition(r.Position)
	pos := pageOffset(pageID) + HeaderSize
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, pos); err == nil {
		buf[0] ^= 0xFF
		if _, err := f.WriteAt(buf, pos); err != nil {
			t.Fatalf("corrupt write: %v", err)
		}
	}

	s2, err := Open(path, 1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	_, err = s2.Read(r)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestStore_DeleteThenReadNotFound(t *testing.T) {
	s := openTempStore(t)
	r, err := s.Create([]byte("to be deleted"))
	if err != nil {
		t.Fatalf("create: %v", err)
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

func TestStore_UpdateInPlace(t *testing.T) {
	s := openTempStore(t)
	r, err := s.Create([]byte("original value"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(r, []byte("short")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Read(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "short" {
		t.Fatalf("want %q, got %q", "short", got)
	}
}

func TestStore_ScanSkipsDeleted(t *testing.T) {
	s := openTempStore(t)
	var kept []rid.RID
	for i := 0; i < 5; i++ {
		r, err := s.Create([]byte{byte(i)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if i%2 == 0 {
			kept = append(kept, r)
			continue
		}
		if err := s.Delete(r); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	seen := 0
	if err := s.Scan(func(r rid.RID, data []byte) bool {
		seen++
		return true
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if seen != len(kept) {
		t.Fatalf("want %d live records, scanned %d", len(kept), seen)
	}
}
