// Package record defines the contract a record store must satisfy to back
// the tree: create/update/delete/read of opaque byte blobs keyed by an RID,
// with identity assignment happening on first write. The tree only ever
// talks to this interface; concrete stores live in the record/heap and
// record/boltstore subpackages.
package record

import (
	"errors"
	"fmt"

	"gengardb/pkg/rid"
)

// ErrNotFound is returned by Read when the RID was never written or has
// since been deleted.
var ErrNotFound = errors.New("record: not found")

// Store persists opaque byte blobs keyed by rid.RID.
type Store interface {
	// Create persists b under a freshly assigned, final RID.
	Create(b []byte) (rid.RID, error)
	// Update overwrites the blob at r, returning the new version number.
	// Update is idempotent: writing the same bytes twice does not bump the
	// version a second time.
	Update(r rid.RID, b []byte) (uint64, error)
	// Read returns the current bytes stored at r, or ErrNotFound.
	Read(r rid.RID) ([]byte, error)
	// Delete removes the record at r. Deleting a missing record is not an
	// error.
	Delete(r rid.RID) error
	// Close releases any underlying file handles.
	Close() error
}

// NotFoundError wraps ErrNotFound with the offending RID for diagnostics.
type NotFoundError struct {
	RID rid.RID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("record: %s: not found", e.RID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }
