package tree

import (
	"errors"
	"fmt"

	"gengardb/pkg/rid"
)

var (
	// ErrCorruption covers structural problems: unresolvable child RIDs,
	// duplicate keys within a node, cycles in the parent chain, or a
	// header whose length doesn't match its declared slot count.
	ErrCorruption = errors.New("tree: corrupt node")
	// ErrUniqueViolation is returned by the unique index flavor when a key
	// already maps to a different RID.
	ErrUniqueViolation = errors.New("tree: unique constraint violation")
	// ErrClosed is returned when an operation is attempted on a tree that
	// has been closed.
	ErrClosed = errors.New("tree: closed")
	// ErrOutOfRange flags a programmer error: a slot index outside
	// [0, count).
	ErrOutOfRange = errors.New("tree: slot index out of range")
)

// RIDError wraps an error with the RID that was being read, written, or
// resolved when it occurred, so callers can errors.As it out for
// diagnostics without string-matching.
type RIDError struct {
	RID rid.RID
	Op  string
	Err error
}

func (e *RIDError) Error() string {
	return fmt.Sprintf("tree: %s %s: %v", e.Op, e.RID, e.Err)
}

func (e *RIDError) Unwrap() error { return e.Err }

func ridErr(op string, r rid.RID, err error) error {
	if err == nil {
		return nil
	}
	return &RIDError{RID: r, Op: op, Err: err}
}
