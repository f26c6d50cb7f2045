package index

import (
	"context"
	"fmt"

	"gengardb/pkg/config"
	"gengardb/pkg/record"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
	"gengardb/pkg/tree"
)

// Unique maps each key to at most one RID. Put fails with
// tree.ErrUniqueViolation if the key already maps to a different RID.
type Unique struct {
	*base
}

// NewUnique returns an unconfigured unique index.
func NewUnique() *Unique {
	return &Unique{base: newBase(FlavorUnique)}
}

// Configure sets the key serializer and comparator. Safe to call again with
// the same keySerName; errors if called with a different one.
func (u *Unique) Configure(keySerName string, cmp tree.Comparator) error {
	return u.configure(keySerName, cmp)
}

// Open resumes the index at descRID, or creates a fresh one if descRID is
// rid.Invalid.
func (u *Unique) Open(store record.Store, registry *serializer.Registry, descRID rid.RID, cfg config.Config) error {
	return u.open(store, registry, descRID, cfg)
}

// Get returns the RID mapped to key, if any.
func (u *Unique) Get(key any) (rid.RID, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.requireOpen(); err != nil {
		return rid.Invalid, false, err
	}
	v, ok, err := u.tr.Get(context.Background(), key)
	if err != nil || !ok {
		return rid.Invalid, ok, err
	}
	return v.(rid.RID), true, nil
}

// Put maps key to r. If key already maps to a different RID, it returns
// tree.ErrUniqueViolation and leaves the existing mapping untouched. Putting
// the same (key, r) pair again is a no-op.
func (u *Unique) Put(key any, r rid.RID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.requireOpen(); err != nil {
		return err
	}
	existing, ok, err := u.tr.Get(context.Background(), key)
	if err != nil {
		return err
	}
	if ok && !existing.(rid.RID).Equal(r) {
		return fmt.Errorf("%w: key already maps to %s", tree.ErrUniqueViolation, existing.(rid.RID))
	}
	return u.tr.Put(context.Background(), key, r)
}

// Remove deletes key's mapping entirely. Reports whether a mapping existed.
func (u *Unique) Remove(key any) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.requireOpen(); err != nil {
		return false, err
	}
	return u.tr.Remove(context.Background(), key)
}
