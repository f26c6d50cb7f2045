package index

import (
	"context"

	"gengardb/pkg/config"
	"gengardb/pkg/record"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
	"gengardb/pkg/tree"
)

// NonUnique maps each key to a list of RIDs. Put appends r to the list if it
// isn't already present; Remove can drop a single RID or the whole slot.
type NonUnique struct {
	*base
}

// NewNonUnique returns an unconfigured non-unique index.
func NewNonUnique() *NonUnique {
	return &NonUnique{base: newBase(FlavorNonUnique)}
}

// Configure sets the key serializer and comparator. Safe to call again with
// the same keySerName; errors if called with a different one.
func (n *NonUnique) Configure(keySerName string, cmp tree.Comparator) error {
	return n.configure(keySerName, cmp)
}

// Open resumes the index at descRID, or creates a fresh one if descRID is
// rid.Invalid.
func (n *NonUnique) Open(store record.Store, registry *serializer.Registry, descRID rid.RID, cfg config.Config) error {
	return n.open(store, registry, descRID, cfg)
}

// Get returns the RIDs mapped to key, if any.
func (n *NonUnique) Get(key any) ([]rid.RID, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireOpen(); err != nil {
		return nil, false, err
	}
	v, ok, err := n.tr.Get(context.Background(), key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v.([]rid.RID), true, nil
}

// Put appends r to key's list unless it's already present.
func (n *NonUnique) Put(key any, r rid.RID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireOpen(); err != nil {
		return err
	}
	existing, ok, err := n.tr.Get(context.Background(), key)
	if err != nil {
		return err
	}
	var list []rid.RID
	if ok {
		list = existing.([]rid.RID)
		for _, have := range list {
			if have.Equal(r) {
				return nil
			}
		}
	}
	list = append(list, r)
	return n.tr.Put(context.Background(), key, list)
}

// Remove drops r from key's list, or the whole slot if r is nil. Reports
// whether anything changed.
func (n *NonUnique) Remove(key any, r *rid.RID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireOpen(); err != nil {
		return false, err
	}
	if r == nil {
		return n.tr.Remove(context.Background(), key)
	}
	existing, ok, err := n.tr.Get(context.Background(), key)
	if err != nil || !ok {
		return false, err
	}
	list := existing.([]rid.RID)
	out := list[:0:0]
	removed := false
	for _, have := range list {
		if !removed && have.Equal(*r) {
			removed = true
			continue
		}
		out = append(out, have)
	}
	if !removed {
		return false, nil
	}
	if len(out) == 0 {
		return n.tr.Remove(context.Background(), key)
	}
	return true, n.tr.Put(context.Background(), key, out)
}
