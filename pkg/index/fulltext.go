package index

import (
	"context"

	"gengardb/pkg/config"
	"gengardb/pkg/record"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
	"gengardb/pkg/tree"
)

// FullText maps each token to a list of RIDs. Unlike NonUnique, Put always
// appends: the same (token, r) pair can be indexed more than once, matching
// how a token can occur in a document more than once.
type FullText struct {
	*base
}

// NewFullText returns an unconfigured full-text index. Its key serializer is
// always "string"; Configure only needs the comparator.
func NewFullText() *FullText {
	return &FullText{base: newBase(FlavorFullText)}
}

// Configure sets the token comparator, using the "string" key serializer.
func (f *FullText) Configure(cmp tree.Comparator) error {
	return f.configure("string", cmp)
}

// Open resumes the index at descRID, or creates a fresh one if descRID is
// rid.Invalid.
func (f *FullText) Open(store record.Store, registry *serializer.Registry, descRID rid.RID, cfg config.Config) error {
	return f.open(store, registry, descRID, cfg)
}

// Search returns the RIDs indexed under token, if any.
func (f *FullText) Search(token string) ([]rid.RID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireOpen(); err != nil {
		return nil, false, err
	}
	v, ok, err := f.tr.Get(context.Background(), token)
	if err != nil || !ok {
		return nil, ok, err
	}
	return v.([]rid.RID), true, nil
}

// Put appends r to token's posting list, regardless of duplicates.
func (f *FullText) Put(token string, r rid.RID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireOpen(); err != nil {
		return err
	}
	existing, ok, err := f.tr.Get(context.Background(), token)
	if err != nil {
		return err
	}
	var list []rid.RID
	if ok {
		list = existing.([]rid.RID)
	}
	list = append(list, r)
	return f.tr.Put(context.Background(), token, list)
}

// Remove drops r from token's posting list (all occurrences), or the whole
// slot if r is nil. Reports whether anything changed.
func (f *FullText) Remove(token string, r *rid.RID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireOpen(); err != nil {
		return false, err
	}
	if r == nil {
		return f.tr.Remove(context.Background(), token)
	}
	existing, ok, err := f.tr.Get(context.Background(), token)
	if err != nil || !ok {
		return false, err
	}
	list := existing.([]rid.RID)
	out := list[:0:0]
	removed := false
	for _, have := range list {
		if have.Equal(*r) {
			removed = true
			continue
		}
		out = append(out, have)
	}
	if !removed {
		return false, nil
	}
	if len(out) == 0 {
		if _, err := f.tr.Remove(context.Background(), token); err != nil {
			return false, err
		}
		return true, nil
	}
	return true, f.tr.Put(context.Background(), token, out)
}
