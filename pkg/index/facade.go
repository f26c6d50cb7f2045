// Package index presents the three index flavors GengarDB supports — unique,
// non-unique, and full-text — as thin, type-specific wrappers over a single
// tree.Tree instance. Every flavor shares the same Unconfigured -> Configured
// -> Open -> Closed lifecycle.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gengardb/pkg/config"
	"gengardb/pkg/record"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
	"gengardb/pkg/tree"
)

// State is a position in an index's lifecycle.
type State int

const (
	Unconfigured State = iota
	Configured
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Flavor selects what an index's value slot holds.
type Flavor int

const (
	FlavorUnique Flavor = iota
	FlavorNonUnique
	FlavorFullText
)

func (f Flavor) valueSerializerName() string {
	if f == FlavorUnique {
		return "rid"
	}
	return "rid-list"
}

// ErrNotOpen is returned by any mutating or lookup call made before Open or
// after Close.
var ErrNotOpen = errors.New("index: not open")

// ErrAlreadyConfigured is returned when Configure is called again with
// different arguments than the first call.
var ErrAlreadyConfigured = errors.New("index: already configured with different parameters")

// base implements the shared state machine and tree plumbing; each flavor
// type embeds it and adds type-appropriate Get/Put/Remove signatures.
type base struct {
	mu sync.Mutex

	state      State
	flavor     Flavor
	keySerName string
	cmp        tree.Comparator

	tr *tree.Tree
}

func newBase(flavor Flavor) *base {
	return &base{flavor: flavor, state: Unconfigured}
}

// configure is idempotent when called again with the same key serializer
// name; it errors if the index was already configured differently.
func (b *base) configure(keySerName string, cmp tree.Comparator) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Unconfigured:
		b.keySerName = keySerName
		b.cmp = cmp
		b.state = Configured
		return nil
	case Configured, Open:
		if b.keySerName == keySerName {
			return nil
		}
		return ErrAlreadyConfigured
	default:
		return fmt.Errorf("index: cannot configure a closed index")
	}
}

// open resumes the index at descRID, or creates a fresh one if descRID is
// rid.Invalid.
func (b *base) open(store record.Store, registry *serializer.Registry, descRID rid.RID, cfg config.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Configured {
		return fmt.Errorf("index: Open called in state %s, want %s", b.state, Configured)
	}

	valSerName := b.flavor.valueSerializerName()
	var tr *tree.Tree
	var err error
	if descRID.IsValid() {
		tr, err = tree.Open(store, registry, descRID, b.cmp, cfg)
	} else {
		tr, err = tree.Create(store, registry, b.keySerName, valSerName, b.cmp, cfg)
	}
	if err != nil {
		return err
	}
	b.tr = tr
	b.state = Open
	return nil
}

// Close flushes and transitions the index to Closed. Further operations
// return ErrNotOpen.
func (b *base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return nil
	}
	err := b.tr.Close(context.Background())
	b.state = Closed
	return err
}

// DescRID reports the underlying tree descriptor's RID, needed to reopen
// this index later. Only meaningful once Open has succeeded.
func (b *base) DescRID() rid.RID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tr == nil {
		return rid.Invalid
	}
	return b.tr.DescRID()
}

func (b *base) requireOpen() error {
	if b.state != Open {
		return ErrNotOpen
	}
	return nil
}
