package tree

import (
	"context"

	"gengardb/internal/rblog"
	"gengardb/pkg/config"
	"gengardb/pkg/record"
	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"

	"github.com/rs/zerolog"
)

// Tree pairs an Engine with its on-disk descriptor: the record that tells a
// reopening process where the root page lives, how big the tree is, and
// which named serializers to resolve from a Registry.
type Tree struct {
	*Engine

	store      record.Store
	descRID    rid.RID
	keySerName string
	valSerName string
	log        zerolog.Logger
}

// Create persists a fresh, empty tree descriptor and returns a Tree backed
// by it.
func Create(store record.Store, registry *serializer.Registry, keySerName, valSerName string, cmp Comparator, cfg config.Config) (*Tree, error) {
	keySer, err := registry.Lookup(keySerName)
	if err != nil {
		return nil, err
	}
	valSer, err := registry.Lookup(valSerName)
	if err != nil {
		return nil, err
	}

	desc := &descriptor{
		rootRID:      rid.Invalid,
		size:         0,
		lastPageSize: cfg.NodePageSize,
		keySerName:   keySerName,
		valSerName:   valSerName,
	}
	descRID, err := store.Create(desc.encode())
	if err != nil {
		return nil, err
	}

	return &Tree{
		Engine:     NewEngine(store, keySer, valSer, cmp, cfg),
		store:      store,
		descRID:    descRID,
		keySerName: keySerName,
		valSerName: valSerName,
		log:        rblog.WithComponent("tree"),
	}, nil
}

// Open resumes a tree from its descriptor's RID.
func Open(store record.Store, registry *serializer.Registry, descRID rid.RID, cmp Comparator, cfg config.Config) (*Tree, error) {
	raw, err := store.Read(descRID)
	if err != nil {
		return nil, ridErr("open descriptor", descRID, err)
	}
	desc, err := decodeDescriptor(raw)
	if err != nil {
		return nil, err
	}
	keySer, err := registry.Lookup(desc.keySerName)
	if err != nil {
		return nil, err
	}
	valSer, err := registry.Lookup(desc.valSerName)
	if err != nil {
		return nil, err
	}
	cfg.NodePageSize = desc.lastPageSize

	engine, err := OpenEngine(store, keySer, valSer, cmp, cfg, desc.rootRID, desc.size)
	if err != nil {
		return nil, err
	}

	return &Tree{
		Engine:     engine,
		store:      store,
		descRID:    descRID,
		keySerName: desc.keySerName,
		valSerName: desc.valSerName,
		log:        rblog.WithComponent("tree"),
	}, nil
}

// DescRID reports the RID of this tree's descriptor record, needed to
// reopen it later.
func (t *Tree) DescRID() rid.RID { return t.descRID }

// Flush persists every dirty page and then rewrites the descriptor, since a
// root split or rotation can change which page is the root.
func (t *Tree) Flush(ctx context.Context) error {
	if err := t.Engine.Flush(ctx); err != nil {
		return err
	}
	desc := &descriptor{
		rootRID:      t.Engine.RootRID(),
		size:         t.Engine.Size(),
		lastPageSize: t.Engine.cfg.NodePageSize,
		keySerName:   t.keySerName,
		valSerName:   t.valSerName,
	}
	if _, err := t.store.Update(t.descRID, desc.encode()); err != nil {
		return ridErr("save descriptor", t.descRID, err)
	}
	treeSize.WithLabelValues(t.descRID.String()).Set(float64(desc.size))
	t.log.Debug().Int64("size", desc.size).Str("root", desc.rootRID.String()).Msg("descriptor saved")
	return nil
}

// Close flushes and releases in-memory state.
func (t *Tree) Close(ctx context.Context) error {
	if err := t.Flush(ctx); err != nil {
		return err
	}
	t.Engine.cache.clear()
	return nil
}
