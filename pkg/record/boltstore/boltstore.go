// Package boltstore implements record.Store on top of go.etcd.io/bbolt,
// giving callers crash-safe, single-file persistence with bbolt's own ACID
// transactions underneath, as an alternative to the paged heap file in
// record/heap.
package boltstore

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"gengardb/pkg/record"
	"gengardb/pkg/rid"
)

var bucketRecords = []byte("records")

// Store is a record.Store backed by a bbolt database. Every record it
// creates is assigned to ClusterID using the bucket's own monotonic
// sequence, so (unlike record/heap) a Store never hands out a meaningfully
// reusable Position after deletion.
type Store struct {
	db        *bolt.DB
	clusterID int32
}

// Open opens (creating if necessary) the bbolt database at path.
func Open(path string, clusterID int32) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltstore: init bucket: %w", err)
	}
	return &Store{db: db, clusterID: clusterID}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) key(r rid.RID) []byte {
	enc := r.Encode()
	return enc[:]
}

// Create persists b under a freshly allocated position drawn from the
// bucket's sequence counter.
func (s *Store) Create(b []byte) (rid.RID, error) {
	var r rid.RID
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketRecords)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		r = rid.RID{ClusterID: s.clusterID, Position: int64(seq)}
		return bkt.Put(s.key(r), b)
	})
	if err != nil {
		return rid.RID{}, fmt.Errorf("boltstore: create: %w", err)
	}
	return r, nil
}

// Update overwrites the bytes at r. Writing identical bytes is a no-op at
// the bbolt level but this store does not track a separate version counter
// beyond "1" for an existing key and "0" would never be observed, since
// Update on a missing key still creates it (bbolt buckets have no concept
// of a partial write).
func (s *Store) Update(r rid.RID, b []byte) (uint64, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketRecords)
		return bkt.Put(s.key(r), b)
	})
	if err != nil {
		return 0, fmt.Errorf("boltstore: update %s: %w", r, err)
	}
	return 1, nil
}

// Read returns the bytes stored at r, or record.ErrNotFound.
func (s *Store) Read(r rid.RID) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketRecords)
		v := bkt.Get(s.key(r))
		if v == nil {
			return &record.NotFoundError{RID: r}
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the record at r, if present.
func (s *Store) Delete(r rid.RID) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketRecords)
		return bkt.Delete(s.key(r))
	})
	if err != nil {
		return fmt.Errorf("boltstore: delete %s: %w", r, err)
	}
	return nil
}

var _ record.Store = (*Store)(nil)
