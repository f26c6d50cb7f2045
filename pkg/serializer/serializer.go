// Package serializer maps a name to a pair of encode/decode functions used
// by the tree to turn user keys and values into bytes and back. Trees
// record the serializer names they were built with in their descriptor, so
// a tree stays readable as long as the named serializers remain registered.
package serializer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gengardb/pkg/rid"
)

// ErrUnknown is returned when a name has no registered serializer.
var ErrUnknown = errors.New("serializer: unknown name")

// Serializer encodes and decodes values of a single logical type. Decode
// must round-trip whatever Encode produced: Decode(Encode(v)) == v.
type Serializer interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// Registry looks serializers up by name.
type Registry struct {
	byName map[string]Serializer
}

// NewRegistry returns a Registry pre-populated with the serializers every
// index flavor needs: uint64 and string keys, a single RID value, and a
// list-of-RID value for non-unique and full-text indexes.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Serializer)}
	for _, s := range []Serializer{
		Uint64Serializer{},
		StringSerializer{},
		RIDSerializer{},
		RIDListSerializer{},
	} {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the serializer under its own Name().
func (r *Registry) Register(s Serializer) { r.byName[s.Name()] = s }

// Lookup returns the serializer registered under name.
func (r *Registry) Lookup(name string) (Serializer, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return s, nil
}

// Uint64Serializer encodes uint64 keys as big-endian 8-byte blobs, which
// keeps byte-lexicographic order equal to numeric order.
type Uint64Serializer struct{}

func (Uint64Serializer) Name() string { return "uint64" }

func (Uint64Serializer) Encode(v any) ([]byte, error) {
	u, ok := v.(uint64)
	if !ok {
		return nil, fmt.Errorf("uint64 serializer: unexpected type %T", v)
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b, nil
}

func (Uint64Serializer) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("uint64 serializer: want 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// StringSerializer encodes strings verbatim; used for full-text tokens and
// any other string-keyed index.
type StringSerializer struct{}

func (StringSerializer) Name() string { return "string" }

func (StringSerializer) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("string serializer: unexpected type %T", v)
	}
	return []byte(s), nil
}

func (StringSerializer) Decode(b []byte) (any, error) {
	return string(b), nil
}

// RIDSerializer encodes a single rid.RID, the value type for unique
// indexes.
type RIDSerializer struct{}

func (RIDSerializer) Name() string { return "rid" }

func (RIDSerializer) Encode(v any) ([]byte, error) {
	r, ok := v.(rid.RID)
	if !ok {
		return nil, fmt.Errorf("rid serializer: unexpected type %T", v)
	}
	enc := r.Encode()
	return enc[:], nil
}

func (RIDSerializer) Decode(b []byte) (any, error) {
	if len(b) != 10 {
		return nil, fmt.Errorf("rid serializer: want 10 bytes, got %d", len(b))
	}
	return rid.Decode(b), nil
}

// RIDListSerializer encodes []rid.RID in insertion order, the value type
// for non-unique and full-text indexes. Capped at math.MaxUint32 entries.
type RIDListSerializer struct{}

func (RIDListSerializer) Name() string { return "rid-list" }

func (RIDListSerializer) Encode(v any) ([]byte, error) {
	list, ok := v.([]rid.RID)
	if !ok {
		return nil, fmt.Errorf("rid-list serializer: unexpected type %T", v)
	}
	if len(list) > math.MaxUint32 {
		return nil, fmt.Errorf("rid-list serializer: too many entries: %d", len(list))
	}
	b := make([]byte, 4+10*len(list))
	binary.BigEndian.PutUint32(b[0:4], uint32(len(list)))
	off := 4
	for _, r := range list {
		enc := r.Encode()
		copy(b[off:off+10], enc[:])
		off += 10
	}
	return b, nil
}

func (RIDListSerializer) Decode(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("rid-list serializer: truncated header")
	}
	n := binary.BigEndian.Uint32(b[0:4])
	want := 4 + 10*int(n)
	if len(b) != want {
		return nil, fmt.Errorf("rid-list serializer: want %d bytes, got %d", want, len(b))
	}
	out := make([]rid.RID, n)
	off := 4
	for i := range out {
		out[i] = rid.Decode(b[off : off+10])
		off += 10
	}
	return out, nil
}
