// Package rid defines the record identifier used throughout the tree and
// its collaborators. An RID names a byte blob inside a record store: a
// cluster id and a position within that cluster, mirroring how the wider
// database addresses records without this package knowing anything about
// clusters, files, or pages.
package rid

import "fmt"

// RID is a record identifier: (cluster_id, cluster_position).
//
// A new RID that has not yet been persisted carries Position < -1; this is
// the "provisional" sentinel described by the tree's commit buffer. Position
// == -1 is reserved and never assigned by a record store. An RID with
// ClusterID == -1 is invalid and never resolves to a record.
type RID struct {
	ClusterID int32
	Position  int64
}

// Invalid is the zero-value-equivalent RID meaning "no such record".
var Invalid = RID{ClusterID: -1, Position: -1}

// New returns a provisional RID for a record that has not been written yet.
// seq is a non-negative counter private to the caller that mints it; New
// subtracts it from -2 so that even seq == 0 lands below the -1 sentinel.
func New(clusterID int32, seq int64) RID {
	return RID{ClusterID: clusterID, Position: -2 - seq}
}

// IsValid reports whether the RID could resolve to a record.
func (r RID) IsValid() bool { return r.ClusterID >= 0 }

// IsNew reports whether the RID is a provisional identifier awaiting
// assignment by a record store.
func (r RID) IsNew() bool { return r.Position < -1 }

// Equal reports structural equality.
func (r RID) Equal(o RID) bool { return r.ClusterID == o.ClusterID && r.Position == o.Position }

// Less defines the total lexicographic order over RIDs: cluster id first,
// then position.
func (r RID) Less(o RID) bool {
	if r.ClusterID != o.ClusterID {
		return r.ClusterID < o.ClusterID
	}
	return r.Position < o.Position
}

func (r RID) String() string {
	return fmt.Sprintf("%d:%d", r.ClusterID, r.Position)
}

// Encode packs the RID into the tight 10-byte wire representation used by
// NodePage and the tree descriptor: 4 bytes cluster id, 6 bytes position.
func (r RID) Encode() [10]byte {
	var buf [10]byte
	putInt32(buf[0:4], r.ClusterID)
	putInt48(buf[4:10], r.Position)
	return buf
}

// Decode unpacks an RID from its 10-byte wire representation.
func Decode(buf []byte) RID {
	_ = buf[9]
	return RID{
		ClusterID: getInt32(buf[0:4]),
		Position:  getInt48(buf[4:10]),
	}
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u >> 24)
	b[1] = byte(u >> 16)
	b[2] = byte(u >> 8)
	b[3] = byte(u)
}

func getInt32(b []byte) int32 {
	u := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return int32(u)
}

// putInt48 writes a 48-bit two's complement value, enough range for any
// realistic cluster position while keeping the on-disk RID to 10 bytes.
func putInt48(b []byte, v int64) {
	u := uint64(v) & 0xFFFFFFFFFFFF
	b[0] = byte(u >> 40)
	b[1] = byte(u >> 32)
	b[2] = byte(u >> 24)
	b[3] = byte(u >> 16)
	b[4] = byte(u >> 8)
	b[5] = byte(u)
}

func getInt48(b []byte) int64 {
	u := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 | uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	// sign-extend from bit 47
	if u&(1<<47) != 0 {
		u |= 0xFFFF << 48
	}
	return int64(u)
}
