package tree

import (
	"encoding/binary"
	"fmt"
	"math"

	"gengardb/pkg/rid"
)

// descriptor is the small fixed record that anchors a tree inside its
// record store: where the root page lives, how many entries it holds, and
// which named serializers decode its keys and values. size is kept on disk
// in a legacy 4-byte field for backward compatibility with older
// descriptors; in memory it is a full int64, and Encode saturates instead
// of wrapping if a tree ever somehow exceeds 2^31-1 entries.
type descriptor struct {
	rootRID      rid.RID
	size         int64
	lastPageSize uint16
	keySerName   string
	valSerName   string
}

func (d *descriptor) encode() []byte {
	rootEnc := d.rootRID.Encode()
	buf := make([]byte, 0, 16+len(d.keySerName)+len(d.valSerName)+8)
	buf = append(buf, rootEnc[:]...)

	legacySize := d.size
	if legacySize > math.MaxInt32 {
		legacySize = math.MaxInt32
	}
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(int32(legacySize)))
	buf = append(buf, sizeBuf[:]...)

	var pageSizeBuf [2]byte
	binary.BigEndian.PutUint16(pageSizeBuf[:], d.lastPageSize)
	buf = append(buf, pageSizeBuf[:]...)

	buf = appendVarintString(buf, d.keySerName)
	buf = appendVarintString(buf, d.valSerName)
	return buf
}

func decodeDescriptor(data []byte) (*descriptor, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("%w: descriptor truncated (%d bytes)", ErrCorruption, len(data))
	}
	d := &descriptor{
		rootRID:      rid.Decode(data[0:10]),
		size:         int64(int32(binary.BigEndian.Uint32(data[10:14]))),
		lastPageSize: binary.BigEndian.Uint16(data[14:16]),
	}
	off := 16
	keySerName, next, err := readVarintString(data, off)
	if err != nil {
		return nil, err
	}
	off = next
	valSerName, _, err := readVarintString(data, off)
	if err != nil {
		return nil, err
	}
	d.keySerName = keySerName
	d.valSerName = valSerName
	return d, nil
}

func appendVarintString(buf []byte, s string) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	buf = append(buf, lenBuf[:n]...)
	return append(buf, s...)
}

func readVarintString(data []byte, off int) (string, int, error) {
	length, n := binary.Uvarint(data[off:])
	if n <= 0 {
		return "", 0, fmt.Errorf("%w: bad varint in descriptor", ErrCorruption)
	}
	start := off + n
	end := start + int(length)
	if end > len(data) {
		return "", 0, fmt.Errorf("%w: descriptor string overruns buffer", ErrCorruption)
	}
	return string(data[start:end]), end, nil
}
