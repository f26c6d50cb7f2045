package tree

import (
	"encoding/binary"
	"fmt"

	"gengardb/pkg/rid"
	"gengardb/pkg/serializer"
)

const (
	offPageSize  = 0
	offParentRID = 2
	offLeftRID   = 12
	offRightRID  = 22
	offColor     = 32
	offCount     = 33
	headerSize   = 35
)

// encode serializes the page's fixed header plus its slot blobs. Only
// slots whose cached encoding is stale are re-encoded; everything else
// reuses the bytes already on hand.
func (n *node) encode() ([]byte, error) {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint16(header[offPageSize:], n.pageSize)

	parentEnc := n.parentRID.Encode()
	copy(header[offParentRID:], parentEnc[:])
	leftEnc := n.leftRID.Encode()
	copy(header[offLeftRID:], leftEnc[:])
	rightEnc := n.rightRID.Encode()
	copy(header[offRightRID:], rightEnc[:])

	if n.color == red {
		header[offColor] = 1
	} else {
		header[offColor] = 0
	}
	binary.BigEndian.PutUint16(header[offCount:], n.count)

	out := header
	varintBuf := make([]byte, binary.MaxVarintLen64)

	for i := 0; i < int(n.count); i++ {
		b, err := n.keys[i].encode(n.keySer)
		if err != nil {
			return nil, ridErr("encode key", n.selfRID, err)
		}
		m := binary.PutUvarint(varintBuf, uint64(len(b)))
		out = append(out, varintBuf[:m]...)
		out = append(out, b...)
	}
	for i := 0; i < int(n.count); i++ {
		b, err := n.values[i].encode(n.valSer)
		if err != nil {
			return nil, ridErr("encode value", n.selfRID, err)
		}
		m := binary.PutUvarint(varintBuf, uint64(len(b)))
		out = append(out, varintBuf[:m]...)
		out = append(out, b...)
	}
	return out, nil
}

// decodeNode parses the raw bytes read from the record store into a node
// with unmaterialized (encoded-only) slots. self is the RID the bytes were
// read from.
func decodeNode(self rid.RID, data []byte, keySer, valSer serializer.Serializer) (*node, error) {
	if len(data) < headerSize {
		return nil, ridErr("decode", self, fmt.Errorf("%w: header truncated (%d bytes)", ErrCorruption, len(data)))
	}
	n := &node{
		selfRID:   self,
		parentRID: rid.Decode(data[offParentRID:]),
		leftRID:   rid.Decode(data[offLeftRID:]),
		rightRID:  rid.Decode(data[offRightRID:]),
		pageSize:  binary.BigEndian.Uint16(data[offPageSize:]),
		count:     binary.BigEndian.Uint16(data[offCount:]),
		keySer:    keySer,
		valSer:    valSer,
		loaded:    true,
	}
	if data[offColor] == 1 {
		n.color = red
	} else {
		n.color = black
	}

	off := headerSize
	n.keys = make([]slot, n.count)
	for i := 0; i < int(n.count); i++ {
		b, next, err := readVarintBlob(data, off, self)
		if err != nil {
			return nil, err
		}
		n.keys[i] = encodedSlot(b)
		off = next
	}
	n.values = make([]slot, n.count)
	for i := 0; i < int(n.count); i++ {
		b, next, err := readVarintBlob(data, off, self)
		if err != nil {
			return nil, err
		}
		n.values[i] = encodedSlot(b)
		off = next
	}
	return n, nil
}

func readVarintBlob(data []byte, off int, self rid.RID) ([]byte, int, error) {
	length, m := binary.Uvarint(data[off:])
	if m <= 0 {
		return nil, 0, ridErr("decode", self, fmt.Errorf("%w: bad varint length prefix", ErrCorruption))
	}
	start := off + m
	end := start + int(length)
	if end > len(data) {
		return nil, 0, ridErr("decode", self, fmt.Errorf("%w: blob length %d overruns page", ErrCorruption, length))
	}
	b := make([]byte, length)
	copy(b, data[start:end])
	return b, end, nil
}
