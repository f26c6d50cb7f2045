package heap

import (
	"encoding/binary"
	"errors"
)

// Slotted pages divide the payload into three regions: a small header
// tracking free space and slot count, user payload growing forward from the
// header, and a slot directory growing backward from the end of the page.
// Each record gets a slot entry so updates never have to shuffle payload
// bytes that belong to other records.
const (
	spHeaderSize  = 6 // slotCount(2) + freeStart(2) + freeEnd(2)
	slotEntrySize = 4 // offset(2) + length(2)
)

var (
	ErrNoSpace     = errors.New("heap: not enough free space on page")
	ErrSlotDeleted = errors.New("heap: slot deleted")
	ErrBadSlotID   = errors.New("heap: invalid slot id")
)

// slottedPage is a view over page.data implementing the slotted layout.
type slottedPage struct{ p *page }

func newSlottedPage(p *page) *slottedPage { return &slottedPage{p: p} }

// initIfFresh seeds the header of a newly zeroed page.
func (sp *slottedPage) initIfFresh() {
	sc, fs, fe := sp.header()
	if sc == 0 && fs == 0 && fe == 0 {
		sp.setHeader(0, spHeaderSize, PayloadSize)
	}
	if sp.p.dataSize == 0 {
		sp.p.dataSize = PayloadSize
	}
}

func (sp *slottedPage) header() (slotCount, freeStart, freeEnd uint16) {
	d := sp.p.data[:]
	slotCount = binary.LittleEndian.Uint16(d[0:2])
	freeStart = binary.LittleEndian.Uint16(d[2:4])
	freeEnd = binary.LittleEndian.Uint16(d[4:6])
	return
}

func (sp *slottedPage) setHeader(slotCount, freeStart, freeEnd uint16) {
	d := sp.p.data[:]
	binary.LittleEndian.PutUint16(d[0:2], slotCount)
	binary.LittleEndian.PutUint16(d[2:4], freeStart)
	binary.LittleEndian.PutUint16(d[4:6], freeEnd)
	sp.p.dataSize = PayloadSize
}

func (sp *slottedPage) freeSpace() int {
	sc, fs, fe := sp.header()
	return int(fe) - int(fs) - int(sc)*slotEntrySize
}

func slotPos(index uint16) int {
	return PayloadSize - int(index+1)*slotEntrySize
}

func (sp *slottedPage) getSlot(i uint16) (off, ln uint16, err error) {
	sc, _, _ := sp.header()
	if i >= sc {
		return 0, 0, ErrBadSlotID
	}
	pos := slotPos(i)
	d := sp.p.data[:]
	off = binary.LittleEndian.Uint16(d[pos : pos+2])
	ln = binary.LittleEndian.Uint16(d[pos+2 : pos+4])
	return
}

func (sp *slottedPage) setSlot(i, off, ln uint16) {
	pos := slotPos(i)
	d := sp.p.data[:]
	binary.LittleEndian.PutUint16(d[pos:pos+2], off)
	binary.LittleEndian.PutUint16(d[pos+2:pos+4], ln)
}

// insert appends rec to the payload region and returns its slot id.
func (sp *slottedPage) insert(rec []byte) (uint16, error) {
	if len(rec) > 0xFFFF {
		return 0, ErrDataTooLarge
	}
	req := len(rec) + slotEntrySize
	if sp.freeSpace() < req {
		return 0, ErrNoSpace
	}

	sc, fs, fe := sp.header()
	copy(sp.p.data[fs:], rec)
	slotID := sc
	sp.setSlot(slotID, fs, uint16(len(rec)))
	sc++
	fs += uint16(len(rec))
	fe -= slotEntrySize
	sp.setHeader(sc, fs, fe)
	return slotID, nil
}

// read returns a defensive copy of the record at slot i.
func (sp *slottedPage) read(i uint16) ([]byte, error) {
	off, ln, err := sp.getSlot(i)
	if err != nil {
		return nil, err
	}
	if ln == 0 {
		return nil, ErrSlotDeleted
	}
	out := make([]byte, ln)
	copy(out, sp.p.data[off:int(off)+int(ln)])
	return out, nil
}

// overwrite replaces the bytes at slot i, in place when the new length is no
// larger than the slot's current length and otherwise at the start of the
// page's free region; it reports ok=false when the page has no room left.
func (sp *slottedPage) overwrite(i uint16, rec []byte) (ok bool, err error) {
	off, ln, err := sp.getSlot(i)
	if err != nil {
		return false, err
	}
	if ln == 0 {
		return false, ErrSlotDeleted
	}
	if len(rec) > int(ln) {
		if sp.freeSpace() < len(rec) {
			return false, nil
		}
		sc, fs, fe := sp.header()
		copy(sp.p.data[fs:], rec)
		sp.setSlot(i, fs, uint16(len(rec)))
		sp.setHeader(sc, fs+uint16(len(rec)), fe)
		return true, nil
	}
	copy(sp.p.data[off:int(off)+len(rec)], rec)
	sp.setSlot(i, off, uint16(len(rec)))
	return true, nil
}

// del marks the slot as deleted (lazy delete); the payload bytes are left in
// place and are not reclaimed; nothing compacts a page.
func (sp *slottedPage) del(i uint16) error {
	off, _, err := sp.getSlot(i)
	if err != nil {
		return err
	}
	sp.setSlot(i, off, 0)
	return nil
}
