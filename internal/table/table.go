// Package table implements spec.md §4.3: the fixed-capacity slot allocator
// shared by the Files, Areas and Nodes tables, plus the append-only string
// arena.
//
// Grounded on other_examples' slotcache slot-scan idiom (a slot is a fixed
// byte window read and written directly via encoding/binary, never an
// overlaid Go struct) simplified to this package's single-writer model:
// spec.md §5 rules out the concurrent seqlock machinery slotcache needs, so
// there is no generation counter or retry loop here, only a direct
// owned-bit scan.
package table

import (
	"encoding/binary"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// Table is a fixed-capacity array of fixed-size slots, each carrying a
// leading owned byte. Slot id n occupies data[(n-1)*slotSize : n*slotSize];
// id 0 is never a valid slot (it is the BASE sentinel at the engine level).
type Table struct {
	data     []byte
	slotSize uint64
	capacity uint64
	used     uint64
}

// New wraps data — the table's byte window within the image — as a slot
// array of capacity slots, each slotSize bytes.
func New(data []byte, slotSize, capacity uint64) *Table {
	t := &Table{data: data, slotSize: slotSize, capacity: capacity}
	for i := uint64(1); i <= capacity; i++ {
		if t.owned(ufsdefs.ID(i)) {
			t.used++
		}
	}
	return t
}

// Capacity returns the table's fixed slot count.
func (t *Table) Capacity() uint64 { return t.capacity }

// Used returns the number of currently owned slots, maintained incrementally
// by Allocate and Free rather than rescanned on every call.
func (t *Table) Used() uint64 { return t.used }

func (t *Table) inRange(id ufsdefs.ID) bool {
	return id >= 1 && uint64(id) <= t.capacity
}

func (t *Table) slotBytes(id ufsdefs.ID) []byte {
	off := uint64(id-1) * t.slotSize
	return t.data[off : off+t.slotSize]
}

func (t *Table) owned(id ufsdefs.ID) bool {
	return t.slotBytes(id)[0] != 0
}

func (t *Table) setOwned(id ufsdefs.ID, v bool) {
	if v {
		t.slotBytes(id)[0] = 1
	} else {
		t.slotBytes(id)[0] = 0
	}
}

// Allocate scans for the first free slot, marks it owned and returns
// id = slot_index + 1. Returns OUT_OF_MEMORY if the table is full.
func (t *Table) Allocate() (ufsdefs.ID, error) {
	for i := uint64(1); i <= t.capacity; i++ {
		id := ufsdefs.ID(i)
		if !t.owned(id) {
			t.setOwned(id, true)
			clear(t.slotBytes(id)[1:])
			t.used++
			return id, nil
		}
	}
	return 0, errors.New(ufsdefs.OutOfMemory, "table: no free slots")
}

// Free clears the owned bit at slot id. Subsequent Get calls for id fail
// with DOES_NOT_EXIST.
func (t *Table) Free(id ufsdefs.ID) error {
	if _, err := t.Get(id); err != nil {
		return err
	}
	t.setOwned(id, false)
	t.used--
	return nil
}

// Get bounds-checks id and returns its raw slot bytes, or DOES_NOT_EXIST if
// out of range or not owned.
func (t *Table) Get(id ufsdefs.ID) ([]byte, error) {
	if !t.inRange(id) || !t.owned(id) {
		return nil, errors.Newf(ufsdefs.DoesNotExist, "table: id %d does not exist", id)
	}
	return t.slotBytes(id), nil
}

// EntrySlot is the shape shared by File and Area slots: a single
// name_offset field into the string arena (spec.md §3).
type EntrySlot struct {
	raw []byte
}

// Entry wraps id's slot bytes as an EntrySlot.
func (t *Table) Entry(id ufsdefs.ID) (EntrySlot, error) {
	raw, err := t.Get(id)
	if err != nil {
		return EntrySlot{}, err
	}
	return EntrySlot{raw: raw}, nil
}

func (e EntrySlot) NameOffset() uint64 {
	return binary.LittleEndian.Uint64(e.raw[8:16])
}

func (e EntrySlot) SetNameOffset(v uint64) {
	binary.LittleEndian.PutUint64(e.raw[8:16], v)
}
