package table

import (
	"encoding/binary"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// cursorSize is the width of the bump-allocator cursor this package stores
// at the front of the string arena, mirroring internal/image's own
// self-describing length prelude: the arena records its own next-free
// offset rather than requiring a separate counter field in the header.
const cursorSize = 8

// Strings is the append-only, non-deduplicated byte arena backing every
// table's name storage (spec.md §4.3). Offsets it hands out and accepts
// are absolute within data, always >= cursorSize.
type Strings struct {
	data []byte
}

// NewStrings wraps data — the string arena's byte window within the image.
func NewStrings(data []byte) *Strings { return &Strings{data: data} }

func (s *Strings) next() uint64     { return binary.LittleEndian.Uint64(s.data[:cursorSize]) }
func (s *Strings) setNext(v uint64) { binary.LittleEndian.PutUint64(s.data[:cursorSize], v) }

// Used returns the bump cursor's current position: the number of bytes of
// the arena already spent, including the cursor itself.
func (s *Strings) Used() uint64 { return s.next() }

// Init seeds the bump cursor past the prelude. Must be called exactly once,
// when the arena is first created by ufsheader.Init.
func (s *Strings) Init() { s.setNext(cursorSize) }

// Intern appends bytes and a NUL terminator at the arena's current free
// position and returns the starting offset. Fails OUT_OF_MEMORY if the
// remaining free region cannot hold bytes plus its terminator.
func (s *Strings) Intern(b []byte) (uint64, error) {
	start := s.next()
	need := uint64(len(b)) + 1
	if start+need > uint64(len(s.data)) {
		return 0, errors.New(ufsdefs.OutOfMemory, "table: string arena full")
	}
	copy(s.data[start:], b)
	s.data[start+uint64(len(b))] = 0
	s.setNext(start + need)
	return start, nil
}

// Read returns a view of the NUL-terminated byte sequence starting at
// offset, not including the terminator.
func (s *Strings) Read(offset uint64) ([]byte, error) {
	if offset < cursorSize || offset >= uint64(len(s.data)) {
		return nil, errors.Newf(ufsdefs.DoesNotExist, "table: string offset %d out of range", offset)
	}
	end := offset
	for end < uint64(len(s.data)) && s.data[end] != 0 {
		end++
	}
	if end >= uint64(len(s.data)) {
		return nil, errors.New(ufsdefs.ImageIsCorrupted, "table: unterminated string in arena")
	}
	return s.data[offset:end], nil
}
