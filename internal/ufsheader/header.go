// Package ufsheader implements spec.md §4.2: the single layout computation
// that Init, Validate and Get all agree on, so the four sub-tables always
// land at the same byte offsets no matter which entry point computed them.
//
// Grounded on other_examples' slotcache newHeader/encodeHeader pair (a
// header is a fixed byte window decoded/encoded with encoding/binary, never
// a Go struct overlaid onto memory with unsafe) and entitydb's documented
// fixed-offset header/table diagram, which is why the four table offsets
// are themselves fields written into the image rather than recomputed by
// every reader.
package ufsheader

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/ufs/ufs/internal/image"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/pkg/logging"
	"github.com/ufs/ufs/ufsdefs"
)

// Slot sizes, computed once here per spec.md §6's natural-padding layout
// and reused by internal/table so the two packages never disagree about a
// table's element stride.
const (
	FileSlotSize = 16 // u8 owned + 7 pad + u64 name_offset
	AreaSlotSize = 16 // same shape as FileSlot
	NodeSlotSize = 48 // u8 owned + pad, i64 left, i64 right, i64 keys[2], u8 key_count + pad

	headerAlignment = 8
	headerSize      = 4 + 4 + 8*4 + 8*4 // magic, version, sizes[4], offsets[4]
)

func slotSize(t ufsdefs.Table) uint64 {
	switch t {
	case ufsdefs.TableFiles:
		return FileSlotSize
	case ufsdefs.TableAreas:
		return AreaSlotSize
	case ufsdefs.TableNodes:
		return NodeSlotSize
	default: // ufsdefs.TableStrings: raw byte arena, unit stride
		return 1
	}
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}

// SizeRequest names the four table capacities Init sizes the image for. All
// four fields must be strictly positive.
type SizeRequest struct {
	NumFiles    uint64
	NumAreas    uint64
	NumNodes    uint64
	NumStrBytes uint64
}

func (r SizeRequest) isZero() bool { return r == (SizeRequest{}) }

func (r SizeRequest) capacity(t ufsdefs.Table) uint64 {
	switch t {
	case ufsdefs.TableFiles:
		return r.NumFiles
	case ufsdefs.TableAreas:
		return r.NumAreas
	case ufsdefs.TableNodes:
		return r.NumNodes
	default:
		return r.NumStrBytes
	}
}

// Header is a decoded view over the headerSize-byte window of a mapped
// image. It holds no data of its own; every accessor reads or writes
// through to the backing image bytes.
type Header struct {
	data []byte
}

func headerOffset() uint64 {
	return alignUp(ufsdefs.LengthPreludeSize, headerAlignment)
}

// Get computes the header's address within img and returns a view onto it.
// There is no failure mode, matching spec.md §4.2.
func Get(img *image.Image) *Header {
	off := headerOffset()
	return &Header{data: img.Bytes()[off : off+headerSize]}
}

func (h *Header) Magic() uint32   { return binary.LittleEndian.Uint32(h.data[0:4]) }
func (h *Header) Version() uint32 { return binary.LittleEndian.Uint32(h.data[4:8]) }

func (h *Header) Size(t ufsdefs.Table) uint64 {
	return binary.LittleEndian.Uint64(h.data[8+8*int(t) : 16+8*int(t)])
}

func (h *Header) Offset(t ufsdefs.Table) uint64 {
	return binary.LittleEndian.Uint64(h.data[40+8*int(t) : 48+8*int(t)])
}

func (h *Header) setMagic(v uint32)   { binary.LittleEndian.PutUint32(h.data[0:4], v) }
func (h *Header) setVersion(v uint32) { binary.LittleEndian.PutUint32(h.data[4:8], v) }

func (h *Header) setSize(t ufsdefs.Table, v uint64) {
	binary.LittleEndian.PutUint64(h.data[8+8*int(t):16+8*int(t)], v)
}

func (h *Header) setOffset(t ufsdefs.Table, v uint64) {
	binary.LittleEndian.PutUint64(h.data[40+8*int(t):48+8*int(t)], v)
}

// layout is the single offsets/sizes computation (spec.md §4.2). Init
// calls it and records the result in the header; Validate checks the
// recorded offsets and sizes rather than recomputing them.
type layout struct {
	total   uint64
	offsets [4]uint64
	sizes   [4]uint64
}

func computeLayout(req SizeRequest) layout {
	var l layout
	pos := headerOffset() + headerSize
	for _, t := range []ufsdefs.Table{ufsdefs.TableFiles, ufsdefs.TableAreas, ufsdefs.TableNodes, ufsdefs.TableStrings} {
		align := slotSize(t)
		if align > 8 {
			align = 8
		}
		if align == 0 {
			align = 1
		}
		pos = alignUp(pos, align)
		l.offsets[t] = pos
		l.sizes[t] = req.capacity(t)
		pos += l.sizes[t] * slotSize(t)
	}
	l.total = alignUp(pos, uint64(unix.Getpagesize()))
	return l
}

// Init computes the image length for req, creates the backing image via
// Image.Create, writes the magic/version/sizes/offsets header, and returns
// the image iff Validate subsequently accepts it (spec.md §4.2).
func Init(path string, req SizeRequest) (*image.Image, error) {
	return InitWithLogger(path, req, logging.Discard())
}

// InitWithLogger is Init with an explicit diagnostic logger.
func InitWithLogger(path string, req SizeRequest, log *logging.Logger) (*image.Image, error) {
	if path == "" || req.isZero() {
		return nil, errors.New(ufsdefs.BadCall, "ufsheader: Init requires a path and a non-zero size request")
	}

	l := computeLayout(req)

	img, err := image.CreateWithLogger(path, int64(l.total), log)
	if err != nil {
		return nil, err
	}

	h := Get(img)
	h.setMagic(ufsdefs.Magic)
	h.setVersion(ufsdefs.IndexVersion)
	for _, t := range []ufsdefs.Table{ufsdefs.TableFiles, ufsdefs.TableAreas, ufsdefs.TableNodes, ufsdefs.TableStrings} {
		h.setSize(t, l.sizes[t])
		h.setOffset(t, l.offsets[t])
	}

	if _, err := Validate(img); err != nil {
		img.Free()
		return nil, err
	}
	return img, nil
}

// Validate reads magic and version, failing IMAGE_IS_CORRUPTED or
// VERSION_MISMATCH respectively. It additionally bound-checks every
// declared table against the image length, closing the gap spec.md §9
// open question (b) flags as missing from the source behavior.
func Validate(img *image.Image) (*image.Image, error) {
	h := Get(img)

	if h.Magic() != ufsdefs.Magic {
		return nil, errors.New(ufsdefs.ImageIsCorrupted, "ufsheader: magic mismatch")
	}
	if h.Version() != ufsdefs.IndexVersion {
		return nil, errors.New(ufsdefs.VersionMismatch, "ufsheader: unsupported version")
	}

	length := img.Length()
	for _, t := range []ufsdefs.Table{ufsdefs.TableFiles, ufsdefs.TableAreas, ufsdefs.TableNodes, ufsdefs.TableStrings} {
		end := h.Offset(t) + h.Size(t)*slotSize(t)
		if end > length {
			return nil, errors.Newf(ufsdefs.ImageIsCorrupted, "ufsheader: table %s extends past image length (%d > %d)", t, end, length)
		}
	}

	return img, nil
}
