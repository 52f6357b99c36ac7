// Package ufsdefs is the shared vocabulary for the UFS core: identifiers,
// type tags, status codes and the handful of constants every layer (image,
// header, table, tree, engine) needs to agree on.
package ufsdefs

// ID is a signed identifier. Strictly positive values name a live entity
// within one of the four type tables. Zero is reserved for the BASE
// pseudo-area. Negative values are StatusCode values reinterpreted on the
// same return channel.
type ID = int64

// BASE is the reserved pseudo-area id. It shadows everything behind it in a
// view and is never the key of an explicit mapping.
const BASE ID = 0

// VIEWMaxSize bounds the number of entries a view may carry.
const VIEWMaxSize = 64

// Table identifies one of the four parallel on-image tables, in the fixed
// order the header lays them out.
type Table int

const (
	TableFiles Table = iota
	TableAreas
	TableNodes
	TableStrings
)

func (t Table) String() string {
	switch t {
	case TableFiles:
		return "files"
	case TableAreas:
		return "areas"
	case TableNodes:
		return "nodes"
	case TableStrings:
		return "strings"
	default:
		return "unknown"
	}
}

// Magic and version identify a valid UFS image (spec.md §6).
const (
	Magic          uint32 = 0x00736675 // "ufs\0", little-endian on disk
	IndexVersion   uint32 = 1
	LengthPreludeSize = 8 // first 8 bytes of the image: its own length
)
