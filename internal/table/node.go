package table

import "encoding/binary"

// NodeSlot is the on-disk shape of a Node-table slot (spec.md §3): up to
// two keys, two child ids, and a key count. Used both as the per-table name
// index and as an area's mapping-set subtree (internal/tree).
type NodeSlot struct {
	raw []byte
}

// Node wraps id's slot bytes as a NodeSlot.
func (t *Table) Node(id int64) (NodeSlot, error) {
	raw, err := t.Get(id)
	if err != nil {
		return NodeSlot{}, err
	}
	return NodeSlot{raw: raw}, nil
}

func (n NodeSlot) Left() int64  { return int64(binary.LittleEndian.Uint64(n.raw[8:16])) }
func (n NodeSlot) Right() int64 { return int64(binary.LittleEndian.Uint64(n.raw[16:24])) }

func (n NodeSlot) SetLeft(v int64)  { binary.LittleEndian.PutUint64(n.raw[8:16], uint64(v)) }
func (n NodeSlot) SetRight(v int64) { binary.LittleEndian.PutUint64(n.raw[16:24], uint64(v)) }

func (n NodeSlot) Key(i int) int64 {
	off := 24 + 8*i
	return int64(binary.LittleEndian.Uint64(n.raw[off : off+8]))
}

func (n NodeSlot) SetKey(i int, v int64) {
	off := 24 + 8*i
	binary.LittleEndian.PutUint64(n.raw[off:off+8], uint64(v))
}

func (n NodeSlot) KeyCount() uint8     { return n.raw[40] }
func (n NodeSlot) SetKeyCount(v uint8) { n.raw[40] = v }
