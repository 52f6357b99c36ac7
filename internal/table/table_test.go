package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

func newEntryTable(capacity uint64) *Table {
	return New(make([]byte, capacity*16), 16, capacity)
}

func TestAllocateReturnsDistinctIncreasingIDs(t *testing.T) {
	tb := newEntryTable(4)

	id1, err := tb.Allocate()
	require.NoError(t, err)
	id2, err := tb.Allocate()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, ufsdefs.ID(1), id1)
	assert.Equal(t, ufsdefs.ID(2), id2)
}

func TestAllocateFailsWhenFull(t *testing.T) {
	tb := newEntryTable(2)
	_, err := tb.Allocate()
	require.NoError(t, err)
	_, err = tb.Allocate()
	require.NoError(t, err)

	_, err = tb.Allocate()
	require.Error(t, err)
	assert.Equal(t, ufsdefs.OutOfMemory, errors.StatusOf(err))
}

func TestFreeReleasesSlotForReuse(t *testing.T) {
	tb := newEntryTable(1)
	id, err := tb.Allocate()
	require.NoError(t, err)

	require.NoError(t, tb.Free(id))

	again, err := tb.Allocate()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestUsedTracksAllocateAndFree(t *testing.T) {
	tb := newEntryTable(4)
	assert.Equal(t, uint64(0), tb.Used())

	id1, err := tb.Allocate()
	require.NoError(t, err)
	_, err = tb.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tb.Used())

	require.NoError(t, tb.Free(id1))
	assert.Equal(t, uint64(1), tb.Used())
}

func TestGetFailsForFreedOrOutOfRangeID(t *testing.T) {
	tb := newEntryTable(2)
	id, err := tb.Allocate()
	require.NoError(t, err)
	require.NoError(t, tb.Free(id))

	_, err = tb.Get(id)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))

	_, err = tb.Get(99)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))

	_, err = tb.Get(0)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}

func TestEntrySlotNameOffsetRoundTrips(t *testing.T) {
	tb := newEntryTable(1)
	id, err := tb.Allocate()
	require.NoError(t, err)

	e, err := tb.Entry(id)
	require.NoError(t, err)
	e.SetNameOffset(42)

	e2, err := tb.Entry(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), e2.NameOffset())
}

func TestFreeThenAllocateClearsStaleFields(t *testing.T) {
	tb := newEntryTable(1)
	id, err := tb.Allocate()
	require.NoError(t, err)
	e, _ := tb.Entry(id)
	e.SetNameOffset(7)

	require.NoError(t, tb.Free(id))
	again, err := tb.Allocate()
	require.NoError(t, err)
	e2, _ := tb.Entry(again)
	assert.Equal(t, uint64(0), e2.NameOffset())
}

func newNodeTable(capacity uint64) *Table {
	return New(make([]byte, capacity*48), 48, capacity)
}

func TestNodeSlotFieldsRoundTrip(t *testing.T) {
	tb := newNodeTable(2)
	id, err := tb.Allocate()
	require.NoError(t, err)

	n, err := tb.Node(id)
	require.NoError(t, err)
	n.SetLeft(5)
	n.SetRight(-1)
	n.SetKey(0, 10)
	n.SetKey(1, 20)
	n.SetKeyCount(2)

	n2, err := tb.Node(id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n2.Left())
	assert.Equal(t, int64(-1), n2.Right())
	assert.Equal(t, int64(10), n2.Key(0))
	assert.Equal(t, int64(20), n2.Key(1))
	assert.Equal(t, uint8(2), n2.KeyCount())
}

func TestStringsInternAndRead(t *testing.T) {
	s := NewStrings(make([]byte, 64))
	s.Init()

	off1, err := s.Intern([]byte("hello"))
	require.NoError(t, err)
	off2, err := s.Intern([]byte("world"))
	require.NoError(t, err)

	b1, err := s.Read(off1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b1))

	b2, err := s.Read(off2)
	require.NoError(t, err)
	assert.Equal(t, "world", string(b2))
}

func TestStringsInternFailsWhenArenaFull(t *testing.T) {
	s := NewStrings(make([]byte, 8+4))
	s.Init()

	_, err := s.Intern([]byte("abc"))
	require.NoError(t, err)

	_, err = s.Intern([]byte("de"))
	require.Error(t, err)
	assert.Equal(t, ufsdefs.OutOfMemory, errors.StatusOf(err))
}

func TestStringsReadRejectsOutOfRangeOffset(t *testing.T) {
	s := NewStrings(make([]byte, 32))
	s.Init()

	_, err := s.Read(0)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))

	_, err = s.Read(1000)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}

func TestStringsAreNotDeduplicated(t *testing.T) {
	s := NewStrings(make([]byte, 64))
	s.Init()

	off1, err := s.Intern([]byte("dup"))
	require.NoError(t, err)
	off2, err := s.Intern([]byte("dup"))
	require.NoError(t, err)

	assert.NotEqual(t, off1, off2)
}
