package ufs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/internal/table"
	"github.com/ufs/ufs/ufsdefs"
)

func newOwnerIndexNodeTable(t *testing.T) *table.Table {
	t.Helper()
	const slotSize = 48
	buf := make([]byte, slotSize*64)
	return table.New(buf, slotSize, 64)
}

func TestOwnerRootIndexSetGetDelete(t *testing.T) {
	nodes := newOwnerIndexNodeTable(t)
	idx := newOwnerRootIndex(nodes, 0)

	_, found, err := idx.Get(5)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, idx.Set(5, 500))
	require.NoError(t, idx.Set(2, 200))
	require.NoError(t, idx.Set(9, 900))

	root, found, err := idx.Get(5)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ufsdefs.ID(500), root)

	require.NoError(t, idx.Set(5, 501))
	root, found, err = idx.Get(5)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ufsdefs.ID(501), root)

	require.NoError(t, idx.Delete(2))
	_, found, err = idx.Get(2)
	require.NoError(t, err)
	assert.False(t, found)

	root, found, err = idx.Get(9)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ufsdefs.ID(900), root)
}

func TestOwnerRootIndexDeleteMissingFails(t *testing.T) {
	nodes := newOwnerIndexNodeTable(t)
	idx := newOwnerRootIndex(nodes, 0)
	require.NoError(t, idx.Set(1, 10))

	err := idx.Delete(2)
	require.Error(t, err)
}
