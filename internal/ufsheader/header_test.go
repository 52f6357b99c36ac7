package ufsheader

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/internal/image"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

func TestInitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	req := SizeRequest{NumFiles: 4, NumAreas: 4, NumNodes: 8, NumStrBytes: 256}

	img, err := Init(path, req)
	require.NoError(t, err)
	defer img.Free()

	h := Get(img)
	assert.Equal(t, ufsdefs.Magic, h.Magic())
	assert.Equal(t, ufsdefs.IndexVersion, h.Version())
	assert.Equal(t, req.NumFiles, h.Size(ufsdefs.TableFiles))
	assert.Equal(t, req.NumAreas, h.Size(ufsdefs.TableAreas))
	assert.Equal(t, req.NumNodes, h.Size(ufsdefs.TableNodes))
	assert.Equal(t, req.NumStrBytes, h.Size(ufsdefs.TableStrings))
}

func TestInitFileLengthIsPageMultiple(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	img, err := Init(path, SizeRequest{NumFiles: 1, NumAreas: 1, NumNodes: 1, NumStrBytes: 64})
	require.NoError(t, err)
	defer img.Free()

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Size()%int64(unix.Getpagesize()))
	assert.Equal(t, uint64(st.Size()), img.Length())
}

func TestInitThenOpenValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	img, err := Init(path, SizeRequest{NumFiles: 2, NumAreas: 2, NumNodes: 2, NumStrBytes: 64})
	require.NoError(t, err)
	require.NoError(t, img.Sync())
	require.NoError(t, img.Free())

	reopened, err := image.Open(path)
	require.NoError(t, err)
	defer reopened.Free()

	validated, err := Validate(reopened)
	require.NoError(t, err)
	assert.Same(t, reopened, validated)
}

func TestInitRejectsNullOrZeroRequest(t *testing.T) {
	_, err := Init("", SizeRequest{NumFiles: 1, NumAreas: 1, NumNodes: 1, NumStrBytes: 1})
	require.Error(t, err)
	assert.Equal(t, ufsdefs.BadCall, errors.StatusOf(err))

	_, err = Init(filepath.Join(t.TempDir(), "ufs_index"), SizeRequest{})
	require.Error(t, err)
	assert.Equal(t, ufsdefs.BadCall, errors.StatusOf(err))
}

func TestValidateRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	img, err := Init(path, SizeRequest{NumFiles: 1, NumAreas: 1, NumNodes: 1, NumStrBytes: 64})
	require.NoError(t, err)
	defer img.Free()

	h := Get(img)
	h.setMagic(0xdeadbeef)

	_, err = Validate(img)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.ImageIsCorrupted, errors.StatusOf(err))
}

func TestValidateRejectsVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	img, err := Init(path, SizeRequest{NumFiles: 1, NumAreas: 1, NumNodes: 1, NumStrBytes: 64})
	require.NoError(t, err)
	defer img.Free()

	h := Get(img)
	h.setVersion(0)

	_, err = Validate(img)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.VersionMismatch, errors.StatusOf(err))
}

func TestValidateRejectsTableOverrunningImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	img, err := Init(path, SizeRequest{NumFiles: 1, NumAreas: 1, NumNodes: 1, NumStrBytes: 64})
	require.NoError(t, err)
	defer img.Free()

	h := Get(img)
	h.setSize(ufsdefs.TableStrings, h.Size(ufsdefs.TableStrings)*1000)

	_, err = Validate(img)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.ImageIsCorrupted, errors.StatusOf(err))
}

func TestTablesDoNotOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ufs_index")
	img, err := Init(path, SizeRequest{NumFiles: 3, NumAreas: 5, NumNodes: 7, NumStrBytes: 128})
	require.NoError(t, err)
	defer img.Free()

	h := Get(img)
	order := []ufsdefs.Table{ufsdefs.TableFiles, ufsdefs.TableAreas, ufsdefs.TableNodes, ufsdefs.TableStrings}
	for i := 1; i < len(order); i++ {
		prevEnd := h.Offset(order[i-1]) + h.Size(order[i-1])*slotSize(order[i-1])
		assert.LessOrEqual(t, prevEnd, h.Offset(order[i]))
	}
}
