package image

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

func TestCreateWritesLengthPrelude(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.ufs")

	img, err := Create(path, 256)
	require.NoError(t, err)
	defer img.Free()

	assert.Equal(t, uint64(256), img.Length())
	assert.Len(t, img.Bytes(), 256)
	assert.Equal(t, path, img.Path())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(256), st.Size())
}

func TestCreateRejectsTooSmallOrEmptyPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "img.ufs"), 4)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.BadCall, errors.StatusOf(err))

	_, err = Create("", 256)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.BadCall, errors.StatusOf(err))
}

func TestCreateFailsIfFileAlreadyExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.ufs")
	img, err := Create(path, 64)
	require.NoError(t, err)
	img.Free()

	_, err = Create(path, 64)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.CantCreateFile, errors.StatusOf(err))
}

func TestOpenRoundTripsCreatedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.ufs")
	img, err := Create(path, 128)
	require.NoError(t, err)
	copy(img.Bytes()[8:], []byte("hello"))
	require.NoError(t, img.Sync())
	require.NoError(t, img.Free())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Free()

	assert.Equal(t, uint64(128), reopened.Length())
	assert.Equal(t, []byte("hello"), reopened.Bytes()[8:13])
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.ufs"))
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
	assert.Equal(t, ufsdefs.BadCall, errors.StatusOf(err))
}

func TestOpenRejectsImageSmallerThanPrelude(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.ufs")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.ImageTooSmall, errors.StatusOf(err))
}

func TestSyncFlushesToDiskBeforeFree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.ufs")
	img, err := Create(path, 64)
	require.NoError(t, err)

	binary.LittleEndian.PutUint64(img.Bytes()[8:], 0xdeadbeef)
	require.NoError(t, img.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), binary.LittleEndian.Uint64(raw[8:]))

	require.NoError(t, img.Free())
}

func TestFreeIsIdempotentAndNilSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.ufs")
	img, err := Create(path, 64)
	require.NoError(t, err)

	require.NoError(t, img.Free())
	require.NoError(t, img.Free())

	var nilImg *Image
	require.NoError(t, nilImg.Free())
	require.NoError(t, nilImg.Sync())
}
