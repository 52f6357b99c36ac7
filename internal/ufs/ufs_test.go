package ufs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/internal/config"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

func newTestUFS(t *testing.T) *UFS {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Image.Path = filepath.Join(t.TempDir(), "ufs.img")
	cfg.Image.NumFiles = 32
	cfg.Image.NumAreas = 16
	cfg.Image.NumNodes = 128
	cfg.Image.NumStringBytes = 1 << 14
	cfg.Metrics.Enabled = false

	u, err := Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Destroy() })
	return u
}

func TestInitOnFreshImageHasEmptyForest(t *testing.T) {
	u := newTestUFS(t)
	names, err := u.ListAreas()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReopenPreservesState(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Image.Path = filepath.Join(t.TempDir(), "ufs.img")
	cfg.Image.NumFiles = 32
	cfg.Image.NumAreas = 16
	cfg.Image.NumNodes = 128
	cfg.Image.NumStringBytes = 1 << 14
	cfg.Metrics.Enabled = false

	u, err := Init(cfg)
	require.NoError(t, err)

	dir, err := u.AddDirectory("docs")
	require.NoError(t, err)
	_, err = u.AddFile(dir, "readme")
	require.NoError(t, err)
	require.NoError(t, u.Sync())
	require.NoError(t, u.Destroy())

	reopened, err := Init(cfg)
	require.NoError(t, err)
	defer reopened.Destroy()

	got, err := reopened.GetDirectory("docs")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	files, err := reopened.ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"readme"}, files)
}

func TestAddDirectoryRejectsDuplicateName(t *testing.T) {
	u := newTestUFS(t)
	_, err := u.AddDirectory("docs")
	require.NoError(t, err)
	_, err = u.AddDirectory("docs")
	require.Error(t, err)
	assert.Equal(t, ufsdefs.AlreadyExists, errors.StatusOf(err))
}

func TestAddFileRequiresLiveDirectory(t *testing.T) {
	u := newTestUFS(t)
	_, err := u.AddFile(999, "f")
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}

func TestRemoveNonEmptyDirectoryFails(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	_, err = u.AddFile(dir, "f")
	require.NoError(t, err)

	err = u.RemoveDirectory(dir)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DirectoryIsNotEmpty, errors.StatusOf(err))
}

func TestRemoveEmptyDirectorySucceeds(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	require.NoError(t, u.RemoveDirectory(dir))

	_, err = u.GetDirectory("d")
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}

func TestAreaNameBASEIsReserved(t *testing.T) {
	u := newTestUFS(t)
	_, err := u.AddArea("BASE")
	require.Error(t, err)

	id, err := u.GetArea("BASE")
	require.NoError(t, err)
	assert.Equal(t, ufsdefs.BASE, id)
}

func TestMappingIsSetSemantics(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	area, err := u.AddArea("a")
	require.NoError(t, err)

	require.NoError(t, u.AddMapping(area, file))
	require.NoError(t, u.ProbeMapping(area, file))

	storages, err := u.ListMappings(area)
	require.NoError(t, err)
	assert.Equal(t, []ufsdefs.ID{file}, storages)

	// Re-adding does not duplicate the entry.
	err = u.AddMapping(area, file)
	require.Error(t, err)
	storages, err = u.ListMappings(area)
	require.NoError(t, err)
	assert.Len(t, storages, 1)
}

func TestStatResolvesEachKind(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	area, err := u.AddArea("a")
	require.NoError(t, err)

	name, err := u.Stat(KindDirectory, dir)
	require.NoError(t, err)
	assert.Equal(t, "d", name)

	name, err = u.Stat(KindFile, file)
	require.NoError(t, err)
	assert.Equal(t, "f", name)

	name, err = u.Stat(KindArea, area)
	require.NoError(t, err)
	assert.Equal(t, "a", name)

	name, err = u.Stat(KindArea, ufsdefs.BASE)
	require.NoError(t, err)
	assert.Equal(t, "BASE", name)
}

func TestImagePathReturnsConfiguredPath(t *testing.T) {
	u := newTestUFS(t)
	assert.NotEmpty(t, u.ImagePath())
}
