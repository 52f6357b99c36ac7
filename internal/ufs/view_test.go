package ufs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

func TestResolveStorageInViewScenario5(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	area, err := u.AddArea("a")
	require.NoError(t, err)
	require.NoError(t, u.AddMapping(area, file))

	resolved, err := u.ResolveStorageInView([]ufsdefs.ID{area, ufsdefs.BASE}, file)
	require.NoError(t, err)
	assert.Equal(t, area, resolved)
}

func TestResolveStorageInViewScenario6(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	unrelated, err := u.AddArea("unrelated")
	require.NoError(t, err)

	_, err = u.ResolveStorageInView([]ufsdefs.ID{unrelated}, file)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.CannotResolveStorage, errors.StatusOf(err))
}

func TestResolveStorageInViewBASEShadowsLaterEntries(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	area, err := u.AddArea("a")
	require.NoError(t, err)
	require.NoError(t, u.AddMapping(area, file))

	resolved, err := u.ResolveStorageInView([]ufsdefs.ID{ufsdefs.BASE, area}, file)
	require.NoError(t, err)
	assert.Equal(t, ufsdefs.BASE, resolved)
}

func TestResolveStorageInViewRejectsDuplicates(t *testing.T) {
	u := newTestUFS(t)
	area, err := u.AddArea("a")
	require.NoError(t, err)

	_, err = u.ResolveStorageInView([]ufsdefs.ID{area, area}, 1)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.ViewContainsDuplicates, errors.StatusOf(err))
}

func TestResolveStorageInViewRejectsUnknownArea(t *testing.T) {
	u := newTestUFS(t)
	_, err := u.ResolveStorageInView([]ufsdefs.ID{999}, 1)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.InvalidAreaInView, errors.StatusOf(err))
}

func TestIterateDirInViewUnionsProjectedFiles(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	shadowed, err := u.AddFile(dir, "shadowed")
	require.NoError(t, err)
	visible, err := u.AddFile(dir, "visible")
	require.NoError(t, err)
	hidden, err := u.AddFile(dir, "hidden")
	require.NoError(t, err)
	_ = hidden

	area, err := u.AddArea("a")
	require.NoError(t, err)
	require.NoError(t, u.AddMapping(area, shadowed))
	require.NoError(t, u.AddMapping(area, visible))

	var seen []ufsdefs.ID
	err = u.IterateDirInView([]ufsdefs.ID{area}, dir, func(storage ufsdefs.ID, cursor, total int, userData interface{}) error {
		seen = append(seen, storage)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ufsdefs.ID{shadowed, visible}, seen)
}

func TestIterateDirInViewHaltsOnIteratorError(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	_, err = u.AddFile(dir, "f")
	require.NoError(t, err)

	sentinel := errors.New(ufsdefs.UnknownError, "stop")
	calls := 0
	err = u.IterateDirInView([]ufsdefs.ID{ufsdefs.BASE}, dir, func(storage ufsdefs.ID, cursor, total int, userData interface{}) error {
		calls++
		return sentinel
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCollapseFoldsIntoLastArea(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	a1, err := u.AddArea("a1")
	require.NoError(t, err)
	a2, err := u.AddArea("a2")
	require.NoError(t, err)
	require.NoError(t, u.AddMapping(a1, file))

	require.NoError(t, u.Collapse(context.Background(), []ufsdefs.ID{a1, a2}))

	require.NoError(t, u.ProbeMapping(a2, file))
	err = u.ProbeMapping(a1, file)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}

func TestCollapseIntoBASEDropsMapping(t *testing.T) {
	u := newTestUFS(t)
	dir, err := u.AddDirectory("d")
	require.NoError(t, err)
	file, err := u.AddFile(dir, "f")
	require.NoError(t, err)
	a1, err := u.AddArea("a1")
	require.NoError(t, err)
	require.NoError(t, u.AddMapping(a1, file))

	require.NoError(t, u.Collapse(context.Background(), []ufsdefs.ID{a1, ufsdefs.BASE}))

	err = u.ProbeMapping(a1, file)
	require.Error(t, err)
	assert.Equal(t, ufsdefs.DoesNotExist, errors.StatusOf(err))
}
