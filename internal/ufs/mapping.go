package ufs

import (
	"github.com/ufs/ufs/internal/tree"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// mappingTree returns the Tree of storages area projects, keyed directly by
// storage id (spec.md §4.4's "subtree keyed by storage id"). Callers that
// mutate it must persist the possibly-changed root via
// u.mapRoots.Set(area, mt.Root()).
func (u *UFS) mappingTree(area ufsdefs.ID) (*tree.Tree, error) {
	root, _, err := u.mapRoots.Get(area)
	if err != nil {
		return nil, err
	}
	mt := tree.New(u.nodes, storageCompare)
	mt.SetRoot(root)
	return mt, nil
}

// freeTreeNodes releases every Node-table slot in the subtree rooted at id,
// used when an area is removed and its whole mapping set goes with it.
func (u *UFS) freeTreeNodes(id ufsdefs.ID) error {
	if id == 0 {
		return nil
	}
	n, err := u.nodes.Node(id)
	if err != nil {
		return err
	}
	left, right := n.Left(), n.Right()
	if err := u.freeTreeNodes(left); err != nil {
		return err
	}
	if err := u.freeTreeNodes(right); err != nil {
		return err
	}
	return u.nodes.Free(id)
}

// AddMapping records that area projects storage (spec.md §4.5). Both ids
// must be live; area == BASE is rejected since BASE can never be the key of
// an explicit mapping (spec.md §3's invariant).
func (u *UFS) AddMapping(area, storage ufsdefs.ID) (err error) {
	defer u.finish("AddMapping", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if area == ufsdefs.BASE {
		return errors.New(ufsdefs.BadCall, "ufs: BASE cannot be the key of an explicit mapping")
	}
	if _, getErr := u.areas.Get(area); getErr != nil {
		return getErr
	}
	if _, getErr := u.files.Get(storage); getErr != nil {
		return getErr
	}

	mt, err := u.mappingTree(area)
	if err != nil {
		return err
	}
	if err := mt.Insert(storage); err != nil {
		return err
	}
	if err := u.mapRoots.Set(area, mt.Root()); err != nil {
		return err
	}
	if err := u.persistMeta(); err != nil {
		return err
	}
	u.recordOccupancy()
	return nil
}

// ProbeMapping reports whether area projects storage. A nil error means
// present (NO_ERROR); DOES_NOT_EXIST means absent (spec.md §4.5).
func (u *UFS) ProbeMapping(area, storage ufsdefs.ID) (err error) {
	defer u.finish("ProbeMapping", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	present, err := u.hasMapping(area, storage)
	if err != nil {
		return err
	}
	if !present {
		return errors.Newf(ufsdefs.DoesNotExist, "ufs: no mapping (%d, %d)", area, storage)
	}
	return nil
}

func (u *UFS) hasMapping(area, storage ufsdefs.ID) (bool, error) {
	if area == ufsdefs.BASE {
		return false, nil
	}
	mt, err := u.mappingTree(area)
	if err != nil {
		return false, err
	}
	return mt.Contains(storage)
}

func (u *UFS) addMappingRaw(area, storage ufsdefs.ID) error {
	mt, err := u.mappingTree(area)
	if err != nil {
		return err
	}
	if err := mt.Insert(storage); err != nil {
		return err
	}
	return u.mapRoots.Set(area, mt.Root())
}

func (u *UFS) removeMapping(area, storage ufsdefs.ID) error {
	mt, err := u.mappingTree(area)
	if err != nil {
		return err
	}
	if err := mt.Remove(storage); err != nil {
		return err
	}
	return u.mapRoots.Set(area, mt.Root())
}

// removeFromAllMappings removes storage from every area's mapping set,
// used when storage (a file or directory) is itself being removed.
func (u *UFS) removeFromAllMappings(storage ufsdefs.ID) error {
	var areaIDs []ufsdefs.ID
	if err := u.areaIndex.InOrder(func(id ufsdefs.ID) error {
		areaIDs = append(areaIDs, id)
		return nil
	}); err != nil {
		return err
	}

	for _, area := range areaIDs {
		present, err := u.hasMapping(area, storage)
		if err != nil {
			return err
		}
		if present {
			if err := u.removeMapping(area, storage); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListMappings enumerates the storage ids area projects, in id order
// (SPEC_FULL.md's supplemented read-only enumeration).
func (u *UFS) ListMappings(area ufsdefs.ID) (storages []ufsdefs.ID, err error) {
	defer u.finish("ListMappings", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if area == ufsdefs.BASE {
		return nil, nil
	}
	if _, getErr := u.areas.Get(area); getErr != nil {
		return nil, getErr
	}

	mt, err := u.mappingTree(area)
	if err != nil {
		return nil, err
	}
	err = mt.InOrder(func(id ufsdefs.ID) error {
		storages = append(storages, id)
		return nil
	})
	return storages, err
}
