package ufs

import (
	"bytes"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// AddArea creates a new area named name. Uniqueness is global; BASE's name
// is reserved and AddArea("BASE") is rejected the same way any other
// already-taken name would be, once an implementation seeds it (spec.md
// §4.5 treats BASE as a pseudo-entry outside the Area table entirely, so
// there is nothing to collide with here beyond the reserved literal name).
func (u *UFS) AddArea(name string) (id ufsdefs.ID, err error) {
	defer u.finish("AddArea", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if name == "" {
		return 0, errors.New(ufsdefs.BadCall, "ufs: area name must not be empty")
	}
	if name == "BASE" {
		return 0, errors.New(ufsdefs.AlreadyExists, "ufs: BASE is a reserved area name")
	}

	id, err = u.areas.Allocate()
	if err != nil {
		return 0, err
	}
	off, err := u.strs.Intern([]byte(name))
	if err != nil {
		u.areas.Free(id)
		return 0, err
	}
	entry, err := u.areas.Entry(id)
	if err != nil {
		u.areas.Free(id)
		return 0, err
	}
	entry.SetNameOffset(off)

	if err := u.areaIndex.Insert(id); err != nil {
		u.areas.Free(id)
		return 0, err
	}

	if err := u.persistMeta(); err != nil {
		return 0, err
	}
	u.recordOccupancy()
	return id, nil
}

// GetArea resolves name to its area id.
func (u *UFS) GetArea(name string) (id ufsdefs.ID, err error) {
	defer u.finish("GetArea", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if name == "BASE" {
		return ufsdefs.BASE, nil
	}

	needle := []byte(name)
	found, ok, err := u.areaIndex.FindBy(func(cand ufsdefs.ID) int {
		candName, _ := u.areaName(cand)
		return bytes.Compare(needle, candName)
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Newf(ufsdefs.DoesNotExist, "ufs: no area named %q", name)
	}
	return found, nil
}

// RemoveArea removes every mapping whose area is id, removes id from the
// area index, and frees its slot. BASE may not be removed (spec.md §4.5).
func (u *UFS) RemoveArea(id ufsdefs.ID) (err error) {
	defer u.finish("RemoveArea", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if id == ufsdefs.BASE {
		return errors.New(ufsdefs.BadCall, "ufs: BASE cannot be removed")
	}
	if _, getErr := u.areas.Get(id); getErr != nil {
		return getErr
	}

	mt, err := u.mappingTree(id)
	if err != nil {
		return err
	}
	if err := u.freeTreeNodes(mt.Root()); err != nil {
		return err
	}
	if root, found, ferr := u.mapRoots.Get(id); ferr != nil {
		return ferr
	} else if found && root != 0 {
		if err := u.mapRoots.Delete(id); err != nil {
			return err
		}
	}

	if err := u.areaIndex.Remove(id); err != nil {
		return err
	}
	if err := u.areas.Free(id); err != nil {
		return err
	}

	if err := u.persistMeta(); err != nil {
		return err
	}
	u.recordOccupancy()
	return nil
}

// ListAreas enumerates every area name, in name order (SPEC_FULL.md's
// supplemented read-only enumeration).
func (u *UFS) ListAreas() (names []string, err error) {
	defer u.finish("ListAreas", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	err = u.areaIndex.InOrder(func(id ufsdefs.ID) error {
		n, err := u.areaName(id)
		if err != nil {
			return err
		}
		names = append(names, string(n))
		return nil
	})
	return names, err
}
