package ufs

import (
	"bytes"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// AddFile creates a file named name inside directory (spec.md §4.5).
func (u *UFS) AddFile(directory ufsdefs.ID, name string) (id ufsdefs.ID, err error) {
	defer u.finish("AddFile", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if name == "" {
		return 0, errors.New(ufsdefs.BadCall, "ufs: file name must not be empty")
	}
	if !u.dirSet[directory] {
		return 0, errors.Newf(ufsdefs.DoesNotExist, "ufs: directory %d does not exist", directory)
	}

	id, err = u.files.Allocate()
	if err != nil {
		return 0, err
	}
	off, err := u.strs.Intern([]byte(name))
	if err != nil {
		u.files.Free(id)
		return 0, err
	}
	entry, err := u.files.Entry(id)
	if err != nil {
		u.files.Free(id)
		return 0, err
	}
	entry.SetNameOffset(off)

	ft, err := u.fileTree(directory)
	if err != nil {
		u.files.Free(id)
		return 0, err
	}
	if err := ft.Insert(id); err != nil {
		u.files.Free(id)
		return 0, err
	}
	if err := u.fileRoots.Set(directory, ft.Root()); err != nil {
		return 0, err
	}

	u.fileParent[id] = directory
	u.dirFileCount[directory]++
	if err := u.persistMeta(); err != nil {
		return 0, err
	}
	u.recordOccupancy()
	return id, nil
}

// GetFile resolves name within directory to its file id.
func (u *UFS) GetFile(directory ufsdefs.ID, name string) (id ufsdefs.ID, err error) {
	defer u.finish("GetFile", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.dirSet[directory] {
		return 0, errors.Newf(ufsdefs.DoesNotExist, "ufs: directory %d does not exist", directory)
	}

	ft, err := u.fileTree(directory)
	if err != nil {
		return 0, err
	}
	needle := []byte(name)
	found, ok, err := ft.FindBy(func(cand ufsdefs.ID) int {
		candName, _ := u.fileName(cand)
		return bytes.Compare(needle, candName)
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Newf(ufsdefs.DoesNotExist, "ufs: no file named %q in directory %d", name, directory)
	}
	return found, nil
}

// RemoveFile deletes file id: removes it from its directory's name index,
// removes it from every mapping it participates in, and frees its slot
// (spec.md §4.5).
func (u *UFS) RemoveFile(id ufsdefs.ID) (err error) {
	defer u.finish("RemoveFile", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	directory, ok := u.fileParent[id]
	if !ok {
		return errors.Newf(ufsdefs.DoesNotExist, "ufs: file %d does not exist", id)
	}

	if err := u.removeFromAllMappings(id); err != nil {
		return err
	}

	ft, err := u.fileTree(directory)
	if err != nil {
		return err
	}
	if err := ft.Remove(id); err != nil {
		return err
	}
	if err := u.fileRoots.Set(directory, ft.Root()); err != nil {
		return err
	}
	if err := u.files.Free(id); err != nil {
		return err
	}

	delete(u.fileParent, id)
	u.dirFileCount[directory]--
	if err := u.persistMeta(); err != nil {
		return err
	}
	u.recordOccupancy()
	return nil
}
