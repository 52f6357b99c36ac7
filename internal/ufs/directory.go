package ufs

import (
	"bytes"

	"github.com/ufs/ufs/internal/tree"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// AddDirectory creates a new directory named name (spec.md §4.5).
func (u *UFS) AddDirectory(name string) (id ufsdefs.ID, err error) {
	defer u.finish("AddDirectory", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if name == "" {
		return 0, errors.New(ufsdefs.BadCall, "ufs: directory name must not be empty")
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

	if err := u.dirIndex.Insert(id); err != nil {
		u.files.Free(id)
		return 0, err
	}

	u.dirSet[id] = true
	if err := u.persistMeta(); err != nil {
		return 0, err
	}
	u.recordOccupancy()
	return id, nil
}

// GetDirectory resolves name to its directory id.
func (u *UFS) GetDirectory(name string) (id ufsdefs.ID, err error) {
	defer u.finish("GetDirectory", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.findDirectoryByName(name)
}

func (u *UFS) findDirectoryByName(name string) (ufsdefs.ID, error) {
	needle := []byte(name)
	id, ok, err := u.dirIndex.FindBy(func(cand ufsdefs.ID) int {
		candName, _ := u.fileName(cand)
		return bytes.Compare(needle, candName)
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Newf(ufsdefs.DoesNotExist, "ufs: no directory named %q", name)
	}
	return id, nil
}

// RemoveDirectory deletes the directory id, failing DIRECTORY_IS_NOT_EMPTY
// if any file is still attached to it (spec.md §8's empty-directory rule).
// A directory is also valid storage (spec.md's glossary), so removal
// cascades into every mapping referencing it, the same as RemoveFile.
func (u *UFS) RemoveDirectory(id ufsdefs.ID) (err error) {
	defer u.finish("RemoveDirectory", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.dirSet[id] {
		return errors.Newf(ufsdefs.DoesNotExist, "ufs: directory %d does not exist", id)
	}
	if u.dirFileCount[id] > 0 {
		return errors.Newf(ufsdefs.DirectoryIsNotEmpty, "ufs: directory %d still has attached files", id)
	}

	if err := u.removeFromAllMappings(id); err != nil {
		return err
	}

	if root, found, ferr := u.fileRoots.Get(id); ferr != nil {
		return ferr
	} else if found && root != 0 {
		return errors.Newf(ufsdefs.DirectoryIsNotEmpty, "ufs: directory %d still has an indexed file tree", id)
	} else if found {
		if err := u.fileRoots.Delete(id); err != nil {
			return err
		}
	}

	if err := u.dirIndex.Remove(id); err != nil {
		return err
	}
	if err := u.files.Free(id); err != nil {
		return err
	}

	delete(u.dirSet, id)
	delete(u.dirFileCount, id)
	if err := u.persistMeta(); err != nil {
		return err
	}
	u.recordOccupancy()
	return nil
}

// ListFiles enumerates the files attached to directory, in name order
// (SPEC_FULL.md's supplemented read-only enumeration).
func (u *UFS) ListFiles(directory ufsdefs.ID) (names []string, err error) {
	defer u.finish("ListFiles", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.dirSet[directory] {
		return nil, errors.Newf(ufsdefs.DoesNotExist, "ufs: directory %d does not exist", directory)
	}

	ft, err := u.fileTree(directory)
	if err != nil {
		return nil, err
	}
	err = ft.InOrder(func(fileID ufsdefs.ID) error {
		n, err := u.fileName(fileID)
		if err != nil {
			return err
		}
		names = append(names, string(n))
		return nil
	})
	return names, err
}

// fileTree returns the Tree indexing directory's files, ordered by name.
// Callers that insert or remove a key must persist the possibly-changed
// root back via u.fileRoots.Set(directory, ft.Root()).
func (u *UFS) fileTree(directory ufsdefs.ID) (*tree.Tree, error) {
	root, _, err := u.fileRoots.Get(directory)
	if err != nil {
		return nil, err
	}
	ft := tree.New(u.nodes, u.filesNameCompare)
	ft.SetRoot(root)
	return ft, nil
}
