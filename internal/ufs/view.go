package ufs

import (
	"context"
	"time"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// validateView enforces spec.md §3's view invariants: no duplicates, no
// entry that is neither BASE nor a live area, within VIEW_MAX_SIZE.
func (u *UFS) validateView(view []ufsdefs.ID) error {
	if len(view) > ufsdefs.VIEWMaxSize {
		return errors.Newf(ufsdefs.BadCall, "ufs: view of %d entries exceeds VIEW_MAX_SIZE", len(view))
	}

	seen := make(map[ufsdefs.ID]bool, len(view))
	for _, a := range view {
		if seen[a] {
			return errors.Newf(ufsdefs.ViewContainsDuplicates, "ufs: view contains duplicate entry %d", a)
		}
		seen[a] = true
	}

	for _, a := range view {
		if a == ufsdefs.BASE {
			continue
		}
		if _, err := u.areas.Get(a); err != nil {
			return errors.Newf(ufsdefs.InvalidAreaInView, "ufs: area %d in view is not live", a)
		}
	}
	return nil
}

// resolveLocked is ResolveStorageInView's body, callable while u.mu is
// already held (IterateDirInView calls it once per candidate file).
func (u *UFS) resolveLocked(view []ufsdefs.ID, storage ufsdefs.ID) (ufsdefs.ID, error) {
	if err := u.validateView(view); err != nil {
		return 0, err
	}
	if storage <= 0 {
		return 0, errors.New(ufsdefs.BadCall, "ufs: storage must be a positive id")
	}

	for _, a := range view {
		if a == ufsdefs.BASE {
			return ufsdefs.BASE, nil
		}
		present, err := u.hasMapping(a, storage)
		if err != nil {
			return 0, err
		}
		if present {
			return a, nil
		}
	}
	return 0, errors.Newf(ufsdefs.CannotResolveStorage, "ufs: storage %d not resolvable in view", storage)
}

// ResolveStorageInView walks view in order, returning the first area that
// explicitly maps storage, BASE the instant it is encountered (it shadows
// everything behind it), or CANNOT_RESOLVE_STORAGE if no area in view maps
// storage and BASE never appears (spec.md §4.5).
func (u *UFS) ResolveStorageInView(view []ufsdefs.ID, storage ufsdefs.ID) (area ufsdefs.ID, err error) {
	defer u.finish("ResolveStorageInView", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	area, err = u.resolveLocked(view, storage)
	if u.metrics != nil {
		u.metrics.ObserveViewLatency("ResolveStorageInView", time.Since(start))
	}
	return area, err
}

// DirIterator is invoked once per distinct file IterateDirInView finds
// projected into view. A non-nil return halts iteration and that error
// propagates to IterateDirInView's caller (spec.md §4.5).
type DirIterator func(storage ufsdefs.ID, cursor, total int, userData interface{}) error

// IterateDirInView computes the set union of files attached to directory
// whose storage is projected, explicitly or implicitly, by some area in
// view, and invokes iterator once per distinct entry (spec.md §4.5). File
// names are already unique within a directory (AddFile's ALREADY_EXISTS
// rule), so the required name-based dedup falls out of that invariant.
func (u *UFS) IterateDirInView(view []ufsdefs.ID, directory ufsdefs.ID, iterator DirIterator, userData interface{}) (err error) {
	defer u.finish("IterateDirInView", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	defer func() {
		if u.metrics != nil {
			u.metrics.ObserveViewLatency("IterateDirInView", time.Since(start))
		}
	}()

	if err := u.validateView(view); err != nil {
		return err
	}
	if !u.dirSet[directory] {
		return errors.Newf(ufsdefs.DoesNotExist, "ufs: directory %d does not exist", directory)
	}

	ft, err := u.fileTree(directory)
	if err != nil {
		return err
	}

	var matched []ufsdefs.ID
	if err := ft.InOrder(func(fileID ufsdefs.ID) error {
		_, rerr := u.resolveLocked(view, fileID)
		switch {
		case rerr == nil:
			matched = append(matched, fileID)
			return nil
		case errors.StatusOf(rerr) == ufsdefs.CannotResolveStorage:
			return nil
		default:
			return rerr
		}
	}); err != nil {
		return err
	}

	total := len(matched)
	for cursor, id := range matched {
		if ierr := iterator(id, cursor, total, userData); ierr != nil {
			return ierr
		}
	}
	return nil
}

// Collapse folds every mapping held by areas preceding the view's last
// entry into that last entry, removing the originals (spec.md §4.5). If
// the last entry is BASE, folded mappings are simply dropped — BASE has no
// explicit mapping set of its own, the implicit-to-BASE rule already covers
// it — and the externalfs collaborator is asked, best-effort, to delete the
// area-local copy. A Sync always concludes the operation.
func (u *UFS) Collapse(ctx context.Context, view []ufsdefs.ID) (err error) {
	defer u.finish("Collapse", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.validateView(view); err != nil {
		return err
	}
	if len(view) == 0 {
		return errors.New(ufsdefs.BadCall, "ufs: Collapse requires a non-empty view")
	}

	last := view[len(view)-1]
	for k := 0; k < len(view)-1; k++ {
		area := view[k]
		if area == ufsdefs.BASE {
			continue
		}

		mt, err := u.mappingTree(area)
		if err != nil {
			return err
		}
		var storages []ufsdefs.ID
		if err := mt.InOrder(func(id ufsdefs.ID) error {
			storages = append(storages, id)
			return nil
		}); err != nil {
			return err
		}

		for _, s := range storages {
			if last == ufsdefs.BASE {
				if err := u.removeMapping(area, s); err != nil {
					return err
				}
				u.foldIntoBase(ctx, s)
				continue
			}

			present, err := u.hasMapping(last, s)
			if err != nil {
				return err
			}
			if !present {
				if err := u.addMappingRaw(last, s); err != nil {
					return err
				}
			}
			if err := u.removeMapping(area, s); err != nil {
				return err
			}
		}
	}

	if err := u.persistMeta(); err != nil {
		return err
	}
	u.recordOccupancy()
	return u.syncLocked()
}

// foldIntoBase asks the externalfs collaborator to delete storage's
// area-local copy once its mapping has folded into BASE. A tripped circuit
// breaker degrades this to "log and keep going" per spec.md §5's "no
// operation may suspend voluntarily" — the index-side fold has already
// committed by the time this runs.
func (u *UFS) foldIntoBase(ctx context.Context, storage ufsdefs.ID) {
	if u.backend == nil {
		return
	}
	name, err := u.fileName(storage)
	if err != nil {
		u.log.Warn("collapse: resolve name for storage %d: %v", storage, err)
		return
	}

	key := string(name)
	err = u.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return u.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			return u.backend.Delete(ctx, key)
		})
	})
	if err != nil {
		u.log.Warn("collapse: external delete of %s did not complete, continuing: %v", key, err)
	}
}
