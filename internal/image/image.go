// Package image implements the Image layer of spec.md §4.1: a file-backed,
// memory-mapped, self-describing binary container. It knows nothing about
// headers, tables or the UFS union-mount algebra — it offers "bytes backed
// by a file" and nothing more, exactly as spec.md §2's control-flow note
// describes.
//
// Grounded on other_examples' slotcache Open/mmapAndCreateCache sequence:
// temp-file-then-rename creation, O_RDWR reopen of an existing file, and a
// raw syscall-level mmap rather than a third-party mmap wrapper (the corpus
// has none; golang.org/x/sys/unix is the idiomatic substitute for hand
// rolled `syscall` constants across linux/darwin).
package image

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/pkg/logging"
	"github.com/ufs/ufs/ufsdefs"
)

// Image is a memory-mapped region backed by a file. The first 8 bytes of
// the mapped region hold the image's own length, per spec.md §3's "Image
// prelude".
type Image struct {
	data   []byte
	f      *os.File
	path   string
	log    *logging.Logger
	closed bool
}

// Open opens an existing image file at path, maps it read-write shared, and
// overwrites the length prelude with the observed on-disk size so the
// in-memory length word reflects the true mapped extent (spec.md §4.1).
func Open(path string) (*Image, error) {
	return OpenWithLogger(path, logging.Discard())
}

// OpenWithLogger is Open with an explicit diagnostic logger.
func OpenWithLogger(path string, log *logging.Logger) (*Image, error) {
	if path == "" {
		return nil, errors.New(ufsdefs.BadCall, "image: empty path")
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ufsdefs.DoesNotExist, "image", "Open", err)
		}
		return nil, errors.Wrap(ufsdefs.UnknownError, "image", "Open", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(ufsdefs.UnknownError, "image", "Open", err)
	}

	size := st.Size()
	if size < ufsdefs.LengthPreludeSize {
		f.Close()
		return nil, errors.Newf(ufsdefs.ImageTooSmall, "image: %d bytes is smaller than the %d-byte length prelude", size, ufsdefs.LengthPreludeSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(ufsdefs.UnknownError, "image", "Open", err)
	}

	binary.LittleEndian.PutUint64(data, uint64(size))

	img := &Image{data: data, f: f, path: path, log: log.With("image")}
	img.log.Debug("opened %s (%d bytes)", path, size)
	return img, nil
}

// Create creates a new image file at path with exactly size bytes, maps it
// read-write shared, and writes the length word at offset 0 (spec.md §4.1).
func Create(path string, size int64) (*Image, error) {
	return CreateWithLogger(path, size, logging.Discard())
}

// CreateWithLogger is Create with an explicit diagnostic logger.
func CreateWithLogger(path string, size int64, log *logging.Logger) (*Image, error) {
	if path == "" || size < ufsdefs.LengthPreludeSize {
		return nil, errors.Newf(ufsdefs.BadCall, "image: invalid Create(path=%q, size=%d)", path, size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.Wrap(ufsdefs.CantCreateFile, "image", "Create", err)
		}
		return nil, errors.Wrap(ufsdefs.CantCreateFile, "image", "Create", err)
	}

	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrap(ufsdefs.CantCreateFile, "image", "Create", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrap(ufsdefs.UnknownError, "image", "Create", err)
	}

	binary.LittleEndian.PutUint64(data, uint64(size))

	img := &Image{data: data, f: f, path: path, log: log.With("image")}
	img.log.Debug("created %s (%d bytes)", path, size)
	return img, nil
}

// Bytes returns the raw mapped region. The header/table layers index into
// it directly; the image layer itself interprets none of it beyond the
// length prelude.
func (img *Image) Bytes() []byte { return img.data }

// Length reads the length word at offset 0.
func (img *Image) Length() uint64 { return binary.LittleEndian.Uint64(img.data) }

// Path returns the backing file path.
func (img *Image) Path() string { return img.path }

// Sync issues a synchronous flush of the entire mapped range. After Sync
// returns nil, all writes issued before the call are durable on the backing
// device (spec.md §4.1's durability contract).
func (img *Image) Sync() error {
	if img == nil || img.closed {
		return nil
	}
	if err := unix.Msync(img.data, unix.MS_SYNC); err != nil {
		img.log.Warn("sync failed: %v", err)
		return errors.Wrap(ufsdefs.ImageCouldNotSync, "image", "Sync", err)
	}
	return nil
}

// Free unmaps the whole mapped region (the extent recorded in the length
// word at Open/Create time) and closes the backing file descriptor. It is
// idempotent — including when called on a nil Image.
func (img *Image) Free() error {
	if img == nil || img.closed {
		return nil
	}
	img.closed = true

	var firstErr error
	if err := unix.Munmap(img.data); err != nil {
		firstErr = fmt.Errorf("munmap: %w", err)
	}
	if err := img.f.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close: %w", err)
	}
	img.data = nil

	if firstErr != nil {
		img.log.Warn("free: %v", firstErr)
		return errors.Wrap(ufsdefs.UnknownError, "image", "Free", firstErr)
	}
	return nil
}
