package ufs

import (
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/ufs/ufs/internal/circuit"
	"github.com/ufs/ufs/internal/config"
	"github.com/ufs/ufs/internal/externalfs"
	"github.com/ufs/ufs/internal/health"
	"github.com/ufs/ufs/internal/image"
	"github.com/ufs/ufs/internal/metrics"
	"github.com/ufs/ufs/internal/table"
	"github.com/ufs/ufs/internal/tree"
	"github.com/ufs/ufs/internal/ufsheader"
	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/pkg/logging"
	"github.com/ufs/ufs/pkg/retry"
	"github.com/ufs/ufs/ufsdefs"
)

// metaNodeID is the Node-table slot this package reserves for its own
// bookkeeping — the four tree roots that spec.md's header has no field for
// (the directory name index, the area name index, and the two owner-root
// indices defined in ownerindex.go). It is always the first id ever
// allocated from the Node table on a fresh image, so it is always 1.
const metaNodeID ufsdefs.ID = 1

// UFS is a handle to an open union-mount index. All mutating operations
// hold mu for their duration, per spec.md §5's single-writer model.
type UFS struct {
	mu sync.Mutex

	img   *image.Image
	hdr   *ufsheader.Header
	files *table.Table
	areas *table.Table
	nodes *table.Table
	strs  *table.Strings

	dirIndex  *tree.Tree
	areaIndex *tree.Tree
	fileRoots *ownerRootIndex
	mapRoots  *ownerRootIndex

	// dirSet, fileParent and dirFileCount are derived bookkeeping, rebuilt
	// from the persisted trees on every Init call (see rebuildBookkeeping).
	// Files and Directories share one table (spec.md §9); nothing on disk
	// distinguishes them, so membership in dirIndex is what a Directory is.
	dirSet       map[ufsdefs.ID]bool
	fileParent   map[ufsdefs.ID]ufsdefs.ID
	dirFileCount map[ufsdefs.ID]int

	backend externalfs.Backend
	breaker *circuit.CircuitBreaker
	retryer *retry.Retryer
	metrics *metrics.Collector
	health  *health.Checker

	log  *logging.Logger
	path string
}

// Init opens the backing image at cfg.Image.Path, creating and sizing it
// per cfg's table capacities if it does not already exist, prepares every
// index root, and wires the domain-stack collaborators (externalfs,
// circuit breaker, retry, metrics, health) per spec.md §4.5's "Init() ->
// ufs".
func Init(cfg *config.Configuration) (*UFS, error) {
	return InitWithLogger(cfg, logging.Discard())
}

// InitWithLogger is Init with an explicit diagnostic logger.
func InitWithLogger(cfg *config.Configuration, log *logging.Logger) (*UFS, error) {
	if cfg == nil {
		return nil, errors.New(ufsdefs.BadCall, "ufs: Init requires a configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(ufsdefs.BadCall, "ufs", "Init", err)
	}

	path := cfg.Image.Path
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	var img *image.Image
	var err error
	switch {
	case fresh:
		req := ufsheader.SizeRequest{
			NumFiles:    cfg.Image.NumFiles,
			NumAreas:    cfg.Image.NumAreas,
			NumNodes:    cfg.Image.NumNodes,
			NumStrBytes: cfg.Image.NumStringBytes,
		}
		img, err = ufsheader.InitWithLogger(path, req, log)
	case statErr != nil:
		return nil, errors.Wrap(ufsdefs.UnknownError, "ufs", "Init", statErr)
	default:
		img, err = image.OpenWithLogger(path, log)
		if err == nil {
			_, err = ufsheader.Validate(img)
		}
	}
	if err != nil {
		return nil, err
	}

	u, err := newUFS(img, cfg, log, fresh)
	if err != nil {
		img.Free()
		return nil, err
	}
	return u, nil
}

func newUFS(img *image.Image, cfg *config.Configuration, log *logging.Logger, fresh bool) (*UFS, error) {
	hdr := ufsheader.Get(img)

	tableWindow := func(t ufsdefs.Table, slotSize uint64) []byte {
		off := hdr.Offset(t)
		size := hdr.Size(t)
		return img.Bytes()[off : off+size*slotSize]
	}

	files := table.New(tableWindow(ufsdefs.TableFiles, ufsheader.FileSlotSize), ufsheader.FileSlotSize, hdr.Size(ufsdefs.TableFiles))
	areas := table.New(tableWindow(ufsdefs.TableAreas, ufsheader.AreaSlotSize), ufsheader.AreaSlotSize, hdr.Size(ufsdefs.TableAreas))
	nodes := table.New(tableWindow(ufsdefs.TableNodes, ufsheader.NodeSlotSize), ufsheader.NodeSlotSize, hdr.Size(ufsdefs.TableNodes))
	strs := table.NewStrings(tableWindow(ufsdefs.TableStrings, 1))

	if fresh {
		strs.Init()
		id, err := nodes.Allocate()
		if err != nil {
			return nil, err
		}
		if id != metaNodeID {
			return nil, errors.Newf(ufsdefs.ImageIsCorrupted, "ufs: reserved meta node allocated as %d, expected %d", id, metaNodeID)
		}
	}

	meta, err := nodes.Node(metaNodeID)
	if err != nil {
		return nil, errors.Wrap(ufsdefs.ImageIsCorrupted, "ufs", "Init", err)
	}

	u := &UFS{
		img:   img,
		hdr:   hdr,
		files: files,
		areas: areas,
		nodes: nodes,
		strs:  strs,
		log:   log.With("ufs"),
		path:  img.Path(),
	}

	u.dirIndex = tree.New(nodes, u.filesNameCompare)
	u.dirIndex.SetRoot(meta.Left())
	u.areaIndex = tree.New(nodes, u.areasNameCompare)
	u.areaIndex.SetRoot(meta.Right())
	u.fileRoots = newOwnerRootIndex(nodes, meta.Key(0))
	u.mapRoots = newOwnerRootIndex(nodes, meta.Key(1))

	if err := u.rebuildBookkeeping(); err != nil {
		return nil, err
	}

	if cfg.ExternalFS.Bucket != "" {
		backend, err := externalfs.NewS3Backend(context.Background(), externalfs.Config{
			Bucket:                      cfg.ExternalFS.Bucket,
			Region:                      cfg.ExternalFS.Region,
			Endpoint:                    cfg.ExternalFS.Endpoint,
			ForcePathStyle:              cfg.ExternalFS.ForcePathStyle,
			MaxRetries:                  cfg.ExternalFS.MaxRetries,
			AccessKeyID:                 cfg.ExternalFS.AccessKeyID,
			SecretAccessKey:             cfg.ExternalFS.SecretAccessKey,
			SessionToken:                cfg.ExternalFS.SessionToken,
			EnableCargoShipOptimization: cfg.ExternalFS.EnableCargoShipOptimization,
			MultipartThreshold:          cfg.ExternalFS.MultipartThreshold,
			MultipartChunkSize:          cfg.ExternalFS.MultipartChunkSize,
			MultipartConcurrency:        cfg.ExternalFS.MultipartConcurrency,
		}, log)
		if err != nil {
			return nil, err
		}
		u.backend = backend
	}

	u.breaker = circuit.NewCircuitBreaker("externalfs", circuit.Config{
		MaxRequests: cfg.Circuit.MaxRequests,
		Interval:    cfg.Circuit.Interval,
		Timeout:     cfg.Circuit.Timeout,
	}, log)
	u.retryer = retry.New(retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   cfg.Retry.Multiplier,
		Jitter:       cfg.Retry.Jitter,
	})

	mc, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Namespace: cfg.Metrics.Namespace,
		Subsystem: cfg.Metrics.Subsystem,
	})
	if err != nil {
		return nil, errors.Wrap(ufsdefs.UnknownError, "ufs", "Init", err)
	}
	u.metrics = mc

	u.health = health.NewChecker()
	if cfg.Health.HighWaterMark > 0 {
		u.health.HighWaterMark = cfg.Health.HighWaterMark
	}

	u.recordOccupancy()
	return u, nil
}

// rebuildBookkeeping recomputes dirSet, fileParent and dirFileCount from
// the persisted trees. Called once at Init (a no-op walk over empty trees
// on a fresh image); on a reopened image this replays the forest back into
// the in-memory caches the engine needs to answer File-vs-Directory and
// empty-directory questions in O(1).
func (u *UFS) rebuildBookkeeping() error {
	u.dirSet = map[ufsdefs.ID]bool{}
	u.fileParent = map[ufsdefs.ID]ufsdefs.ID{}
	u.dirFileCount = map[ufsdefs.ID]int{}

	return u.dirIndex.InOrder(func(dirID ufsdefs.ID) error {
		u.dirSet[dirID] = true
		root, found, err := u.fileRoots.Get(dirID)
		if err != nil || !found {
			return err
		}
		ft := tree.New(u.nodes, u.filesNameCompare)
		ft.SetRoot(root)
		count := 0
		if err := ft.InOrder(func(fileID ufsdefs.ID) error {
			u.fileParent[fileID] = dirID
			count++
			return nil
		}); err != nil {
			return err
		}
		u.dirFileCount[dirID] = count
		return nil
	})
}

func (u *UFS) persistMeta() error {
	n, err := u.nodes.Node(metaNodeID)
	if err != nil {
		return err
	}
	n.SetLeft(u.dirIndex.Root())
	n.SetRight(u.areaIndex.Root())
	n.SetKey(0, u.fileRoots.Root())
	n.SetKey(1, u.mapRoots.Root())
	return nil
}

func (u *UFS) name(t *table.Table, id ufsdefs.ID) ([]byte, error) {
	e, err := t.Entry(id)
	if err != nil {
		return nil, err
	}
	return u.strs.Read(e.NameOffset())
}

func (u *UFS) fileName(id ufsdefs.ID) ([]byte, error)   { return u.name(u.files, id) }
func (u *UFS) areaName(id ufsdefs.ID) ([]byte, error)   { return u.name(u.areas, id) }

func (u *UFS) filesNameCompare(a, b ufsdefs.ID) int {
	na, _ := u.fileName(a)
	nb, _ := u.fileName(b)
	return bytes.Compare(na, nb)
}

func (u *UFS) areasNameCompare(a, b ufsdefs.ID) int {
	na, _ := u.areaName(a)
	nb, _ := u.areaName(b)
	return bytes.Compare(na, nb)
}

func storageCompare(a, b ufsdefs.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ImagePath returns the path of the image backing u: the configured
// cfg.Image.Path, which config.NewDefault sets to .ufs/ufs_index.
func (u *UFS) ImagePath() string { return u.path }

// Sync flushes the image to its backing device, retrying per the configured
// retry policy.
func (u *UFS) Sync() (err error) {
	defer u.finish("Sync", &err)
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.syncLocked()
}

func (u *UFS) syncLocked() error {
	err := u.retryer.Do(u.img.Sync)
	if u.health != nil {
		if err != nil {
			u.health.RecordSyncFailure()
		} else {
			u.health.RecordSyncSuccess()
		}
	}
	return err
}

// Destroy syncs, unmaps and releases every resource held by u (spec.md
// §4.5's "Destroy(ufs)").
func (u *UFS) Destroy() (err error) {
	defer u.finish("Destroy", &err)
	u.mu.Lock()
	defer u.mu.Unlock()

	syncErr := u.retryer.Do(u.img.Sync)
	freeErr := u.img.Free()
	if syncErr != nil {
		return syncErr
	}
	return freeErr
}

// recordOccupancy pushes current table usage and externalfs breaker state
// to the metrics collector and health checker; called after every mutating
// operation.
func (u *UFS) recordOccupancy() {
	breakerOpen := u.breaker != nil && u.breaker.GetState() == circuit.StateOpen
	if u.metrics != nil {
		u.metrics.SetTableOccupancy(u.files.Used(), u.areas.Used(), u.nodes.Used())
		u.metrics.SetStringBytesUsed(u.strs.Used())
		u.metrics.SetExternalFSBreakerOpen(breakerOpen)
	}
	if u.health != nil {
		u.health.RecordExternalFSBreakerState(breakerOpen)
	}
}

// Health reports the engine's current health state (domain-stack addition,
// grounded on internal/health).
func (u *UFS) Health() health.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.recordOccupancy()
	return u.health.Check(
		health.TableOccupancy{Name: "files", Used: u.files.Used(), Capacity: u.files.Capacity()},
		health.TableOccupancy{Name: "areas", Used: u.areas.Used(), Capacity: u.areas.Capacity()},
		health.TableOccupancy{Name: "nodes", Used: u.nodes.Used(), Capacity: u.nodes.Capacity()},
	)
}

func statusFor(err error) ufsdefs.StatusCode {
	if err == nil {
		return ufsdefs.NoError
	}
	return errors.StatusOf(err)
}

// finish is called via defer by every public operation. It updates the
// process-wide status word, including on success (spec.md §7), and records
// the outcome against the named operation's counter.
func (u *UFS) finish(op string, err *error) {
	ufsdefs.SetLastStatus(statusFor(*err))
	if u.metrics != nil {
		u.metrics.RecordOperation(op, *err == nil)
	}
}
