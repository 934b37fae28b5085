package ext2

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Params configures Open. The zero value is valid and picks the driver's
// defaults; most callers only need to supply Device.
type Params struct {
	// Clock supplies ctime/mtime/dtime when the Device's own Now() returns
	// 0. Defaults to a zero-returning stub, which in turn makes every
	// timestamp this driver writes 0 — set this for any mount that creates
	// or modifies inodes.
	Clock func() uint32

	// ForceReadOnly mounts the filesystem read-only even if the superblock
	// feature flags would otherwise permit read-write (spec.md §4.2).
	ForceReadOnly bool

	// Logger receives Debug-level entries for every request/drop pair and
	// Warn-level entries for allocation-bitmap anomalies and cascade-free
	// completions. Nil-safe: a nil Logger mounts with a discard logger, so
	// every call site below can log unconditionally.
	Logger *logrus.Logger
}

// FileSystem is an open ext2 mount: the device adapter plus the geometry
// cached off the superblock at mount time (spec.md §3's "Filesystem
// handle"). The canonical superblock/BGD copies remain on disk; FileSystem
// re-requests them for each mutation rather than holding a mutable cache of
// its own.
type FileSystem struct {
	dev    Device
	clock  func() uint32
	logger *logrus.Logger

	rw bool

	groups         uint32
	blockSize      uint32
	fragSize       uint32
	inodeSize      uint16
	inodesPerGroup uint32
	blocksPerGroup uint32

	size64Capable bool
	hasTypeHint   bool
}

// Open reads the superblock at byte offset 1024, validates it, and derives
// the geometry this driver needs for every later accessor (spec.md §4.2).
func Open(dev Device, params *Params) (*FileSystem, error) {
	const op = "mount"
	if dev == nil {
		return nil, formatErrorf(op, "nil device")
	}
	if params == nil {
		params = &Params{}
	}
	clock := params.Clock
	if clock == nil {
		clock = func() uint32 { return 0 }
	}
	logger := params.Logger
	if logger == nil {
		logger = discardLogger()
	}

	fs := &FileSystem{dev: dev, clock: clock, logger: logger}

	var sb *superblock
	err := fs.borrow(op, superblockSize, superblockOffset, false, func(b []byte) error {
		parsed, perr := superblockFromBytes(b)
		if perr != nil {
			return perr
		}
		sb = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sb.logBlockSize > maxBlockLog || sb.logFragSize > maxBlockLog {
		return nil, formatErrorf(op, "block/frag size log exceeds %d", maxBlockLog)
	}

	groups, err := sb.groupCount()
	if err != nil {
		return nil, err
	}

	rw, err := sb.validateFeatures()
	if err != nil {
		return nil, err
	}
	if params.ForceReadOnly {
		rw = false
	}

	fs.groups = groups
	fs.blockSize = sb.blockSize()
	fs.fragSize = sb.fragSize()
	fs.inodeSize = sb.inodeSize
	if fs.inodeSize == 0 {
		fs.inodeSize = inodeRawSize
	}
	fs.inodesPerGroup = sb.inodesPerGroup
	fs.blocksPerGroup = sb.blocksPerGroup
	fs.rw = rw
	fs.size64Capable = sb.featureIncompat&featureIncompatSize64 != 0
	fs.hasTypeHint = sb.featureROCompat&featureROCompatDirType != 0

	return fs, nil
}

// Close releases the FileSystem's hold on its Device. The driver keeps no
// buffered state between calls, so Close has nothing to flush; it exists so
// callers have a symmetric lifecycle hook and a place to route a future
// flush-on-close extension.
func (fs *FileSystem) Close() error {
	fs.dev = nil
	return nil
}

// ReadWrite reports whether the mount was opened read-write, per spec.md
// §4.2's feature-flag rule.
func (fs *FileSystem) ReadWrite() bool { return fs.rw }

func (fs *FileSystem) requireWritable(op string) error {
	if !fs.rw {
		return readOnlyErrorf(op)
	}
	return nil
}

func (fs *FileSystem) String() string {
	return fmt.Sprintf("ext2 mount: %d groups, block size %d, rw=%v", fs.groups, fs.blockSize, fs.rw)
}
