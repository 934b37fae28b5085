package ext2

import "github.com/sirupsen/logrus"

// allocateInode finds a free inode in group 0 (spec.md §4.7; rotating across
// groups to balance allocation is a noted extension point, not implemented
// here), marks it used, initializes the on-disk record with perms and
// ctime, and returns its 1-based inode number.
func (fs *FileSystem) allocateInode(perms uint16) (uint32, error) {
	const op = "allocate inode"
	if err := fs.requireWritable(op); err != nil {
		return 0, err
	}

	idx, err := fs.allocateBit(0, bitmapKindInode)
	if err != nil {
		return 0, err
	}
	n := idx + 1

	if err := fs.requestInodeMutate(n, func(in *inode) error {
		*in = inode{number: n, size64Capable: fs.size64Capable}
		in.mode = perms
		in.ctime = fs.now()
		in.links = 0
		return nil
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// allocateBlock finds a free block in group 0, marks it used, zeroes its
// contents, and returns its 1-based block number (spec.md §4.7).
func (fs *FileSystem) allocateBlock() (uint32, error) {
	const op = "allocate block"
	if err := fs.requireWritable(op); err != nil {
		return 0, err
	}

	idx, err := fs.allocateBit(0, bitmapKindBlock)
	if err != nil {
		return 0, err
	}
	n := idx + 1

	zero := make([]byte, fs.blockSize)
	if err := fs.borrow(op, int(fs.blockSize), int64(n)*int64(fs.blockSize), true, func(b []byte) error {
		copy(b, zero)
		return nil
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// allocateBit implements the shared core of allocateInode/allocateBlock:
// find a free bit in group g's bitmap, mark it used, and adjust the BGD and
// superblock free counters (spec.md §4.7).
func (fs *FileSystem) allocateBit(g uint32, kind bitmapKind) (uint32, error) {
	const op = "allocate"

	bitmapOff, err := fs.bitmapBlock(g, kind)
	if err != nil {
		return 0, err
	}

	var bitIdx int
	err = fs.borrow(op, int(fs.blockSize), bitmapOff, true, func(b []byte) error {
		bm := bitmapFromBytes(b)
		bitIdx = bm.findFree()
		if bitIdx < 0 {
			fs.log().WithFields(logrus.Fields{"group": g, "kind": kind}).Warn("ext2: bitmap exhausted")
			return consistencyErrorf(op, "group %d bitmap exhausted", g)
		}
		if err := bm.use(bitIdx); err != nil {
			return err
		}
		copy(b, bm.toBytes())
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := fs.requestBGDMutate(g, func(gd *groupDescriptor) error {
		switch kind {
		case bitmapKindInode:
			if gd.freeInodes == 0 {
				return consistencyErrorf(op, "group %d inode free counter already 0", g)
			}
			gd.freeInodes--
		case bitmapKindBlock:
			if gd.freeBlocks == 0 {
				return consistencyErrorf(op, "group %d block free counter already 0", g)
			}
			gd.freeBlocks--
		}
		return nil
	}); err != nil {
		return 0, err
	}

	if err := fs.requestSuperblock(true, func(sb *superblock) error {
		switch kind {
		case bitmapKindInode:
			sb.freeInodes--
		case bitmapKindBlock:
			sb.freeBlocks--
		}
		return nil
	}); err != nil {
		return 0, err
	}

	return uint32(uint64(g)*fs.groupItemCount(kind) + uint64(bitIdx)), nil
}

// deallocate clears bit idx (0-based within the filesystem, kind-specific)
// and restores the BGD/superblock free counters, per spec.md §4.7. A bit
// already clear indicates corruption and is surfaced as an error rather than
// silently ignored.
func (fs *FileSystem) deallocate(idx uint32, kind bitmapKind) error {
	const op = "deallocate"
	if err := fs.requireWritable(op); err != nil {
		return err
	}

	perGroup := fs.groupItemCount(kind)
	g := uint32(uint64(idx) / perGroup)
	bitIdx := int(uint64(idx) % perGroup)

	bitmapOff, err := fs.bitmapBlock(g, kind)
	if err != nil {
		return err
	}

	err = fs.borrow(op, int(fs.blockSize), bitmapOff, true, func(b []byte) error {
		bm := bitmapFromBytes(b)
		free, cerr := bm.checkFree(bitIdx)
		if cerr != nil {
			return cerr
		}
		if free {
			return consistencyErrorf(op, "bit %d in group %d already clear", bitIdx, g)
		}
		if ferr := bm.free(bitIdx); ferr != nil {
			return ferr
		}
		copy(b, bm.toBytes())
		return nil
	})
	if err != nil {
		return err
	}

	if err := fs.requestBGDMutate(g, func(gd *groupDescriptor) error {
		switch kind {
		case bitmapKindInode:
			gd.freeInodes++
		case bitmapKindBlock:
			gd.freeBlocks++
		}
		return nil
	}); err != nil {
		return err
	}

	return fs.requestSuperblock(true, func(sb *superblock) error {
		switch kind {
		case bitmapKindInode:
			sb.freeInodes++
		case bitmapKindBlock:
			sb.freeBlocks++
		}
		return nil
	})
}

// bitmapBlock returns the device offset of group g's block or inode bitmap.
func (fs *FileSystem) bitmapBlock(g uint32, kind bitmapKind) (int64, error) {
	var off int64
	err := fs.requestBGD(g, func(gd *groupDescriptor) error {
		var block uint32
		switch kind {
		case bitmapKindInode:
			block = gd.inodeBitmap
		case bitmapKindBlock:
			block = gd.blockBitmap
		}
		off = int64(block) * int64(fs.blockSize)
		return nil
	})
	return off, err
}

func (fs *FileSystem) groupItemCount(kind bitmapKind) uint64 {
	if kind == bitmapKindInode {
		return uint64(fs.inodesPerGroup)
	}
	return uint64(fs.blocksPerGroup)
}
