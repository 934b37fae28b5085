package ext2

// buildTestImage constructs a tiny, valid, hand-assembled ext2 image: one
// block group, 32 blocks, 16 inodes, block size 1024. Layout:
//
//	block 0  boot block (untracked by the bitmap)
//	block 1  superblock
//	block 2  block group descriptor table
//	block 3  block bitmap
//	block 4  inode bitmap
//	blocks 5-6 inode table (16 inodes * 128 bytes = 2048 bytes = 2 blocks)
//	block 7  root directory data
//	blocks 8-31 free (block 8 is permanently unreachable by findFree's
//	         bit-7 skip quirk, by construction, to exercise it in tests)
//
// Feature flags are set so the mount comes up read-write and with both the
// 64-bit-size and directory-type-hint features active, exercising the full
// field set.
func buildTestImage() *memDevice {
	const (
		totalBlocks    = 32
		blockSize      = 1024
		inodesPerGrp   = 16
		inodeSz        = 128
		rootDataBlock  = 7
		inodeTableBlk0 = 5
	)

	dev := newMemDevice((totalBlocks + 1) * blockSize)
	dev.clock = 1700000000

	// -- superblock --
	sb := &superblock{
		inodesCount:     inodesPerGrp,
		blocksCount:     totalBlocks,
		freeBlocks:      25,
		freeInodes:      14,
		firstDataBlock:  1,
		logBlockSize:    0,
		logFragSize:     0,
		blocksPerGroup:  totalBlocks,
		fragsPerGroup:   totalBlocks,
		inodesPerGroup:  inodesPerGrp,
		magic:           superblockMagic,
		revLevel:        1,
		firstInode:      11,
		inodeSize:       inodeSz,
		featureROCompat: featureROCompatDirType,
		featureIncompat: featureIncompatSparseSuper | featureIncompatSize64,
	}
	copy(dev.data[superblockOffset:superblockOffset+int64(superblockSize)], sb.toBytes())

	// -- block group descriptor table (block 2) --
	gd := &groupDescriptor{
		blockBitmap:  3,
		inodeBitmap:  4,
		inodeTable:   inodeTableBlk0,
		freeBlocks:   25,
		freeInodes:   14,
		directoryAmt: 1,
	}
	gdOff := int64(bgdTableBlock(blockSize)) * blockSize
	copy(dev.data[gdOff:gdOff+int64(groupDescriptorSize)], gd.toBytes())

	// -- block bitmap (block 3): blocks 1-7 used (bits 0-6), bit 7 (block 8)
	// left genuinely clear but unreachable via the bit-7-skip quirk.
	blockBitmapOff := int64(3) * blockSize
	dev.data[blockBitmapOff] = 0x7F

	// -- inode bitmap (block 4): inode 1 and inode 2 (root) used.
	inodeBitmapOff := int64(4) * blockSize
	dev.data[inodeBitmapOff] = 0x03

	// -- root inode (inode 2, in the inode table starting at block 5) --
	rootIno := &inode{
		number:        rootInodeNumber,
		mode:          uint16(fileTypeDirectory) | 0o755,
		links:         2,
		sizeLower:     blockSize,
		sectors:       blockSize / 512,
		ctime:         dev.clock,
		mtime:         dev.clock,
		size64Capable: true,
	}
	rootIno.block[0] = rootDataBlock
	inodeTableOff := int64(inodeTableBlk0) * blockSize
	// inode 2 -> idx 1 within the table
	copy(dev.data[inodeTableOff+1*inodeSz:], rootIno.toBytes())

	// -- root directory data (block 7): "." and ".." both -> inode 2 --
	dot := &dirEnt{inode: rootInodeNumber, nameLen: 1, typeHint: dirFileTypeDir, name: "."}
	dot.recLen = entrySize(len(dot.name))
	dotdot := &dirEnt{inode: rootInodeNumber, nameLen: 2, typeHint: dirFileTypeDir, name: ".."}
	dotdot.recLen = blockSize - dot.recLen

	rootDataOff := int64(rootDataBlock) * blockSize
	copy(dev.data[rootDataOff:], dot.toBytes(true))
	copy(dev.data[rootDataOff+int64(dot.recLen):], dotdot.toBytes(true))

	return dev
}

// writeDirEntryRaw is a small helper some tests use to hand-place an extra
// directory entry without going through Link, to set up fixtures.
func writeDirEntryRaw(dev *memDevice, blockOff int64, e *dirEnt, hasTypeHint bool) {
	copy(dev.data[blockOff:], e.toBytes(hasTypeHint))
}
