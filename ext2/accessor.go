package ext2

// inodePosition computes the byte offset of inode n on the device, per
// spec.md §4.3: group = (n-1) div inodesPerGroup; idx = (n-1) mod
// inodesPerGroup; offset = bgd[group].inodeTable * blockSize + idx *
// inodeSize.
func (fs *FileSystem) inodePosition(n uint32) (int64, error) {
	const op = "locate inode"
	if n == 0 {
		return 0, boundsErrorf(op, "inode 0 is not valid")
	}
	group := (n - 1) / fs.inodesPerGroup
	idx := (n - 1) % fs.inodesPerGroup
	if group >= fs.groups {
		return 0, boundsErrorf(op, "inode %d maps to group %d, have %d groups", n, group, fs.groups)
	}

	var offset int64
	err := fs.requestBGD(group, func(gd *groupDescriptor) error {
		offset = int64(gd.inodeTable)*int64(fs.blockSize) + int64(idx)*int64(fs.inodeSize)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// requestInode fetches inode n and hands it to fn as a read-only view. Use
// requestInodeMutate for any call that needs to persist a change.
func (fs *FileSystem) requestInode(n uint32, fn func(in *inode) error) error {
	const op = "request inode"
	off, err := fs.inodePosition(n)
	if err != nil {
		return err
	}
	return fs.borrow(op, int(fs.inodeSize), off, false, func(b []byte) error {
		in, perr := inodeFromBytes(b, n, fs.size64Capable)
		if perr != nil {
			return perr
		}
		return fn(in)
	})
}

// requestBGD fetches the block group descriptor for group g.
func (fs *FileSystem) requestBGD(g uint32, fn func(gd *groupDescriptor) error) error {
	const op = "request bgd"
	if g >= fs.groups {
		return boundsErrorf(op, "group %d out of range, have %d", g, fs.groups)
	}
	tableBlock := bgdTableBlock(fs.blockSize)
	off := int64(tableBlock)*int64(fs.blockSize) + int64(g)*int64(groupDescriptorSize)
	return fs.borrow(op, groupDescriptorSize, off, false, func(b []byte) error {
		gd, err := groupDescriptorFromBytes(b)
		if err != nil {
			return err
		}
		return fn(gd)
	})
}

// requestBGDMutate fetches, mutates, and writes back the descriptor for
// group g in one borrowed round trip.
func (fs *FileSystem) requestBGDMutate(g uint32, fn func(gd *groupDescriptor) error) error {
	const op = "update bgd"
	if g >= fs.groups {
		return boundsErrorf(op, "group %d out of range, have %d", g, fs.groups)
	}
	tableBlock := bgdTableBlock(fs.blockSize)
	off := int64(tableBlock)*int64(fs.blockSize) + int64(g)*int64(groupDescriptorSize)
	return fs.borrow(op, groupDescriptorSize, off, true, func(b []byte) error {
		gd, err := groupDescriptorFromBytes(b)
		if err != nil {
			return err
		}
		if err := fn(gd); err != nil {
			return err
		}
		copy(b, gd.toBytes())
		return nil
	})
}

// requestSuperblock fetches the superblock and hands it to fn, writing it
// back when dirty is requested.
func (fs *FileSystem) requestSuperblock(dirty bool, fn func(sb *superblock) error) error {
	const op = "request superblock"
	return fs.borrow(op, superblockSize, superblockOffset, dirty, func(b []byte) error {
		sb, err := superblockFromBytes(b)
		if err != nil {
			return err
		}
		if err := fn(sb); err != nil {
			return err
		}
		if dirty {
			copy(b, sb.toBytes())
		}
		return nil
	})
}

// requestInodeMutate fetches inode n, lets fn mutate it in place, and
// persists the change in a single borrowed round trip (dirty=true always).
// This is the primitive every inode mutator (link manager, writer,
// allocator) uses; the two-pass requestInode above only serves read-mostly
// callers that occasionally decide to write.
func (fs *FileSystem) requestInodeMutate(n uint32, fn func(in *inode) error) error {
	const op = "update inode"
	off, err := fs.inodePosition(n)
	if err != nil {
		return err
	}
	return fs.borrow(op, int(fs.inodeSize), off, true, func(b []byte) error {
		in, perr := inodeFromBytes(b, n, fs.size64Capable)
		if perr != nil {
			return perr
		}
		if err := fn(in); err != nil {
			return err
		}
		copy(b, in.toBytes())
		return nil
	})
}
