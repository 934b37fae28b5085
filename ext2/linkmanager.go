package ext2

const maxNameLen = 255

// Link adds a directory entry named name in dir_n pointing at target_n, with
// typeFlags masked to the low 3 bits as the directory-type hint (spec.md
// §4.8). It increments target_n's link count first, so a crash between the
// link-count bump and the entry being placed leaves an over-linked but still
// valid inode rather than a dangling entry.
func (fs *FileSystem) Link(dirN uint32, name string, targetN uint32, typeFlags uint8) error {
	const op = "link"
	if err := fs.requireWritable(op); err != nil {
		return err
	}
	if len(name) > maxNameLen {
		return boundsErrorf(op, "name %q exceeds %d bytes", name, maxNameLen)
	}

	if err := fs.changeLinkcount(targetN, 1); err != nil {
		return err
	}

	it, err := fs.newDirIter(dirN)
	if err != nil {
		return err
	}

	want := entrySize(len(name))
	hint := typeFlags & 0x7
	if !fs.hasTypeHint {
		hint = 0
	}

	for {
		pos := it.pos
		devOff, avail, err := fs.inodeOnDisk(dirN, pos)
		if err != nil {
			return err
		}
		if avail < dirEntHeaderSize || devOff == 0 {
			break
		}

		var placed bool
		err = fs.borrow(op, avail, devOff, true, func(b []byte) error {
			local := 0
			for local+dirEntHeaderSize <= len(b) {
				ent, perr := dirEntFromBytes(b[local:])
				if perr != nil {
					return perr
				}
				if ent.recLen == 0 {
					return nil
				}

				if ent.free() && ent.recLen >= want {
					ent.inode = targetN
					ent.nameLen = uint8(len(name))
					ent.typeHint = hint
					ent.name = name
					copy(b[local:local+int(ent.recLen)], ent.toBytes(fs.hasTypeHint))
					placed = true
					return nil
				}

				if entrySize(int(ent.nameLen))+want <= ent.recLen {
					// Split: shrink ent to its tight size and turn the
					// freed remainder into a new free slot right after it.
					// The next loop pass re-examines that slot, which by
					// construction is now large enough for branch one.
					tight := entrySize(int(ent.nameLen))
					remaining := ent.recLen - tight
					newEnt := &dirEnt{inode: 0, recLen: remaining}
					ent.recLen = tight
					copy(b[local:local+int(ent.recLen)], ent.toBytes(fs.hasTypeHint))
					copy(b[local+int(ent.recLen):local+int(ent.recLen)+int(newEnt.recLen)], newEnt.toBytes(fs.hasTypeHint))
					local += int(ent.recLen)
					continue
				}

				local += int(ent.recLen)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if placed {
			return nil
		}
		it.pos += uint64(avail)
		if it.pos >= it.size {
			break
		}
	}

	return unimplementedErrorf(op, "directory %d has no room for %q; growing a directory is out of scope", dirN, name)
}

// Unlink removes the entry named name from dir_n, returning the inode
// number the entry pointed at (0 if not found). If the target's link count
// reaches zero it is cascade-freed (spec.md §4.8).
func (fs *FileSystem) Unlink(dirN uint32, name string) (uint32, error) {
	const op = "unlink"
	if err := fs.requireWritable(op); err != nil {
		return 0, err
	}

	it, err := fs.newDirIter(dirN)
	if err != nil {
		return 0, err
	}

	var targetN uint32
	for it.pos < it.size {
		pos := it.pos
		devOff, avail, err := fs.inodeOnDisk(dirN, pos)
		if err != nil {
			return 0, err
		}
		if avail < dirEntHeaderSize || devOff == 0 {
			break
		}

		var recLen uint16
		found := false
		err = fs.borrow(op, avail, devOff, true, func(b []byte) error {
			ent, perr := dirEntFromBytes(b)
			if perr != nil {
				return perr
			}
			recLen = ent.recLen
			if !ent.free() && int(ent.nameLen) == len(name) && ent.name == name {
				targetN = ent.inode
				ent.inode = 0
				copy(b[:ent.recLen], ent.toBytes(fs.hasTypeHint))
				found = true
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
		if found {
			break
		}
		it.pos += uint64(recLen)
	}

	if targetN == 0 {
		return 0, nil
	}

	if err := fs.changeLinkcount(targetN, -1); err != nil {
		return 0, err
	}
	return targetN, nil
}

// changeLinkcount adjusts inode_n's link count by delta and, if the result
// is exactly zero, triggers cascadeFree. A 16-bit overflow or underflow is
// treated as a consistency error rather than silently wrapping (spec.md
// §4.8).
func (fs *FileSystem) changeLinkcount(n uint32, delta int) error {
	const op = "change link count"
	var becameZero bool

	err := fs.requestInodeMutate(n, func(in *inode) error {
		next := int32(in.links) + int32(delta)
		if next < 0 || next > 0xFFFF {
			return consistencyErrorf(op, "inode %d link count would go out of 16-bit range (%d + %d)", n, in.links, delta)
		}
		in.links = uint16(next)
		becameZero = next == 0
		return nil
	})
	if err != nil {
		return err
	}

	if becameZero {
		return fs.cascadeFree(n)
	}
	return nil
}

// cascadeFree releases every block an inode whose link count just reached
// zero still owns, frees the inode itself, and stamps dtime (spec.md
// §4.8). Blocks are freed before the inode so a crash mid-cascade leaves the
// inode reachable but over-accounted, never the reverse; the single
// indirect's own block is freed after the bodies it points to. Double/triple
// indirect bodies are left to the unimplemented higher addressing levels.
func (fs *FileSystem) cascadeFree(n uint32) error {
	const op = "cascade free"

	var direct [directPointerCount]uint32
	var indirect1 uint32
	if err := fs.requestInode(n, func(in *inode) error {
		direct = [directPointerCount]uint32{}
		copy(direct[:], in.block[:directPointerCount])
		indirect1 = in.block[directPointerCount]
		return nil
	}); err != nil {
		return err
	}

	for _, block := range direct {
		if block == 0 {
			continue
		}
		if err := fs.deallocate(block-1, bitmapKindBlock); err != nil {
			return err
		}
	}

	if indirect1 != 0 {
		ppb := fs.pointersPerBlock()
		ptrs := make([]uint32, ppb)
		off := int64(indirect1) * int64(fs.blockSize)
		if err := fs.borrow(op, int(fs.blockSize), off, false, func(b []byte) error {
			for i := range ptrs {
				ptrs[i] = leUint32(b[i*4:])
			}
			return nil
		}); err != nil {
			return err
		}
		for _, block := range ptrs {
			if block == 0 {
				continue
			}
			if err := fs.deallocate(block-1, bitmapKindBlock); err != nil {
				return err
			}
		}
		if err := fs.deallocate(indirect1-1, bitmapKindBlock); err != nil {
			return err
		}
	}

	if err := fs.requestInodeMutate(n, func(in *inode) error {
		in.block = [15]uint32{}
		in.dtime = fs.now()
		return nil
	}); err != nil {
		return err
	}

	if err := fs.deallocate(n-1, bitmapKindInode); err != nil {
		return err
	}
	fs.log().WithField("inode", n).Warn("ext2: cascade free completed")
	return nil
}
