package ext2

// Write stores len(src) bytes into inode_n at byte offset off, per spec.md
// §4.6's four-step protocol: preallocate, dry-run verify, execute, then
// update size. On a drop failure mid-execute the call returns the error;
// blocks already written stay as written (no rollback), but size_lower is
// never advanced past data that is durably in place.
func (fs *FileSystem) Write(n uint32, src []byte, off uint64) (int, error) {
	const op = "write"
	if err := fs.requireWritable(op); err != nil {
		return 0, err
	}
	if len(src) == 0 {
		return 0, nil
	}

	total := off + uint64(len(src))
	if err := fs.allocateSpace(n, total); err != nil {
		return 0, err
	}

	// Dry-run verify: walk inodeOnDisk across the whole range and fail if
	// any block is still a hole, defending against a buggy allocateSpace.
	for pos := off; pos < total; {
		devOff, avail, err := fs.inodeOnDisk(n, pos)
		if err != nil {
			return 0, err
		}
		if devOff == 0 {
			return 0, consistencyErrorf(op, "block at offset %d unallocated after allocateSpace", pos)
		}
		step := avail
		if remaining := total - pos; uint64(step) > remaining {
			step = int(remaining)
		}
		pos += uint64(step)
	}

	written := 0
	for written < len(src) {
		pos := off + uint64(written)
		devOff, avail, err := fs.inodeOnDisk(n, pos)
		if err != nil {
			return written, err
		}
		run := avail
		if remaining := len(src) - written; run > remaining {
			run = remaining
		}
		err = fs.borrow(op, run, devOff, true, func(b []byte) error {
			copy(b, src[written:written+run])
			return nil
		})
		if err != nil {
			return written, err
		}
		written += run
	}

	if err := fs.requestInodeMutate(n, func(in *inode) error {
		if in.size64() < total {
			in.setSize64(total)
		}
		return nil
	}); err != nil {
		return written, err
	}
	return written, nil
}

// allocateSpace ensures every logical block covering [0, totalLen) of
// inode_n has a device block, allocating as needed, and keeps the inode's
// sector count in sync with exactly one update at the end (spec.md §4.6).
func (fs *FileSystem) allocateSpace(n uint32, totalLen uint64) error {
	const op = "allocate space"
	if err := fs.requireWritable(op); err != nil {
		return err
	}

	blockCount := (totalLen + uint64(fs.blockSize) - 1) / uint64(fs.blockSize)
	allocated := 0

	// blockMapRequest may allocate the single-indirect block itself; note
	// whether it existed so that block is counted in sectors below.
	var hadIndirect bool
	if err := fs.requestInode(n, func(in *inode) error {
		hadIndirect = in.block[directPointerCount] != 0
		return nil
	}); err != nil {
		return err
	}

	for b := uint64(0); b < blockCount; b++ {
		run, err := fs.blockMapRequest(n, b, true)
		if err != nil {
			return err
		}
		idx := b - run.firstIdx
		if run.ptrs[idx] != 0 {
			continue
		}

		newBlock, err := fs.allocateBlock()
		if err != nil {
			return err
		}
		run.ptrs[idx] = newBlock
		allocated++

		if run.indirect {
			if err := fs.writeIndirectRun(run); err != nil {
				return err
			}
		} else {
			if err := fs.requestInodeMutate(n, func(in *inode) error {
				in.block[idx] = newBlock
				return nil
			}); err != nil {
				return err
			}
		}
	}

	if allocated == 0 {
		return nil
	}
	sectorsPerBlock := fs.blockSize / 512
	if sectorsPerBlock == 0 {
		sectorsPerBlock = 1
	}
	return fs.requestInodeMutate(n, func(in *inode) error {
		if !hadIndirect && in.block[directPointerCount] != 0 {
			allocated++
		}
		in.sectors += uint32(allocated) * sectorsPerBlock
		return nil
	})
}
