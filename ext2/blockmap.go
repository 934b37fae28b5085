package ext2

// blockRun is the result of blockMapRequest: a contiguous slice of block
// pointers (not file bytes) drawn either from the inode's direct array or
// from an indirect block, together with the logical block index the first
// pointer in ptrs corresponds to.
type blockRun struct {
	ptrs      []uint32
	firstIdx  uint64
	indirect  bool   // true if ptrs was copied out of an indirect block
	indirectAt int64  // device offset of the indirect block, valid when indirect
}

// pointersPerBlock is how many 4-byte block pointers fit in one block.
func (fs *FileSystem) pointersPerBlock() uint64 {
	return uint64(fs.blockSize) / 4
}

// blockMapRequest maps logical block index b of inode_n to the run of
// on-disk pointers that covers it (spec.md §4.4). Only direct and single
// indirect addressing is implemented; double/triple indirect are a
// structural extension point and return ErrKindUnimplemented.
//
// When allowAlloc is set and the single-indirect block itself does not yet
// exist, blockMapRequest allocates it, wires the pointer into the inode, and
// proceeds — mirroring spec.md §4.4's "writes the allocation back into the
// inode" rule. The caller is responsible for updating inode.sectors once per
// top-level call.
func (fs *FileSystem) blockMapRequest(n uint32, b uint64, allowAlloc bool) (*blockRun, error) {
	const op = "block map"
	ppb := fs.pointersPerBlock()

	if b < uint64(directPointerCount) {
		var run *blockRun
		err := fs.requestInode(n, func(in *inode) error {
			run = &blockRun{ptrs: append([]uint32(nil), in.block[:directPointerCount]...), firstIdx: 0}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return run, nil
	}

	singleIndirectMax := uint64(directPointerCount) + ppb
	if b < singleIndirectMax {
		var indirectBlock uint32
		err := fs.requestInode(n, func(in *inode) error {
			indirectBlock = in.block[directPointerCount]
			return nil
		})
		if err != nil {
			return nil, err
		}

		if indirectBlock == 0 {
			if !allowAlloc {
				return &blockRun{ptrs: make([]uint32, ppb), firstIdx: uint64(directPointerCount)}, nil
			}
			newBlock, err := fs.allocateBlock()
			if err != nil {
				return nil, err
			}
			if err := fs.requestInodeMutate(n, func(in *inode) error {
				in.block[directPointerCount] = newBlock
				return nil
			}); err != nil {
				return nil, err
			}
			indirectBlock = newBlock
		}

		off := int64(indirectBlock) * int64(fs.blockSize)
		ptrs := make([]uint32, ppb)
		err = fs.borrow(op, int(fs.blockSize), off, false, func(buf []byte) error {
			for i := range ptrs {
				ptrs[i] = leUint32(buf[i*4:])
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &blockRun{ptrs: ptrs, firstIdx: uint64(directPointerCount), indirect: true, indirectAt: off}, nil
	}

	return nil, unimplementedErrorf(op, "double/triple indirect addressing (logical block %d)", b)
}

// writeIndirectRun persists a mutated run previously returned by
// blockMapRequest back to its indirect block. Direct runs are persisted by
// the caller writing straight into the inode via requestInodeMutate.
func (fs *FileSystem) writeIndirectRun(run *blockRun) error {
	const op = "block map write"
	if !run.indirect {
		return consistencyErrorf(op, "writeIndirectRun called on a direct run")
	}
	return fs.borrow(op, int(fs.blockSize), run.indirectAt, true, func(buf []byte) error {
		for i, p := range run.ptrs {
			putLeUint32(buf[i*4:], p)
		}
		return nil
	})
}

// inodeOnDisk returns the device offset backing logical byte position pos
// in inode_n, along with how many contiguous bytes are available from there
// before the end of the current block (spec.md §4.4).
func (fs *FileSystem) inodeOnDisk(n uint32, pos uint64) (offset int64, available int, err error) {
	const op = "inode on disk"
	b := pos / uint64(fs.blockSize)
	r := pos % uint64(fs.blockSize)

	run, err := fs.blockMapRequest(n, b, false)
	if err != nil {
		return 0, 0, err
	}
	idx := b - run.firstIdx
	if idx >= uint64(len(run.ptrs)) {
		return 0, 0, boundsErrorf(op, "logical block %d outside fetched run", b)
	}
	ptr := run.ptrs[idx]
	available = int(uint64(fs.blockSize) - r)
	if ptr == 0 {
		return 0, available, nil // hole: caller treats as zero-filled
	}
	offset = int64(ptr)*int64(fs.blockSize) + int64(r)
	return offset, available, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
