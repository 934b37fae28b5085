package ext2

// Read copies up to len(dst) bytes from inode_n starting at byte offset off
// into dst, clamped to the inode's recorded size (spec.md §4.5). It returns
// the number of bytes copied; a short return with a nil error means EOF, and
// a device failure mid-read reports the bytes copied so far with the error
// describing what went wrong on this call only — a retried call starting
// past the failure point may still succeed.
func (fs *FileSystem) Read(n uint32, dst []byte, off uint64) (int, error) {
	const op = "read"
	var size uint64
	if err := fs.requestInode(n, func(in *inode) error {
		size = in.size64()
		return nil
	}); err != nil {
		return 0, err
	}

	if off >= size {
		return 0, nil
	}
	want := len(dst)
	if uint64(want) > size-off {
		want = int(size - off)
	}

	copied := 0
	for copied < want {
		pos := off + uint64(copied)
		devOff, avail, err := fs.inodeOnDisk(n, pos)
		if err != nil {
			return copied, err
		}
		run := avail
		if remaining := want - copied; run > remaining {
			run = remaining
		}
		if devOff == 0 && avail > 0 {
			// hole: zero-fill without touching the device
			for i := 0; i < run; i++ {
				dst[copied+i] = 0
			}
			copied += run
			continue
		}
		err = fs.borrow(op, run, devOff, false, func(b []byte) error {
			copy(dst[copied:copied+run], b)
			return nil
		})
		if err != nil {
			return copied, err
		}
		copied += run
	}
	return copied, nil
}

// RequestFile is the zero-copy counterpart to Read: it returns a Buffer
// covering at most one contiguous device run, already clamped to the
// inode's size and to the run's length (spec.md §4.5). A zero-length
// request (nil Buffer, nil error) signals EOF. The caller drops the buffer.
func (fs *FileSystem) RequestFile(n uint32, length int, off uint64) (Buffer, int, error) {
	const op = "request file"
	var size uint64
	if err := fs.requestInode(n, func(in *inode) error {
		size = in.size64()
		return nil
	}); err != nil {
		return nil, 0, err
	}
	if off >= size {
		return nil, 0, nil
	}
	devOff, avail, err := fs.inodeOnDisk(n, off)
	if err != nil {
		return nil, 0, err
	}
	want := length
	if uint64(want) > size-off {
		want = int(size - off)
	}
	if want > avail {
		want = avail
	}
	if want == 0 {
		return nil, 0, nil
	}
	if devOff == 0 {
		return nil, 0, adapterErrorf(op, errHoleNotSupportedForRequestFile)
	}
	buf, err := fs.dev.Request(want, devOff)
	if err != nil {
		return nil, 0, adapterErrorf(op, err)
	}
	return buf, want, nil
}

// dirIterHeaderRoom is sizeof(dirent header) + the longest possible name,
// the fixed buffer size spec.md §4.5 assigns to a directory iterator.
const dirIterHeaderRoom = dirEntHeaderSize + 256

// dirIter walks the entries of one directory inode, per spec.md §4.5. The
// zero value is not ready to use; construct with newDirIter.
type dirIter struct {
	fs      *FileSystem
	inode   uint32
	pos     uint64
	size    uint64
	buf     [dirIterHeaderRoom]byte
	done    bool
}

func (fs *FileSystem) newDirIter(n uint32) (*dirIter, error) {
	var size uint64
	if err := fs.requestInode(n, func(in *inode) error {
		if in.fileType() != fileTypeDirectory {
			return formatErrorf("directory iterator", "inode %d is not a directory", n)
		}
		size = in.size64()
		return nil
	}); err != nil {
		return nil, err
	}
	return &dirIter{fs: fs, inode: n, size: size}, nil
}

// reset rewinds the iterator so it can be stepped again, per spec.md §4.5's
// needs_reset behavior.
func (it *dirIter) reset() {
	it.pos = 0
	it.done = false
}

// next returns the next live entry (inode != 0), or (nil, nil) once the
// iterator is exhausted. It never returns further entries once exhausted
// until reset is called.
func (it *dirIter) next() (*dirEnt, error) {
	const op = "directory iterator"
	if it.done {
		return nil, nil
	}
	for it.pos < it.size {
		devOff, avail, err := it.fs.inodeOnDisk(it.inode, it.pos)
		if err != nil {
			it.done = true
			return nil, err
		}
		if avail < dirEntHeaderSize {
			it.done = true
			return nil, nil
		}
		if devOff == 0 {
			it.done = true
			return nil, nil
		}
		// The entry is parsed against the rest of the block, not just buf:
		// a record (such as a block's last, tail-absorbing entry) may be
		// longer than the header plus name that buf holds.
		var ent *dirEnt
		err = it.fs.borrow(op, avail, devOff, false, func(b []byte) error {
			copy(it.buf[:], b)
			parsed, perr := dirEntFromBytes(b)
			ent = parsed
			return perr
		})
		if err != nil {
			it.done = true
			return nil, err
		}
		if ent.recLen == 0 {
			it.done = true
			return nil, nil
		}
		it.pos += uint64(ent.recLen)
		if ent.inode != 0 {
			return ent, nil
		}
	}
	it.done = true
	return nil, nil
}
