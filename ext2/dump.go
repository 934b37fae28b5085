package ext2

import (
	"fmt"
	"strings"

	"github.com/ext2fs/go-ext2/util"
)

// Dump renders a human-readable diagnostic of the mounted filesystem's
// superblock, the first block group's descriptor, and (if n != 0) one
// inode's raw record, hex-and-ASCII per util.DumpByteSlice. Intended for
// interactive debugging and tests, not for parsing.
func (fs *FileSystem) Dump(n uint32) (string, error) {
	var out strings.Builder

	var sb *superblock
	if err := fs.requestSuperblock(false, func(s *superblock) error {
		sb = s
		return nil
	}); err != nil {
		return "", err
	}
	fmt.Fprintf(&out, "%s\n", sb.String())
	out.WriteString(util.DumpByteSlice(sb.raw[:], 16, true, true, false, nil))

	var gd *groupDescriptor
	if err := fs.requestBGD(0, func(g *groupDescriptor) error {
		gd = g
		return nil
	}); err != nil {
		return "", err
	}
	fmt.Fprintf(&out, "\ngroup 0: %d free blocks, %d free inodes, %d directories\n",
		gd.freeBlocks, gd.freeInodes, gd.directoryAmt)
	out.WriteString(util.DumpByteSlice(gd.raw[:], 16, true, true, false, nil))

	if n != 0 {
		var in *inode
		if err := fs.requestInode(n, func(i *inode) error {
			in = i
			return nil
		}); err != nil {
			return "", err
		}
		fmt.Fprintf(&out, "\ninode %d: type=%#04x links=%d size=%d\n", n, in.fileType(), in.links, in.size64())
		out.WriteString(util.DumpByteSlice(in.toBytes(), 16, true, true, false, nil))
	}

	return out.String(), nil
}
