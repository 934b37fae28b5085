package ext2

import "os"

// Stat describes one inode's metadata, a convenience projection over the
// raw on-disk fields useful to callers that don't want to parse an inode
// buffer themselves.
type Stat struct {
	Inode   uint32
	Mode    os.FileMode
	Size    uint64
	Links   uint16
	UID     uint16
	GID     uint16
	Atime   uint32
	Mtime   uint32
	Ctime   uint32
}

// Stat fetches inode n's metadata.
func (fs *FileSystem) Stat(n uint32) (*Stat, error) {
	var st *Stat
	err := fs.requestInode(n, func(in *inode) error {
		st = &Stat{
			Inode: n,
			Mode:  translateMode(in),
			Size:  in.size64(),
			Links: in.links,
			UID:   in.owner,
			GID:   in.group,
			Atime: in.atime,
			Mtime: in.mtime,
			Ctime: in.ctime,
		}
		return nil
	})
	return st, err
}

func translateMode(in *inode) os.FileMode {
	perm := os.FileMode(in.mode & 0x0FFF)
	switch in.fileType() {
	case fileTypeDirectory:
		return perm | os.ModeDir
	case fileTypeSymlink:
		return perm | os.ModeSymlink
	case fileTypeCharDevice:
		return perm | os.ModeCharDevice
	case fileTypeBlockDevice:
		return perm | os.ModeDevice
	case fileTypeFIFO:
		return perm | os.ModeNamedPipe
	case fileTypeSocket:
		return perm | os.ModeSocket
	default:
		return perm
	}
}

// DirEntry is one entry returned by ReadDir: a name paired with the inode
// number it resolves to.
type DirEntry struct {
	Name  string
	Inode uint32
}

// ReadDir lists every live entry in directory inode n, in on-disk order,
// except the "." and ".." entries.
func (fs *FileSystem) ReadDir(n uint32) ([]DirEntry, error) {
	it, err := fs.newDirIter(n)
	if err != nil {
		return nil, err
	}
	var entries []DirEntry
	for {
		ent, err := it.next()
		if err != nil {
			return entries, err
		}
		if ent == nil {
			return entries, nil
		}
		if ent.name == "." || ent.name == ".." {
			continue
		}
		entries = append(entries, DirEntry{Name: ent.name, Inode: ent.inode})
	}
}
