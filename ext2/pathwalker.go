package ext2

import "strings"

// Walk resolves a slash-separated path starting from the root inode (2),
// per spec.md §4.5/§4.9. Empty input, a missing leading slash, or any
// segment not found returns inode 0. A trailing slash is tolerated. Symlinks
// are not followed — resolving one is left to a higher layer.
func (fs *FileSystem) Walk(path string) uint32 {
	if len(path) == 0 || path[0] != '/' {
		return 0
	}

	cursor := rootInodeNumber
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return rootInodeNumber
	}

	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" {
			continue
		}
		next, err := fs.lookupInDir(cursor, segment)
		if err != nil || next == 0 {
			return 0
		}
		cursor = next
	}
	return cursor
}

// lookupInDir scans directory dirN for an entry named name and returns its
// inode number, or 0 if absent.
func (fs *FileSystem) lookupInDir(dirN uint32, name string) (uint32, error) {
	it, err := fs.newDirIter(dirN)
	if err != nil {
		return 0, err
	}
	for {
		ent, err := it.next()
		if err != nil {
			return 0, err
		}
		if ent == nil {
			return 0, nil
		}
		if int(ent.nameLen) == len(name) && ent.name == name {
			return ent.inode, nil
		}
	}
}
