package ext2cache

import "github.com/ext2fs/go-ext2/util/bitmap"

// markDirty records that the dirtyPageSize-granular pages spanning
// [off, off+length) were written back by a dirty Drop. The bitmap grows
// on demand; ext2cache never knows the backing storage's final size up
// front, only the offsets it has actually been asked to write.
func (c *Cache) markDirty(off int64, length int) {
	if length <= 0 {
		return
	}
	startPage := int(off / dirtyPageSize)
	endPage := int((off + int64(length) - 1) / dirtyPageSize)

	if c.dirtyPages == nil {
		c.dirtyPages = bitmap.NewBits(endPage + 1)
	}
	c.growDirtyPages(endPage + 1)

	for p := startPage; p <= endPage; p++ {
		// growDirtyPages just guaranteed p is in range; the bitmap package's
		// own bounds check can never fire here.
		_ = c.dirtyPages.Set(p)
	}
}

// growDirtyPages ensures the dirty-page bitmap can address at least nBits
// bits, preserving any bits already set.
func (c *Cache) growDirtyPages(nBits int) {
	needBytes := (nBits + 7) / 8
	cur := c.dirtyPages.ToBytes()
	if len(cur) >= needBytes {
		return
	}
	grown := make([]byte, needBytes)
	copy(grown, cur)
	c.dirtyPages.FromBytes(grown)
}

// DirtyPages reports the dirtyPageSize-granular page ranges written back
// since the last ClearDirtyPages, as contiguous runs by page index (not
// byte offset — multiply Position and Count by dirtyPageSize for byte
// ranges). Returns nil if nothing has been written back yet.
func (c *Cache) DirtyPages() []bitmap.Contiguous {
	if c.dirtyPages == nil {
		return nil
	}
	raw := c.dirtyPages.ToBytes()
	total := len(raw) * 8

	var runs []bitmap.Contiguous
	start := -1
	for i := 0; i < total; i++ {
		set, _ := c.dirtyPages.IsSet(i)
		switch {
		case set && start == -1:
			start = i
		case !set && start != -1:
			runs = append(runs, bitmap.Contiguous{Position: start, Count: i - start})
			start = -1
		}
	}
	if start != -1 {
		runs = append(runs, bitmap.Contiguous{Position: start, Count: total - start})
	}
	return runs
}

// ClearDirtyPages resets the dirty-page bookkeeping, e.g. after a caller
// has flushed every range DirtyPages reported.
func (c *Cache) ClearDirtyPages() {
	c.dirtyPages = nil
}
