package ext2cache

import (
	"github.com/ext2fs/go-ext2/util/timestamp"
	times "gopkg.in/djherbis/times.v1"
)

// defaultClock mirrors util/timestamp.GetTime's SOURCE_DATE_EPOCH
// convention, so a Cache built without WithClock still produces
// reproducible mtimes/ctimes under a pinned build.
func defaultClock() uint32 {
	return uint32(timestamp.GetTime().Unix())
}

// BirthTime returns a clock function that reports path's filesystem-level
// birth time (falling back to mtime where the platform or filesystem
// doesn't expose one), via gopkg.in/djherbis/times.v1. This is useful for a
// Cache whose backing image should inherit its host file's creation time
// rather than wall-clock-at-mount.
func BirthTime(path string) (func() uint32, error) {
	t, err := times.Stat(path)
	if err != nil {
		return nil, err
	}
	birth := t.ModTime()
	if t.HasBirthTime() {
		birth = t.BirthTime()
	}
	return func() uint32 { return uint32(birth.Unix()) }, nil
}
