package ext2

import "github.com/sirupsen/logrus"

// Buffer is a mutable byte region borrowed from a Device via Request. The
// library treats it as uniquely owned until the matching Drop returns.
type Buffer interface {
	// Bytes returns the borrowed region. Mutating the returned slice
	// mutates the buffer itself; there is no copy.
	Bytes() []byte
}

// Device is the adapter contract spec.md §4.1 describes between the
// filesystem driver and a caller-supplied cache. The driver never opens a
// file or block device; every byte it reads or writes flows through Request
// and Drop.
//
// Request/Drop is not scatter/gather: each call addresses one contiguous
// device range. The driver assumes nothing about alignment beyond the
// device being addressable at byte granularity, and it issues exactly one
// Drop per Request, including on every error path.
//
// A Device is not required to support more than one outstanding Request at
// a time; the driver itself never nests a Request inside another unless the
// Device also implements NestingDevice. See ext2cache for a reference
// implementation that does not.
type Device interface {
	// Request acquires a mutable region of length bytes at byte offset off.
	// Returns a non-nil error if the region could not be acquired.
	Request(length int, off int64) (Buffer, error)
	// Drop releases a buffer previously returned by Request. If dirty is
	// true the cache must durably accept the buffer's contents before
	// returning; a non-nil error here propagates outward as an adapter
	// failure.
	Drop(b Buffer, dirty bool) error
	// Now returns the current time as a POSIX timestamp, for ctime/mtime/
	// dtime. A Device that cannot provide a clock returns 0; the driver
	// then uses the Clock given in Params (or CreateParams), which
	// returns 0 when none was given.
	Now() uint32
}

// NestingDevice is implemented by a Device that permits a Request to be
// issued while another Request's buffer from the same Device is still
// outstanding. The driver only relies on this when present; its own
// internal call sequences are written to work without it (acquire inode,
// read a field, drop, acquire BGD, ...).
type NestingDevice interface {
	Device
	SupportsNesting() bool
}

// borrow requests a buffer and guarantees a matching Drop runs exactly
// once, even if fn panics or returns an error. dirty controls whether the
// region is written back and is fixed for the whole call.
func (fs *FileSystem) borrow(op string, length int, off int64, dirty bool, fn func(b []byte) error) error {
	log := fs.log()
	log.WithFields(logrus.Fields{"op": op, "off": off, "len": length, "dirty": dirty}).Debug("ext2: request")
	buf, err := fs.dev.Request(length, off)
	if err != nil {
		return adapterErrorf(op, err)
	}
	var fnErr error
	func() {
		defer func() {
			if dropErr := fs.dev.Drop(buf, dirty); dropErr != nil && fnErr == nil {
				fnErr = adapterErrorf(op, dropErr)
			}
		}()
		fnErr = fn(buf.Bytes())
	}()
	log.WithFields(logrus.Fields{"op": op, "off": off, "dirty": dirty}).Debug("ext2: drop")
	return fnErr
}

// now returns the current POSIX time, preferring the device's clock and
// falling back to the filesystem handle's configured clock.
func (fs *FileSystem) now() uint32 {
	if t := fs.dev.Now(); t != 0 {
		return t
	}
	return fs.clock()
}
