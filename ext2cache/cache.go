package ext2cache

import (
	"fmt"

	"github.com/ext2fs/go-ext2/backend"
	"github.com/ext2fs/go-ext2/ext2"
	"github.com/ext2fs/go-ext2/util/bitmap"
	"github.com/sirupsen/logrus"
)

// dirtyPageSize is the granularity Cache uses to track which regions of the
// backing storage have received a dirty Drop since the last ClearDirtyPages
// (see dirtypages.go). It has no relationship to the mounted filesystem's
// own block size — Cache is built before a FileSystem exists to mount on
// top of it, so it cannot know that size.
const dirtyPageSize = 4096

// Cache is the reference ext2.Device: a single-outstanding-request adapter
// over a backend.Storage. It buffers nothing across calls — every Request
// reads straight from the backing storage and every dirty Drop writes
// straight back — leaving whatever page-cache or write-back policy exists
// entirely to the OS or to the backend.Storage implementation passed in.
// It does track, at dirtyPageSize granularity, which byte ranges have seen
// a dirty Drop, using util/bitmap — useful for a caller that wants to know
// what to flush or resync without re-diffing the whole backing store.
type Cache struct {
	storage backend.Storage
	clock   func() uint32
	log     *logrus.Logger

	outstanding bool
	dirtyPages  *bitmap.Bitmap
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithClock overrides the default clock (see clock.go) used for Now().
func WithClock(clock func() uint32) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithLogger attaches a logrus.Logger; Request/Drop pairs are logged at
// Debug level, and a buffer already outstanding when Request is called is
// logged at Warn level before the adapter error is returned.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New wraps storage in a Cache. storage must support ReadAt for a
// read-only Cache, and Writable() for any write (dirty Drop).
func New(storage backend.Storage, opts ...Option) *Cache {
	c := &Cache{storage: storage, clock: defaultClock}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = discardLogger()
	}
	return c
}

// buffer is the ext2.Buffer this package hands back from Request.
type buffer struct {
	data []byte
	off  int64
}

func (b *buffer) Bytes() []byte { return b.data }

// Request reads length bytes at off into a freshly allocated buffer. Only
// one Request may be outstanding at a time; a second call before the first
// Drop returns an adapter error.
func (c *Cache) Request(length int, off int64) (ext2.Buffer, error) {
	if c.outstanding {
		c.log.Warn("ext2cache: Request called while a buffer is still outstanding")
		return nil, fmt.Errorf("ext2cache: nested request not supported")
	}
	data := make([]byte, length)
	n, err := c.storage.ReadAt(data, off)
	if err != nil && n < length {
		return nil, fmt.Errorf("ext2cache: short read at offset %d: got %d of %d bytes: %w", off, n, length, err)
	}
	c.outstanding = true
	c.log.WithFields(logrus.Fields{"op": "request", "off": off, "len": length}).Debug("ext2cache")
	return &buffer{data: data, off: off}, nil
}

// Drop releases a buffer previously returned by Request. If dirty, its
// contents are written back to the backing storage before the outstanding
// flag clears.
func (c *Cache) Drop(b ext2.Buffer, dirty bool) error {
	buf, ok := b.(*buffer)
	if !ok {
		return fmt.Errorf("ext2cache: Drop called with a buffer this cache did not create")
	}
	c.outstanding = false
	c.log.WithFields(logrus.Fields{"op": "drop", "off": buf.off, "len": len(buf.data), "dirty": dirty}).Debug("ext2cache")
	if !dirty {
		return nil
	}
	w, err := c.storage.Writable()
	if err != nil {
		return fmt.Errorf("ext2cache: storage not writable: %w", err)
	}
	if _, err := w.WriteAt(buf.data, buf.off); err != nil {
		return fmt.Errorf("ext2cache: write back at offset %d: %w", buf.off, err)
	}
	c.markDirty(buf.off, len(buf.data))
	return nil
}

// Now returns the current POSIX time via the configured clock.
func (c *Cache) Now() uint32 { return c.clock() }

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
