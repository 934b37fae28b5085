package ext2

// memBuffer is the Buffer a memDevice hands back from Request: a view into
// the backing slice, so a dirty Drop is a no-op (the bytes are already
// live) and a non-dirty Drop simply discards the caller's copy semantics.
type memBuffer struct {
	data []byte
}

func (b *memBuffer) Bytes() []byte { return b.data }

// memDevice is a minimal in-memory Device fake for tests, in the spirit of
// testhelper.FileImpl: a byte slice plus Request/Drop bookkeeping, no real
// I/O. It enforces the one-outstanding-request rule real adapters are
// expected to uphold.
type memDevice struct {
	data        []byte
	clock       uint32
	outstanding bool
}

func newMemDevice(size int) *memDevice {
	return &memDevice{data: make([]byte, size)}
}

func (d *memDevice) Request(length int, off int64) (Buffer, error) {
	if d.outstanding {
		return nil, errNestedRequest
	}
	if off < 0 || int(off)+length > len(d.data) {
		return nil, errOutOfRange
	}
	d.outstanding = true
	return &memBuffer{data: d.data[off : int(off)+length]}, nil
}

func (d *memDevice) Drop(b Buffer, dirty bool) error {
	d.outstanding = false
	return nil
}

func (d *memDevice) Now() uint32 { return d.clock }

var errNestedRequest = fmtErr("memdevice: nested request")
var errOutOfRange = fmtErr("memdevice: request out of range")

func fmtErr(s string) error { return simpleError(s) }

type simpleError string

func (e simpleError) Error() string { return string(e) }
