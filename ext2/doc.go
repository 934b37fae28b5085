// Package ext2 implements an embeddable, read/write driver for the ext2
// on-disk filesystem format.
//
// The package does not own any storage. Callers supply a Device, a small
// request/drop adapter (see device.go) bound to whatever cache or backing
// store they choose; this package never opens a file or a block device
// itself. See package github.com/ext2fs/go-ext2/ext2cache for a reference
// Device implementation backed by a plain file or block device.
//
// The driver is single-threaded: a *FileSystem must not be used from more
// than one goroutine without external serialization.
package ext2
