// Package ext2cache is a reference implementation of the ext2.Device
// adapter contract, backed by a plain file or raw block device via
// github.com/ext2fs/go-ext2/backend. It enforces one outstanding request at
// a time, which is why it does not implement ext2.NestingDevice.
package ext2cache
