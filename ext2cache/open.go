package ext2cache

import (
	"os"

	"github.com/ext2fs/go-ext2/backend"
	filebackend "github.com/ext2fs/go-ext2/backend/file"
)

// OpenPath opens path (a regular file or a raw block device) and wraps it
// in a Cache. When path is a block device, an exclusive advisory flock is
// taken for the lifetime of the returned Cache, mirroring the host tooling
// convention of one writer per device.
func OpenPath(path string, readOnly bool, opts ...Option) (*Cache, func() error, error) {
	storage, err := filebackend.OpenFromPath(path, readOnly)
	if err != nil {
		return nil, nil, err
	}

	closer := func() error { return storage.Close() }

	if info, statErr := storage.Stat(); statErr == nil && info.Mode()&os.ModeDevice != 0 {
		if sysFile, sysErr := storage.Sys(); sysErr == nil {
			if lockErr := lockDevice(sysFile); lockErr == nil {
				prevCloser := closer
				closer = func() error {
					_ = unlockDevice(sysFile)
					return prevCloser()
				}
			}
		}
	}

	return New(storage, opts...), closer, nil
}

// Size reports the backing storage's size in bytes, using the block-device
// ioctl when storage wraps a raw device and falling back to Stat otherwise.
func Size(storage backend.Storage) (int64, error) {
	info, err := storage.Stat()
	if err != nil {
		return 0, err
	}
	if info.Mode()&os.ModeDevice == 0 {
		return info.Size(), nil
	}
	sysFile, err := storage.Sys()
	if err != nil {
		return 0, err
	}
	return deviceSize(sysFile)
}
