//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package ext2cache

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const blkGetSize64 = 0x80081272 // BLKGETSIZE64, Linux-specific but harmless elsewhere
const blkFlsBuf = 0x1261        // BLKFLSBUF

// deviceSize returns the size in bytes of the block device backing f, via
// the BLKGETSIZE64 ioctl. Returns an error if f is not a block device or the
// ioctl is unsupported on this platform.
func deviceSize(f *os.File) (int64, error) {
	size, err := unix.IoctlGetInt(int(f.Fd()), blkGetSize64)
	if err != nil {
		return 0, fmt.Errorf("ext2cache: BLKGETSIZE64 on %s: %w", f.Name(), err)
	}
	return int64(size), nil
}

// flushDeviceBuffers asks the kernel to drop its cached copy of f's block
// device, so a subsequent read observes what Cache just wrote rather than a
// stale page.
func flushDeviceBuffers(f *os.File) error {
	_, err := unix.IoctlGetInt(int(f.Fd()), blkFlsBuf)
	if err != nil {
		return fmt.Errorf("ext2cache: BLKFLSBUF on %s: %w", f.Name(), err)
	}
	return nil
}

// lockDevice takes an exclusive advisory flock on f, so two Cache instances
// in the same process tree don't race over the same backing device.
func lockDevice(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func unlockDevice(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
