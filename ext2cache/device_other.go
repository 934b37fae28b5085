//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package ext2cache

import (
	"fmt"
	"os"
)

func deviceSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func flushDeviceBuffers(f *os.File) error {
	return fmt.Errorf("ext2cache: block device buffer flush not supported on this platform")
}

func lockDevice(f *os.File) error   { return nil }
func unlockDevice(f *os.File) error { return nil }
