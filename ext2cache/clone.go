package ext2cache

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/pkg/xattr"
)

// Clone copies srcPath to destPath byte-for-byte, preserves any extended
// attributes set on the host file (e.g. a provenance tag an image pipeline
// attached), and verifies the copy by comparing SHA-256 digests before
// returning. Intended for "stamp out N scratch images from one golden
// image" workflows ahead of opening each with OpenPath.
func Clone(srcPath, destPath string) error {
	if err := copyFile(srcPath, destPath); err != nil {
		return err
	}
	if err := copyXattrs(srcPath, destPath); err != nil {
		return err
	}
	return verifyClone(srcPath, destPath)
}

func copyFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("ext2cache: clone copy %s -> %s: %w", srcPath, destPath, err)
	}
	return nil
}

// copyXattrs carries over every extended attribute set on srcPath. Any
// error listing srcPath's attributes (including a source filesystem without
// xattr support) is treated as nothing to copy; a failure reading an
// attribute, or setting it on destPath, is returned.
func copyXattrs(srcPath, destPath string) error {
	names, err := xattr.List(srcPath)
	if err != nil {
		if err == xattr.ENOATTR {
			return nil
		}
		return nil // unsupported filesystem: nothing to preserve, not fatal
	}
	for _, name := range names {
		value, err := xattr.Get(srcPath, name)
		if err != nil {
			return fmt.Errorf("ext2cache: read xattr %s from %s: %w", name, srcPath, err)
		}
		if err := xattr.Set(destPath, name, value); err != nil {
			return fmt.Errorf("ext2cache: set xattr %s on %s: %w", name, destPath, err)
		}
	}
	return nil
}

func verifyClone(srcPath, destPath string) error {
	srcSum, err := fileSHA256(srcPath)
	if err != nil {
		return err
	}
	dstSum, err := fileSHA256(destPath)
	if err != nil {
		return err
	}
	if srcSum != dstSum {
		return fmt.Errorf("ext2cache: clone verification failed: %s and %s differ", srcPath, destPath)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
