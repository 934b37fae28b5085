package ext2cache

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"
)

// Compression identifies a transparent container format an ext2 image may
// be stored under.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionXZ
)

var (
	lz4Magic = []byte{0x04, 0x22, 0x4D, 0x18}
	xzMagic  = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
)

// DetectCompression sniffs the first few bytes of path to decide whether it
// holds a plain ext2 image or one wrapped in lz4/xz.
func DetectCompression(path string) (Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return CompressionNone, err
	}
	defer f.Close()

	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return CompressionNone, err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ, nil
	case bytes.HasPrefix(header, lz4Magic):
		return CompressionLZ4, nil
	default:
		return CompressionNone, nil
	}
}

// LoadDecompressed fully decompresses path (lz4 or xz) into a fresh file at
// destPath and returns destPath. When no compression is detected it returns
// path unchanged and creates nothing at destPath.
// The ext2 driver only ever sees a plain, seekable image; decompression
// always happens up front rather than on demand, since ext2.Device must
// support random-access Request at arbitrary offsets.
func LoadDecompressed(path, destPath string) (string, error) {
	kind, err := DetectCompression(path)
	if err != nil {
		return "", err
	}
	if kind == CompressionNone {
		return path, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	var r io.Reader
	switch kind {
	case CompressionLZ4:
		r = lz4.NewReader(src)
	case CompressionXZ:
		xr, err := xz.NewReader(src)
		if err != nil {
			return "", fmt.Errorf("ext2cache: xz header: %w", err)
		}
		r = xr
	}

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("ext2cache: decompress %s: %w", path, err)
	}
	return destPath, nil
}
