package ext2

import "encoding/binary"

// groupDescriptor mirrors one 32-byte block group descriptor record
// (spec.md §3). The BGD table lives at block 2 when block size is 1024, or
// block 1 otherwise (spec.md §4.2/§6).
type groupDescriptor struct {
	blockBitmap  uint32
	inodeBitmap  uint32
	inodeTable   uint32
	freeBlocks   uint16
	freeInodes   uint16
	directoryAmt uint16
	raw          [groupDescriptorSize]byte
}

const (
	bgdOffBlockBitmap  = 0x00
	bgdOffInodeBitmap  = 0x04
	bgdOffInodeTable   = 0x08
	bgdOffFreeBlocks   = 0x0C
	bgdOffFreeInodes   = 0x0E
	bgdOffDirectoryAmt = 0x10
)

func groupDescriptorFromBytes(b []byte) (*groupDescriptor, error) {
	const op = "group descriptor"
	if len(b) < groupDescriptorSize {
		return nil, formatErrorf(op, "buffer too short: %d bytes", len(b))
	}
	gd := &groupDescriptor{}
	copy(gd.raw[:], b[:groupDescriptorSize])
	gd.blockBitmap = binary.LittleEndian.Uint32(b[bgdOffBlockBitmap:])
	gd.inodeBitmap = binary.LittleEndian.Uint32(b[bgdOffInodeBitmap:])
	gd.inodeTable = binary.LittleEndian.Uint32(b[bgdOffInodeTable:])
	gd.freeBlocks = binary.LittleEndian.Uint16(b[bgdOffFreeBlocks:])
	gd.freeInodes = binary.LittleEndian.Uint16(b[bgdOffFreeInodes:])
	gd.directoryAmt = binary.LittleEndian.Uint16(b[bgdOffDirectoryAmt:])
	return gd, nil
}

func (gd *groupDescriptor) toBytes() []byte {
	b := make([]byte, groupDescriptorSize)
	copy(b, gd.raw[:])
	binary.LittleEndian.PutUint32(b[bgdOffBlockBitmap:], gd.blockBitmap)
	binary.LittleEndian.PutUint32(b[bgdOffInodeBitmap:], gd.inodeBitmap)
	binary.LittleEndian.PutUint32(b[bgdOffInodeTable:], gd.inodeTable)
	binary.LittleEndian.PutUint16(b[bgdOffFreeBlocks:], gd.freeBlocks)
	binary.LittleEndian.PutUint16(b[bgdOffFreeInodes:], gd.freeInodes)
	binary.LittleEndian.PutUint16(b[bgdOffDirectoryAmt:], gd.directoryAmt)
	copy(gd.raw[:], b)
	return b
}

// bgdTableBlock returns the block holding the BGD table, per spec.md §3/§6.
func bgdTableBlock(blockSize uint32) uint64 {
	if blockSize == 1024 {
		return 2
	}
	return 1
}
