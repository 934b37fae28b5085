package ext2

import "encoding/binary"

// inode mirrors one on-disk ext2 inode record (spec.md §3). block[0..12) are
// the direct pointers; indirect1/2/3 are the single/double/triple indirect
// pointers. Only single indirection is walked by the block map (spec.md
// §4.4); double/triple are round-tripped but otherwise untouched by this
// driver, a deliberate structural extension point (spec.md Design Notes).
type inode struct {
	number     uint32
	mode       uint16 // top 4 bits: file type; bottom 12: permissions
	owner      uint16
	sizeLower  uint32
	atime      uint32
	ctime      uint32
	mtime      uint32
	dtime      uint32
	group      uint16
	links      uint16
	sectors    uint32 // i_blocks, 512-byte units
	flags      uint32
	block      [15]uint32 // [0..12) direct, [12] indirect1, [13] indirect2, [14] indirect3
	generation uint32
	aclBlock   uint32
	sizeUpper  uint32 // only meaningful when 64-bit-size feature active and file is regular

	size64Capable bool // this FileSystem mount has the 64-bit-size feature
}

const inodeRawSize = 128

const (
	inoOffMode       = 0x00
	inoOffOwner      = 0x02
	inoOffSize       = 0x04
	inoOffAtime      = 0x08
	inoOffCtime      = 0x0C
	inoOffMtime      = 0x10
	inoOffDtime      = 0x14
	inoOffGroup      = 0x18
	inoOffLinks      = 0x1A
	inoOffSectors    = 0x1C
	inoOffFlags      = 0x20
	inoOffBlock      = 0x28
	inoOffGeneration = 0x64
	inoOffACLBlock   = 0x68
	inoOffSizeHigh   = 0x6C
)

func (i *inode) fileType() fileType { return fileType(i.mode) & fileTypeMask }

func inodeFromBytes(b []byte, number uint32, size64Capable bool) (*inode, error) {
	const op = "read inode"
	if len(b) < inodeRawSize {
		return nil, boundsErrorf(op, "inode buffer too short: %d bytes", len(b))
	}
	in := &inode{number: number, size64Capable: size64Capable}
	in.mode = binary.LittleEndian.Uint16(b[inoOffMode:])
	in.owner = binary.LittleEndian.Uint16(b[inoOffOwner:])
	in.sizeLower = binary.LittleEndian.Uint32(b[inoOffSize:])
	in.atime = binary.LittleEndian.Uint32(b[inoOffAtime:])
	in.ctime = binary.LittleEndian.Uint32(b[inoOffCtime:])
	in.mtime = binary.LittleEndian.Uint32(b[inoOffMtime:])
	in.dtime = binary.LittleEndian.Uint32(b[inoOffDtime:])
	in.group = binary.LittleEndian.Uint16(b[inoOffGroup:])
	in.links = binary.LittleEndian.Uint16(b[inoOffLinks:])
	in.sectors = binary.LittleEndian.Uint32(b[inoOffSectors:])
	in.flags = binary.LittleEndian.Uint32(b[inoOffFlags:])
	for idx := 0; idx < 15; idx++ {
		in.block[idx] = binary.LittleEndian.Uint32(b[inoOffBlock+idx*4:])
	}
	in.generation = binary.LittleEndian.Uint32(b[inoOffGeneration:])
	in.aclBlock = binary.LittleEndian.Uint32(b[inoOffACLBlock:])
	sizeHigh := binary.LittleEndian.Uint32(b[inoOffSizeHigh:])
	if size64Capable && in.fileType() == fileTypeRegular {
		in.sizeUpper = sizeHigh
	}
	return in, nil
}

func (i *inode) toBytes() []byte {
	b := make([]byte, inodeRawSize)
	binary.LittleEndian.PutUint16(b[inoOffMode:], i.mode)
	binary.LittleEndian.PutUint16(b[inoOffOwner:], i.owner)
	binary.LittleEndian.PutUint32(b[inoOffSize:], i.sizeLower)
	binary.LittleEndian.PutUint32(b[inoOffAtime:], i.atime)
	binary.LittleEndian.PutUint32(b[inoOffCtime:], i.ctime)
	binary.LittleEndian.PutUint32(b[inoOffMtime:], i.mtime)
	binary.LittleEndian.PutUint32(b[inoOffDtime:], i.dtime)
	binary.LittleEndian.PutUint16(b[inoOffGroup:], i.group)
	binary.LittleEndian.PutUint16(b[inoOffLinks:], i.links)
	binary.LittleEndian.PutUint32(b[inoOffSectors:], i.sectors)
	binary.LittleEndian.PutUint32(b[inoOffFlags:], i.flags)
	for idx := 0; idx < 15; idx++ {
		binary.LittleEndian.PutUint32(b[inoOffBlock+idx*4:], i.block[idx])
	}
	binary.LittleEndian.PutUint32(b[inoOffGeneration:], i.generation)
	binary.LittleEndian.PutUint32(b[inoOffACLBlock:], i.aclBlock)
	if i.size64Capable && i.fileType() == fileTypeRegular {
		binary.LittleEndian.PutUint32(b[inoOffSizeHigh:], i.sizeUpper)
	}
	return b
}

// size64 is the full logical size spec.md §3 describes: size_lower alone
// unless the 64-bit-size feature is active on a regular file.
func (i *inode) size64() uint64 {
	if i.size64Capable && i.fileType() == fileTypeRegular {
		return uint64(i.sizeUpper)<<32 | uint64(i.sizeLower)
	}
	return uint64(i.sizeLower)
}

func (i *inode) setSize64(size uint64) {
	i.sizeLower = uint32(size)
	if i.size64Capable && i.fileType() == fileTypeRegular {
		i.sizeUpper = uint32(size >> 32)
	}
}

// deleted reports whether this inode has no links (links == 0). dtime is
// not consulted.
func (i *inode) deleted() bool { return i.links == 0 }

// directBlockCount counts non-zero entries among block[0..12), used for
// sector accounting (spec.md invariant 3 / testable property P2).
func (i *inode) directBlockCount() int {
	n := 0
	for _, b := range i.block[:directPointerCount] {
		if b != 0 {
			n++
		}
	}
	return n
}
