package ext2

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// superblock mirrors the on-disk ext2 superblock (spec.md §3), the 1024
// bytes at byte offset 1024. Only the fields this driver consults or
// mutates are named; everything else round-trips through the raw copy it
// was parsed from so toBytes never clobbers fields it doesn't
// understand.
type superblock struct {
	inodesCount     uint32
	blocksCount     uint32
	reservedBlocks  uint32
	freeBlocks      uint32
	freeInodes      uint32
	firstDataBlock  uint32
	logBlockSize    uint32
	logFragSize     uint32
	blocksPerGroup  uint32
	fragsPerGroup   uint32
	inodesPerGroup  uint32
	mountTime       uint32
	writeTime       uint32
	mountCount      uint16
	maxMountCount   uint16
	magic           uint16
	state           uint16
	errorBehaviour  uint16
	minorRev        uint16
	lastCheck       uint32
	checkInterval   uint32
	creatorOS       uint32
	revLevel        uint32
	defResUID       uint16
	defResGID       uint16
	firstInode      uint32
	inodeSize       uint16
	blockGroupNr    uint16
	featureCompat   uint32
	featureIncompat uint32
	featureROCompat uint32
	uuid            uuid.UUID
	volumeName      [16]byte

	// raw is the full 1024-byte image as last parsed/written. Fields above
	// are a view into it; toBytes starts from raw and overwrites only the
	// bytes this driver understands.
	raw [superblockSize]byte
}

const (
	sbOffInodesCount     = 0x00
	sbOffBlocksCount     = 0x04
	sbOffReservedBlocks  = 0x08
	sbOffFreeBlocks      = 0x0C
	sbOffFreeInodes      = 0x10
	sbOffFirstDataBlock  = 0x14
	sbOffLogBlockSize    = 0x18
	sbOffLogFragSize     = 0x1C
	sbOffBlocksPerGroup  = 0x20
	sbOffFragsPerGroup   = 0x24
	sbOffInodesPerGroup  = 0x28
	sbOffMountTime       = 0x2C
	sbOffWriteTime       = 0x30
	sbOffMountCount      = 0x34
	sbOffMaxMountCount   = 0x36
	sbOffMagic           = 0x38
	sbOffState           = 0x3A
	sbOffErrors          = 0x3C
	sbOffMinorRev        = 0x3E
	sbOffLastCheck       = 0x40
	sbOffCheckInterval   = 0x44
	sbOffCreatorOS       = 0x48
	sbOffRevLevel        = 0x4C
	sbOffDefResUID       = 0x50
	sbOffDefResGID       = 0x52
	sbOffFirstInode      = 0x54
	sbOffInodeSize       = 0x58
	sbOffBlockGroupNr    = 0x5A
	sbOffFeatureCompat   = 0x5C
	sbOffFeatureIncompat = 0x60
	sbOffFeatureROCompat = 0x64
	sbOffUUID            = 0x68
	sbOffVolumeName      = 0x78
)

func superblockFromBytes(b []byte) (*superblock, error) {
	const op = "superblock"
	if len(b) < superblockSize {
		return nil, formatErrorf(op, "superblock buffer too short: %d bytes", len(b))
	}
	sb := &superblock{}
	copy(sb.raw[:], b[:superblockSize])

	sb.magic = binary.LittleEndian.Uint16(b[sbOffMagic:])
	if sb.magic != superblockMagic {
		return nil, formatErrorf(op, "bad magic %#x, expected %#x", sb.magic, superblockMagic)
	}
	sb.revLevel = binary.LittleEndian.Uint32(b[sbOffRevLevel:])
	if sb.revLevel < minFeatureRevision {
		return nil, formatErrorf(op, "unsupported revision %d, need >= %d", sb.revLevel, minFeatureRevision)
	}

	sb.inodesCount = binary.LittleEndian.Uint32(b[sbOffInodesCount:])
	sb.blocksCount = binary.LittleEndian.Uint32(b[sbOffBlocksCount:])
	sb.reservedBlocks = binary.LittleEndian.Uint32(b[sbOffReservedBlocks:])
	sb.freeBlocks = binary.LittleEndian.Uint32(b[sbOffFreeBlocks:])
	sb.freeInodes = binary.LittleEndian.Uint32(b[sbOffFreeInodes:])
	sb.firstDataBlock = binary.LittleEndian.Uint32(b[sbOffFirstDataBlock:])
	sb.logBlockSize = binary.LittleEndian.Uint32(b[sbOffLogBlockSize:])
	sb.logFragSize = binary.LittleEndian.Uint32(b[sbOffLogFragSize:])
	sb.blocksPerGroup = binary.LittleEndian.Uint32(b[sbOffBlocksPerGroup:])
	sb.fragsPerGroup = binary.LittleEndian.Uint32(b[sbOffFragsPerGroup:])
	sb.inodesPerGroup = binary.LittleEndian.Uint32(b[sbOffInodesPerGroup:])
	sb.mountTime = binary.LittleEndian.Uint32(b[sbOffMountTime:])
	sb.writeTime = binary.LittleEndian.Uint32(b[sbOffWriteTime:])
	sb.mountCount = binary.LittleEndian.Uint16(b[sbOffMountCount:])
	sb.maxMountCount = binary.LittleEndian.Uint16(b[sbOffMaxMountCount:])
	sb.state = binary.LittleEndian.Uint16(b[sbOffState:])
	sb.errorBehaviour = binary.LittleEndian.Uint16(b[sbOffErrors:])
	sb.minorRev = binary.LittleEndian.Uint16(b[sbOffMinorRev:])
	sb.lastCheck = binary.LittleEndian.Uint32(b[sbOffLastCheck:])
	sb.checkInterval = binary.LittleEndian.Uint32(b[sbOffCheckInterval:])
	sb.creatorOS = binary.LittleEndian.Uint32(b[sbOffCreatorOS:])
	sb.defResUID = binary.LittleEndian.Uint16(b[sbOffDefResUID:])
	sb.defResGID = binary.LittleEndian.Uint16(b[sbOffDefResGID:])

	// EXT2_DYNAMIC_REV fields; revLevel >= 1 guarantees these are present.
	sb.firstInode = binary.LittleEndian.Uint32(b[sbOffFirstInode:])
	sb.inodeSize = binary.LittleEndian.Uint16(b[sbOffInodeSize:])
	sb.blockGroupNr = binary.LittleEndian.Uint16(b[sbOffBlockGroupNr:])
	sb.featureCompat = binary.LittleEndian.Uint32(b[sbOffFeatureCompat:])
	sb.featureIncompat = binary.LittleEndian.Uint32(b[sbOffFeatureIncompat:])
	sb.featureROCompat = binary.LittleEndian.Uint32(b[sbOffFeatureROCompat:])
	copy(sb.uuid[:], b[sbOffUUID:sbOffUUID+16])
	copy(sb.volumeName[:], b[sbOffVolumeName:sbOffVolumeName+16])

	return sb, nil
}

// toBytes renders the superblock fields this driver tracks back over its
// last-seen raw image, preserving any field it does not understand.
func (sb *superblock) toBytes() []byte {
	b := make([]byte, superblockSize)
	copy(b, sb.raw[:])

	binary.LittleEndian.PutUint32(b[sbOffInodesCount:], sb.inodesCount)
	binary.LittleEndian.PutUint32(b[sbOffBlocksCount:], sb.blocksCount)
	binary.LittleEndian.PutUint32(b[sbOffReservedBlocks:], sb.reservedBlocks)
	binary.LittleEndian.PutUint32(b[sbOffFreeBlocks:], sb.freeBlocks)
	binary.LittleEndian.PutUint32(b[sbOffFreeInodes:], sb.freeInodes)
	binary.LittleEndian.PutUint32(b[sbOffFirstDataBlock:], sb.firstDataBlock)
	binary.LittleEndian.PutUint32(b[sbOffLogBlockSize:], sb.logBlockSize)
	binary.LittleEndian.PutUint32(b[sbOffLogFragSize:], sb.logFragSize)
	binary.LittleEndian.PutUint32(b[sbOffBlocksPerGroup:], sb.blocksPerGroup)
	binary.LittleEndian.PutUint32(b[sbOffFragsPerGroup:], sb.fragsPerGroup)
	binary.LittleEndian.PutUint32(b[sbOffInodesPerGroup:], sb.inodesPerGroup)
	binary.LittleEndian.PutUint32(b[sbOffMountTime:], sb.mountTime)
	binary.LittleEndian.PutUint32(b[sbOffWriteTime:], sb.writeTime)
	binary.LittleEndian.PutUint16(b[sbOffMountCount:], sb.mountCount)
	binary.LittleEndian.PutUint16(b[sbOffMaxMountCount:], sb.maxMountCount)
	binary.LittleEndian.PutUint16(b[sbOffMagic:], sb.magic)
	binary.LittleEndian.PutUint16(b[sbOffState:], sb.state)
	binary.LittleEndian.PutUint16(b[sbOffErrors:], sb.errorBehaviour)
	binary.LittleEndian.PutUint16(b[sbOffMinorRev:], sb.minorRev)
	binary.LittleEndian.PutUint32(b[sbOffLastCheck:], sb.lastCheck)
	binary.LittleEndian.PutUint32(b[sbOffCheckInterval:], sb.checkInterval)
	binary.LittleEndian.PutUint32(b[sbOffCreatorOS:], sb.creatorOS)
	binary.LittleEndian.PutUint32(b[sbOffRevLevel:], sb.revLevel)
	binary.LittleEndian.PutUint16(b[sbOffDefResUID:], sb.defResUID)
	binary.LittleEndian.PutUint16(b[sbOffDefResGID:], sb.defResGID)
	binary.LittleEndian.PutUint32(b[sbOffFirstInode:], sb.firstInode)
	binary.LittleEndian.PutUint16(b[sbOffInodeSize:], sb.inodeSize)
	binary.LittleEndian.PutUint16(b[sbOffBlockGroupNr:], sb.blockGroupNr)
	binary.LittleEndian.PutUint32(b[sbOffFeatureCompat:], sb.featureCompat)
	binary.LittleEndian.PutUint32(b[sbOffFeatureIncompat:], sb.featureIncompat)
	binary.LittleEndian.PutUint32(b[sbOffFeatureROCompat:], sb.featureROCompat)
	copy(b[sbOffUUID:sbOffUUID+16], sb.uuid[:])
	copy(b[sbOffVolumeName:sbOffVolumeName+16], sb.volumeName[:])

	copy(sb.raw[:], b)
	return b
}

func (sb *superblock) blockSize() uint32 { return 1024 << sb.logBlockSize }
func (sb *superblock) fragSize() uint32  { return 1024 << sb.logFragSize }

// groupCount computes the block-group count the two independent ways
// spec.md §4.2 requires, returning an error if they disagree.
func (sb *superblock) groupCount() (uint32, error) {
	const op = "mount"
	byBlocks := ceilDiv(sb.blocksCount, sb.blocksPerGroup)
	byInodes := ceilDiv(sb.inodesCount, sb.inodesPerGroup)
	if byBlocks != byInodes {
		return 0, formatErrorf(op, "group count mismatch: %d by blocks vs %d by inodes", byBlocks, byInodes)
	}
	return byBlocks, nil
}

func ceilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// validateFeatures applies spec.md §3/§4.2's feature-flag rule, returning
// whether the mount may be read-write.
func (sb *superblock) validateFeatures() (rw bool, err error) {
	const op = "mount"
	unknown := sb.featureROCompat &^ supportedROCompat
	if unknown != 0 {
		return false, formatErrorf(op, "unsupported read-only-compat features %#x", unknown)
	}
	if sb.featureROCompat != supportedROCompat {
		// understood, but not the exact read-write-eligible set
		return false, nil
	}
	if sb.featureIncompat != requiredRWFeatures {
		return false, nil
	}
	return true, nil
}

func (sb *superblock) String() string {
	return fmt.Sprintf("ext2 superblock: uuid=%s %d/%d inodes free, %d/%d blocks free, block size %d",
		sb.uuid.String(), sb.freeInodes, sb.inodesCount, sb.freeBlocks, sb.blocksCount, sb.blockSize())
}
