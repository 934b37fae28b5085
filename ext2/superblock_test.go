package ext2

import "testing"

func freshSuperblockBytes() []byte {
	sb := &superblock{
		inodesCount:     16,
		blocksCount:     32,
		blocksPerGroup:  32,
		inodesPerGroup:  16,
		magic:           superblockMagic,
		revLevel:        1,
		inodeSize:       128,
		featureROCompat: featureROCompatDirType,
		featureIncompat: featureIncompatSparseSuper | featureIncompatSize64,
	}
	return sb.toBytes()
}

func TestSuperblockRoundTrip(t *testing.T) {
	b := freshSuperblockBytes()
	sb, err := superblockFromBytes(b)
	if err != nil {
		t.Fatalf("superblockFromBytes: %v", err)
	}
	if sb.blocksCount != 32 || sb.inodesCount != 16 {
		t.Fatalf("round trip mismatch: %+v", sb)
	}
	if sb.blockSize() != 1024 {
		t.Fatalf("blockSize() = %d, want 1024", sb.blockSize())
	}
}

func TestSuperblockRejectsBadMagic(t *testing.T) {
	b := freshSuperblockBytes()
	b[0x38] = 0x00
	if _, err := superblockFromBytes(b); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestSuperblockGroupCountMismatch(t *testing.T) {
	sb, err := superblockFromBytes(freshSuperblockBytes())
	if err != nil {
		t.Fatalf("superblockFromBytes: %v", err)
	}
	sb.inodesPerGroup = 4 // now disagrees with blocksPerGroup-derived count
	if _, err := sb.groupCount(); err == nil {
		t.Fatal("expected group count mismatch error")
	}
}

func TestValidateFeaturesReadWrite(t *testing.T) {
	sb, _ := superblockFromBytes(freshSuperblockBytes())
	rw, err := sb.validateFeatures()
	if err != nil {
		t.Fatalf("validateFeatures: %v", err)
	}
	if !rw {
		t.Fatal("expected read-write eligible with exact supported flag set")
	}
}

func TestValidateFeaturesUnknownROCompatRejected(t *testing.T) {
	sb, _ := superblockFromBytes(freshSuperblockBytes())
	sb.featureROCompat |= 0x8000
	if _, err := sb.validateFeatures(); err == nil {
		t.Fatal("expected error for unrecognized read-only-compat bit")
	}
}

func TestValidateFeaturesPartialIncompatIsReadOnly(t *testing.T) {
	sb, _ := superblockFromBytes(freshSuperblockBytes())
	sb.featureIncompat = featureIncompatSparseSuper // missing SIZE64
	rw, err := sb.validateFeatures()
	if err != nil {
		t.Fatalf("validateFeatures: %v", err)
	}
	if rw {
		t.Fatal("expected read-only mount when incompat set is not exactly the required set")
	}
}

func TestGroupDescriptorRoundTrip(t *testing.T) {
	gd := &groupDescriptor{blockBitmap: 3, inodeBitmap: 4, inodeTable: 5, freeBlocks: 25, freeInodes: 14, directoryAmt: 1}
	got, err := groupDescriptorFromBytes(gd.toBytes())
	if err != nil {
		t.Fatalf("groupDescriptorFromBytes: %v", err)
	}
	if got.blockBitmap != 3 || got.inodeBitmap != 4 || got.inodeTable != 5 || got.freeBlocks != 25 || got.freeInodes != 14 || got.directoryAmt != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestBgdTableBlock(t *testing.T) {
	if got := bgdTableBlock(1024); got != 2 {
		t.Fatalf("bgdTableBlock(1024) = %d, want 2", got)
	}
	if got := bgdTableBlock(4096); got != 1 {
		t.Fatalf("bgdTableBlock(4096) = %d, want 1", got)
	}
}
