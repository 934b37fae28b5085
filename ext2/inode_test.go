package ext2

import "testing"

func TestInodeRoundTrip(t *testing.T) {
	in := &inode{
		number:        5,
		mode:          uint16(fileTypeRegular) | 0o644,
		owner:         1000,
		group:         1000,
		sizeLower:     4096,
		links:         1,
		sectors:       8,
		size64Capable: true,
	}
	in.block[0] = 10
	in.block[directPointerCount] = 20 // indirect1

	got, err := inodeFromBytes(in.toBytes(), 5, true)
	if err != nil {
		t.Fatalf("inodeFromBytes: %v", err)
	}
	if got.sizeLower != 4096 || got.links != 1 || got.block[0] != 10 || got.block[directPointerCount] != 20 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestInodeSize64OnlyForRegularFiles(t *testing.T) {
	dir := &inode{mode: uint16(fileTypeDirectory) | 0o755, sizeLower: 1024, size64Capable: true}
	dir.sizeUpper = 1 // should never be written back for a directory
	b := dir.toBytes()
	got, err := inodeFromBytes(b, 1, true)
	if err != nil {
		t.Fatalf("inodeFromBytes: %v", err)
	}
	if got.size64() != 1024 {
		t.Fatalf("size64() = %d, want 1024 (sizeUpper ignored for directories)", got.size64())
	}
}

func TestInodeSize64RegularFile(t *testing.T) {
	f := &inode{mode: uint16(fileTypeRegular) | 0o644, size64Capable: true}
	f.setSize64(1<<33 + 10)

	got, err := inodeFromBytes(f.toBytes(), 1, true)
	if err != nil {
		t.Fatalf("inodeFromBytes: %v", err)
	}
	if got.size64() != 1<<33+10 {
		t.Fatalf("size64() = %d, want %d", got.size64(), uint64(1<<33+10))
	}
}

func TestInodeDeletedAndDirectBlockCount(t *testing.T) {
	in := &inode{links: 0}
	if !in.deleted() {
		t.Fatal("expected links=0 to report deleted")
	}
	in.block[0] = 1
	in.block[2] = 1
	if got := in.directBlockCount(); got != 2 {
		t.Fatalf("directBlockCount() = %d, want 2", got)
	}
}
