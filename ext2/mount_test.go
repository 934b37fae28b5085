package ext2

import "testing"

func openTestFS(t *testing.T) (*FileSystem, *memDevice) {
	t.Helper()
	dev := buildTestImage()
	fs, err := Open(dev, &Params{Clock: func() uint32 { return dev.clock }})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return fs, dev
}

func TestOpenValidatesAndDerivesGeometry(t *testing.T) {
	fs, _ := openTestFS(t)

	if !fs.ReadWrite() {
		t.Fatal("expected read-write mount given SPARSE_SUPER|SIZE64 and DIRTYPE flags")
	}
	if fs.groups != 1 {
		t.Fatalf("groups = %d, want 1", fs.groups)
	}
	if fs.blockSize != 1024 {
		t.Fatalf("blockSize = %d, want 1024", fs.blockSize)
	}
	if !fs.size64Capable || !fs.hasTypeHint {
		t.Fatal("expected both size64 and dir-type-hint features active")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dev := buildTestImage()
	dev.data[superblockOffset+0x38] = 0x00 // corrupt magic low byte
	if _, err := Open(dev, nil); err == nil {
		t.Fatal("expected mount failure on bad magic")
	}
}

func TestOpenRejectsGroupCountMismatch(t *testing.T) {
	dev := buildTestImage()
	// bump blocksCount without touching blocksPerGroup, so the two group
	// count computations disagree.
	dev.data[superblockOffset+0x04] = 0xFF
	if _, err := Open(dev, nil); err == nil {
		t.Fatal("expected mount failure on group count mismatch")
	}
}

func TestWalkRoot(t *testing.T) {
	fs, _ := openTestFS(t)
	if got := fs.Walk("/"); got != rootInodeNumber {
		t.Fatalf("Walk(\"/\") = %d, want %d", got, rootInodeNumber)
	}
	if got := fs.Walk(""); got != 0 {
		t.Fatalf("Walk(\"\") = %d, want 0", got)
	}
	if got := fs.Walk("no-leading-slash"); got != 0 {
		t.Fatalf("Walk without leading slash = %d, want 0", got)
	}
}

func TestReadDirRoot(t *testing.T) {
	fs, _ := openTestFS(t)
	entries, err := fs.ReadDir(rootInodeNumber)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ReadDir root = %v, want no entries beyond . and .. (filtered)", entries)
	}
}

func TestStatRoot(t *testing.T) {
	fs, _ := openTestFS(t)
	st, err := fs.Stat(rootInodeNumber)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !st.Mode.IsDir() {
		t.Fatalf("root Mode = %v, want directory", st.Mode)
	}
	if st.Links != 2 {
		t.Fatalf("root Links = %d, want 2", st.Links)
	}
}

func TestAllocateBlockSkipsBitSevenQuirk(t *testing.T) {
	fs, _ := openTestFS(t)
	// Block 8 (bit index 7 of the block bitmap) is left genuinely clear by
	// buildTestImage but must never be handed out, by construction of the
	// reference bit-7-skip quirk (spec's Open Question, resolved here in
	// favor of exact compatibility).
	n, err := fs.allocateBlock()
	if err != nil {
		t.Fatalf("allocateBlock: %v", err)
	}
	if n == 8 {
		t.Fatalf("allocateBlock returned block 8, which the bit-7 quirk should have skipped")
	}
	if n != 9 {
		t.Fatalf("allocateBlock = %d, want 9 (first byte-1 free bit)", n)
	}
}

func TestAllocateInode(t *testing.T) {
	fs, _ := openTestFS(t)
	n, err := fs.allocateInode(uint16(fileTypeRegular) | 0o644)
	if err != nil {
		t.Fatalf("allocateInode: %v", err)
	}
	if n != 3 {
		t.Fatalf("allocateInode = %d, want 3 (inodes 1,2 already used)", n)
	}
	st, err := fs.Stat(n)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Mode.IsDir() || st.Mode&0o777 != 0o644 {
		t.Fatalf("Stat mode = %v, want regular 0644", st.Mode)
	}
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	fs, _ := openTestFS(t)
	n, err := fs.allocateInode(uint16(fileTypeRegular) | 0o644)
	if err != nil {
		t.Fatalf("allocateInode: %v", err)
	}

	payload := []byte("hello, ext2")
	written, err := fs.Write(n, payload, 0)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if written != len(payload) {
		t.Fatalf("Write returned %d, want %d", written, len(payload))
	}

	dst := make([]byte, len(payload))
	readN, err := fs.Read(n, dst, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if readN != len(payload) || string(dst) != string(payload) {
		t.Fatalf("Read = %q (%d bytes), want %q", dst[:readN], readN, payload)
	}

	st, err := fs.Stat(n)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size != uint64(len(payload)) {
		t.Fatalf("Stat.Size = %d, want %d", st.Size, len(payload))
	}
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	fs, _ := openTestFS(t)
	n, _ := fs.allocateInode(uint16(fileTypeRegular) | 0o644)
	if _, err := fs.Write(n, []byte("abc"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dst := make([]byte, 10)
	got, err := fs.Read(n, dst, 100)
	if err != nil {
		t.Fatalf("Read past EOF: %v", err)
	}
	if got != 0 {
		t.Fatalf("Read past EOF = %d bytes, want 0", got)
	}
}

func TestWriteOnReadOnlyMountFails(t *testing.T) {
	dev := buildTestImage()
	fs, err := Open(dev, &Params{ForceReadOnly: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fs.ReadWrite() {
		t.Fatal("expected ForceReadOnly to take effect")
	}
	if _, err := fs.Write(rootInodeNumber, []byte("x"), 0); err == nil {
		t.Fatal("expected write failure on read-only mount")
	}
}

func TestLinkAndUnlinkRoundTrip(t *testing.T) {
	fs, _ := openTestFS(t)
	target, err := fs.allocateInode(uint16(fileTypeRegular) | 0o644)
	if err != nil {
		t.Fatalf("allocateInode: %v", err)
	}

	if err := fs.Link(rootInodeNumber, "greeting.txt", target, dirFileTypeRegular); err != nil {
		t.Fatalf("Link: %v", err)
	}

	entries, err := fs.ReadDir(rootInodeNumber)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Name == "greeting.txt" && e.Inode == target {
			found = true
		}
	}
	if !found {
		t.Fatalf("ReadDir = %v, want entry greeting.txt -> %d", entries, target)
	}

	st, err := fs.Stat(target)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Links != 1 {
		t.Fatalf("target Links = %d, want 1 after one Link call", st.Links)
	}

	if got := fs.Walk("/greeting.txt"); got != target {
		t.Fatalf("Walk(/greeting.txt) = %d, want %d", got, target)
	}

	unlinked, err := fs.Unlink(rootInodeNumber, "greeting.txt")
	if err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if unlinked != target {
		t.Fatalf("Unlink returned %d, want %d", unlinked, target)
	}

	if got := fs.Walk("/greeting.txt"); got != 0 {
		t.Fatalf("Walk(/greeting.txt) after unlink = %d, want 0", got)
	}

	// link count reached 0: inode should be cascade-freed (links stays 0,
	// dtime set).
	st2, err := fs.Stat(target)
	if err != nil {
		t.Fatalf("Stat after unlink: %v", err)
	}
	if st2.Links != 0 {
		t.Fatalf("target Links after unlink = %d, want 0", st2.Links)
	}
}

func TestUnlinkMissingNameReturnsZero(t *testing.T) {
	fs, _ := openTestFS(t)
	got, err := fs.Unlink(rootInodeNumber, "does-not-exist")
	if err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if got != 0 {
		t.Fatalf("Unlink of missing name = %d, want 0", got)
	}
}

func TestLinkRejectsOversizedName(t *testing.T) {
	fs, _ := openTestFS(t)
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	if err := fs.Link(rootInodeNumber, string(long), rootInodeNumber, dirFileTypeRegular); err == nil {
		t.Fatal("expected failure on a 256-byte name")
	}
}
