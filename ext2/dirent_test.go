package ext2

import "testing"

func TestEntrySizeAligns(t *testing.T) {
	cases := []struct {
		nameLen int
		want    uint16
	}{
		{0, 8},
		{1, 12},
		{4, 12},
		{5, 16},
		{255, 264},
	}
	for _, c := range cases {
		if got := entrySize(c.nameLen); got != c.want {
			t.Errorf("entrySize(%d) = %d, want %d", c.nameLen, got, c.want)
		}
	}
}

func TestDirEntRoundTrip(t *testing.T) {
	e := &dirEnt{inode: 42, nameLen: 5, typeHint: dirFileTypeRegular, name: "hello"}
	e.recLen = entrySize(5)

	b := e.toBytes(true)
	got, err := dirEntFromBytes(b)
	if err != nil {
		t.Fatalf("dirEntFromBytes: %v", err)
	}
	if got.inode != e.inode || got.recLen != e.recLen || got.nameLen != e.nameLen || got.name != e.name {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
	if got.typeHint != dirFileTypeRegular {
		t.Fatalf("typeHint = %d, want %d", got.typeHint, dirFileTypeRegular)
	}
}

func TestDirEntNoTypeHintWritesZero(t *testing.T) {
	e := &dirEnt{inode: 1, nameLen: 1, typeHint: dirFileTypeDir, name: "a"}
	e.recLen = entrySize(1)
	b := e.toBytes(false)
	if b[dirOffTypeHint] != 0 {
		t.Fatalf("typeHint byte = %d, want 0 when feature inactive", b[dirOffTypeHint])
	}
}

func TestDirEntFreeSlot(t *testing.T) {
	e := &dirEnt{inode: 0, recLen: 100}
	if !e.free() {
		t.Fatal("expected inode 0 to report free")
	}
}

func TestDirEntSlack(t *testing.T) {
	e := &dirEnt{nameLen: 1, recLen: 64}
	if got := e.slack(); got != 64-12 {
		t.Fatalf("slack() = %d, want %d", got, 64-12)
	}
}
