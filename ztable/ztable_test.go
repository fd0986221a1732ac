package ztable_test

import (
	"testing"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/ztable"
)

func newStory(t *testing.T, tail []uint8) *zcore.Story {
	t.Helper()
	data := make([]uint8, 64+len(tail))
	data[0x00] = 3
	data[0x0e], data[0x0f] = uint8(len(data)>>8), uint8(len(data))
	copy(data[64:], tail)

	story, err := zcore.Load(data)
	if err != nil {
		t.Fatalf("zcore.Load: %v", err)
	}
	return story
}

func TestPrintTable(t *testing.T) {
	// Two 3-wide rows with a 1-byte skip between them.
	story := newStory(t, []uint8{'a', 'b', 'c', '_', 'd', 'e', 'f'})

	got := ztable.PrintTable(story, 64, 3, 2, 1)
	want := "abc\ndef"
	if got != want {
		t.Errorf("PrintTable = %q, want %q", got, want)
	}
}

func TestPrintTableStopsAtMemoryEnd(t *testing.T) {
	story := newStory(t, []uint8{'a', 'b', 'c'})

	// height 0 means "until memory runs out"; only one 3-wide row fits.
	got := ztable.PrintTable(story, 64, 3, 0, 0)
	if got != "abc" {
		t.Errorf("PrintTable = %q, want %q", got, "abc")
	}
}

func TestScanTableByteField(t *testing.T) {
	story := newStory(t, []uint8{1, 2, 3, 42, 5})

	addr := ztable.ScanTable(story, 42, 64, 5, 1)
	if addr != 64+3 {
		t.Errorf("ScanTable = 0x%x, want 0x%x", addr, 64+3)
	}

	miss := ztable.ScanTable(story, 99, 64, 5, 1)
	if miss != 0 {
		t.Errorf("ScanTable (miss) = 0x%x, want 0", miss)
	}
}

func TestScanTableWordField(t *testing.T) {
	story := newStory(t, []uint8{0x00, 0x01, 0x12, 0x34, 0x00, 0x02})

	addr := ztable.ScanTable(story, 0x1234, 64, 3, 0b1000_0010)
	if addr != 64+2 {
		t.Errorf("ScanTable = 0x%x, want 0x%x", addr, 64+2)
	}
}

func TestCopyTableNonOverlapping(t *testing.T) {
	story := newStory(t, []uint8{1, 2, 3, 0, 0, 0})

	ztable.CopyTable(story, 64, 67, 3)
	got := story.ReadSlice(67, 70)
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("copied bytes = %v, want [1 2 3]", got)
	}
}

func TestCopyTableZeroFill(t *testing.T) {
	story := newStory(t, []uint8{9, 9, 9})

	ztable.CopyTable(story, 64, 0, 3)
	got := story.ReadSlice(64, 67)
	if got[0] != 0 || got[1] != 0 || got[2] != 0 {
		t.Errorf("zero-filled bytes = %v, want [0 0 0]", got)
	}
}

func TestCopyTableNegativeSizeOverlapSmears(t *testing.T) {
	// A negative size explicitly selects the Standard's unsafe low-to-high
	// byte copy: when the destination overlaps one byte past the source,
	// each byte read has already been overwritten by the previous step,
	// smearing the first byte across the whole range.
	story := newStory(t, []uint8{1, 2, 3, 4})

	ztable.CopyTable(story, 64, 65, -3)
	got := story.ReadSlice(64, 68)
	if got[0] != 1 || got[1] != 1 || got[2] != 1 || got[3] != 1 {
		t.Errorf("copied bytes = %v, want [1 1 1 1]", got)
	}
}
