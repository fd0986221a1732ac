// Package ztable implements the Z-machine's generic table opcodes:
// print_table, scan_table, and copy_table (spec.md §4.6).
package ztable

import (
	"strings"

	"github.com/kestrel-if/zengine/zcore"
)

// PrintTable renders a rectangular block of ZSCII text laid out width
// columns wide, height rows tall (0 means "until memory runs out"), with
// skip extra bytes of stride between rows.
func PrintTable(story *zcore.Story, addr uint32, width, height, skip uint16) string {
	var s strings.Builder

	rows := height
	if rows == 0 {
		rows = 0xFFFF
	}

	for row := uint16(0); row < rows; row++ {
		rowStart := addr + uint32(row)*(uint32(width)+uint32(skip))
		if !story.InBounds(rowStart + uint32(width) - 1) {
			break
		}
		if row != 0 {
			s.WriteByte('\n')
		}
		for col := uint16(0); col < width; col++ {
			s.WriteByte(story.ReadByte(rowStart + uint32(col)))
		}
	}

	return s.String()
}

// ScanTable searches length entries of form's field width (low 7 bits,
// byte unless bit 7 is set for word-sized fields) starting at addr for
// test, returning the matching entry's address or 0.
func ScanTable(story *zcore.Story, test uint16, addr uint32, length uint16, form uint16) uint32 {
	fieldSize := form & 0b0111_1111
	checkWord := form&0b1000_0000 != 0
	if fieldSize == 0 {
		return 0
	}

	ptr := addr
	for i := uint16(0); i < length; i++ {
		if !story.InBounds(ptr + uint32(fieldSize) - 1) {
			return 0
		}
		var value uint16
		if checkWord {
			value = story.ReadWord(ptr)
		} else {
			value = uint16(story.ReadByte(ptr))
		}
		if value == test {
			return ptr
		}
		ptr += uint32(fieldSize)
	}

	return 0
}

// CopyTable copies size bytes from first to second, or zero-fills second
// when the caller passes second == 0 (the "zero out" sentinel). A
// positive size copies via a staging buffer so an overlapping move never
// corrupts its own source; a negative size copies byte-by-byte low-to-
// high, allowing (and matching the Standard's specified) self-overlapping
// behaviour.
func CopyTable(story *zcore.Story, first, second uint32, size int16) {
	sizeAbs := uint32(size)
	if size < 0 {
		sizeAbs = uint32(-int32(size))
	}

	switch {
	case second == 0:
		for i := uint32(0); i < sizeAbs; i++ {
			story.WriteByte(first+i, 0)
		}
	case size >= 0:
		tmp := make([]uint8, sizeAbs)
		copy(tmp, story.ReadSlice(first, first+sizeAbs))
		for i, b := range tmp {
			story.WriteByte(second+uint32(i), b)
		}
	default:
		for i := uint32(0); i < sizeAbs; i++ {
			story.WriteByte(second+i, story.ReadByte(first+i))
		}
	}
}
