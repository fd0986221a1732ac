package zcore

import "encoding/binary"

// ReadByte reads a single byte. The caller is trusted to have validated the
// address against MemoryLength; this mirrors the teacher's unchecked
// zcore.ReadZByte — bounds violations panic with a slice-index error rather
// than being silently tolerated, since an out-of-range read is always an
// interpreter or story-file bug the caller (zmachine) turns into a
// structured AddressOutOfRange before it gets here.
func (s *Story) ReadByte(address uint32) uint8 {
	return s.bytes[address]
}

// ReadWord reads a big-endian 16-bit word. Odd addresses are tolerated
// (spec.md §4.1: "word access is unaligned-tolerant").
func (s *Story) ReadWord(address uint32) uint16 {
	return binary.BigEndian.Uint16(s.bytes[address : address+2])
}

// WriteByte writes a single byte. Returns false (and leaves memory
// untouched) if the address falls in static or high memory.
func (s *Story) WriteByte(address uint32, value uint8) bool {
	if address >= uint32(s.StaticMemoryBase) {
		return false
	}
	s.bytes[address] = value
	return true
}

// WriteWord writes a big-endian 16-bit word, subject to the same
// static-memory boundary as WriteByte.
func (s *Story) WriteWord(address uint32, value uint16) bool {
	if address+1 >= uint32(s.StaticMemoryBase) {
		return false
	}
	binary.BigEndian.PutUint16(s.bytes[address:address+2], value)
	return true
}

// InBounds reports whether address is a valid read address for this image.
func (s *Story) InBounds(address uint32) bool {
	return address < uint32(len(s.bytes))
}

// IsDynamic reports whether address lies in the writable dynamic-memory
// region (below StaticMemoryBase).
func (s *Story) IsDynamic(address uint32) bool {
	return address < uint32(s.StaticMemoryBase)
}

// ReadSlice returns a read-only view of [start, end). Used by the text
// codec, dictionary parser, and Quetzal's dynamic-memory diff.
func (s *Story) ReadSlice(start, end uint32) []uint8 {
	return s.bytes[start:end]
}

// DynamicMemory returns the mutable dynamic-memory region as a byte slice
// (bytes [0, StaticMemoryBase)), used for Quetzal snapshotting.
func (s *Story) DynamicMemory() []uint8 {
	return s.bytes[:s.StaticMemoryBase]
}

// SetDynamicMemory overwrites the dynamic-memory region wholesale, used by
// Quetzal restore. The slice must be exactly StaticMemoryBase bytes long.
func (s *Story) SetDynamicMemory(data []uint8) bool {
	if len(data) != int(s.StaticMemoryBase) {
		return false
	}
	copy(s.bytes[:s.StaticMemoryBase], data)
	return true
}
