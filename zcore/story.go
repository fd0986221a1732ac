// Package zcore loads a Z-machine story image and provides the primitive
// memory operations everything else in the runtime is built on: typed
// header fields, byte/word access, the static/dynamic write boundary, and
// packed-address translation.
package zcore

import "encoding/binary"

// Story is an immutable-once-loaded story image. The header fields are
// copied out at load time so callers don't need to remember byte offsets;
// the underlying bytes remain reachable for direct memory access.
type Story struct {
	bytes []uint8

	Version               uint8
	Flags1                uint8
	ReleaseNumber         uint16
	HighMemoryBase        uint16
	FirstInstruction      uint16
	DictionaryBase        uint16
	ObjectTableBase       uint16
	GlobalVariableBase    uint16
	StaticMemoryBase      uint16
	Flags2                uint16
	Serial                [6]uint8
	AbbreviationTableBase uint16
	declaredFileLength    uint16
	FileChecksum          uint16

	InterpreterNumber  uint8
	InterpreterVersion uint8
	ScreenHeightLines  uint8
	ScreenWidthChars   uint8
	ScreenWidthUnits   uint16
	ScreenHeightUnits  uint16
	FontWidth          uint8
	FontHeight         uint8

	RoutinesOffset uint16
	StringsOffset  uint16

	TerminatingCharTableBase uint16
	OutputStream3Width       uint16
	StandardRevision         uint16

	AlphabetTableBase             uint16
	ExtensionTableBaseAddress     uint16
	UnicodeTranslationTableBase   uint16
	HeaderExtensionWordCount      uint16
	StatusLineIsTimeBased         bool
}

// Load validates and parses a story image. It never mutates the supplied
// bytes (header fields that real interpreters stamp in-place — interpreter
// number, screen dimensions — are instead reported as available facts
// a host can choose to write via SetInterpreterInfo).
func Load(bytes []uint8) (*Story, error) {
	if len(bytes) < 64 {
		return nil, &LoadError{Reason: "image shorter than the 64-byte header"}
	}

	version := bytes[0x00]
	if version < 1 || version > 8 {
		return nil, &LoadError{Reason: "unrecognized version byte", Version: version}
	}
	if version < 3 || version > 5 {
		return nil, &LoadError{Reason: "only versions 3-5 are executable by this runtime", Version: version}
	}

	staticBase := binary.BigEndian.Uint16(bytes[0x0e:0x10])
	if int(staticBase) > len(bytes) {
		return nil, &LoadError{Reason: "static memory base beyond end of image"}
	}

	s := &Story{
		bytes:                 bytes,
		Version:               version,
		Flags1:                bytes[0x01],
		ReleaseNumber:         binary.BigEndian.Uint16(bytes[0x02:0x04]),
		HighMemoryBase:        binary.BigEndian.Uint16(bytes[0x04:0x06]),
		FirstInstruction:      binary.BigEndian.Uint16(bytes[0x06:0x08]),
		DictionaryBase:        binary.BigEndian.Uint16(bytes[0x08:0x0a]),
		ObjectTableBase:       binary.BigEndian.Uint16(bytes[0x0a:0x0c]),
		GlobalVariableBase:    binary.BigEndian.Uint16(bytes[0x0c:0x0e]),
		StaticMemoryBase:      staticBase,
		Flags2:                binary.BigEndian.Uint16(bytes[0x10:0x12]),
		AbbreviationTableBase: binary.BigEndian.Uint16(bytes[0x18:0x1a]),
		declaredFileLength:    binary.BigEndian.Uint16(bytes[0x1a:0x1c]),
		FileChecksum:          binary.BigEndian.Uint16(bytes[0x1c:0x1e]),
		InterpreterNumber:     bytes[0x1e],
		InterpreterVersion:    bytes[0x1f],
		ScreenHeightLines:     bytes[0x20],
		ScreenWidthChars:      bytes[0x21],
		ScreenWidthUnits:      binary.BigEndian.Uint16(bytes[0x22:0x24]),
		ScreenHeightUnits:     binary.BigEndian.Uint16(bytes[0x24:0x26]),
		FontWidth:             bytes[0x27],
		FontHeight:            bytes[0x26],
	}
	copy(s.Serial[:], bytes[0x12:0x18])

	if version >= 4 {
		s.RoutinesOffset = binary.BigEndian.Uint16(bytes[0x28:0x2a])
		s.StringsOffset = binary.BigEndian.Uint16(bytes[0x2a:0x2c])
	}
	s.TerminatingCharTableBase = binary.BigEndian.Uint16(bytes[0x2e:0x30])
	s.OutputStream3Width = binary.BigEndian.Uint16(bytes[0x30:0x32])
	s.StandardRevision = binary.BigEndian.Uint16(bytes[0x32:0x34])
	s.AlphabetTableBase = binary.BigEndian.Uint16(bytes[0x34:0x36])
	s.StatusLineIsTimeBased = s.Flags1&0b0000_0010 != 0

	extBase := binary.BigEndian.Uint16(bytes[0x36:0x38])
	s.ExtensionTableBaseAddress = extBase
	if extBase != 0 && int(extBase)+2 < len(bytes) {
		s.HeaderExtensionWordCount = s.ReadWord(uint32(extBase))
		if s.HeaderExtensionWordCount >= 3 && int(extBase)+8 <= len(bytes) {
			s.UnicodeTranslationTableBase = s.ReadWord(uint32(extBase) + 6)
		}
	}

	return s, nil
}

// SetInterpreterInfo stamps the interpreter-identity and display-capability
// header bytes a real host would fill in before the story starts executing.
// This is the one place the runtime writes header bytes directly; it is a
// one-shot call made by the host immediately after Load, matching what
// commercial interpreters do before handing control to the story.
func (s *Story) SetInterpreterInfo(number, version uint8, screenHeightLines, screenWidthChars uint8) {
	s.InterpreterNumber = number
	s.InterpreterVersion = version
	s.ScreenHeightLines = screenHeightLines
	s.ScreenWidthChars = screenWidthChars
	s.bytes[0x1e] = number
	s.bytes[0x1f] = version
	s.bytes[0x20] = screenHeightLines
	s.bytes[0x21] = screenWidthChars
	s.bytes[0x22] = 0
	s.bytes[0x23] = screenWidthChars
	s.bytes[0x24] = 0
	s.bytes[0x25] = screenHeightLines
	if s.Version <= 3 {
		s.bytes[0x01] |= 0b0010_0000 // split-screen available
	} else {
		s.bytes[0x01] |= 0b0010_1101 // colours, bold, italic, split-screen
	}
}

// FileLength returns the file length recorded in the header, expanded by
// the version-dependent scale factor spec.md §3 describes.
func (s *Story) FileLength() uint32 {
	var scale uint32
	switch {
	case s.Version <= 3:
		scale = 2
	case s.Version <= 5:
		scale = 4
	default:
		scale = 8
	}
	return uint32(s.declaredFileLength) * scale
}

// MemoryLength returns the number of bytes actually present in the image,
// which may exceed the declared file length for patched/truncated images.
func (s *Story) MemoryLength() uint32 {
	return uint32(len(s.bytes))
}

// VerifyChecksum recomputes the checksum over [0x40, file length) and
// compares it to the header-stored value. A mismatch is common in patched
// historical images and is never a fatal condition (spec.md §6) — callers
// surface the result as a one-time warning, not an error.
func (s *Story) VerifyChecksum() bool {
	length := s.FileLength()
	if length == 0 || length > uint32(len(s.bytes)) {
		return false
	}
	sum := uint16(0)
	for ix := uint32(0x40); ix < length; ix++ {
		sum += uint16(s.bytes[ix])
	}
	return sum == s.FileChecksum
}

// PackedAddress expands a packed routine or string address to a byte
// address, per spec.md §3's version-banded formula.
func (s *Story) PackedAddress(packed uint32, isString bool) uint32 {
	switch {
	case s.Version <= 3:
		return 2 * packed
	case s.Version <= 5:
		return 4 * packed
	case s.Version == 6 || s.Version == 7:
		offset := uint32(s.RoutinesOffset)
		if isString {
			offset = uint32(s.StringsOffset)
		}
		return 4*packed + 8*offset
	default: // v8
		return 8 * packed
	}
}

// Raw exposes the underlying bytes for read-only iteration (e.g. the
// disassembler's orphan sweep, or Quetzal's dynamic-memory diff). Callers
// must not write through the returned slice; use WriteByte/WriteWord.
func (s *Story) Raw() []uint8 {
	return s.bytes
}
