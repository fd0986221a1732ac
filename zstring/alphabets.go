// Package zstring implements the Z-machine's packed-text codec: ZSCII,
// Z-character decoding/encoding, abbreviation expansion, and the alphabet
// state machine of spec.md §3/§4.2.
package zstring

import "github.com/kestrel-if/zengine/zcore"

var a0Default = [...]uint8{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var a1Default = [...]uint8{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}
var a2V1 = [...]uint8{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '<', '-', ':', '(', ')'}
var a2Default = [...]uint8{'\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

// Alphabet identifies one of the three 26-entry Z-character alphabets.
type Alphabet int

const (
	A0 Alphabet = iota
	A1
	A2
)

// Alphabets holds the (possibly custom, v5+) alphabet tables for a loaded
// story, resolved once at load time so decode/encode never touch the
// header again.
type Alphabets struct {
	version uint8
	a0      [26]uint8
	a1      [26]uint8
	a2      [26]uint8
}

// Load resolves the alphabet tables for a story: the default tables for
// v1-4, or the custom 78-byte table at header word 0x34 for v5+ when
// present (spec.md's v5 extension point).
func Load(story *zcore.Story) *Alphabets {
	alphabets := &Alphabets{version: story.Version}

	if story.Version == 1 {
		copy(alphabets.a0[:], a0Default[:])
		copy(alphabets.a1[:], a1Default[:])
		copy(alphabets.a2[:], a2V1[:])
		return alphabets
	}

	copy(alphabets.a0[:], a0Default[:])
	copy(alphabets.a1[:], a1Default[:])
	copy(alphabets.a2[:], a2Default[:])

	if story.Version >= 5 && story.AlphabetTableBase != 0 {
		base := uint32(story.AlphabetTableBase)
		if story.InBounds(base + 77) {
			for i := 0; i < 26; i++ {
				alphabets.a0[i] = story.ReadByte(base + uint32(i))
				alphabets.a1[i] = story.ReadByte(base + 26 + uint32(i))
				alphabets.a2[i] = story.ReadByte(base + 52 + uint32(i))
			}
			// Per the Standard, position 2 of A2 is always the newline
			// escape regardless of what the custom table says.
			alphabets.a2[1] = '\n'
		}
	}

	return alphabets
}

func (a *Alphabets) char(alphabet Alphabet, zchar uint8) uint8 {
	ix := zchar - 6
	switch alphabet {
	case A0:
		return a.a0[ix]
	case A1:
		return a.a1[ix]
	default:
		if a.version == 1 {
			return a.a2[zchar-7]
		}
		return a.a2[zchar-7]
	}
}

// encodeIndexA0 returns the Z-character (6..31) for a lowercase ASCII byte in
// alphabet A0, used by the dictionary-key encoder.
func (a *Alphabets) encodeIndexA0(c uint8) (uint8, bool) {
	for i, b := range a.a0 {
		if b == c {
			return uint8(i) + 6, true
		}
	}
	return 0, false
}
