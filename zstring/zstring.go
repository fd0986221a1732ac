package zstring

import (
	"fmt"
	"strings"

	"github.com/kestrel-if/zengine/zcore"
)

// DecodeError reports a malformed encoded string (nested abbreviation,
// truncated escape sequence).
type DecodeError struct {
	Address uint32
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("zstring decode error at 0x%x: %s", e.Address, e.Reason)
}

// Decode unpacks the Z-character string starting at addr, returning the
// decoded text and the address of the byte following the terminating word.
// Abbreviation references are expanded inline; per spec.md §4.2 they may
// not themselves contain a further abbreviation reference, which is
// enforced with a depth flag rather than silently recursing.
func Decode(story *zcore.Story, alphabets *Alphabets, addr uint32) (string, uint32, error) {
	return decode(story, alphabets, addr, false)
}

func decode(story *zcore.Story, alphabets *Alphabets, addr uint32, insideAbbreviation bool) (string, uint32, error) {
	version := story.Version
	var zchars []uint8
	ptr := addr

	for {
		if !story.InBounds(ptr + 1) {
			return "", ptr, &DecodeError{Address: addr, Reason: "string runs past end of image"}
		}
		word := story.ReadWord(ptr)
		ptr += 2

		zchars = append(zchars, uint8((word>>10)&0b11111), uint8((word>>5)&0b11111), uint8(word&0b11111))

		if word>>15 == 1 {
			break
		}
	}

	var sb strings.Builder
	baseAlphabet := A0
	currentAlphabet := A0
	nextAlphabet := A0

	for i := 0; i < len(zchars); i++ {
		zchr := zchars[i]
		currentAlphabet = nextAlphabet
		nextAlphabet = baseAlphabet

		switch {
		case zchr == 0:
			sb.WriteByte(' ')

		case version == 1 && zchr == 1:
			sb.WriteByte('\n')

		// Only v3-5 stories reach decode (zcore.Load rejects anything
		// else), so this case never actually competes with the v1 shift
		// cases below it for zchr 2/3. If v1/v2 support is ever added,
		// confirm the real v2 alphabet table doesn't also use 2/3 as
		// shift characters before relying on this ordering.
		case version >= 2 && zchr <= 3:
			if insideAbbreviation {
				return "", ptr, &DecodeError{Address: addr, Reason: "abbreviation reference inside an abbreviation"}
			}
			if i+1 >= len(zchars) {
				return "", ptr, &DecodeError{Address: addr, Reason: "truncated abbreviation reference"}
			}
			x := zchars[i+1]
			i++
			abbrevText, err := expandAbbreviation(story, alphabets, zchr, x)
			if err != nil {
				return "", ptr, err
			}
			sb.WriteString(abbrevText)

		case version == 1 && zchr == 2:
			nextAlphabet = (nextAlphabet + 1) % 3
		case version == 1 && zchr == 3:
			nextAlphabet = (nextAlphabet + 2) % 3

		case zchr == 4:
			if version >= 3 {
				nextAlphabet = (nextAlphabet + 1) % 3
			} else {
				baseAlphabet = (baseAlphabet + 1) % 3
				nextAlphabet = baseAlphabet
			}
		case zchr == 5:
			if version >= 3 {
				nextAlphabet = (nextAlphabet + 2) % 3
			} else {
				baseAlphabet = (baseAlphabet + 2) % 3
				nextAlphabet = baseAlphabet
			}

		case currentAlphabet == A2 && zchr == 6:
			if i+2 >= len(zchars) {
				return "", ptr, &DecodeError{Address: addr, Reason: "truncated ZSCII escape"}
			}
			raw := (zchars[i+1] << 5) | zchars[i+2]
			i += 2
			sb.WriteByte(raw)

		default:
			sb.WriteByte(alphabets.char(currentAlphabet, zchr))
		}
	}

	return sb.String(), ptr, nil
}

func expandAbbreviation(story *zcore.Story, alphabets *Alphabets, z, x uint8) (string, error) {
	abbrIx := 32*(uint16(z)-1) + uint16(x)
	entryAddr := uint32(story.AbbreviationTableBase) + 2*uint32(abbrIx)
	if !story.InBounds(entryAddr + 1) {
		return "", &DecodeError{Address: entryAddr, Reason: "abbreviation table entry out of range"}
	}
	strAddr := 2 * uint32(story.ReadWord(entryAddr))

	text, _, err := decode(story, alphabets, strAddr, true)
	return text, err
}

// EncodeDictionaryKey folds s to lowercase ZSCII, maps it through alphabet
// A0 (falling back to a ZSCII escape for characters A0 doesn't contain),
// pads with the A0 shift-character 5, and packs the result into the
// canonical 4-byte (v3) or 6-byte (v4+) dictionary key, terminator bit set
// on the final word.
func EncodeDictionaryKey(s string, alphabets *Alphabets, version uint8) []uint8 {
	resolution := 6
	if version >= 4 {
		resolution = 9
	}

	zchars := make([]uint8, 0, resolution)
	for _, r := range strings.ToLower(s) {
		if len(zchars) >= resolution {
			break
		}
		c := uint8(r)
		if ix, ok := alphabets.encodeIndexA0(c); ok {
			zchars = append(zchars, ix)
		} else {
			zchars = append(zchars, 5, 6, (c>>5)&0b11111, c&0b11111)
		}
	}
	for len(zchars) < resolution {
		zchars = append(zchars, 5)
	}
	zchars = zchars[:resolution]

	numWords := resolution / 3
	out := make([]uint8, 0, numWords*2)
	for w := 0; w < numWords; w++ {
		word := uint16(zchars[w*3])<<10 | uint16(zchars[w*3+1])<<5 | uint16(zchars[w*3+2])
		if w == numWords-1 {
			word |= 0x8000
		}
		out = append(out, uint8(word>>8), uint8(word))
	}
	return out
}
