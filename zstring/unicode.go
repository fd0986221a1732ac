package zstring

import "github.com/kestrel-if/zengine/zcore"

// DefaultUnicodeTranslationTable is the Standard's default ZSCII
// characters 155-223 mapping to Latin-1 accented characters, used when a
// story doesn't supply its own unicode translation table (header
// extension word 3).
var DefaultUnicodeTranslationTable = map[rune]uint8{
	'ä': 155, 'ö': 156, 'ü': 157, 'Ä': 158, 'Ö': 159, 'Ü': 160, 'ß': 161,
	'»': 162, '«': 163, 'ë': 164, 'ï': 165, 'ÿ': 166, 'Ë': 167, 'Ï': 168,
	'á': 169, 'é': 170, 'í': 171, 'ó': 172, 'ú': 173, 'ý': 174, 'Á': 175,
	'É': 176, 'Í': 177, 'Ó': 178, 'Ú': 179, 'Ý': 180, 'à': 181, 'è': 182,
	'ì': 183, 'ò': 184, 'ù': 185, 'À': 186, 'È': 187, 'Ì': 188, 'Ò': 189,
	'Ù': 190, 'â': 191, 'ê': 192, 'î': 193, 'ô': 194, 'û': 195, 'Â': 196,
	'Ê': 197, 'Î': 198, 'Ô': 199, 'Û': 200, 'å': 201, 'Å': 202, 'ø': 203,
	'Ø': 204, 'ã': 205, 'ñ': 206, 'õ': 207, 'Ã': 208, 'Ñ': 209, 'Õ': 210,
	'æ': 211, 'Æ': 212, 'ç': 213, 'Ç': 214, 'þ': 215, 'ð': 216, 'Þ': 217,
	'Ð': 218, '£': 219, 'œ': 220, 'Œ': 221, '¡': 222, '¿': 223,
}

// ZsciiToUnicode maps a ZSCII byte to a Unicode scalar, consulting the
// story's custom unicode translation table when present (v5+ header
// extension word 3) and falling back to the Standard's default table.
func ZsciiToUnicode(zchr uint8, story *zcore.Story) (rune, bool) {
	if zchr >= 32 && zchr <= 126 {
		return rune(zchr), true
	}

	table := unicodeTable(story)
	for r, ix := range table {
		if ix == zchr {
			return r, true
		}
	}
	return 0, false
}

// UnicodeToZscii is the inverse of ZsciiToUnicode, used by print_unicode's
// validity check and by input normalization.
func UnicodeToZscii(r rune, story *zcore.Story) (uint8, bool) {
	if r >= 32 && r <= 126 {
		return uint8(r), true
	}
	zchr, ok := unicodeTable(story)[r]
	return zchr, ok
}

func unicodeTable(story *zcore.Story) map[rune]uint8 {
	if story.UnicodeTranslationTableBase == 0 {
		return DefaultUnicodeTranslationTable
	}

	table := make(map[rune]uint8)
	base := uint32(story.UnicodeTranslationTableBase)
	if !story.InBounds(base) {
		return DefaultUnicodeTranslationTable
	}
	count := story.ReadByte(base)
	for i := 0; i < int(count); i++ {
		entryAddr := base + 1 + uint32(i)*2
		if !story.InBounds(entryAddr + 1) {
			break
		}
		table[rune(story.ReadWord(entryAddr))] = uint8(155 + i)
	}
	return table
}
