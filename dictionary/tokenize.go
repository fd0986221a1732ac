package dictionary

import (
	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zstring"
)

// token is one word found while scanning the text buffer, before it is
// written into the parse buffer.
type token struct {
	start uint32 // offset from the text buffer's first character byte
	length uint8
	dictionaryAddress uint32
}

func isSeparator(chr uint8, separators []uint8) bool {
	for _, s := range separators {
		if chr == s {
			return true
		}
	}
	return false
}

func tokenizeWord(story *zcore.Story, alphabets *zstring.Alphabets, dict *Dictionary, text []uint8, start uint32) token {
	s := string(text)
	key := zstring.EncodeDictionaryKey(s, alphabets, story.Version)
	return token{
		start:             start,
		length:            uint8(len(text)),
		dictionaryAddress: dict.Find(key),
	}
}

// Tokenize splits the text in textBuffer (a "read" opcode input buffer)
// into words on spaces and the dictionary's separator set, looks each word
// up, and writes the result into parseBuffer. Separators that are not
// spaces are themselves tokenized as one-character words, per spec.md
// §4.4. When leaveWordsBlank is true, the dictionary-address field of a
// not-found word's entry is left as it was in the parse buffer (only its
// length and start bytes are written), which is the tokenise opcode's
// "don't write unrecognised words" flag; found words are always written.
//
// If the parse buffer declares fewer maximum tokens than were found, the
// token list is truncated rather than treated as fatal (the Standard
// leaves the overflow behaviour to the interpreter).
func Tokenize(story *zcore.Story, alphabets *zstring.Alphabets, dict *Dictionary, textBuffer, parseBuffer uint32, leaveWordsBlank bool) error {
	maxTokens := story.ReadByte(parseBuffer)

	textStart := textBuffer + 1
	var charCount uint32
	if story.Version >= 5 {
		charCount = uint32(story.ReadByte(textStart))
		textStart++
	} else {
		// v1-4 buffers are NUL-terminated; scan to find the length.
		for p := textStart; story.InBounds(p); p++ {
			if story.ReadByte(p) == 0 {
				charCount = p - textStart
				break
			}
		}
	}

	var tokens []token
	wordStart := textStart
	var p uint32
	for p = textStart; p < textStart+charCount; p++ {
		chr := story.ReadByte(p)
		switch {
		case chr == ' ':
			if p > wordStart {
				tokens = append(tokens, tokenizeWord(story, alphabets, dict, story.ReadSlice(wordStart, p), wordStart-textStart))
			}
			wordStart = p + 1
		case isSeparator(chr, dict.Header.Separators):
			if p > wordStart {
				tokens = append(tokens, tokenizeWord(story, alphabets, dict, story.ReadSlice(wordStart, p), wordStart-textStart))
			}
			tokens = append(tokens, tokenizeWord(story, alphabets, dict, story.ReadSlice(p, p+1), p-textStart))
			wordStart = p + 1
		}
	}
	if p > wordStart {
		tokens = append(tokens, tokenizeWord(story, alphabets, dict, story.ReadSlice(wordStart, p), wordStart-textStart))
	}

	if uint8(len(tokens)) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	ptr := parseBuffer + 1
	story.WriteByte(ptr, uint8(len(tokens)))
	ptr++
	for _, tk := range tokens {
		if tk.dictionaryAddress == 0 && leaveWordsBlank {
			// The "don't overwrite unrecognised words" flag (tokenise's
			// second argument): skip the dictionary-address field so a
			// caller-seeded value survives, but still record length/start.
			ptr += 2
			story.WriteByte(ptr, tk.length)
			story.WriteByte(ptr+1, uint8(tk.start))
			ptr += 2
			continue
		}
		story.WriteByte(ptr, uint8(tk.dictionaryAddress>>8))
		story.WriteByte(ptr+1, uint8(tk.dictionaryAddress))
		story.WriteByte(ptr+2, tk.length)
		story.WriteByte(ptr+3, uint8(tk.start))
		ptr += 4
	}
	return nil
}
