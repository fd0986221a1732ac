// Package dictionary implements the Z-machine's word dictionary and the
// input tokenizer that splits a text buffer into dictionary lookups
// (spec.md §4.4).
package dictionary

import (
	"bytes"
	"sort"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zstring"
)

// Header is the dictionary's fixed preamble: the input-code (separator)
// table and the entry layout that follows it.
type Header struct {
	Separators  []uint8
	EntryLength uint8
	EntryCount  int16
}

// Entry is one decoded dictionary word.
type Entry struct {
	Address     uint32
	EncodedWord []uint8
	Text        string
	Data        []uint8
}

// Dictionary is a parsed view of a story's dictionary table. Entries are
// kept in on-disk order; Find chooses binary or linear search per
// Header.EntryCount's sign, matching spec.md's "sorted unless the entry
// count is negative" rule.
type Dictionary struct {
	Header  Header
	Entries []Entry
	sorted  bool
}

// ParseError reports a malformed dictionary table.
type ParseError struct{ Reason string }

func (e *ParseError) Error() string { return "dictionary parse error: " + e.Reason }

// Parse decodes the dictionary table starting at story.DictionaryBase.
func Parse(story *zcore.Story, alphabets *zstring.Alphabets) (*Dictionary, error) {
	base := uint32(story.DictionaryBase)
	if !story.InBounds(base) {
		return nil, &ParseError{Reason: "dictionary base out of range"}
	}

	numSeparators := story.ReadByte(base)
	separators := story.ReadSlice(base+1, base+1+uint32(numSeparators))

	lengthAddr := base + 1 + uint32(numSeparators)
	entryLength := story.ReadByte(lengthAddr)
	entryCount := int16(story.ReadWord(lengthAddr + 1))

	header := Header{
		Separators:  separators,
		EntryLength: entryLength,
		EntryCount:  entryCount,
	}

	encodedWordLength := uint32(4)
	if story.Version >= 4 {
		encodedWordLength = 6
	}

	count := int(entryCount)
	if count < 0 {
		count = -count
	}

	entries := make([]Entry, count)
	entryPtr := lengthAddr + 3
	for i := 0; i < count; i++ {
		if !story.InBounds(entryPtr + uint32(entryLength)) {
			return nil, &ParseError{Reason: "dictionary entry runs past end of image"}
		}
		encodedWord := story.ReadSlice(entryPtr, entryPtr+encodedWordLength)
		text, _, err := zstring.Decode(story, alphabets, entryPtr)
		if err != nil {
			return nil, err
		}
		entries[i] = Entry{
			Address:     entryPtr,
			EncodedWord: encodedWord,
			Text:        text,
			Data:        story.ReadSlice(entryPtr+encodedWordLength, entryPtr+uint32(entryLength)),
		}
		entryPtr += uint32(entryLength)
	}

	return &Dictionary{Header: header, Entries: entries, sorted: entryCount > 0}, nil
}

// Find looks up an encoded dictionary key, returning its table address, or
// 0 when the word is not in the dictionary. Sorted dictionaries (positive
// entry count) use binary search; unsorted ones (negative entry count, as
// some games ship for dynamically-extended vocabularies) fall back to a
// linear scan, per the Standard.
func (d *Dictionary) Find(zkey []uint8) uint32 {
	if d.sorted {
		ix := sort.Search(len(d.Entries), func(i int) bool {
			return bytes.Compare(d.Entries[i].EncodedWord, zkey) >= 0
		})
		if ix < len(d.Entries) && bytes.Equal(d.Entries[ix].EncodedWord, zkey) {
			return d.Entries[ix].Address
		}
		return 0
	}

	for _, e := range d.Entries {
		if bytes.Equal(e.EncodedWord, zkey) {
			return e.Address
		}
	}
	return 0
}
