// Package zobject implements the Z-machine object database: the
// version-aware object-entry layout, attribute bits, property list walk,
// and parent/sibling/child tree operations of spec.md §4.3.
package zobject

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zstring"
)

// Tree is a handle onto a story's object table. It holds no state of its
// own beyond the story/alphabets it was built with — every operation reads
// or writes straight through to dynamic memory, matching spec.md's "the
// dynamic-memory bytes are mutated in place" lifecycle note.
type Tree struct {
	story     *zcore.Story
	alphabets *zstring.Alphabets
}

// New builds a Tree bound to story's object table.
func New(story *zcore.Story, alphabets *zstring.Alphabets) *Tree {
	return &Tree{story: story, alphabets: alphabets}
}

func (t *Tree) entrySize() uint32 {
	if t.story.Version >= 4 {
		return 14
	}
	return 9
}

func (t *Tree) defaultTableWords() uint32 {
	if t.story.Version >= 4 {
		return 63
	}
	return 31
}

// DomainError reports an out-of-range attribute or object number.
type DomainError struct {
	Reason string
}

func (e *DomainError) Error() string { return "object domain error: " + e.Reason }

// baseAddress returns the byte address of object id's entry.
func (t *Tree) baseAddress(id uint16) uint32 {
	base := uint32(t.story.ObjectTableBase) + 2*t.defaultTableWords()
	return base + uint32(id-1)*t.entrySize()
}

// Object is a decoded view of one object-table entry. Fields are read
// fresh from memory by Get; mutation methods (SetParent, etc.) write
// straight back through the bound Tree.
type Object struct {
	tree        *Tree
	BaseAddress uint32
	ID          uint16
	Attributes  uint64
	Parent      uint16
	Sibling     uint16
	Child       uint16
	PropertyPointer uint16
}

// Get decodes object id's entry. Object 0 ("none") has no entry and is a
// programmer error to request, matching the teacher's convention (the
// Z-machine's own opcodes never call with id 0 on purpose).
func (t *Tree) Get(id uint16) (*Object, error) {
	if id == 0 {
		return nil, &DomainError{Reason: "object 0 does not exist"}
	}

	base := t.baseAddress(id)
	if t.story.Version >= 4 {
		if !t.story.InBounds(base + 14) {
			return nil, &DomainError{Reason: fmt.Sprintf("object %d entry out of range", id)}
		}
		attrBytes := t.story.ReadSlice(base, base+6)
		attrs := uint64(binary.BigEndian.Uint32(attrBytes[0:4]))<<16 | uint64(binary.BigEndian.Uint16(attrBytes[4:6]))
		return &Object{
			tree:            t,
			BaseAddress:     base,
			ID:              id,
			Attributes:      attrs << 16,
			Parent:          t.story.ReadWord(base + 6),
			Sibling:         t.story.ReadWord(base + 8),
			Child:           t.story.ReadWord(base + 10),
			PropertyPointer: t.story.ReadWord(base + 12),
		}, nil
	}

	if !t.story.InBounds(base + 9) {
		return nil, &DomainError{Reason: fmt.Sprintf("object %d entry out of range", id)}
	}
	attrs := binary.BigEndian.Uint32(t.story.ReadSlice(base, base+4))
	return &Object{
		tree:            t,
		BaseAddress:     base,
		ID:              id,
		Attributes:      uint64(attrs) << 32,
		Parent:          uint16(t.story.ReadByte(base + 4)),
		Sibling:         uint16(t.story.ReadByte(base + 5)),
		Child:           uint16(t.story.ReadByte(base + 6)),
		PropertyPointer: t.story.ReadWord(base + 7),
	}, nil
}

func attributeLimit(version uint8) uint16 {
	if version >= 4 {
		return 48
	}
	return 32
}

// TestAttr reports whether attribute is set, erroring if attribute is out
// of range for this story's version (spec.md §4.7's "fatal domain error").
func (o *Object) TestAttr(attribute uint16) (bool, error) {
	if attribute >= attributeLimit(o.tree.story.Version) {
		return false, &DomainError{Reason: fmt.Sprintf("attribute %d out of range", attribute)}
	}
	mask := uint64(1) << (63 - attribute)
	return o.Attributes&mask == mask, nil
}

// SetAttr sets attribute and writes the updated attribute bytes back.
func (o *Object) SetAttr(attribute uint16) error {
	if attribute >= attributeLimit(o.tree.story.Version) {
		return &DomainError{Reason: fmt.Sprintf("attribute %d out of range", attribute)}
	}
	o.Attributes |= uint64(1) << (63 - attribute)
	o.writeAttributes()
	return nil
}

// ClearAttr clears attribute and writes the updated attribute bytes back.
func (o *Object) ClearAttr(attribute uint16) error {
	if attribute >= attributeLimit(o.tree.story.Version) {
		return &DomainError{Reason: fmt.Sprintf("attribute %d out of range", attribute)}
	}
	o.Attributes &= ^(uint64(1) << (63 - attribute))
	o.writeAttributes()
	return nil
}

func (o *Object) writeAttributes() {
	s := o.tree.story
	var buf [6]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(o.Attributes>>32))
	binary.BigEndian.PutUint16(buf[4:6], uint16(o.Attributes>>16))
	s.WriteByte(o.BaseAddress+0, buf[0])
	s.WriteByte(o.BaseAddress+1, buf[1])
	s.WriteByte(o.BaseAddress+2, buf[2])
	s.WriteByte(o.BaseAddress+3, buf[3])
	if s.Version >= 4 {
		s.WriteByte(o.BaseAddress+4, buf[4])
		s.WriteByte(o.BaseAddress+5, buf[5])
	}
}

// SetParent writes the parent link.
func (o *Object) SetParent(parent uint16) {
	o.Parent = parent
	o.writeLink(parentOffset(o.tree.story.Version), parent)
}

// SetSibling writes the sibling link.
func (o *Object) SetSibling(sibling uint16) {
	o.Sibling = sibling
	o.writeLink(siblingOffset(o.tree.story.Version), sibling)
}

// SetChild writes the child link.
func (o *Object) SetChild(child uint16) {
	o.Child = child
	o.writeLink(childOffset(o.tree.story.Version), child)
}

func parentOffset(version uint8) uint32 {
	if version >= 4 {
		return 6
	}
	return 4
}
func siblingOffset(version uint8) uint32 {
	if version >= 4 {
		return 8
	}
	return 5
}
func childOffset(version uint8) uint32 {
	if version >= 4 {
		return 10
	}
	return 6
}

func (o *Object) writeLink(offset uint32, value uint16) {
	s := o.tree.story
	if s.Version >= 4 {
		s.WriteByte(o.BaseAddress+offset, uint8(value>>8))
		s.WriteByte(o.BaseAddress+offset+1, uint8(value))
	} else {
		s.WriteByte(o.BaseAddress+offset, uint8(value))
	}
}

// ShortName decodes the object's short name from its property table header.
func (o *Object) ShortName() (string, error) {
	if o.PropertyPointer == 0 {
		return "", nil
	}
	text, _, err := zstring.Decode(o.tree.story, o.tree.alphabets, uint32(o.PropertyPointer)+1)
	return text, err
}

// Remove detaches obj from its parent's sibling chain and clears its own
// parent/sibling links, per spec.md §4.3's remove_obj semantics.
func (t *Tree) Remove(obj *Object) error {
	if obj.Parent == 0 {
		return nil
	}

	parent, err := t.Get(obj.Parent)
	if err != nil {
		return err
	}

	if parent.Child == obj.ID {
		parent.SetChild(obj.Sibling)
	} else {
		currID := parent.Child
		for steps := 0; currID != 0; steps++ {
			if steps > 65536 {
				return &DomainError{Reason: "sibling chain cycle detected while removing object"}
			}
			curr, err := t.Get(currID)
			if err != nil {
				return err
			}
			if curr.Sibling == obj.ID {
				curr.SetSibling(obj.Sibling)
				break
			}
			currID = curr.Sibling
		}
	}

	obj.SetParent(0)
	obj.SetSibling(0)
	return nil
}

// Insert relinks child as the new first child of parent, first detaching
// it from wherever it currently sits (spec.md §4.3's insert_obj).
func (t *Tree) Insert(child *Object, parent *Object) error {
	if child.Parent == parent.ID && parent.Child == child.ID {
		// Already parent's first child; nothing to relink.
		return nil
	}

	if err := t.Remove(child); err != nil {
		return err
	}

	child.SetSibling(parent.Child)
	child.SetParent(parent.ID)
	parent.SetChild(child.ID)
	return nil
}
