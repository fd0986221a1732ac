package zobject_test

import (
	"testing"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zobject"
	"github.com/kestrel-if/zengine/zstring"
)

// newV3StoryWithProperties builds one object (id 1) whose property table
// sits right after the object entries: a zero-length short-name header,
// then property 4 (2 bytes) and property 2 (1 byte) in descending order,
// terminated by a zero size byte.
func newV3StoryWithProperties(t *testing.T) (*zobject.Tree, *zobject.Object) {
	t.Helper()
	objectTableBase := 64
	entryBase := objectTableBase + 31*2
	propTableBase := entryBase + 9

	total := propTableBase + 16
	data := make([]uint8, total)
	data[0x00] = 3
	data[0x0a], data[0x0b] = uint8(objectTableBase>>8), uint8(objectTableBase)
	data[0x0e], data[0x0f] = uint8(total>>8), uint8(total)

	story, err := zcore.Load(data)
	if err != nil {
		t.Fatalf("zcore.Load: %v", err)
	}

	// Short name header: 0 words of name text.
	story.WriteByte(uint32(propTableBase), 0)
	ptr := uint32(propTableBase) + 1

	// Property 4, length 2: size byte = ((length-1)<<5)|id = (1<<5)|4 = 0x24.
	story.WriteByte(ptr, 0x24)
	story.WriteByte(ptr+1, 0x01)
	story.WriteByte(ptr+2, 0x02)
	ptr += 3

	// Property 2, length 1: size byte = (0<<5)|2 = 0x02.
	story.WriteByte(ptr, 0x02)
	story.WriteByte(ptr+1, 0x07)
	ptr += 2

	story.WriteByte(ptr, 0) // terminator

	story.WriteWord(uint32(entryBase)+7, uint16(propTableBase)) // property pointer

	alphabets := zstring.Load(story)
	tree := zobject.New(story, alphabets)
	obj, err := tree.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	return tree, obj
}

func TestGetPropertyFindsEntry(t *testing.T) {
	tree, obj := newV3StoryWithProperties(t)

	prop := tree.GetProperty(obj, 4)
	if prop.Length != 2 {
		t.Fatalf("property 4 Length = %d, want 2", prop.Length)
	}
	data := prop.Data()
	if len(data) != 2 || data[0] != 0x01 || data[1] != 0x02 {
		t.Errorf("property 4 Data = %v, want [1 2]", data)
	}
}

func TestGetPropertyFallsBackToDefault(t *testing.T) {
	tree, obj := newV3StoryWithProperties(t)

	prop := tree.GetProperty(obj, 9)
	if prop.Length != 2 {
		t.Errorf("missing property Length = %d, want 2 (default-table width)", prop.Length)
	}
}

func TestGetNextPropertyWalksDescendingOrder(t *testing.T) {
	tree, obj := newV3StoryWithProperties(t)

	first, err := tree.GetNextProperty(obj, 0)
	if err != nil || first != 4 {
		t.Errorf("GetNextProperty(0) = %d, %v, want 4, nil", first, err)
	}

	second, err := tree.GetNextProperty(obj, 4)
	if err != nil || second != 2 {
		t.Errorf("GetNextProperty(4) = %d, %v, want 2, nil", second, err)
	}

	last, err := tree.GetNextProperty(obj, 2)
	if err != nil || last != 0 {
		t.Errorf("GetNextProperty(2) = %d, %v, want 0, nil (end of list)", last, err)
	}
}

func TestPutPropRequiresExistingEntry(t *testing.T) {
	tree, obj := newV3StoryWithProperties(t)

	if err := tree.PutProp(obj, 4, 0x0304); err != nil {
		t.Fatalf("PutProp(4): %v", err)
	}
	prop := tree.GetProperty(obj, 4)
	data := prop.Data()
	if data[0] != 0x03 || data[1] != 0x04 {
		t.Errorf("property 4 Data after PutProp = %v, want [3 4]", data)
	}

	if err := tree.PutProp(obj, 9, 1); err == nil {
		t.Errorf("PutProp(9): expected a PropertyNotFoundError, got nil")
	}
}

func TestGetPropertyLengthWalksBackward(t *testing.T) {
	tree, obj := newV3StoryWithProperties(t)

	addr := tree.GetPropertyAddr(obj, 4)
	if addr == 0 {
		t.Fatalf("GetPropertyAddr(4) = 0, want a valid address")
	}
	if got := tree.GetPropertyLength(addr); got != 2 {
		t.Errorf("GetPropertyLength = %d, want 2", got)
	}
}
