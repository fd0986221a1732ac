package zobject_test

import (
	"testing"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zobject"
	"github.com/kestrel-if/zengine/zstring"
)

// newV3Story builds a v3 story with the object table (31 default-property
// words, 9-byte entries) starting right after the 64-byte header.
func newV3Story(t *testing.T, objectCount int) (*zcore.Story, *zobject.Tree) {
	t.Helper()
	objectTableBase := 64
	tableSize := 31*2 + objectCount*9
	total := objectTableBase + tableSize + 16 // slack for property data

	data := make([]uint8, total)
	data[0x00] = 3
	data[0x0a], data[0x0b] = uint8(objectTableBase>>8), uint8(objectTableBase)
	data[0x0e], data[0x0f] = uint8(total>>8), uint8(total)

	story, err := zcore.Load(data)
	if err != nil {
		t.Fatalf("zcore.Load: %v", err)
	}
	alphabets := zstring.Load(story)
	return story, zobject.New(story, alphabets)
}

func TestObjectTreeLinksAndAttributes(t *testing.T) {
	_, tree := newV3Story(t, 3)

	parent, err := tree.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	child, err := tree.Get(2)
	if err != nil {
		t.Fatalf("Get(2): %v", err)
	}
	sibling, err := tree.Get(3)
	if err != nil {
		t.Fatalf("Get(3): %v", err)
	}

	parent.SetChild(child.ID)
	child.SetParent(parent.ID)
	child.SetSibling(sibling.ID)
	sibling.SetParent(parent.ID)

	reloaded, err := tree.Get(1)
	if err != nil {
		t.Fatalf("Get(1) reload: %v", err)
	}
	if reloaded.Child != 2 {
		t.Errorf("parent.Child = %d, want 2", reloaded.Child)
	}

	reloadedChild, err := tree.Get(2)
	if err != nil {
		t.Fatalf("Get(2) reload: %v", err)
	}
	if reloadedChild.Parent != 1 || reloadedChild.Sibling != 3 {
		t.Errorf("child.Parent/Sibling = %d/%d, want 1/3", reloadedChild.Parent, reloadedChild.Sibling)
	}

	if err := child.SetAttr(5); err != nil {
		t.Fatalf("SetAttr(5): %v", err)
	}
	reloadedAfterSet, err := tree.Get(2)
	if err != nil {
		t.Fatalf("Get(2) after SetAttr: %v", err)
	}
	set, err := reloadedAfterSet.TestAttr(5)
	if err != nil || !set {
		t.Errorf("TestAttr(5) after SetAttr+reload = %v, %v, want true, nil", set, err)
	}

	if err := reloadedAfterSet.ClearAttr(5); err != nil {
		t.Fatalf("ClearAttr(5): %v", err)
	}
	reloadedAfterClear, err := tree.Get(2)
	if err != nil {
		t.Fatalf("Get(2) after ClearAttr: %v", err)
	}
	set, err = reloadedAfterClear.TestAttr(5)
	if err != nil || set {
		t.Errorf("TestAttr(5) after ClearAttr+reload = %v, %v, want false, nil", set, err)
	}

	if _, err := child.TestAttr(32); err == nil {
		t.Errorf("TestAttr(32) on a v3 object: expected a domain error (only 32 attributes exist)")
	}
}

func TestTreeRemoveDetachesFromSiblingChain(t *testing.T) {
	_, tree := newV3Story(t, 3)

	parent, _ := tree.Get(1)
	first, _ := tree.Get(2)
	second, _ := tree.Get(3)

	parent.SetChild(first.ID)
	first.SetParent(parent.ID)
	first.SetSibling(second.ID)
	second.SetParent(parent.ID)

	if err := tree.Remove(first); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	reloadedParent, _ := tree.Get(1)
	if reloadedParent.Child != second.ID {
		t.Errorf("parent.Child after removing the first child = %d, want %d", reloadedParent.Child, second.ID)
	}

	reloadedFirst, _ := tree.Get(2)
	if reloadedFirst.Parent != 0 || reloadedFirst.Sibling != 0 {
		t.Errorf("removed object's Parent/Sibling = %d/%d, want 0/0", reloadedFirst.Parent, reloadedFirst.Sibling)
	}
}

func TestTreeInsertRelinksChild(t *testing.T) {
	_, tree := newV3Story(t, 3)

	oldParent, _ := tree.Get(1)
	newParent, _ := tree.Get(2)
	obj, _ := tree.Get(3)

	oldParent.SetChild(obj.ID)
	obj.SetParent(oldParent.ID)

	if err := tree.Insert(obj, newParent); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	reloadedOld, _ := tree.Get(1)
	if reloadedOld.Child != 0 {
		t.Errorf("old parent's Child = %d, want 0 after Insert moved its only child away", reloadedOld.Child)
	}
	reloadedNew, _ := tree.Get(2)
	if reloadedNew.Child != obj.ID {
		t.Errorf("new parent's Child = %d, want %d", reloadedNew.Child, obj.ID)
	}
	reloadedObj, _ := tree.Get(3)
	if reloadedObj.Parent != newParent.ID {
		t.Errorf("obj.Parent = %d, want %d", reloadedObj.Parent, newParent.ID)
	}
}

func TestTreeInsertMakesAlreadyAttachedChildTheFirstChild(t *testing.T) {
	_, tree := newV3Story(t, 3)

	parent, _ := tree.Get(1)
	a, _ := tree.Get(2)
	c, _ := tree.Get(3)

	// Chain: parent -> a -> c. Re-inserting c under the same parent must
	// move it to the front, not no-op just because it's already attached.
	parent.SetChild(a.ID)
	a.SetParent(parent.ID)
	a.SetSibling(c.ID)
	c.SetParent(parent.ID)

	if err := tree.Insert(c, parent); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	reloadedParent, _ := tree.Get(1)
	if reloadedParent.Child != c.ID {
		t.Fatalf("parent.Child = %d, want %d (c promoted to first child)", reloadedParent.Child, c.ID)
	}
	reloadedC, _ := tree.Get(3)
	if reloadedC.Sibling != a.ID {
		t.Errorf("c.Sibling = %d, want %d (a, pushed behind c)", reloadedC.Sibling, a.ID)
	}
	reloadedA, _ := tree.Get(2)
	if reloadedA.Sibling != 0 {
		t.Errorf("a.Sibling = %d, want 0 (c spliced out from behind it)", reloadedA.Sibling)
	}
}

func TestGetObjectZeroIsDomainError(t *testing.T) {
	_, tree := newV3Story(t, 1)

	if _, err := tree.Get(0); err == nil {
		t.Errorf("Get(0): expected a domain error")
	}
}
