package zobject

import (
	"encoding/binary"
	"fmt"
)

// PropertyNotFoundError is returned by PutProp when the target object has
// no entry for the requested property — spec.md §4.3 requires put_prop to
// fail rather than silently create one.
type PropertyNotFoundError struct {
	ObjectID   uint16
	PropertyID uint8
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("put_prop: object %d has no property %d", e.ObjectID, e.PropertyID)
}

// Property is a decoded view of one property-list entry (or, on lookup
// miss, a synthetic view of the two-byte default-table entry).
type Property struct {
	ID                   uint8
	Length               uint8
	DataAddress          uint32
	HeaderLength         uint8
	tree                 *Tree
	isDefault            bool
}

func (t *Tree) propertyListStart(obj *Object) uint32 {
	nameLenWords := t.story.ReadByte(uint32(obj.PropertyPointer))
	return uint32(obj.PropertyPointer) + 1 + uint32(nameLenWords)*2
}

// propertyAt decodes the property entry whose size byte(s) begin at addr.
func (t *Tree) propertyAt(addr uint32) Property {
	sizeByte := t.story.ReadByte(addr)

	if t.story.Version <= 3 {
		return Property{
			ID:           sizeByte & 0b0001_1111,
			Length:       (sizeByte >> 5) + 1,
			HeaderLength: 1,
			DataAddress:  addr + 1,
			tree:         t,
		}
	}

	if sizeByte&0b1000_0000 != 0 {
		lengthByte := t.story.ReadByte(addr + 1)
		length := lengthByte & 0b0011_1111
		if length == 0 {
			length = 64
		}
		return Property{
			ID:           sizeByte & 0b0011_1111,
			Length:       length,
			HeaderLength: 2,
			DataAddress:  addr + 2,
			tree:         t,
		}
	}

	length := uint8(1)
	if (sizeByte>>6)&1 == 1 {
		length = 2
	}
	return Property{
		ID:           sizeByte & 0b0011_1111,
		Length:       length,
		HeaderLength: 1,
		DataAddress:  addr + 1,
		tree:         t,
	}
}

// Data returns the property's raw data bytes.
func (p Property) Data() []uint8 {
	if p.isDefault {
		return p.tree.story.ReadSlice(p.DataAddress, p.DataAddress+2)
	}
	return p.tree.story.ReadSlice(p.DataAddress, p.DataAddress+uint32(p.Length))
}

// GetProperty walks obj's property list in descending-number order,
// returning the matching entry, or the two-byte default-table value on a
// miss (spec.md §4.3).
func (t *Tree) GetProperty(obj *Object, propertyID uint8) Property {
	ptr := t.propertyListStart(obj)

	for {
		if t.story.ReadByte(ptr) == 0 {
			break
		}
		prop := t.propertyAt(ptr)
		if prop.ID == propertyID {
			return prop
		}
		if prop.ID < propertyID {
			break // descending order: can't appear further on
		}
		ptr = prop.DataAddress + uint32(prop.Length)
	}

	defaultAddr := uint32(t.story.ObjectTableBase) + 2*uint32(propertyID-1)
	return Property{ID: propertyID, Length: 2, DataAddress: defaultAddr, isDefault: true, tree: t}
}

// GetPropertyAddr returns the address of the property's data bytes, or 0 on
// a miss (the address form, distinct from GetProperty's default fallback).
func (t *Tree) GetPropertyAddr(obj *Object, propertyID uint8) uint32 {
	prop := t.GetProperty(obj, propertyID)
	if prop.isDefault {
		return 0
	}
	return prop.DataAddress
}

// GetPropertyLength recovers a property's declared length from the address
// of its first data byte (spec.md §4.3's get_prop_len contract): it walks
// backward from addr to the size byte(s) that precede the data.
func (t *Tree) GetPropertyLength(addr uint32) uint16 {
	if addr == 0 {
		return 0
	}

	prevByte := t.story.ReadByte(addr - 1)
	if t.story.Version <= 3 {
		return uint16(prevByte>>5) + 1
	}

	if prevByte&0b1000_0000 != 0 {
		length := prevByte & 0b0011_1111
		if length == 0 {
			return 64
		}
		return uint16(length)
	}
	return uint16(((prevByte >> 6) & 1) + 1)
}

// GetNextProperty returns the property number following propertyID in
// obj's list (or the first property, when propertyID is 0; or 0, when
// propertyID is the last).
func (t *Tree) GetNextProperty(obj *Object, propertyID uint8) (uint8, error) {
	if propertyID == 0 {
		ptr := t.propertyListStart(obj)
		if t.story.ReadByte(ptr) == 0 {
			return 0, nil
		}
		return t.propertyAt(ptr).ID, nil
	}

	ptr := t.propertyListStart(obj)
	for {
		if t.story.ReadByte(ptr) == 0 {
			return 0, &PropertyNotFoundError{ObjectID: obj.ID, PropertyID: propertyID}
		}
		prop := t.propertyAt(ptr)
		nextPtr := prop.DataAddress + uint32(prop.Length)
		if prop.ID == propertyID {
			if t.story.ReadByte(nextPtr) == 0 {
				return 0, nil
			}
			return t.propertyAt(nextPtr).ID, nil
		}
		ptr = nextPtr
	}
}

// PutProp writes value into propertyID's data bytes on obj. It requires the
// property to already exist (spec.md §4.3) and infers the write width (1 or
// 2 bytes) from the declared size; wider properties are a spec violation to
// write via put_prop.
func (t *Tree) PutProp(obj *Object, propertyID uint8, value uint16) error {
	ptr := t.propertyListStart(obj)

	for {
		if t.story.ReadByte(ptr) == 0 {
			return &PropertyNotFoundError{ObjectID: obj.ID, PropertyID: propertyID}
		}
		prop := t.propertyAt(ptr)
		if prop.ID == propertyID {
			switch prop.Length {
			case 1:
				t.story.WriteByte(prop.DataAddress, uint8(value))
			case 2:
				var buf [2]byte
				binary.BigEndian.PutUint16(buf[:], value)
				t.story.WriteByte(prop.DataAddress, buf[0])
				t.story.WriteByte(prop.DataAddress+1, buf[1])
			default:
				return fmt.Errorf("put_prop: property %d on object %d has width %d, not 1 or 2", propertyID, obj.ID, prop.Length)
			}
			return nil
		}
		if prop.ID < propertyID {
			return &PropertyNotFoundError{ObjectID: obj.ID, PropertyID: propertyID}
		}
		ptr = prop.DataAddress + uint32(prop.Length)
	}
}
