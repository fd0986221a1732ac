package zmachine

import (
	"encoding/binary"

	"github.com/kestrel-if/zengine/zinstr"
)

func (m *Machine) execObjectNav(instr *zinstr.Instruction, frame *Frame, mnemonic string, objOperand uint16) error {
	if objOperand == 0 {
		m.store(instr, frame, 0)
		return m.branch(instr, frame, false)
	}
	obj, err := m.Objects.Get(objOperand)
	if err != nil {
		return err
	}

	var result uint16
	switch mnemonic {
	case "get_sibling":
		result = obj.Sibling
	case "get_child":
		result = obj.Child
	case "get_parent":
		result = obj.Parent
	}
	m.store(instr, frame, result)
	return m.branch(instr, frame, result != 0)
}

func (m *Machine) execRemoveObj(objOperand uint16) error {
	if objOperand == 0 {
		return nil
	}
	obj, err := m.Objects.Get(objOperand)
	if err != nil {
		return err
	}
	return m.Objects.Remove(obj)
}

func (m *Machine) execInsertObj(childOperand, parentOperand uint16) error {
	if childOperand == 0 || parentOperand == 0 {
		return nil
	}
	child, err := m.Objects.Get(childOperand)
	if err != nil {
		return err
	}
	parent, err := m.Objects.Get(parentOperand)
	if err != nil {
		return err
	}
	return m.Objects.Insert(child, parent)
}

func (m *Machine) execJin(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	if ops[0] == 0 {
		return m.branch(instr, frame, false)
	}
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	return m.branch(instr, frame, obj.Parent == ops[1])
}

func (m *Machine) execTestAttr(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	ok, err := obj.TestAttr(ops[1])
	if err != nil {
		return err
	}
	return m.branch(instr, frame, ok)
}

func (m *Machine) execSetClearAttr(ops []uint16, set bool) error {
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	if set {
		return obj.SetAttr(ops[1])
	}
	return obj.ClearAttr(ops[1])
}

func (m *Machine) execGetProp(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	data := m.Objects.GetProperty(obj, uint8(ops[1])).Data()

	var value uint16
	if len(data) == 1 {
		value = uint16(data[0])
	} else {
		value = binary.BigEndian.Uint16(data)
	}
	m.store(instr, frame, value)
	return nil
}

func (m *Machine) execGetPropAddr(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	m.store(instr, frame, uint16(m.Objects.GetPropertyAddr(obj, uint8(ops[1]))))
	return nil
}

func (m *Machine) execGetNextProp(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	next, err := m.Objects.GetNextProperty(obj, uint8(ops[1]))
	if err != nil {
		return err
	}
	m.store(instr, frame, uint16(next))
	return nil
}

func (m *Machine) execPutProp(ops []uint16) error {
	obj, err := m.Objects.Get(ops[0])
	if err != nil {
		return err
	}
	return m.Objects.PutProp(obj, uint8(ops[1]), ops[2])
}
