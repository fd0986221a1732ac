package zmachine

import (
	"github.com/kestrel-if/zengine/ztable"
	"github.com/kestrel-if/zengine/zinstr"
)

// execLoad implements the 1OP load opcode: its single operand, resolved
// like any operand (a Variable-type operand is read through), names a
// variable number, which is read indirectly so variable 0 peeks the stack
// rather than popping it.
func (m *Machine) execLoad(instr *zinstr.Instruction, frame *Frame) error {
	varNum := uint8(m.operand(frame, instr, 0))
	m.store(instr, frame, m.readVariable(frame, varNum, true))
	return nil
}

// execStore implements the 2OP store opcode: ops[0] is a variable number
// (by value), ops[1] the value to write, again indirect on variable 0.
func (m *Machine) execStore(frame *Frame, ops []uint16) error {
	m.writeVariable(frame, uint8(ops[0]), ops[1], true)
	return nil
}

func (m *Machine) execIncDec(frame *Frame, varNumOperand uint16, delta int16) error {
	varNum := uint8(varNumOperand)
	v := int16(m.readVariable(frame, varNum, true))
	m.writeVariable(frame, varNum, uint16(v+delta), true)
	return nil
}

// execIncDecChk implements inc_chk/dec_chk: increment or decrement the
// named variable, then branch if its new (signed) value compares against
// ops[1] in delta's direction.
func (m *Machine) execIncDecChk(instr *zinstr.Instruction, frame *Frame, ops []uint16, delta int16) error {
	varNum := uint8(ops[0])
	v := int16(m.readVariable(frame, varNum, true)) + delta
	m.writeVariable(frame, varNum, uint16(v), true)

	var cond bool
	if delta > 0 {
		cond = v > int16(ops[1])
	} else {
		cond = v < int16(ops[1])
	}
	return m.branch(instr, frame, cond)
}

// execPull implements the VAR pull opcode: pop the evaluation stack and
// write the result into the named variable, indirect on variable 0.
func (m *Machine) execPull(frame *Frame, ops []uint16) error {
	value := frame.pop(m)
	m.writeVariable(frame, uint8(ops[0]), value, true)
	return nil
}

func (m *Machine) execCopyTable(ops []uint16) error {
	ztable.CopyTable(m.Story, uint32(ops[0]), uint32(ops[1]), int16(ops[2]))
	return nil
}

func (m *Machine) execScanTable(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	form := uint16(0x82) // default: word-sized fields, per the Standard
	if len(ops) > 3 {
		form = ops[3]
	}
	addr := ztable.ScanTable(m.Story, ops[0], uint32(ops[1]), ops[2], form)
	m.store(instr, frame, uint16(addr))
	return m.branch(instr, frame, addr != 0)
}

func (m *Machine) execPrintTable(ops []uint16) error {
	var height, skip uint16
	if len(ops) > 2 {
		height = ops[2]
	}
	if len(ops) > 3 {
		skip = ops[3]
	}
	m.appendText(ztable.PrintTable(m.Story, uint32(ops[0]), ops[1], height, skip))
	return nil
}
