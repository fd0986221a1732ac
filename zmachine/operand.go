package zmachine

import "github.com/kestrel-if/zengine/zinstr"

// operand resolves instr's i'th operand to a concrete 16-bit value,
// reading through a Variable-type operand via the current frame.
func (m *Machine) operand(frame *Frame, instr *zinstr.Instruction, i int) uint16 {
	op := instr.Operands[i]
	if op.Type == zinstr.Variable {
		return m.readVariable(frame, uint8(op.Value), false)
	}
	return op.Value
}

func (m *Machine) operands(frame *Frame, instr *zinstr.Instruction) []uint16 {
	out := make([]uint16, len(instr.Operands))
	for i := range instr.Operands {
		out[i] = m.operand(frame, instr, i)
	}
	return out
}
