package zmachine

import "github.com/kestrel-if/zengine/zinstr"

func (m *Machine) execSave(instr *zinstr.Instruction, frame *Frame) error {
	ok, err := m.doSave(frame.pc)
	if err != nil {
		return err
	}
	if instr.HasBranch {
		return m.branch(instr, frame, ok)
	}
	var v uint16
	if ok {
		v = 1
	}
	m.store(instr, frame, v)
	return nil
}

// execRestore only needs to act on failure: a successful restore has
// already redirected the call stack and program counter out from under
// frame, and written its own resumption value via the PC-1 trick in
// doRestore.
func (m *Machine) execRestore(instr *zinstr.Instruction, frame *Frame) error {
	ok, err := m.doRestore()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if instr.HasBranch {
		return m.branch(instr, frame, false)
	}
	m.store(instr, frame, 0)
	return nil
}
