package zmachine

// readVariable resolves variable number v: 0 is the evaluation-stack top
// (popped, unless indirect is set for the seven opcodes — load, store,
// inc, dec, inc_chk, dec_chk, pull — that read/write variable 0 in
// place), 1-15 are the current frame's locals, 16+ are globals.
func (m *Machine) readVariable(frame *Frame, v uint8, indirect bool) uint16 {
	switch {
	case v == 0:
		if indirect {
			return frame.peek(m)
		}
		return frame.pop(m)
	case v < 16:
		ix := int(v) - 1
		if ix >= len(frame.locals) {
			m.warnOnce("bad_local_read", "read of non-existent local L%02x at 0x%x", v, frame.pc)
			return 0
		}
		return frame.locals[ix]
	default:
		return m.Story.ReadWord(uint32(m.Story.GlobalVariableBase) + 2*uint32(v-16))
	}
}

func (m *Machine) writeVariable(frame *Frame, v uint8, value uint16, indirect bool) {
	switch {
	case v == 0:
		if indirect {
			frame.pop(m)
		}
		frame.push(value)
	case v < 16:
		ix := int(v) - 1
		if ix >= len(frame.locals) {
			m.warnOnce("bad_local_write", "write of non-existent local L%02x at 0x%x", v, frame.pc)
			return
		}
		frame.locals[ix] = value
	default:
		m.Story.WriteWord(uint32(m.Story.GlobalVariableBase)+2*uint32(v-16), value)
	}
}
