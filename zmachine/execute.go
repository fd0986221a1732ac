package zmachine

import "github.com/kestrel-if/zengine/zinstr"

// execute carries out one decoded instruction against frame, which is
// already the call stack's top frame with pc advanced past the
// instruction. Mnemonic dispatch is the only place opcode identity is
// consulted — zinstr.Decode has already resolved every version-dependent
// quirk (save/restore form, not/call_1n, sread's v5 store byte, catch).
func (m *Machine) execute(instr zinstr.Instruction, frame *Frame) error {
	ops := m.operands(frame, &instr)

	switch instr.Mnemonic {

	// Control flow and calls.
	case "rtrue":
		return m.doReturn(1)
	case "rfalse":
		return m.doReturn(0)
	case "ret":
		return m.doReturn(ops[0])
	case "ret_popped":
		return m.doReturn(frame.pop(m))
	case "pop":
		frame.pop(m)
		return nil
	case "jump":
		frame.pc = uint32(int64(frame.pc) + int64(int16(ops[0])) - 2)
		return nil
	case "nop":
		return nil
	case "nop_1f":
		// Undocumented 2OP:0x1F: no effect beyond storing zero when a store byte is present.
		m.store(&instr, frame, 0)
		return nil
	case "quit":
		m.State = Terminated
		return nil
	case "restart":
		return m.execRestart()
	case "call_vs", "call_1s", "call_2s", "call_vs2":
		return m.doCall(frame, uint32(ops[0]), ops[1:], function, instr.StoreTarget, true)
	case "call_1n", "call_2n", "call_vn", "call_vn2":
		return m.doCall(frame, uint32(ops[0]), ops[1:], procedure, 0, false)
	case "check_arg_count":
		return m.branch(&instr, frame, uint16(frame.argCount) >= ops[0])
	case "catch":
		m.store(&instr, frame, uint16(m.callStack.depth()))
		return nil
	case "throw":
		return m.execThrow(ops)

	// Comparisons and jumps.
	case "jz":
		return m.branch(&instr, frame, ops[0] == 0)
	case "je":
		for _, v := range ops[1:] {
			if v == ops[0] {
				return m.branch(&instr, frame, true)
			}
		}
		return m.branch(&instr, frame, false)
	case "jl":
		return m.branch(&instr, frame, int16(ops[0]) < int16(ops[1]))
	case "jg":
		return m.branch(&instr, frame, int16(ops[0]) > int16(ops[1]))
	case "jin":
		return m.execJin(&instr, frame, ops)
	case "test":
		return m.branch(&instr, frame, ops[0]&ops[1] == ops[1])
	case "verify":
		return m.branch(&instr, frame, m.Story.VerifyChecksum())
	case "piracy":
		return m.branch(&instr, frame, true)

	// Arithmetic and bitwise.
	case "add":
		m.store(&instr, frame, uint16(int16(ops[0])+int16(ops[1])))
		return nil
	case "sub":
		m.store(&instr, frame, uint16(int16(ops[0])-int16(ops[1])))
		return nil
	case "mul":
		m.store(&instr, frame, uint16(int16(ops[0])*int16(ops[1])))
		return nil
	case "div":
		if ops[1] == 0 {
			return &RuntimeError{PC: instr.Address, Reason: "division by zero"}
		}
		m.store(&instr, frame, uint16(int16(ops[0])/int16(ops[1])))
		return nil
	case "mod":
		if ops[1] == 0 {
			return &RuntimeError{PC: instr.Address, Reason: "division by zero"}
		}
		m.store(&instr, frame, uint16(int16(ops[0])%int16(ops[1])))
		return nil
	case "or":
		m.store(&instr, frame, ops[0]|ops[1])
		return nil
	case "and":
		m.store(&instr, frame, ops[0]&ops[1])
		return nil
	case "not":
		m.store(&instr, frame, ^ops[0])
		return nil
	case "log_shift":
		m.store(&instr, frame, execLogShift(ops[0], int16(ops[1])))
		return nil
	case "art_shift":
		m.store(&instr, frame, execArtShift(ops[0], int16(ops[1])))
		return nil
	case "random":
		return m.execRandom(&instr, frame, ops[0])

	// Variable and memory access.
	case "load":
		return m.execLoad(&instr, frame)
	case "store":
		return m.execStore(frame, ops)
	case "inc":
		return m.execIncDec(frame, ops[0], 1)
	case "dec":
		return m.execIncDec(frame, ops[0], -1)
	case "inc_chk":
		return m.execIncDecChk(&instr, frame, ops, 1)
	case "dec_chk":
		return m.execIncDecChk(&instr, frame, ops, -1)
	case "push":
		frame.push(ops[0])
		return nil
	case "pull":
		return m.execPull(frame, ops)
	case "loadw":
		m.store(&instr, frame, m.Story.ReadWord(uint32(ops[0]+2*ops[1])))
		return nil
	case "loadb":
		m.store(&instr, frame, uint16(m.Story.ReadByte(uint32(ops[0]+ops[1]))))
		return nil
	case "storew":
		m.Story.WriteWord(uint32(ops[0]+2*ops[1]), ops[2])
		return nil
	case "storeb":
		m.Story.WriteByte(uint32(ops[0]+ops[1]), uint8(ops[2]))
		return nil
	case "copy_table":
		return m.execCopyTable(ops)
	case "scan_table":
		return m.execScanTable(&instr, frame, ops)
	case "print_table":
		return m.execPrintTable(ops)

	// Object tree and properties.
	case "get_sibling", "get_child", "get_parent":
		return m.execObjectNav(&instr, frame, instr.Mnemonic, ops[0])
	case "remove_obj":
		return m.execRemoveObj(ops[0])
	case "insert_obj":
		return m.execInsertObj(ops[0], ops[1])
	case "test_attr":
		return m.execTestAttr(&instr, frame, ops)
	case "set_attr":
		return m.execSetClearAttr(ops, true)
	case "clear_attr":
		return m.execSetClearAttr(ops, false)
	case "get_prop":
		return m.execGetProp(&instr, frame, ops)
	case "get_prop_addr":
		return m.execGetPropAddr(&instr, frame, ops)
	case "get_prop_len":
		m.store(&instr, frame, m.Objects.GetPropertyLength(uint32(ops[0])))
		return nil
	case "get_next_prop":
		return m.execGetNextProp(&instr, frame, ops)
	case "put_prop":
		return m.execPutProp(ops)

	// Text output.
	case "print":
		return m.execPrintLiteral(&instr, false)
	case "print_ret":
		return m.execPrintLiteral(&instr, true)
	case "print_addr":
		return m.execPrintAt(uint32(ops[0]))
	case "print_paddr":
		return m.execPrintAt(m.packedAddress(uint32(ops[0]), true))
	case "print_obj":
		return m.execPrintObj(ops[0])
	case "print_char":
		return m.execPrintChar(ops[0])
	case "print_num":
		m.appendText(itoa(int16(ops[0])))
		return nil
	case "print_unicode":
		m.appendText(string(rune(ops[0])))
		return nil
	case "check_unicode":
		m.store(&instr, frame, execCheckUnicode(m.Story, ops[0]))
		return nil
	case "new_line":
		m.appendText("\n")
		return nil

	// Screen and window model.
	case "split_window":
		m.execSplitWindow(ops[0])
		return nil
	case "set_window":
		m.execSetWindow(ops[0])
		return nil
	case "erase_window":
		m.execEraseWindow(ops[0])
		return nil
	case "erase_line":
		if m.display != nil {
			m.display.EraseLine()
		}
		return nil
	case "set_cursor":
		m.execSetCursor(ops)
		return nil
	case "get_cursor":
		m.execGetCursor(ops[0])
		return nil
	case "set_text_style":
		m.execSetTextStyle(ops[0])
		return nil
	case "set_colour":
		m.execSetColour(ops)
		return nil
	case "set_font":
		m.execSetFont(&instr, frame, ops[0])
		return nil
	case "buffer_mode":
		m.screen.BufferMode = ops[0] != 0
		m.refreshScreen()
		return nil
	case "show_status":
		m.execShowStatus()
		return nil

	// Streams and input.
	case "output_stream":
		return m.execOutputStream(ops)
	case "input_stream":
		return nil // only the keyboard input stream is supported
	case "sound_effect":
		return nil // no audio backend
	case "sread":
		return m.execSread(&instr, frame, ops)
	case "read_char":
		return m.execReadChar(&instr, frame, ops)
	case "tokenise":
		return m.execTokenise(ops)
	case "encode_text":
		return m.execEncodeText(ops)

	// Save/restore/undo.
	case "save":
		return m.execSave(&instr, frame)
	case "restore":
		return m.execRestore(&instr, frame)
	case "save_undo":
		m.saveUndo(frame.pc)
		m.store(&instr, frame, 1)
		return nil
	case "restore_undo":
		if !m.restoreUndo() {
			m.store(&instr, frame, 0)
		}
		return nil

	default:
		return &RuntimeError{PC: instr.Address, Reason: "unimplemented opcode: " + instr.Mnemonic}
	}
}

// store writes a store-form instruction's result, a no-op when the
// instruction carries no store byte (true for unconditional callers that
// always compute a result regardless of HasStore, such as nop_1f's case).
func (m *Machine) store(instr *zinstr.Instruction, frame *Frame, value uint16) {
	if instr.HasStore {
		m.writeVariable(frame, instr.StoreTarget, value, false)
	}
}

// branch evaluates a branch-form instruction's condition against its
// descriptor, a no-op for the (rare) non-branching caller.
func (m *Machine) branch(instr *zinstr.Instruction, frame *Frame, cond bool) error {
	if !instr.HasBranch {
		return nil
	}
	return m.applyBranch(frame, instr.BranchInfo, cond)
}

func execLogShift(value uint16, places int16) uint16 {
	if places >= 0 {
		return value << uint16(places)
	}
	return value >> uint16(-places)
}

func execArtShift(value uint16, places int16) uint16 {
	if places >= 0 {
		return value << uint16(places)
	}
	return uint16(int16(value) >> uint16(-places))
}

func itoa(v int16) string {
	neg := v < 0
	u := uint16(v)
	if neg {
		u = uint16(-v)
	}
	if u == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
