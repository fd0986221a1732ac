package zmachine

import "github.com/kestrel-if/zengine/zinstr"

// doCall implements every call_* opcode. routineOperand is already
// resolved to an unpacked routine address's *packed* form (the raw
// operand value); argOperands are the already-resolved argument words.
// A packed address of 0 is the Standard's "return false without calling"
// special case.
func (m *Machine) doCall(frame *Frame, packedRoutine uint32, args []uint16, kind RoutineKind, storeTarget uint8, hasStore bool) error {
	routineAddress := m.packedAddress(packedRoutine, false)

	if routineAddress == 0 {
		if kind == function {
			m.writeVariable(frame, storeTarget, 0, false)
		}
		return nil
	}

	localCount := m.Story.ReadByte(routineAddress)
	routineAddress++

	locals := make([]uint16, localCount)
	for i := 0; i < int(localCount); i++ {
		if i < len(args) {
			locals[i] = args[i]
		} else if m.Story.Version < 5 {
			locals[i] = m.Story.ReadWord(routineAddress)
		}
		if m.Story.Version < 5 {
			routineAddress += 2
		}
	}

	m.callStack.push(&Frame{
		pc:          routineAddress,
		locals:      locals,
		kind:        kind,
		argCount:    len(args),
		storeTarget: storeTarget,
		hasStore:    hasStore && kind == function,
	})
	return nil
}

// doReturn pops the current frame and, if its caller expects a stored
// result (a function call, not a procedure call), writes val into the
// caller's declared store target.
func (m *Machine) doReturn(val uint16) error {
	oldFrame, err := m.callStack.pop()
	if err != nil {
		return err
	}

	if m.callStack.depth() == 0 {
		m.State = Terminated
		return nil
	}

	if oldFrame.kind == function {
		newFrame, err := m.callStack.peek()
		if err != nil {
			return err
		}
		m.writeVariable(newFrame, oldFrame.storeTarget, val, false)
	}
	return nil
}

// runRoutineToCompletion calls the routine at packedRoutine and drives the
// dispatcher until it returns, yielding its return value. This is the one
// place the dispatcher is re-entered outside Run's main loop: the v4+
// timed-input callback a pending sread/read_char hands to Input, per
// spec.md §4.7/§6's "re-entrant execute one routine to completion" entry
// point. Nested reads are not supported — the Standard requires the input
// collaborator to reject a read request while one is already pending, so
// the interrupt routine itself must never call sread/read_char.
func (m *Machine) runRoutineToCompletion(packedRoutine uint32) (uint16, error) {
	frame, err := m.callStack.peek()
	if err != nil {
		return 0, err
	}
	baseDepth := m.callStack.depth()
	if err := m.doCall(frame, packedRoutine, nil, function, 0, true); err != nil {
		return 0, err
	}

	for m.callStack.depth() > baseDepth {
		if m.State != Executing {
			return 0, &RuntimeError{Reason: "timed-input routine exited instead of returning"}
		}
		if err := m.Step(); err != nil {
			return 0, err
		}
	}

	return frame.pop(m), nil
}

// timeoutCallback builds the onTimeout closure a timed sread/read_char
// hands to Input. packedRoutine of 0 disables the timer (the operand was
// omitted), matching the Standard's "no interrupt routine supplied". When
// the routine returns nonzero, *timedOut is set so the caller can report
// the correct terminator back through store, per spec.md §4.7's
// nonzero-means-terminate-now rule.
func (m *Machine) timeoutCallback(packedRoutine uint32, timedOut *bool) func() (bool, error) {
	if packedRoutine == 0 {
		return nil
	}
	return func() (bool, error) {
		result, err := m.runRoutineToCompletion(packedRoutine)
		if err != nil {
			return false, err
		}
		if result != 0 {
			*timedOut = true
			return true, nil
		}
		return false, nil
	}
}

// applyBranch follows a decoded branch descriptor: if result matches the
// branch's polarity, either returns true/false (the two pseudo-offsets)
// or jumps frame.pc by offset-2 relative to the byte after the branch
// descriptor (frame.pc already sits there, since Step advanced it past
// the whole instruction).
func (m *Machine) applyBranch(frame *Frame, branch zinstr.Branch, result bool) error {
	if result != branch.On {
		return nil
	}
	if branch.IsReturnFalse() {
		return m.doReturn(0)
	}
	if branch.IsReturnTrue() {
		return m.doReturn(1)
	}
	frame.pc = uint32(int64(frame.pc) + int64(branch.Offset) - 2)
	return nil
}
