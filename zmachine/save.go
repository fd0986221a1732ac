package zmachine

import "github.com/kestrel-if/zengine/quetzal"

// undoState is the in-memory analogue of a Quetzal SaveState, used by
// save_undo/restore_undo — no IFF framing needed since it never leaves
// the process.
type undoState struct {
	dynamicMemory []uint8
	frames        []Frame
	pc            uint32
}

func (m *Machine) captureQuetzalState(resumePC uint32) quetzal.SaveState {
	return quetzal.SaveState{
		Header: quetzal.Header{
			Release:  m.Story.ReleaseNumber,
			Serial:   m.Story.Serial,
			Checksum: m.Story.FileChecksum,
			PC:       resumePC,
		},
		DynamicMemory: append([]uint8(nil), m.Story.DynamicMemory()...),
		Frames:        toQuetzalFrames(m.callStack.snapshot()),
	}
}

func toQuetzalFrames(frames []Frame) []quetzal.Frame {
	out := make([]quetzal.Frame, len(frames))
	for i, f := range frames {
		out[i] = quetzal.Frame{
			ReturnPC:       f.pc,
			HasStore:       f.hasStore,
			ReturnVariable: f.storeTarget,
			ArgCount:       f.argCount,
			Locals:         f.locals,
			EvalStack:      f.evalStack,
		}
	}
	return out
}

func fromQuetzalFrames(frames []quetzal.Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = Frame{
			pc:          f.ReturnPC,
			hasStore:    f.HasStore,
			storeTarget: f.ReturnVariable,
			argCount:    f.ArgCount,
			locals:      f.Locals,
			evalStack:   f.EvalStack,
		}
	}
	return out
}

// doSave snapshots the machine via the Quetzal format and hands the bytes
// to saveRestoreHandler. resumePC is the address of the instruction that
// should resume on restore — the byte after save's own encoding, store
// byte included, which matters to doRestore below.
func (m *Machine) doSave(resumePC uint32) (bool, error) {
	if m.saveRestoreHandler == nil {
		return false, nil
	}
	state := m.captureQuetzalState(resumePC)
	data, err := quetzal.Encode(state, m.originalDynamicMem)
	if err != nil {
		return false, err
	}
	if err := m.saveRestoreHandler.Save(data); err != nil {
		return false, nil
	}
	return true, nil
}

// doRestore asks saveRestoreHandler for Quetzal bytes and applies them. On
// success it resumes execution as though the original save call had just
// returned 2: the matching save instruction's store-variable byte sits at
// address PC-1 in (unchanged) program memory, so it can be recovered
// directly rather than needing to travel through the save file itself.
// The caller must not touch its own frame/instr store target afterwards —
// the call stack has been replaced out from under it.
func (m *Machine) doRestore() (bool, error) {
	if m.saveRestoreHandler == nil {
		return false, nil
	}
	data, err := m.saveRestoreHandler.Restore()
	if err != nil || data == nil {
		return false, nil
	}

	state, err := quetzal.Decode(data, m.originalDynamicMem)
	if err != nil {
		return false, nil
	}
	if state.Header.Serial != m.Story.Serial || state.Header.Checksum != m.Story.FileChecksum {
		return false, nil
	}

	if !m.Story.SetDynamicMemory(state.DynamicMemory) {
		return false, nil
	}
	m.callStack.restore(fromQuetzalFrames(state.Frames))

	top, err := m.callStack.peek()
	if err != nil {
		return false, nil
	}
	top.pc = state.Header.PC
	if state.Header.PC > 0 {
		storeTarget := m.Story.ReadByte(state.Header.PC - 1)
		m.writeVariable(top, storeTarget, 2, false)
	}
	return true, nil
}

func (m *Machine) saveUndo(resumePC uint32) {
	m.undo = append(m.undo, undoState{
		dynamicMemory: append([]uint8(nil), m.Story.DynamicMemory()...),
		frames:        m.callStack.snapshot(),
		pc:            resumePC,
	})
}

// restoreUndo applies the most recent save_undo snapshot, resuming as
// though that save_undo call had just returned 2, by the same PC-1 trick
// doRestore uses.
func (m *Machine) restoreUndo() bool {
	if len(m.undo) == 0 {
		return false
	}
	state := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]

	if !m.Story.SetDynamicMemory(state.dynamicMemory) {
		return false
	}
	m.callStack.restore(state.frames)

	top, err := m.callStack.peek()
	if err != nil {
		return false
	}
	top.pc = state.pc
	if state.pc > 0 {
		storeTarget := m.Story.ReadByte(state.pc - 1)
		m.writeVariable(top, storeTarget, 2, false)
	}
	return true
}
