package zmachine

import (
	"testing"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zinstr"
)

// fakeSaveRestore is an in-memory stand-in for a host's persistence layer,
// used to exercise save/restore without touching a filesystem.
type fakeSaveRestore struct {
	blob []byte
}

func (f *fakeSaveRestore) Save(data []byte) error {
	f.blob = append([]byte(nil), data...)
	return nil
}

func (f *fakeSaveRestore) Restore() ([]byte, error) {
	return f.blob, nil
}

func newTestMachine(t *testing.T, saveRestore SaveRestoreHandler) *Machine {
	t.Helper()
	total := 128
	data := make([]uint8, total)
	data[0x00] = 3
	globalBase := 64
	data[0x0c], data[0x0d] = uint8(globalBase>>8), uint8(globalBase)
	staticBase := 100
	data[0x0e], data[0x0f] = uint8(staticBase>>8), uint8(staticBase)

	story, err := zcore.Load(data)
	if err != nil {
		t.Fatalf("zcore.Load: %v", err)
	}

	m, err := New(data, nil, nil, saveRestore)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = story
	return m
}

func large(v uint16) zinstr.Operand {
	return zinstr.Operand{Type: zinstr.LargeConstant, Value: v}
}

func TestExecuteAddStoresResult(t *testing.T) {
	m := newTestMachine(t, nil)
	frame, err := m.callStack.peek()
	if err != nil {
		t.Fatalf("peek: %v", err)
	}

	instr := zinstr.Instruction{
		Mnemonic:    "add",
		Operands:    []zinstr.Operand{large(40), large(2)},
		HasStore:    true,
		StoreTarget: 16, // first global
	}
	if err := m.execute(instr, frame); err != nil {
		t.Fatalf("execute(add): %v", err)
	}

	got := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase))
	if got != 42 {
		t.Errorf("global 16 after add = %d, want 42", got)
	}
}

func TestExecuteJzBranchesOnZero(t *testing.T) {
	m := newTestMachine(t, nil)
	frame, err := m.callStack.peek()
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	frame.pc = 0x50

	instr := zinstr.Instruction{
		Mnemonic: "jz",
		Operands: []zinstr.Operand{large(0)},
		HasBranch: true,
		BranchInfo: zinstr.Branch{On: true, Offset: 10},
	}
	if err := m.execute(instr, frame); err != nil {
		t.Fatalf("execute(jz): %v", err)
	}
	if want := uint32(0x50 + 10 - 2); frame.pc != want {
		t.Errorf("frame.pc after taken jz branch = 0x%x, want 0x%x", frame.pc, want)
	}
}

func TestExecuteJzBranchNotTakenLeavesPC(t *testing.T) {
	m := newTestMachine(t, nil)
	frame, _ := m.callStack.peek()
	frame.pc = 0x50

	instr := zinstr.Instruction{
		Mnemonic:  "jz",
		Operands:  []zinstr.Operand{large(1)},
		HasBranch: true,
		BranchInfo: zinstr.Branch{On: true, Offset: 10},
	}
	if err := m.execute(instr, frame); err != nil {
		t.Fatalf("execute(jz): %v", err)
	}
	if frame.pc != 0x50 {
		t.Errorf("frame.pc after non-taken branch = 0x%x, want unchanged 0x50", frame.pc)
	}
}

func TestDoCallPushesFrameAndReturnRestoresCaller(t *testing.T) {
	m := newTestMachine(t, nil)
	callerFrame, err := m.callStack.peek()
	if err != nil {
		t.Fatalf("peek: %v", err)
	}

	// A routine with 1 local, preinitialised to 0 (v3), living at byte 80.
	routineAddr := uint32(80)
	m.Story.WriteByte(routineAddr, 1)
	m.Story.WriteWord(routineAddr+1, 0)

	if err := m.doCall(callerFrame, routineAddr/2, []uint16{99}, function, 16, true); err != nil {
		t.Fatalf("doCall: %v", err)
	}
	if m.callStack.depth() != 2 {
		t.Fatalf("callStack.depth() = %d, want 2 after call", m.callStack.depth())
	}

	calleeFrame, err := m.callStack.peek()
	if err != nil {
		t.Fatalf("peek callee: %v", err)
	}
	if len(calleeFrame.locals) != 1 || calleeFrame.locals[0] != 99 {
		t.Errorf("callee locals = %v, want [99] (argument bound to local 1)", calleeFrame.locals)
	}

	if err := m.doReturn(123); err != nil {
		t.Fatalf("doReturn: %v", err)
	}
	if m.callStack.depth() != 1 {
		t.Fatalf("callStack.depth() = %d, want 1 after return", m.callStack.depth())
	}
	got := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase))
	if got != 123 {
		t.Errorf("global 16 after return = %d, want 123 (the returned value)", got)
	}
}

func TestDoReturnFromLastFrameTerminates(t *testing.T) {
	m := newTestMachine(t, nil)

	if err := m.doReturn(0); err != nil {
		t.Fatalf("doReturn: %v", err)
	}
	if m.State != Terminated {
		t.Errorf("State = %v, want Terminated after returning from the outermost frame", m.State)
	}
}

func TestCatchAndThrowUnwindToStoredDepth(t *testing.T) {
	m := newTestMachine(t, nil)

	routineAddr := uint32(80)
	m.Story.WriteByte(routineAddr, 0) // no locals

	outerFrame, _ := m.callStack.peek()
	// Calling into the routine that will execute catch: its own storeTarget
	// (16) is where throw's eventual "return" value lands.
	if err := m.doCall(outerFrame, routineAddr/2, nil, function, 16, true); err != nil {
		t.Fatalf("doCall (catching routine): %v", err)
	}
	catchingFrame, _ := m.callStack.peek()

	catchInstr := zinstr.Instruction{Mnemonic: "catch", HasStore: true, StoreTarget: 18}
	if err := m.execute(catchInstr, catchingFrame); err != nil {
		t.Fatalf("execute(catch): %v", err)
	}
	caughtDepth := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase) + 4) // global 18
	if caughtDepth != 2 {
		t.Fatalf("caught depth = %d, want 2 (outer frame + catching frame)", caughtDepth)
	}

	if err := m.doCall(catchingFrame, routineAddr/2, nil, function, 19, true); err != nil {
		t.Fatalf("nested doCall: %v", err)
	}
	nestedFrame, _ := m.callStack.peek()
	if err := m.doCall(nestedFrame, routineAddr/2, nil, function, 20, true); err != nil {
		t.Fatalf("doubly nested doCall: %v", err)
	}
	if m.callStack.depth() != 4 {
		t.Fatalf("callStack.depth() = %d, want 4 before throw", m.callStack.depth())
	}

	deepestFrame, _ := m.callStack.peek()
	throwInstr := zinstr.Instruction{Mnemonic: "throw", Operands: []zinstr.Operand{large(77), large(caughtDepth)}}
	if err := m.execute(throwInstr, deepestFrame); err != nil {
		t.Fatalf("execute(throw): %v", err)
	}

	// throw unwinds back to the catching frame's depth, then performs a
	// normal return from it, landing the thrown value in its own store
	// target (global 16) and leaving only the outer frame behind.
	if m.callStack.depth() != 1 {
		t.Fatalf("callStack.depth() after throw = %d, want 1", m.callStack.depth())
	}
	got := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase))
	if got != 77 {
		t.Errorf("global 16 after throw = %d, want 77 (the thrown value)", got)
	}
}

func TestSaveUndoRestoreUndoRoundTrip(t *testing.T) {
	m := newTestMachine(t, nil)
	frame, _ := m.callStack.peek()

	m.Story.WriteWord(uint32(m.Story.GlobalVariableBase), 111)
	m.saveUndo(frame.pc)
	m.Story.WriteWord(uint32(m.Story.GlobalVariableBase), 222)

	if got := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase)); got != 222 {
		t.Fatalf("global 16 before undo = %d, want 222", got)
	}

	if !m.restoreUndo() {
		t.Fatalf("restoreUndo: expected success")
	}
	if got := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase)); got != 111 {
		t.Errorf("global 16 after undo = %d, want 111 (the saved value)", got)
	}
}

func TestRestoreUndoWithNoSnapshotFails(t *testing.T) {
	m := newTestMachine(t, nil)
	if m.restoreUndo() {
		t.Errorf("restoreUndo: expected failure with no prior save_undo")
	}
}

func TestSaveRestoreRoundTripThroughQuetzal(t *testing.T) {
	handler := &fakeSaveRestore{}
	m := newTestMachine(t, handler)
	frame, _ := m.callStack.peek()

	m.Story.WriteWord(uint32(m.Story.GlobalVariableBase), 9001)

	ok, err := m.doSave(frame.pc)
	if err != nil {
		t.Fatalf("doSave: %v", err)
	}
	if !ok {
		t.Fatalf("doSave: expected success")
	}
	if len(handler.blob) == 0 {
		t.Fatalf("doSave: expected the handler to receive encoded Quetzal bytes")
	}

	m.Story.WriteWord(uint32(m.Story.GlobalVariableBase), 1)

	ok, err = m.doRestore()
	if err != nil {
		t.Fatalf("doRestore: %v", err)
	}
	if !ok {
		t.Fatalf("doRestore: expected success")
	}
	if got := m.Story.ReadWord(uint32(m.Story.GlobalVariableBase)); got != 9001 {
		t.Errorf("global 16 after restore = %d, want 9001", got)
	}
}

func TestSaveWithNoHandlerFails(t *testing.T) {
	m := newTestMachine(t, nil)
	ok, err := m.doSave(0)
	if err != nil {
		t.Fatalf("doSave: %v", err)
	}
	if ok {
		t.Errorf("doSave with no handler: expected ok=false")
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	m := newTestMachine(t, nil)
	frame, _ := m.callStack.peek()

	instr := zinstr.Instruction{
		Mnemonic:    "div",
		Operands:    []zinstr.Operand{large(10), large(0)},
		HasStore:    true,
		StoreTarget: 16,
		Address:     0x40,
	}
	err := m.execute(instr, frame)
	if err == nil {
		t.Fatalf("execute(div by zero): expected an error")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Errorf("execute(div by zero) error type = %T, want *RuntimeError", err)
	}
}
