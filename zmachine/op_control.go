package zmachine

import (
	"math/rand"
	"time"

	"github.com/kestrel-if/zengine/zinstr"
)

func (m *Machine) execRestart() error {
	if !m.Story.SetDynamicMemory(m.originalDynamicMem) {
		return &RuntimeError{Reason: "restart: failed to reset dynamic memory"}
	}
	m.callStack = CallStack{}
	m.callStack.push(&Frame{pc: uint32(m.Story.FirstInstruction)})
	m.undo = nil
	m.streams = streams{screen: true}
	m.screen = newScreenModel()
	if m.display != nil {
		m.display.Restart()
	}
	m.refreshScreen()
	return nil
}

// execThrow unwinds the call stack back to the frame identified by a prior
// catch (ops[1], a stack depth), then returns ops[0] from it.
func (m *Machine) execThrow(ops []uint16) error {
	targetDepth := int(ops[1])
	for m.callStack.depth() > targetDepth {
		if _, err := m.callStack.pop(); err != nil {
			return err
		}
	}
	return m.doReturn(ops[0])
}

func (m *Machine) execRandom(instr *zinstr.Instruction, frame *Frame, rangeOperand uint16) error {
	r := int16(rangeOperand)
	switch {
	case r > 0:
		m.store(instr, frame, uint16(m.rng.Intn(int(r))+1))
	case r < 0:
		m.rng = rand.New(rand.NewSource(int64(r)))
		m.store(instr, frame, 0)
	default:
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		m.store(instr, frame, 0)
	}
	return nil
}
