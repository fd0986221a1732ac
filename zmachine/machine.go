// Package zmachine is the Z-machine executor: evaluation stack, call
// frames, variable resolution, and every opcode's runtime semantics
// (spec.md §4.6/§4.7, C7/C8). It consumes zinstr for decoding but owns
// all mutable execution state itself.
package zmachine

import (
	"math/rand"
	"time"

	"github.com/kestrel-if/zengine/dictionary"
	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zinstr"
	"github.com/kestrel-if/zengine/zobject"
	"github.com/kestrel-if/zengine/zstring"
)

// State is the machine's coarse execution state, replacing the teacher's
// panic-to-exit control flow with an explicit state a caller can inspect.
// Input and save/restore are handled synchronously within a single Step
// (the collaborator call blocks the goroutine running Run), per spec.md
// §6's "single-threaded, cooperative" model, so there is no separate
// suspended state to represent — only Executing until the machine
// terminates or faults.
type State int

const (
	Executing State = iota
	Terminated
	Faulted
)

func (s State) String() string {
	switch s {
	case Executing:
		return "executing"
	case Terminated:
		return "terminated"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// StatusBar is a v1-3 status line snapshot, pushed to Display whenever
// execution reaches a read (sread/aread) opcode.
type StatusBar struct {
	PlaceName   string
	Score       int
	Moves       int
	IsTimeBased bool
}

type memoryStream struct {
	baseAddress uint32
	ptr         uint32
}

type streams struct {
	screen        bool
	transcript    bool
	memory        bool
	memoryStreams []memoryStream
	commandScript bool
}

// Display receives output-stream text and screen-model updates. cmd/zrun
// implements this with a bubbletea program; tests can use a recording
// stub.
type Display interface {
	Print(s string)
	UpdateScreen(model ScreenModel)
	UpdateStatusBar(bar StatusBar)
	EraseWindow(window int16)
	EraseLine()
	Restart()
}

// Input supplies player text and single keystrokes on request. timeoutTenths
// is the v4+ timed-input interval in tenths of a second (0 disables the
// timer); onTimeout, when non-nil, is invoked by the collaborator each time
// that interval elapses with no key pressed. onTimeout runs the story's
// interrupt routine to completion (spec.md §4.7/§6's "re-entrant execute one
// routine to completion" callback) and reports whether the routine asked to
// terminate the read now (true) or let it keep waiting (false). The
// collaborator is expected to keep resetting its timer and calling back
// until either the player responds or onTimeout returns true.
type Input interface {
	ReadLine(timeoutTenths int, onTimeout func() (bool, error)) (string, error)
	ReadChar(timeoutTenths int, onTimeout func() (bool, error)) (uint8, error)
}

// SaveRestoreHandler lets the embedding program decide how save/restore
// opcodes persist and recover a Quetzal stream (file, in-memory buffer,
// cloud blob, ...). Save returns the bytes to persist; Restore is handed
// back whatever bytes the handler chooses to supply (e.g. read from a
// file the player picked).
type SaveRestoreHandler interface {
	Save(data []byte) error
	Restore() ([]byte, error)
}

// Machine is one running Z-machine instance.
type Machine struct {
	Story      *zcore.Story
	Alphabets  *zstring.Alphabets
	Objects    *zobject.Tree
	Dictionary *dictionary.Dictionary

	callStack CallStack
	rng       *rand.Rand
	streams   streams
	screen    ScreenModel

	display             Display
	input               Input
	saveRestoreHandler  SaveRestoreHandler
	undo                []undoState
	originalDynamicMem  []uint8

	State              State
	LastError          error
	currentInstruction zinstr.Instruction
	warnedOnce         map[string]bool
}

// New loads storyBytes and prepares a Machine at its first instruction,
// ready to Run.
func New(storyBytes []uint8, display Display, input Input, saveRestoreHandler SaveRestoreHandler) (*Machine, error) {
	story, err := zcore.Load(storyBytes)
	if err != nil {
		return nil, err
	}

	alphabets := zstring.Load(story)
	objects := zobject.New(story, alphabets)
	dict, err := dictionary.Parse(story, alphabets)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		Story:              story,
		Alphabets:          alphabets,
		Objects:            objects,
		Dictionary:         dict,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		streams:            streams{screen: true},
		screen:             newScreenModel(),
		display:            display,
		input:              input,
		saveRestoreHandler: saveRestoreHandler,
		warnedOnce:         make(map[string]bool),
		State:              Executing,
	}

	m.callStack.push(&Frame{pc: uint32(story.FirstInstruction), locals: nil})
	m.originalDynamicMem = append([]uint8(nil), story.DynamicMemory()...)
	return m, nil
}

// Run steps the machine until it terminates or faults. Opcodes that need
// player input or a save/restore payload call straight into Input/
// SaveRestoreHandler and block this goroutine until the collaborator
// responds; there is no separate resumption entry point.
func (m *Machine) Run() error {
	if m.display != nil {
		m.display.UpdateScreen(m.screen)
	}
	for m.State == Executing {
		if err := m.Step(); err != nil {
			m.State = Faulted
			m.LastError = err
			return err
		}
	}
	return nil
}

// Step decodes and executes exactly one instruction.
func (m *Machine) Step() error {
	frame, err := m.callStack.peek()
	if err != nil {
		return err
	}

	instr, err := zinstr.Decode(m.Story, frame.pc)
	if err != nil {
		return &RuntimeError{PC: frame.pc, Reason: err.Error()}
	}
	frame.pc += instr.Size
	m.currentInstruction = instr

	return m.execute(instr, frame)
}

func (m *Machine) warnOnce(key, format string, args ...interface{}) {
	if m.warnedOnce[key] {
		return
	}
	m.warnedOnce[key] = true
	// Warnings are non-fatal; surfaced through Display when present.
	if m.display != nil {
		m.display.Print(newWarning(format, args...).Error())
	}
}

func (m *Machine) appendText(s string) {
	if m.streams.memory {
		stream := &m.streams.memoryStreams[len(m.streams.memoryStreams)-1]
		for i := 0; i < len(s); i++ {
			m.Story.WriteByte(stream.ptr, s[i])
			stream.ptr++
		}
		return
	}

	if m.streams.screen && m.display != nil {
		m.display.Print(s)
	}
}

func (m *Machine) packedAddress(addr uint32, isString bool) uint32 {
	return m.Story.PackedAddress(addr, isString)
}
