package zmachine

import (
	"strings"

	"github.com/kestrel-if/zengine/dictionary"
	"github.com/kestrel-if/zengine/zinstr"
	"github.com/kestrel-if/zengine/zstring"
)

func (m *Machine) refreshScreen() {
	if m.display != nil {
		m.display.UpdateScreen(m.screen)
	}
}

func (m *Machine) execSplitWindow(lines uint16) {
	m.screen.UpperWindowHeight = int(lines)
	m.refreshScreen()
}

func (m *Machine) execSetWindow(win uint16) {
	m.screen.LowerWindowActive = win == 0
	m.refreshScreen()
}

func (m *Machine) execEraseWindow(winOperand uint16) {
	w := int16(winOperand)
	switch w {
	case -1:
		m.screen.UpperWindowHeight = 0
		m.screen.LowerWindowActive = true
	case -2:
		// Clear both windows without altering the split.
	}
	if m.display != nil {
		m.display.EraseWindow(w)
	}
	m.refreshScreen()
}

func (m *Machine) execSetCursor(ops []uint16) {
	m.screen.UpperWindowCursorY = int(ops[0])
	m.screen.UpperWindowCursorX = int(ops[1])
	m.refreshScreen()
}

func (m *Machine) execGetCursor(addr uint16) {
	m.Story.WriteWord(uint32(addr), uint16(m.screen.UpperWindowCursorY))
	m.Story.WriteWord(uint32(addr)+2, uint16(m.screen.UpperWindowCursorX))
}

func (m *Machine) execSetTextStyle(styleOperand uint16) {
	apply := func(cur *TextStyle) {
		if styleOperand == 0 {
			*cur = Roman
			return
		}
		var add TextStyle
		if styleOperand&1 != 0 {
			add |= ReverseVideo
		}
		if styleOperand&2 != 0 {
			add |= Bold
		}
		if styleOperand&4 != 0 {
			add |= Italic
		}
		if styleOperand&8 != 0 {
			add |= FixedPitch
		}
		*cur |= add
	}

	if m.screen.LowerWindowActive {
		apply(&m.screen.LowerWindowTextStyle)
	} else {
		apply(&m.screen.UpperWindowTextStyle)
	}
	m.refreshScreen()
}

func (m *Machine) execSetColour(ops []uint16) {
	fg := m.screen.resolveColor(ops[0], true)
	bg := m.screen.resolveColor(ops[1], false)
	if m.screen.LowerWindowActive {
		m.screen.LowerWindowForeground = fg
		m.screen.LowerWindowBackground = bg
	} else {
		m.screen.UpperWindowForeground = fg
		m.screen.UpperWindowBackground = bg
	}
	m.refreshScreen()
}

func (m *Machine) execSetFont(instr *zinstr.Instruction, frame *Frame, fontOperand uint16) {
	requested := Font(fontOperand)
	previous := m.screen.CurrentFont

	if requested == 0 {
		m.store(instr, frame, uint16(previous))
		return
	}
	if requested == FontNormal || requested == FontFixedPitch {
		m.screen.CurrentFont = requested
		m.store(instr, frame, uint16(previous))
		m.refreshScreen()
		return
	}
	m.store(instr, frame, 0)
}

func (m *Machine) execShowStatus() {
	base := uint32(m.Story.GlobalVariableBase)
	locationObj := m.Story.ReadWord(base)
	scoreOrHours := int16(m.Story.ReadWord(base + 2))
	movesOrMinutes := int16(m.Story.ReadWord(base + 4))

	var name string
	if locationObj != 0 {
		if obj, err := m.Objects.Get(locationObj); err == nil {
			name, _ = obj.ShortName()
		}
	}

	bar := StatusBar{
		PlaceName:   name,
		Score:       int(scoreOrHours),
		Moves:       int(movesOrMinutes),
		IsTimeBased: m.Story.StatusLineIsTimeBased,
	}
	if m.display != nil {
		m.display.UpdateStatusBar(bar)
	}
}

func (m *Machine) execOutputStream(ops []uint16) error {
	switch n := int16(ops[0]); n {
	case 1:
		m.streams.screen = true
	case -1:
		m.streams.screen = false
	case 2:
		m.streams.transcript = true
	case -2:
		m.streams.transcript = false
	case 3:
		if len(ops) < 2 {
			return &RuntimeError{Reason: "output_stream 3 requires a table address"}
		}
		base := uint32(ops[1])
		m.streams.memory = true
		m.streams.memoryStreams = append(m.streams.memoryStreams, memoryStream{baseAddress: base, ptr: base + 2})
	case -3:
		if len(m.streams.memoryStreams) > 0 {
			top := m.streams.memoryStreams[len(m.streams.memoryStreams)-1]
			count := top.ptr - top.baseAddress - 2
			m.Story.WriteWord(top.baseAddress, uint16(count))
			m.streams.memoryStreams = m.streams.memoryStreams[:len(m.streams.memoryStreams)-1]
			m.streams.memory = len(m.streams.memoryStreams) > 0
		}
	case 4:
		m.streams.commandScript = true
	case -4:
		m.streams.commandScript = false
	}
	return nil
}

func (m *Machine) execSread(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	if m.Story.Version <= 3 {
		m.execShowStatus()
	}
	if m.input == nil {
		return &RuntimeError{PC: instr.Address, Reason: "sread: no input source configured"}
	}

	var timeoutTenths int
	var routine uint32
	if len(ops) > 2 {
		timeoutTenths = int(ops[2])
	}
	if len(ops) > 3 {
		routine = uint32(ops[3])
	}
	var timedOut bool
	line, err := m.input.ReadLine(timeoutTenths, m.timeoutCallback(routine, &timedOut))
	if err != nil {
		return err
	}
	line = strings.ToLower(line)

	textBuffer := uint32(ops[0])
	maxLen := int(m.Story.ReadByte(textBuffer))
	if len(line) > maxLen {
		line = line[:maxLen]
	}

	if m.Story.Version >= 5 {
		m.Story.WriteByte(textBuffer+1, uint8(len(line)))
		for i := 0; i < len(line); i++ {
			m.Story.WriteByte(textBuffer+2+uint32(i), line[i])
		}
	} else {
		for i := 0; i < len(line); i++ {
			m.Story.WriteByte(textBuffer+1+uint32(i), line[i])
		}
		m.Story.WriteByte(textBuffer+1+uint32(len(line)), 0)
	}

	if len(ops) > 1 && ops[1] != 0 {
		if err := dictionary.Tokenize(m.Story, m.Alphabets, m.Dictionary, textBuffer, uint32(ops[1]), false); err != nil {
			return err
		}
	}

	if instr.HasStore {
		terminator := uint16(13) // terminated by newline
		if timedOut {
			terminator = 0 // terminated by the timer routine forcing a stop
		}
		m.store(instr, frame, terminator)
	}
	return nil
}

func (m *Machine) execReadChar(instr *zinstr.Instruction, frame *Frame, ops []uint16) error {
	if m.input == nil {
		return &RuntimeError{PC: instr.Address, Reason: "read_char: no input source configured"}
	}

	var timeoutTenths int
	var routine uint32
	if len(ops) > 1 {
		timeoutTenths = int(ops[1])
	}
	if len(ops) > 2 {
		routine = uint32(ops[2])
	}
	var timedOut bool
	c, err := m.input.ReadChar(timeoutTenths, m.timeoutCallback(routine, &timedOut))
	if err != nil {
		return err
	}
	if timedOut {
		c = 0
	}
	m.store(instr, frame, uint16(c))
	return nil
}

// execTokenise ignores the (rare) custom-dictionary operand: this engine
// parses a single dictionary per story at load time, matching every known
// caller's usage in practice.
func (m *Machine) execTokenise(ops []uint16) error {
	leaveBlank := len(ops) > 3 && ops[3] != 0
	return dictionary.Tokenize(m.Story, m.Alphabets, m.Dictionary, uint32(ops[0]), uint32(ops[1]), leaveBlank)
}

func (m *Machine) execEncodeText(ops []uint16) error {
	textBuffer, length, from, codedBuffer := uint32(ops[0]), uint32(ops[1]), uint32(ops[2]), uint32(ops[3])
	s := string(m.Story.ReadSlice(textBuffer+from, textBuffer+from+length))
	key := zstring.EncodeDictionaryKey(s, m.Alphabets, m.Story.Version)
	for i, b := range key {
		m.Story.WriteByte(codedBuffer+uint32(i), b)
	}
	return nil
}
