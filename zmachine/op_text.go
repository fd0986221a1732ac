package zmachine

import (
	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zinstr"
	"github.com/kestrel-if/zengine/zstring"
)

// execPrintLiteral decodes the Z-string packed inline after print/print_ret.
// Both are 0OP-form with no operands, store, or branch byte, so the string
// always begins at Address+1.
func (m *Machine) execPrintLiteral(instr *zinstr.Instruction, isRet bool) error {
	text, _, err := zstring.Decode(m.Story, m.Alphabets, instr.Address+1)
	if err != nil {
		return err
	}
	m.appendText(text)
	if isRet {
		m.appendText("\n")
		return m.doReturn(1)
	}
	return nil
}

func (m *Machine) execPrintAt(addr uint32) error {
	text, _, err := zstring.Decode(m.Story, m.Alphabets, addr)
	if err != nil {
		return err
	}
	m.appendText(text)
	return nil
}

func (m *Machine) execPrintObj(objOperand uint16) error {
	if objOperand == 0 {
		return nil
	}
	obj, err := m.Objects.Get(objOperand)
	if err != nil {
		return err
	}
	name, err := obj.ShortName()
	if err != nil {
		return err
	}
	m.appendText(name)
	return nil
}

func (m *Machine) execPrintChar(code uint16) error {
	if r, ok := zstring.ZsciiToUnicode(uint8(code), m.Story); ok {
		m.appendText(string(r))
		return nil
	}
	m.appendText(string(rune(code)))
	return nil
}

func execCheckUnicode(story *zcore.Story, code uint16) uint16 {
	var result uint16
	if _, ok := zstring.ZsciiToUnicode(uint8(code), story); ok {
		result |= 1
	}
	if _, ok := zstring.UnicodeToZscii(rune(code), story); ok {
		result |= 2
	}
	return result
}
