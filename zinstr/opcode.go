// Package zinstr is the Z-machine's pure instruction decoder: it turns a
// byte address into an Instruction value (operands, optional store
// target, optional branch descriptor, size) without touching any
// execution state. spec.md §4.5 (C6) keeps this decoupled from the
// executor precisely so the disassembler (C10) can reuse it.
package zinstr

// OperandType is the two-bit operand-type tag from an instruction's type
// byte(s).
type OperandType uint8

const (
	LargeConstant OperandType = 0b00
	SmallConstant OperandType = 0b01
	Variable      OperandType = 0b10
	Omitted       OperandType = 0b11
)

// Form is the instruction encoding form selected by the opcode byte's top
// bits.
type Form uint8

const (
	LongForm Form = iota
	ShortForm
	VarForm
	ExtForm
)

// OperandCount classifies an opcode by how many operands its form
// supplies, which — together with OpcodeNumber — is the key every opcode
// table in this codebase is indexed by. Keying on the raw opcode byte
// instead (or on the opcode number alone) is the classic routing-collision
// bug: 2OP:1 (je) and VAR:1 (storew) share the opcode number 1.
type OperandCount uint8

const (
	OP0 OperandCount = iota
	OP1
	OP2
	VAR
	EXT
)

// Operand is one decoded instruction argument.
type Operand struct {
	Type  OperandType
	Value uint16
}

// Branch is a decoded branch descriptor: branch when the opcode's result
// equals On, by Offset. Offsets of 0 and 1 are the pseudo-offsets meaning
// "return false" and "return true" rather than a jump.
type Branch struct {
	On     bool
	Offset int32
}

// IsReturnFalse reports whether this branch is the pseudo-offset 0.
func (b Branch) IsReturnFalse() bool { return b.Offset == 0 }

// IsReturnTrue reports whether this branch is the pseudo-offset 1.
func (b Branch) IsReturnTrue() bool { return b.Offset == 1 }

// Instruction is one fully decoded Z-machine instruction.
type Instruction struct {
	Address      uint32
	Form         Form
	OperandCount OperandCount
	OpcodeNumber uint8
	Operands     []Operand
	HasStore     bool
	StoreTarget  uint8
	HasBranch    bool
	BranchInfo   Branch
	Size         uint32 // bytes from Address to the first byte past this instruction
	Mnemonic     string
}

// DecodeError reports a malformed or unrecognised instruction.
type DecodeError struct {
	Address uint32
	Reason  string
}

func (e *DecodeError) Error() string {
	return "instruction decode error at 0x" + hex(e.Address) + ": " + e.Reason
}

func hex(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xF]
		v >>= 4
	}
	return string(buf[i:])
}
