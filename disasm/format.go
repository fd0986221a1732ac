package disasm

import (
	"fmt"
	"strings"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zinstr"
)

// FormatOptions controls Listing.Format's textual rendering.
type FormatOptions struct {
	// RawAddresses emits routine byte addresses in place of routine labels
	// (the CLI's -n mode).
	RawAddresses bool
}

// Format renders one header line per routine ("Routine Rnnnn, N locals")
// followed by one line per instruction: address, mnemonic, operand
// renderings, and any store/branch suffix.
func (l *Listing) Format(story *zcore.Story, opts FormatOptions) string {
	labels := make(map[uint32]string, len(l.Routines))
	for i, r := range l.Routines {
		labels[r.Address] = fmt.Sprintf("R%04d", i+1)
	}

	var b strings.Builder
	for _, r := range l.Routines {
		fmt.Fprintf(&b, "Routine %s, %d locals\n", labels[r.Address], r.LocalCount)
		for _, instr := range r.Instructions {
			formatInstruction(&b, story, instr, labels, opts)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatInstruction(b *strings.Builder, story *zcore.Story, instr zinstr.Instruction, labels map[uint32]string, opts FormatOptions) {
	fmt.Fprintf(b, "  %05x: %-14s", instr.Address, instr.Mnemonic)

	for i, op := range instr.Operands {
		b.WriteByte(' ')
		b.WriteString(formatOperand(story, instr, i, op, labels, opts))
	}

	if instr.HasStore {
		fmt.Fprintf(b, " -> %s", variableName(instr.StoreTarget))
	}

	if instr.HasBranch {
		sign := "false"
		if instr.BranchInfo.On {
			sign = "true"
		}
		switch {
		case instr.BranchInfo.IsReturnFalse():
			fmt.Fprintf(b, " ?%s=rfalse", sign)
		case instr.BranchInfo.IsReturnTrue():
			fmt.Fprintf(b, " ?%s=rtrue", sign)
		default:
			target := uint32(int64(instr.Address+instr.Size) + int64(instr.BranchInfo.Offset) - 2)
			fmt.Fprintf(b, " ?%s 0x%x", sign, target)
		}
	}

	b.WriteByte('\n')
}

func formatOperand(story *zcore.Story, instr zinstr.Instruction, idx int, op zinstr.Operand, labels map[uint32]string, opts FormatOptions) string {
	if isPackedRoutineOperand(instr.Mnemonic, idx) && op.Type != zinstr.Variable {
		target := story.PackedAddress(uint32(op.Value), false)
		if label, ok := labels[target]; ok && !opts.RawAddresses {
			return label
		}
		return fmt.Sprintf("0x%x", target)
	}

	if op.Type == zinstr.Variable {
		return variableName(uint8(op.Value))
	}
	return fmt.Sprintf("#%x", op.Value)
}

func isPackedRoutineOperand(mnemonic string, idx int) bool {
	if idx != 0 {
		return false
	}
	switch mnemonic {
	case "call_vs", "call_1s", "call_2s", "call_vs2", "call_1n", "call_2n", "call_vn", "call_vn2":
		return true
	}
	return false
}

// variableName renders a variable number the way the Standard names them:
// 0 is the stack top, 1-15 are a routine's locals, 16-255 are globals.
func variableName(v uint8) string {
	switch {
	case v == 0:
		return "sp"
	case v <= 15:
		return fmt.Sprintf("local%d", v)
	default:
		return fmt.Sprintf("g%02x", v-16)
	}
}
