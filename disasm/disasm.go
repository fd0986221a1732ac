// Package disasm is the Z-machine's static disassembler: it shares
// zinstr's decoder with the runtime (zmachine) but never touches any
// execution state — it only discovers routines by walking a story image
// and formats what it finds as text. spec.md §4.10 (C10).
package disasm

import (
	"fmt"
	"sort"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zinstr"
)

// Routine is one discovered routine: its entry address, declared local
// count, and the instruction sequence decoded from its body.
type Routine struct {
	Address      uint32
	LocalCount   int
	Instructions []zinstr.Instruction
	End          uint32 // first byte past the routine
}

// Listing is the complete, address-sorted disassembly of a story image.
type Listing struct {
	Routines []Routine
}

var returnMnemonics = map[string]bool{
	"rtrue":      true,
	"rfalse":     true,
	"ret":        true,
	"ret_popped": true,
	"print_ret":  true,
	"quit":       true,
}

// maxRoutineInstructions guards pass 1's forward scan against runaway
// decode of non-routine bytes that never happen to hit a return opcode.
const maxRoutineInstructions = 4096

// Discover runs the three discovery passes: a seed sweep over high
// memory, a transitive closure over called/printed packed addresses, and
// an orphan sweep over static and object-property memory. Every accepted
// routine is then decoded two further times and compared against the
// first decode; a mismatch is a hard error, since the decoder is meant to
// be pure and any divergence means state leaked between calls.
func Discover(story *zcore.Story) (*Listing, error) {
	found := map[uint32]*Routine{}
	tryAdd := func(addr uint32) {
		if addr == 0 || !story.InBounds(addr) {
			return
		}
		if _, seen := found[addr]; seen {
			return
		}
		if r, ok := decodeRoutine(story, addr); ok {
			found[addr] = r
		}
	}

	// Pass 1: the header's initial PC, plus a sweep of the conservative
	// range between high memory and the initial PC.
	tryAdd(uint32(story.FirstInstruction))
	for addr := uint32(story.HighMemoryBase); addr < uint32(story.FirstInstruction); addr += 2 {
		tryAdd(addr)
	}

	// Pass 2: transitive packed-routine closure over every call site in
	// every routine found so far, repeated until a fixed point.
	for {
		before := len(found)
		for _, r := range snapshot(found) {
			for _, instr := range r.Instructions {
				if target, ok := calledRoutine(story, instr); ok {
					tryAdd(target)
				}
			}
		}
		if len(found) == before {
			break
		}
	}

	// Pass 3: orphan sweep. Packed routine addresses can appear as raw
	// word values in the object/property region (dynamic memory from the
	// object table base up to static memory) and in static memory itself
	// (e.g. a grammar or action table the seed sweep never reaches);
	// treat every word in both ranges as a candidate packed routine.
	sweepWords(story, uint32(story.ObjectTableBase), uint32(story.StaticMemoryBase), tryAdd)
	sweepWords(story, uint32(story.StaticMemoryBase), story.MemoryLength(), tryAdd)

	routines := resolveOverlaps(found)

	for i, r := range routines {
		for pass := 0; pass < 2; pass++ {
			again, ok := decodeRoutine(story, r.Address)
			if !ok {
				return nil, fmt.Errorf("disasm: routine at 0x%x no longer decodes on repeat pass %d", r.Address, pass+2)
			}
			if !sameInstructions(r.Instructions, again.Instructions) {
				return nil, fmt.Errorf("disasm: routine at 0x%x decoded differently on repeat pass %d than on discovery — decoder state leak", r.Address, pass+2)
			}
		}
		routines[i] = r
	}

	return &Listing{Routines: routines}, nil
}

func snapshot(found map[uint32]*Routine) []*Routine {
	out := make([]*Routine, 0, len(found))
	for _, r := range found {
		out = append(out, r)
	}
	return out
}

func sweepWords(story *zcore.Story, start, end uint32, tryAdd func(uint32)) {
	for addr := start; addr+1 < end; addr += 2 {
		word := story.ReadWord(addr)
		if word == 0 {
			continue
		}
		tryAdd(story.PackedAddress(uint32(word), false))
	}
}

// calledRoutine reports the packed-routine target of a call-family
// instruction, when its routine operand is a constant (the only form a
// compiler emits in practice — a variable operand can't be resolved
// statically and is left for the orphan sweep to find some other way).
func calledRoutine(story *zcore.Story, instr zinstr.Instruction) (uint32, bool) {
	switch instr.Mnemonic {
	case "call_vs", "call_1s", "call_2s", "call_vs2", "call_1n", "call_2n", "call_vn", "call_vn2":
	default:
		return 0, false
	}
	if len(instr.Operands) == 0 || instr.Operands[0].Type == zinstr.Variable {
		return 0, false
	}
	return story.PackedAddress(uint32(instr.Operands[0].Value), false), true
}

// decodeRoutine reads a routine header (locals count, and in v3/v4 their
// word-sized default values) at addr and decodes forward until a
// return-form opcode, or an unconditional jump whose target lies at or
// before the highest address reached so far (a backward jump can't be
// the routine falling through to more code). Accepts only if every
// instruction decoded cleanly and at least one advanced PC past addr.
func decodeRoutine(story *zcore.Story, addr uint32) (*Routine, bool) {
	if !story.InBounds(addr) {
		return nil, false
	}
	n := int(story.ReadByte(addr))
	if n > 15 {
		return nil, false
	}
	pc := addr + 1
	if story.Version <= 4 {
		pc += uint32(2 * n)
	}
	if !story.InBounds(pc) {
		return nil, false
	}

	var instrs []zinstr.Instruction
	highestPC := pc
	for {
		if !story.InBounds(pc) {
			return nil, false
		}
		instr, err := zinstr.Decode(story, pc)
		if err != nil {
			return nil, false
		}
		nextPC := pc + instr.Size
		instrs = append(instrs, instr)
		if nextPC > highestPC {
			highestPC = nextPC
		}
		pc = nextPC

		if returnMnemonics[instr.Mnemonic] {
			break
		}
		if instr.Mnemonic == "jump" && len(instr.Operands) == 1 {
			offset := int16(instr.Operands[0].Value)
			target := uint32(int64(nextPC) + int64(offset) - 2)
			if target <= highestPC {
				break
			}
		}
		if len(instrs) > maxRoutineInstructions {
			return nil, false
		}
	}

	if len(instrs) == 0 {
		return nil, false
	}
	return &Routine{Address: addr, LocalCount: n, Instructions: instrs, End: pc}, true
}

// resolveOverlaps applies the tie-break rule: walking candidates in
// ascending address order, a candidate whose start falls inside a
// previously accepted routine's body is rejected outright — there are no
// alternate entry points into an already-accepted routine, and the
// earlier (so, already-accepted) candidate always wins the overlap.
func resolveOverlaps(found map[uint32]*Routine) []Routine {
	addrs := make([]uint32, 0, len(found))
	for a := range found {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var accepted []Routine
	var occupiedUntil uint32
	for _, a := range addrs {
		r := found[a]
		if a < occupiedUntil {
			continue
		}
		accepted = append(accepted, *r)
		if r.End > occupiedUntil {
			occupiedUntil = r.End
		}
	}
	return accepted
}

func sameInstructions(a, b []zinstr.Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Address != b[i].Address || a[i].Mnemonic != b[i].Mnemonic || a[i].Size != b[i].Size ||
			a[i].HasStore != b[i].HasStore || a[i].StoreTarget != b[i].StoreTarget ||
			a[i].HasBranch != b[i].HasBranch || a[i].BranchInfo != b[i].BranchInfo ||
			len(a[i].Operands) != len(b[i].Operands) {
			return false
		}
		for j := range a[i].Operands {
			if a[i].Operands[j] != b[i].Operands[j] {
				return false
			}
		}
	}
	return true
}
