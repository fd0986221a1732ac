package zinstr_test

import (
	"testing"

	"github.com/kestrel-if/zengine/zcore"
	"github.com/kestrel-if/zengine/zinstr"
)

// newStory builds a minimal 64-byte header followed by code, just enough
// for zcore.Load to accept it.
func newStory(t *testing.T, version uint8, code []uint8) *zcore.Story {
	t.Helper()
	bytes := make([]uint8, 64+len(code))
	bytes[0x00] = version
	bytes[0x0e] = 0x00
	bytes[0x0f] = 0x40 // static memory base = 64
	copy(bytes[64:], code)

	story, err := zcore.Load(bytes)
	if err != nil {
		t.Fatalf("newStory: %v", err)
	}
	return story
}

func operandsEqual(a, b []zinstr.Operand) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDecodeLongForm2OP(t *testing.T) {
	// add 5 3 -> local2, both operands small constants.
	story := newStory(t, 3, []uint8{0x14, 0x05, 0x03, 0x02})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if instr.Mnemonic != "add" {
		t.Errorf("Mnemonic = %q, want add", instr.Mnemonic)
	}
	if instr.Form != zinstr.LongForm {
		t.Errorf("Form = %v, want LongForm", instr.Form)
	}
	if instr.OperandCount != zinstr.OP2 {
		t.Errorf("OperandCount = %v, want OP2", instr.OperandCount)
	}
	want := []zinstr.Operand{{Type: zinstr.SmallConstant, Value: 5}, {Type: zinstr.SmallConstant, Value: 3}}
	if !operandsEqual(instr.Operands, want) {
		t.Errorf("Operands = %v, want %v", instr.Operands, want)
	}
	if !instr.HasStore || instr.StoreTarget != 2 {
		t.Errorf("HasStore/StoreTarget = %v/%d, want true/2", instr.HasStore, instr.StoreTarget)
	}
	if instr.Size != 4 {
		t.Errorf("Size = %d, want 4", instr.Size)
	}
}

func TestDecodeShortFormOP0(t *testing.T) {
	// rtrue: operand type bits omitted (11), opcode number 0.
	story := newStory(t, 3, []uint8{0xB0})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instr.Mnemonic != "rtrue" {
		t.Errorf("Mnemonic = %q, want rtrue", instr.Mnemonic)
	}
	if instr.Form != zinstr.ShortForm || instr.OperandCount != zinstr.OP0 {
		t.Errorf("Form/OperandCount = %v/%v, want ShortForm/OP0", instr.Form, instr.OperandCount)
	}
	if len(instr.Operands) != 0 {
		t.Errorf("Operands = %v, want none", instr.Operands)
	}
	if instr.Size != 1 {
		t.Errorf("Size = %d, want 1", instr.Size)
	}
}

func TestDecodeShortFormOP1Branch(t *testing.T) {
	// jz 0 ?true +5, single-byte branch form.
	story := newStory(t, 3, []uint8{0x90, 0x00, 0xC5})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instr.Mnemonic != "jz" {
		t.Errorf("Mnemonic = %q, want jz", instr.Mnemonic)
	}
	if !instr.HasBranch {
		t.Fatalf("HasBranch = false, want true")
	}
	if !instr.BranchInfo.On || instr.BranchInfo.Offset != 5 {
		t.Errorf("BranchInfo = %+v, want {On:true Offset:5}", instr.BranchInfo)
	}
	if instr.Size != 3 {
		t.Errorf("Size = %d, want 3", instr.Size)
	}
}

func TestDecodeBranchTwoByteSignExtension(t *testing.T) {
	// je 5 5 ?true <14-bit offset -1>, exercising the two-byte branch form's
	// sign extension.
	story := newStory(t, 3, []uint8{0x01, 0x05, 0x05, 0xBF, 0xFF})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instr.Mnemonic != "je" {
		t.Errorf("Mnemonic = %q, want je", instr.Mnemonic)
	}
	if !instr.BranchInfo.On || instr.BranchInfo.Offset != -1 {
		t.Errorf("BranchInfo = %+v, want {On:true Offset:-1}", instr.BranchInfo)
	}
	if instr.Size != 5 {
		t.Errorf("Size = %d, want 5", instr.Size)
	}
}

func TestDecodeVarFormCallVS(t *testing.T) {
	// call_vs #1234 -> sp, one large-constant operand then Omitted.
	story := newStory(t, 3, []uint8{0xE0, 0x3F, 0x12, 0x34, 0x00})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instr.Mnemonic != "call_vs" {
		t.Errorf("Mnemonic = %q, want call_vs", instr.Mnemonic)
	}
	want := []zinstr.Operand{{Type: zinstr.LargeConstant, Value: 0x1234}}
	if !operandsEqual(instr.Operands, want) {
		t.Errorf("Operands = %v, want %v", instr.Operands, want)
	}
	if !instr.HasStore || instr.StoreTarget != 0 {
		t.Errorf("HasStore/StoreTarget = %v/%d, want true/0", instr.HasStore, instr.StoreTarget)
	}
	if instr.Size != 5 {
		t.Errorf("Size = %d, want 5", instr.Size)
	}
}

// TestDecodeCallVS2EightOperandForm exercises the extended VAR form's
// second operand-type byte, which only call_vs2/call_vn2 use. Five
// operands are given so the scan has to cross from the first type byte
// into the second to find the terminating Omitted marker.
func TestDecodeCallVS2EightOperandForm(t *testing.T) {
	story := newStory(t, 3, []uint8{
		0xEC,       // VAR:12 call_vs2
		0x15,       // type byte 1: large, small, small, small
		0x7F,       // type byte 2: small, omitted, omitted, omitted
		0x20, 0x00, // operand 0 (large constant 0x2000)
		0x01, // operand 1
		0x02, // operand 2
		0x03, // operand 3
		0x04, // operand 4
		0x10, // store target
	})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instr.Mnemonic != "call_vs2" {
		t.Errorf("Mnemonic = %q, want call_vs2", instr.Mnemonic)
	}
	want := []zinstr.Operand{
		{Type: zinstr.LargeConstant, Value: 0x2000},
		{Type: zinstr.SmallConstant, Value: 1},
		{Type: zinstr.SmallConstant, Value: 2},
		{Type: zinstr.SmallConstant, Value: 3},
		{Type: zinstr.SmallConstant, Value: 4},
	}
	if !operandsEqual(instr.Operands, want) {
		t.Errorf("Operands = %v, want %v", instr.Operands, want)
	}
	if !instr.HasStore || instr.StoreTarget != 0x10 {
		t.Errorf("HasStore/StoreTarget = %v/%d, want true/0x10", instr.HasStore, instr.StoreTarget)
	}
	if instr.Size != 10 {
		t.Errorf("Size = %d, want 10", instr.Size)
	}
}

func TestDecodeExtFormRequiresV5(t *testing.T) {
	// log_shift 4 1 -> local1, EXT form (opcode byte 0xBE only dispatches to
	// ExtForm when the story is v5+; on v3 its top two bits select short
	// form, where it is 0OP:14, an opcode the table does not define).
	story := newStory(t, 5, []uint8{0xBE, 0x02, 0x5F, 0x04, 0x01, 0x01})

	instr, err := zinstr.Decode(story, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instr.Form != zinstr.ExtForm {
		t.Errorf("Form = %v, want ExtForm", instr.Form)
	}
	if instr.Mnemonic != "log_shift" {
		t.Errorf("Mnemonic = %q, want log_shift", instr.Mnemonic)
	}
	want := []zinstr.Operand{{Type: zinstr.SmallConstant, Value: 4}, {Type: zinstr.SmallConstant, Value: 1}}
	if !operandsEqual(instr.Operands, want) {
		t.Errorf("Operands = %v, want %v", instr.Operands, want)
	}
	if !instr.HasStore || instr.StoreTarget != 1 {
		t.Errorf("HasStore/StoreTarget = %v/%d, want true/1", instr.HasStore, instr.StoreTarget)
	}
	if instr.Size != 6 {
		t.Errorf("Size = %d, want 6", instr.Size)
	}
}

func TestDecodeUnrecognisedOpcodeErrors(t *testing.T) {
	// 2OP opcode 29 is unused in the Standard and absent from op2Table.
	story := newStory(t, 3, []uint8{0x1D, 0x00, 0x00})

	_, err := zinstr.Decode(story, 64)
	if err == nil {
		t.Fatalf("Decode: expected an error for an unrecognised opcode")
	}
}

func TestDecodeSaveRestoreVersionQuirk(t *testing.T) {
	// 0OP:5 "save": branch-form in v3, store-form in v4+.
	v3 := newStory(t, 3, []uint8{0xB5, 0xC5})
	instr3, err := zinstr.Decode(v3, 64)
	if err != nil {
		t.Fatalf("Decode (v3): %v", err)
	}
	if !instr3.HasBranch || instr3.HasStore {
		t.Errorf("v3 save: HasBranch/HasStore = %v/%v, want true/false", instr3.HasBranch, instr3.HasStore)
	}

	v4 := newStory(t, 4, []uint8{0xB5, 0x00})
	instr4, err := zinstr.Decode(v4, 64)
	if err != nil {
		t.Fatalf("Decode (v4): %v", err)
	}
	if instr4.HasBranch || !instr4.HasStore {
		t.Errorf("v4 save: HasBranch/HasStore = %v/%v, want false/true", instr4.HasBranch, instr4.HasStore)
	}
}
