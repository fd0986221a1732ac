package zinstr

// opcodeInfo is the static per-opcode fact sheet the decoder consults to
// know whether a store-variable byte or branch descriptor follows the
// operands. It cannot be derived from the opcode byte alone — that's the
// routing-collision invariant spec.md calls out — so it is keyed by
// (OperandCount, OpcodeNumber), exactly as the dispatcher will key its
// execution table.
type opcodeInfo struct {
	mnemonic string
	store    bool
	branch   bool
}

// saveRestoreIsStoreForm reports whether opcode number `save`/`restore` (0OP 5/6,
// or EXT 0/1) is store-form for this story version. In v1-3 they branch; in
// v4+ they store. The caller (Decode) threads the version in because the
// table itself is version-independent everywhere else.
func saveRestoreIsStoreForm(version uint8) bool { return version >= 4 }

var op0Table = map[uint8]opcodeInfo{
	0:  {mnemonic: "rtrue"},
	1:  {mnemonic: "rfalse"},
	2:  {mnemonic: "print"},
	3:  {mnemonic: "print_ret"},
	4:  {mnemonic: "nop"},
	5:  {mnemonic: "save", branch: true}, // store-form handled specially for v4+
	6:  {mnemonic: "restore", branch: true},
	7:  {mnemonic: "restart"},
	8:  {mnemonic: "ret_popped"},
	9:  {mnemonic: "pop"},
	10: {mnemonic: "quit"},
	11: {mnemonic: "new_line"},
	12: {mnemonic: "show_status"},
	13: {mnemonic: "verify", branch: true},
	15: {mnemonic: "piracy", branch: true},
}

var op1Table = map[uint8]opcodeInfo{
	0:  {mnemonic: "jz", branch: true},
	1:  {mnemonic: "get_sibling", store: true, branch: true},
	2:  {mnemonic: "get_child", store: true, branch: true},
	3:  {mnemonic: "get_parent", store: true},
	4:  {mnemonic: "get_prop_len", store: true},
	5:  {mnemonic: "inc"},
	6:  {mnemonic: "dec"},
	7:  {mnemonic: "print_addr"},
	8:  {mnemonic: "call_1s", store: true},
	9:  {mnemonic: "remove_obj"},
	10: {mnemonic: "print_obj"},
	11: {mnemonic: "ret"},
	12: {mnemonic: "jump"},
	13: {mnemonic: "print_paddr"},
	14: {mnemonic: "load", store: true},
	15: {mnemonic: "not", store: true}, // call_1n in v5+, handled in Decode
}

var op2Table = map[uint8]opcodeInfo{
	1:  {mnemonic: "je", branch: true},
	2:  {mnemonic: "jl", branch: true},
	3:  {mnemonic: "jg", branch: true},
	4:  {mnemonic: "dec_chk", branch: true},
	5:  {mnemonic: "inc_chk", branch: true},
	6:  {mnemonic: "jin", branch: true},
	7:  {mnemonic: "test", branch: true},
	8:  {mnemonic: "or", store: true},
	9:  {mnemonic: "and", store: true},
	10: {mnemonic: "test_attr", branch: true},
	11: {mnemonic: "set_attr"},
	12: {mnemonic: "clear_attr"},
	13: {mnemonic: "store"},
	14: {mnemonic: "insert_obj"},
	15: {mnemonic: "loadw", store: true},
	16: {mnemonic: "loadb", store: true},
	17: {mnemonic: "get_prop", store: true},
	18: {mnemonic: "get_prop_addr", store: true},
	19: {mnemonic: "get_next_prop", store: true},
	20: {mnemonic: "add", store: true},
	21: {mnemonic: "sub", store: true},
	22: {mnemonic: "mul", store: true},
	23: {mnemonic: "div", store: true},
	24: {mnemonic: "mod", store: true},
	25: {mnemonic: "call_2s", store: true},
	26: {mnemonic: "call_2n"},
	27: {mnemonic: "set_colour"},
	28: {mnemonic: "throw"},
	// 29-31: unused in the Standard. 2OP:0x1F (31) is the undocumented
	// compatibility quirk spec.md calls out: treated as a store-form NOP.
	31: {mnemonic: "nop_1f", store: true},
}

var varTable = map[uint8]opcodeInfo{
	0:  {mnemonic: "call_vs", store: true},
	1:  {mnemonic: "storew"},
	2:  {mnemonic: "storeb"},
	3:  {mnemonic: "put_prop"},
	4:  {mnemonic: "sread"}, // store added in v5+, handled in Decode
	5:  {mnemonic: "print_char"},
	6:  {mnemonic: "print_num"},
	7:  {mnemonic: "random", store: true},
	8:  {mnemonic: "push"},
	9:  {mnemonic: "pull"},
	10: {mnemonic: "split_window"},
	11: {mnemonic: "set_window"},
	12: {mnemonic: "call_vs2", store: true},
	13: {mnemonic: "erase_window"},
	14: {mnemonic: "erase_line"},
	15: {mnemonic: "set_cursor"},
	16: {mnemonic: "get_cursor"},
	17: {mnemonic: "set_text_style"},
	18: {mnemonic: "buffer_mode"},
	19: {mnemonic: "output_stream"},
	20: {mnemonic: "input_stream"},
	21: {mnemonic: "sound_effect"},
	22: {mnemonic: "read_char", store: true},
	23: {mnemonic: "scan_table", store: true, branch: true},
	24: {mnemonic: "not", store: true},
	25: {mnemonic: "call_vn"},
	26: {mnemonic: "call_vn2"},
	27: {mnemonic: "tokenise"},
	28: {mnemonic: "encode_text"},
	29: {mnemonic: "copy_table"},
	30: {mnemonic: "print_table"},
	31: {mnemonic: "check_arg_count", branch: true},
}

var extTable = map[uint8]opcodeInfo{
	0:  {mnemonic: "save", store: true},
	1:  {mnemonic: "restore", store: true},
	2:  {mnemonic: "log_shift", store: true},
	3:  {mnemonic: "art_shift", store: true},
	4:  {mnemonic: "set_font", store: true},
	9:  {mnemonic: "save_undo", store: true},
	10: {mnemonic: "restore_undo", store: true},
	11: {mnemonic: "print_unicode"},
	12: {mnemonic: "check_unicode", store: true},
}

// isExtendedCallOpcode identifies the VAR-form opcode numbers whose 8-operand
// extended type-byte form exists (call_vs2 and call_vn2).
func isExtendedCallOpcode(operandCount OperandCount, opcodeNumber uint8) bool {
	return operandCount == VAR && (opcodeNumber == 12 || opcodeNumber == 26)
}

func lookup(operandCount OperandCount, opcodeNumber uint8) (opcodeInfo, bool) {
	var table map[uint8]opcodeInfo
	switch operandCount {
	case OP0:
		table = op0Table
	case OP1:
		table = op1Table
	case OP2:
		table = op2Table
	case VAR:
		table = varTable
	case EXT:
		table = extTable
	}
	info, ok := table[opcodeNumber]
	return info, ok
}
