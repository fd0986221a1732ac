package zinstr

import "github.com/kestrel-if/zengine/zcore"

// Decode reads one instruction from story starting at pc.
func Decode(story *zcore.Story, pc uint32) (Instruction, error) {
	start := pc
	opcodeByte := story.ReadByte(pc)
	pc++

	instr := Instruction{Address: start}

	if opcodeByte == 0xBE && story.Version >= 5 {
		opcodeNumber := story.ReadByte(pc)
		pc++
		instr.Form = ExtForm
		instr.OperandCount = EXT
		instr.OpcodeNumber = opcodeNumber

		var err error
		pc, err = decodeVariableOperands(story, pc, &instr)
		if err != nil {
			return instr, err
		}
	} else {
		switch opcodeByte >> 6 {
		case 0b11: // variable form
			instr.Form = VarForm
			instr.OpcodeNumber = opcodeByte & 0b1_1111
			if (opcodeByte>>5)&1 == 0 {
				instr.OperandCount = OP2
			} else {
				instr.OperandCount = VAR
			}
			var err error
			pc, err = decodeVariableOperands(story, pc, &instr)
			if err != nil {
				return instr, err
			}

		case 0b10: // short form
			instr.Form = ShortForm
			instr.OpcodeNumber = opcodeByte & 0b1111
			operandType := OperandType((opcodeByte >> 4) & 0b11)
			switch operandType {
			case LargeConstant:
				instr.Operands = append(instr.Operands, Operand{Type: operandType, Value: story.ReadWord(pc)})
				pc += 2
				instr.OperandCount = OP1
			case SmallConstant, Variable:
				instr.Operands = append(instr.Operands, Operand{Type: operandType, Value: uint16(story.ReadByte(pc))})
				pc++
				instr.OperandCount = OP1
			default: // Omitted
				instr.OperandCount = OP0
			}

		default: // LongForm (top bit of opcodeByte is 0)
			instr.Form = LongForm
			instr.OpcodeNumber = opcodeByte & 0b1_1111
			instr.OperandCount = OP2

			op1Type := SmallConstant
			if (opcodeByte>>6)&1 == 1 {
				op1Type = Variable
			}
			op2Type := SmallConstant
			if (opcodeByte>>5)&1 == 1 {
				op2Type = Variable
			}
			for _, t := range []OperandType{op1Type, op2Type} {
				instr.Operands = append(instr.Operands, Operand{Type: t, Value: uint16(story.ReadByte(pc))})
				pc++
			}
		}
	}

	info, known := lookup(instr.OperandCount, instr.OpcodeNumber)
	if !known {
		return instr, &DecodeError{Address: start, Reason: "unrecognised opcode"}
	}
	instr.Mnemonic = info.mnemonic
	instr.HasStore = info.store
	instr.HasBranch = info.branch

	// Version-dependent quirks the static table can't express.
	if instr.OperandCount == OP0 && (instr.OpcodeNumber == 5 || instr.OpcodeNumber == 6) {
		instr.HasStore = saveRestoreIsStoreForm(story.Version)
		instr.HasBranch = !instr.HasStore
	}
	if instr.OperandCount == OP1 && instr.OpcodeNumber == 15 {
		if story.Version >= 5 {
			instr.Mnemonic = "call_1n"
			instr.HasStore = false
		}
	}
	if instr.OperandCount == VAR && instr.OpcodeNumber == 4 && story.Version >= 5 {
		instr.HasStore = true
	}
	if instr.OperandCount == OP0 && instr.OpcodeNumber == 9 && story.Version >= 5 {
		instr.Mnemonic = "catch"
		instr.HasStore = true
	}

	if instr.HasStore {
		instr.StoreTarget = story.ReadByte(pc)
		pc++
	}

	if instr.HasBranch {
		b, newPC, err := decodeBranch(story, pc)
		if err != nil {
			return instr, err
		}
		instr.BranchInfo = b
		pc = newPC
	}

	if instr.Mnemonic == "print" || instr.Mnemonic == "print_ret" {
		// Literal string follows inline; the caller decodes text with
		// zstring once it knows the address. We still need to consume it
		// for Size to be correct, so scan for the terminator bit here
		// without decoding Z-characters.
		for {
			word := story.ReadWord(pc)
			pc += 2
			if word>>15 == 1 {
				break
			}
		}
	}

	instr.Size = pc - start
	return instr, nil
}

// decodeVariableOperands reads a VAR/EXT-form operand-type byte (and, for
// call_vs2/call_vn2, the second type byte unlocking up to 8 operands),
// followed by each operand's value.
func decodeVariableOperands(story *zcore.Story, pc uint32, instr *Instruction) (uint32, error) {
	typeByte1 := story.ReadByte(pc)
	pc++

	var typeByte2 uint8
	maxOperands := 4
	if isExtendedCallOpcode(instr.OperandCount, instr.OpcodeNumber) {
		typeByte2 = story.ReadByte(pc)
		pc++
		maxOperands = 8
	}

	for i := 0; i < maxOperands; i++ {
		var t OperandType
		if i < 4 {
			t = OperandType((typeByte1 >> (2 * (3 - i))) & 0b11)
		} else {
			t = OperandType((typeByte2 >> (2 * (7 - i))) & 0b11)
		}
		if t == Omitted {
			break
		}

		switch t {
		case LargeConstant:
			instr.Operands = append(instr.Operands, Operand{Type: t, Value: story.ReadWord(pc)})
			pc += 2
		default: // SmallConstant, Variable
			instr.Operands = append(instr.Operands, Operand{Type: t, Value: uint16(story.ReadByte(pc))})
			pc++
		}
	}

	return pc, nil
}

func decodeBranch(story *zcore.Story, pc uint32) (Branch, uint32, error) {
	b1 := story.ReadByte(pc)
	pc++
	on := b1&0b1000_0000 != 0

	if b1&0b0100_0000 != 0 {
		offset := int32(b1 & 0b0011_1111)
		return Branch{On: on, Offset: offset}, pc, nil
	}

	b2 := story.ReadByte(pc)
	pc++
	raw := uint16(b1&0b0011_1111)<<8 | uint16(b2)
	offset := int32(int16(raw << 2)) >> 2 // sign-extend the 14-bit field
	return Branch{On: on, Offset: offset}, pc, nil
}
