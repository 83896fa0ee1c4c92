package cpu

import (
	"fmt"
)

// Op is the 4-bit opcode in the top bits of an instruction word.
type Op uint16

const (
	OP_BR   = Op(0x0) // conditional branch
	OP_ADD  = Op(0x1)
	OP_LD   = Op(0x2) // load PC-relative
	OP_ST   = Op(0x3) // store PC-relative
	OP_JSR  = Op(0x4) // jump to subroutine (also JSRR)
	OP_AND  = Op(0x5)
	OP_LDR  = Op(0x6) // load base+offset
	OP_STR  = Op(0x7) // store base+offset
	OP_RTI  = Op(0x8) // return from interrupt
	OP_NOT  = Op(0x9)
	OP_LDI  = Op(0xA) // load indirect
	OP_STI  = Op(0xB) // store indirect
	OP_JMP  = Op(0xC)
	OP_RES  = Op(0xD) // reserved
	OP_LEA  = Op(0xE) // load effective address
	OP_TRAP = Op(0xF)
)

var opNames = [16]string{
	"BR", "ADD", "LD", "ST", "JSR", "AND", "LDR", "STR",
	"RTI", "NOT", "LDI", "STI", "JMP", "RES", "LEA", "TRAP",
}

func (op Op) String() string {
	return opNames[op&0xf]
}

// Mode selects between the two encodings of a bimodal opcode. ADD and
// AND use bit 5 to pick a second source register or a 5-bit immediate;
// JSR uses bit 11 to pick an 11-bit PC-relative offset or a base
// register (the JSRR form).
type Mode int

const (
	MODE_REGISTER  = Mode(0)
	MODE_IMMEDIATE = Mode(1)
)

// field describes one operand field of an instruction word. The same
// table drives the encoder and the decoder, which keeps the two bit
// layouts identical by construction.
type field struct {
	shift  uint16
	width  uint16
	signed bool
}

var (
	fieldDR    = field{shift: 9, width: 3}
	fieldSR1   = field{shift: 6, width: 3}
	fieldSR2   = field{shift: 0, width: 3}
	fieldImm5  = field{shift: 0, width: 5, signed: true}
	fieldOff6  = field{shift: 0, width: 6, signed: true}
	fieldOff9  = field{shift: 0, width: 9, signed: true}
	fieldOff11 = field{shift: 0, width: 11, signed: true}
	fieldVect8 = field{shift: 0, width: 8}
)

func (f field) mask() uint16 {
	return (1 << f.width) - 1
}

// get extracts the field from word, sign-extending when the field is
// signed.
func (f field) get(word uint16) (value uint16) {
	value = (word >> f.shift) & f.mask()
	if f.signed {
		value = SignExtend(value, f.width)
	}
	return
}

// put places value into the field position. The value must already
// Fit().
func (f field) put(value uint16) uint16 {
	return (value & f.mask()) << f.shift
}

// Fit reports whether a full-width value is representable in the
// field, and the bounds of the field.
func (f field) Fit(value uint16) (ok bool, min, max int) {
	if f.signed {
		min = -(1 << (f.width - 1))
		max = (1 << (f.width - 1)) - 1
		v := int(int16(value))
		return v >= min && v <= max, min, max
	}
	max = int(f.mask())
	return int(value) <= max, 0, max
}

// SignExtend widens the low width bits of value to 16 bits.
func SignExtend(value uint16, width uint16) uint16 {
	if (value>>(width-1))&1 != 0 {
		value |= 0xFFFF << width
	}
	return value
}

// Instruction is the decoded form of one instruction word. Only the
// fields defined by the opcode's bit layout are meaningful; the rest
// stay zero, so decoded instructions compare with ==.
type Instruction struct {
	Op   Op
	Mode Mode

	N, Z, P bool // BR condition mask

	DR   Register // destination, or the source of ST/STI/STR
	SR1  Register // first source, or the base register
	SR2  Register // second source in register mode
	Imm  uint16   // sign-extended immediate or PC-relative offset
	Vect uint16   // trap vector
}

func (inst Instruction) String() (out string) {
	switch inst.Op {
	case OP_BR:
		suffix := ""
		if !(inst.N && inst.Z && inst.P) {
			if inst.N {
				suffix += "n"
			}
			if inst.Z {
				suffix += "z"
			}
			if inst.P {
				suffix += "p"
			}
		}
		out = fmt.Sprintf("BR%v #%v", suffix, int16(inst.Imm))
	case OP_ADD, OP_AND:
		if inst.Mode == MODE_IMMEDIATE {
			out = fmt.Sprintf("%v %v, %v, #%v", inst.Op, inst.DR, inst.SR1, int16(inst.Imm))
		} else {
			out = fmt.Sprintf("%v %v, %v, %v", inst.Op, inst.DR, inst.SR1, inst.SR2)
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v %v, #%v", inst.Op, inst.DR, int16(inst.Imm))
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v %v, %v, #%v", inst.Op, inst.DR, inst.SR1, int16(inst.Imm))
	case OP_JSR:
		if inst.Mode == MODE_IMMEDIATE {
			out = fmt.Sprintf("JSR #%v", int16(inst.Imm))
		} else {
			out = fmt.Sprintf("JSRR %v", inst.SR1)
		}
	case OP_JMP:
		out = fmt.Sprintf("JMP %v", inst.SR1)
	case OP_NOT:
		out = fmt.Sprintf("NOT %v, %v", inst.DR, inst.SR1)
	case OP_TRAP:
		out = fmt.Sprintf("TRAP x%02X", inst.Vect)
	default:
		out = inst.Op.String()
	}
	return
}

// Encode converts the instruction into its word form. The offset and
// immediate fields are range-checked against the layout table.
func (inst Instruction) Encode() (word uint16, err error) {
	word = uint16(inst.Op) << 12

	putSigned := func(f field, value uint16) {
		ok, min, max := f.Fit(value)
		if !ok && err == nil {
			err = &ErrFieldRange{Value: int(int16(value)), Min: min, Max: max}
		}
		word |= f.put(value)
	}

	switch inst.Op {
	case OP_BR:
		if inst.N {
			word |= 1 << 11
		}
		if inst.Z {
			word |= 1 << 10
		}
		if inst.P {
			word |= 1 << 9
		}
		putSigned(fieldOff9, inst.Imm)

	case OP_ADD, OP_AND:
		word |= fieldDR.put(uint16(inst.DR))
		word |= fieldSR1.put(uint16(inst.SR1))
		if inst.Mode == MODE_IMMEDIATE {
			word |= 1 << 5
			putSigned(fieldImm5, inst.Imm)
		} else {
			word |= fieldSR2.put(uint16(inst.SR2))
		}

	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		word |= fieldDR.put(uint16(inst.DR))
		putSigned(fieldOff9, inst.Imm)

	case OP_LDR, OP_STR:
		word |= fieldDR.put(uint16(inst.DR))
		word |= fieldSR1.put(uint16(inst.SR1))
		putSigned(fieldOff6, inst.Imm)

	case OP_JSR:
		if inst.Mode == MODE_IMMEDIATE {
			word |= 1 << 11
			putSigned(fieldOff11, inst.Imm)
		} else {
			word |= fieldSR1.put(uint16(inst.SR1))
		}

	case OP_JMP:
		word |= fieldSR1.put(uint16(inst.SR1))

	case OP_NOT:
		word |= fieldDR.put(uint16(inst.DR))
		word |= fieldSR1.put(uint16(inst.SR1))
		word |= 0x3F // bits 5:0 are all ones in the NOT layout

	case OP_RTI:
		// no operand fields

	case OP_TRAP:
		ok, _, _ := fieldVect8.Fit(inst.Vect)
		if !ok {
			err = &ErrFieldRange{Value: int(inst.Vect), Min: 0, Max: 0xFF}
		}
		word |= fieldVect8.put(inst.Vect)

	default:
		err = ErrReservedOpcode(word)
	}

	return
}

// Decode is the exact inverse of Encode: raw word to tagged
// instruction. Reserved opcodes and set must-be-zero bits are errors
// rather than undefined behavior.
func Decode(word uint16) (inst Instruction, err error) {
	inst.Op = Op(word >> 12)

	mustBeZero := func(mask uint16) {
		if word&mask != 0 && err == nil {
			err = ErrIllegalEncoding(word)
		}
	}

	switch inst.Op {
	case OP_BR:
		inst.N = (word>>11)&1 != 0
		inst.Z = (word>>10)&1 != 0
		inst.P = (word>>9)&1 != 0
		inst.Imm = fieldOff9.get(word)

	case OP_ADD, OP_AND:
		inst.DR = Register(fieldDR.get(word))
		inst.SR1 = Register(fieldSR1.get(word))
		if (word>>5)&1 != 0 {
			inst.Mode = MODE_IMMEDIATE
			inst.Imm = fieldImm5.get(word)
		} else {
			mustBeZero(0x18) // bits 4:3
			inst.SR2 = Register(fieldSR2.get(word))
		}

	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		inst.DR = Register(fieldDR.get(word))
		inst.Imm = fieldOff9.get(word)

	case OP_LDR, OP_STR:
		inst.DR = Register(fieldDR.get(word))
		inst.SR1 = Register(fieldSR1.get(word))
		inst.Imm = fieldOff6.get(word)

	case OP_JSR:
		if (word>>11)&1 != 0 {
			inst.Mode = MODE_IMMEDIATE
			inst.Imm = fieldOff11.get(word)
		} else {
			mustBeZero(0x063F) // bits 10:9 and 5:0
			inst.SR1 = Register(fieldSR1.get(word))
		}

	case OP_JMP:
		mustBeZero(0x0E3F) // bits 11:9 and 5:0
		inst.SR1 = Register(fieldSR1.get(word))

	case OP_NOT:
		if word&0x3F != 0x3F {
			err = ErrIllegalEncoding(word)
		}
		inst.DR = Register(fieldDR.get(word))
		inst.SR1 = Register(fieldSR1.get(word))

	case OP_RTI:
		mustBeZero(0x0FFF)

	case OP_TRAP:
		mustBeZero(0x0F00) // bits 11:8
		inst.Vect = fieldVect8.get(word)

	case OP_RES:
		err = ErrReservedOpcode(word)
	}

	return
}
